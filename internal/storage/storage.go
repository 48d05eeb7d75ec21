package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"VoiceTaskManager_Backend/internal/models"
)

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrEmptyText    = errors.New("task text is required")
)

// TaskStore is the record store shared by every handler.
// Implementations must be safe for concurrent use.
type TaskStore interface {
	Create(ctx context.Context, text string) (models.Task, error)
	FindAll(ctx context.Context) ([]models.Task, error)
	FindByID(ctx context.Context, id string) (models.Task, error)
	// FindByIDAndDelete removes the task and returns it, or ErrTaskNotFound.
	FindByIDAndDelete(ctx context.Context, id string) (models.Task, error)
	Ping(ctx context.Context) error
	Close() error
}

type Options struct {
	// MongoDatabase is used when the URI path does not name a database.
	MongoDatabase string
}

// Open picks a backend from the URI scheme.
//
//	mongodb://, mongodb+srv://  -> MongoDB
//	sqlite:<path>, file:<dsn>   -> SQLite
func Open(ctx context.Context, uri string, opts Options) (TaskStore, error) {
	switch {
	case strings.HasPrefix(uri, "mongodb://"), strings.HasPrefix(uri, "mongodb+srv://"):
		return NewMongoStore(ctx, uri, opts.MongoDatabase)
	case strings.HasPrefix(uri, "sqlite:"):
		return NewSQLiteStore(strings.TrimPrefix(uri, "sqlite:"))
	case strings.HasPrefix(uri, "file:"):
		return NewSQLiteStore(uri)
	case uri == "":
		return nil, errors.New("storage.Open(): database URI is empty")
	default:
		return nil, fmt.Errorf("storage.Open(): unsupported database URI scheme: %q", schemeOf(uri))
	}
}

func schemeOf(uri string) string {
	if i := strings.Index(uri, ":"); i > 0 {
		return uri[:i]
	}
	return uri
}

func normalizeText(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}
	return text, nil
}
