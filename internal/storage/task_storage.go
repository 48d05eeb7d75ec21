package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"VoiceTaskManager_Backend/internal/models"

	"github.com/google/uuid"
)

func (s *SQLiteStore) Create(ctx context.Context, text string) (models.Task, error) {
	text, err := normalizeText(text)
	if err != nil {
		return models.Task{}, err
	}
	task := models.Task{
		ID:        uuid.NewString(),
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}

	stmt, err := s.db.PrepareContext(ctx, `INSERT INTO tasks(id, text, created_at) VALUES(?, ?, ?)`)
	if err != nil {
		return models.Task{}, err
	}
	defer stmt.Close()

	if _, err := stmt.ExecContext(ctx, task.ID, task.Text, task.CreatedAt); err != nil {
		return models.Task{}, err
	}
	return task, nil
}

// FindAll returns tasks in insertion order.
func (s *SQLiteStore) FindAll(ctx context.Context) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, text, created_at FROM tasks ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]models.Task, 0)
	for rows.Next() {
		var t models.Task
		if err := rows.Scan(&t.ID, &t.Text, &t.CreatedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *SQLiteStore) FindByID(ctx context.Context, id string) (models.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, text, created_at FROM tasks WHERE id = ?`, id)

	var t models.Task
	if err := row.Scan(&t.ID, &t.Text, &t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Task{}, ErrTaskNotFound
		}
		return models.Task{}, err
	}
	return t, nil
}

func (s *SQLiteStore) FindByIDAndDelete(ctx context.Context, id string) (models.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Task{}, err
	}
	defer tx.Rollback()

	var t models.Task
	row := tx.QueryRowContext(ctx, `SELECT id, text, created_at FROM tasks WHERE id = ?`, id)
	if err := row.Scan(&t.ID, &t.Text, &t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Task{}, ErrTaskNotFound
		}
		return models.Task{}, err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return models.Task{}, err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return models.Task{}, ErrTaskNotFound
	}
	if err := tx.Commit(); err != nil {
		return models.Task{}, err
	}
	return t, nil
}
