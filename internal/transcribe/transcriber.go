/**
* Name: 			transcriber.go
* Description: 		Speech-to-text collaborator contract shared by all providers
* Workflow: 		staged audio path + fixed options -> channels/alternatives result
 */

package transcribe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrMalformedResult means the provider answered without the
	// channels[0].alternatives[0] structure.
	ErrMalformedResult = errors.New("transcription result is malformed")
	ErrCircuitOpen     = errors.New("transcription circuit is open")
)

// Audio points at a staged upload on local disk. Backends reopen the
// path on every attempt so retries never see a half-consumed stream.
type Audio struct {
	Path     string
	MimeType string
}

type Options struct {
	Model       string
	Language    string
	SmartFormat bool
}

type Result struct {
	RequestID string   `json:"request_id,omitempty"`
	Results   *Results `json:"results"`
}

type Results struct {
	Channels []Channel `json:"channels"`
}

type Channel struct {
	Alternatives []Alternative `json:"alternatives"`
}

type Alternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

// Transcript returns the first alternative of the first channel.
func (r *Result) Transcript() (string, error) {
	if r == nil || r.Results == nil {
		return "", ErrMalformedResult
	}
	if len(r.Results.Channels) == 0 || len(r.Results.Channels[0].Alternatives) == 0 {
		return "", ErrMalformedResult
	}
	return r.Results.Channels[0].Alternatives[0].Transcript, nil
}

type Transcriber interface {
	Transcribe(ctx context.Context, audio Audio, opts Options) (*Result, error)
}

// APIError is a non-success answer from a provider.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Temporary reports whether the same request may succeed later.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// badInput reports whether the provider rejected the audio itself,
// which says nothing about the provider's health.
func (e *APIError) badInput() bool {
	switch e.StatusCode {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge,
		http.StatusUnsupportedMediaType, http.StatusUnprocessableEntity:
		return true
	}
	return false
}
