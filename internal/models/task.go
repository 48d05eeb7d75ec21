package models

import "time"

// Task is a short text record, created directly or from a transcript.
type Task struct {
	ID        string    `json:"id" example:"6650c1f2a8b4c3d2e1f00a11"`
	Text      string    `json:"text" example:"buy milk on the way home"`
	CreatedAt time.Time `json:"createdAt" example:"2024-05-24T10:15:30Z"`
}
