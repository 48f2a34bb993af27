package core

import "github.com/google/uuid"

// NewID generates a unique identifier for tasks and sessions.
func NewID() string { return uuid.NewString() }
