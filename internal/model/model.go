package model

import (
	"fmt"

	"github.com/google/uuid"
)

// InvocationID correlates the log lines of one handler invocation.
// Inside Lambda it is the AWS request id; elsewhere a generated UUIDv7.
type InvocationID string

// NewInvocationID returns a fresh UUIDv7 based id.
func NewInvocationID() InvocationID {
	id, err := uuid.NewV7()
	if err != nil {
		// NewV7 only fails when the random source does.
		return InvocationID(uuid.NewString())
	}
	return InvocationID(id.String())
}

// String returns the invocation ID as a string.
func (i InvocationID) String() string {
	return string(i)
}

// RunID represents a UUIDv7 identifier of one sweep run.
type RunID string

// Validate checks that the RunID is a valid UUIDv7.
func (r RunID) Validate() error {
	if r == "" {
		return fmt.Errorf("run-id cannot be empty")
	}
	id, err := uuid.Parse(string(r))
	if err != nil {
		return fmt.Errorf("run-id must be a valid UUID: %w", err)
	}
	if id.Version() != uuid.Version(7) {
		return fmt.Errorf("run-id must be a UUIDv7, got v%d", id.Version())
	}
	return nil
}

// String returns the run ID as a string.
func (r RunID) String() string {
	return string(r)
}
