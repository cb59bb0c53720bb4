package loader

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// ReferentialError reports that a reading's dimension rows could not be
// resolved, so no fact row can reference them.
type ReferentialError struct {
	EvtID     string
	Dimension string
	Err       error
}

func (e *ReferentialError) Error() string {
	return fmt.Sprintf("failed to resolve %s dimension for event %s: %v", e.Dimension, e.EvtID, e.Err)
}

func (e *ReferentialError) Unwrap() error {
	return e.Err
}

// ConcurrencyError reports that a load kept losing to concurrent writers
// after exhausting its retries.
type ConcurrencyError struct {
	EvtID    string
	Attempts int
	Err      error
}

func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("load of event %s conflicted %d times: %v", e.EvtID, e.Attempts, e.Err)
}

func (e *ConcurrencyError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the error is a transient conflict worth
// retrying locally: a Postgres serialization failure or deadlock.
func IsRetryable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return false
}
