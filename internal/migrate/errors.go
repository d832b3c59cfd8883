// Defines the error taxonomy of a migration run.

package migrate

import (
	"errors"
	"fmt"

	"github.com/maruel/bookshelf/internal/notion"
)

// ErrUnknownCategory is wrapped by ConfigurationError when a row's category
// has no registered destination schema.
var ErrUnknownCategory = errors.New("unknown category")

// ErrUnknownYear is wrapped by ConfigurationError when a year label has no
// relation target.
var ErrUnknownYear = errors.New("unknown year label")

// ConfigurationError is fatal. It is always detected before the first page is
// created or updated.
type ConfigurationError struct {
	What string
	Err  error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %v", e.What, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// LookupFailure records an enrichment lookup that errored or returned nothing.
// It is logged and never aborts a run.
type LookupFailure struct {
	Field    string
	Provider string
	Err      error
}

func (e *LookupFailure) Error() string {
	return fmt.Sprintf("%s lookup via %s: %v", e.Field, e.Provider, e.Err)
}

func (e *LookupFailure) Unwrap() error {
	return e.Err
}

// responseBody returns the raw API response carried by err, or its message.
func responseBody(err error) string {
	var apiErr *notion.Error
	if errors.As(err, &apiErr) && apiErr.Body != "" {
		return apiErr.Body
	}
	return err.Error()
}

// CreateFailure records a rejected create call. The source row is left
// unmarked so a later run picks it up again.
type CreateFailure struct {
	SourceID string
	// Body is the raw API response.
	Body string
	Err  error
}

func (e *CreateFailure) Error() string {
	return fmt.Sprintf("create %s failed: %s", e.SourceID, e.Body)
}

func (e *CreateFailure) Unwrap() error {
	return e.Err
}

// UpdateFailure records a failed "mark transferred" call after a successful
// create. A later run will create a duplicate unless the row is marked by hand.
type UpdateFailure struct {
	SourceID  string
	CreatedID string
	Err       error
}

func (e *UpdateFailure) Error() string {
	return fmt.Sprintf("marking %s transferred (created %s) failed: %v", e.SourceID, e.CreatedID, e.Err)
}

func (e *UpdateFailure) Unwrap() error {
	return e.Err
}
