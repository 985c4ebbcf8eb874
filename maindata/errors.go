package maindata

import (
	"errors"
	"fmt"
)

// Errors reported by parsing and merging. Typed errors below wrap one of these,
// so callers can match with errors.Is.
var (
	// ErrMalformedPayload is returned when a required key is missing or a key
	// holds a value of the wrong type.
	ErrMalformedPayload = errors.New("malformed sync payload")

	// ErrSchemaMismatch is returned when the categories key has an unrecognized shape.
	ErrSchemaMismatch = errors.New("unrecognized categories schema")

	// ErrFullSyncRequired is returned when a delta arrives without a baseline mirror.
	ErrFullSyncRequired = errors.New("full sync required")

	// ErrStaleSnapshot is returned when a snapshot's response id is not newer
	// than the mirror's.
	ErrStaleSnapshot = errors.New("stale snapshot")
)

type (
	// MalformedPayloadError describes the offending key of a rejected payload.
	MalformedPayloadError struct {
		Key    string
		Reason string
	}

	// SchemaMismatchError describes why the categories value was rejected.
	SchemaMismatchError struct {
		Path   string
		Reason string
	}

	// StaleSnapshotError carries the cursors that were compared.
	StaleSnapshotError struct {
		Current  int64
		Received int64
	}
)

func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("malformed sync payload: key %q: %s", e.Key, e.Reason)
}

func (e *MalformedPayloadError) Unwrap() error {
	return ErrMalformedPayload
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("unrecognized categories schema at %s: %s", e.Path, e.Reason)
}

func (e *SchemaMismatchError) Unwrap() error {
	return ErrSchemaMismatch
}

func (e *StaleSnapshotError) Error() string {
	return fmt.Sprintf("stale snapshot: rid %d is not newer than %d", e.Received, e.Current)
}

func (e *StaleSnapshotError) Unwrap() error {
	return ErrStaleSnapshot
}

// RequiresFullSync reports whether err means incremental polling cannot
// continue until a full snapshot (rid=0) has been applied. A stale snapshot
// does not require one.
func RequiresFullSync(err error) bool {
	return errors.Is(err, ErrMalformedPayload) ||
		errors.Is(err, ErrSchemaMismatch) ||
		errors.Is(err, ErrFullSyncRequired)
}
