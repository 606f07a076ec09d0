package query

import (
	"errors"
	"fmt"
)

var (
	// ErrNoData means the dataset could not be obtained. It wraps the
	// underlying *housewatch.FetchError.
	ErrNoData = errors.New("no data")
	// ErrMalformedRecord matches any *MalformedRecordError.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrInvalidLimit is returned for a limit below one.
	ErrInvalidLimit = errors.New("limit must be at least 1")
	// ErrMissingDate is returned by ParseDate for an absent date.
	ErrMissingDate = errors.New("missing transaction date")
)

// MalformedRecordError reports a record whose transaction date could not be
// parsed while ordering. Index is the record's position in the filtered set.
type MalformedRecordError struct {
	Index          int
	Representative string
	Date           string
	Err            error
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record %d (%s): transaction date %q: %v",
		e.Index, e.Representative, e.Date, e.Err)
}

func (e *MalformedRecordError) Unwrap() error {
	return e.Err
}

func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}
