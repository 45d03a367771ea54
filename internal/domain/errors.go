package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDate reports a malformed date or an out-of-range month.
	ErrInvalidDate = errors.New("invalid date")
	// ErrInvalidContractMonth reports a contract month outside the supported range.
	ErrInvalidContractMonth = errors.New("invalid contract month")
	// ErrInvalidInstrument reports an instrument that cannot be planned.
	ErrInvalidInstrument = errors.New("invalid instrument")
)

// TransportError is an upstream request failure for one work item.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transport %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("transport %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// WriteError is a filesystem failure for one partition.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write partition %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
