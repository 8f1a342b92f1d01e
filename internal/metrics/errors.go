package metrics

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownCollector = errors.New("unknown collector")
	errNoMemoryStat     = errors.New("no memory statistics")
)

// ReadError marks a failed OS query. The sampler treats it as transient.
type ReadError struct {
	Source string
	Err    error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Source, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

func readErr(source string, err error) error {
	return &ReadError{Source: source, Err: err}
}
