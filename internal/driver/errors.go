package driver

import (
	"errors"
	"fmt"
)

var (
	errArity          = errors.New("wrong number of arguments")
	errUnknownCommand = errors.New("unknown command")
)

type LineError struct {
	Line    int
	Command string
	Err     error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %s: %v", e.Line, e.Command, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }
