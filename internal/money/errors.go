package money

import (
	"errors"
	"strconv"
)

var ErrMalformed = errors.New("malformed money literal")

// ParseError reports a literal that is not "<int>" or "<int>.<1-2 digits>".
type ParseError struct {
	Literal string
	Reason  string
}

func (e *ParseError) Error() string {
	return "money: parse " + strconv.Quote(e.Literal) + ": " + e.Reason
}

func (e *ParseError) Unwrap() error { return ErrMalformed }
