package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidParameter   = errors.New("invalid parameter")
	ErrDivisionByZero     = errors.New("division by zero")
	ErrStructuralMismatch = errors.New("structural mismatch")
	ErrNotFound           = errors.New("not found")
)

// ParamError names the offending parameter.
type ParamError struct {
	Param string
	Value any
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("invalid parameter %s=%v", e.Param, e.Value)
}

func (e *ParamError) Unwrap() error { return ErrInvalidParameter }

// MismatchError lists group or leaf keys present on only one side of a
// comparison, and leaves that appear more than once within a group.
type MismatchError struct {
	MissingLeft  []string `json:"missing_left"`
	MissingRight []string `json:"missing_right"`
	Duplicated   []string `json:"duplicated,omitempty"`
}

func (e *MismatchError) Error() string {
	msg := fmt.Sprintf("structural mismatch: missing on left [%s], missing on right [%s]",
		strings.Join(e.MissingLeft, ", "), strings.Join(e.MissingRight, ", "))
	if len(e.Duplicated) > 0 {
		msg += fmt.Sprintf(", duplicated [%s]", strings.Join(e.Duplicated, ", "))
	}
	return msg
}

func (e *MismatchError) Unwrap() error { return ErrStructuralMismatch }
