package regmap

import (
	"errors"
	"fmt"
)

var (
	ErrSchema        = errors.New("malformed register listing")
	ErrReference     = errors.New("undefined reference")
	ErrOverlap       = errors.New("field bit overlap")
	ErrBounds        = errors.New("field span out of register bounds")
	ErrWidth         = errors.New("value does not fit bit width")
	ErrNameCollision = errors.New("duplicate name")
)

type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return "unknown"
	}
}

// Diagnostic is a single validation finding. Errors abort generation for the
// register that carries them; warnings never block.
type Diagnostic struct {
	Severity Severity
	Register string
	Field    string
	Err      error
}

func (d Diagnostic) String() string {
	where := d.Register
	if d.Field != "" {
		where += "." + d.Field
	}
	return fmt.Sprintf("%s: %s: %v", d.Severity, where, d.Err)
}

type Diagnostics []Diagnostic

// Errors returns only the error-severity diagnostics.
func (ds Diagnostics) Errors() Diagnostics {
	var out Diagnostics
	for _, d := range ds {
		if d.Severity == SeverityError {
			out = append(out, d)
		}
	}
	return out
}

// Warnings returns only the warning-severity diagnostics.
func (ds Diagnostics) Warnings() Diagnostics {
	var out Diagnostics
	for _, d := range ds {
		if d.Severity == SeverityWarning {
			out = append(out, d)
		}
	}
	return out
}

// FailedRegisters returns the names of registers that carry at least one
// error diagnostic.
func (ds Diagnostics) FailedRegisters() map[string]bool {
	failed := map[string]bool{}
	for _, d := range ds {
		if d.Severity == SeverityError {
			failed[d.Register] = true
		}
	}
	return failed
}
