package database

import "github.com/cockroachdb/errors"

// Plan-construction failures. Every operator and plan node constructor wraps
// one of these so callers can test the category with errors.Is.
var (
	ErrDuplicateColumn    = errors.New("duplicate column")
	ErrReservedColumn     = errors.New("reserved column misplaced")
	ErrMissingTimeColumns = errors.New("missing time columns")
	ErrUnknownColumn      = errors.New("unknown column")
	ErrTypeMismatch       = errors.New("type mismatch")
	ErrNotKeyColumn       = errors.New("not a key column")
	ErrJoinColumns        = errors.New("invalid join columns")
	ErrUnsupportedType    = errors.New("unsupported type")
	ErrInvalidTable       = errors.New("invalid table data")
	ErrUnsorted           = errors.New("input not sorted as required")
)

func badAccess(format string, args ...interface{}) {
	panic(errors.AssertionFailedf(format, args...))
}
