package copc

import (
	"fmt"

	"github.com/pkg/errors"

	"go.viam.com/copc/hierarchy"
)

// ErrClosed is returned by every operation of a closed Reader.
var ErrClosed = errors.New("copc reader is closed")

// InvalidNodeError is returned when a node known to be invalid is passed to an operation that
// reads point data.
type InvalidNodeError struct {
	Op string
}

func (e *InvalidNodeError) Error() string {
	return fmt.Sprintf("%s: invalid node", e.Op)
}

// NewInvalidNodeError returns an InvalidNodeError for op.
func NewInvalidNodeError(op string) error {
	return &InvalidNodeError{Op: op}
}

// IsInvalidNodeError returns whether err is or wraps an InvalidNodeError.
func IsInvalidNodeError(err error) bool {
	var target *InvalidNodeError
	return errors.As(err, &target)
}

// IsCorruptIndex returns whether err is caused by a malformed hierarchy page.
func IsCorruptIndex(err error) bool {
	return hierarchy.IsCorruptIndex(err)
}
