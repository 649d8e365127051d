package assets

import (
	"errors"
	"fmt"
)

// ErrAssetDecode is matched by every DecodeError.
var ErrAssetDecode = errors.New("asset decode failed")

// DecodeError reports an asset that could not be read or is not valid
// UTF-8 text.
type DecodeError struct {
	Name  string
	Cause error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("asset %s: decode failed", e.Name)
	}
	return fmt.Sprintf("asset %s: %v", e.Name, e.Cause)
}

// Unwrap returns the underlying error.
func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *DecodeError) Is(target error) bool {
	return target == ErrAssetDecode
}
