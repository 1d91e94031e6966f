package browse

import (
	"errors"
	"fmt"
)

// ErrReadOnly is returned when a delete is dispatched against a view that
// offers no row actions.
var ErrReadOnly = errors.New("view is read-only")

// UnknownViewError is returned when a view name or key is not known to the store.
type UnknownViewError struct {
	Name string
}

func (e *UnknownViewError) Error() string {
	return fmt.Sprintf("unknown view %q", e.Name)
}
