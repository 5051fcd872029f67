package countries

import (
	"errors"
	"fmt"
)

// ErrNoData means the upstream fetch returned an empty batch; the refresh
// performs no writes in that case.
var ErrNoData = errors.New("no country data fetched")

// ErrNotFound means a lookup or delete referenced a name with no row.
var ErrNotFound = errors.New("country not found")

// ValidationError rejects a fetched record that violates an entity invariant
// before anything is persisted.
type ValidationError struct {
	Name   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid country %q: %s", e.Name, e.Reason)
}
