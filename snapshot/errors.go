package snapshot

import "fmt"

var (
	// ErrNotFound is returned when a snapshot for the given namespace / id
	// pair does not exist in the underlying store.
	ErrNotFound = fmt.Errorf("snapshot not found")
)
