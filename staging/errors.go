package staging

import "fmt"

var (
	// ErrNotFound is returned when no artifact exists for the given session /
	// key pair. Reading an unknown key is a caller-contract violation, not a
	// user-facing condition.
	ErrNotFound = fmt.Errorf("staged artifact not found")
)
