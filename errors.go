package articulated

import (
	"errors"
	"fmt"
)

var (
	// ErrTraversalLimit is returned when a tree walk needs more stack entries
	// than Config.MaxTraversal allows.
	ErrTraversalLimit = errors.New("articulated: traversal limit exceeded")

	// ErrDiscoveryLimit is returned when joint discovery queues more bodies
	// than Config.MaxDiscovery allows.
	ErrDiscoveryLimit = errors.New("articulated: discovery queue limit exceeded")

	// ErrInvalidConfig wraps every config validation failure.
	ErrInvalidConfig = errors.New("articulated: invalid config")
)

// assert panics when a caller contract is broken. These are integration bugs,
// not runtime conditions.
func assert(truth bool, msg ...any) {
	if !truth {
		panic(fmt.Sprint("articulated: assertion failed: ", fmt.Sprint(msg...)))
	}
}
