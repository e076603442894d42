package reactobj

import (
	"fmt"

	"github.com/vango-dev/reactobj/pkg/keypath"
)

// ErrInvalidArgument is returned when a key path argument is malformed or a
// write is missing its value. It is the same error as
// keypath.ErrInvalidArgument, so errors.Is matches either.
var ErrInvalidArgument = keypath.ErrInvalidArgument

// ErrNoValue is returned by SetKey when called without exactly one value.
// It wraps ErrInvalidArgument.
var ErrNoValue = fmt.Errorf("%w: no value to set", ErrInvalidArgument)
