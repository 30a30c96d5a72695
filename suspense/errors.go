package suspense

import "errors"

// ErrUnknownDefinition is returned by Loader for names other than Name.
var ErrUnknownDefinition = errors.New("unknown definition")
