package morpho

import "errors"

// ErrNotFound indicates the API returned no record for an exact-key lookup.
var ErrNotFound = errors.New("not found")
