package evloop

import "errors"

// errBackendUnsupported is returned by a platform-specific constructor when
// that backend isn't available on the current GOOS, so newBackend falls
// through to the next one in priority order instead of failing outright.
var errBackendUnsupported = errors.New("evloop: backend unsupported on this platform")
