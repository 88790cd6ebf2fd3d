package rbac

import "errors"

// ErrUnknownRole is returned by ParseRole for names outside the role enumeration.
var ErrUnknownRole = errors.New("unknown role")
