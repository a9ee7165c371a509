package git

import (
	bisecterrors "github.com/mrz1836/rustbisect/internal/errors"
)

// ErrOracleUnavailable is re-exported from internal/errors for convenience.
// Use errors.Is(err, ErrOracleUnavailable) to check for git command failures.
var ErrOracleUnavailable = bisecterrors.ErrOracleUnavailable

// ErrRepoCloneFailed is re-exported from internal/errors for convenience.
// Returned when the local first-parent clone cannot be created or updated.
var ErrRepoCloneFailed = bisecterrors.ErrRepoCloneFailed
