package remote

import (
	"errors"

	"github.com/dmitrijs2005/containertracker/internal/common"
)

var (
	ErrUnavailable = errors.New("server unavailable")
	// ErrUnauthorized is common.ErrUnauthorized so callers that do not know
	// this package can still tell a rejected session apart.
	ErrUnauthorized = common.ErrUnauthorized
	ErrRejected     = errors.New("request rejected")
	ErrRateLimited  = errors.New("too many attempts")
	ErrNotFound     = common.ErrNotFound
)
