// internal/perks/errors.go
package perks

import "errors"

// Domain errors
var (
	ErrInactiveMember   = errors.New("member is not active")
	ErrNoPerksAvailable = errors.New("no perks available")
	ErrMemberNotFound   = errors.New("member not found")
)
