package identity

import (
	"strings"

	"github.com/foodstand/guestkit/internal/auth"
	"github.com/foodstand/guestkit/internal/model"
)

// Resolve pairs the guest identifier with an optional signed-in user.
// A token that cannot be read leaves the principal anonymous; the guest id
// is always kept so carts started as a guest can be merged by the backend.
func Resolve(guestID, token string) model.Principal {
	p := model.Principal{GuestID: guestID}

	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return p
	}

	sub, err := auth.SubjectFromToken(token)
	if err != nil {
		return p
	}
	p.UserID = sub
	p.Token = token
	return p
}
