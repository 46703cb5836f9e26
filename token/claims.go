package token

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/jrsteele09/newsfeed-auth/users"
)

// Claims are carried by application access tokens.
type Claims struct {
	jwt.RegisteredClaims
	Email             string `json:"email,omitempty"`
	Name              string `json:"name,omitempty"`
	PreferredUsername string `json:"preferred_username,omitempty"`
}

// Profile returns the identity snapshot the token was issued for.
func (c *Claims) Profile() users.Profile {
	return users.Profile{
		Subject:           c.Subject,
		Email:             c.Email,
		Name:              c.Name,
		PreferredUsername: c.PreferredUsername,
	}
}
