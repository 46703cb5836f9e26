package users

// Profile is the identity snapshot fetched from the provider at login time.
// It is never mutated locally, only replaced on the next login.
type Profile struct {
	Subject           string `json:"sub"`                          // Stable provider identifier
	Email             string `json:"email,omitempty"`              // User's email address
	Name              string `json:"name,omitempty"`               // Display name
	PreferredUsername string `json:"preferred_username,omitempty"` // Username at the provider
}

// DisplayName picks the friendliest non-empty label for the user.
func (p Profile) DisplayName() string {
	switch {
	case p.Name != "":
		return p.Name
	case p.PreferredUsername != "":
		return p.PreferredUsername
	case p.Email != "":
		return p.Email
	default:
		return p.Subject
	}
}
