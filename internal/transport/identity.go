package transport

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// ID accepts both numeric and string identifiers.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// Identity is the user object embedded in login and profile responses.
type Identity struct {
	ID             ID     `json:"id"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	FullName       string `json:"full_name"`
	IsSuperAdmin   bool   `json:"is_super_admin"`
	MembershipTier string `json:"membership_tier"`
	IsActive       *bool  `json:"is_active,omitempty"`
}

// Valid reports whether the identity names a user.
func (i Identity) Valid() bool {
	return i.ID != "" || i.Username != ""
}

// LoginResponse is a successful login.
type LoginResponse struct {
	AccessToken string
	TokenType   string
	Identity    Identity
}
