package session

// UserRecord is the normalized identity and authorization data of the
// logged-in principal, in the shape it is persisted in.
//
// Permissions are derived once at login time from the role/level and cached
// here; they are not re-derived when the role changes server-side.
type UserRecord struct {
	ID             string   `json:"id"`
	Username       string   `json:"username"`
	Email          string   `json:"email"`
	FullName       string   `json:"full_name"`
	IsAdmin        bool     `json:"is_admin"`
	AdminLevel     string   `json:"admin_level,omitempty"`
	MembershipTier string   `json:"membership_tier,omitempty"`
	Permissions    []string `json:"permissions"`
}

// Valid reports whether the record carries an identity.
func (u UserRecord) Valid() bool {
	return u.ID != "" || u.Username != ""
}

// Clone returns a deep copy so callers cannot mutate a cached record.
func (u UserRecord) Clone() UserRecord {
	out := u
	if u.Permissions != nil {
		out.Permissions = make([]string, len(u.Permissions))
		copy(out.Permissions, u.Permissions)
	}
	return out
}

// Credential is the persisted pair.
type Credential struct {
	Token string
	User  UserRecord
}

// Empty reports whether the credential holds nothing usable.
func (c Credential) Empty() bool {
	return c.Token == "" || !c.User.Valid()
}

// Keys names the two storage keys of a credential.
type Keys struct {
	Token string
	User  string
}

var (
	// AdminKeys is the layout used by the internal admin portal.
	AdminKeys = Keys{Token: "admin_token", User: "admin_user"}
	// MemberKeys is the layout used by the customer-facing product.
	MemberKeys = Keys{Token: "token", User: "user"}
)
