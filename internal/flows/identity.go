package flows

import (
	"strings"

	"github.com/MrEthical07/goAuthClient/internal/transport"
	"github.com/MrEthical07/goAuthClient/permission"
	"github.com/MrEthical07/goAuthClient/session"
)

// NormalizeIdentity turns a server identity into the cached user record and
// derives its permissions from table. admin selects the admin portal policy;
// otherwise the membership tier policy applies.
func NormalizeIdentity(ident transport.Identity, admin bool, table *permission.Table) session.UserRecord {
	rec := session.UserRecord{
		ID:       string(ident.ID),
		Username: strings.TrimSpace(ident.Username),
		Email:    strings.TrimSpace(ident.Email),
		FullName: strings.TrimSpace(ident.FullName),
		IsAdmin:  admin,
	}

	if admin {
		level, set := table.ForAdmin(ident.IsSuperAdmin)
		rec.AdminLevel = level
		rec.Permissions = set.Names()
		return rec
	}

	tier, set := table.ForTier(ident.MembershipTier)
	rec.MembershipTier = tier
	rec.Permissions = set.Names()
	return rec
}
