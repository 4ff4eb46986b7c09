package discord

import "strconv"

const (
	PermAdministrator uint64 = 0x8
	PermManageGuild   uint64 = 0x20
)

// ParsePermissions decodes the decimal-string permission field as
// uint64. Float parsing would silently corrupt fields above 53 bits.
func ParsePermissions(s string) uint64 {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// CanManageGuild requires MANAGE_GUILD; ADMINISTRATOR alone does not
// satisfy it. Kept asymmetric with CanInviteBot on purpose.
func CanManageGuild(permissions string) bool {
	return ParsePermissions(permissions)&PermManageGuild == PermManageGuild
}

func CanInviteBot(permissions string) bool {
	p := ParsePermissions(permissions)
	return p&PermAdministrator == PermAdministrator || p&PermManageGuild == PermManageGuild
}
