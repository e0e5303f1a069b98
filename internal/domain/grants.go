package domain

import (
	"fmt"
	"strings"
)

// Permission is a single bit of a grant mask.
type Permission uint32

const (
	PermissionPlayPause Permission = 1 << iota
	PermissionSeek
	PermissionSkip
	PermissionAddToQueue
	PermissionRemoveFromQueue
	PermissionReorderQueue
	PermissionPlayNow
	PermissionVote
	PermissionConfigureRoom

	permissionAll = PermissionConfigureRoom<<1 - 1
)

var permissionNames = map[string]Permission{
	"playback.play-pause":   PermissionPlayPause,
	"playback.seek":         PermissionSeek,
	"playback.skip":         PermissionSkip,
	"manage-queue.add":      PermissionAddToQueue,
	"manage-queue.remove":   PermissionRemoveFromQueue,
	"manage-queue.order":    PermissionReorderQueue,
	"manage-queue.play-now": PermissionPlayNow,
	"manage-queue.vote":     PermissionVote,
	"configure-room.other":  PermissionConfigureRoom,
}

// ParseIntoGrantMask builds a mask from permission names. "*" grants every bit.
func ParseIntoGrantMask(names []string) (Permission, error) {
	var mask Permission
	for _, name := range names {
		if name == "*" {
			mask |= permissionAll
			continue
		}

		perm, ok := permissionNames[strings.TrimSpace(name)]
		if !ok {
			return 0, fmt.Errorf("unknown permission %q", name)
		}
		mask |= perm
	}

	return mask, nil
}

// MustParseIntoGrantMask is ParseIntoGrantMask for static tables.
func MustParseIntoGrantMask(names ...string) Permission {
	mask, err := ParseIntoGrantMask(names)
	if err != nil {
		panic(err)
	}

	return mask
}

// Grants maps a role to its permission mask. A role holds exactly the bits set
// for it; nothing is inherited from other roles.
type Grants map[Role]Permission

func NewGrants() Grants {
	return make(Grants)
}

// DefaultGrants is the table new rooms start with.
func DefaultGrants() Grants {
	member := MustParseIntoGrantMask(
		"playback.play-pause",
		"playback.seek",
		"playback.skip",
		"manage-queue.add",
		"manage-queue.remove",
		"manage-queue.order",
		"manage-queue.play-now",
		"manage-queue.vote",
	)

	return Grants{
		RoleUnregisteredUser: member,
		RoleRegisteredUser:   member,
		RoleTrustedUser:      member | PermissionConfigureRoom,
		RoleModerator:        permissionAll,
		RoleAdministrator:    permissionAll,
		RoleOwner:            permissionAll,
	}
}

func (g Grants) SetRoleGrants(role Role, mask Permission) {
	g[role] = mask
}

func (g Grants) HasPermission(role Role, perm Permission) bool {
	return g[role]&perm == perm
}

func (g Grants) Clone() Grants {
	c := make(Grants, len(g))
	for role, mask := range g {
		c[role] = mask
	}

	return c
}
