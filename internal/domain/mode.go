package domain

import (
	"encoding/json"
	"fmt"
)

type QueueMode int

const (
	QueueModeManual QueueMode = iota
	QueueModeVote
	QueueModeLoop
	QueueModeDj
)

var queueModeNames = map[QueueMode]string{
	QueueModeManual: "manual",
	QueueModeVote:   "vote",
	QueueModeLoop:   "loop",
	QueueModeDj:     "dj",
}

func (m QueueMode) String() string {
	if name, ok := queueModeNames[m]; ok {
		return name
	}

	return fmt.Sprintf("QueueMode(%d)", int(m))
}

func ParseQueueMode(s string) (QueueMode, error) {
	for mode, name := range queueModeNames {
		if name == s {
			return mode, nil
		}
	}

	return 0, fmt.Errorf("unknown queue mode %q", s)
}

func (m QueueMode) MarshalJSON() ([]byte, error) {
	name, ok := queueModeNames[m]
	if !ok {
		return nil, fmt.Errorf("unknown queue mode %d", int(m))
	}

	return json.Marshal(name)
}

func (m *QueueMode) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}

	mode, err := ParseQueueMode(name)
	if err != nil {
		return err
	}

	*m = mode
	return nil
}

type Role int

const (
	RoleOwner            Role = -1
	RoleUnregisteredUser Role = 0
	RoleRegisteredUser   Role = 1
	RoleTrustedUser      Role = 2
	RoleModerator        Role = 3
	RoleAdministrator    Role = 4
)

var Roles = []Role{
	RoleUnregisteredUser,
	RoleRegisteredUser,
	RoleTrustedUser,
	RoleModerator,
	RoleAdministrator,
	RoleOwner,
}

func (r Role) String() string {
	switch r {
	case RoleOwner:
		return "owner"
	case RoleUnregisteredUser:
		return "unregistered"
	case RoleRegisteredUser:
		return "registered"
	case RoleTrustedUser:
		return "trusted"
	case RoleModerator:
		return "moderator"
	case RoleAdministrator:
		return "administrator"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}
