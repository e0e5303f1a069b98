package domain

import (
	"errors"
	"slices"
)

var ErrMemberNotFound = errors.New("member not found")

type Member struct {
	ClientID string `json:"clientId"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	Token    string `json:"-"`
}

// Members is the set of connected viewers keyed by client id.
type Members struct {
	list []Member
}

func NewMembers(list ...Member) *Members {
	return &Members{list: slices.Clone(list)}
}

func (m *Members) Length() int {
	return len(m.list)
}

func (m *Members) AsList() []Member {
	return slices.Clone(m.list)
}

func (m *Members) GetByClientID(clientID string) (Member, int, error) {
	for index, member := range m.list {
		if member.ClientID == clientID {
			return member, index, nil
		}
	}

	return Member{}, 0, ErrMemberNotFound
}

// Upsert adds member or replaces the entry with the same client id. It reports
// whether the member is new.
func (m *Members) Upsert(member Member) bool {
	if _, index, err := m.GetByClientID(member.ClientID); err == nil {
		m.list[index] = member
		return false
	}

	m.list = append(m.list, member)
	return true
}

func (m *Members) RemoveByClientID(clientID string) (Member, error) {
	member, index, err := m.GetByClientID(clientID)
	if err != nil {
		return Member{}, err
	}

	m.list = slices.Delete(m.list, index, index+1)
	return member, nil
}

func (m *Members) ClientIDs() []string {
	ids := make([]string, 0, len(m.list))
	for _, member := range m.list {
		ids = append(ids, member.ClientID)
	}

	return ids
}
