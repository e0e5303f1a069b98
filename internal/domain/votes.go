package domain

import (
	"slices"

	"golang.org/x/exp/maps"
)

// Votes maps a video key to the set of client ids voting for it.
type Votes map[string]map[string]struct{}

func NewVotes() Votes {
	return make(Votes)
}

// Set adds or removes the vote of clientID for key. Repeating a vote is a no-op.
func (v Votes) Set(key, clientID string, add bool) {
	voters, ok := v[key]
	if !ok {
		voters = make(map[string]struct{})
		v[key] = voters
	}

	if add {
		voters[clientID] = struct{}{}
	} else {
		delete(voters, clientID)
	}
}

func (v Votes) Count(key string) int {
	return len(v[key])
}

// Voters returns the sorted client ids voting for key.
func (v Votes) Voters(key string) []string {
	voters := maps.Keys(v[key])
	slices.Sort(voters)
	return voters
}

// Prune drops every key not present in keep.
func (v Votes) Prune(keep map[string]struct{}) {
	maps.DeleteFunc(v, func(key string, _ map[string]struct{}) bool {
		_, ok := keep[key]
		return !ok
	})
}

// AsLists is the serializable form of the votes.
func (v Votes) AsLists() map[string][]string {
	out := make(map[string][]string, len(v))
	for key := range v {
		out[key] = v.Voters(key)
	}

	return out
}

func VotesFromLists(lists map[string][]string) Votes {
	v := NewVotes()
	for key, voters := range lists {
		for _, clientID := range voters {
			v.Set(key, clientID, true)
		}
	}

	return v
}
