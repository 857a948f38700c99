package model

import (
	"sort"

	"github.com/samber/lo"
)

// AccountID is the numeric id (pk) of an Instagram account.
type AccountID int64

// FollowingProfile is the part of a follow-graph record needed to render a report.
type FollowingProfile struct {
	ID       AccountID `json:"id"`
	Username string    `json:"username"`
}

// IDSet is a set of account ids.
type IDSet map[AccountID]struct{}

func NewIDSet(ids ...AccountID) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// IDSetFromProfiles collects the ids of the given profiles.
func IDSetFromProfiles(profiles []FollowingProfile) IDSet {
	return NewIDSet(lo.Map(profiles, func(p FollowingProfile, _ int) AccountID { return p.ID })...)
}

func (s IDSet) Has(id AccountID) bool {
	_, ok := s[id]
	return ok
}

func (s IDSet) Len() int { return len(s) }

// Sorted returns the members in ascending order.
func (s IDSet) Sorted() []AccountID {
	out := lo.Keys(s)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Equal reports whether both sets hold the same members.
func (s IDSet) Equal(other IDSet) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if !other.Has(id) {
			return false
		}
	}
	return true
}

// Difference returns the members of s that are not in other.
func (s IDSet) Difference(other IDSet) IDSet {
	out := make(IDSet)
	for id := range s {
		if !other.Has(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

// Unfollowers returns the accounts that are followed but do not follow back.
func Unfollowers(followers, followings []FollowingProfile) IDSet {
	return IDSetFromProfiles(followings).Difference(IDSetFromProfiles(followers))
}

// DiffNew returns the accounts present in current but absent from known.
// "known" is the set recorded by the last successful inspection, so an account
// that re-follows and then unfollows again is reported as new a second time.
func DiffNew(known, current IDSet) IDSet {
	return current.Difference(known)
}
