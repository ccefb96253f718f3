package domain

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Vote is a voter's single current suspicion. TargetID is nil when the voter
// has no active vote.
type Vote struct {
	VoterID   uuid.UUID  `json:"voterId"`
	TargetID  *uuid.UUID `json:"targetId"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// VoteDetail is a vote row joined with both usernames, for game masters.
type VoteDetail struct {
	VoterID        uuid.UUID  `json:"voterId"`
	VoterUsername  string     `json:"voterUsername"`
	TargetID       *uuid.UUID `json:"targetId"`
	TargetUsername *string    `json:"targetUsername"`
}

// SuspicionEntry is one row of the suspicion tally.
type SuspicionEntry struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Symbol    string    `json:"symbol"`
	Avatar    string    `json:"avatar"`
	VoteCount int       `json:"voteCount"`
}

// TallySuspicion counts how many votes currently target each user and ranks
// the result by count descending, then username ascending ignoring case.
// Users nobody votes for are included with a zero count.
func TallySuspicion(users []User, votes []Vote) []SuspicionEntry {
	counts := make(map[uuid.UUID]int, len(users))
	for _, v := range votes {
		if v.TargetID != nil {
			counts[*v.TargetID]++
		}
	}

	entries := make([]SuspicionEntry, 0, len(users))
	for _, u := range users {
		entries = append(entries, SuspicionEntry{
			ID:        u.ID,
			Username:  u.Username,
			Symbol:    u.Symbol,
			Avatar:    u.Avatar,
			VoteCount: counts[u.ID],
		})
	}
	SortSuspicion(entries)
	return entries
}

// SortSuspicion orders entries by VoteCount desc, then username case-insensitively.
func SortSuspicion(entries []SuspicionEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].VoteCount != entries[j].VoteCount {
			return entries[i].VoteCount > entries[j].VoteCount
		}
		return strings.ToLower(entries[i].Username) < strings.ToLower(entries[j].Username)
	})
}
