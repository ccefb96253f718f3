package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/traitors/server/internal/domain"
)

func TestCast_ReplacesPreviousVote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")
	carol := f.register(t, "carol")

	res, err := f.votes.Cast(ctx, alice, CastVoteInput{TargetID: bob.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, res.VoterID)
	assert.Equal(t, bob.ID, res.TargetID)

	_, err = f.votes.Cast(ctx, alice, CastVoteInput{TargetID: carol.ID.String()})
	require.NoError(t, err)

	votes, err := f.store.Votes.List(ctx)
	require.NoError(t, err)
	active := 0
	for _, v := range votes {
		if v.VoterID == alice.ID && v.TargetID != nil {
			active++
			assert.Equal(t, carol.ID, *v.TargetID)
		}
	}
	assert.Equal(t, 1, active, "a voter has at most one active target")
	assert.Contains(t, f.pub.Topics(), "traitors.vote.cast")
}

func TestCast_Rejections(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice")
	f.register(t, "bob")
	gm := f.registerGM(t, "host")

	tests := []struct {
		name     string
		voter    *domain.User
		target   string
		wantCode string
		wantMsg  string
	}{
		{"self vote", alice, alice.ID.String(), "VALIDATION_ERROR", "you cannot vote for yourself"},
		{"malformed id", alice, "not-a-uuid", "VALIDATION_ERROR", "targetId must be a valid id"},
		{"missing id", alice, "", "VALIDATION_ERROR", "targetId is required"},
		{"unknown target", alice, uuid.NewString(), "NOT_FOUND", ""},
		{"game master", gm, alice.ID.String(), "FORBIDDEN", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.votes.Cast(context.Background(), tt.voter, CastVoteInput{TargetID: tt.target})
			appErr := requireAppError(t, err, tt.wantCode)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, appErr.Message)
			}
		})
	}
}

func TestSelfVoteAlwaysFails(t *testing.T) {
	f := newFixture(t)
	for _, name := range []string{"alice", "bob", "carol", "dave"} {
		u := f.register(t, name)
		_, err := f.votes.Cast(context.Background(), u, CastVoteInput{TargetID: u.ID.String()})
		requireAppError(t, err, "VALIDATION_ERROR")
	}
}

func TestTally_CountsAndOrdering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "Bob")
	carol := f.register(t, "carol")
	dave := f.register(t, "dave")

	cast := func(voter, target *domain.User) {
		_, err := f.votes.Cast(ctx, voter, CastVoteInput{TargetID: target.ID.String()})
		require.NoError(t, err)
	}
	cast(alice, carol)
	cast(bob, carol)
	cast(carol, dave)
	cast(dave, bob)

	tally, err := f.votes.Tally(ctx)
	require.NoError(t, err)
	require.Len(t, tally, 4)

	got := make([]string, len(tally))
	counts := map[string]int{}
	for i, e := range tally {
		got[i] = e.Username
		counts[e.Username] = e.VoteCount
	}
	assert.Equal(t, []string{"carol", "Bob", "dave", "alice"}, got)
	assert.Equal(t, map[string]int{"carol": 2, "Bob": 1, "dave": 1, "alice": 0}, counts)

	votes, err := f.store.Votes.List(ctx)
	require.NoError(t, err)
	for _, e := range tally {
		n := 0
		for _, v := range votes {
			if v.TargetID != nil && *v.TargetID == e.ID {
				n++
			}
		}
		assert.Equal(t, n, e.VoteCount, "count for %s equals vote rows targeting them", e.Username)
	}
}

func TestClear(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")

	_, err := f.votes.Cast(ctx, alice, CastVoteInput{TargetID: bob.ID.String()})
	require.NoError(t, err)
	require.NoError(t, f.votes.Clear(ctx, alice))
	require.NoError(t, f.votes.Clear(ctx, alice), "clearing twice is harmless")

	tally, err := f.votes.Tally(ctx)
	require.NoError(t, err)
	for _, e := range tally {
		assert.Zero(t, e.VoteCount)
	}
	assert.Contains(t, f.pub.Topics(), "traitors.vote.cleared")
}

func TestDetails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice")
	bob := f.register(t, "bob")

	_, err := f.votes.Cast(ctx, bob, CastVoteInput{TargetID: alice.ID.String()})
	require.NoError(t, err)

	details, err := f.votes.Details(ctx)
	require.NoError(t, err)
	require.Len(t, details, 2)

	assert.Equal(t, "alice", details[0].VoterUsername)
	assert.Nil(t, details[0].TargetID)
	assert.Nil(t, details[0].TargetUsername)

	assert.Equal(t, "bob", details[1].VoterUsername)
	require.NotNil(t, details[1].TargetUsername)
	assert.Equal(t, "alice", *details[1].TargetUsername)
}
