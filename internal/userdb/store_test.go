package userdb

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(":memory:", slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

func TestAddUser_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddUser(ctx, 100, "mario"))
	require.NoError(t, s.AddUser(ctx, 100, "mario"))
	require.NoError(t, s.AddUser(ctx, 200, ""))

	n, err := s.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ids, err := s.UserIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{100, 200}, ids)
}

func TestUserIDs_Empty(t *testing.T) {
	s := newTestStore(t)

	ids, err := s.UserIDs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRecordLink_RecentFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordLink(ctx, 100, "mario", "first.mkv"))
	require.NoError(t, s.RecordLink(ctx, 100, "mario", "second.mkv"))
	require.NoError(t, s.RecordLink(ctx, 200, "luigi", "third.mkv"))

	events, err := s.RecentLinks(ctx, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "third.mkv", events[0].FileName)
	assert.Equal(t, "second.mkv", events[1].FileName)
	assert.Equal(t, int64(200), events[0].UserID)
	assert.WithinDuration(t, time.Now(), events[0].CreatedAt, 10*time.Second)
}

func TestRecentLinks_LimitLargerThanTable(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordLink(ctx, 1, "", "only.bin"))

	events, err := s.RecentLinks(ctx, 50)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestUsers_FullListing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddUser(ctx, 200, "luigi"))
	require.NoError(t, s.AddUser(ctx, 100, "mario"))

	users, err := s.Users(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)

	assert.Equal(t, int64(100), users[0].ID)
	assert.Equal(t, "mario", users[0].Username)
	assert.Equal(t, int64(200), users[1].ID)
	assert.Equal(t, "luigi", users[1].Username)
	assert.WithinDuration(t, time.Now().UTC(), users[0].FirstSeen, time.Minute)
}
