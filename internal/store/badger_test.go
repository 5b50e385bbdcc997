package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gryt-terminal/internal/chat"
	"gryt-terminal/internal/store"
)

func newTestStore(t *testing.T) *store.BadgerStore {
	t.Helper()

	s, err := store.NewBadgerStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSessionRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session := chat.NewSession()
	session.Title = "Go questions"
	require.NoError(t, s.SaveSession(ctx, session))

	sessions, err := s.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, session.ID, sessions[0].ID)
	assert.Equal(t, "Go questions", sessions[0].Title)
}

func TestListSessionsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	older := chat.NewSession()
	older.CreatedAt = time.Now().Add(-2 * time.Hour)
	newer := chat.NewSession()

	require.NoError(t, s.SaveSession(ctx, older))
	require.NoError(t, s.SaveSession(ctx, newer))

	sessions, err := s.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, newer.ID, sessions[0].ID)
	assert.Equal(t, older.ID, sessions[1].ID)
}

func TestMessagesKeyedBySession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := chat.NewSession()
	second := chat.NewSession()
	require.NoError(t, s.SaveSession(ctx, first))
	require.NoError(t, s.SaveSession(ctx, second))

	require.NoError(t, s.SaveMessage(ctx, chat.NewMessage(first.ID, chat.RoleUser, "hello from first")))
	require.NoError(t, s.SaveMessage(ctx, chat.NewMessage(second.ID, chat.RoleUser, "hello from second")))

	msgs, err := s.Messages(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello from first", msgs[0].Content)

	msgs, err = s.Messages(ctx, second.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello from second", msgs[0].Content)
}

func TestMessagesOrderedByTimestamp(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session := chat.NewSession()
	require.NoError(t, s.SaveSession(ctx, session))

	base := time.Now()
	for i, content := range []string{"first", "second", "third"} {
		msg := chat.NewMessage(session.ID, chat.RoleUser, content)
		msg.Timestamp = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, s.SaveMessage(ctx, msg))
	}

	msgs, err := s.Messages(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "first", msgs[0].Content)
	assert.Equal(t, "second", msgs[1].Content)
	assert.Equal(t, "third", msgs[2].Content)
}

func TestDeleteSessionCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session := chat.NewSession()
	require.NoError(t, s.SaveSession(ctx, session))
	require.NoError(t, s.SaveMessage(ctx, chat.NewMessage(session.ID, chat.RoleUser, "hello")))

	require.NoError(t, s.DeleteSession(ctx, session.ID))

	sessions, err := s.ListSessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)

	msgs, err := s.Messages(ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestReopenedStoreKeepsData(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := store.NewBadgerStore(dir)
	require.NoError(t, err)

	session := chat.NewSession()
	require.NoError(t, s.SaveSession(ctx, session))
	require.NoError(t, s.SaveMessage(ctx, chat.NewMessage(session.ID, chat.RoleUser, "persisted")))
	require.NoError(t, s.Close())

	s, err = store.NewBadgerStore(dir)
	require.NoError(t, err)
	defer s.Close()

	sessions, err := s.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	msgs, err := s.Messages(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "persisted", msgs[0].Content)
}
