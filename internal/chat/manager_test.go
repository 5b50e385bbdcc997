package chat_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gryt-terminal/internal/chat"
	"gryt-terminal/internal/store"
)

type stubSender struct {
	mu    sync.Mutex
	reply string
	err   error
	block chan struct{}
	calls []string
}

func (s *stubSender) SendMessage(_ context.Context, sessionID, message string) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, message)
	block := s.block
	s.mu.Unlock()

	if block != nil {
		<-block
	}
	return s.reply, s.err
}

func (s *stubSender) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func newTestManager(t *testing.T, sender chat.Sender) (*chat.Manager, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	mgr := chat.NewManager(st, sender)
	require.NoError(t, mgr.Load(context.Background()))
	return mgr, st
}

func TestCreateSessionBecomesCurrent(t *testing.T) {
	mgr, _ := newTestManager(t, &stubSender{reply: "hi"})
	ctx := context.Background()

	first, err := mgr.CreateSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, chat.DefaultSessionTitle, first.Title)
	assert.Equal(t, first.ID, mgr.CurrentID())

	second, err := mgr.CreateSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, mgr.CurrentID())

	sessions := mgr.Sessions()
	require.Len(t, sessions, 2)
	assert.Equal(t, second.ID, sessions[0].ID)
	assert.Equal(t, first.ID, sessions[1].ID)

	msgs, err := mgr.Messages(ctx, second.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestSendMessageAppendsUserThenAssistant(t *testing.T) {
	mgr, _ := newTestManager(t, &stubSender{reply: "Here is an answer."})
	ctx := context.Background()

	session, err := mgr.CreateSession(ctx)
	require.NoError(t, err)

	user, assistant, err := mgr.SendMessage(ctx, "What is Go?")
	require.NoError(t, err)
	assert.Equal(t, chat.RoleUser, user.Role)
	assert.Equal(t, chat.RoleAssistant, assistant.Role)
	assert.Equal(t, "Here is an answer.", assistant.Content)

	msgs, err := mgr.Messages(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, chat.RoleUser, msgs[0].Role)
	assert.Equal(t, "What is Go?", msgs[0].Content)
	assert.Equal(t, chat.RoleAssistant, msgs[1].Role)
}

func TestSendMessageRejectsEmptyInput(t *testing.T) {
	sender := &stubSender{reply: "unused"}
	mgr, _ := newTestManager(t, sender)
	ctx := context.Background()

	session, err := mgr.CreateSession(ctx)
	require.NoError(t, err)

	for _, input := range []string{"", "   ", "\n\t"} {
		_, _, err := mgr.SendMessage(ctx, input)
		assert.ErrorIs(t, err, chat.ErrEmptyMessage)
	}

	assert.Zero(t, sender.callCount())
	msgs, err := mgr.Messages(ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestSendMessageWithoutSession(t *testing.T) {
	mgr, _ := newTestManager(t, &stubSender{reply: "unused"})

	_, _, err := mgr.SendMessage(context.Background(), "hello")
	assert.ErrorIs(t, err, chat.ErrNoSession)
}

func TestSendMessageTrimsWhitespace(t *testing.T) {
	mgr, _ := newTestManager(t, &stubSender{reply: "ok"})
	ctx := context.Background()

	_, err := mgr.CreateSession(ctx)
	require.NoError(t, err)

	user, _, err := mgr.SendMessage(ctx, "  hello  \n")
	require.NoError(t, err)
	assert.Equal(t, "hello", user.Content)
}

func TestCompleteSenderErrorBecomesApology(t *testing.T) {
	mgr, _ := newTestManager(t, &stubSender{err: errors.New("connection refused")})
	ctx := context.Background()

	session, err := mgr.CreateSession(ctx)
	require.NoError(t, err)

	_, assistant, err := mgr.SendMessage(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, chat.ErrorReply, assistant.Content)

	msgs, err := mgr.Messages(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, chat.ErrorReply, msgs[1].Content)
}

func TestCompleteEmptyReplyBecomesGreeting(t *testing.T) {
	mgr, _ := newTestManager(t, &stubSender{reply: ""})
	ctx := context.Background()

	_, err := mgr.CreateSession(ctx)
	require.NoError(t, err)

	_, assistant, err := mgr.SendMessage(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, chat.FallbackGreeting, assistant.Content)
}

func TestMessagesSurviveSessionSwitch(t *testing.T) {
	mgr, _ := newTestManager(t, &stubSender{reply: "answer one"})
	ctx := context.Background()

	first, err := mgr.CreateSession(ctx)
	require.NoError(t, err)
	_, _, err = mgr.SendMessage(ctx, "question one")
	require.NoError(t, err)

	second, err := mgr.CreateSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, mgr.CurrentID())

	transcript, err := mgr.SelectSession(ctx, second.ID)
	require.NoError(t, err)
	assert.Empty(t, transcript)

	transcript, err = mgr.SelectSession(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, transcript, 2)
	assert.Equal(t, "question one", transcript[0].Content)
	assert.Equal(t, "answer one", transcript[1].Content)
}

func TestSelectUnknownSession(t *testing.T) {
	mgr, _ := newTestManager(t, &stubSender{})

	_, err := mgr.SelectSession(context.Background(), "missing")
	assert.ErrorIs(t, err, chat.ErrSessionNotFound)
}

func TestDeleteCurrentSessionPromotesHead(t *testing.T) {
	mgr, _ := newTestManager(t, &stubSender{})
	ctx := context.Background()

	first, err := mgr.CreateSession(ctx)
	require.NoError(t, err)
	second, err := mgr.CreateSession(ctx)
	require.NoError(t, err)

	require.NoError(t, mgr.DeleteSession(ctx, second.ID))
	assert.Equal(t, first.ID, mgr.CurrentID())
	assert.Len(t, mgr.Sessions(), 1)
}

func TestDeleteNonCurrentSessionKeepsCurrent(t *testing.T) {
	mgr, _ := newTestManager(t, &stubSender{})
	ctx := context.Background()

	first, err := mgr.CreateSession(ctx)
	require.NoError(t, err)
	second, err := mgr.CreateSession(ctx)
	require.NoError(t, err)

	require.NoError(t, mgr.DeleteSession(ctx, first.ID))
	assert.Equal(t, second.ID, mgr.CurrentID())
}

func TestDeleteLastSessionEmptiesRegistry(t *testing.T) {
	mgr, _ := newTestManager(t, &stubSender{})
	ctx := context.Background()

	session, err := mgr.CreateSession(ctx)
	require.NoError(t, err)

	require.NoError(t, mgr.DeleteSession(ctx, session.ID))
	assert.Empty(t, mgr.Sessions())
	assert.Empty(t, mgr.CurrentID())

	_, ok := mgr.CurrentSession()
	assert.False(t, ok)
}

func TestDeleteUnknownSession(t *testing.T) {
	mgr, _ := newTestManager(t, &stubSender{})

	err := mgr.DeleteSession(context.Background(), "missing")
	assert.ErrorIs(t, err, chat.ErrSessionNotFound)
}

func TestDeleteSessionRemovesMessages(t *testing.T) {
	mgr, st := newTestManager(t, &stubSender{reply: "bye"})
	ctx := context.Background()

	session, err := mgr.CreateSession(ctx)
	require.NoError(t, err)
	_, _, err = mgr.SendMessage(ctx, "hello")
	require.NoError(t, err)

	require.NoError(t, mgr.DeleteSession(ctx, session.ID))

	msgs, err := st.Messages(ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestRenameSession(t *testing.T) {
	mgr, _ := newTestManager(t, &stubSender{})
	ctx := context.Background()

	session, err := mgr.CreateSession(ctx)
	require.NoError(t, err)

	require.NoError(t, mgr.RenameSession(ctx, session.ID, "  Go questions  "))

	current, ok := mgr.CurrentSession()
	require.True(t, ok)
	assert.Equal(t, "Go questions", current.Title)

	assert.ErrorIs(t, mgr.RenameSession(ctx, session.ID, "   "), chat.ErrEmptyTitle)
	assert.ErrorIs(t, mgr.RenameSession(ctx, "missing", "title"), chat.ErrSessionNotFound)
}

func TestPreviewTracksLatestMessage(t *testing.T) {
	mgr, _ := newTestManager(t, &stubSender{reply: "the reply"})
	ctx := context.Background()

	session, err := mgr.CreateSession(ctx)
	require.NoError(t, err)
	assert.Empty(t, session.LastMessage)

	_, _, err = mgr.SendMessage(ctx, "the question")
	require.NoError(t, err)

	current, ok := mgr.CurrentSession()
	require.True(t, ok)
	assert.Equal(t, "the reply", current.LastMessage)
	assert.False(t, current.UpdatedAt.Before(session.UpdatedAt))
}

func TestReplyLandsInIssuingSession(t *testing.T) {
	sender := &stubSender{reply: "late reply", block: make(chan struct{})}
	mgr, _ := newTestManager(t, sender)
	ctx := context.Background()

	first, err := mgr.CreateSession(ctx)
	require.NoError(t, err)

	user, err := mgr.AppendUser(ctx, "slow question")
	require.NoError(t, err)

	done := make(chan chat.Message, 1)
	go func() {
		done <- mgr.Complete(ctx, user.SessionID, user.Content)
	}()

	// Switch away while the call is still in flight.
	second, err := mgr.CreateSession(ctx)
	require.NoError(t, err)
	require.Equal(t, second.ID, mgr.CurrentID())

	close(sender.block)
	reply := <-done

	assert.Equal(t, first.ID, reply.SessionID)

	firstMsgs, err := mgr.Messages(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, firstMsgs, 2)
	assert.Equal(t, "late reply", firstMsgs[1].Content)

	secondMsgs, err := mgr.Messages(ctx, second.ID)
	require.NoError(t, err)
	assert.Empty(t, secondMsgs)
}

func TestLoadMarksNewestCurrent(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	older := chat.NewSession()
	older.CreatedAt = time.Now().Add(-time.Hour)
	require.NoError(t, st.SaveSession(ctx, older))

	newer := chat.NewSession()
	require.NoError(t, st.SaveSession(ctx, newer))

	mgr := chat.NewManager(st, &stubSender{})
	require.NoError(t, mgr.Load(ctx))

	assert.Equal(t, newer.ID, mgr.CurrentID())
	sessions := mgr.Sessions()
	require.Len(t, sessions, 2)
	assert.Equal(t, newer.ID, sessions[0].ID)
}
