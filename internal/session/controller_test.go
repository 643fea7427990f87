package session_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tourchat/tourchat/internal/chat"
	"github.com/tourchat/tourchat/internal/session"
	"github.com/tourchat/tourchat/internal/trip"
	"github.com/tourchat/tourchat/internal/users"
)

// mockGateway echoes a canned reply and records the last request.
type mockGateway struct {
	reply        string
	err          error
	lastPrompt   string
	lastHistory  []chat.Message
	lastUserText string
}

func (m *mockGateway) Send(_ context.Context, systemPrompt string, history []chat.Message, userMessage string) (string, error) {
	m.lastPrompt = systemPrompt
	m.lastHistory = history
	m.lastUserText = userMessage
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

func newController(t *testing.T, gw session.Gateway) *session.Controller {
	t.Helper()
	repo := users.NewFileRepository(filepath.Join(t.TempDir(), "user_data.json"))
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := users.NewStore(context.Background(), repo, log)
	return session.NewController(store, gw, []byte("test-secret"))
}

func register(t *testing.T, c *session.Controller, username, password string) {
	t.Helper()
	require.NoError(t, c.Register(context.Background(), username, password))
}

func login(t *testing.T, c *session.Controller, username, password string) (*session.Session, string) {
	t.Helper()
	token, err := c.Login(username, password)
	require.NoError(t, err)
	s, err := c.Resolve(token)
	require.NoError(t, err)
	return s, token
}

func TestLogin_WrongPassword(t *testing.T) {
	c := newController(t, &mockGateway{})
	register(t, c, "alice", "pw1")

	_, err := c.Login("alice", "wrong")
	assert.ErrorIs(t, err, session.ErrBadCredentials)

	_, err = c.Login("nobody", "pw1")
	assert.ErrorIs(t, err, session.ErrBadCredentials)
}

func TestRegister_EmptyCredentials(t *testing.T) {
	c := newController(t, &mockGateway{})
	require.Error(t, c.Register(context.Background(), "", "pw"))
	require.Error(t, c.Register(context.Background(), "alice", ""))
}

func TestResolve_BadToken(t *testing.T) {
	c := newController(t, &mockGateway{})
	_, err := c.Resolve("not-a-token")
	assert.ErrorIs(t, err, session.ErrNotAuthenticated)
}

func TestLogout_InvalidatesSessionAndClearsConversation(t *testing.T) {
	gw := &mockGateway{reply: "Here is a plan."}
	c := newController(t, gw)
	register(t, c, "alice", "pw1")
	s, token := login(t, c, "alice", "pw1")

	_, err := c.SendMessage(context.Background(), s, "", "Plan day 1")
	require.NoError(t, err)

	c.Logout(s)
	_, err = c.Resolve(token)
	assert.ErrorIs(t, err, session.ErrNotAuthenticated)

	// A fresh login starts with an empty transcript.
	s2, _ := login(t, c, "alice", "pw1")
	assert.Empty(t, c.Snapshot(s2).Transcript)
}

func TestUpdatePreferences_PersistsAndSnapshots(t *testing.T) {
	c := newController(t, &mockGateway{})
	register(t, c, "alice", "pw1")
	s, _ := login(t, c, "alice", "pw1")

	prefs := trip.Preferences{
		Budget:      100,
		CityName:    "Rome",
		Activity:    trip.ActivityFoodTour,
		TravelDates: trip.DateRange{Start: "2024-05-01", End: "2024-05-03"},
	}
	snap, err := c.UpdatePreferences(context.Background(), s, prefs)
	require.NoError(t, err)

	assert.Equal(t, "alice", snap.Username)
	assert.Equal(t, prefs, snap.Preferences)
}

func TestUpdatePreferences_InvalidRejected(t *testing.T) {
	c := newController(t, &mockGateway{})
	register(t, c, "alice", "pw1")
	s, _ := login(t, c, "alice", "pw1")

	_, err := c.UpdatePreferences(context.Background(), s, trip.Preferences{Budget: -1})
	require.Error(t, err)
}

func TestSendMessage_PromptEmbedsPreferences(t *testing.T) {
	gw := &mockGateway{reply: "Day 1: Colosseum."}
	c := newController(t, gw)
	register(t, c, "alice", "pw1")
	s, _ := login(t, c, "alice", "pw1")

	_, err := c.UpdatePreferences(context.Background(), s, trip.Preferences{
		Budget:   100,
		CityName: "Rome",
		Activity: trip.ActivityFoodTour,
	})
	require.NoError(t, err)

	snap, err := c.SendMessage(context.Background(), s, "", "Plan day 1")
	require.NoError(t, err)

	assert.Contains(t, gw.lastPrompt, "Rome")
	assert.Contains(t, gw.lastPrompt, "Food Tour")
	assert.Equal(t, "Plan day 1", gw.lastUserText)
	assert.Empty(t, gw.lastHistory, "first send starts from an empty history")

	// One exchange stores exactly the user and assistant turns.
	require.Len(t, snap.Transcript, 2)
	assert.Equal(t, chat.RoleUser, snap.Transcript[0].Role)
	assert.Equal(t, "Plan day 1", snap.Transcript[0].Content)
	assert.Equal(t, chat.RoleAssistant, snap.Transcript[1].Role)
	assert.Equal(t, "Day 1: Colosseum.", snap.Transcript[1].Content)
}

func TestSendMessage_TranscriptNeverHoldsSystemTurn(t *testing.T) {
	gw := &mockGateway{reply: "ok"}
	c := newController(t, gw)
	register(t, c, "alice", "pw1")
	s, _ := login(t, c, "alice", "pw1")

	_, err := c.SendMessage(context.Background(), s, "", "Plan day 1")
	require.NoError(t, err)

	snap, err := c.SendMessage(context.Background(), s, "", "Add a museum")
	require.NoError(t, err)

	// The second send hands the gateway the two stored turns.
	require.Len(t, gw.lastHistory, 2)
	assert.Equal(t, chat.RoleUser, gw.lastHistory[0].Role)

	require.Len(t, snap.Transcript, 4)
	for _, m := range snap.Transcript {
		assert.NotEqual(t, chat.RoleSystem, m.Role)
	}
}

func TestSendMessage_AgentDispatch(t *testing.T) {
	gw := &mockGateway{reply: "Pack an umbrella."}
	c := newController(t, gw)
	register(t, c, "alice", "pw1")
	s, _ := login(t, c, "alice", "pw1")

	_, err := c.SendMessage(context.Background(), s, trip.AgentWeather, "Will it rain?")
	require.NoError(t, err)
	assert.Contains(t, gw.lastPrompt, "weather assistant")
}

func TestSendMessage_GatewayFailureLeavesConversationUnchanged(t *testing.T) {
	gw := &mockGateway{reply: "ok"}
	c := newController(t, gw)
	register(t, c, "alice", "pw1")
	s, _ := login(t, c, "alice", "pw1")

	_, err := c.SendMessage(context.Background(), s, "", "Plan day 1")
	require.NoError(t, err)
	before := c.Snapshot(s).Transcript

	gw.err = chat.ErrGateway
	_, err = c.SendMessage(context.Background(), s, "", "Plan day 2")
	require.ErrorIs(t, err, chat.ErrGateway)

	assert.Equal(t, before, c.Snapshot(s).Transcript, "failed turn must not be appended")
}

func TestSendMessage_EmptyMessageRejected(t *testing.T) {
	c := newController(t, &mockGateway{})
	register(t, c, "alice", "pw1")
	s, _ := login(t, c, "alice", "pw1")

	_, err := c.SendMessage(context.Background(), s, "", "")
	require.Error(t, err)
}

func TestSecondLoginIsSeparateSession(t *testing.T) {
	gw := &mockGateway{reply: "ok"}
	c := newController(t, gw)
	register(t, c, "alice", "pw1")

	s1, _ := login(t, c, "alice", "pw1")
	_, err := c.SendMessage(context.Background(), s1, "", "hello")
	require.NoError(t, err)

	s2, _ := login(t, c, "alice", "pw1")
	assert.Empty(t, c.Snapshot(s2).Transcript, "conversations are per session, not per user")
	assert.NotEmpty(t, c.Snapshot(s1).Transcript)
}
