// Package session owns the authenticated-session state machine: sign-in
// and sign-out, the live conversation per session, and the render
// snapshot handed back to the presentation layer after every mutation.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tourchat/tourchat/internal/chat"
	"github.com/tourchat/tourchat/internal/trip"
	"github.com/tourchat/tourchat/internal/users"
)

var (
	// ErrBadCredentials is returned by Login for a wrong username/password pair.
	ErrBadCredentials = errors.New("invalid username or password")
	// ErrNotAuthenticated is returned when a token resolves to no live session.
	ErrNotAuthenticated = errors.New("not authenticated")
)

// Gateway is the model-serving boundary the controller talks through.
// *chat.Gateway satisfies this interface.
type Gateway interface {
	Send(ctx context.Context, systemPrompt string, history []chat.Message, userMessage string) (string, error)
}

// Session is one authenticated user's live state. The conversation lives
// here and nowhere else; it is dropped when the session ends.
type Session struct {
	mu           sync.Mutex
	id           string
	username     string
	conversation chat.Conversation
}

// Username returns the session owner.
func (s *Session) Username() string { return s.username }

// Snapshot is the full render state returned after every state-mutating
// action, so the page re-renders from the response.
type Snapshot struct {
	Username    string           `json:"username"`
	Preferences trip.Preferences `json:"preferences"`
	Transcript  []chat.Message   `json:"transcript"`
}

// Controller orchestrates the credential store, the chat gateway, and the
// per-session conversation state.
type Controller struct {
	store   *users.Store
	gateway Gateway
	secret  []byte

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewController constructs a Controller. secret signs session tokens.
func NewController(store *users.Store, gateway Gateway, secret []byte) *Controller {
	return &Controller{
		store:    store,
		gateway:  gateway,
		secret:   secret,
		sessions: make(map[string]*Session),
	}
}

// Register creates a new user. The caller signs in afterwards; a
// registration does not open a session by itself.
func (c *Controller) Register(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return fmt.Errorf("username and password must not be empty")
	}
	return c.store.Register(ctx, username, password)
}

// Login authenticates and opens a session, returning the session token.
// A failed login changes no state.
func (c *Controller) Login(username, password string) (string, error) {
	if !c.store.Authenticate(username, password) {
		return "", ErrBadCredentials
	}

	id, err := newSessionID()
	if err != nil {
		return "", err
	}
	token, err := signToken(c.secret, username, id)
	if err != nil {
		return "", fmt.Errorf("signing session token: %w", err)
	}

	c.mu.Lock()
	c.sessions[id] = &Session{id: id, username: username}
	c.mu.Unlock()

	return token, nil
}

// Resolve maps a token to its live session. Expired, forged, and
// logged-out tokens all resolve to ErrNotAuthenticated.
func (c *Controller) Resolve(token string) (*Session, error) {
	claims, err := parseToken(c.secret, token)
	if err != nil {
		return nil, ErrNotAuthenticated
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sessions[claims.ID]
	if !ok || s.username != claims.Subject {
		return nil, ErrNotAuthenticated
	}
	return s, nil
}

// Logout ends the session and clears its conversation.
func (c *Controller) Logout(s *Session) {
	s.mu.Lock()
	s.conversation.Reset()
	s.mu.Unlock()

	c.mu.Lock()
	delete(c.sessions, s.id)
	c.mu.Unlock()
}

// UpdatePreferences overwrites the user's preference bag wholesale and
// persists it, returning the refreshed render state.
func (c *Controller) UpdatePreferences(ctx context.Context, s *Session, prefs trip.Preferences) (Snapshot, error) {
	if err := c.store.SavePreferences(ctx, s.username, prefs); err != nil {
		return Snapshot{}, err
	}
	return c.Snapshot(s), nil
}

// SendMessage composes the system prompt for the agent from the current
// preferences, calls the gateway, and appends the user and assistant
// turns. The conversation holds only those two roles; the system prompt
// exists on the wire alone. On a gateway failure the conversation is
// left untouched so the user may retry; the error carries
// chat.ErrGateway for the transport layer to map.
func (c *Controller) SendMessage(ctx context.Context, s *Session, agent trip.Agent, message string) (Snapshot, error) {
	if message == "" {
		return Snapshot{}, fmt.Errorf("message must not be empty")
	}
	if agent == "" {
		agent = trip.AgentItinerary
	}

	prefs, _ := c.store.Preferences(s.username)
	prompt := trip.SystemPrompt(agent, prefs)

	s.mu.Lock()
	history := s.conversation.Messages()
	s.mu.Unlock()

	reply, err := c.gateway.Send(ctx, prompt, history, message)
	if err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	s.conversation.Append(
		chat.Message{Role: chat.RoleUser, Content: message},
		chat.Message{Role: chat.RoleAssistant, Content: reply},
	)
	s.mu.Unlock()

	return c.Snapshot(s), nil
}

// Snapshot assembles the current render state for the session.
func (c *Controller) Snapshot(s *Session) Snapshot {
	prefs, _ := c.store.Preferences(s.username)

	s.mu.Lock()
	transcript := s.conversation.Messages()
	s.mu.Unlock()

	return Snapshot{
		Username:    s.username,
		Preferences: prefs,
		Transcript:  transcript,
	}
}
