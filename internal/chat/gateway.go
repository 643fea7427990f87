package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const httpTimeout = 120 * time.Second

// ErrGateway marks any failure talking to the model server. Callers match
// it with errors.Is to distinguish a gateway failure from their own.
var ErrGateway = errors.New("chat gateway failure")

// Gateway talks to an Ollama-compatible chat endpoint. The model server
// is a black box: an ordered role/content list goes out, one assistant
// message comes back. No retries, no streaming.
type Gateway struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewGateway constructs a Gateway for the given server URL and model
// identifier. The timeout is generous: a local model can take a while to
// produce a full itinerary.
func NewGateway(baseURL, model string) *Gateway {
	return &Gateway{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: httpTimeout},
	}
}

// NewGatewayWithClient constructs a Gateway with a custom http.Client (for tests).
func NewGatewayWithClient(baseURL, model string, client *http.Client) *Gateway {
	return &Gateway{baseURL: baseURL, model: model, client: client}
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type chatResponse struct {
	Message Message `json:"message"`
}

// Send builds the outbound message list and calls the model server. The
// system prompt is prepended only when history is empty, and only on the
// wire: the stored conversation carries user and assistant turns, never
// the system message. On failure the caller's history is untouched, so
// the user may retry the same message.
func (g *Gateway) Send(ctx context.Context, systemPrompt string, history []Message, userMessage string) (string, error) {
	outbound := make([]Message, 0, len(history)+2)
	if len(history) == 0 && systemPrompt != "" {
		outbound = append(outbound, Message{Role: RoleSystem, Content: systemPrompt})
	}
	outbound = append(outbound, history...)
	outbound = append(outbound, Message{Role: RoleUser, Content: userMessage})

	return g.call(ctx, outbound)
}

// call POSTs the message list to /api/chat and decodes the single
// assistant reply.
func (g *Gateway) call(ctx context.Context, messages []Message) (string, error) {
	reqBody, err := json.Marshal(chatRequest{
		Model:    g.model,
		Messages: messages,
		Stream:   false,
	})
	if err != nil {
		return "", fmt.Errorf("%w: encoding request: %v", ErrGateway, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/chat", bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("%w: creating request: %v", ErrGateway, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: calling model server: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: model server returned status %d", ErrGateway, resp.StatusCode)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", ErrGateway, err)
	}

	return out.Message.Content, nil
}
