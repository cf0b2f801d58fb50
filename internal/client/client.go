// Package client is a chatsync.Backend that talks to a wachat server over
// its HTTP API and WebSocket feed bridge.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"wachat/internal/chatsync"
	"wachat/internal/domain"
)

const defaultTimeout = 15 * time.Second

// Client acts as the user the bearer token was issued to.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     zerolog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default client, e.g. to change timeouts.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New returns a client for the server at baseURL ("http://host:port").
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: defaultTimeout},
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With().Str("component", "client").Logger()
	return c
}

var _ chatsync.Backend = (*Client)(nil)

func (c *Client) ListConversations(ctx context.Context) ([]*domain.ConversationRow, error) {
	var rows []*domain.ConversationRow
	err := c.do(ctx, http.MethodGet, "/api/conversations", nil, &rows)
	return rows, err
}

func (c *Client) ListConversationIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := c.do(ctx, http.MethodGet, "/api/conversations/ids", nil, &ids)
	return ids, err
}

// IsParticipant reports false, without error, when either the caller or
// userID is not in the conversation.
func (c *Client) IsParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	path := "/api/conversations/" + url.PathEscape(conversationID) + "/participants/" + url.PathEscape(userID)
	err := c.do(ctx, http.MethodGet, path, nil, nil)
	switch {
	case err == nil:
		return true, nil
	case isStatus(err, http.StatusNotFound), isStatus(err, http.StatusForbidden):
		return false, nil
	default:
		return false, err
	}
}

func (c *Client) CreateDirectConversation(ctx context.Context, otherUserID string) (*domain.Conversation, error) {
	var conv domain.Conversation
	body := map[string]string{"other_user_id": otherUserID}
	if err := c.do(ctx, http.MethodPost, "/api/conversations/direct", body, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (c *Client) ListMessages(ctx context.Context, conversationID string) ([]*domain.Message, error) {
	var msgs []*domain.Message
	err := c.do(ctx, http.MethodGet, "/api/conversations/"+url.PathEscape(conversationID)+"/messages", nil, &msgs)
	return msgs, err
}

func (c *Client) ListRecentMessages(ctx context.Context, conversationIDs []string) ([]*domain.Message, error) {
	if len(conversationIDs) == 0 {
		return nil, nil
	}
	q := url.Values{"conversation_ids": {strings.Join(conversationIDs, ",")}}
	var msgs []*domain.Message
	err := c.do(ctx, http.MethodGet, "/api/messages?"+q.Encode(), nil, &msgs)
	return msgs, err
}

func (c *Client) GetMessage(ctx context.Context, id string) (*domain.Message, error) {
	var msg domain.Message
	if err := c.do(ctx, http.MethodGet, "/api/messages/"+url.PathEscape(id), nil, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Client) SendMessage(ctx context.Context, conversationID, content string, kind domain.MessageKind) (*domain.Message, error) {
	body := map[string]string{"content": content, "message_type": string(kind)}
	var msg domain.Message
	if err := c.do(ctx, http.MethodPost, "/api/conversations/"+url.PathEscape(conversationID)+"/messages", body, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Client) ListProfiles(ctx context.Context, userIDs []string) ([]*domain.Profile, error) {
	path := "/api/profiles"
	if len(userIDs) > 0 {
		path += "?" + url.Values{"user_ids": {strings.Join(userIDs, ",")}}.Encode()
	}
	var profiles []*domain.Profile
	err := c.do(ctx, http.MethodGet, path, nil, &profiles)
	return profiles, err
}

func (c *Client) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	var p domain.Profile
	if err := c.do(ctx, http.MethodGet, "/api/profiles/"+url.PathEscape(userID), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// do sends a JSON request and decodes a JSON response into out, if set.
// Non-2xx responses become a *StatusError.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newStatusError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
