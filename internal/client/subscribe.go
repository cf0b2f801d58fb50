package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"wachat/internal/feed"
	"wachat/internal/ws"
)

const (
	subscribeRef     = "1"
	handshakeTimeout = 10 * time.Second
	closeWait        = time.Second
)

// Subscribe opens a dedicated WebSocket for f and waits for the server to
// accept the filter. The returned subscription owns the socket: releasing it
// closes the socket, and a dropped socket releases it.
func (c *Client) Subscribe(ctx context.Context, f feed.Filter, h feed.Handler) (*feed.Subscription, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}

	early, err := c.handshake(ctx, conn, f)
	if err != nil {
		conn.Close()
		return nil, err
	}

	var once sync.Once
	closeConn := func(string) {
		once.Do(func() {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(closeWait))
			_ = conn.Close()
		})
	}

	sub := feed.NewSubscription(ctx, f, h, closeConn)
	go c.pump(conn, sub, early)
	return sub, nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	wsURL := c.baseURL + "/ws"
	switch {
	case strings.HasPrefix(wsURL, "https://"):
		wsURL = "wss://" + strings.TrimPrefix(wsURL, "https://")
	case strings.HasPrefix(wsURL, "http://"):
		wsURL = "ws://" + strings.TrimPrefix(wsURL, "http://")
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.token)
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}

	conn, resp, err := dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			return nil, fmt.Errorf("dial feed: %w", newStatusError(resp))
		}
		return nil, fmt.Errorf("dial feed: %w", err)
	}
	return conn, nil
}

// handshake sends the subscribe frame and reads frames until the server
// either acknowledges it or reports an error. The server starts streaming
// before it acks, so events read on the way are returned for delivery.
func (c *Client) handshake(ctx context.Context, conn *websocket.Conn, f feed.Filter) ([]feed.Event, error) {
	frame := ws.ClientFrame{
		Type:   ws.FrameSubscribe,
		Ref:    subscribeRef,
		Table:  f.Table,
		Event:  string(f.Op),
		Filter: f.Expr(),
	}
	if err := conn.WriteJSON(frame); err != nil {
		return nil, fmt.Errorf("send subscribe: %w", err)
	}

	deadline := time.Now().Add(handshakeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetReadDeadline(deadline)
	defer conn.SetReadDeadline(time.Time{})

	var early []feed.Event
	for {
		var reply ws.ServerFrame
		if err := conn.ReadJSON(&reply); err != nil {
			return nil, fmt.Errorf("await subscribe ack: %w", err)
		}
		switch reply.Type {
		case ws.FrameSubscribed:
			if reply.Ref == subscribeRef {
				return early, nil
			}
		case ws.FrameEvent:
			if reply.Event != nil && reply.Ref == subscribeRef {
				early = append(early, *reply.Event)
			}
		case ws.FrameError:
			return nil, subscribeError(reply.Message)
		}
	}
}

func subscribeError(msg string) error {
	switch {
	case strings.Contains(msg, "forbidden"):
		return &StatusError{Code: http.StatusForbidden, Message: msg}
	case strings.Contains(msg, "invalid input"), strings.HasPrefix(msg, "feed:"):
		return &StatusError{Code: http.StatusBadRequest, Message: msg}
	}
	return errors.New("subscribe rejected: " + msg)
}

// pump hands events to the subscription until the socket drops, starting
// with the ones that arrived during the handshake.
func (c *Client) pump(conn *websocket.Conn, sub *feed.Subscription, early []feed.Event) {
	defer sub.Unsubscribe()

	for _, e := range early {
		if err := sub.Deliver(context.Background(), e); err != nil {
			return
		}
	}

	for {
		var frame ws.ServerFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if sub.Active() && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Warn().Err(err).Stringer("filter", sub.Filter()).Msg("feed connection lost")
			}
			return
		}
		switch frame.Type {
		case ws.FrameEvent:
			if frame.Event == nil || frame.Ref != subscribeRef {
				continue
			}
			if err := sub.Deliver(context.Background(), *frame.Event); err != nil {
				return
			}
		case ws.FrameError:
			c.log.Warn().Str("message", frame.Message).Msg("feed error")
		}
	}
}
