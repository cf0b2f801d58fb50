package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"wachat/internal/domain"
	"wachat/internal/feed"
	"wachat/internal/security"
)

// Authorizer decides whether a user may watch the rows a filter selects.
type Authorizer interface {
	AuthorizeFilter(ctx context.Context, userID string, f feed.Filter) error
}

func normalizeAllowedOrigins(origins []string) map[string]struct{} {
	res := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		o := strings.TrimSpace(strings.ToLower(origin))
		if o != "" {
			res[o] = struct{}{}
		}
	}
	return res
}

// makeCheckOrigin allows non-browser clients (no Origin header), any origin
// when "*" is configured, and otherwise only the listed origins.
func makeCheckOrigin(allowedOrigins []string) func(r *http.Request) bool {
	allowed := normalizeAllowedOrigins(allowedOrigins)
	_, anyOrigin := allowed["*"]

	return func(r *http.Request) bool {
		origin := strings.TrimSpace(strings.ToLower(r.Header.Get("Origin")))
		if origin == "" || anyOrigin {
			return true
		}
		if _, ok := allowed[origin]; ok {
			return true
		}

		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return false
		}
		_, ok := allowed[strings.ToLower(fmt.Sprintf("%s://%s", u.Scheme, u.Host))]
		return ok
	}
}

// extractToken accepts the usual bearer header or query parameter, or the
// "bearer, <token>" subprotocol pair browsers can set on upgrade.
func extractToken(r *http.Request) string {
	if tok := security.BearerToken(r); tok != "" {
		return tok
	}
	if proto := r.Header.Get("Sec-WebSocket-Protocol"); proto != "" {
		parts := strings.Split(proto, ",")
		if len(parts) >= 2 && strings.EqualFold(strings.TrimSpace(parts[0]), "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return ""
}

// MakeHandler returns the /ws handler. After authenticating the bearer
// token it bridges feed subscriptions to the client:
//   - subscribe   -> authorize the filter, subscribe, reply "subscribed"
//   - unsubscribe -> release the subscription, reply "unsubscribed"
//
// Matching events are pushed as "event" frames tagged with the ref of the
// subscribe frame. Every subscription is released when the socket closes.
func MakeHandler(
	hub *Hub,
	tokens *security.TokenService,
	f feed.Feed,
	auth Authorizer,
	allowedOrigins []string,
	log zerolog.Logger,
) http.HandlerFunc {
	log = log.With().Str("component", "ws").Logger()
	checkOrigin := makeCheckOrigin(allowedOrigins)
	upgrader := websocket.Upgrader{
		CheckOrigin:  checkOrigin,
		Subprotocols: []string{"bearer"},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if !checkOrigin(r) {
			http.Error(w, "origin not allowed", http.StatusForbidden)
			return
		}
		tokenStr := extractToken(r)
		if tokenStr == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		userID, err := tokens.Subject(tokenStr)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		raw, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Debug().Err(err).Msg("upgrade failed")
			return
		}

		conn := NewConnection(userID, raw)
		conn.Start()
		hub.Register(conn)

		s := &session{
			conn: conn,
			feed: f,
			auth: auth,
			log:  log.With().Str("user_id", userID).Str("conn_id", conn.ID).Logger(),
			subs: make(map[string]*feed.Subscription),
		}
		s.ctx, s.cancel = context.WithCancel(context.Background())
		defer func() {
			s.cancel()
			hub.Unregister(conn)
			conn.Close(websocket.CloseNormalClosure, "")
		}()

		s.readLoop(raw)
	}
}

type session struct {
	conn *Connection
	feed feed.Feed
	auth Authorizer
	log  zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	subs map[string]*feed.Subscription
}

func (s *session) readLoop(raw *websocket.Conn) {
	raw.SetReadLimit(maxFrameBytes)
	_ = raw.SetReadDeadline(time.Now().Add(pongWait))
	raw.SetPongHandler(func(string) error {
		return raw.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := raw.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug().Err(err).Msg("read failed")
			}
			return
		}
		_ = raw.SetReadDeadline(time.Now().Add(pongWait))

		var frame ClientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			s.sendError("invalid frame")
			continue
		}
		switch frame.Type {
		case FrameSubscribe:
			s.subscribe(frame)
		case FrameUnsubscribe:
			s.unsubscribe(frame.Ref)
		default:
			s.log.Debug().Str("type", frame.Type).Msg("unknown frame type")
			s.sendError("unknown frame type " + frame.Type)
		}
	}
}

func (s *session) subscribe(frame ClientFrame) {
	if frame.Ref == "" {
		s.sendError("subscribe requires a ref")
		return
	}
	op := feed.Op(strings.ToUpper(frame.Event))
	if op == "" {
		op = feed.Any
	}
	flt, err := feed.ParseFilter(frame.Table, op, frame.Filter)
	if err != nil {
		s.sendError(err.Error())
		return
	}
	if err := s.auth.AuthorizeFilter(s.ctx, s.conn.UserID, flt); err != nil {
		if errors.Is(err, domain.ErrForbidden) || errors.Is(err, domain.ErrInvalidInput) {
			s.sendError(err.Error())
		} else {
			s.log.Error().Err(err).Stringer("filter", flt).Msg("authorize filter")
			s.sendError("could not authorize subscription")
		}
		return
	}

	ref := frame.Ref
	sub, err := s.feed.Subscribe(s.ctx, flt, func(_ context.Context, e feed.Event) {
		if err := s.conn.Send(ServerFrame{Type: FrameEvent, Ref: ref, Event: &e}); err != nil {
			s.log.Debug().Err(err).Str("ref", ref).Msg("dropping event for closed connection")
		}
	})
	if err != nil {
		s.log.Error().Err(err).Stringer("filter", flt).Msg("subscribe")
		s.sendError("subscribe failed")
		return
	}

	s.mu.Lock()
	prev := s.subs[ref]
	s.subs[ref] = sub
	s.mu.Unlock()
	if prev != nil {
		prev.Unsubscribe()
	}

	s.log.Debug().Str("ref", ref).Stringer("filter", flt).Msg("subscribed")
	_ = s.conn.Send(ServerFrame{Type: FrameSubscribed, Ref: ref})
}

func (s *session) unsubscribe(ref string) {
	s.mu.Lock()
	sub := s.subs[ref]
	delete(s.subs, ref)
	s.mu.Unlock()
	if sub != nil {
		sub.Unsubscribe()
	}
	_ = s.conn.Send(ServerFrame{Type: FrameUnsubscribed, Ref: ref})
}

func (s *session) sendError(msg string) {
	_ = s.conn.Send(ServerFrame{Type: FrameError, Message: msg})
}
