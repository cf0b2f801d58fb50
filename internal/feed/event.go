// Package feed implements the change feed: row-level notifications published
// by the services after a commit and delivered to scoped subscriptions.
package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Op is the kind of row change an event reports.
type Op string

const (
	Insert Op = "INSERT"
	Update Op = "UPDATE"
	Delete Op = "DELETE"
	Any    Op = "*"
)

// Tables that publish events.
const (
	TableMessages      = "messages"
	TableConversations = "conversations"
	TableParticipants  = "conversation_participants"
)

// ErrClosed is returned when delivering to or subscribing on something that
// has already been released.
var ErrClosed = errors.New("feed: closed")

// Event is a minimal change notification. It references the row by id and
// carries only the columns subscribers filter on; consumers re-fetch the row.
type Event struct {
	ID          string            `json:"id"`
	Table       string            `json:"table"`
	Op          Op                `json:"type"`
	RowID       string            `json:"row_id"`
	Columns     map[string]string `json:"columns,omitempty"`
	CommittedAt time.Time         `json:"commit_timestamp"`
}

// Filter scopes a subscription to one table, one op and optionally one
// column equality.
type Filter struct {
	Table  string `json:"table"`
	Op     Op     `json:"event"`
	Column string `json:"column,omitempty"`
	Value  string `json:"value,omitempty"`
}

// ParseFilter builds a filter from a table, an op and an expression of the
// form "column=eq.value". An empty op means any op; an empty expression
// matches every row.
func ParseFilter(table string, op Op, expr string) (Filter, error) {
	if table == "" {
		return Filter{}, errors.New("feed: filter requires a table")
	}
	if op == "" {
		op = Any
	}
	switch op {
	case Insert, Update, Delete, Any:
	default:
		return Filter{}, fmt.Errorf("feed: unknown event %q", op)
	}
	f := Filter{Table: table, Op: op}
	if expr == "" {
		return f, nil
	}
	col, rest, ok := strings.Cut(expr, "=")
	if !ok || col == "" {
		return Filter{}, fmt.Errorf("feed: malformed filter %q", expr)
	}
	val, ok := strings.CutPrefix(rest, "eq.")
	if !ok {
		return Filter{}, fmt.Errorf("feed: unsupported operator in %q", expr)
	}
	f.Column, f.Value = col, val
	return f, nil
}

// MessageInserts is the filter the realtime listener uses for one
// conversation.
func MessageInserts(conversationID string) Filter {
	return Filter{Table: TableMessages, Op: Insert, Column: "conversation_id", Value: conversationID}
}

// Expr renders the column part of the filter in ParseFilter syntax.
func (f Filter) Expr() string {
	if f.Column == "" {
		return ""
	}
	return f.Column + "=eq." + f.Value
}

func (f Filter) String() string {
	s := f.Table + ":" + string(f.Op)
	if e := f.Expr(); e != "" {
		s += ":" + e
	}
	return s
}

// Matches reports whether e falls inside the filter.
func (f Filter) Matches(e Event) bool {
	if e.Table != f.Table {
		return false
	}
	if f.Op != Any && f.Op != e.Op {
		return false
	}
	if f.Column != "" && e.Columns[f.Column] != f.Value {
		return false
	}
	return true
}

// Handler receives events for one subscription. It runs on the
// subscription's delivery goroutine; ctx is cancelled on unsubscribe.
type Handler func(ctx context.Context, e Event)

// Feed publishes events and hands out subscriptions.
type Feed interface {
	Publish(ctx context.Context, e Event) error
	// Subscribe opens a subscription that lives until Unsubscribe is called
	// or ctx is done, whichever happens first.
	Subscribe(ctx context.Context, f Filter, h Handler) (*Subscription, error)
	Close() error
}
