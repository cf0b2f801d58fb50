package chatsync

import (
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rs/zerolog"

	"wachat/internal/domain"
)

func TestResolveNameDirectPair(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("direct pair is named after the other participant", prop.ForAll(
		func(me, other, myName, otherName string, otherFirst bool) bool {
			if me == other || otherName == "" {
				return true
			}
			mine := &domain.Profile{UserID: me, DisplayName: myName}
			theirs := &domain.Profile{UserID: other, DisplayName: otherName}
			participants := []*domain.Profile{mine, theirs}
			if otherFirst {
				participants = []*domain.Profile{theirs, mine}
			}
			c := domain.Conversation{Kind: domain.ConversationDirect}
			return ResolveName(c, participants, me) == otherName
		},
		gen.Identifier(),
		gen.Identifier(),
		gen.AlphaString(),
		gen.AlphaString(),
		gen.Bool(),
	))

	properties.Property("group keeps its stored name", prop.ForAll(
		func(name string, n int) bool {
			participants := make([]*domain.Profile, n)
			for i := range participants {
				participants[i] = &domain.Profile{UserID: fmt.Sprintf("u%d", i), DisplayName: "x"}
			}
			c := domain.Conversation{Kind: domain.ConversationGroup, Name: &name}
			return ResolveName(c, participants, "u0") == name
		},
		gen.AlphaString(),
		gen.IntRange(0, 6),
	))

	properties.TestingRun(t)
}

func TestMessageViewsAscending(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("fetch output is sorted ascending for any row order", prop.ForAll(
		func(offsets []int64) bool {
			msgs := make([]*domain.Message, len(offsets))
			for i, off := range offsets {
				msgs[i] = &domain.Message{
					ID:        fmt.Sprintf("m%d", i),
					SenderID:  "s",
					CreatedAt: t0.Add(time.Duration(off) * time.Millisecond),
				}
			}
			views := BuildMessageViews(msgs, nil)
			if len(views) != len(msgs) {
				return false
			}
			return sort.SliceIsSorted(views, func(i, j int) bool {
				return views[i].CreatedAt.Before(views[j].CreatedAt)
			})
		},
		gen.SliceOf(gen.Int64Range(-100000, 100000)),
	))

	properties.Property("appends keep the thread ordered and unique", prop.ForAll(
		func(offsets []int64) bool {
			thread := NewThread(newFakeBackend("me"), "me", zerolog.Nop())
			thread.Open("c")
			ids := map[string]struct{}{}
			for _, off := range offsets {
				id := fmt.Sprintf("m%d", off)
				ids[id] = struct{}{}
				thread.Append(&domain.MessageView{Message: domain.Message{
					ID:             id,
					ConversationID: "c",
					CreatedAt:      t0.Add(time.Duration(off) * time.Second),
				}})
			}
			got := thread.Messages()
			if len(got) != len(ids) {
				return false
			}
			for i := 1; i < len(got); i++ {
				if got[i].CreatedAt.Before(got[i-1].CreatedAt) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Int64Range(0, 50)),
	))

	properties.TestingRun(t)
}
