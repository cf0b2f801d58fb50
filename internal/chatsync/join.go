package chatsync

import (
	"sort"

	"wachat/internal/domain"
)

// UnknownUserName is shown for a direct conversation whose other participant
// cannot be found.
const UnknownUserName = "Unknown User"

// ResolveName returns the display name of a conversation as seen by userID.
// A direct conversation with exactly two participants is named after the
// participant that is not userID; everything else uses the stored name.
func ResolveName(c domain.Conversation, participants []*domain.Profile, userID string) string {
	if c.Kind == domain.ConversationDirect && len(participants) == 2 {
		for _, p := range participants {
			if p != nil && p.UserID != userID && p.DisplayName != "" {
				return p.DisplayName
			}
		}
		return UnknownUserName
	}
	if c.Name != nil {
		return *c.Name
	}
	return ""
}

func profileIndex(profiles []*domain.Profile) map[string]*domain.Profile {
	idx := make(map[string]*domain.Profile, len(profiles))
	for _, p := range profiles {
		if p != nil {
			idx[p.UserID] = p
		}
	}
	return idx
}

func senderOf(idx map[string]*domain.Profile, userID string) *domain.Profile {
	if p, ok := idx[userID]; ok {
		return p
	}
	return domain.PlaceholderProfile(userID)
}

// BuildConversationViews joins conversation rows with their newest message
// and that message's sender. recent must be ordered newest first; the first
// message seen for a conversation becomes its last message.
func BuildConversationViews(
	rows []*domain.ConversationRow,
	recent []*domain.Message,
	profiles []*domain.Profile,
	userID string,
) []*domain.ConversationView {
	idx := profileIndex(profiles)
	last := make(map[string]*domain.Message, len(rows))
	for _, m := range recent {
		if _, seen := last[m.ConversationID]; !seen {
			last[m.ConversationID] = m
		}
	}

	views := make([]*domain.ConversationView, 0, len(rows))
	for _, row := range rows {
		v := &domain.ConversationView{
			ID:           row.ID,
			Kind:         row.Kind,
			Name:         ResolveName(row.Conversation, row.Participants, userID),
			AvatarURL:    row.AvatarURL,
			CreatedAt:    row.CreatedAt,
			UpdatedAt:    row.UpdatedAt,
			Participants: row.Participants,
		}
		if m, ok := last[row.ID]; ok {
			v.LastMessage = &domain.LastMessage{
				Content:   m.Content,
				CreatedAt: m.CreatedAt,
				Sender:    senderOf(idx, m.SenderID),
			}
		}
		views = append(views, v)
	}
	return views
}

// BuildMessageViews joins messages with sender profiles and orders the
// result oldest first. Equal timestamps keep their input order.
func BuildMessageViews(msgs []*domain.Message, profiles []*domain.Profile) []*domain.MessageView {
	idx := profileIndex(profiles)
	views := make([]*domain.MessageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, &domain.MessageView{Message: *m, Sender: senderOf(idx, m.SenderID)})
	}
	sort.SliceStable(views, func(i, j int) bool {
		return views[i].CreatedAt.Before(views[j].CreatedAt)
	})
	return views
}

func distinctSenders(msgs []*domain.Message) []string {
	seen := make(map[string]struct{}, len(msgs))
	var ids []string
	for _, m := range msgs {
		if _, ok := seen[m.SenderID]; ok {
			continue
		}
		seen[m.SenderID] = struct{}{}
		ids = append(ids, m.SenderID)
	}
	return ids
}
