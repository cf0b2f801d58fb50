package chatview

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

func (m Model) View() string {
	if m.TwoPane() {
		return lipgloss.JoinHorizontal(lipgloss.Top, m.listView(listWidth), m.threadView(m.width-listWidth-4))
	}
	if m.active == "" {
		return m.listView(m.width - 4)
	}
	return m.threadView(m.width - 2)
}

func (m Model) contact(id string) (Contact, bool) {
	for _, c := range m.contacts {
		if c.ID == id {
			return c, true
		}
	}
	return Contact{}, false
}

func (m Model) listView(width int) string {
	var s strings.Builder
	s.WriteString(titleStyle.Render("Chats"))
	s.WriteString("\n\n")

	if len(m.contacts) == 0 {
		s.WriteString(mutedStyle.Render("No contacts."))
	}
	for i, c := range m.contacts {
		line := c.Name
		if last := lastMessage(m.threads[c.ID]); last != nil {
			line += "  " + mutedStyle.Render(FormatRelative(last.Time, m.now()))
			line += "\n" + mutedStyle.Render(truncate(last.Text, width-4))
		}
		if i == m.selected {
			s.WriteString(selectedItemStyle.Render(line) + "\n")
		} else {
			s.WriteString(unselectedItemStyle.Render(line) + "\n")
		}
	}

	border := mutedColor
	if m.focus == paneList {
		border = activeBorder
	}
	return listStyle.
		Width(width).
		Height(m.height - 2).
		BorderForeground(border).
		Render(s.String())
}

func (m Model) threadView(width int) string {
	style := threadStyle.Width(width).Height(m.height - 2)
	c, ok := m.contact(m.active)
	if !ok {
		return style.Render(lipgloss.Place(width, m.height-4, lipgloss.Center, lipgloss.Center,
			mutedStyle.Render("Select a chat to start messaging")))
	}

	status := c.LastSeen
	if c.Online {
		status = "online"
	}
	header := headerStyle.Width(width - 2).Render(c.Name + "  " + mutedStyle.Render(status))
	footer := footerStyle.Width(width - 2).Render(m.input.View())

	if m.focus == paneThread {
		style = style.BorderForeground(activeBorder)
	}
	return style.Render(lipgloss.JoinVertical(lipgloss.Left, header, m.viewport.View(), footer))
}

func (m Model) renderThread() string {
	msgs := m.threads[m.active]
	if len(msgs) == 0 {
		return mutedStyle.Render("No messages yet.")
	}
	var b strings.Builder
	for _, msg := range msgs {
		who, style := "them", otherMessageStyle
		if msg.FromMe {
			who, style = "you", ownMessageStyle
		}
		line := fmt.Sprintf("%s %s: %s", mutedStyle.Render(msg.Time.Format("15:04")), style.Render(who), msg.Text)
		if msg.FromMe && msg.Status != "" {
			line += " " + mutedStyle.Render(statusMark(msg.Status))
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func statusMark(status string) string {
	switch status {
	case StatusRead:
		return "✓✓ read"
	case StatusDelivered:
		return "✓✓"
	default:
		return "✓"
	}
}

func lastMessage(msgs []Message) *Message {
	if len(msgs) == 0 {
		return nil
	}
	return &msgs[len(msgs)-1]
}

func truncate(s string, width int) string {
	r := []rune(s)
	if width < 2 || len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}

// FormatRelative renders t the way chat lists usually label the last
// activity.
func FormatRelative(t, now time.Time) string {
	diff := now.Sub(t)
	switch {
	case diff < time.Minute:
		return "now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return t.Format("15:04")
	case diff < 48*time.Hour:
		return "Yesterday"
	default:
		return t.Format("Jan 2")
	}
}
