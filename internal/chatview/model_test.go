package chatview

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, keys ...tea.Msg) Model {
	t.Helper()
	for _, k := range keys {
		next, _ := m.Update(k)
		var ok bool
		m, ok = next.(Model)
		require.True(t, ok)
	}
	return m
}

func sized(w, h int) tea.WindowSizeMsg { return tea.WindowSizeMsg{Width: w, Height: h} }

func TestLayoutSwitchesAtEightyColumns(t *testing.T) {
	m := New()

	m = press(t, m, sized(79, 30))
	assert.False(t, m.TwoPane())

	m = press(t, m, sized(80, 30))
	assert.True(t, m.TwoPane())
	view := m.View()
	assert.Contains(t, view, "Chats")
	assert.Contains(t, view, "Select a chat")
}

func TestNavigateAndOpen(t *testing.T) {
	m := press(t, New(), sized(100, 30), key("down"), key("j"), key("k"))
	assert.Equal(t, 1, m.Selected())

	// selection stops at the edges
	m = press(t, m, key("up"), key("up"), key("up"))
	assert.Equal(t, 0, m.Selected())

	m = press(t, m, key("enter"))
	assert.True(t, m.InThread())
	assert.Equal(t, "dana", m.ActiveContact())
	assert.Contains(t, m.View(), "Dana Whitfield")
}

func TestLocalSendAppendsAndClearsInput(t *testing.T) {
	m := press(t, New(), sized(100, 30), key("enter"))
	before := len(m.Messages("dana"))

	m = press(t, m, key("see you soon"))
	assert.Equal(t, "see you soon", m.Input())

	m = press(t, m, key("enter"))
	msgs := m.Messages("dana")
	require.Len(t, msgs, before+1)
	last := msgs[len(msgs)-1]
	assert.Equal(t, "see you soon", last.Text)
	assert.True(t, last.FromMe)
	assert.Equal(t, StatusSent, last.Status)
	assert.Greater(t, last.ID, msgs[len(msgs)-2].ID)
	assert.Empty(t, m.Input())
}

func TestBlankSendIsIgnored(t *testing.T) {
	m := press(t, New(), sized(100, 30), key("enter"))
	before := len(m.Messages("dana"))

	m = press(t, m, key("   "), key("enter"))
	assert.Len(t, m.Messages("dana"), before)
}

func TestSendIDsStrictlyIncrease(t *testing.T) {
	m := New()
	frozen := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return frozen }
	m = press(t, m, sized(100, 30), key("enter"))

	m = press(t, m, key("one"), key("enter"), key("two"), key("enter"))
	m.now = func() time.Time { return frozen.Add(-time.Hour) }
	m = press(t, m, key("three"), key("enter"))

	msgs := m.Messages("dana")
	require.GreaterOrEqual(t, len(msgs), 3)
	tail := msgs[len(msgs)-3:]
	assert.Equal(t, frozen.UnixMilli(), tail[0].ID)
	assert.Equal(t, tail[0].ID+1, tail[1].ID)
	assert.Equal(t, tail[1].ID+1, tail[2].ID)
}

func TestEscGoesBackOnNarrowTerminal(t *testing.T) {
	m := press(t, New(), sized(60, 24), key("down"), key("enter"))
	require.Equal(t, "pat", m.ActiveContact())
	assert.Contains(t, m.View(), "Pat Okafor")
	assert.NotContains(t, m.View(), "Chats")

	m = press(t, m, key("esc"))
	assert.False(t, m.InThread())
	assert.Empty(t, m.ActiveContact())
	assert.Contains(t, m.View(), "Chats")
}

func TestEscKeepsThreadOnWideTerminal(t *testing.T) {
	m := press(t, New(), sized(120, 30), key("enter"), key("esc"))
	assert.False(t, m.InThread())
	assert.Equal(t, "dana", m.ActiveContact())

	// typing in the list does not reach the input
	m = press(t, m, key("j"))
	assert.Empty(t, m.Input())
	assert.Equal(t, 1, m.Selected())
}

func TestQuitKeys(t *testing.T) {
	m := New()

	_, cmd := m.Update(key("ctrl+c"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	_, cmd = m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestEmptyContactList(t *testing.T) {
	m := press(t, NewWithData(nil, nil), sized(100, 30), key("enter"))
	assert.False(t, m.InThread())
	assert.True(t, strings.Contains(m.View(), "No contacts."))
}

func TestFormatRelative(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, "now", FormatRelative(now.Add(-10*time.Second), now))
	assert.Equal(t, "5m", FormatRelative(now.Add(-5*time.Minute), now))
	assert.Equal(t, "13:00", FormatRelative(now.Add(-2*time.Hour), now))
	assert.Equal(t, "Yesterday", FormatRelative(now.Add(-30*time.Hour), now))
	assert.Equal(t, "Mar 1", FormatRelative(now.Add(-9*24*time.Hour), now))
}
