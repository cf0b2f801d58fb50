// Package chatview is a terminal chat screen: a contact list and a message
// thread, side by side on wide terminals and one at a time on narrow ones.
// Sends are local only; nothing here talks to a backend.
package chatview

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// TwoPaneMinWidth is the narrowest terminal that shows both panes.
const TwoPaneMinWidth = 80

const listWidth = 30

// Delivery states of an own message.
const (
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
)

type Contact struct {
	ID       string
	Name     string
	Online   bool
	LastSeen string
}

type Message struct {
	ID     int64
	FromMe bool
	Text   string
	Time   time.Time
	Status string
}

type pane int

const (
	paneList pane = iota
	paneThread
)

type Model struct {
	contacts []Contact
	threads  map[string][]Message
	selected int
	active   string
	focus    pane

	input    textinput.Model
	viewport viewport.Model
	width    int
	height   int

	lastID int64
	now    func() time.Time
}

// New builds a model seeded with mock data.
func New() Model {
	now := time.Now()
	return NewWithData(MockContacts(), MockThreads(now))
}

func NewWithData(contacts []Contact, threads map[string][]Message) Model {
	in := textinput.New()
	in.Placeholder = "Type a message"
	in.CharLimit = 5000
	in.Width = 40

	if threads == nil {
		threads = make(map[string][]Message)
	}
	m := Model{
		contacts: contacts,
		threads:  threads,
		input:    in,
		viewport: viewport.New(40, 10),
		width:    TwoPaneMinWidth,
		height:   24,
		now:      time.Now,
	}
	for _, msgs := range threads {
		for _, msg := range msgs {
			if msg.ID > m.lastID {
				m.lastID = msg.ID
			}
		}
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// TwoPane reports whether both panes are on screen.
func (m Model) TwoPane() bool { return m.width >= TwoPaneMinWidth }

// ActiveContact is the id of the open thread, or "".
func (m Model) ActiveContact() string { return m.active }

// Selected is the index of the highlighted contact.
func (m Model) Selected() int { return m.selected }

// InThread reports whether keyboard focus is on the thread pane.
func (m Model) InThread() bool { return m.focus == paneThread }

func (m Model) Input() string { return m.input.Value() }

// Messages returns the thread with contactID.
func (m Model) Messages(contactID string) []Message {
	return m.threads[contactID]
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.focus == paneThread {
			return m.updateThread(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if m.selected < len(m.contacts)-1 {
			m.selected++
		}
	case "enter", "l", "right":
		if len(m.contacts) == 0 {
			return m, nil
		}
		return m, m.open(m.contacts[m.selected].ID)
	}
	return m, nil
}

func (m Model) updateThread(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.focus = paneList
		m.input.Blur()
		if !m.TwoPane() {
			m.active = ""
		}
		return m, nil
	case tea.KeyEnter:
		m.send(m.input.Value())
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) open(contactID string) tea.Cmd {
	if m.active != contactID {
		m.input.Reset()
	}
	m.active = contactID
	m.focus = paneThread
	m.refresh()
	return m.input.Focus()
}

// send appends text to the open thread as an own message. Blank input is
// ignored.
func (m *Model) send(text string) {
	text = strings.TrimSpace(text)
	if text == "" || m.active == "" {
		return
	}
	now := m.now()
	m.threads[m.active] = append(m.threads[m.active], Message{
		ID:     m.nextID(now),
		FromMe: true,
		Text:   text,
		Time:   now,
		Status: StatusSent,
	})
	m.input.Reset()
	m.refresh()
}

// nextID derives an id from the clock, bumped past the last one handed out
// so ids stay strictly increasing when the clock stalls or steps back.
func (m *Model) nextID(now time.Time) int64 {
	id := now.UnixMilli()
	if id <= m.lastID {
		id = m.lastID + 1
	}
	m.lastID = id
	return id
}

func (m *Model) resize() {
	threadWidth := m.width - 2
	if m.TwoPane() {
		threadWidth = m.width - listWidth - 4
	}
	// header, footer and borders
	vpHeight := m.height - 7
	if vpHeight < 1 {
		vpHeight = 1
	}
	if threadWidth < 10 {
		threadWidth = 10
	}
	m.viewport.Width = threadWidth - 2
	m.viewport.Height = vpHeight
	m.input.Width = threadWidth - 6
	m.refresh()
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderThread())
	m.viewport.GotoBottom()
}
