// Package conversation turns narrated development text into typed monitoring
// events by matching messages against an ordered pattern table.
package conversation

import (
	"sync"
	"time"

	"github.com/devpilot-io/devpilot/internal/event"
)

const maxMessages = 50

// Message is one observed conversation message.
type Message struct {
	Role      string
	Content   string
	Timestamp time.Time
}

// Monitor matches incoming messages against the pattern table and keeps a
// bounded ring of recent messages for context. Safe for concurrent use.
type Monitor struct {
	mu       sync.Mutex
	rules    []PatternRule
	messages []Message
	stopped  bool
	now      func() time.Time
}

// New returns a monitor using the default pattern table.
func New() *Monitor {
	return NewWithRules(DefaultRules())
}

// NewWithRules returns a monitor evaluating the given rules in order.
func NewWithRules(rules []PatternRule) *Monitor {
	return &Monitor{rules: rules, now: time.Now}
}

// ProcessMessage records the message and returns the events it triggers, in
// pattern-table order. Each rule fires at most once per message; distinct
// rules may fire together. File mentions are collected into a single
// trailing files_mentioned event. Returns nil after Stop.
//
// Events carry no project path; the caller attributes them to the active
// project before republishing.
func (m *Monitor) ProcessMessage(content, role string) []event.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return nil
	}

	now := m.now()
	m.messages = append(m.messages, Message{Role: role, Content: content, Timestamp: now})
	if len(m.messages) > maxMessages {
		m.messages = m.messages[len(m.messages)-maxMessages:]
	}

	var events []event.Event
	for _, rule := range m.rules {
		for _, re := range rule.Patterns {
			loc := re.FindStringIndex(content)
			if loc == nil {
				continue
			}
			events = append(events, event.Event{
				Type:        rule.Type,
				Timestamp:   now,
				Description: rule.Description,
				Conversation: &event.ConversationPayload{
					Role:    role,
					Excerpt: content[loc[0]:loc[1]],
				},
			})
			break
		}
	}

	if files := extractFiles(content); len(files) > 0 {
		events = append(events, event.Event{
			Type:         event.TypeFilesMentioned,
			Timestamp:    now,
			Description:  "Files referenced in conversation",
			Files:        files,
			Conversation: &event.ConversationPayload{Role: role},
		})
	}
	return events
}

// RecentContext returns up to n most recent messages, oldest first.
func (m *Monitor) RecentContext(n int) []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n <= 0 {
		return nil
	}
	if n > len(m.messages) {
		n = len(m.messages)
	}
	out := make([]Message, n)
	copy(out, m.messages[len(m.messages)-n:])
	return out
}

// Stop halts further emission. Idempotent; ProcessMessage returns nil after.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
}
