package llm

import (
	"context"
	"sync"
)

// defaultFakeContent keeps the fake provider usable standalone: it parses as
// a valid wait decision, so an offline daemon degrades instead of erroring.
const defaultFakeContent = `{"action":"wait","confidence":0.5,"reasoning":"Fake provider response","requires_approval":true}`

type fakeReply struct {
	content string
	err     error
}

// Fake is a scripted provider for tests and the `fake` config provider.
// Queued replies are consumed FIFO; an empty queue keeps answering a safe
// wait decision.
type Fake struct {
	mu     sync.Mutex
	queue  []fakeReply
	calls  [][]Message
	closed bool
}

func NewFake() *Fake { return &Fake{} }

func (f *Fake) Name() string { return "fake" }

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Enqueue scripts the next reply. Chainable.
func (f *Fake) Enqueue(content string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, fakeReply{content: content})
	return f
}

// EnqueueError scripts the next call to fail. Chainable.
func (f *Fake) EnqueueError(err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, fakeReply{err: err})
	return f
}

// Calls returns every message slice Complete has received.
func (f *Fake) Calls() [][]Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]Message, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *Fake) Complete(_ context.Context, msgs []Message) (*Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, msgs)

	if len(f.queue) == 0 {
		return &Response{Content: defaultFakeContent}, nil
	}
	next := f.queue[0]
	f.queue = f.queue[1:]
	if next.err != nil {
		return nil, next.err
	}
	return &Response{Content: next.content}, nil
}
