// Package aggregate correlates monitoring events into milestones and direct
// suggestions. Evaluation is deterministic: replaying the same ordered event
// sequence into a fresh aggregator yields the same output.
package aggregate

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/devpilot-io/devpilot/internal/event"
)

const (
	bufferCap       = 100
	fingerprintCap  = 256
	defaultLargeSet = 10
)

// ThresholdFor resolves the large-changeset threshold for a project. Nil
// uses the default for every project.
type ThresholdFor func(projectPath string) int

// Result is everything one AddEvent call produced.
type Result struct {
	Milestones  []event.Milestone
	Suggestions []event.Suggestion
}

type buffered struct {
	seq uint64
	ev  event.Event
}

// Aggregator keeps a bounded, ordered buffer of recent events and evaluates
// the milestone rules after every insertion. AddEvent is called from the
// manager's single processing path; the mutex makes Recent and Stats safe
// for the analysis goroutines.
type Aggregator struct {
	mu        sync.Mutex
	threshold ThresholdFor

	buf    []buffered
	seq    uint64
	counts map[event.Type]int
	seen   *lru.Cache[string, struct{}]
}

// New returns an empty aggregator. thresholdFor may be nil.
func New(thresholdFor ThresholdFor) *Aggregator {
	seen, _ := lru.New[string, struct{}](fingerprintCap)
	return &Aggregator{
		threshold: thresholdFor,
		counts:    map[event.Type]int{},
		seen:      seen,
	}
}

// AddEvent appends ev to the buffer (evicting the oldest entry beyond
// capacity) and returns the milestones and suggestions this insertion
// triggered.
func (a *Aggregator) AddEvent(ev event.Event) Result {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.seq++
	a.buf = append(a.buf, buffered{seq: a.seq, ev: ev})
	a.counts[ev.Type]++
	if len(a.buf) > bufferCap {
		a.counts[a.buf[0].ev.Type]--
		if a.counts[a.buf[0].ev.Type] == 0 {
			delete(a.counts, a.buf[0].ev.Type)
		}
		a.buf = a.buf[1:]
	}

	var res Result
	a.checkFeatureShipped(ev, &res)
	a.checkReleaseReady(ev, &res)
	a.checkLargeChangeset(ev, &res)
	return res
}

// feature_shipped: the buffer holds at least one each of tests_passing,
// docs_updated and feature_complete. Members are the earliest buffered event
// of each type, in buffer order.
func (a *Aggregator) checkFeatureShipped(trigger event.Event, res *Result) {
	required := []event.Type{event.TypeTestsPassing, event.TypeDocsUpdated, event.TypeFeatureComplete}
	var members []buffered
	for _, typ := range required {
		b, ok := a.earliest(typ)
		if !ok {
			return
		}
		members = append(members, b)
	}
	a.emit(event.MilestoneFeatureShipped, members, trigger, res)
}

// release_ready: at least three feature_complete events; members are the
// earliest three.
func (a *Aggregator) checkReleaseReady(trigger event.Event, res *Result) {
	var members []buffered
	for _, b := range a.buf {
		if b.ev.Type == event.TypeFeatureComplete {
			members = append(members, b)
			if len(members) == 3 {
				break
			}
		}
	}
	if len(members) < 3 {
		return
	}
	a.emit(event.MilestoneReleaseReady, members, trigger, res)
}

// A git_state_change with a large uncommitted file count suggests a commit
// immediately, independent of milestone state.
func (a *Aggregator) checkLargeChangeset(ev event.Event, res *Result) {
	if ev.Type != event.TypeGitStateChange || ev.GitState == nil {
		return
	}
	threshold := defaultLargeSet
	if a.threshold != nil {
		if t := a.threshold(ev.ProjectPath); t > 0 {
			threshold = t
		}
	}
	if ev.GitState.FileCount < threshold {
		return
	}
	res.Suggestions = append(res.Suggestions, event.Suggestion{
		Type:     event.SuggestCommit,
		Priority: event.PriorityMedium,
		Message:  fmt.Sprintf("%d uncommitted files in %s - consider committing", ev.GitState.FileCount, ev.ProjectPath),
		Action:   event.ActionCommit,
		Reason:   fmt.Sprintf("uncommitted file count reached %d (threshold %d)", ev.GitState.FileCount, threshold),
	})
}

func (a *Aggregator) emit(typ event.MilestoneType, members []buffered, trigger event.Event, res *Result) {
	sort.Slice(members, func(i, j int) bool { return members[i].seq < members[j].seq })

	fp := fingerprint(typ, members)
	if a.seen.Contains(fp) {
		return
	}
	a.seen.Add(fp, struct{}{})

	events := make([]event.Event, len(members))
	for i, m := range members {
		events[i] = m.ev
	}
	res.Milestones = append(res.Milestones, event.Milestone{
		Type:      typ,
		Events:    events,
		Timestamp: trigger.Timestamp,
	})
}

func (a *Aggregator) earliest(typ event.Type) (buffered, bool) {
	for _, b := range a.buf {
		if b.ev.Type == typ {
			return b, true
		}
	}
	return buffered{}, false
}

// fingerprint identifies a rule firing by its exact member set.
func fingerprint(typ event.MilestoneType, members []buffered) string {
	parts := make([]string, len(members)+1)
	parts[0] = string(typ)
	for i, m := range members {
		parts[i+1] = fmt.Sprintf("%d", m.seq)
	}
	return strings.Join(parts, ":")
}

// Stats describes the retained buffer.
type Stats struct {
	TotalEvents int
	EventTypes  map[event.Type]int
}

// Stats returns counts over the currently retained buffer.
func (a *Aggregator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	types := make(map[event.Type]int, len(a.counts))
	for k, v := range a.counts {
		types[k] = v
	}
	return Stats{TotalEvents: len(a.buf), EventTypes: types}
}

// Recent returns up to n newest buffered events, oldest first.
func (a *Aggregator) Recent(n int) []event.Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	if n <= 0 {
		return nil
	}
	if n > len(a.buf) {
		n = len(a.buf)
	}
	out := make([]event.Event, n)
	for i, b := range a.buf[len(a.buf)-n:] {
		out[i] = b.ev
	}
	return out
}

// Clear resets the aggregator to its initial state.
func (a *Aggregator) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.buf = nil
	a.seq = 0
	a.counts = map[event.Type]int{}
	a.seen.Purge()
}
