package export

import (
	"fmt"
	"sync"
	"time"

	"demoreport/pkg/contracts/domain"
)

// State is a position in the export state machine
type State string

const (
	StateStart            State = "start"
	StateIdentityResolved State = "identity_resolved"
	StateAnalyzing        State = "analyzing"
	StateCacheLoading     State = "cache_loading"
	StateModelReady       State = "model_ready"
	StateGenerating       State = "generating"
	StateDone             State = "done"
	StateFailed           State = "failed"
	StateCancelled        State = "cancelled"
)

// Terminal reports whether no transition leaves s
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed || s == StateCancelled
}

var transitions = map[State][]State{
	StateStart:            {StateIdentityResolved},
	StateIdentityResolved: {StateAnalyzing, StateCacheLoading},
	StateAnalyzing:        {StateModelReady},
	// cache_loading falls back to analyzing under ReanalyzeOnCacheError
	StateCacheLoading: {StateModelReady, StateAnalyzing},
	StateModelReady:   {StateGenerating},
	StateGenerating:   {StateDone},
}

// canTransition reports whether from -> to is a legal move. Every
// non-terminal state may fail or be cancelled.
func canTransition(from, to State) bool {
	if from.Terminal() {
		return false
	}
	if to == StateFailed || to == StateCancelled {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Branch is the way the match model was obtained
type Branch string

const (
	BranchNone    Branch = ""
	BranchAnalyze Branch = "analyze"
	BranchCache   Branch = "cache"
)

// Transition records one state change
type Transition struct {
	From State     `json:"from"`
	To   State     `json:"to"`
	At   time.Time `json:"at"`
}

// SheetStatus is the progress of one sheet generator
type SheetStatus string

const (
	SheetStatusPending   SheetStatus = "pending"
	SheetStatusActive    SheetStatus = "active"
	SheetStatusCompleted SheetStatus = "completed"
	SheetStatusFailed    SheetStatus = "failed"
)

// SheetState represents the state of one sheet generator
type SheetState struct {
	Name      string      `json:"name"`
	Index     int         `json:"index"`
	Status    SheetStatus `json:"status"`
	StartTime *time.Time  `json:"start_time,omitempty"`
	EndTime   *time.Time  `json:"end_time,omitempty"`
	Rows      int         `json:"rows"`
	Error     error       `json:"error,omitempty"`
}

// Duration returns how long the generator ran
func (s *SheetState) Duration() time.Duration {
	if s.StartTime == nil || s.EndTime == nil {
		return 0
	}
	return s.EndTime.Sub(*s.StartTime)
}

// RunState tracks one export run. It is safe for concurrent readers while
// the run updates it.
type RunState struct {
	mu  sync.RWMutex
	now func() time.Time

	ID        string               `json:"id"`
	DemoPath  string               `json:"demo_path"`
	Identity  domain.MatchIdentity `json:"identity,omitempty"`
	State     State                `json:"state"`
	Branch    Branch               `json:"branch,omitempty"`
	CacheHit  bool                 `json:"cache_hit"`
	StartTime time.Time            `json:"start_time"`
	EndTime   *time.Time           `json:"end_time,omitempty"`
	History   []Transition         `json:"history"`
	Sheets    []*SheetState        `json:"sheets"`
	Error     error                `json:"error,omitempty"`
}

// NewRunState creates a run in the start state
func NewRunState(id, demoPath string, now func() time.Time) *RunState {
	if now == nil {
		now = time.Now
	}
	return &RunState{
		now:       now,
		ID:        id,
		DemoPath:  demoPath,
		State:     StateStart,
		StartTime: now(),
	}
}

// Transition moves the run to the next state
func (r *RunState) Transition(to State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !canTransition(r.State, to) {
		return fmt.Errorf("illegal export transition %s -> %s", r.State, to)
	}
	at := r.now()
	r.History = append(r.History, Transition{From: r.State, To: to, At: at})
	r.State = to
	if to.Terminal() {
		r.EndTime = &at
	}
	return nil
}

// Fail moves the run to the failed state and records err
func (r *RunState) Fail(err error) {
	if r.Transition(StateFailed) == nil {
		r.mu.Lock()
		r.Error = err
		r.mu.Unlock()
	}
}

// Cancel moves the run to the cancelled state
func (r *RunState) Cancel(err error) {
	if r.Transition(StateCancelled) == nil {
		r.mu.Lock()
		r.Error = err
		r.mu.Unlock()
	}
}

// Current returns the current state
func (r *RunState) Current() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.State
}

func (r *RunState) setIdentity(id domain.MatchIdentity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Identity = id
}

func (r *RunState) setBranch(b Branch, cacheHit bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Branch = b
	r.CacheHit = cacheHit
}

// planSheets registers every sheet as pending
func (r *RunState) planSheets(names []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Sheets = make([]*SheetState, len(names))
	for i, name := range names {
		r.Sheets[i] = &SheetState{Name: name, Index: i, Status: SheetStatusPending}
	}
}

func (r *RunState) startSheet(i int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	r.Sheets[i].Status = SheetStatusActive
	r.Sheets[i].StartTime = &now
}

func (r *RunState) completeSheet(i, rows int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	r.Sheets[i].Status = SheetStatusCompleted
	r.Sheets[i].EndTime = &now
	r.Sheets[i].Rows = rows
}

func (r *RunState) failSheet(i int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	r.Sheets[i].Status = SheetStatusFailed
	r.Sheets[i].EndTime = &now
	r.Sheets[i].Error = err
}

// SheetsCompleted returns the number of finished sheets
func (r *RunState) SheetsCompleted() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, s := range r.Sheets {
		if s.Status == SheetStatusCompleted {
			n++
		}
	}
	return n
}

// Visited returns the states the run went through, in order
func (r *RunState) Visited() []State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	states := []State{StateStart}
	for _, t := range r.History {
		states = append(states, t.To)
	}
	return states
}

// Duration returns the run duration so far
func (r *RunState) Duration() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.EndTime != nil {
		return r.EndTime.Sub(r.StartTime)
	}
	return r.now().Sub(r.StartTime)
}

// Clone creates a deep copy of the run state
func (r *RunState) Clone() *RunState {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clone := &RunState{
		now:       r.now,
		ID:        r.ID,
		DemoPath:  r.DemoPath,
		Identity:  r.Identity,
		State:     r.State,
		Branch:    r.Branch,
		CacheHit:  r.CacheHit,
		StartTime: r.StartTime,
		Error:     r.Error,
		History:   append([]Transition(nil), r.History...),
	}
	if r.EndTime != nil {
		end := *r.EndTime
		clone.EndTime = &end
	}
	clone.Sheets = make([]*SheetState, len(r.Sheets))
	for i, s := range r.Sheets {
		sc := *s
		clone.Sheets[i] = &sc
	}
	return clone
}
