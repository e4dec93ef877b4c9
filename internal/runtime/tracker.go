package runtime

import (
	"sort"
	"sync"

	"github.com/coppebars/rslauncher/internal/pubsub"
	"github.com/rs/zerolog/log"
)

type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhasePreparing Phase = "preparing"
	PhaseLaunching Phase = "launching"
	PhaseRunning   Phase = "running"
	PhaseError     Phase = "error"
)

// Status is the transient state of one instance. It is never persisted.
type Status struct {
	InstanceID string   `json:"instance_id"`
	Running    bool     `json:"running"`
	Phase      Phase    `json:"phase"`
	Progress   *float64 `json:"progress,omitempty"`
	LastError  string   `json:"last_error,omitempty"`
}

func (s *Status) copy() *Status {
	c := *s
	if s.Progress != nil {
		p := *s.Progress
		c.Progress = &p
	}
	return &c
}

// StatusEvent is published after every change. Removed is set when the entry was
// dropped because its instance no longer exists.
type StatusEvent struct {
	Status  *Status `json:"status"`
	Removed bool    `json:"removed,omitempty"`
}

// Tracker is a side table of runtime status keyed by instance id. Entries are created
// lazily on the first update.
type Tracker struct {
	mu       sync.Mutex
	statuses map[string]*Status
	inFlight map[string]struct{}
	// forgotten while a launch was in flight; updates are dropped until Release
	gone map[string]struct{}

	publisher pubsub.Publisher[StatusEvent]
}

func NewTracker(publisher pubsub.Publisher[StatusEvent]) *Tracker {
	return &Tracker{
		statuses:  make(map[string]*Status),
		inFlight:  make(map[string]struct{}),
		gone:      make(map[string]struct{}),
		publisher: publisher,
	}
}

func (t *Tracker) entry(id string) *Status {
	s, ok := t.statuses[id]
	if !ok {
		s = &Status{InstanceID: id, Phase: PhaseIdle}
		t.statuses[id] = s
	}
	return s
}

// update applies f under the lock and publishes the result after releasing it.
func (t *Tracker) update(id string, f func(s *Status)) {
	t.mu.Lock()
	if _, ok := t.gone[id]; ok {
		t.mu.Unlock()
		return
	}
	s := t.entry(id)
	f(s)
	snapshot := s.copy()
	t.mu.Unlock()

	t.publish(&StatusEvent{Status: snapshot})
}

func (t *Tracker) publish(event *StatusEvent) {
	if t.publisher == nil {
		return
	}
	if err := t.publisher.PublishEvent(event); err != nil {
		log.Error().Err(err).Msgf("error publishing status of instance %s", event.Status.InstanceID)
	}
}

func (t *Tracker) SetRunning(id string, running bool) {
	t.update(id, func(s *Status) {
		s.Running = running
	})
}

func (t *Tracker) SetPhase(id string, phase Phase) {
	t.update(id, func(s *Status) {
		s.Phase = phase
		if phase == PhasePreparing {
			s.LastError = ""
		}
		if phase != PhasePreparing {
			s.Progress = nil
		}
	})
}

// SetProgress records the prepare progress as a percentage.
func (t *Tracker) SetProgress(id string, percent float64) {
	t.update(id, func(s *Status) {
		s.Progress = &percent
	})
}

func (t *Tracker) SetError(id string, msg string) {
	t.update(id, func(s *Status) {
		s.LastError = msg
	})
}

// Status returns a copy of the instance status. Instances never seen are idle.
func (t *Tracker) Status(id string) *Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.statuses[id]; ok {
		return s.copy()
	}
	return &Status{InstanceID: id, Phase: PhaseIdle}
}

func (t *Tracker) Running(id string) bool {
	return t.Status(id).Running
}

// Snapshot returns every known status ordered by instance id.
func (t *Tracker) Snapshot() []*Status {
	t.mu.Lock()
	res := make([]*Status, 0, len(t.statuses))
	for _, s := range t.statuses {
		res = append(res, s.copy())
	}
	t.mu.Unlock()

	sort.Slice(res, func(i, j int) bool {
		return res[i].InstanceID < res[j].InstanceID
	})
	return res
}

// Forget drops the entry of a removed instance. When a launch of it is still in flight,
// later updates are ignored so the entry is not recreated.
func (t *Tracker) Forget(id string) {
	t.mu.Lock()
	s, ok := t.statuses[id]
	delete(t.statuses, id)
	if _, running := t.inFlight[id]; running {
		t.gone[id] = struct{}{}
	}
	t.mu.Unlock()

	if ok {
		t.publish(&StatusEvent{Status: s.copy(), Removed: true})
	}
}

// Acquire marks a launch of the instance as in flight. It returns false when one
// already is.
func (t *Tracker) Acquire(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.inFlight[id]; ok {
		return false
	}
	t.inFlight[id] = struct{}{}
	return true
}

func (t *Tracker) Release(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.inFlight, id)
	delete(t.gone, id)
}

func (t *Tracker) InFlight() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inFlight)
}
