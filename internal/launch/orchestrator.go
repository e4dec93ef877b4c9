package launch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/coppebars/rslauncher/core/state/launcher"
	"github.com/coppebars/rslauncher/internal/nativecore"
	"github.com/coppebars/rslauncher/internal/pubsub"
	"github.com/coppebars/rslauncher/internal/runtime"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

//go:generate mockgen -destination=mocks/mock_core.go -package=mocks github.com/coppebars/rslauncher/internal/launch Core

// Core is the part of the native core the orchestrator drives.
type Core interface {
	Prepare(ctx context.Context, provider launcher.Provider, req *nativecore.PrepareRequest) error
	Launch(ctx context.Context, provider launcher.Provider, req *nativecore.LaunchRequest) error
}

type EventSource interface {
	Subscribe(channel string, handler func(*nativecore.Event)) func()
}

// Request is one launch of an instance.
type Request struct {
	Instance *launcher.Instance
	Root     string
	Vars     map[string]string
	// LogbackID correlates prepare events and game output with this launch. A fresh
	// one is generated when empty.
	LogbackID string
}

// Notification is a user-visible report of a failed launch.
type Notification struct {
	Title      string `json:"title"`
	Message    string `json:"message"`
	InstanceID string `json:"instance_id"`
}

// Orchestrator runs the prepare then launch pipeline of instances and mirrors its
// progress into the runtime tracker. At most one launch per instance is in flight.
type Orchestrator struct {
	core          Core
	events        EventSource
	tracker       *runtime.Tracker
	notifications pubsub.Publisher[Notification]
	metrics       *Metrics

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup

	newID func() string
}

func NewOrchestrator(core Core, events EventSource, tracker *runtime.Tracker, notifications pubsub.Publisher[Notification], metrics *Metrics) *Orchestrator {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Orchestrator{
		core:          core,
		events:        events,
		tracker:       tracker,
		notifications: notifications,
		metrics:       metrics,
		cancels:       make(map[string]context.CancelFunc),
		newID:         uuid.NewString,
	}
}

// Run launches the instance and returns once the game has exited or a step failed.
func (o *Orchestrator) Run(ctx context.Context, req *Request) error {
	if err := o.admit(req); err != nil {
		return err
	}
	return o.execute(ctx, req)
}

// Start admits the launch and runs it in the background. Failures are reported as
// notifications. It returns the logback id of the launch.
func (o *Orchestrator) Start(ctx context.Context, req *Request) (string, error) {
	if err := o.admit(req); err != nil {
		return "", err
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		// the launch outlives the caller
		o.execute(context.WithoutCancel(ctx), req)
	}()
	return req.LogbackID, nil
}

// Wait blocks until every launch started with Start has finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Cancel aborts the in-flight launch of an instance. It reports whether there was one.
func (o *Orchestrator) Cancel(instanceID string) bool {
	o.mu.Lock()
	cancel, ok := o.cancels[instanceID]
	o.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// CancelAll aborts every in-flight launch.
func (o *Orchestrator) CancelAll() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, cancel := range o.cancels {
		cancel()
	}
}

func (o *Orchestrator) admit(req *Request) error {
	if req == nil || req.Instance == nil {
		return ErrNotReady
	}
	if !o.tracker.Acquire(req.Instance.ID) {
		return ErrAlreadyRunning
	}
	if req.LogbackID == "" {
		req.LogbackID = o.newID()
	}
	return nil
}

func (o *Orchestrator) execute(ctx context.Context, req *Request) (err error) {
	inst := req.Instance
	id := inst.ID
	provider := inst.Version.Provider

	ctx, cancel := context.WithCancel(ctx)
	o.mu.Lock()
	o.cancels[id] = cancel
	o.mu.Unlock()
	o.metrics.InFlight.Inc()

	o.tracker.SetRunning(id, true)
	o.tracker.SetPhase(id, runtime.PhasePreparing)
	unsubscribe := o.events.Subscribe(nativecore.ChannelPrepare, func(e *nativecore.Event) {
		o.onPrepareEvent(id, req.LogbackID, e)
	})

	defer func() {
		unsubscribe()
		if err != nil {
			o.tracker.SetPhase(id, runtime.PhaseError)
			o.tracker.SetError(id, err.Error())
			o.notify(id, err)
		}
		o.tracker.SetRunning(id, false)
		o.tracker.SetPhase(id, runtime.PhaseIdle)

		o.mu.Lock()
		delete(o.cancels, id)
		o.mu.Unlock()
		cancel()

		o.metrics.InFlight.Dec()
		o.metrics.Launches.WithLabelValues(string(provider), outcome(err)).Inc()
		o.tracker.Release(id)
	}()

	started := time.Now()
	err = o.core.Prepare(ctx, provider, &nativecore.PrepareRequest{
		UID:  req.LogbackID,
		ID:   inst.Version.Vid,
		Root: req.Root,
	})
	o.metrics.PrepareDuration.WithLabelValues(string(provider)).Observe(time.Since(started).Seconds())
	if err != nil {
		return &PrepareFailed{InstanceID: id, Err: err}
	}

	o.tracker.SetPhase(id, runtime.PhaseLaunching)
	log.Info().Msgf("Launching instance %s (%s) with logback id %s", inst.Name, inst.Version, req.LogbackID)
	err = o.core.Launch(ctx, provider, &nativecore.LaunchRequest{
		UID:       req.LogbackID,
		ID:        inst.Version.Vid,
		Root:      req.Root,
		Vars:      req.Vars,
		Alloc:     inst.Alloc,
		ExtraArgs: inst.ExtraArgs,
		OnStarted: func(pid int) {
			o.tracker.SetPhase(id, runtime.PhaseRunning)
		},
	})
	if err != nil {
		return &LaunchFailed{InstanceID: id, Err: err}
	}

	log.Info().Msgf("Instance %s exited", inst.Name)
	return nil
}

func (o *Orchestrator) onPrepareEvent(instanceID, uid string, e *nativecore.Event) {
	pe, ok := e.Payload.(*nativecore.PrepareEvent)
	if !ok || (pe.UID != "" && pe.UID != uid) {
		return
	}
	if percent, ok := Progress(pe); ok {
		o.tracker.SetProgress(instanceID, percent)
	}
}

// Progress converts the finish payload of a prepare event to a percentage. Events
// without one do not change progress.
func Progress(e *nativecore.PrepareEvent) (float64, bool) {
	if e == nil || e.Finish == nil || e.Finish.Total <= 0 {
		return 0, false
	}
	return float64(e.Finish.Progress) / float64(e.Finish.Total) * 100, true
}

func (o *Orchestrator) notify(instanceID string, err error) {
	title := "Launch failed"
	if errors.Is(err, context.Canceled) {
		title = "Launch cancelled"
	}
	log.Error().Err(err).Msgf("%s for instance %s", title, instanceID)

	if o.notifications == nil {
		return
	}
	perr := o.notifications.PublishEvent(&Notification{
		Title:      title,
		Message:    err.Error(),
		InstanceID: instanceID,
	})
	if perr != nil {
		log.Error().Err(perr).Msg("error publishing launch notification")
	}
}
