package launch

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/coppebars/rslauncher/core/state/launcher"
	"github.com/coppebars/rslauncher/internal/launch/mocks"
	"github.com/coppebars/rslauncher/internal/nativecore"
	"github.com/coppebars/rslauncher/internal/pubsub"
	"github.com/coppebars/rslauncher/internal/runtime"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type statusRecorder struct {
	mu     sync.Mutex
	events []runtime.Status
}

func (r *statusRecorder) ConsumeEvent(e *runtime.StatusEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *e.Status)
	return nil
}

// runningChanges returns the running flag every time it changed.
func (r *statusRecorder) runningChanges() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := []bool{false}
	for _, s := range r.events {
		if s.Running != res[len(res)-1] {
			res = append(res, s.Running)
		}
	}
	return res
}

func (r *statusRecorder) phases() []runtime.Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []runtime.Phase
	for _, s := range r.events {
		if len(res) == 0 || res[len(res)-1] != s.Phase {
			res = append(res, s.Phase)
		}
	}
	return res
}

type notificationRecorder struct {
	mu   sync.Mutex
	seen []Notification
}

func (r *notificationRecorder) ConsumeEvent(n *Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, *n)
	return nil
}

type testEnv struct {
	core          *mocks.MockCore
	bus           *nativecore.Bus
	tracker       *runtime.Tracker
	statuses      *statusRecorder
	notifications *notificationRecorder
	metrics       *Metrics
	orchestrator  *Orchestrator
}

func newTestEnv(t *testing.T) *testEnv {
	ctrl := gomock.NewController(t)

	statusPublisher := pubsub.NewSimplePublisher[runtime.StatusEvent]()
	statuses := &statusRecorder{}
	statusPublisher.AddSubscriber(statuses)

	notificationPublisher := pubsub.NewSimplePublisher[Notification]()
	notifications := &notificationRecorder{}
	notificationPublisher.AddSubscriber(notifications)

	env := &testEnv{
		core:          mocks.NewMockCore(ctrl),
		bus:           nativecore.NewBus(),
		tracker:       runtime.NewTracker(statusPublisher),
		statuses:      statuses,
		notifications: notifications,
		metrics:       NewMetrics(prometheus.NewRegistry()),
	}
	env.orchestrator = NewOrchestrator(env.core, env.bus, env.tracker, notificationPublisher, env.metrics)
	env.orchestrator.newID = func() string { return "logback-1" }
	return env
}

func testInstance() *launcher.Instance {
	return &launcher.Instance{
		ID:        "inst-1",
		Name:      "Survival",
		Version:   launcher.Version{Provider: launcher.ProviderMojang, Vid: "1.20.1", Mcv: "1.20.1"},
		Path:      "/games/instances/survival",
		Screen:    launcher.Resolution(1280, 720),
		Alloc:     4096,
		ExtraArgs: []string{"-XX:+UseG1GC"},
	}
}

func testRequest() *Request {
	return &Request{
		Instance: testInstance(),
		Root:     "/games",
		Vars:     map[string]string{"auth_player_name": "Steve"},
	}
}

func TestRunSuccess(t *testing.T) {
	env := newTestEnv(t)

	gomock.InOrder(
		env.core.EXPECT().
			Prepare(gomock.Any(), launcher.ProviderMojang, &nativecore.PrepareRequest{UID: "logback-1", ID: "1.20.1", Root: "/games"}).
			DoAndReturn(func(ctx context.Context, _ launcher.Provider, _ *nativecore.PrepareRequest) error {
				assert.True(t, env.tracker.Running("inst-1"))
				return nil
			}),
		env.core.EXPECT().
			Launch(gomock.Any(), launcher.ProviderMojang, gomock.Any()).
			DoAndReturn(func(ctx context.Context, _ launcher.Provider, req *nativecore.LaunchRequest) error {
				assert.Equal(t, "logback-1", req.UID)
				assert.Equal(t, "1.20.1", req.ID)
				assert.Equal(t, "/games", req.Root)
				assert.Equal(t, 4096, req.Alloc)
				assert.Equal(t, []string{"-XX:+UseG1GC"}, req.ExtraArgs)
				assert.Equal(t, "Steve", req.Vars["auth_player_name"])
				req.OnStarted(42)
				assert.Equal(t, runtime.PhaseRunning, env.tracker.Status("inst-1").Phase)
				return nil
			}),
	)

	err := env.orchestrator.Run(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, []bool{false, true, false}, env.statuses.runningChanges())
	assert.Equal(t, []runtime.Phase{
		runtime.PhaseIdle,
		runtime.PhasePreparing,
		runtime.PhaseLaunching,
		runtime.PhaseRunning,
		runtime.PhaseIdle,
	}, env.statuses.phases())

	status := env.tracker.Status("inst-1")
	assert.False(t, status.Running)
	assert.Empty(t, status.LastError)
	assert.Equal(t, 0, env.tracker.InFlight())
	assert.Empty(t, env.notifications.seen)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.Launches.WithLabelValues("mojang", "ok")))
	assert.Equal(t, 0.0, testutil.ToFloat64(env.metrics.InFlight))
}

func TestRemovedDuringLaunchLeavesNoStatus(t *testing.T) {
	env := newTestEnv(t)

	env.core.EXPECT().Prepare(gomock.Any(), launcher.ProviderMojang, gomock.Any()).Return(nil)
	env.core.EXPECT().
		Launch(gomock.Any(), launcher.ProviderMojang, gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ launcher.Provider, req *nativecore.LaunchRequest) error {
			req.OnStarted(42)
			env.tracker.Forget("inst-1")
			return nil
		})

	require.NoError(t, env.orchestrator.Run(context.Background(), testRequest()))
	assert.Len(t, env.tracker.Snapshot(), 0)
	assert.Equal(t, 0, env.tracker.InFlight())
}

func TestRunNotReady(t *testing.T) {
	env := newTestEnv(t)

	err := env.orchestrator.Run(context.Background(), &Request{Root: "/games"})
	require.ErrorIs(t, err, ErrNotReady)
	err = env.orchestrator.Run(context.Background(), nil)
	require.ErrorIs(t, err, ErrNotReady)

	assert.Empty(t, env.tracker.Snapshot())
	assert.Empty(t, env.statuses.events)
	assert.Empty(t, env.notifications.seen)
}

func TestPrepareFailureSkipsLaunch(t *testing.T) {
	env := newTestEnv(t)

	env.core.EXPECT().
		Prepare(gomock.Any(), launcher.ProviderMojang, gomock.Any()).
		Return(errors.New("checksum mismatch"))

	err := env.orchestrator.Run(context.Background(), testRequest())
	var prepareErr *PrepareFailed
	require.ErrorAs(t, err, &prepareErr)
	assert.Equal(t, "inst-1", prepareErr.InstanceID)

	assert.Equal(t, []bool{false, true, false}, env.statuses.runningChanges())
	assert.Contains(t, env.statuses.phases(), runtime.PhaseError)

	status := env.tracker.Status("inst-1")
	assert.Equal(t, runtime.PhaseIdle, status.Phase)
	assert.Contains(t, status.LastError, "checksum mismatch")

	require.Len(t, env.notifications.seen, 1)
	assert.Equal(t, "Launch failed", env.notifications.seen[0].Title)
	assert.Equal(t, "inst-1", env.notifications.seen[0].InstanceID)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.Launches.WithLabelValues("mojang", "prepare_failed")))
}

func TestLaunchFailure(t *testing.T) {
	env := newTestEnv(t)

	env.core.EXPECT().Prepare(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	env.core.EXPECT().Launch(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("java not found"))

	err := env.orchestrator.Run(context.Background(), testRequest())
	var launchErr *LaunchFailed
	require.ErrorAs(t, err, &launchErr)

	assert.False(t, env.tracker.Running("inst-1"))
	assert.Equal(t, 0, env.tracker.InFlight())
	require.Len(t, env.notifications.seen, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.Launches.WithLabelValues("mojang", "launch_failed")))

	// a later launch starts from a clean error
	env.core.EXPECT().Prepare(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, launcher.Provider, *nativecore.PrepareRequest) error {
			assert.Empty(t, env.tracker.Status("inst-1").LastError)
			return nil
		})
	env.core.EXPECT().Launch(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	require.NoError(t, env.orchestrator.Run(context.Background(), testRequest()))
}

func TestPrepareProgress(t *testing.T) {
	env := newTestEnv(t)

	env.core.EXPECT().Prepare(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ launcher.Provider, req *nativecore.PrepareRequest) error {
			env.bus.Emit(nativecore.ChannelPrepare, &nativecore.PrepareEvent{
				UID:    req.UID,
				Finish: &nativecore.FinishPayload{Progress: 50, Total: 200},
			})
			require.NotNil(t, env.tracker.Status("inst-1").Progress)
			assert.Equal(t, 25.0, *env.tracker.Status("inst-1").Progress)

			// no finish, no change
			env.bus.Emit(nativecore.ChannelPrepare, &nativecore.PrepareEvent{
				UID:   req.UID,
				Chunk: &nativecore.ChunkPayload{Path: "client.jar", Size: 10},
			})
			// another launch
			env.bus.Emit(nativecore.ChannelPrepare, &nativecore.PrepareEvent{
				UID:    "other",
				Finish: &nativecore.FinishPayload{Progress: 1, Total: 2},
			})
			assert.Equal(t, 25.0, *env.tracker.Status("inst-1").Progress)
			return nil
		})
	env.core.EXPECT().Launch(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	require.NoError(t, env.orchestrator.Run(context.Background(), testRequest()))
	assert.Nil(t, env.tracker.Status("inst-1").Progress)

	// the subscription ends with the launch
	env.bus.Emit(nativecore.ChannelPrepare, &nativecore.PrepareEvent{
		UID:    "logback-1",
		Finish: &nativecore.FinishPayload{Progress: 1, Total: 2},
	})
	assert.Nil(t, env.tracker.Status("inst-1").Progress)
}

func TestProgress(t *testing.T) {
	p, ok := Progress(&nativecore.PrepareEvent{Finish: &nativecore.FinishPayload{Progress: 50, Total: 200}})
	require.True(t, ok)
	assert.Equal(t, 25.0, p)

	_, ok = Progress(&nativecore.PrepareEvent{Start: &nativecore.StartPayload{}})
	assert.False(t, ok)
	_, ok = Progress(&nativecore.PrepareEvent{Finish: &nativecore.FinishPayload{}})
	assert.False(t, ok)
}

func TestSecondLaunchIsRejected(t *testing.T) {
	env := newTestEnv(t)

	env.core.EXPECT().Prepare(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, launcher.Provider, *nativecore.PrepareRequest) error {
			err := env.orchestrator.Run(context.Background(), testRequest())
			assert.ErrorIs(t, err, ErrAlreadyRunning)
			return nil
		})
	env.core.EXPECT().Launch(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	require.NoError(t, env.orchestrator.Run(context.Background(), testRequest()))
	assert.Empty(t, env.notifications.seen)
}

func TestCancel(t *testing.T) {
	env := newTestEnv(t)
	assert.False(t, env.orchestrator.Cancel("inst-1"))

	env.core.EXPECT().Prepare(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ launcher.Provider, _ *nativecore.PrepareRequest) error {
			assert.True(t, env.orchestrator.Cancel("inst-1"))
			<-ctx.Done()
			return ctx.Err()
		})

	err := env.orchestrator.Run(context.Background(), testRequest())
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, env.tracker.Running("inst-1"))

	require.Len(t, env.notifications.seen, 1)
	assert.Equal(t, "Launch cancelled", env.notifications.seen[0].Title)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.Launches.WithLabelValues("mojang", "cancelled")))
}

func TestStart(t *testing.T) {
	env := newTestEnv(t)

	env.core.EXPECT().Prepare(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	env.core.EXPECT().Launch(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("exit 1"))

	ctx, cancel := context.WithCancel(context.Background())
	id, err := env.orchestrator.Start(ctx, testRequest())
	require.NoError(t, err)
	assert.Equal(t, "logback-1", id)
	// the caller going away does not stop the launch
	cancel()

	env.orchestrator.Wait()
	assert.False(t, env.tracker.Running("inst-1"))
	require.Len(t, env.notifications.seen, 1)
	assert.Equal(t, "Launch failed", env.notifications.seen[0].Title)

	_, err = env.orchestrator.Start(context.Background(), &Request{})
	require.ErrorIs(t, err, ErrNotReady)
}
