package dispatch_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/isometry/linear-agent-app/internal/credentials"
	"github.com/isometry/linear-agent-app/internal/dispatch"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingCapability struct {
	mu    sync.Mutex
	tasks []*dispatch.Task
	err   error
}

func (c *recordingCapability) Run(ctx context.Context, task *dispatch.Task) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasks = append(c.tasks, task)
	return c.err
}

func TestBackgroundScheduler_DetachesAndDrains(t *testing.T) {
	_inst := dispatch.NewBackgroundScheduler()
	ctx, cancel := context.WithCancel(context.Background())

	release := make(chan struct{})
	var observed error
	_inst.Go(ctx, "detached", func(ctx context.Context) {
		<-release
		observed = ctx.Err()
	})
	cancel()
	assert.Equal(t, int64(1), _inst.InFlight())

	close(release)
	require.NoError(t, _inst.Wait(context.Background()))
	assert.NoError(t, observed)
	assert.Equal(t, int64(0), _inst.InFlight())
}

func TestBackgroundScheduler_RecoversPanics(t *testing.T) {
	_inst := dispatch.NewBackgroundScheduler()
	_inst.Go(context.Background(), "panics", func(context.Context) {
		panic("boom")
	})
	require.NoError(t, _inst.Wait(context.Background()))
	assert.Equal(t, int64(0), _inst.InFlight())
}

func TestBackgroundScheduler_WaitTimeout(t *testing.T) {
	_inst := dispatch.NewBackgroundScheduler()
	release := make(chan struct{})
	_inst.Go(context.Background(), "blocked", func(context.Context) {
		<-release
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, _inst.Wait(ctx), context.DeadlineExceeded)

	close(release)
	require.NoError(t, _inst.Wait(context.Background()))
}

func TestDispatcher_Dispatch(t *testing.T) {
	testCases := []struct {
		Name string
		Err  error
	}{
		{Name: "success"},
		{Name: "failure_is_contained", Err: errors.New("agent unavailable")},
	}

	for _, tc := range testCases {
		t.Run(tc.Name, func(t *testing.T) {
			scheduler := dispatch.NewBackgroundScheduler()
			capability := &recordingCapability{err: tc.Err}
			_inst := dispatch.NewDispatcher(scheduler, capability)

			credential := &credentials.Credential{OrganizationID: "org-1", AccessToken: "token"}
			task := dispatch.NewTask("session-1", "Task: Fix login bug", credential, "api-key")
			_inst.Dispatch(context.Background(), task)

			require.NoError(t, scheduler.Wait(context.Background()))
			require.Len(t, capability.tasks, 1)
			assert.Same(t, task, capability.tasks[0])
			assert.Equal(t, "org-1", capability.tasks[0].OrganizationID)
			assert.NotEmpty(t, capability.tasks[0].ID)
		})
	}
}

func TestDispatcher_Timeout(t *testing.T) {
	scheduler := dispatch.NewBackgroundScheduler()
	var deadline time.Time
	var ok bool
	capability := dispatch.CapabilityFunc(func(ctx context.Context, _ *dispatch.Task) error {
		deadline, ok = ctx.Deadline()
		return nil
	})

	_inst := dispatch.NewDispatcher(scheduler, capability, dispatch.WithTimeout(time.Minute))
	_inst.Dispatch(context.Background(), dispatch.NewTask("session-1", "", nil, "api-key"))
	require.NoError(t, scheduler.Wait(context.Background()))
	assert.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
}

func TestTask_LogValue(t *testing.T) {
	task := dispatch.NewTask("session-1", "secret prompt", &credentials.Credential{OrganizationID: "org-1", AccessToken: "token"}, "api-key")
	v := task.LogValue().String()
	assert.NotContains(t, v, "secret prompt")
	assert.NotContains(t, v, "token")
	assert.NotContains(t, v, "api-key")
}
