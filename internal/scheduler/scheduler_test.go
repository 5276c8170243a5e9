package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/sectorfolio/pkg/logger"
)

type fakeJob struct {
	name     string
	schedule string
	failures int32
	calls    atomic.Int32
	block    bool
}

func (j *fakeJob) Name() string     { return j.name }
func (j *fakeJob) Schedule() string { return j.schedule }

func (j *fakeJob) Run(ctx context.Context) error {
	n := j.calls.Add(1)
	if j.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if n <= j.failures {
		return errors.New("boom")
	}
	return nil
}

func newJob(name string, failures int32) *fakeJob {
	return &fakeJob{name: name, schedule: "0 0 * * * *", failures: failures}
}

func TestAddJob(t *testing.T) {
	s := New(logger.Nop())

	require.NoError(t, s.AddJob(newJob("a", 0)))
	require.NoError(t, s.AddJob(newJob("b", 0)))
	assert.Error(t, s.AddJob(newJob("a", 0)), "duplicate name")
	assert.Error(t, s.AddJob(&fakeJob{name: "bad", schedule: "not a cron expression"}))

	assert.Equal(t, []string{"a", "b"}, s.GetAllJobs())

	require.NoError(t, s.RemoveJob("a"))
	assert.Error(t, s.RemoveJob("a"))
	assert.Equal(t, []string{"b"}, s.GetAllJobs())
}

func TestRunNowRetries(t *testing.T) {
	tests := []struct {
		name         string
		failures     int32
		wantSuccess  bool
		wantAttempts int
	}{
		{"first try", 0, true, 1},
		{"succeeds on retry", 2, true, 3},
		{"exhausts retries", 10, false, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(logger.Nop(), WithRetry(2, time.Millisecond))
			job := newJob("job", tt.failures)
			require.NoError(t, s.AddJob(job))

			result, err := s.RunNow(context.Background(), "job")
			require.NoError(t, err)

			assert.Equal(t, tt.wantSuccess, result.Success)
			assert.Equal(t, tt.wantAttempts, result.Attempts)
			if !tt.wantSuccess {
				assert.Equal(t, "boom", result.Error)
			}

			history, err := s.GetJobHistory("job")
			require.NoError(t, err)
			require.Len(t, history.Results, 1)

			stats := s.GetJobStats()["job"]
			assert.Equal(t, 1, stats.TotalRuns)
			if tt.wantSuccess {
				assert.Equal(t, 1, stats.SuccessCount)
				assert.NotNil(t, stats.LastSuccess)
			} else {
				assert.Equal(t, 1, stats.FailureCount)
				assert.NotNil(t, stats.LastFailure)
			}
		})
	}
}

func TestRunNowUnknownJob(t *testing.T) {
	s := New(logger.Nop())
	_, err := s.RunNow(context.Background(), "missing")
	assert.Error(t, err)
	assert.Error(t, s.RunJob("missing"))
}

func TestRunNowStopsRetryingOnCancel(t *testing.T) {
	s := New(logger.Nop(), WithRetry(5, time.Hour))
	job := newJob("job", 10)
	require.NoError(t, s.AddJob(job))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	result, err := s.RunNow(ctx, "job")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, context.Canceled.Error(), result.Error)
}

func TestStopCancelsRunningJobs(t *testing.T) {
	s := New(logger.Nop(), WithRetry(0, 0))
	job := &fakeJob{name: "slow", schedule: "@every 1h", block: true}
	require.NoError(t, s.AddJob(job))
	s.Start()

	require.NoError(t, s.RunJob("slow"))
	require.Eventually(t, func() bool { return job.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}

	history, err := s.GetJobHistory("slow")
	require.NoError(t, err)
	require.Len(t, history.Results, 1)
	assert.False(t, history.Results[0].Success)
}

func TestJobHistory(t *testing.T) {
	h := &JobHistory{}
	assert.Equal(t, 0.0, h.GetSuccessRate())
	assert.Empty(t, h.GetLatestResults(5))

	for i := 0; i < historyLimit+20; i++ {
		h.AddResult(JobResult{JobName: "x", Success: i%4 != 0})
	}

	assert.Len(t, h.Results, historyLimit)
	assert.Len(t, h.GetLatestResults(3), 3)
	assert.Len(t, h.GetFailedResults(), historyLimit/4)
	assert.InDelta(t, 0.75, h.GetSuccessRate(), 1e-9)
}
