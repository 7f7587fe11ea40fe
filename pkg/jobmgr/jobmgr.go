// Package jobmgr runs named background jobs with cancellation, lifecycle
// callbacks and in-memory tracking.
//
// Typical usage:
//
//	jm := jobmgr.NewManager(func(msg string) {
//	    log.Println("JOB:", msg)
//	})
//
//	job, err := jm.StartAsync(ctx, "stream", func(ctx context.Context) error {
//	    // do work until ctx is cancelled
//	    return nil
//	}, func(err error) {
//	    // runs once the job is gone
//	})
//
//	// later...
//	_ = jm.Stop(ctx, "stream") // returns once the job has exited
//
// No retries, no worker pool, no persistence. Jobs are removed from the
// manager as soon as they return.
package jobmgr

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	ErrJobRunning    = errors.New("job is already running")
	ErrJobNotRunning = errors.New("job is not running")
)

// Job is a running unit of work.
type Job struct {
	Name   string
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Done is closed when the job's runner has returned.
func (j *Job) Done() <-chan struct{} { return j.done }

// Err returns the runner's result. Only valid after Done is closed.
func (j *Job) Err() error { return j.err }

// Cancel asks the job to stop without waiting for it.
func (j *Job) Cancel() { j.cancel() }

// StatusReporter receives lifecycle events for jobs.
// Example messages:
//
//	running:stream
//	error:stream:ffmpeg exited
//	done:stream
type StatusReporter func(string)

// Manager starts, stops and tracks jobs. It is safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	jobs     map[string]*Job
	Reporter StatusReporter
}

// NewManager creates a new Manager. The reporter may be nil.
func NewManager(reporter StatusReporter) *Manager {
	return &Manager{
		jobs:     make(map[string]*Job),
		Reporter: reporter,
	}
}

// StartAsync runs runner in a new goroutine and returns immediately. The
// job's context derives from parent. onExit, if not nil, runs in the job's
// goroutine after the runner returns and after the job has been removed
// from the manager.
func (m *Manager) StartAsync(parent context.Context, name string, runner func(ctx context.Context) error, onExit func(error)) (*Job, error) {
	m.mu.Lock()
	if _, exists := m.jobs[name]; exists {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrJobRunning, name)
	}
	ctx, cancel := context.WithCancel(parent)
	job := &Job{Name: name, cancel: cancel, done: make(chan struct{})}
	m.jobs[name] = job
	m.mu.Unlock()

	go func() {
		m.report("running:" + name)

		err := runner(ctx)
		cancel()
		if err != nil {
			m.report("error:" + name + ":" + err.Error())
		} else {
			m.report("done:" + name)
		}

		m.mu.Lock()
		if m.jobs[name] == job {
			delete(m.jobs, name)
		}
		m.mu.Unlock()

		job.err = err
		close(job.done)
		if onExit != nil {
			onExit(err)
		}
	}()

	return job, nil
}

// Stop cancels a running job and waits until its runner has returned, or
// ctx ends. The job stays registered until the runner returns, so a Stop
// that gives up early does not free the name for a second runner.
func (m *Manager) Stop(ctx context.Context, name string) error {
	m.mu.Lock()
	job, ok := m.jobs[name]
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotRunning, name)
	}

	job.cancel()
	select {
	case <-job.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Running reports whether a job with this name is active.
func (m *Manager) Running(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.jobs[name]
	return ok
}

// List returns the sorted names of active jobs.
func (m *Manager) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.jobs))
	for k := range m.jobs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Status returns a human-readable summary of active jobs, e.g.
// "Running jobs: stream". If none are running: "No jobs are running."
func (m *Manager) Status() string {
	active := m.List()
	if len(active) == 0 {
		return "No jobs are running."
	}
	return fmt.Sprintf("Running jobs: %s", strings.Join(active, ", "))
}

func (m *Manager) report(s string) {
	if m.Reporter != nil {
		m.Reporter(s)
	}
}
