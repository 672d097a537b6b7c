package background

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePinger lets a test flip the database between reachable and not while
// the monitor is running.
type fakePinger struct {
	mu    sync.Mutex
	err   error
	pings int
}

func (p *fakePinger) Ping(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pings++
	return p.err
}

func (p *fakePinger) setErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func (p *fakePinger) pingCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pings
}

func TestMonitor_ReportsHealthyAfterFirstProbe(t *testing.T) {
	pinger := &fakePinger{}
	stop := make(chan struct{})
	defer close(stop)

	m := StartMonitor(pinger, 5*time.Millisecond, stop)

	assert.Eventually(t, m.Healthy, time.Second, time.Millisecond,
		"first probe fires immediately, not after the first tick")

	checked, err := m.LastChecked()
	assert.False(t, checked.IsZero())
	assert.NoError(t, err)
}

func TestMonitor_TracksRecovery(t *testing.T) {
	pinger := &fakePinger{}
	pinger.setErr(errors.New("connection refused"))
	stop := make(chan struct{})
	defer close(stop)

	m := StartMonitor(pinger, 5*time.Millisecond, stop)

	// Unhealthy while the database is down, and the probe error is kept.
	assert.Eventually(t, func() bool {
		checked, _ := m.LastChecked()
		return !checked.IsZero()
	}, time.Second, time.Millisecond)
	assert.False(t, m.Healthy())
	_, lastErr := m.LastChecked()
	require.Error(t, lastErr)
	assert.Contains(t, lastErr.Error(), "connection refused")

	// Database comes back; the next probe flips the state.
	pinger.setErr(nil)
	assert.Eventually(t, m.Healthy, time.Second, time.Millisecond)
	_, lastErr = m.LastChecked()
	assert.NoError(t, lastErr)
}

func TestMonitor_KeepsProbingOnInterval(t *testing.T) {
	pinger := &fakePinger{}
	stop := make(chan struct{})
	defer close(stop)

	StartMonitor(pinger, 5*time.Millisecond, stop)

	assert.Eventually(t, func() bool { return pinger.pingCount() >= 3 },
		time.Second, time.Millisecond)
}

func TestMonitor_DoneClosesAfterStop(t *testing.T) {
	pinger := &fakePinger{}
	stop := make(chan struct{})

	m := StartMonitor(pinger, 5*time.Millisecond, stop)
	close(stop)

	select {
	case <-m.Done():
	case <-time.After(time.Second):
		t.Fatal("monitor did not shut down after stop channel was closed")
	}
}

func TestMonitor_UnhealthyBeforeFirstProbe(t *testing.T) {
	m := &Monitor{done: make(chan struct{})}
	assert.False(t, m.Healthy())
}
