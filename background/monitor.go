// Package background contains services that run independently of the HTTP
// request cycle. The only one here is the database health monitor: a small
// pipeline that probes the store on a ticker and folds the results into a
// state the /health endpoint can read without touching the database itself.
package background

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Pinger is the slice of the database pool the monitor needs. Satisfied by
// *pgxpool.Pool and by fakes in tests.
type Pinger interface {
	Ping(ctx context.Context) error
}

const (
	// DefaultProbeInterval is how often the monitor checks the database.
	DefaultProbeInterval = 15 * time.Second

	// probeTimeout bounds a single ping so a hung database cannot wedge the
	// probe worker.
	probeTimeout = 3 * time.Second
)

// probeResult is what the probe worker reports back for each check.
type probeResult struct {
	healthy bool
	err     error
	at      time.Time
}

// Monitor holds the latest known database health. Healthy/LastChecked are
// safe to call from any goroutine.
type Monitor struct {
	healthy atomic.Bool

	mu          sync.Mutex
	lastChecked time.Time
	lastErr     error

	done chan struct{} // closed once every monitor goroutine has exited
}

// Healthy reports whether the most recent probe succeeded. Before the first
// probe completes it reports false.
func (m *Monitor) Healthy() bool {
	return m.healthy.Load()
}

// LastChecked returns the time of the most recent completed probe and its
// error, if any.
func (m *Monitor) LastChecked() (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastChecked, m.lastErr
}

// Done returns a channel closed when the monitor has fully shut down after
// its stop channel was closed.
func (m *Monitor) Done() <-chan struct{} {
	return m.done
}

// StartMonitor launches the health monitor and returns the Monitor whose
// state it maintains. An orchestrator goroutine schedules probes on the
// ticker; a probe worker pings the database with a timeout; an updater folds
// results into the Monitor. Closing stopChan drains the pipeline in order
// (probes first, then results) and closes Done when everything has exited.
func StartMonitor(pool Pinger, interval time.Duration, stopChan <-chan struct{}) *Monitor {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}

	m := &Monitor{done: make(chan struct{})}

	// Buffered so the orchestrator can drop a tick instead of blocking when
	// a probe is still in flight.
	probes := make(chan struct{}, 1)
	results := make(chan probeResult, 1)

	// workersWg tracks the probe worker; it must be done before results can
	// be closed. mainWg tracks the updater, the last consumer to exit.
	var workersWg sync.WaitGroup
	var mainWg sync.WaitGroup

	// Probe worker: performs the actual pings.
	workersWg.Add(1)
	go func() {
		defer workersWg.Done()
		for range probes {
			ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
			err := pool.Ping(ctx)
			cancel()
			results <- probeResult{healthy: err == nil, err: err, at: time.Now()}
		}
	}()

	// Updater: folds probe results into the shared state.
	mainWg.Add(1)
	go func() {
		defer mainWg.Done()
		for res := range results {
			m.healthy.Store(res.healthy)
			m.mu.Lock()
			m.lastChecked = res.at
			m.lastErr = res.err
			m.mu.Unlock()
			if res.err != nil {
				log.Printf("health monitor: database probe failed: %v", res.err)
			}
		}
	}()

	// Close results only after the probe worker has exited, so the updater
	// sees every result before its channel closes.
	go func() {
		workersWg.Wait()
		close(results)
	}()

	// Orchestrator: schedules probes and runs the shutdown sequence.
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		// Immediate first probe so /health is meaningful right after boot.
		probes <- struct{}{}

		for {
			select {
			case <-ticker.C:
				select {
				case probes <- struct{}{}:
				default:
					// Previous probe still in flight; skip this tick.
				}
			case <-stopChan:
				close(probes)
				mainWg.Wait()
				close(m.done)
				return
			}
		}
	}()

	return m
}
