package plugin

import (
	"context"
	"sync"

	"github.com/ayusman/mouthwatch/internal/log"
)

// Dispatcher delivers events to subscribed plugins in the background so the
// frame loop never waits on a hook.
type Dispatcher struct {
	manager  *Manager
	executor *Executor

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewDispatcher creates a dispatcher over the plugins known to manager.
func NewDispatcher(manager *Manager, executor *Executor) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		manager:  manager,
		executor: executor,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Dispatch starts one run per plugin subscribed to req.Event and returns
// how many were started. It returns 0 after Close.
func (d *Dispatcher) Dispatch(req Request) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return 0
	}

	plugins := d.manager.Subscribed(req.Event)
	for _, p := range plugins {
		d.wg.Add(1)
		go func(p *Plugin) {
			defer d.wg.Done()

			resp, err := d.executor.Execute(d.ctx, p, &req)
			if err != nil {
				log.Warn("plugin hook failed", "plugin", p.Manifest.Name, "event", req.Event, "error", err)
				return
			}
			if !resp.Success {
				log.Warn("plugin hook reported failure", "plugin", p.Manifest.Name, "event", req.Event, "error", resp.Error)
				return
			}
			log.Debug("plugin hook done", "plugin", p.Manifest.Name, "event", req.Event)
		}(p)
	}

	return len(plugins)
}

// Wait blocks until all started runs have finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Close stops accepting events, cancels running hooks and waits for them.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	d.cancel()
	d.wg.Wait()
}
