// Package runctx holds the extraction run currently in flight so the
// monitor, handlers and storage writers can see the same state without
// threading it through every call.
package runctx

import (
	"sync"

	"github.com/stopbank/crestline/pkg/core"
)

// Context holds the current run and the feature being processed.
type Context struct {
	mu      sync.RWMutex
	run     *core.Run
	feature string
	active  bool
}

// NewContext creates a Context with an idle placeholder run.
func NewContext() *Context {
	return &Context{
		run: &core.Run{ID: "no run active"},
	}
}

// GetRun returns the current run.
func (c *Context) GetRun() *core.Run {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.run
}

// SetRun installs a new run and marks the context active.
func (c *Context) SetRun(run *core.Run) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.run = run
	c.feature = ""
	c.active = true
}

// EndRun marks the run finished. The run itself stays readable so late
// log lines and the final upload can still reference it.
func (c *Context) EndRun() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = false
	c.feature = ""
}

// Active reports whether a run is in progress.
func (c *Context) Active() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

// Feature returns the id of the feature currently being processed, or
// "" between features.
func (c *Context) Feature() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.feature
}

// SetFeature records which feature the pipeline is working on.
func (c *Context) SetFeature(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.feature = id
}
