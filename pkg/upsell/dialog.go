package upsell

import (
	"sync"

	"github.com/bizflow/bizgate/pkg/plans"
)

// Dialog tracks whether an upgrade prompt is showing
type Dialog struct {
	mu     sync.Mutex
	prompt *Prompt
}

// Open shows p, replacing any prompt already shown
func (d *Dialog) Open(p Prompt) {
	d.mu.Lock()
	d.prompt = &p
	d.mu.Unlock()
}

// Close hides the prompt
func (d *Dialog) Close() {
	d.mu.Lock()
	d.prompt = nil
	d.mu.Unlock()
}

// IsOpen reports whether a prompt is showing
func (d *Dialog) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.prompt != nil
}

// Prompt returns the prompt being shown
func (d *Dialog) Prompt() (Prompt, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.prompt == nil {
		return Prompt{}, false
	}
	return *d.prompt, true
}

// Run guards action with f and opens the dialog when access is denied. It
// reports whether the action ran.
func (d *Dialog) Run(f *Flow, decider Decider, code plans.FeatureCode, action func() error) (bool, error) {
	prompt, err := f.Guard(decider, code, action)
	if prompt != nil {
		d.Open(*prompt)
		return false, nil
	}
	return true, err
}
