package engine

import "sync"

// dampener tracks consecutive true evaluations per tenant and trigger for
// strict dampening.
type dampener struct {
	mu     sync.Mutex
	counts map[dampKey]int
}

type dampKey struct {
	tenant  string
	trigger string
}

func newDampener() *dampener {
	return &dampener{counts: make(map[dampKey]int)}
}

// observe records one evaluation. It reports whether the trigger should fire:
// after evalTrue consecutive matches the counter resets and true is returned.
// A non-matching evaluation resets the counter.
func (d *dampener) observe(tenant, trigger string, evalTrue int, matched bool) bool {
	k := dampKey{tenant: tenant, trigger: trigger}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !matched {
		delete(d.counts, k)
		return false
	}
	n := d.counts[k] + 1
	if n >= evalTrue {
		delete(d.counts, k)
		return true
	}
	d.counts[k] = n
	return false
}

func (d *dampener) reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	clear(d.counts)
}
