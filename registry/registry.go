// Package registry is the in-memory index of live instances by identifier
// and by port, enforcing identifier/port uniqueness.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/numdrassl/fleet"
)

// ErrDuplicateID is returned when Register sees an already-registered id.
var ErrDuplicateID = fmt.Errorf("duplicate server id")

// ErrDuplicatePort is returned when Register sees an already-bound port.
var ErrDuplicatePort = fmt.Errorf("duplicate port")

// Registry indexes *fleet.Instance by id and by port.
type Registry struct {
	mu     sync.RWMutex
	byID   map[string]*fleet.Instance
	byPort map[int]string
}

// New constructs an empty registry.
func New() *Registry {
	return &Registry{
		byID:   map[string]*fleet.Instance{},
		byPort: map[int]string{},
	}
}

// Register adds inst, rejecting a duplicate id or a duplicate port.
func (r *Registry) Register(inst *fleet.Instance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[inst.ServerID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, inst.ServerID)
	}
	if _, ok := r.byPort[inst.Port]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicatePort, inst.Port)
	}
	r.byID[inst.ServerID] = inst
	r.byPort[inst.Port] = inst.ServerID
	return nil
}

// Unregister removes id from both maps. No-op if absent.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.byID[id]
	if !ok {
		return
	}
	delete(r.byID, id)
	delete(r.byPort, inst.Port)
}

// ByID returns the instance for id, if registered.
func (r *Registry) ByID(id string) (*fleet.Instance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.byID[id]
	return inst, ok
}

// ByPort returns the instance bound to port, if any.
func (r *Registry) ByPort(port int) (*fleet.Instance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byPort[port]
	if !ok {
		return nil, false
	}
	return r.byID[id], true
}

// All returns every registered instance, order unspecified.
func (r *Registry) All() []*fleet.Instance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*fleet.Instance, 0, len(r.byID))
	for _, inst := range r.byID {
		out = append(out, inst)
	}
	return out
}

// ByType returns every registered instance of typ.
func (r *Registry) ByType(typ fleet.ServerType) []*fleet.Instance {
	return r.Filter(func(i *fleet.Instance) bool { return i.Type == typ })
}

// ByStatus returns every registered instance in status.
func (r *Registry) ByStatus(status fleet.ServerStatus) []*fleet.Instance {
	return r.Filter(func(i *fleet.Instance) bool { return i.Status() == status })
}

// Filter returns every registered instance satisfying pred.
func (r *Registry) Filter(pred func(*fleet.Instance) bool) []*fleet.Instance {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*fleet.Instance, 0)
	for _, inst := range r.byID {
		if pred(inst) {
			out = append(out, inst)
		}
	}
	return out
}

// Available selects a RUNNING, not-full instance for routing, optionally
// restricted to templateName, preferring the fewest connected players with
// smallest id breaking ties.
func (r *Registry) Available(templateName string) (*fleet.Instance, bool) {
	r.mu.RLock()
	candidates := make([]*fleet.Instance, 0)
	for _, inst := range r.byID {
		if inst.Status() != fleet.Running || inst.IsFull() {
			continue
		}
		snap := inst.Snapshot()
		if templateName != "" && snap.TemplateName != templateName {
			continue
		}
		candidates = append(candidates, inst)
	}
	r.mu.RUnlock()

	if len(candidates) == 0 {
		return nil, false
	}
	sort.Slice(candidates, func(a, b int) bool {
		pa, pb := candidates[a].PlayerCount(), candidates[b].PlayerCount()
		if pa != pb {
			return pa < pb
		}
		return candidates[a].ServerID < candidates[b].ServerID
	})
	return candidates[0], true
}

// Stats is the aggregate snapshot returned by Stats().
type Stats struct {
	TotalStatic  int
	TotalDynamic int
	Running      int
	TotalPlayers int
}

// Stats reports totals by type, running count, and summed player count.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var s Stats
	for _, inst := range r.byID {
		switch inst.Type {
		case fleet.Static:
			s.TotalStatic++
		case fleet.Dynamic:
			s.TotalDynamic++
		}
		if inst.Status() == fleet.Running {
			s.Running++
		}
		s.TotalPlayers += inst.PlayerCount()
	}
	return s
}
