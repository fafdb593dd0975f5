package session

import "sort"

// Registry maps participants to their open connections. A participant stays
// known at zero connections: going offline never cancels wagers.
type Registry struct {
	conns map[string]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]map[string]struct{})}
}

// Add records connID for participant. An empty connID only registers the
// participant.
func (r *Registry) Add(participant, connID string) {
	set := r.conns[participant]
	if set == nil {
		set = make(map[string]struct{})
		r.conns[participant] = set
	}
	if connID != "" {
		set[connID] = struct{}{}
	}
}

func (r *Registry) Remove(participant, connID string) {
	if set := r.conns[participant]; set != nil {
		delete(set, connID)
	}
}

// Forget removes the participant and any connections it still has.
func (r *Registry) Forget(participant string) {
	delete(r.conns, participant)
}

func (r *Registry) Connected(participant string) bool {
	return len(r.conns[participant]) > 0
}

// Connections returns the participant's open connection ids, sorted.
func (r *Registry) Connections(participant string) []string {
	set := r.conns[participant]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) Participants() []string {
	out := make([]string, 0, len(r.conns))
	for p := range r.conns {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) Len() int { return len(r.conns) }

// carry builds the next round's registry from participants still connected.
func (r *Registry) carry() *Registry {
	next := NewRegistry()
	for p, set := range r.conns {
		for id := range set {
			next.Add(p, id)
		}
	}
	return next
}
