// Package metrics renders a Defender's per-key diagnostics as a transport-
// agnostic snapshot, grounded in the teacher's examples/prometheus collector
// but generalized beyond a single exporter: a Registry here tracks a set of
// command keys and exposes their state over plain JSON, leaving any real
// metrics system (Prometheus, statsd, whatever) to adapt that snapshot. No
// such adapter is included in this module.
package metrics

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/vnykmshr/jailcall"
)

// Source is anything that reports per-key diagnostics. *jailcall.Defender
// satisfies this.
type Source interface {
	Diagnostics(key jailcall.CommandKey) (jailcall.Diagnostics, bool)
}

// KeySnapshot is one command key's diagnostics at the moment of collection.
type KeySnapshot struct {
	Key     jailcall.CommandKey         `json:"key"`
	State   jailcall.BreakerState       `json:"state"`
	Stats   jailcall.CallStats          `json:"stats"`
	Latency jailcall.LatencyPercentiles `json:"latency"`
}

// Registry tracks a fixed set of command keys against a Source.
type Registry struct {
	mu     sync.RWMutex
	source Source
	keys   []jailcall.CommandKey
}

// NewRegistry creates a Registry reading from source, tracking keys.
func NewRegistry(source Source, keys ...jailcall.CommandKey) *Registry {
	r := &Registry{source: source}
	for _, k := range keys {
		r.Track(k)
	}
	return r
}

// Track adds key to the tracked set if not already present.
func (r *Registry) Track(key jailcall.CommandKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range r.keys {
		if k == key {
			return
		}
	}
	r.keys = append(r.keys, key)
}

// Snapshot returns the current diagnostics for every tracked key that has
// an executor yet (keys with no executor, i.e. never submitted to, are
// silently skipped).
func (r *Registry) Snapshot() []KeySnapshot {
	r.mu.RLock()
	keys := make([]jailcall.CommandKey, len(r.keys))
	copy(keys, r.keys)
	r.mu.RUnlock()

	out := make([]KeySnapshot, 0, len(keys))
	for _, k := range keys {
		diag, ok := r.source.Diagnostics(k)
		if !ok {
			continue
		}
		out = append(out, KeySnapshot{Key: k, State: diag.State, Stats: diag.Stats, Latency: diag.Latency})
	}
	return out
}

// Handler serves the current snapshot as JSON.
func (r *Registry) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(r.Snapshot()); err != nil {
			http.Error(w, "metrics marshal error", http.StatusInternalServerError)
		}
	}
}
