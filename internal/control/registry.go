// Package control is the process-wide control plane: named action-status
// flags and the cooperative stop signal polled by every long-running loop.
package control

import "sync"

// Action keys accepted by the registry. Anything else is ignored.
const (
	ActionChartBackfill      = "chart_backfill"
	ActionAlbumTrackBackfill = "album_track_backfill"
	ActionYouTubeBackfill    = "youtube_link_backfill"
)

// Registry tracks which maintenance actions are running and whether a stop
// has been requested. Construct one at startup and inject it; state is
// process-memory only and resets on restart.
type Registry struct {
	mu       sync.Mutex
	statuses map[string]bool
	stop     bool
}

// NewRegistry builds a Registry with all action flags false.
func NewRegistry() *Registry {
	return &Registry{
		statuses: map[string]bool{
			ActionChartBackfill:      false,
			ActionAlbumTrackBackfill: false,
			ActionYouTubeBackfill:    false,
		},
	}
}

// SetActionStatus flips one action flag. Unknown keys are a silent no-op.
func (r *Registry) SetActionStatus(key string, running bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.statuses[key]; !ok {
		return
	}
	r.statuses[key] = running
}

// ActionStatuses returns a snapshot copy of the status map; callers never
// see live state.
func (r *Registry) ActionStatuses() map[string]bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]bool, len(r.statuses))
	for k, v := range r.statuses {
		out[k] = v
	}
	return out
}

// Run marks the action running, invokes work, and always clears the flag
// afterward, propagating whatever work returned.
func (r *Registry) Run(key string, work func() error) error {
	r.SetActionStatus(key, true)
	defer r.SetActionStatus(key, false)
	return work()
}

// RequestStop sets the stop signal. Running loops observe it at their next
// unit-of-work boundary; nothing in flight is aborted.
func (r *Registry) RequestStop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stop = true
}

// ClearStop clears the stop signal; called on an explicit start.
func (r *Registry) ClearStop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stop = false
}

// StopRequested reports whether a stop has been requested.
func (r *Registry) StopRequested() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stop
}
