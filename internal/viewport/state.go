package viewport

import "github.com/UnknownOlympus/venuemap/internal/models"

// State is the lifecycle state of a Loader.
type State int

const (
	// StateIdle is the state of a loader that has not been mounted yet.
	StateIdle State = iota
	// StateFirstLoadPending is the state between mount and the first valid bounds.
	StateFirstLoadPending
	// StateReady is the steady state; bounds changes are debounced.
	StateReady
	// StateClosed is the state after Close.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFirstLoadPending:
		return "first_load_pending"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Status is what the status panel of a map shows.
type Status struct {
	State      State  `json:"state"`
	Loading    bool   `json:"loading"`
	Visible    int    `json:"visible"`
	Total      int    `json:"total"` // -1 until the count is known
	Version    uint64 `json:"version"`
	Generation uint64 `json:"generation"`
}

// Snapshot is a consistent view of a loader.
type Snapshot struct {
	Status  Status           `json:"status"`
	Filters models.FilterSet `json:"filters"`
	Venues  []models.Venue   `json:"-"`
	Markers []models.Marker  `json:"markers"`
}
