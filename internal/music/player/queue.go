package player

// State is the playback state of a guild.
type State int

const (
	StateDisconnected State = iota
	StateIdle
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Queue holds the pending tracks and the current track of one guild. It does
// no I/O and no locking: it is owned by exactly one Controller, which
// serializes every access.
//
// The current track is set iff the state is StatePlaying or StatePaused.
type Queue struct {
	pending []Track
	current *Track
	state   State
}

// NewQueue returns an empty, idle queue.
func NewQueue() *Queue {
	return &Queue{state: StateIdle}
}

// EnqueueMany appends tracks to the tail in the given order.
func (q *Queue) EnqueueMany(tracks []Track) {
	if len(tracks) == 0 {
		return
	}
	q.pending = append(q.pending, tracks...)
}

// TakeNext removes and returns the head of the pending tracks. ok is false
// when nothing is pending.
func (q *Queue) TakeNext() (track Track, ok bool) {
	if len(q.pending) == 0 {
		return Track{}, false
	}
	track = q.pending[0]
	q.pending[0] = Track{}
	q.pending = q.pending[1:]
	if len(q.pending) == 0 {
		q.pending = nil
	}
	return track, true
}

// SetCurrent marks track as playing.
func (q *Queue) SetCurrent(track Track) {
	q.current = &track
	q.state = StatePlaying
}

// ClearCurrent drops the current track and returns the queue to idle.
func (q *Queue) ClearCurrent() {
	q.current = nil
	q.state = StateIdle
}

// SetPaused toggles between StatePlaying and StatePaused. It reports false
// and changes nothing when there is no current track.
func (q *Queue) SetPaused(paused bool) bool {
	if q.current == nil {
		return false
	}
	if paused {
		q.state = StatePaused
	} else {
		q.state = StatePlaying
	}
	return true
}

// Current returns the current track, if any.
func (q *Queue) Current() (Track, bool) {
	if q.current == nil {
		return Track{}, false
	}
	return *q.current, true
}

// State is one of StateIdle, StatePlaying or StatePaused.
func (q *Queue) State() State {
	return q.state
}

// Snapshot returns a copy of the pending tracks in order.
func (q *Queue) Snapshot() []Track {
	out := make([]Track, len(q.pending))
	copy(out, q.pending)
	return out
}

// Clear empties the pending tracks. The current track is left alone;
// stopping playback is the controller's job.
func (q *Queue) Clear() {
	q.pending = nil
}

// Len returns the number of pending tracks.
func (q *Queue) Len() int {
	return len(q.pending)
}
