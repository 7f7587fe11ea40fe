package player

import (
	"errors"
	"fmt"
)

var (
	// ErrResolutionFailed is returned when the resolver produced nothing
	// playable. The queue is left untouched.
	ErrResolutionFailed = errors.New("resolution failed")
	// ErrNotConnected is returned when a voice action needs a connection that
	// does not exist.
	ErrNotConnected = errors.New("not connected to a voice channel")
	// ErrInvalidTransition is returned for commands that do not apply to the
	// current playback state, e.g. pause while nothing is playing.
	ErrInvalidTransition = errors.New("invalid playback transition")
	// ErrSinkFailure wraps connection and playback I/O errors from the voice
	// sink.
	ErrSinkFailure = errors.New("voice sink failure")
)

var (
	ErrNothingPlaying = fmt.Errorf("%w: nothing is playing", ErrInvalidTransition)
	ErrNotPlaying     = fmt.Errorf("%w: playback is not running", ErrInvalidTransition)
	ErrNotPaused      = fmt.Errorf("%w: playback is not paused", ErrInvalidTransition)
)
