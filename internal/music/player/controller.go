package player

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// EnqueueResult describes what an enqueue did, for the ingress to report.
type EnqueueResult struct {
	Tracks []Track
	// Position is the 1-based queue position of the first added track, or 0
	// if it started playing right away.
	Position int
	Started  bool
}

func (r EnqueueResult) Count() int { return len(r.Tracks) }

func (r EnqueueResult) Titles() []string { return Titles(r.Tracks) }

// Status is a consistent read of a guild's playback.
type Status struct {
	State   State
	Current *Track
	Pending []Track
	Channel ChannelContext
}

// Controller is the playback state machine of one guild. Every state change
// (enqueue's advance, advance itself, skip, pause, resume, stop and the
// sink's end-of-track callback) runs under mu, so no two of them ever
// overlap for the same guild.
//
// Each stream handed to the sink carries a generation number. An
// end-of-track notification only advances the queue if its generation is
// still the live one; anything else is a leftover from a stream that was
// already stopped or replaced.
type Controller struct {
	guildID  string
	resolver Resolver
	sink     VoiceSink
	notifier Notifier
	log      logrus.FieldLogger

	mu        sync.Mutex
	queue     *Queue
	channel   ChannelContext
	connected bool
	gen       uint64
}

func NewController(guildID string, resolver Resolver, sink VoiceSink, notifier Notifier, log logrus.FieldLogger) *Controller {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Controller{
		guildID:  guildID,
		resolver: resolver,
		sink:     sink,
		notifier: notifier,
		log:      log.WithField("guild_id", guildID),
		queue:    NewQueue(),
	}
}

func (c *Controller) GuildID() string { return c.guildID }

// Enqueue resolves query and appends the result to the queue, starting
// playback if the guild is idle. Resolution happens before the guild is
// locked and cannot be cancelled by Stop.
func (c *Controller) Enqueue(ctx context.Context, channel ChannelContext, query string) (EnqueueResult, error) {
	c.log.WithField("query", query).Debug("Resolving")
	tracks, err := Resolve(ctx, c.resolver, query)
	if err != nil {
		c.log.WithError(err).WithField("query", query).Warn("Failed to resolve tracks")
		return EnqueueResult{}, err
	}
	return c.EnqueueTracks(ctx, channel, tracks)
}

// Resolve runs resolver on query. Every failure, including an empty result,
// is reported as ErrResolutionFailed.
func Resolve(ctx context.Context, resolver Resolver, query string) ([]Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", ErrResolutionFailed)
	}
	tracks, err := resolver.Resolve(ctx, query)
	if err != nil {
		if errors.Is(err, ErrResolutionFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrResolutionFailed, err)
	}
	if len(tracks) == 0 {
		return nil, fmt.Errorf("%w: nothing found for %q", ErrResolutionFailed, query)
	}
	return tracks, nil
}

// EnqueueTracks appends already resolved tracks. An empty slice is a no-op.
func (c *Controller) EnqueueTracks(ctx context.Context, channel ChannelContext, tracks []Track) (EnqueueResult, error) {
	if len(tracks) == 0 {
		return EnqueueResult{}, nil
	}
	added := make([]Track, len(tracks))
	for i, t := range tracks {
		added[i] = t.Normalize()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		if channel.VoiceChannelID == "" {
			return EnqueueResult{}, fmt.Errorf("%w: no voice channel given", ErrNotConnected)
		}
		c.channel = channel
	} else if c.channel.TextChannelID == "" {
		c.channel.TextChannelID = channel.TextChannelID
	}

	state := c.stateLocked()
	res := EnqueueResult{Tracks: added, Position: c.queue.Len() + 1}
	c.queue.EnqueueMany(added)
	c.log.Infof("Added %d track(s) to queue | QueueLen=%d", len(added), c.queue.Len())
	c.notify(Event{Kind: EventTracksAdded, Tracks: added, Position: res.Position, Pending: c.queue.Len()})

	if state == StateIdle || state == StateDisconnected {
		// The guild held nothing before, so whatever plays now came from
		// this call, even if its first tracks failed to start.
		c.advance(ctx)
		if c.queue.State() == StatePlaying {
			res.Started = true
			res.Position = 0
		}
	}
	return res, nil
}

// Skip stops the current stream. The sink's end-of-track notification then
// advances the queue.
func (c *Controller) Skip(ctx context.Context) (Track, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur, ok := c.queue.Current()
	if !ok {
		return Track{}, ErrNothingPlaying
	}
	if !c.connected {
		return Track{}, ErrNotConnected
	}

	if err := c.sink.Stop(ctx); err != nil {
		// The stream is in an unknown state; treat it as finished.
		err = fmt.Errorf("%w: stop: %w", ErrSinkFailure, err)
		c.log.WithError(err).Warn("Failed to stop stream, advancing anyway")
		c.notify(Event{Kind: EventWarning, Track: &cur, Err: err})
		c.gen++
		c.queue.ClearCurrent()
		c.advance(ctx)
		return cur, err
	}

	c.log.Infof("Skipped %q", cur.Title)
	c.notify(Event{Kind: EventSkipped, Track: &cur, Pending: c.queue.Len()})
	return cur, nil
}

func (c *Controller) Pause(ctx context.Context) (Track, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.queue.State() != StatePlaying {
		return Track{}, ErrNotPlaying
	}
	if !c.connected {
		return Track{}, ErrNotConnected
	}
	if err := c.sink.Pause(ctx); err != nil {
		return Track{}, fmt.Errorf("%w: pause: %w", ErrSinkFailure, err)
	}

	c.queue.SetPaused(true)
	cur, _ := c.queue.Current()
	c.notify(Event{Kind: EventPaused, Track: &cur})
	return cur, nil
}

func (c *Controller) Resume(ctx context.Context) (Track, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.queue.State() != StatePaused {
		return Track{}, ErrNotPaused
	}
	if !c.connected {
		return Track{}, ErrNotConnected
	}
	if err := c.sink.Resume(ctx); err != nil {
		return Track{}, fmt.Errorf("%w: resume: %w", ErrSinkFailure, err)
	}

	c.queue.SetPaused(false)
	cur, _ := c.queue.Current()
	c.notify(Event{Kind: EventResumed, Track: &cur})
	return cur, nil
}

// Stop clears the queue, stops playback and leaves the voice channel. It is
// valid in every state and idempotent. State is always fully cleaned up,
// even when the sink reports an error.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	was := c.stateLocked()
	c.queue.Clear()
	err := c.teardown(ctx)
	if was != StateDisconnected {
		c.log.Info("Playback stopped, queue cleared")
		c.notify(Event{Kind: EventStopped, Err: err})
	}
	return err
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) NowPlaying() (Track, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.Current()
}

// Queue returns the pending tracks in play order.
func (c *Controller) Queue() []Track {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.Snapshot()
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{
		State:   c.stateLocked(),
		Pending: c.queue.Snapshot(),
		Channel: c.channel,
	}
	if cur, ok := c.queue.Current(); ok {
		st.Current = &cur
	}
	return st
}

func (c *Controller) stateLocked() State {
	if s := c.queue.State(); s != StateIdle {
		return s
	}
	if c.connected {
		return StateIdle
	}
	return StateDisconnected
}

// advance retires whatever is current and starts the next pending track.
// Tracks the sink cannot play are reported and skipped. When nothing is left
// the guild disconnects. Must be called with mu held.
func (c *Controller) advance(ctx context.Context) {
	for {
		next, ok := c.queue.TakeNext()
		if !ok {
			if err := c.teardown(ctx); err != nil {
				c.log.WithError(err).Warn("Failed to leave voice channel cleanly")
			}
			c.log.Info("Queue is empty, left voice channel")
			c.notify(Event{Kind: EventQueueEmpty})
			return
		}

		if err := c.start(ctx, next); err != nil {
			c.log.WithError(err).Warnf("Skipping track %q", next.Title)
			c.notify(Event{Kind: EventWarning, Track: &next, Err: err})
			continue
		}

		c.log.Infof("Now playing %q | QueueLen=%d", next.Title, c.queue.Len())
		c.notify(Event{Kind: EventNowPlaying, Track: &next, Pending: c.queue.Len()})
		return
	}
}

func (c *Controller) start(ctx context.Context, track Track) error {
	if !c.connected {
		if err := c.sink.Connect(ctx, c.channel.VoiceChannelID); err != nil {
			return fmt.Errorf("%w: connect: %w", ErrSinkFailure, err)
		}
		c.connected = true
	}

	if _, ok := c.queue.Current(); ok {
		c.gen++
		if err := c.sink.Stop(ctx); err != nil {
			c.log.WithError(err).Warn("Failed to stop previous stream")
		}
		c.queue.ClearCurrent()
	}

	c.gen++
	gen := c.gen
	c.queue.SetCurrent(track)
	if err := c.sink.Play(ctx, track, c.finisher(gen)); err != nil {
		c.gen++
		c.queue.ClearCurrent()
		return fmt.Errorf("%w: play: %w", ErrSinkFailure, err)
	}
	return nil
}

// finisher returns the end-of-track callback for stream gen. It hops to a
// new goroutine so a sink may call it from anywhere, including from inside
// Stop while the guild is locked.
func (c *Controller) finisher(gen uint64) func(error) {
	return func(err error) {
		go c.trackFinished(gen, err)
	}
}

func (c *Controller) trackFinished(gen uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		c.log.WithField("gen", gen).Debug("Ignoring end of a stale stream")
		return
	}
	c.gen++

	cur, _ := c.queue.Current()
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrSinkFailure, err)
		c.log.WithError(err).Warnf("Playback of %q failed", cur.Title)
		c.notify(Event{Kind: EventWarning, Track: &cur, Err: err})
	}
	c.queue.ClearCurrent()
	c.advance(context.Background())
}

// teardown stops the live stream and leaves the voice channel. Local state
// is cleared before any error is returned. Must be called with mu held.
func (c *Controller) teardown(ctx context.Context) error {
	var errs []error
	if _, ok := c.queue.Current(); ok {
		c.gen++
		if err := c.sink.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
		c.queue.ClearCurrent()
	}
	if c.connected {
		if err := c.sink.Disconnect(ctx); err != nil {
			errs = append(errs, err)
		}
		c.connected = false
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrSinkFailure, errors.Join(errs...))
	}
	return nil
}

func (c *Controller) notify(e Event) {
	e.GuildID = c.guildID
	e.Channel = c.channel
	c.notifier.Notify(e)
}
