package player

import (
	"sync"

	"github.com/sirupsen/logrus"
)

type EventKind string

const (
	EventTracksAdded EventKind = "tracks_added"
	EventNowPlaying  EventKind = "now_playing"
	EventPaused      EventKind = "paused"
	EventResumed     EventKind = "resumed"
	EventSkipped     EventKind = "skipped"
	EventStopped     EventKind = "stopped"
	EventQueueEmpty  EventKind = "queue_empty" // queue drained, voice channel left
	EventWarning     EventKind = "warning"
)

// Event is the structured notification a controller publishes after a state
// change. Rendering it for users is up to the ingress adapters.
type Event struct {
	Kind     EventKind
	GuildID  string
	Channel  ChannelContext
	Track    *Track
	Tracks   []Track
	Position int // 1-based queue position of the first track in Tracks
	Pending  int // pending tracks left after the change
	Err      error
}

// Notifier receives controller events. Notify is called while the guild is
// locked and must not block.
type Notifier interface {
	Notify(Event)
}

type NotifierFunc func(Event)

func (f NotifierFunc) Notify(e Event) { f(e) }

type nopNotifier struct{}

func (nopNotifier) Notify(Event) {}

const subscriberBuffer = 64

// Broadcaster fans events out to any number of subscribers. A subscriber
// that falls behind loses events instead of stalling playback.
type Broadcaster struct {
	mu        sync.RWMutex
	listeners map[chan Event]struct{}
	log       logrus.FieldLogger
}

func NewBroadcaster(log logrus.FieldLogger) *Broadcaster {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Broadcaster{
		listeners: make(map[chan Event]struct{}),
		log:       log,
	}
}

// Subscribe registers a new listener. Call Unsubscribe when done.
func (b *Broadcaster) Subscribe() <-chan Event {
	ch := make(chan Event, subscriberBuffer)
	b.mu.Lock()
	b.listeners[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a listener returned by Subscribe.
func (b *Broadcaster) Unsubscribe(sub <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.listeners {
		if ch == sub {
			delete(b.listeners, ch)
			close(ch)
			return
		}
	}
}

func (b *Broadcaster) Notify(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.listeners {
		select {
		case ch <- e:
		default:
			b.log.WithFields(logrus.Fields{
				"guild_id": e.GuildID,
				"event":    e.Kind,
			}).Warn("Subscriber is full, event dropped")
		}
	}
}
