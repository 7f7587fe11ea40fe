package player

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"guild-jukebox/pkg/util"
)

const stopAllWorkers = 8

// Registry maps guild IDs to their controllers. Controllers are created on
// first use and live for the rest of the process.
type Registry struct {
	resolver Resolver
	sinks    SinkFactory
	notifier Notifier
	log      logrus.FieldLogger

	mu          sync.RWMutex
	controllers map[string]*Controller
}

func NewRegistry(resolver Resolver, sinks SinkFactory, notifier Notifier, log logrus.FieldLogger) *Registry {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Registry{
		resolver:    resolver,
		sinks:       sinks,
		notifier:    notifier,
		log:         log,
		controllers: make(map[string]*Controller),
	}
}

// Get returns the controller for guildID, creating it if needed. Concurrent
// first calls for the same guild all get the same controller.
func (r *Registry) Get(guildID string) *Controller {
	r.mu.RLock()
	c, ok := r.controllers[guildID]
	r.mu.RUnlock()
	if ok {
		return c
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.controllers[guildID]; ok {
		return c
	}
	c = NewController(guildID, r.resolver, r.sinks(guildID), r.notifier, r.log)
	r.controllers[guildID] = c
	r.log.WithField("guild_id", guildID).Debug("Created guild controller")
	return c
}

// Lookup returns the controller for guildID without creating one.
func (r *Registry) Lookup(guildID string) (*Controller, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.controllers[guildID]
	return c, ok
}

// Guilds lists the guilds that have a controller, sorted.
func (r *Registry) Guilds() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.controllers))
	for id := range r.controllers {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// StopAll stops every guild. Used on shutdown.
func (r *Registry) StopAll(ctx context.Context) error {
	r.mu.RLock()
	all := make([]*Controller, 0, len(r.controllers))
	for _, c := range r.controllers {
		all = append(all, c)
	}
	r.mu.RUnlock()

	return util.Parallel(ctx, all, stopAllWorkers, func(ctx context.Context, c *Controller) error {
		if err := c.Stop(ctx); err != nil {
			return fmt.Errorf("guild %s: %w", c.GuildID(), err)
		}
		return nil
	})
}
