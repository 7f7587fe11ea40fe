// Package httpapi exposes guild playback and the playlist store over HTTP,
// plus a websocket feed of playback events.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"guild-jukebox/internal/music/player"
	"guild-jukebox/internal/storage"
)

const shutdownTimeout = 5 * time.Second

// Playlists is the store behind the /api/playlists routes.
type Playlists interface {
	Load(ctx context.Context, name string) ([]player.Track, error)
	List(ctx context.Context) ([]storage.PlaylistInfo, error)
	Replace(ctx context.Context, name string, tracks []player.Track) error
	Delete(ctx context.Context, name string) error
}

type Server struct {
	players   *player.Registry
	playlists Playlists
	resolver  player.Resolver
	events    *player.Broadcaster
	log       logrus.FieldLogger

	engine   *gin.Engine
	upgrader websocket.Upgrader

	closing   chan struct{}
	closeOnce sync.Once
}

func New(players *player.Registry, playlists Playlists, resolver player.Resolver, events *player.Broadcaster, log logrus.FieldLogger) *Server {
	s := &Server{
		players:   players,
		playlists: playlists,
		resolver:  resolver,
		events:    events,
		log:       log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		closing: make(chan struct{}),
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestID(), requestLogger(log))
	s.routes(engine)
	s.engine = engine
	return s
}

func (s *Server) routes(r *gin.Engine) {
	r.GET("/healthz", s.health)

	guilds := r.Group("/api/guilds/:guild")
	guilds.GET("/queue", s.getQueue)
	guilds.POST("/queue", s.enqueue)
	guilds.POST("/skip", s.skip)
	guilds.POST("/pause", s.pause)
	guilds.POST("/resume", s.resume)
	guilds.POST("/stop", s.stop)
	guilds.GET("/events", s.streamEvents)

	playlists := r.Group("/api/playlists")
	playlists.GET("", s.listPlaylists)
	playlists.GET("/:name", s.getPlaylist)
	playlists.PUT("/:name", s.putPlaylist)
	playlists.DELETE("/:name", s.deletePlaylist)
}

// Handler is the HTTP handler serving every route.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.log.Info("[HTTP] Shutting down API server...")
		s.closeOnce.Do(func() { close(s.closing) })

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.WithError(err).Warn("[HTTP] Shutdown did not finish cleanly")
		}
	}()

	s.log.Infof("[HTTP] API server listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"guilds": len(s.players.Guilds()),
	})
}
