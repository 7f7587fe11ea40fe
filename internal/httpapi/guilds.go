package httpapi

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"guild-jukebox/internal/music/player"
)

type statusResponse struct {
	GuildID string                `json:"guild_id"`
	State   string                `json:"state"`
	Current *player.Track         `json:"current"`
	Pending []player.Track        `json:"pending"`
	Channel player.ChannelContext `json:"channel"`
}

func newStatusResponse(guildID string, st player.Status) statusResponse {
	pending := st.Pending
	if pending == nil {
		pending = []player.Track{}
	}
	return statusResponse{
		GuildID: guildID,
		State:   st.State.String(),
		Current: st.Current,
		Pending: pending,
		Channel: st.Channel,
	}
}

// enqueueRequest adds a search/URL query, a stored playlist or explicit
// tracks. Exactly one of them must be set.
type enqueueRequest struct {
	Query          string         `json:"query"`
	Playlist       string         `json:"playlist"`
	Tracks         []player.Track `json:"tracks"`
	VoiceChannelID string         `json:"voice_channel_id"`
	TextChannelID  string         `json:"text_channel_id"`
}

func (r enqueueRequest) validate() error {
	set := 0
	for _, ok := range []bool{strings.TrimSpace(r.Query) != "", r.Playlist != "", len(r.Tracks) > 0} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("%w: give exactly one of query, playlist or tracks", errBadRequest)
	}
	return validateTracks(r.Tracks)
}

// validateTracks accepts only http(s) track URLs; they are handed to the
// decoder as they are.
func validateTracks(tracks []player.Track) error {
	for i, t := range tracks {
		u, err := url.Parse(strings.TrimSpace(t.URL))
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: track %d needs an http(s) url", errBadRequest, i)
		}
	}
	return nil
}

type enqueueResponse struct {
	Tracks   []player.Track `json:"tracks"`
	Position int            `json:"position"`
	Started  bool           `json:"started"`
}

type trackResponse struct {
	Track player.Track `json:"track"`
}

func (s *Server) getQueue(c *gin.Context) {
	guildID := c.Param("guild")
	var st player.Status
	if ctrl, ok := s.players.Lookup(guildID); ok {
		st = ctrl.Status()
	}
	c.JSON(http.StatusOK, newStatusResponse(guildID, st))
}

func (s *Server) enqueue(c *gin.Context) {
	var req enqueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		abortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	guildID := c.Param("guild")
	channel := player.ChannelContext{VoiceChannelID: req.VoiceChannelID, TextChannelID: req.TextChannelID}

	// Controllers are only created for requests that can actually enqueue.
	ctrl, ok := s.players.Lookup(guildID)
	if (!ok || ctrl.State() == player.StateDisconnected) && channel.VoiceChannelID == "" {
		abortWithError(c, fmt.Errorf("%w: voice_channel_id is required", player.ErrNotConnected))
		return
	}

	var (
		tracks []player.Track
		err    error
	)
	switch {
	case req.Query != "":
		tracks, err = player.Resolve(ctx, s.resolver, req.Query)
	case req.Playlist != "":
		tracks, err = s.playlists.Load(ctx, req.Playlist)
	default:
		tracks = req.Tracks
	}
	if err != nil {
		abortWithError(c, err)
		return
	}

	var res player.EnqueueResult
	if len(tracks) > 0 {
		if res, err = s.players.Get(guildID).EnqueueTracks(ctx, channel, tracks); err != nil {
			abortWithError(c, err)
			return
		}
	}

	added := res.Tracks
	if added == nil {
		added = []player.Track{}
	}
	c.JSON(http.StatusCreated, enqueueResponse{Tracks: added, Position: res.Position, Started: res.Started})
}

func (s *Server) skip(c *gin.Context) {
	ctrl, ok := s.players.Lookup(c.Param("guild"))
	if !ok {
		abortWithError(c, player.ErrNothingPlaying)
		return
	}
	t, err := ctrl.Skip(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, trackResponse{Track: t})
}

func (s *Server) pause(c *gin.Context) {
	ctrl, ok := s.players.Lookup(c.Param("guild"))
	if !ok {
		abortWithError(c, player.ErrNotPlaying)
		return
	}
	t, err := ctrl.Pause(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, trackResponse{Track: t})
}

func (s *Server) resume(c *gin.Context) {
	ctrl, ok := s.players.Lookup(c.Param("guild"))
	if !ok {
		abortWithError(c, player.ErrNotPaused)
		return
	}
	t, err := ctrl.Resume(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, trackResponse{Track: t})
}

// stop is idempotent: stopping an unknown or idle guild succeeds.
func (s *Server) stop(c *gin.Context) {
	ctrl, ok := s.players.Lookup(c.Param("guild"))
	if ok {
		if err := ctrl.Stop(c.Request.Context()); err != nil {
			abortWithError(c, err)
			return
		}
	}
	c.Status(http.StatusNoContent)
}
