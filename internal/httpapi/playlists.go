package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"guild-jukebox/internal/music/player"
)

// playlistRequest replaces a playlist with explicit tracks or with whatever
// a URL resolves to.
type playlistRequest struct {
	Tracks []player.Track `json:"tracks"`
	URL    string         `json:"url"`
}

type playlistResponse struct {
	Name   string         `json:"name"`
	Tracks []player.Track `json:"tracks"`
}

func (s *Server) listPlaylists(c *gin.Context) {
	all, err := s.playlists.List(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"playlists": all})
}

func (s *Server) getPlaylist(c *gin.Context) {
	name := c.Param("name")
	tracks, err := s.playlists.Load(c.Request.Context(), name)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, playlistResponse{Name: name, Tracks: tracks})
}

func (s *Server) putPlaylist(c *gin.Context) {
	var req playlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	ctx := c.Request.Context()
	tracks := req.Tracks
	switch {
	case req.URL != "" && len(tracks) > 0:
		abortWithError(c, fmt.Errorf("%w: give either url or tracks", errBadRequest))
		return
	case req.URL != "":
		resolved, err := player.Resolve(ctx, s.resolver, req.URL)
		if err != nil {
			abortWithError(c, err)
			return
		}
		tracks = resolved
	}
	if err := validateTracks(tracks); err != nil {
		abortWithError(c, err)
		return
	}

	name := c.Param("name")
	if err := s.playlists.Replace(ctx, name, tracks); err != nil {
		abortWithError(c, err)
		return
	}
	if tracks == nil {
		tracks = []player.Track{}
	}
	c.JSON(http.StatusOK, playlistResponse{Name: name, Tracks: tracks})
}

func (s *Server) deletePlaylist(c *gin.Context) {
	if err := s.playlists.Delete(c.Request.Context(), c.Param("name")); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
