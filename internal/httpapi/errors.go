package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"guild-jukebox/internal/music/player"
	"guild-jukebox/internal/storage"
)

var errBadRequest = errors.New("bad request")

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, storage.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrPlaylistNotFound):
		return http.StatusNotFound
	case errors.Is(err, player.ErrInvalidTransition),
		errors.Is(err, player.ErrNotConnected),
		errors.Is(err, storage.ErrPlaylistFull):
		return http.StatusConflict
	case errors.Is(err, player.ErrResolutionFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, player.ErrSinkFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, gin.H{
		"error":      msg,
		"request_id": c.GetString(requestIDKey),
	})
}
