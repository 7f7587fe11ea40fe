package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"guild-jukebox/internal/music/player"
)

const writeWait = 10 * time.Second

type eventMessage struct {
	Kind     player.EventKind `json:"kind"`
	GuildID  string           `json:"guild_id"`
	Track    *player.Track    `json:"track,omitempty"`
	Tracks   []player.Track   `json:"tracks,omitempty"`
	Position int              `json:"position,omitempty"`
	Pending  int              `json:"pending"`
	Error    string           `json:"error,omitempty"`
}

func newEventMessage(e player.Event) eventMessage {
	msg := eventMessage{
		Kind:     e.Kind,
		GuildID:  e.GuildID,
		Track:    e.Track,
		Tracks:   e.Tracks,
		Position: e.Position,
		Pending:  e.Pending,
	}
	if e.Err != nil {
		msg.Error = e.Err.Error()
	}
	return msg
}

// streamEvents upgrades to a websocket and pushes the guild's events as
// JSON until the client goes away or the server shuts down.
func (s *Server) streamEvents(c *gin.Context) {
	guildID := c.Param("guild")

	// Subscribe before the handshake completes so no event after it is lost.
	sub := s.events.Subscribe()
	defer s.events.Unsubscribe(sub)

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.WithError(err).Debug("[HTTP] Websocket upgrade failed")
		return
	}
	defer conn.Close()

	// Reads only detect the client closing.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case <-s.closing:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			return
		case e, ok := <-sub:
			if !ok {
				return
			}
			if e.GuildID != guildID {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(newEventMessage(e)); err != nil {
				s.log.WithError(err).WithField("guild_id", guildID).Debug("[HTTP] Event client dropped")
				return
			}
		}
	}
}
