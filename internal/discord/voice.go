package discord

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"

	"guild-jukebox/internal/music/player"
	"guild-jukebox/internal/music/stream"
	"guild-jukebox/pkg/jobmgr"
)

const (
	streamJob = "stream"

	defaultStopTimeout = 5 * time.Second
)

var errNoStream = errors.New("no active stream")

// StreamLinker returns a directly playable media URL for a track.
type StreamLinker interface {
	StreamURL(ctx context.Context, track player.Track) (string, error)
}

// Encoder turns PCM into opus packets on out until pcm ends or ctx is done.
// It must hold output while gate is paused.
type Encoder func(ctx context.Context, pcm io.Reader, out chan<- []byte, gate *stream.Gate) error

// voiceConn is the part of a discordgo voice connection the sink uses.
type voiceConn interface {
	Speaking(bool) error
	Disconnect() error
	Send() chan<- []byte
}

type dgConn struct {
	*discordgo.VoiceConnection
}

func (c dgConn) Send() chan<- []byte { return c.OpusSend }

type joinFunc func(guildID, channelID string) (voiceConn, error)

// VoiceSink plays tracks into one guild's voice connection. Each track runs
// as a "stream" job; only one can be live at a time.
type VoiceSink struct {
	guildID string
	join    joinFunc
	linker  StreamLinker
	opener  stream.Opener
	encode  Encoder
	log     logrus.FieldLogger
	jobs    *jobmgr.Manager

	// stopTimeout bounds how long Stop waits for a stream to exit, whatever
	// the caller's context.
	stopTimeout time.Duration

	mu        sync.Mutex
	conn      voiceConn
	channelID string
	gate      *stream.Gate
}

// NewVoiceSink creates the sink for guildID on top of session.
func NewVoiceSink(session *discordgo.Session, guildID string, linker StreamLinker, opener stream.Opener, encode Encoder, log logrus.FieldLogger) *VoiceSink {
	join := func(guildID, channelID string) (voiceConn, error) {
		vc, err := session.ChannelVoiceJoin(guildID, channelID, false, true)
		if err != nil {
			return nil, err
		}
		return dgConn{vc}, nil
	}
	return newVoiceSink(guildID, join, linker, opener, encode, log)
}

func newVoiceSink(guildID string, join joinFunc, linker StreamLinker, opener stream.Opener, encode Encoder, log logrus.FieldLogger) *VoiceSink {
	log = log.WithField("guild_id", guildID)
	return &VoiceSink{
		guildID: guildID,
		join:    join,
		linker:  linker,
		opener:  opener,
		encode:  encode,
		log:     log,
		jobs: jobmgr.NewManager(func(msg string) {
			log.Debugf("[Sink] job %s", msg)
		}),
		stopTimeout: defaultStopTimeout,
	}
}

// SinkFactory builds a VoiceSink per guild, all sharing one session.
func SinkFactory(session *discordgo.Session, linker StreamLinker, opener stream.Opener, encode Encoder, log logrus.FieldLogger) player.SinkFactory {
	return func(guildID string) player.VoiceSink {
		return NewVoiceSink(session, guildID, linker, opener, encode, log)
	}
}

// Connect joins channelID. An existing connection to the same channel is
// reused; a connection elsewhere is dropped first.
func (s *VoiceSink) Connect(ctx context.Context, channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		if s.channelID == channelID {
			return nil
		}
		if err := s.conn.Disconnect(); err != nil {
			s.log.WithError(err).Warn("[Sink] Failed to leave previous voice channel")
		}
		s.conn = nil
	}

	conn, err := s.join(s.guildID, channelID)
	if err != nil {
		return fmt.Errorf("failed to join voice channel: %w", err)
	}
	s.conn = conn
	s.channelID = channelID
	s.log.Infof("[Sink] Joined voice channel %s", channelID)
	return nil
}

// Disconnect stops any live stream and leaves the voice channel.
func (s *VoiceSink) Disconnect(ctx context.Context) error {
	stopErr := s.Stop(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return stopErr
	}
	err := s.conn.Disconnect()
	s.conn = nil
	s.channelID = ""
	s.log.Info("[Sink] Left voice channel")
	return errors.Join(stopErr, err)
}

// Play starts streaming track and returns once the stream job is running.
// The stream is not bound to ctx; it ends with the track or with Stop.
func (s *VoiceSink) Play(ctx context.Context, track player.Track, done func(error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conn := s.conn
	if conn == nil {
		return player.ErrNotConnected
	}
	gate := &stream.Gate{}

	runner := func(ctx context.Context) error {
		return s.stream(ctx, conn, track, gate)
	}
	onExit := func(err error) {
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		done(err)
	}
	if _, err := s.jobs.StartAsync(context.Background(), streamJob, runner, onExit); err != nil {
		return err
	}
	s.gate = gate
	return nil
}

func (s *VoiceSink) stream(ctx context.Context, conn voiceConn, track player.Track, gate *stream.Gate) error {
	link, err := s.linker.StreamURL(ctx, track)
	if err != nil {
		return fmt.Errorf("stream url: %w", err)
	}

	pcm, err := stream.NewRecoveryStream(ctx, s.opener, link, time.Duration(track.Duration)*time.Second, s.log)
	if err != nil {
		return err
	}
	defer pcm.Close()

	s.speaking(conn, true)
	defer s.speaking(conn, false)

	s.log.Debugf("[Sink] Streaming %q", track.Title)
	return s.encode(ctx, pcm, conn.Send(), gate)
}

func (s *VoiceSink) speaking(conn voiceConn, on bool) {
	if err := conn.Speaking(on); err != nil {
		s.log.WithError(err).Debug("[Sink] Speaking update failed")
	}
}

// Stop cancels the live stream and waits up to stopTimeout for it to exit,
// even when ctx is already done. Stopping with no stream is a no-op. A
// stream that outlives the wait keeps its slot, and Play fails until it
// exits.
func (s *VoiceSink) Stop(ctx context.Context) error {
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.stopTimeout)
	defer cancel()

	err := s.jobs.Stop(stopCtx, streamJob)
	switch {
	case err == nil, errors.Is(err, jobmgr.ErrJobNotRunning):
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		s.log.WithField("jobs", s.jobs.Status()).Warn("[Sink] Stream did not exit in time")
		return fmt.Errorf("stream still running after %s: %w", s.stopTimeout, err)
	}
	return err
}

// Pause holds the stream's output and clears the speaking flag. Pausing a
// paused stream does nothing.
func (s *VoiceSink) Pause(ctx context.Context) error {
	conn, gate, err := s.liveGate()
	if err != nil {
		return err
	}
	if gate.Paused() {
		return nil
	}
	gate.Pause()
	s.speaking(conn, false)
	return nil
}

func (s *VoiceSink) Resume(ctx context.Context) error {
	conn, gate, err := s.liveGate()
	if err != nil {
		return err
	}
	if !gate.Paused() {
		return nil
	}
	gate.Resume()
	s.speaking(conn, true)
	return nil
}

func (s *VoiceSink) liveGate() (voiceConn, *stream.Gate, error) {
	if !s.jobs.Running(streamJob) {
		return nil, nil, errNoStream
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil || s.gate == nil {
		return nil, nil, errNoStream
	}
	return s.conn, s.gate, nil
}
