package player

import "context"

// ChannelContext identifies where a guild's playback happens: the voice
// channel to join and the text channel notifications go to.
type ChannelContext struct {
	VoiceChannelID string `json:"voice_channel_id"`
	TextChannelID  string `json:"text_channel_id,omitempty"`
}

// Resolver turns a search query or a track/playlist URL into tracks.
type Resolver interface {
	Resolve(ctx context.Context, query string) ([]Track, error)
}

// VoiceSink is the single audio output of one guild. Only the guild's
// Controller may drive it.
//
// Play starts streaming and returns once the stream is running. done must be
// called exactly once per stream, when it completes, fails or is stopped.
type VoiceSink interface {
	Connect(ctx context.Context, voiceChannelID string) error
	Disconnect(ctx context.Context) error
	Play(ctx context.Context, track Track, done func(err error)) error
	Stop(ctx context.Context) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
}

// SinkFactory creates the voice sink for a guild.
type SinkFactory func(guildID string) VoiceSink
