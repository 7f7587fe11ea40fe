// Package opus encodes PCM for Discord voice. It needs cgo and libopus.
package opus

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"layeh.com/gopus"

	"guild-jukebox/internal/music/stream"
)

// StreamToDiscord encodes PCM from pcm into opus frames and sends them to
// out (a voice connection's OpusSend). It returns nil when pcm is exhausted
// or ctx is cancelled. A gate, if given, holds the stream while paused.
func StreamToDiscord(ctx context.Context, pcm io.Reader, out chan<- []byte, gate *stream.Gate) error {
	encoder, err := gopus.NewEncoder(stream.SampleRate, stream.Channels, gopus.Audio)
	if err != nil {
		return fmt.Errorf("encoder error: %w", err)
	}

	pcmBuf := make([]byte, stream.FrameSize*stream.Channels*2)
	intBuf := make([]int16, stream.FrameSize*stream.Channels)

	for {
		if gate != nil {
			if err := gate.Wait(ctx); err != nil {
				return nil
			}
		}

		n, err := io.ReadFull(pcm, pcmBuf)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			// pad the final partial frame with silence
			clear(pcmBuf[n:])
		} else if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read error: %w", err)
		}

		for i := range intBuf {
			intBuf[i] = int16(binary.LittleEndian.Uint16(pcmBuf[i*2 : i*2+2]))
		}

		opus, err := encoder.Encode(intBuf, stream.FrameSize, len(pcmBuf))
		if err != nil {
			return fmt.Errorf("encode error: %w", err)
		}

		select {
		case out <- opus:
		case <-ctx.Done():
			return nil
		}

		if n < len(pcmBuf) {
			return nil
		}
	}
}
