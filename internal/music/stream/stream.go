package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"
)

const (
	Channels   = 2
	SampleRate = 48000
	FrameSize  = 960 // 20ms at 48kHz

	bytesPerSecond = SampleRate * Channels * 2
)

// Opener opens a URL as raw s16le PCM at SampleRate and Channels, starting
// seekSec seconds in.
type Opener interface {
	Open(ctx context.Context, url string, seekSec float64) (io.ReadCloser, error)
}

// FFmpeg decodes anything ffmpeg understands into PCM.
type FFmpeg struct {
	// Path is the ffmpeg binary; empty means "ffmpeg" from PATH.
	Path string
	Log  logrus.FieldLogger
}

func (f *FFmpeg) Open(ctx context.Context, url string, seekSec float64) (io.ReadCloser, error) {
	bin := f.Path
	if bin == "" {
		bin = "ffmpeg"
	}

	cmd := exec.CommandContext(ctx, bin, ffmpegArgs(url, seekSec)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe error: %w", err)
	}
	var stderr *io.PipeWriter
	if f.Log != nil {
		stderr = f.Log.WithField("component", "ffmpeg").WriterLevel(logrus.DebugLevel)
		cmd.Stderr = stderr
	}

	if err := cmd.Start(); err != nil {
		if stderr != nil {
			stderr.Close()
		}
		return nil, fmt.Errorf("ffmpeg start error: %w", err)
	}
	return &process{ReadCloser: stdout, cmd: cmd, stderr: stderr}, nil
}

func ffmpegArgs(url string, seekSec float64) []string {
	args := []string{
		"-reconnect", "1",
		"-reconnect_streamed", "1",
		"-reconnect_delay_max", "5",
	}
	if seekSec > 0 {
		args = append(args, "-ss", strconv.FormatFloat(seekSec, 'f', 3, 64))
	}
	return append(args,
		"-i", url,
		"-vn",
		"-f", "s16le",
		"-ar", strconv.Itoa(SampleRate),
		"-ac", strconv.Itoa(Channels),
		"-loglevel", "warning",
		"pipe:1",
	)
}

// process closes its pipe and reaps the ffmpeg process exactly once.
type process struct {
	io.ReadCloser
	cmd    *exec.Cmd
	stderr *io.PipeWriter
	once   sync.Once
	err    error
}

func (p *process) Close() error {
	p.once.Do(func() {
		_ = p.ReadCloser.Close()
		if p.cmd.Process != nil {
			_ = p.cmd.Process.Kill()
		}
		err := p.cmd.Wait()
		if p.stderr != nil {
			p.stderr.Close()
		}
		var exitErr *exec.ExitError
		if err != nil && !errors.As(err, &exitErr) {
			p.err = err
		}
	})
	return p.err
}
