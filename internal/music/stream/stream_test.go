package stream

import (
	"bytes"
	"context"
	"io"
	"slices"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// chunkOpener serves one chunk per Open call and records the seek positions.
type chunkOpener struct {
	chunks [][]byte
	seeks  []float64
}

func (o *chunkOpener) Open(ctx context.Context, url string, seekSec float64) (io.ReadCloser, error) {
	o.seeks = append(o.seeks, seekSec)
	if len(o.chunks) == 0 {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}
	c := o.chunks[0]
	o.chunks = o.chunks[1:]
	return io.NopCloser(bytes.NewReader(c)), nil
}

func seconds(n int) []byte {
	return make([]byte, n*bytesPerSecond)
}

func TestRecoveryStream_ReopensAtPosition(t *testing.T) {
	op := &chunkOpener{chunks: [][]byte{seconds(3), seconds(7)}}
	rs, err := NewRecoveryStream(context.Background(), op, "http://x", 10*time.Second, quietLogger())
	if err != nil {
		t.Fatalf("NewRecoveryStream: %v", err)
	}
	defer rs.Close()

	n, err := io.Copy(io.Discard, rs)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if n != int64(10*bytesPerSecond) {
		t.Errorf("read %d bytes, want 10s worth", n)
	}
	if !slices.Equal(op.seeks, []float64{0, 3}) {
		t.Errorf("seeks = %v, want [0 3]", op.seeks)
	}
}

func TestRecoveryStream_NoDurationNoRecovery(t *testing.T) {
	op := &chunkOpener{chunks: [][]byte{seconds(1), seconds(1)}}
	rs, err := NewRecoveryStream(context.Background(), op, "http://x", 0, quietLogger())
	if err != nil {
		t.Fatalf("NewRecoveryStream: %v", err)
	}

	if _, err := io.Copy(io.Discard, rs); err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(op.seeks) != 1 {
		t.Errorf("opened %d times, want 1", len(op.seeks))
	}
}

func TestRecoveryStream_GivesUp(t *testing.T) {
	op := &chunkOpener{}
	rs, err := NewRecoveryStream(context.Background(), op, "http://x", time.Minute, quietLogger())
	if err != nil {
		t.Fatalf("NewRecoveryStream: %v", err)
	}

	if _, err := io.Copy(io.Discard, rs); err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(op.seeks) != 1+maxRecoveryAttempts {
		t.Errorf("opened %d times, want %d", len(op.seeks), 1+maxRecoveryAttempts)
	}
}

func TestGate(t *testing.T) {
	var g Gate
	if err := g.Wait(context.Background()); err != nil {
		t.Fatalf("open gate blocked: %v", err)
	}

	g.Pause()
	g.Pause()
	if !g.Paused() {
		t.Fatal("gate not paused")
	}

	released := make(chan error, 1)
	go func() { released <- g.Wait(context.Background()) }()

	select {
	case <-released:
		t.Fatal("Wait returned while paused")
	case <-time.After(20 * time.Millisecond):
	}

	g.Resume()
	g.Resume()
	select {
	case err := <-released:
		if err != nil {
			t.Errorf("Wait: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Resume")
	}
}

func TestGate_WaitHonoursContext(t *testing.T) {
	var g Gate
	g.Pause()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := g.Wait(ctx); err == nil {
		t.Error("Wait ignored a cancelled context")
	}
}

func TestFFmpegArgs(t *testing.T) {
	args := ffmpegArgs("https://media/x", 0)
	if slices.Contains(args, "-ss") {
		t.Error("seek added for position 0")
	}
	if args[len(args)-1] != "pipe:1" {
		t.Errorf("output is %q", args[len(args)-1])
	}

	args = ffmpegArgs("https://media/x", 12.5)
	i := slices.Index(args, "-ss")
	if i < 0 || args[i+1] != "12.500" {
		t.Errorf("seek args = %v", args)
	}
	if j := slices.Index(args, "-i"); j < i {
		t.Error("-ss must come before -i for input seeking")
	}
}
