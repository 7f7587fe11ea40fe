package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	maxRecoveryAttempts = 3
	// A stream that ends sooner than this after (re)opening is treated as a
	// real end, not a dropped connection.
	minHealthyPlay = 2 * time.Second
)

// RecoveryStream reads PCM from an Opener and reopens the source at the
// current position when it ends before the expected duration.
type RecoveryStream struct {
	ctx      context.Context
	opener   Opener
	url      string
	duration time.Duration // 0 if unknown
	log      logrus.FieldLogger

	cur      io.ReadCloser
	read     int64 // PCM bytes delivered
	attempts int
}

// NewRecoveryStream opens url. duration is the expected track length; with
// 0 the stream is never reopened.
func NewRecoveryStream(ctx context.Context, opener Opener, url string, duration time.Duration, log logrus.FieldLogger) (*RecoveryStream, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	rs := &RecoveryStream{
		ctx:      ctx,
		opener:   opener,
		url:      url,
		duration: duration,
		log:      log,
	}
	r, err := opener.Open(ctx, url, 0)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	rs.cur = r
	return rs, nil
}

// Position is the playback position implied by the bytes read so far.
func (rs *RecoveryStream) Position() time.Duration {
	return time.Duration(rs.read) * time.Second / bytesPerSecond
}

func (rs *RecoveryStream) Read(p []byte) (int, error) {
	for {
		if rs.cur == nil {
			return 0, io.EOF
		}
		n, err := rs.cur.Read(p)
		rs.read += int64(n)
		if n > 0 || !errors.Is(err, io.EOF) {
			return n, err
		}
		if !rs.shouldRecover() {
			return 0, io.EOF
		}
		if rerr := rs.reopen(); rerr != nil {
			rs.log.WithError(rerr).Warn("[RecoveryStream] Recovery failed")
			return 0, io.EOF
		}
	}
}

func (rs *RecoveryStream) shouldRecover() bool {
	if rs.duration <= 0 || rs.attempts >= maxRecoveryAttempts || rs.ctx.Err() != nil {
		return false
	}
	return rs.duration-rs.Position() > minHealthyPlay
}

func (rs *RecoveryStream) reopen() error {
	rs.attempts++
	pos := rs.Position()
	rs.log.Warnf("[RecoveryStream] Stream ended early at %v of %v, reopening (attempt %d)", pos.Round(time.Second), rs.duration, rs.attempts)

	_ = rs.cur.Close()
	rs.cur = nil

	r, err := rs.opener.Open(rs.ctx, rs.url, pos.Seconds())
	if err != nil {
		return err
	}
	rs.cur = r
	return nil
}

func (rs *RecoveryStream) Close() error {
	if rs.cur == nil {
		return nil
	}
	err := rs.cur.Close()
	rs.cur = nil
	return err
}
