package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"

	"guild-jukebox/internal/music/player"
)

func newTestStorage(t *testing.T, limit int) *Storage {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	s, err := New(filepath.Join(t.TempDir(), "test.db"), limit, logger)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func tracks(titles ...string) []player.Track {
	out := make([]player.Track, len(titles))
	for i, title := range titles {
		out[i] = player.Track{
			URL:      "https://www.youtube.com/watch?v=" + title,
			Title:    title,
			Duration: 60 + i,
			Channel:  "chan",
		}
	}
	return out
}

func TestSaveLoad_PreservesOrder(t *testing.T) {
	s := newTestStorage(t, 0)
	ctx := context.Background()

	if err := s.Save(ctx, "road trip", tracks("a", "b")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(ctx, "  Road Trip ", tracks("c")); err != nil {
		t.Fatalf("Save append: %v", err)
	}

	got, err := s.Load(ctx, "ROAD TRIP")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if titles := player.Titles(got); fmt.Sprint(titles) != "[a b c]" {
		t.Errorf("titles = %v, want [a b c]", titles)
	}
	if got[1].Duration != 61 || got[1].Channel != "chan" {
		t.Errorf("entry lost fields: %+v", got[1])
	}
}

func TestSave_NormalizesMissingMetadata(t *testing.T) {
	s := newTestStorage(t, 0)
	ctx := context.Background()

	if err := s.Save(ctx, "bare", []player.Track{{URL: "https://radio.example/live"}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load(ctx, "bare")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got[0].Title != player.UnknownTitle || got[0].Channel != player.UnknownChannel {
		t.Errorf("got %+v", got[0])
	}
}

func TestLoad_NotFound(t *testing.T) {
	s := newTestStorage(t, 0)
	if _, err := s.Load(context.Background(), "missing"); !errors.Is(err, ErrPlaylistNotFound) {
		t.Fatalf("err = %v, want ErrPlaylistNotFound", err)
	}
}

func TestInvalidNames(t *testing.T) {
	s := newTestStorage(t, 0)
	ctx := context.Background()

	long := make([]rune, maxNameLength+1)
	for i := range long {
		long[i] = 'x'
	}
	for _, name := range []string{"", "   ", "bad\nname", string(long)} {
		if err := s.Save(ctx, name, tracks("a")); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Save(%q) err = %v, want ErrInvalidName", name, err)
		}
		if _, err := s.Load(ctx, name); !errors.Is(err, ErrInvalidName) {
			t.Errorf("Load(%q) err = %v, want ErrInvalidName", name, err)
		}
	}
}

func TestSave_Limit(t *testing.T) {
	s := newTestStorage(t, 3)
	ctx := context.Background()

	if err := s.Save(ctx, "mix", tracks("a", "b")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(ctx, "mix", tracks("c", "d")); !errors.Is(err, ErrPlaylistFull) {
		t.Fatalf("err = %v, want ErrPlaylistFull", err)
	}

	got, err := s.Load(ctx, "mix")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("rejected save wrote entries: %v", player.Titles(got))
	}
}

func TestReplace(t *testing.T) {
	s := newTestStorage(t, 2)
	ctx := context.Background()

	if err := s.Save(ctx, "mix", tracks("a", "b")); err != nil {
		t.Fatal(err)
	}
	if err := s.Replace(ctx, "mix", tracks("c", "d")); err != nil {
		t.Fatalf("Replace at the limit: %v", err)
	}
	got, err := s.Load(ctx, "mix")
	if err != nil {
		t.Fatal(err)
	}
	if titles := player.Titles(got); fmt.Sprint(titles) != "[c d]" {
		t.Errorf("titles = %v, want [c d]", titles)
	}

	if err := s.Replace(ctx, "mix", tracks("x", "y", "z")); !errors.Is(err, ErrPlaylistFull) {
		t.Fatalf("err = %v, want ErrPlaylistFull", err)
	}
	got, _ = s.Load(ctx, "mix")
	if titles := player.Titles(got); fmt.Sprint(titles) != "[c d]" {
		t.Errorf("failed replace changed the playlist: %v", titles)
	}
}

func TestListAndDelete(t *testing.T) {
	s := newTestStorage(t, 0)
	ctx := context.Background()

	if err := s.Save(ctx, "zeta", tracks("a")); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, "alpha", tracks("a", "b")); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, "empty", nil); err != nil {
		t.Fatal(err)
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var summary []string
	for _, p := range list {
		summary = append(summary, fmt.Sprintf("%s:%d", p.Name, p.Tracks))
	}
	if fmt.Sprint(summary) != "[alpha:2 empty:0 zeta:1]" {
		t.Errorf("List = %v", summary)
	}

	if err := s.Delete(ctx, "alpha"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Load(ctx, "alpha"); !errors.Is(err, ErrPlaylistNotFound) {
		t.Errorf("deleted playlist still loads: %v", err)
	}
	if err := s.Delete(ctx, "alpha"); !errors.Is(err, ErrPlaylistNotFound) {
		t.Errorf("second Delete err = %v", err)
	}

	// Entries go with the playlist, so a new one under the same name starts empty.
	if err := s.Save(ctx, "alpha", tracks("z")); err != nil {
		t.Fatal(err)
	}
	got, _ := s.Load(ctx, "alpha")
	if len(got) != 1 {
		t.Errorf("recreated playlist has %d entries", len(got))
	}
}

func TestCommandHistory_KeepsRecent(t *testing.T) {
	s := newTestStorage(t, 0)
	ctx := context.Background()

	for i := 0; i < commandHistoryLimit+5; i++ {
		rec := CommandHistoryRecord{UserID: "u", Username: "someone", Command: "play", Param: fmt.Sprint(i)}
		if err := s.AppendCommandToHistory(ctx, "g1", rec); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	if err := s.AppendCommandToHistory(ctx, "g2", CommandHistoryRecord{Command: "skip"}); err != nil {
		t.Fatal(err)
	}

	hist, err := s.FetchCommandHistory(ctx, "g1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(hist) != commandHistoryLimit {
		t.Fatalf("kept %d records, want %d", len(hist), commandHistoryLimit)
	}
	if hist[0].Param != "5" || hist[len(hist)-1].Param != fmt.Sprint(commandHistoryLimit+4) {
		t.Errorf("window = %s..%s", hist[0].Param, hist[len(hist)-1].Param)
	}
	if hist[0].Datetime.IsZero() {
		t.Error("timestamp not recorded")
	}

	other, _ := s.FetchCommandHistory(ctx, "g2")
	if len(other) != 1 {
		t.Errorf("g2 history = %d records", len(other))
	}
}
