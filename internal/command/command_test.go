package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"

	"guild-jukebox/internal/music/player"
	"guild-jukebox/internal/storage"
	"guild-jukebox/pkg/cmd"
)

type fakeResolver struct {
	results map[string][]player.Track
	calls   int
}

func (r *fakeResolver) Resolve(ctx context.Context, query string) ([]player.Track, error) {
	r.calls++
	if tracks, ok := r.results[query]; ok {
		return tracks, nil
	}
	return nil, fmt.Errorf("%w: no match for %q", player.ErrResolutionFailed, query)
}

// fakeSink plays nothing; a stream lasts until Stop.
type fakeSink struct {
	mu   sync.Mutex
	done func(error)
}

func (s *fakeSink) Connect(ctx context.Context, channelID string) error { return nil }
func (s *fakeSink) Disconnect(ctx context.Context) error                { return nil }
func (s *fakeSink) Pause(ctx context.Context) error                     { return nil }
func (s *fakeSink) Resume(ctx context.Context) error                    { return nil }

func (s *fakeSink) Play(ctx context.Context, t player.Track, done func(error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = done
	return nil
}

func (s *fakeSink) Stop(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.done = nil
	s.mu.Unlock()
	if done != nil {
		done(nil)
	}
	return nil
}

type memPlaylists struct {
	mu    sync.Mutex
	lists map[string][]player.Track
}

func (m *memPlaylists) Save(ctx context.Context, name string, tracks []player.Track) error {
	name, err := storage.NormalizeName(name)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists[name] = append(m.lists[name], tracks...)
	return nil
}

func (m *memPlaylists) Load(ctx context.Context, name string) ([]player.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tracks, ok := m.lists[strings.TrimSpace(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", storage.ErrPlaylistNotFound, name)
	}
	return tracks, nil
}

func (m *memPlaylists) List(ctx context.Context) ([]storage.PlaylistInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []storage.PlaylistInfo
	for name, tracks := range m.lists {
		out = append(out, storage.PlaylistInfo{Name: name, Tracks: len(tracks)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memPlaylists) Delete(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.lists[name]; !ok {
		return fmt.Errorf("%w: %q", storage.ErrPlaylistNotFound, name)
	}
	delete(m.lists, name)
	return nil
}

type memHistory struct {
	records []storage.CommandHistoryRecord
}

func (h *memHistory) AppendCommandToHistory(ctx context.Context, guildID string, rec storage.CommandHistoryRecord) error {
	h.records = append(h.records, rec)
	return nil
}

type recordingReplier struct {
	texts  []string
	embeds []*discordgo.MessageEmbed
}

func (r *recordingReplier) Text(content string) error {
	r.texts = append(r.texts, content)
	return nil
}

func (r *recordingReplier) Embed(e *discordgo.MessageEmbed) error {
	r.embeds = append(r.embeds, e)
	return nil
}

func (r *recordingReplier) lastText() string {
	if len(r.texts) == 0 {
		return ""
	}
	return r.texts[len(r.texts)-1]
}

func (r *recordingReplier) lastEmbed() *discordgo.MessageEmbed {
	if len(r.embeds) == 0 {
		return nil
	}
	return r.embeds[len(r.embeds)-1]
}

func track(title string) player.Track {
	return player.Track{URL: "https://www.youtube.com/watch?v=" + title, Title: title, Duration: 125, Channel: "chan"}
}

type harness struct {
	reg       *cmd.Registry
	players   *player.Registry
	resolver  *fakeResolver
	playlists *memPlaylists
	history   *memHistory
}

func newHarness() *harness {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	h := &harness{
		reg: cmd.NewRegistry(),
		resolver: &fakeResolver{results: map[string][]player.Track{
			"song a": {track("a")},
			"song b": {track("b")},
			"https://www.youtube.com/playlist?list=PL1": {track("x"), track("y"), track("z")},
		}},
		playlists: &memPlaylists{lists: map[string][]player.Track{}},
		history:   &memHistory{},
	}
	sinks := func(guildID string) player.VoiceSink { return &fakeSink{} }
	h.players = player.NewRegistry(h.resolver, sinks, nil, logger)
	Register(h.reg, &Deps{
		Players:   h.players,
		Playlists: h.playlists,
		Resolver:  h.resolver,
		History:   h.history,
		Log:       logger,
	})
	return h
}

// run executes a chat line as a user sitting in voice channel "v1".
func (h *harness) run(t *testing.T, line string) *recordingReplier {
	t.Helper()
	return h.runAs(t, line, &Context{GuildID: "g1", ChannelID: "text", UserID: "u1", Username: "someone", VoiceChannelID: "v1"})
}

func (h *harness) runAs(t *testing.T, line string, cc *Context) *recordingReplier {
	t.Helper()
	inv, ok := cmd.Parse("!", line)
	if !ok {
		t.Fatalf("unparsable line %q", line)
	}
	c := h.reg.Get(inv.Name)
	if c == nil {
		t.Fatalf("unknown command %q", inv.Name)
	}
	rep := &recordingReplier{}
	cc.Reply = rep
	inv.Data = cc
	if err := c.Run(context.Background(), inv); err != nil {
		t.Fatalf("%s: %v", line, err)
	}
	return rep
}

func TestPlay_StartsThenQueues(t *testing.T) {
	h := newHarness()

	rep := h.run(t, "!play song a")
	if len(rep.texts)+len(rep.embeds) != 0 {
		t.Errorf("started track should be announced by the notifier, got %v %v", rep.texts, rep.embeds)
	}

	rep = h.run(t, "!p song b")
	e := rep.lastEmbed()
	if e == nil || e.Title != "b" || e.Footer.Text != "Position in queue: 1" {
		t.Fatalf("queued embed = %+v", e)
	}

	ctrl, _ := h.players.Lookup("g1")
	st := ctrl.Status()
	if st.State != player.StatePlaying || st.Current.Title != "a" || len(st.Pending) != 1 {
		t.Errorf("status = %+v", st)
	}
}

func TestPlay_Playlist(t *testing.T) {
	h := newHarness()
	rep := h.run(t, "!play https://www.youtube.com/playlist?list=PL1")
	e := rep.lastEmbed()
	if e == nil || !strings.Contains(e.Description, "Added 3 tracks") {
		t.Fatalf("embed = %+v", e)
	}
}

func TestPlay_NeedsVoiceChannel(t *testing.T) {
	h := newHarness()
	rep := h.runAs(t, "!play song a", &Context{GuildID: "g1", ChannelID: "text"})
	if !strings.Contains(rep.lastText(), "voice channel") {
		t.Errorf("reply = %q", rep.lastText())
	}
	if h.resolver.calls != 0 {
		t.Error("resolved a query that could not be played")
	}
}

func TestPlay_ResolutionFailure(t *testing.T) {
	h := newHarness()
	rep := h.run(t, "!play nothing like this")
	if !strings.Contains(rep.lastText(), "failed to resolve") {
		t.Errorf("reply = %q", rep.lastText())
	}
	if ctrl, _ := h.players.Lookup("g1"); ctrl.State() != player.StateDisconnected {
		t.Errorf("state = %v after failed resolve", ctrl.State())
	}
}

func TestPlay_Usage(t *testing.T) {
	h := newHarness()
	if rep := h.run(t, "!play"); !strings.Contains(rep.lastText(), "Usage") {
		t.Errorf("reply = %q", rep.lastText())
	}
}

func TestPauseResumeSkipStop(t *testing.T) {
	h := newHarness()

	if rep := h.run(t, "!pause"); !strings.Contains(rep.lastText(), "not running") {
		t.Errorf("pause while idle: %q", rep.lastText())
	}

	h.run(t, "!play song a")
	h.run(t, "!play song b")

	if rep := h.run(t, "!pause"); rep.lastText() != "⏸ Paused **a**" {
		t.Errorf("pause: %q", rep.lastText())
	}
	if rep := h.run(t, "!pause"); !strings.Contains(rep.lastText(), "not running") {
		t.Errorf("double pause: %q", rep.lastText())
	}
	if rep := h.run(t, "!resume"); rep.lastText() != "▶️ Resumed **a**" {
		t.Errorf("resume: %q", rep.lastText())
	}
	if rep := h.run(t, "!skip"); rep.lastText() != "⏭ Skipped **a**" {
		t.Errorf("skip: %q", rep.lastText())
	}

	rep := h.run(t, "!stop")
	if e := rep.lastEmbed(); e == nil || !strings.Contains(e.Description, "Stopped") {
		t.Errorf("stop: %+v", e)
	}
	ctrl, _ := h.players.Lookup("g1")
	if ctrl.State() != player.StateDisconnected || len(ctrl.Queue()) != 0 {
		t.Errorf("after stop: %v %v", ctrl.State(), ctrl.Queue())
	}

	if rep := h.run(t, "!skip"); !strings.Contains(rep.lastText(), "Nothing is playing") {
		t.Errorf("skip after stop: %q", rep.lastText())
	}
}

func TestQueueAndNowPlaying(t *testing.T) {
	h := newHarness()

	if rep := h.run(t, "!queue"); !strings.Contains(rep.lastEmbed().Description, "empty") {
		t.Errorf("empty queue: %+v", rep.lastEmbed())
	}
	if rep := h.run(t, "!np"); !strings.Contains(rep.lastText(), "Nothing is playing") {
		t.Errorf("np idle: %q", rep.lastText())
	}

	h.run(t, "!play song a")
	h.run(t, "!play song b")

	e := h.run(t, "!q").lastEmbed()
	if !strings.Contains(e.Description, "▶️ [a (2:05)]") || !strings.Contains(e.Description, "1. b (2:05)") {
		t.Errorf("queue = %q", e.Description)
	}

	e = h.run(t, "!np").lastEmbed()
	if e.Title != "a" || e.Footer.Text != "Now playing" {
		t.Errorf("np = %+v", e)
	}
}

func TestPlaylistCommands(t *testing.T) {
	h := newHarness()

	if rep := h.run(t, "!playlist save mix"); !strings.Contains(rep.lastText(), "queue is empty") {
		t.Errorf("save empty: %q", rep.lastText())
	}

	h.run(t, "!play song a")
	h.run(t, "!play song b")
	if rep := h.run(t, "!playlist save road trip"); rep.lastText() != "📂 Saved 2 tracks to **road trip**" {
		t.Errorf("save: %q", rep.lastText())
	}
	if got := player.Titles(h.playlists.lists["road trip"]); fmt.Sprint(got) != "[a b]" {
		t.Errorf("saved %v", got)
	}

	if rep := h.run(t, "!playlist import chill https://www.youtube.com/playlist?list=PL1"); !strings.Contains(rep.lastText(), "Imported 3 tracks") {
		t.Errorf("import: %q", rep.lastText())
	}

	e := h.run(t, "!pl list").lastEmbed()
	if e == nil || !strings.Contains(e.Description, "**chill** (3 tracks)") || !strings.Contains(e.Description, "**road trip** (2 tracks)") {
		t.Errorf("list: %+v", e)
	}

	h.run(t, "!stop")
	h.run(t, "!playlist load chill")
	ctrl, _ := h.players.Lookup("g1")
	st := ctrl.Status()
	if st.Current == nil || st.Current.Title != "x" || len(st.Pending) != 2 {
		t.Errorf("after load: %+v", st)
	}

	if rep := h.run(t, "!playlist delete chill"); !strings.Contains(rep.lastText(), "Deleted") {
		t.Errorf("delete: %q", rep.lastText())
	}
	if rep := h.run(t, "!playlist load chill"); !strings.Contains(rep.lastText(), "not found") {
		t.Errorf("load deleted: %q", rep.lastText())
	}
	if rep := h.run(t, "!playlist frobnicate"); !strings.Contains(rep.lastText(), "Usage") {
		t.Errorf("unknown sub: %q", rep.lastText())
	}
}

func TestGuildOnlyAndHistory(t *testing.T) {
	h := newHarness()

	rep := h.runAs(t, "!queue", &Context{UserID: "u1"})
	if len(rep.texts)+len(rep.embeds) != 0 {
		t.Error("command answered outside a guild")
	}
	if len(h.history.records) != 0 {
		t.Error("direct message recorded in history")
	}

	h.run(t, "!play song a")
	if len(h.history.records) != 1 {
		t.Fatalf("history = %+v", h.history.records)
	}
	rec := h.history.records[0]
	if rec.Command != "play" || rec.Param != "song a" || rec.Username != "someone" {
		t.Errorf("record = %+v", rec)
	}
}

func TestHelp(t *testing.T) {
	h := newHarness()
	e := h.run(t, "!help").lastEmbed()
	if e == nil || len(e.Fields) != 2 {
		t.Fatalf("help = %+v", e)
	}
	var music string
	for _, f := range e.Fields {
		if f.Name == MusicCategory {
			music = f.Value
		}
	}
	if !strings.Contains(music, "`play` (p)") || !strings.Contains(music, "`playlist` (pl)") {
		t.Errorf("music commands = %q", music)
	}
}

func TestMissingContext(t *testing.T) {
	h := newHarness()
	err := h.reg.Get("queue").Run(context.Background(), &cmd.Invocation{Name: "queue"})
	if !errors.Is(err, errNoContext) {
		t.Errorf("err = %v", err)
	}
}
