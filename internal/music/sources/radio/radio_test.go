package radio

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"guild-jukebox/pkg/retrylimit"
)

func TestResolve_StationWithIcyHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Header().Set("icy-name", "Lofi Radio")
		w.Header().Set("icy-genre", "Chillout")
		_, _ = w.Write(make([]byte, 2048))
	}))
	defer srv.Close()

	src := New(NewRadioResolver(srv.Client()))
	if !src.Match(srv.URL + "/live") {
		t.Fatal("stream URL not matched")
	}

	tracks, err := src.Resolve(context.Background(), srv.URL+"/live")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(tracks) != 1 {
		t.Fatalf("got %d tracks", len(tracks))
	}
	got := tracks[0]
	if got.Title != "Lofi Radio" || got.Channel != "Chillout" || got.URL != srv.URL+"/live" {
		t.Errorf("track = %+v", got)
	}
}

func TestResolve_FallsBackToPathName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/aac; charset=utf-8")
	}))
	defer srv.Close()

	tracks, err := New(NewRadioResolver(srv.Client())).Resolve(context.Background(), srv.URL+"/streams/jazz.aac?sid=1")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if tracks[0].Title != "jazz.aac" || tracks[0].Channel != "Radio" {
		t.Errorf("track = %+v", tracks[0])
	}
}

func TestResolve_RejectsWebPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
	}))
	defer srv.Close()

	_, err := New(NewRadioResolver(srv.Client())).Resolve(context.Background(), srv.URL+"/index")
	var fatal *retrylimit.FatalError
	if !errors.As(err, &fatal) {
		t.Fatalf("err = %v, want a fatal error", err)
	}
}

func TestResolve_StatusCodes(t *testing.T) {
	for _, tt := range []struct {
		code  int
		fatal bool
	}{
		{http.StatusNotFound, true},
		{http.StatusServiceUnavailable, false},
	} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.code)
		}))

		_, err := New(NewRadioResolver(srv.Client())).Resolve(context.Background(), srv.URL)
		srv.Close()

		var fatal *retrylimit.FatalError
		if errors.As(err, &fatal) != tt.fatal {
			t.Errorf("status %d: err = %v, fatal want %v", tt.code, err, tt.fatal)
		}
		if !retrylimit.DefaultClassifier(err) && tt.code >= 500 {
			t.Errorf("status %d should be classified as retryable overload", tt.code)
		}
	}
}

func TestIsLikelyPlaylist(t *testing.T) {
	for in, want := range map[string]bool{
		"https://x.example/list.M3U8":  true,
		"https://x.example/radio.pls":  true,
		"https://x.example/stream.mp3": false,
		"::bad::":                      false,
	} {
		if got := isLikelyPlaylist(in); got != want {
			t.Errorf("isLikelyPlaylist(%q) = %v", in, got)
		}
	}
}
