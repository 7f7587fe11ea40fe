package radio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"guild-jukebox/pkg/retrylimit"
)

var validContentTypes = []string{
	"audio/",
	"video/",
	"application/vnd.apple.mpegurl",
	"application/x-mpegurl",
	"application/ogg",
	"application/x-scpls",
	"application/xspf+xml",
	"application/octet-stream", // risky but common for streams
}

// Probe is what a HEAD (or fallback GET) of a stream URL revealed.
type Probe struct {
	ContentType string
	FinalURL    string
	// Name is the station name from the icy-name header, if any.
	Name  string
	Genre string
}

// RadioResolver validates streaming radio links by checking headers and
// file extension heuristics.
type RadioResolver struct {
	Client *http.Client
}

func NewRadioResolver(client *http.Client) *RadioResolver {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	c := *client
	c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= 5 {
			return fmt.Errorf("too many redirects")
		}
		return nil
	}
	return &RadioResolver{Client: &c}
}

// Probe fetches the stream's headers and checks it looks like audio.
func (r *RadioResolver) Probe(ctx context.Context, rawURL string) (Probe, error) {
	resp, err := r.fetch(ctx, http.MethodHead, rawURL)
	if err != nil || resp.StatusCode >= 400 {
		if resp != nil {
			resp.Body.Close()
		}
		// Many stream servers reject HEAD.
		resp, err = r.fetch(ctx, http.MethodGet, rawURL)
		if err != nil {
			return Probe{}, fmt.Errorf("fetch stream headers: %w", err)
		}
	}
	defer resp.Body.Close()
	if resp.Request.Method == http.MethodGet {
		// Live streams never end; read just enough to keep the connection sane.
		_, _ = io.CopyN(io.Discard, resp.Body, 512)
	}

	if code := resp.StatusCode; code >= 400 {
		err := &retrylimit.StatusError{Code: code, Err: fmt.Errorf("stream %s", rawURL)}
		if code < 500 && code != http.StatusTooManyRequests {
			return Probe{}, retrylimit.Fatal(err)
		}
		return Probe{}, err
	}

	p := Probe{
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    resp.Request.URL.String(),
		Name:        strings.TrimSpace(resp.Header.Get("icy-name")),
		Genre:       strings.TrimSpace(resp.Header.Get("icy-genre")),
	}

	if isAllowedType(p.ContentType) || isLikelyPlaylist(p.FinalURL) {
		return p, nil
	}
	return p, retrylimit.Fatal(fmt.Errorf("invalid stream content-type %q, url: %s", p.ContentType, p.FinalURL))
}

func (r *RadioResolver) fetch(ctx context.Context, method, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, retrylimit.Fatal(fmt.Errorf("request creation failed: %w", err))
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Icy-MetaData", "1")
	return r.Client.Do(req)
}

func isAllowedType(contentType string) bool {
	// strip params like "audio/mpeg; charset=utf-8"
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = strings.TrimSpace(contentType[:idx])
	}
	contentType = strings.ToLower(contentType)
	for _, allowed := range validContentTypes {
		if strings.HasPrefix(contentType, allowed) {
			return true
		}
	}
	return false
}

func isLikelyPlaylist(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	switch strings.ToLower(path.Ext(u.Path)) {
	case ".m3u", ".m3u8", ".pls", ".xspf", ".asx":
		return true
	}
	return false
}
