package youtube

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	kkdai "github.com/kkdai/youtube/v2"
)

var youtubeURLPattern = regexp.MustCompile(`^(?:https?://)?(?:www\.|m\.|music\.)?(youtube\.com|youtu\.be)/\S+`)

func isYouTubeURL(input string) bool {
	return youtubeURLPattern.MatchString(input)
}

// isPlaylistURL reports whether input points at a playlist page. Watch links
// that carry a list parameter are treated as single videos.
func isPlaylistURL(input string) bool {
	if !isYouTubeURL(input) {
		return false
	}
	u, err := url.Parse(input)
	if err != nil {
		return false
	}
	return u.Path == "/playlist" && u.Query().Get("list") != ""
}

func watchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

// CleanVideoURL drops everything but the video ID from a watch or short link.
func CleanVideoURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	host := u.Hostname()

	switch host {
	case "youtu.be":
		// https://youtu.be/<id>?t=123
		vid := strings.Trim(u.Path, "/")
		if vid == "" {
			return raw
		}
		return fmt.Sprintf("https://youtu.be/%s", vid)

	case "www.youtube.com", "youtube.com", "m.youtube.com", "music.youtube.com":
		// https://www.youtube.com/watch?v=<id>&list=...
		if u.Path == "/watch" {
			if vid := u.Query().Get("v"); vid != "" {
				return fmt.Sprintf("https://%s/watch?v=%s", host, vid)
			}
		}
		return raw

	default:
		return raw
	}
}

func bestThumbnail(thumbs kkdai.Thumbnails) string {
	best := ""
	var width uint
	for _, t := range thumbs {
		if t.URL != "" && (best == "" || t.Width > width) {
			best, width = t.URL, t.Width
		}
	}
	return best
}
