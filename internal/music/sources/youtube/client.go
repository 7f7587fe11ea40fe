package youtube

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	_ "github.com/bdandy/go-socks4"
	kkdai "github.com/kkdai/youtube/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/proxy"
)

const requestTimeout = 15 * time.Second

// NewHTTPClient returns an HTTP client that goes through proxyStr, if set.
// Supported schemes are http, https, socks5 and socks4. An unusable proxy
// is reported and the client falls back to a direct connection.
func NewHTTPClient(proxyStr string, log logrus.FieldLogger) *http.Client {
	if log == nil {
		log = logrus.StandardLogger()
	}
	direct := &http.Client{Timeout: requestTimeout}
	if proxyStr == "" {
		return direct
	}

	transport, err := proxyTransport(proxyStr)
	if err != nil {
		log.WithError(err).Warn("[YouTube] Proxy unusable, connecting directly")
		return direct
	}
	log.WithField("proxy", redact(proxyStr)).Info("[YouTube] Using proxy")
	return &http.Client{Timeout: requestTimeout, Transport: transport}
}

// NewClient returns a kkdai client using httpClient.
func NewClient(httpClient *http.Client) *kkdai.Client {
	return &kkdai.Client{HTTPClient: httpClient}
}

func proxyTransport(proxyStr string) (*http.Transport, error) {
	proxyURL, err := url.Parse(proxyStr)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy: %w", err)
	}

	base := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 10 * time.Second}

	switch proxyURL.Scheme {
	case "http", "https":
		return &http.Transport{Proxy: http.ProxyURL(proxyURL)}, nil

	case "socks5":
		var auth *proxy.Auth
		if proxyURL.User != nil {
			auth = &proxy.Auth{User: proxyURL.User.Username()}
			if pass, ok := proxyURL.User.Password(); ok {
				auth.Password = pass
			}
		}
		dialer, err := proxy.SOCKS5("tcp", proxyURL.Host, auth, base)
		if err != nil {
			return nil, fmt.Errorf("socks5 dialer: %w", err)
		}
		return dialerTransport(dialer), nil

	case "socks4", "socks4a":
		// Dialers for these schemes come from go-socks4, registered on import.
		dialer, err := proxy.FromURL(proxyURL, base)
		if err != nil {
			return nil, fmt.Errorf("socks4 dialer: %w", err)
		}
		return dialerTransport(dialer), nil

	default:
		return nil, fmt.Errorf("unsupported proxy scheme %q", proxyURL.Scheme)
	}
}

func dialerTransport(d proxy.Dialer) *http.Transport {
	return &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			if cd, ok := d.(proxy.ContextDialer); ok {
				return cd.DialContext(ctx, network, addr)
			}
			return d.Dial(network, addr)
		},
	}
}

func redact(proxyStr string) string {
	u, err := url.Parse(proxyStr)
	if err != nil {
		return "invalid"
	}
	return u.Redacted()
}
