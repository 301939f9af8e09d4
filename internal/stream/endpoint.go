package stream

import (
	"fmt"
	"net/url"
	"strings"
)

// DeriveEndpoint builds the WebSocket URL for a backend base URL: http becomes
// ws, https becomes wss, and path is appended to the base path. It is a pure
// function of its inputs.
func DeriveEndpoint(base, path string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url %q: %w", base, err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
		// Already a WebSocket URL.
	default:
		return "", fmt.Errorf("unsupported scheme %q in base url %q", u.Scheme, base)
	}

	if u.Host == "" {
		return "", fmt.Errorf("base url %q has no host", base)
	}

	u.Path = strings.TrimSuffix(u.Path, "/") + path
	return u.String(), nil
}
