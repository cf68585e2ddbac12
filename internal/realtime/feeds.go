package realtime

import (
	"fmt"
	"net/url"

	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"footysync/internal/config"
)

// Feeds bundles the two process-wide channels. The match feed is an
// unaddressed broadcast; the user feed carries chat, friend-request and
// notification events for one user and is nil until a user id is known.
type Feeds struct {
	Matches *Channel
	User    *Channel
}

func NewFeeds(cfg *config.Config, logger zerolog.Logger) (*Feeds, error) {
	matchURL, err := feedURL(cfg.BackendOrigin, "/ws/matches")
	if err != nil {
		return nil, err
	}

	f := &Feeds{Matches: newChannel("matches", matchURL, logger)}

	if cfg.UserID != "" {
		userURL, err := feedURL(cfg.BackendOrigin, "/ws/users/"+cfg.UserID)
		if err != nil {
			return nil, err
		}
		f.User = newChannel("user", userURL, logger)
	}
	return f, nil
}

// feedURL swaps the configured origin's HTTP scheme for the matching
// WebSocket one and appends the feed path.
func feedURL(origin, path string) (string, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return "", fmt.Errorf("parse backend origin: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported origin scheme %q", u.Scheme)
	}
	u.Path = path
	return u.String(), nil
}

var Module = fx.Provide(NewFeeds)
