// syncd is a headless client of the prediction platform: it keeps the
// match list, chat and friend state synchronized over the realtime feeds
// and logs what changes. It exists so the synchronization layer can run
// outside a browser (bots, kiosk scoreboards, monitoring).
package main

import (
	"context"

	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"footysync/internal/config"
	"footysync/internal/constants"
	"footysync/internal/feed"
	fxmodules "footysync/internal/fx"
	"footysync/internal/realtime"
	"footysync/internal/session"
)

func main() {
	fx.New(
		fxmodules.Module,
		fx.StopTimeout(constants.ShutdownTimeout),
		fx.Invoke(runClient),
	).Run()
}

func runClient(
	lc fx.Lifecycle,
	cfg *config.Config,
	feeds *realtime.Feeds,
	svc *feed.Service,
	store *session.Store,
	logger zerolog.Logger,
) {
	svc.Bind(feeds)

	svc.Subscribe(func(snap feed.Snapshot) {
		logger.Debug().
			Int("matches", len(snap.Matches)).
			Int("conversations", len(snap.Conversations)).
			Int("unread_total", snap.UnreadTotal).
			Int("pending_requests", snap.PendingCount).
			Msg("state updated")
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				loadCtx, cancel := context.WithTimeout(context.Background(), constants.RequestTimeout)
				defer cancel()

				if err := svc.LoadMatches(loadCtx, cfg.LeagueID); err != nil {
					logger.Warn().Err(err).Msg("initial match load failed, waiting for push feed")
				}
				if cfg.UserID != "" {
					if err := svc.LoadInbox(loadCtx); err != nil {
						logger.Warn().Err(err).Msg("initial inbox load failed")
					}
				}
			}()

			if err := feeds.Matches.Connect(ctx); err != nil {
				// The channel reschedules itself; startup proceeds.
				logger.Warn().Err(err).Msg("match feed not yet connected")
			}
			if feeds.User != nil {
				if err := feeds.User.Connect(ctx); err != nil {
					logger.Warn().Err(err).Msg("user feed not yet connected")
				}
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("shutting down")
			feeds.Matches.Disconnect()
			if feeds.User != nil {
				feeds.User.Disconnect()
			}
			if err := store.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing session store")
			}
			logger.Info().Msg("stopped cleanly")
			return nil
		},
	})
}
