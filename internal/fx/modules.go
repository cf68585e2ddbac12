package fx

import (
	"go.uber.org/fx"

	"footysync/internal/api"
	"footysync/internal/cache"
	"footysync/internal/config"
	"footysync/internal/feed"
	"footysync/internal/logger"
	"footysync/internal/predict"
	"footysync/internal/realtime"
	"footysync/internal/session"
)

func ProvidePredictBackend(c *api.Client) predict.Backend { return c }

func ProvideFeedBackend(c *api.Client) feed.Backend { return c }

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(cache.New),
	fx.Provide(session.New),
	// api client
	fx.Provide(api.New),
	fx.Provide(ProvidePredictBackend),
	fx.Provide(ProvideFeedBackend),
	// realtime feeds
	fx.Provide(realtime.NewFeeds),
	// coordinator + state
	fx.Provide(predict.NewCoordinator),
	fx.Provide(feed.New),
)
