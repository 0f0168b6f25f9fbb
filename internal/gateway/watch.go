package gateway

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tordrt/autogql/internal/db"
)

// Watch re-derives the schema whenever the store structure changes, until
// ctx is cancelled. Changes are detected by polling the introspection
// fingerprint; on Postgres a DDL event trigger also wakes the watcher early.
func (g *Gateway) Watch(ctx context.Context) {
	if !g.opts.WatchSchema {
		return
	}

	wake := make(chan struct{}, 1)
	if pg, ok := g.conn.(*db.PostgresClient); ok {
		g.listen(ctx, pg, wake)
	}

	ticker := time.NewTicker(g.opts.WatchInterval)
	defer ticker.Stop()

	g.logger.Info("watching store for structural changes", zap.Duration("interval", g.opts.WatchInterval))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-wake:
		}

		swapped, err := g.Rebuild(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			g.logger.Error("schema rebuild failed, keeping previous schema", zap.Error(err))
			continue
		}
		if swapped {
			g.logger.Info("store structure changed, schema replaced")
		}
	}
}

func (g *Gateway) listen(ctx context.Context, pg *db.PostgresClient, wake chan<- struct{}) {
	if err := pg.InstallWatchTrigger(ctx); err != nil {
		g.logger.Warn("could not install watch trigger, falling back to polling", zap.Error(err))
		return
	}

	go func() {
		err := pg.Listen(ctx, db.WatchChannel, func(tag string) {
			g.logger.Debug("ddl notification", zap.String("tag", tag))
			select {
			case wake <- struct{}{}:
			default:
			}
		})
		if err != nil {
			g.logger.Warn("watch listener stopped, falling back to polling", zap.Error(err))
		}
	}()
}
