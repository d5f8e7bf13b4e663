package postgres

import (
	"context"

	"go.uber.org/zap"

	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/adapters/logstore"
)

func init() {
	logstore.Register(logstore.Registration{
		Info: logstore.AdapterInfo{
			Driver:      "postgres",
			DisplayName: "PostgreSQL",
			Description: "Security log mirror on PostgreSQL 14+",
		},
		Factory: func(ctx context.Context, cfg *logstore.Config, logger *zap.Logger) (logstore.Executor, error) {
			return NewExecutor(ctx, cfg, logger)
		},
	})
}
