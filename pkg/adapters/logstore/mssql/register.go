package mssql

import (
	"context"

	"go.uber.org/zap"

	"github.com/0labdotnet/azureAI-sentinel-sub001/pkg/adapters/logstore"
)

func init() {
	logstore.Register(logstore.Registration{
		Info: logstore.AdapterInfo{
			Driver:      "mssql",
			DisplayName: "Microsoft SQL Server",
			Description: "Security log mirror on SQL Server 2019+ or Azure SQL",
		},
		Factory: func(ctx context.Context, cfg *logstore.Config, logger *zap.Logger) (logstore.Executor, error) {
			return NewExecutor(cfg, logger)
		},
	})
}
