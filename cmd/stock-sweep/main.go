// Command stock-sweep marks expired blood stock once and records the run.
// It is meant for an external scheduler when the server's own cron is off.
package main

import (
	"context"
	"os"
	"time"

	"github.com/ananduvinod04/hemohub/internal/config"
	"github.com/ananduvinod04/hemohub/internal/database"
	"github.com/ananduvinod04/hemohub/internal/deletelog"
	"github.com/ananduvinod04/hemohub/internal/jobs"
	"github.com/ananduvinod04/hemohub/internal/stock"
	"github.com/ananduvinod04/hemohub/pkg/logger"
)

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	client, err := database.ConnectWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, 3)
	if err != nil {
		logger.Fatalf("could not connect to MongoDB: %v", err)
	}
	defer func() { _ = client.Disconnect(context.Background()) }()
	db := client.Database(cfg.MongoDB.Database)

	lots := stock.NewService(
		stock.NewMongoRepository(db.Collection(database.StockCollection)),
		deletelog.NewService(deletelog.NewMongoRepository(db.Collection(database.DeleteLogsCollection))),
	)
	runner := jobs.NewRunner(jobs.NewMongoRunStore(db.Collection(database.JobRunsCollection)))

	run, err := runner.Run(ctx, jobs.StockExpirySweep, lots.ExpireLots)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
	logger.Infof("marked %d lots expired", run.Affected)
}
