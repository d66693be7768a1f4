package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ananduvinod04/hemohub/handlers"
	"github.com/ananduvinod04/hemohub/internal/accounts"
	"github.com/ananduvinod04/hemohub/internal/appointments"
	"github.com/ananduvinod04/hemohub/internal/config"
	"github.com/ananduvinod04/hemohub/internal/database"
	"github.com/ananduvinod04/hemohub/internal/deletelog"
	"github.com/ananduvinod04/hemohub/internal/jobs"
	"github.com/ananduvinod04/hemohub/internal/models"
	"github.com/ananduvinod04/hemohub/internal/notify"
	"github.com/ananduvinod04/hemohub/internal/requests"
	"github.com/ananduvinod04/hemohub/internal/sessions"
	"github.com/ananduvinod04/hemohub/internal/stock"
	"github.com/ananduvinod04/hemohub/internal/storage"
	"github.com/ananduvinod04/hemohub/internal/tokens"
	"github.com/ananduvinod04/hemohub/pkg/logger"
	"github.com/ananduvinod04/hemohub/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

func main() {
	// LOG_LEVEL is read again from config; this covers failures while loading it
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Init(cfg.LogLevel)
	if cfg.IsProduction() {
		logger.InitFormat("json")
		gin.SetMode(gin.ReleaseMode)
	}
	logger.Infof("config loaded: env=%s mongo_db=%s redis=%v smtp=%v minio=%v",
		cfg.Server.Environment, cfg.MongoDB.Database, cfg.Redis.Host != "", cfg.SMTP.Host != "", cfg.MinIO.Endpoint != "")

	ctx := context.Background()
	client, err := database.ConnectWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, 5)
	if err != nil {
		logger.Fatalf("could not connect to MongoDB: %v", err)
	}
	defer func() { _ = client.Disconnect(context.Background()) }()
	db := client.Database(cfg.MongoDB.Database)
	if err := database.EnsureIndexes(ctx, db); err != nil {
		logger.Warnf("ensure indexes: %v", err)
	}
	logger.Infof("connected to MongoDB database %s", cfg.MongoDB.Database)

	// Redis is optional: it backs token revocation and the shared rate limiter
	var rdb *redis.Client
	if cfg.Redis.Host != "" {
		c := redis.NewClient(&redis.Options{Addr: cfg.Redis.Host + ":" + cfg.Redis.Port, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := c.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
			_ = c.Close()
		} else {
			rdb = c
			defer func() { _ = rdb.Close() }()
			logger.Infof("connected to Redis %s:%s", cfg.Redis.Host, cfg.Redis.Port)
		}
	}

	var sessionsSvc *sessions.Service
	if rdb != nil {
		sessionsSvc = sessions.NewService(sessions.NewRedisRepository(rdb, "revoked:"))
		logger.Infof("using Redis for token revocation")
	} else {
		sessionsSvc = sessions.NewService(sessions.NewMongoRepository(db.Collection(database.RevocationsCollection)))
	}

	donors := accounts.NewDonorService(accounts.NewMongoRepository[models.Donor](db.Collection(models.RoleDonor.Collection())))
	hospitals := accounts.NewHospitalService(accounts.NewMongoRepository[models.Hospital](db.Collection(models.RoleHospital.Collection())))
	recipients := accounts.NewRecipientService(accounts.NewMongoRepository[models.Recipient](db.Collection(models.RoleRecipient.Collection())))
	admins := accounts.NewAdminService(accounts.NewMongoRepository[models.Admin](db.Collection(models.RoleAdmin.Collection())))

	logs := deletelog.NewService(deletelog.NewMongoRepository(db.Collection(database.DeleteLogsCollection)))
	mailer := notify.New(cfg.SMTP)

	appts := appointments.NewService(appointments.NewMongoRepository(db.Collection(database.AppointmentsCollection)), donors, logs, mailer)
	lots := stock.NewService(stock.NewMongoRepository(db.Collection(database.StockCollection)), logs)
	reqs := requests.NewService(requests.NewMongoRepository(db.Collection(database.RequestsCollection)), hospitals, recipients, logs, mailer)

	logs.Register(models.ItemDonor, donors.Repository())
	logs.Register(models.ItemHospital, hospitals.Repository())
	logs.Register(models.ItemRecipient, recipients.Repository())
	logs.Register(models.ItemAppointment, appts.Repository())
	logs.Register(models.ItemBloodStock, lots.Repository())
	logs.Register(models.ItemRecipientRequest, reqs.Repository())

	// a nil ObjectStore interface, not a nil *MinIOStorage, marks storage as unconfigured
	var objects storage.ObjectStore
	if cfg.MinIO.Endpoint != "" {
		m, err := storage.NewMinIOStorage(ctx, cfg.MinIO)
		if err != nil {
			logger.Warnf("license storage disabled: %v", err)
		} else {
			objects = m
			logger.Infof("license documents stored in MinIO bucket %s", cfg.MinIO.Bucket)
		}
	}

	runner := jobs.NewRunner(jobs.NewMongoRunStore(db.Collection(database.JobRunsCollection)))
	scheduler := jobs.NewScheduler(runner)
	if err := scheduler.Add(cfg.Jobs.StockSweepSchedule, jobs.StockExpirySweep, lots.ExpireLots); err != nil {
		logger.Fatalf("%v", err)
	}
	scheduler.Start()

	checks := map[string]handlers.Check{
		"mongo": func(ctx context.Context) error { return client.Ping(ctx, nil) },
	}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r := handlers.NewRouter(handlers.Services{
		Donors:       donors,
		Hospitals:    hospitals,
		Recipients:   recipients,
		Admins:       admins,
		Tokens:       tokens.NewService(cfg.JWT.Secret, cfg.JWT.TokenTTL),
		Sessions:     sessionsSvc,
		Appointments: appts,
		Stock:        lots,
		Requests:     reqs,
		DeleteLogs:   logs,
		Licenses:     storage.NewLicenses(objects, hospitals),
		Jobs:         runner,
	}, handlers.Options{
		FrontendURL:  cfg.Server.FrontendURL,
		CookieSecure: cfg.Server.CookieSecure,
		RateLimit:    cfg.RateLimit,
		Redis:        rdb,
		Checks:       checks,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("starting hemohub on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Infof("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server shutdown: %v", err)
	}
	scheduler.Stop(shutdownCtx)
}
