// cmd/engine/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"loan-workflow/internal/api"
	"loan-workflow/internal/audit"
	"loan-workflow/internal/clients"
	"loan-workflow/internal/common/config"
	"loan-workflow/internal/common/database"
	"loan-workflow/internal/common/logger"
	"loan-workflow/internal/common/observability"
	"loan-workflow/internal/models"
	"loan-workflow/internal/notify"
	"loan-workflow/internal/verification"
	"loan-workflow/internal/workflow/evaluator"
	"loan-workflow/internal/workflow/gate"
	"loan-workflow/internal/workflow/navigator"
	"loan-workflow/internal/workflow/registry"
	"loan-workflow/internal/workflow/statemachine"

	awsclients "loan-workflow/internal/common/aws"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting loan workflow engine...",
		zap.String("app", cfg.App.Name),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Collaborator clients ---
	applications := clients.NewApplicationService(cfg.Collaborators.Application, log)
	applicants := clients.NewApplicantService(cfg.Collaborators.Applicant, log)
	properties := clients.NewPropertyService(cfg.Collaborators.Property, log)
	documents := clients.NewDocumentService(cfg.Collaborators.Document, log)
	bank := clients.NewBankVerifier(cfg.Collaborators.Bank, log)
	bureau := clients.NewBureauClient(cfg.Collaborators.Bureau, log)
	ekyc := clients.NewEKYCClient(cfg.Collaborators.EKYC, log)

	// --- Notifications ---
	var notifier *notify.Notifier
	if cfg.Notifications.Email.Enabled || cfg.Notifications.SMS.Enabled {
		sesClient, err := awsclients.NewSESClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("ses client init failed", zap.Error(err))
		}
		snsClient, err := awsclients.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("sns client init failed", zap.Error(err))
		}
		notifier = notify.New(cfg.Notifications, sesClient, snsClient, applicants, log)
	}

	// --- Workflow core ---
	reg := registry.New()
	verificationStore := verification.NewStore(rdb, cfg.Verification.TTL())
	loader := evaluator.NewLoader(reg, applications, applicants, properties, documents, verificationStore, log)
	auditStore := audit.NewStore(pg)

	submissionGate := gate.New(reg, cfg.Workflow.SubmissionThreshold)

	var transitionNotifier statemachine.Notifier
	if notifier != nil {
		transitionNotifier = notifier
	}
	machine := statemachine.NewMachine(applications, submissionGate, loader, rdb, auditStore, transitionNotifier, cfg.Workflow.IdempotencyWindow(), log)

	// Terminal verification outcomes are recorded for audit and the
	// snapshot is recomputed so checkmarks catch up immediately.
	onTerminal := func(ctx context.Context, job *models.VerificationJob) {
		if err := auditStore.RecordVerification(ctx, job); err != nil {
			log.Warn("failed to record verification outcome", map[string]interface{}{
				"application_id": job.ApplicationID, "error": err.Error(),
			})
		}
		if _, err := loader.Snapshot(ctx, job.ApplicationID); err != nil {
			log.Warn("post-verification snapshot failed", map[string]interface{}{
				"application_id": job.ApplicationID, "error": err.Error(),
			})
		}
	}

	orch := verification.NewOrchestrator(
		verificationStore, applications, applicants,
		bank, bureau, ekyc,
		cfg.Verification, verification.NewClock(), onTerminal, obs, log,
	)
	defer orch.Shutdown()

	// --- Cron sweeper for orphaned verification jobs ---
	sweeper := cron.New()
	if _, err := sweeper.AddFunc(cfg.Verification.SweepSchedule, func() {
		if _, err := orch.SweepExpired(context.Background()); err != nil {
			log.Warn("verification sweep failed", map[string]interface{}{"error": err.Error()})
		}
	}); err != nil {
		zapLog.Fatal("invalid sweep schedule", zap.Error(err))
	}
	sweeper.Start()
	defer sweeper.Stop()

	// --- HTTP server ---
	handler := api.NewHandler(loader, navigator.New(reg), machine, orch, log)
	router := api.NewRouter(handler, map[string]api.Pinger{
		"redis":    rdb,
		"postgres": pg,
	})

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Millisecond,
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	zapLog.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Millisecond)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("http shutdown failed", zap.Error(err))
	}
	zapLog.Info("Engine stopped")
}
