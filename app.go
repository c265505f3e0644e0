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

	"github.com/Govind-619/StudyHub/commission"
	"github.com/Govind-619/StudyHub/config"
	"github.com/Govind-619/StudyHub/controllers"
	"github.com/Govind-619/StudyHub/events"
	"github.com/Govind-619/StudyHub/jobs"
	"github.com/Govind-619/StudyHub/notifications"
	"github.com/Govind-619/StudyHub/payhere"
	"github.com/Govind-619/StudyHub/routes"
	"github.com/Govind-619/StudyHub/utils"
	"github.com/gin-gonic/gin"
)

type app struct {
	Config    *config.Config
	Engine    *commission.Engine
	Jobs      *jobs.Runner
	Notifier  notifications.Notifier
	Publisher events.Publisher
	closers   []func() error
}

// bootstrap loads configuration and wires every collaborator shared by the server and the jobs
func bootstrap() (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	if err := utils.InitLogger(cfg.LogDir); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	config.InitDB(cfg)

	a := &app{Config: cfg}

	a.Notifier = notifications.NopNotifier{}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != 0 {
		tg, err := notifications.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			utils.LogError("Telegram notifier disabled: %v", err)
		} else {
			a.Notifier = tg
		}
	}

	a.Publisher = events.LogPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kp, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
		}
		a.Publisher = kp
	}
	a.closers = append(a.closers, a.Publisher.Close)

	var locker jobs.Locker = jobs.NewLocalLocker()
	if cfg.RedisURL != "" {
		rl, err := jobs.NewRedisLocker(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis locker: %w", err)
		}
		locker = rl
		a.closers = append(a.closers, rl.Close)
	}

	a.Engine = commission.NewEngine(config.DB, commission.ConfigFrom(cfg),
		commission.WithNotifier(a.Notifier),
		commission.WithPublisher(a.Publisher),
	)
	a.Jobs = jobs.NewRunner(a.Engine, locker, cfg.TierEvaluationTimeout)

	sqlDB, err := config.DB.DB()
	if err == nil {
		a.closers = append(a.closers, sqlDB.Close)
	}
	return a, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			utils.LogError("Shutdown error: %v", err)
		}
	}
}

func runServer() error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.Close()

	if a.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	gateway := payhere.NewClient(a.Config.PayHereLive, a.Config.PayHereSandbox, nil, a.Config.TokenCacheTTL, a.Config.GatewayTimeout)
	mailer := utils.NewSMTPMailer(utils.EmailConfig{
		Host:     a.Config.SMTPHost,
		Port:     a.Config.SMTPPort,
		Username: a.Config.SMTPUsername,
		Password: a.Config.SMTPPassword,
		From:     a.Config.SMTPFrom,
	})

	controllers.Init(controllers.Dependencies{
		Config:    a.Config,
		Engine:    a.Engine,
		Gateway:   gateway,
		Jobs:      a.Jobs,
		Notifier:  a.Notifier,
		Publisher: a.Publisher,
		Mailer:    mailer,
	})

	router := routes.SetupRouter(routes.Options{
		JWTSecret:      a.Config.JWTSecret,
		AllowedOrigins: a.Config.AllowedOrigins,
		Notifier:       a.Notifier,
	})

	srv := &http.Server{
		Addr:              ":" + a.Config.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		utils.LogInfo("Server starting on port %s", a.Config.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			utils.LogError("Error starting server: %v", err)
			return err
		}
	case <-ctx.Done():
	}

	utils.LogInfo("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
