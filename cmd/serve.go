package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"budget/cache"
	"budget/config"
	"budget/database"
	"budget/middleware"
	"budget/router"
	"budget/service"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var flagPort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&flagPort, "port", "p", "", "监听端口，如: 8080 或 :8080")
	rootCmd.AddCommand(serveCmd)
}

// normalizePort 自动添加冒号前缀
func normalizePort(port string) string {
	if port == "" || strings.HasPrefix(port, ":") || strings.Contains(port, ":") {
		return port
	}
	return ":" + port
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if flagPort != "" {
		cfg.Server.Port = normalizePort(flagPort)
	}
	config.PrintConfig()

	if err := database.Init(cfg); err != nil {
		return err
	}
	defer database.Close()

	middleware.InitSession(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	budgetCache, err := cache.New(ctx, cfg.Redis)
	if err != nil {
		// 缓存不可用时直接读库
		logrus.WithError(err).Warn("budget cache disabled")
	}
	defer budgetCache.Close()

	notifiers, closeNotifiers := buildNotifiers(cfg)
	defer closeNotifiers()
	var notifier service.Notifier
	if len(notifiers) > 0 {
		notifier = notifiers
	}

	r := router.SetupRouter(cfg, router.Deps{
		Cache:    budgetCache,
		Notifier: notifier,
		Analyzer: service.NewReceiptClient(cfg.AI),
	})

	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.WithFields(logrus.Fields{
			"addr":    cfg.Server.Port,
			"page":    "http://localhost" + cfg.Server.Port + "/",
			"swagger": "http://localhost" + cfg.Server.Port + "/swagger/index.html",
		}).Info("budget server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logrus.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildNotifiers 组装已启用的站外提醒通道
func buildNotifiers(cfg *config.Config) (service.Notifiers, func()) {
	var notifiers service.Notifiers
	closers := []func(){}

	if cfg.Email.Enabled {
		notifiers = append(notifiers, service.NewEmailService(&cfg.Email))
	}
	if cfg.AMQP.Enabled {
		pub, err := service.NewWarningPublisher(cfg.AMQP.URL, cfg.AMQP.Queue)
		if err != nil {
			logrus.WithError(err).Warn("amqp publisher disabled")
		} else {
			notifiers = append(notifiers, pub)
			closers = append(closers, pub.Close)
		}
	}

	return notifiers, func() {
		for _, c := range closers {
			c()
		}
	}
}
