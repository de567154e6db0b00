package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"erdsql/internal/db"
	_ "erdsql/internal/db/extractors"
	"erdsql/internal/logger"
	"erdsql/internal/server"
	"erdsql/pkg/config"
)

const defaultPort = 8080

func main() {
	cfgPath := flag.String("config", filepath.Join(".", "configs", "example.yaml"), "path to config YAML")
	driverFlag := flag.String("driver", "", "db driver override (postgres,mysql,sqlite,sqlserver,godror)")
	dsnFlag := flag.String("dsn", "", "dsn override")
	port := flag.Int("port", 0, fmt.Sprintf("http port (overrides config, default %d)", defaultPort))
	timeout := flag.Duration("timeout", 10*time.Second, "db connect timeout")
	webdir := flag.String("web", filepath.Join(".", "web"), "web ui directory")
	flag.Parse()

	if _, err := os.Stat(*cfgPath); err != nil {
		*cfgPath = ""
	}
	appCfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Fatal("loading configuration: %v", err)
	}
	if err := logger.Setup(appCfg.Logging); err != nil {
		logger.Fatal("%v", err)
	}
	defer logger.Sync()
	if *cfgPath != "" {
		logger.Info("config file %s", *cfgPath)
	}

	srvState := server.New(appCfg, *timeout, db.ConnectAndExtract)

	// flags win over the config file
	if *driverFlag != "" && *dsnFlag != "" {
		srvState.SetActive(config.NormalizeDriver(*driverFlag), *dsnFlag)
	} else if appCfg.Database.Type != "" {
		drv, dsn, err := config.BuildDriverAndDSN(appCfg.Database)
		if err == nil {
			srvState.SetActive(drv, dsn)
		} else {
			logger.Error("error building DSN: %v", err)
		}
	}

	addr := fmt.Sprintf(":%d", firstNonZero(*port, appCfg.Server.Port, defaultPort))
	srv := &http.Server{
		Addr:         addr,
		Handler:      srvState.Handler(*webdir),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening on %s, serving %s", addr, *webdir)
		logger.Info("registered dialects: %v", db.RegisteredDialects())
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("%v", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed: %v", err)
		}
	}
}

// firstNonZero returns the first of its arguments that is not the zero value
// (same semantics as cmp.Or, which requires Go 1.22).
func firstNonZero[T comparable](vals ...T) T {
	var zero T
	for _, v := range vals {
		if v != zero {
			return v
		}
	}
	return zero
}
