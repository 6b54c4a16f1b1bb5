package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/fleetplan/app"
	"github.com/kilianp07/fleetplan/config"
	"github.com/kilianp07/fleetplan/infra/logger"
)

const defaultConfig = "config.yaml"

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "fleetplan",
	Short: "Aircraft to mission assignment service",
	RunE:  run,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduling HTTP service",
	RunE:  run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", defaultConfig, "configuration file")
	rootCmd.AddCommand(serveCmd)
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// loadConfig reads the configuration file. A missing default file falls
// back to built-in defaults.
func loadConfig() (*config.Config, error) {
	path := cfgPath
	if path == defaultConfig {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	log := logger.New("main")
	defer func() {
		if err := svc.Close(); err != nil {
			log.Errorf("service close: %v", err)
		}
	}()
	go reloadOnHangup(ctx, svc, log)
	return svc.Run(ctx)
}

// reloadOnHangup re-reads the configuration on SIGHUP and swaps the airport
// table and type catalog of the running service.
func reloadOnHangup(ctx context.Context, svc *app.Service, log logger.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			cfg, err := loadConfig()
			if err != nil {
				log.Errorf("reload: %v", err)
				continue
			}
			if err := svc.Reload(ctx, cfg); err != nil {
				log.Errorf("reload: %v", err)
				continue
			}
			log.Infof("configuration reloaded from %s", cfgPath)
		}
	}
}
