package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"taskline/app"
	"taskline/common"
	"taskline/config"
	"taskline/indices"
	"taskline/infra/tracing"
	"taskline/persistence"
	"taskline/servehttp"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:           "taskline",
	Short:         "Multi-tenant task tracker with telegram notifications",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (yaml, json or toml)")
	rootCmd.AddCommand(serveCmd(), migrateCmd(), dispatchCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	c, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	common.ConfigureLogger(c.Log.Format, c.Log.Level)
	return c, nil
}

func serveCmd() *cobra.Command {
	noDispatch := false
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST API, the telegram bot and the notification dispatcher",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfig()
			if err != nil {
				return err
			}
			closer := initTracer()
			defer closer.Close()

			ds, err := app.OpenDatabase(c.Database)
			if err != nil {
				return err
			}
			defer ds.Stop()
			if err := app.Migrate(cmd.Context(), ds); err != nil {
				return err
			}

			app.WireServices(c)
			searchEnabled, err := app.ConfigureSearch(c.Elasticsearch)
			if err != nil {
				return err
			}
			engine, err := app.BuildEngine(c, searchEnabled)
			if err != nil {
				return err
			}

			stops := []func(){}
			if searchEnabled {
				crontab, err := indices.StartNightlySync()
				if err != nil {
					return err
				}
				stops = append(stops, func() { <-crontab.Stop().Done() })
			}
			stopDelivery, err := app.StartDelivery(context.Background(), c, c.Dispatcher.Enabled && !noDispatch)
			if err != nil {
				return err
			}
			stops = append(stops, stopDelivery)

			return servehttp.Serve(c.HTTP.Addr, engine, stops...)
		},
	}
	cmd.Flags().BoolVar(&noDispatch, "no-dispatch", false, "do not run the notification dispatcher in this process")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and seed the default workflow",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfig()
			if err != nil {
				return err
			}
			ds, err := app.OpenDatabase(c.Database)
			if err != nil {
				return err
			}
			defer ds.Stop()
			if err := app.Migrate(cmd.Context(), ds); err != nil {
				return err
			}
			logrus.Info("database migrated")
			return nil
		},
	}
}

func dispatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dispatch",
		Short: "Run only the telegram bot and the notification dispatcher",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfig()
			if err != nil {
				return err
			}
			closer := initTracer()
			defer closer.Close()

			var ds *persistence.DataSourceManager
			if ds, err = app.OpenDatabase(c.Database); err != nil {
				return err
			}
			defer ds.Stop()
			app.WireServices(c)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			stopDelivery, err := app.StartDelivery(ctx, c, true)
			if err != nil {
				return err
			}
			<-ctx.Done()
			logrus.Info("[QUIT] shutdown signal has been received")
			stopDelivery()
			return nil
		},
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func initTracer() io.Closer {
	closer, err := tracing.InitGlobalTracer("taskline")
	if err != nil {
		logrus.Warn("tracing disabled: ", err)
		return nopCloser{}
	}
	return closer
}
