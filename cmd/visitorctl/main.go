// Command visitorctl imports and exports visitor entries directly against
// the database configured for visitord.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"visitor-register-backend/config"
	"visitor-register-backend/internal/db"
	"visitor-register-backend/internal/export"
	"visitor-register-backend/internal/lifecycle"
	"visitor-register-backend/internal/store"
)

type globalOptions struct {
	configPath string
	dsn        string
	driver     string
}

// app is the wiring shared by all subcommands.
type app struct {
	cfg   *config.Config
	store store.Store
	ctrl  *lifecycle.Controller
}

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts globalOptions

	root := &cobra.Command{
		Use:           "visitorctl",
		Short:         "Manage the visitor register from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = "./config/config.yaml"
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfig, "Path to the YAML configuration")
	root.PersistentFlags().StringVar(&opts.dsn, "dsn", "", "Database DSN (overrides the configuration)")
	root.PersistentFlags().StringVar(&opts.driver, "driver", "", "Database driver: postgres, sqlite or mysql")

	connect := func() (*app, error) {
		return newApp(opts)
	}

	root.AddCommand(
		newImportCmd(connect),
		newExportCmd(connect),
		newQRCmd(connect),
	)
	return root
}

func newApp(opts globalOptions) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = config.Default()
	}
	if opts.dsn != "" {
		cfg.Database.DSN = opts.dsn
	}
	if opts.driver != "" {
		cfg.Database.Driver = opts.driver
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		return nil, err
	}
	s := store.NewGormStore(gormDB)
	return &app{
		cfg:   cfg,
		store: s,
		ctrl:  lifecycle.New(s, lifecycle.WithRequireDetails(cfg.Entries.DetailsRequired())),
	}, nil
}

func (a *app) exportOptions() export.Options {
	opts, err := export.NewOptions(a.cfg.Export.Title, a.cfg.Export.Timezone)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: unknown timezone %q, using UTC\n", a.cfg.Export.Timezone)
	}
	return opts
}
