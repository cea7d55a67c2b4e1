package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mobilecoinofficial/qrhunt/internal/config"
	"github.com/mobilecoinofficial/qrhunt/internal/logging"
)

// app carries what PersistentPreRunE resolved to the subcommands.
type app struct {
	v          *viper.Viper
	configFile string
	cfg        config.Config
	log        zerolog.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{v: config.New()}

	rootCmd := &cobra.Command{
		Use:   "qrhunt",
		Short: "QR code scavenger hunt",
		Long: "qrhunt evaluates images submitted by users, awards points for QR codes and " +
			"square-ish objects, and refuses images and values it has already seen.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	if err := setupFlags(rootCmd, a); err != nil {
		panic(err)
	}

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		return a.initialize()
	}

	serveCmd := serveCommand(a)
	rootCmd.RunE = serveCmd.RunE

	rootCmd.AddCommand(
		serveCmd,
		evaluateCommand(a),
		workerCommand(a),
		versionCommand(),
	)
	return rootCmd
}

// setupFlags defines the global flags and binds them to their config keys so
// that flags take precedence over the environment and the config file.
func setupFlags(rootCmd *cobra.Command, a *app) error {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "Config file (default ./qrhunt.yaml or /etc/qrhunt/qrhunt.yaml)")
	flags.String("log-level", "info", "Log level: debug, info, warn or error")
	flags.Bool("log-pretty", false, "Human-readable log output")
	flags.String("storage-driver", config.DriverSQLite, "Ledger backend: sqlite, mysql or memory")
	flags.String("storage-dsn", "qrhunt.db", "SQLite file path or MySQL DSN")
	flags.String("worker-mode", config.WorkerModeGoroutine, "Detection isolation: goroutine or process")
	flags.String("metrics-listen", "", "Address for the Prometheus endpoint, e.g. :9090")

	bindings := map[string]string{
		"log.level":      "log-level",
		"log.pretty":     "log-pretty",
		"storage.driver": "storage-driver",
		"storage.dsn":    "storage-dsn",
		"worker.mode":    "worker-mode",
		"metrics.listen": "metrics-listen",
	}
	for key, name := range bindings {
		if err := a.v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", name, err)
		}
	}
	return nil
}

func (a *app) initialize() error {
	if a.configFile != "" {
		a.v.SetConfigFile(a.configFile)
	}
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = logging.New(logging.Options{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	return nil
}

// workerArgs are the global flags a worker child process is started with.
func (a *app) workerArgs() []string {
	args := []string{"--log-level", a.cfg.Log.Level}
	if a.configFile != "" {
		args = append(args, "--config", a.configFile)
	}
	return args
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "qrhunt %s\n", Version)
			fmt.Fprintf(out, "  Build time: %s\n", BuildTime)
			fmt.Fprintf(out, "  Git commit: %s\n", GitCommit)
		},
	}
}
