package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/flowboardhq/flowboard/internal/recommend"
	"github.com/flowboardhq/flowboard/internal/server"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Start the Flowboard HTTP API. The server exposes board and task CRUD,
the wave plan, the next-task recommendation, and a tool-call endpoint.
It shuts down gracefully on SIGINT or SIGTERM.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Close()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	// Config edits are picked up live for logged visibility; a restart is
	// still needed for the listen address and store path.
	viper.OnConfigChange(func(e fsnotify.Event) {
		log.Info("config file changed", "file", e.Name, "op", e.Op.String())
	})
	viper.WatchConfig()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(st, recommend.New(cfg.Recommend.Weights), log)
	log.Info("starting server", "addr", addr, "store", cfg.ResolveStorePath())

	return srv.ListenAndServe(ctx, addr,
		cfg.Server.ReadTimeout(), cfg.Server.WriteTimeout(), cfg.Server.ShutdownTimeout())
}
