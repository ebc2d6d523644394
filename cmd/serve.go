package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/anuragparashar26/skillscreen/internal/server"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the evaluation HTTP API",
	RunE: func(_ *cobra.Command, _ []string) error {
		return serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default is server.addr)")
	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func serve() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log, config, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	screen, err := newApplication(ctx, config, log)
	if err != nil {
		return err
	}
	defer screen.Close()

	st, err := openStore(ctx, config.Store)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	} else {
		log.Warn("evaluation history disabled", zap.String("reason", "store backend is none"))
	}

	srv := server.New(server.Config{
		Addr:           config.Server.Addr,
		MaxUploadBytes: config.Server.MaxUploadBytes,
	}, screen.evaluator, st, log, screen.registry)

	log.Info("starting the skillscreen server", zap.String("version", version))
	return srv.Run(ctx)
}
