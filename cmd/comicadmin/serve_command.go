package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"comicadmin/internal/admin"
	"comicadmin/internal/api"
	"comicadmin/internal/logging"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the admin HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd, ctx, bind)
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (defaults to api.bind)")
	return cmd
}

func runServer(cmd *cobra.Command, ctx *commandContext, bind string) error {
	signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	svc, err := admin.New(cfg, logger, ctx.adminOpts...)
	if err != nil {
		logger.Error("build admin service", logging.Error(err))
		return err
	}

	addr := strings.TrimSpace(bind)
	if addr == "" {
		addr = cfg.API.Bind
	}
	server := api.NewServer(addr, svc, logger)
	if err := server.Start(signalCtx); err != nil {
		return err
	}
	logger.Info("comicadmin started",
		logging.String(logging.FieldEventType, "server_started"),
		logging.String("address", server.Addr()),
		logging.String("comics_path", cfg.ComicsPath()),
		logging.String("site_root", cfg.Paths.SiteRoot))

	<-signalCtx.Done()
	logger.Info("comicadmin stopping", logging.String(logging.FieldEventType, "server_stopping"))
	server.Stop()
	return nil
}
