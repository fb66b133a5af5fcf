package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	domdigest "github.com/kailas-cloud/readdigest/internal/domain/digest"
	chiTransport "github.com/kailas-cloud/readdigest/internal/transport/chi"
	"github.com/kailas-cloud/readdigest/internal/version"
)

func newRunCmd(flags *globalFlags) *cobra.Command {
	var req domdigest.Request

	cmd := &cobra.Command{
		Use:   "run FILE",
		Short: "Extract keyword passages from a document and store them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			logger, err := flags.newLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			a, err := buildApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			req.Path = args[0]
			res, err := a.digests.Run(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			if res.Err != nil {
				return fmt.Errorf("run %s: %w", res.State, res.Err)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&req.Keywords, "keywords", "k", nil, "keywords to search for (repeatable or comma separated)")
	cmd.Flags().StringVarP(&req.Source, "source", "s", "", "source or book name (default: file name)")
	cmd.Flags().StringVarP(&req.Author, "author", "a", "", "author name")
	_ = cmd.MarkFlagRequired("keywords")
	return cmd
}

func newEstimateCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "estimate FILE",
		Short: "Estimate the cost of a document without processing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			logger, err := flags.newLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			a, err := buildApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			est, err := a.digests.Estimate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), est.Message)
			return est.Err
		},
	}
}

func newServeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the digest HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			logger, err := flags.newLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			logger.Info("Starting readdigest API server",
				zap.String("version", version.Version),
				zap.String("commit", version.Commit),
				zap.String("env", flags.env),
				zap.Int("http_port", cfg.HTTP.Port),
				zap.String("store_driver", cfg.Store.Driver),
				zap.String("document_root", cfg.HTTP.DocumentRoot),
			)

			ctx := cmd.Context()
			a, err := buildApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			server := chiTransport.NewServer(a.digests, a.tracker, a.health, logger).
				WithAPIKeys(cfg.HTTP.APIKeys).
				WithDocumentRoot(cfg.HTTP.DocumentRoot)
			if a.records != nil {
				server.WithRecords(a.records)
			}
			if len(cfg.HTTP.APIKeys) == 0 {
				logger.Warn("HTTP API authentication disabled (http.api_keys is empty)")
			}
			addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
			srv := &http.Server{
				Addr:         addr,
				Handler:      server.Router(),
				ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
				WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("Starting HTTP server", zap.String("addr", addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("http server: %w", err)
				}
				return nil
			case <-ctx.Done():
				logger.Info("Received shutdown signal")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("Error during shutdown", zap.Error(err))
			}
			logger.Info("Server stopped gracefully")
			return nil
		},
	}
}
