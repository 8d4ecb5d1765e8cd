package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dothinh115/enfyra-sdk-go/auth"
	"github.com/dothinh115/enfyra-sdk-go/batch"
	"github.com/dothinh115/enfyra-sdk-go/client"
	"github.com/dothinh115/enfyra-sdk-go/config"
	"github.com/dothinh115/enfyra-sdk-go/internal/logger"
	"github.com/dothinh115/enfyra-sdk-go/request"
)

func main() {
	if err := buildCLI().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type app struct {
	cfg   *config.Config
	exec  *client.Executor
	store *auth.Store
	auth  *auth.Service
}

func buildCLI() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "enfyra",
		Short:         "Enfyra API client with batch operations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	root.AddCommand(
		buildGetCommand(&configPath),
		buildDeleteCommand(&configPath),
		buildUploadCommand(&configPath),
		buildLoginCommand(&configPath),
	)
	return root
}

// setup loads config, wires the logger, executor and session store.
func setup(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
	logger.SetDefault(log)

	store := auth.NewStore()
	exec, err := client.New(client.Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout(),
		Token:   store.Token,
		Logger:  log,
	})
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:   cfg,
		exec:  exec,
		store: store,
		auth:  auth.NewService(exec, store, log),
	}, nil
}

// signalContext returns a context cancelled on SIGINT/SIGTERM so an
// in-flight batch stops scheduling new chunks.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// login authenticates from config when credentials are present.
func (a *app) login(ctx context.Context) error {
	if a.cfg.Auth.Email == "" {
		return nil
	}
	_, err := a.auth.Login(ctx, a.cfg.Auth.Email, a.cfg.Auth.Password)
	return err
}

func buildLoginCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Verify the configured credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(*configPath)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			session, err := a.auth.Login(ctx, a.cfg.Auth.Email, a.cfg.Auth.Password)
			if err != nil {
				return err
			}
			fmt.Printf("logged in, token expires at %s\n", session.ExpiresAt.Format(time.RFC3339))
			return nil
		},
	}
}

func buildGetCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <path>",
		Short: "Fetch a resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(*configPath)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()
			if err := a.login(ctx); err != nil {
				return err
			}

			req, err := request.New(a.exec, args[0], request.Options{Method: "GET"})
			if err != nil {
				return err
			}
			data, err := req.Execute(ctx, request.ExecuteOptions{})
			if err != nil {
				return err
			}
			fmt.Printf("%v\n", data)
			return nil
		},
	}
}

func buildDeleteCommand(configPath *string) *cobra.Command {
	var ids []string

	cmd := &cobra.Command{
		Use:   "delete <path>",
		Short: "Delete records in bulk with live progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(ids) == 0 {
				return fmt.Errorf("at least one --ids value is required")
			}
			a, err := setup(*configPath)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()
			if err := a.login(ctx); err != nil {
				return err
			}

			req, err := request.New(a.exec, args[0], request.Options{
				Method:      "DELETE",
				ChunkSize:   a.cfg.Batch.ChunkSize,
				Concurrency: a.cfg.Batch.Concurrency,
				OnProgress:  printProgress,
			})
			if err != nil {
				return err
			}
			if _, err := req.Execute(ctx, request.ExecuteOptions{IDs: ids}); err != nil {
				return err
			}
			return summarize(req.Outcomes())
		},
	}
	cmd.Flags().StringSliceVar(&ids, "ids", nil, "record ids to delete")
	return cmd
}

func buildUploadCommand(configPath *string) *cobra.Command {
	var paths []string

	cmd := &cobra.Command{
		Use:   "upload <path>",
		Short: "Upload files in bulk with live progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(paths) == 0 {
				return fmt.Errorf("at least one --files value is required")
			}
			a, err := setup(*configPath)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()
			if err := a.login(ctx); err != nil {
				return err
			}

			files := make([]client.File, 0, len(paths))
			for _, p := range paths {
				content, err := os.ReadFile(p)
				if err != nil {
					return fmt.Errorf("read %s: %w", p, err)
				}
				name := p
				if idx := strings.LastIndexByte(p, '/'); idx != -1 {
					name = p[idx+1:]
				}
				files = append(files, client.File{Name: name, Content: content})
			}

			req, err := request.New(a.exec, args[0], request.Options{
				Method:      "POST",
				ChunkSize:   a.cfg.Batch.ChunkSize,
				Concurrency: a.cfg.Batch.Concurrency,
				OnProgress:  printProgress,
			})
			if err != nil {
				return err
			}
			if _, err := req.Execute(ctx, request.ExecuteOptions{Files: files}); err != nil {
				return err
			}
			return summarize(req.Outcomes())
		},
	}
	cmd.Flags().StringSliceVar(&paths, "files", nil, "file paths to upload")
	return cmd
}

func printProgress(s batch.Snapshot) {
	eta := ""
	if s.EstimatedRemainingMs > 0 {
		eta = fmt.Sprintf(", eta %s", (time.Duration(s.EstimatedRemainingMs) * time.Millisecond).Round(time.Millisecond))
	}
	fmt.Printf("\r[%3d%%] %d/%d done, %d failed, chunk %d/%d, %.1f ops/s%s   ",
		s.ProgressPercent, s.Completed, s.Total, s.Failed,
		s.CurrentBatch, s.TotalBatches, s.OperationsPerSecond, eta)
}

func summarize(outcomes []batch.Outcome) error {
	fmt.Println()
	failed := 0
	for _, o := range outcomes {
		if o.Status == batch.StatusFailed {
			failed++
			fmt.Printf("item %d failed: %s\n", o.Index, o.Error)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d items failed", failed, len(outcomes))
	}
	fmt.Printf("all %d items succeeded\n", len(outcomes))
	return nil
}
