package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yourorg/integbuilder/internal/config"
	"github.com/yourorg/integbuilder/internal/generator"
	"github.com/yourorg/integbuilder/internal/logging"
	"github.com/yourorg/integbuilder/internal/server"
	"github.com/yourorg/integbuilder/internal/store"
	"github.com/yourorg/integbuilder/pkg/types"
)

const defaultConfigContent = `llm:
  provider: "anthropic"
  api_key: ""
  base_url: ""
  model: "claude-sonnet-4-20250514"
  max_tokens: 4000
  temperature: 0.3

server:
  host: "127.0.0.1"
  port: 8501

workflow:
  default_auth: "oauth2"
  default_language: "Python"

log:
  level: "info"
`

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:   "integbuilder",
		Short: "AI Integration Builder",
		Long:  "Walks an API documentation URL through configure, generate, review, test and deploy stages to produce integration code.",
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", "", "config file path")

	root.AddCommand(newInitCmd())
	root.AddCommand(newServeCmd(&cfgPath))
	root.AddCommand(newGenerateCmd(&cfgPath))
	root.AddCommand(newListCmd(&cfgPath))
	root.AddCommand(newShowCmd(&cfgPath))
	root.AddCommand(newDeleteCmd(&cfgPath))

	return root
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize ~/.integbuilder directory and default config",
		RunE: func(cmd *cobra.Command, args []string) error {
			home, err := os.UserHomeDir()
			if err != nil {
				return err
			}
			baseDir := filepath.Join(home, ".integbuilder")
			if err := os.MkdirAll(baseDir, 0o755); err != nil {
				return err
			}

			cfgFile := filepath.Join(baseDir, "config.yaml")
			if _, err := os.Stat(cfgFile); errors.Is(err, os.ErrNotExist) {
				if err := os.WriteFile(cfgFile, []byte(defaultConfigContent), 0o644); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "created", cfgFile)
			} else if err == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "exists", cfgFile)
			} else {
				return err
			}

			dbPath := filepath.Join(baseDir, "integbuilder.db")
			s, err := store.NewSQLiteStore(dbPath)
			if err != nil {
				return err
			}
			defer s.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "database ready", dbPath)
			fmt.Fprintln(cmd.OutOrStdout(), "set llm.api_key in", cfgFile, "or export", config.APIKeyEnvVar, "(demo mode without it)")
			return nil
		},
	}
}

func newServeCmd(cfgPath *string) *cobra.Command {
	var host string
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the integration builder web UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			if host != "" {
				cfg.Server.Host = host
			}
			if port != 0 {
				cfg.Server.Port = port
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := logging.Initialize(cfg.Log.Level); err != nil {
				return err
			}
			defer logging.Sync()
			logger := logging.GetLogger()

			if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o755); err != nil {
				return err
			}
			st, err := store.NewSQLiteStore(cfg.Store.Path)
			if err != nil {
				return err
			}
			defer st.Close()

			gen := generator.New(cfg.LLM, logger)
			srv, err := server.New(cfg, st, gen, logger)
			if err != nil {
				return err
			}

			addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
			httpSrv := &http.Server{Addr: addr, Handler: srv.Handler()}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				logger.Info("server listening",
					zap.String("addr", addr),
					zap.Bool("demo_mode", cfg.DemoMode()))
				if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return httpSrv.Shutdown(shutdownCtx)
			})
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "bind host (overrides config)")
	cmd.Flags().IntVar(&port, "port", 0, "bind port (overrides config)")
	return cmd
}

func newGenerateCmd(cfgPath *string) *cobra.Command {
	var docURL, auth, language string
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate integration code for a documentation URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			if err := logging.Initialize(cfg.Log.Level); err != nil {
				return err
			}
			defer logging.Sync()

			method := types.AuthMethod(auth)
			if !method.Valid() {
				return fmt.Errorf("unsupported auth method %q (oauth2, api_key, bearer_token)", auth)
			}
			if language == "" {
				language = cfg.Workflow.DefaultLanguage
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			gen := generator.New(cfg.LLM, logging.GetLogger())
			res, err := gen.Generate(ctx, docURL, method, language)
			if err != nil {
				return err
			}
			if res.DemoMode {
				fmt.Fprintln(cmd.ErrOrStderr(), "no llm credential configured, demo code follows")
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Code)
			return nil
		},
	}
	cmd.Flags().StringVar(&docURL, "url", "", "API documentation URL")
	cmd.Flags().StringVar(&auth, "auth", "oauth2", "authentication method (oauth2, api_key, bearer_token)")
	cmd.Flags().StringVar(&language, "language", "", "target language")
	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Minute, "generation timeout")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

func newListCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all workflows",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(*cfgPath)
			if err != nil {
				return err
			}
			defer st.Close()
			workflows, err := st.ListWorkflows()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTEP\tURL\tUPDATED")
			for _, w := range workflows {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", w.ID, w.Step, w.DocURL, w.UpdatedAt.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
}

func newShowCmd(cfgPath *string) *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show workflow details and generation attempts",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(*cfgPath)
			if err != nil {
				return err
			}
			defer st.Close()
			w, err := st.GetWorkflow(id)
			if err != nil {
				return fmt.Errorf("workflow %s not found", id)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "id:         %s\n", w.ID)
			fmt.Fprintf(out, "step:       %s (%d of %d)\n", w.Step, w.Step.Ord(), len(types.Steps))
			fmt.Fprintf(out, "url:        %s\n", w.DocURL)
			fmt.Fprintf(out, "auth:       %s\n", w.AuthMethod.Label())
			fmt.Fprintf(out, "language:   %s\n", w.Language)
			fmt.Fprintf(out, "demo mode:  %v\n", w.DemoMode)
			if w.Quality != nil {
				fmt.Fprintf(out, "quality:    %.1f/10\n", w.Quality.Score)
			}
			if w.Sandbox != nil {
				fmt.Fprintf(out, "sandbox:    all passed = %v\n", w.Sandbox.AllPassed())
			}
			if w.ErrorMsg != "" {
				fmt.Fprintf(out, "error:      %s\n", w.ErrorMsg)
			}
			recs, err := st.GetGenerations(id)
			if err != nil {
				return err
			}
			for _, rec := range recs {
				fmt.Fprintf(out, "attempt %d:  %s model=%s duration=%dms\n", rec.Attempt, rec.Status, rec.Model, rec.DurationMs)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "workflow id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newDeleteCmd(cfgPath *string) *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a workflow",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(*cfgPath)
			if err != nil {
				return err
			}
			defer st.Close()
			if _, err := st.GetWorkflow(id); err != nil {
				return fmt.Errorf("workflow %s not found", id)
			}
			if err := st.DeleteWorkflow(id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deleted", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "workflow id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func openStore(cfgPath string) (*store.SQLiteStore, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	return store.NewSQLiteStore(cfg.Store.Path)
}
