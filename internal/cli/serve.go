package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mark3labs/apitool/internal/faker"
	"github.com/mark3labs/apitool/internal/serve"
)

const shutdownTimeout = 5 * time.Second

var serveRunner = runServe

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve fake responses for every api item",
		Long: "Start a mock HTTP server with one route per api item. Responses come from recorded " +
			"data files when enabled, otherwise they are synthesized from the response schema.",
		Example: strings.TrimSpace(`  apitool serve --port 8080 --prefix-url /mock
  apitool serve --use-data-file-first --data-root data/mock --required-only`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveServeConfig(cmd)
			if err != nil {
				return err
			}
			return serveRunner(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("host", "", "Address to bind (default 127.0.0.1)")
	flags.Int("port", 0, "Port to bind (default 8080, 0 picks a free port)")
	flags.String("prefix-url", "", "Prefix prepended to every item url")
	flags.String("project-dir", "", "Base directory for relative paths (default \".\")")
	flags.String("schema-root", "", "Schema directory, relative to the project dir (default data/schemas)")
	flags.String("api-config", "", "Api item config file, relative to the project dir (default api.yml)")
	flags.Bool("required-only", false, "Only fake required properties")
	flags.Bool("always-fake-optionals", false, "Fake every optional property (overrides --required-only)")
	flags.Float64("optionals-probability", faker.DefaultOptionalsProbability, "Chance in [0,1] that an optional property is faked")
	flags.Bool("use-data-file-first", false, "Answer with recorded data files when they exist")
	flags.String("data-root", "", "Recorded data directory, relative to the project dir (default data/mock)")

	return cmd
}

func resolveServeConfig(cmd *cobra.Command) (*ServeConfig, error) {
	file, err := loadToolConfig(cmd)
	if err != nil {
		return nil, err
	}
	overrides, err := serveFlagOverrides(cmd)
	if err != nil {
		return nil, err
	}

	cfg := mergeServeConfig(defaultServeConfig(), file.Serve, overrides)
	cfg.ConfigPath = file.Path
	if file.HasAPI {
		cfg.MainConfigPath = file.Path
	}
	if cfg.Log, err = resolveLogConfig(cmd, file.GlobalOptions); err != nil {
		return nil, err
	}

	if err := cfg.resolvePaths(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func serveFlagOverrides(cmd *cobra.Command) (serveOverrides, error) {
	flags := cmd.Flags()
	var (
		o   serveOverrides
		err error
	)
	if o.Host, err = changedString(flags, "host"); err != nil {
		return o, err
	}
	if o.Port, err = changedInt(flags, "port"); err != nil {
		return o, err
	}
	if o.PrefixURL, err = changedString(flags, "prefix-url"); err != nil {
		return o, err
	}
	if o.ProjectDir, err = changedString(flags, "project-dir"); err != nil {
		return o, err
	}
	if o.SchemaRoot, err = changedString(flags, "schema-root"); err != nil {
		return o, err
	}
	if o.ApiConfig, err = changedString(flags, "api-config"); err != nil {
		return o, err
	}
	if o.RequiredOnly, err = changedBool(flags, "required-only"); err != nil {
		return o, err
	}
	if o.AlwaysFakeOptionals, err = changedBool(flags, "always-fake-optionals"); err != nil {
		return o, err
	}
	if o.OptionalsProbability, err = changedFloat(flags, "optionals-probability"); err != nil {
		return o, err
	}
	if o.UseDataFileFirst, err = changedBool(flags, "use-data-file-first"); err != nil {
		return o, err
	}
	if o.DataRoot, err = changedString(flags, "data-root"); err != nil {
		return o, err
	}
	return o, nil
}

func (c *ServeConfig) resolvePaths() error {
	var err error
	if c.ProjectDir == "" {
		c.ProjectDir = "."
	}
	if c.ProjectDir, err = filepath.Abs(c.ProjectDir); err != nil {
		return fmt.Errorf("serve: resolve project dir: %w", err)
	}
	if c.SchemaRoot, err = resolvePath(c.ProjectDir, c.SchemaRoot); err != nil {
		return fmt.Errorf("serve: resolve schema root: %w", err)
	}
	if c.ApiConfig, err = resolvePath(c.ProjectDir, c.ApiConfig); err != nil {
		return fmt.Errorf("serve: resolve api config: %w", err)
	}
	if c.DataRoot, err = resolvePath(c.ProjectDir, c.DataRoot); err != nil {
		return fmt.Errorf("serve: resolve data root: %w", err)
	}
	return nil
}

func (c *ServeConfig) validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return newUsageError(fmt.Sprintf("serve: --port %d is out of range (0-65535)", c.Port))
	}
	if c.SchemaRoot == "" {
		return newUsageError("serve: --schema-root must not be empty")
	}
	return nil
}

func runServe(ctx context.Context, cfg *ServeConfig) error {
	log := newLogger(cfg.Log)

	items, err := loadApiItems(itemSources{
		MainConfig:        cfg.MainConfigPath,
		ApiConfig:         cfg.ApiConfig,
		ApiConfigExplicit: cfg.ApiConfigExplicit,
		SchemaRoot:        cfg.SchemaRoot,
	}, log)
	if err != nil {
		return err
	}

	fk := faker.New(faker.Options{
		RequiredOnly:         cfg.RequiredOnly,
		AlwaysFakeOptionals:  cfg.AlwaysFakeOptionals,
		OptionalsProbability: cfg.OptionalsProbability,
	})
	resolver := serve.NewResolver(fk, log, serve.ResolverOptions{
		UseDataFileFirst: cfg.UseDataFileFirst,
		DataRoot:         cfg.DataRoot,
	})
	srv, err := serve.New(items, resolver, log, serve.Options{
		Host:      cfg.Host,
		Port:      cfg.Port,
		PrefixURL: cfg.PrefixURL,
	})
	if err != nil {
		return err
	}
	if err := srv.Listen(); err != nil {
		return newUsageErrorWrap(fmt.Sprintf("serve: %v\nHint: choose a different --port.", err), err)
	}
	fmt.Fprintf(os.Stdout, "Mock server listening on http://%s%s (%d routes)\n", srv.Addr(), cfg.PrefixURL, len(items))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve() }()

	select {
	case err := <-errCh:
		_ = srv.Close(context.Background())
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down mock server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Close(shutdownCtx); err != nil {
		return fmt.Errorf("serve: shutdown: %w", err)
	}
	return <-errCh
}
