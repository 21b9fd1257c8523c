package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/apitool/internal/compiler"
	"github.com/mark3labs/apitool/internal/generate"
	"github.com/mark3labs/apitool/internal/logging"
)

var generateRunner = runGenerate

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a JSON schema for every request and response model",
		Long: "Load the Go model packages, resolve every api item and write one JSON schema per " +
			"request/response model under the schema root. Options can be provided via flags, " +
			"the tool config file, or defaults.",
		Example: strings.TrimSpace(`  apitool generate --model-packages ./model/... --api-config api.yml
  apitool --config apitool.yaml generate --clean --dry-run`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveGenerateConfig(cmd)
			if err != nil {
				return err
			}
			return generateRunner(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("project-dir", "", "Directory model packages are loaded from (default \".\")")
	flags.StringSlice("model-packages", nil, "Go package patterns holding the models (default ./...)")
	flags.String("schema-root", "", "Schema output directory, relative to the project dir (default data/schemas)")
	flags.String("api-config", "", "Api item config file, relative to the project dir (default api.yml)")
	flags.Bool("clean", false, "Remove the schema root before writing")
	flags.Bool("ignore-missing-models", false, "Skip models without a Go type instead of failing")
	flags.Bool("dry-run", false, "Compile every schema and list planned writes without touching disk")

	return cmd
}

func resolveGenerateConfig(cmd *cobra.Command) (*GenerateConfig, error) {
	file, err := loadToolConfig(cmd)
	if err != nil {
		return nil, err
	}
	overrides, err := generateFlagOverrides(cmd)
	if err != nil {
		return nil, err
	}

	cfg := mergeGenerateConfig(defaultGenerateConfig(), file.Generate, overrides)
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

func generateFlagOverrides(cmd *cobra.Command) (generateOverrides, error) {
	flags := cmd.Flags()
	var (
		o   generateOverrides
		err error
	)
	if o.ProjectDir, err = changedString(flags, "project-dir"); err != nil {
		return o, err
	}
	if o.ModelPackages, err = changedStringSlice(flags, "model-packages"); err != nil {
		return o, err
	}
	if o.SchemaRoot, err = changedString(flags, "schema-root"); err != nil {
		return o, err
	}
	if o.ApiConfig, err = changedString(flags, "api-config"); err != nil {
		return o, err
	}
	if o.Clean, err = changedBool(flags, "clean"); err != nil {
		return o, err
	}
	if o.IgnoreMissingModels, err = changedBool(flags, "ignore-missing-models"); err != nil {
		return o, err
	}
	if o.DryRun, err = changedBool(flags, "dry-run"); err != nil {
		return o, err
	}
	return o, nil
}

func (c *GenerateConfig) resolvePaths() error {
	var err error
	if c.ProjectDir == "" {
		c.ProjectDir = "."
	}
	if c.ProjectDir, err = filepath.Abs(c.ProjectDir); err != nil {
		return fmt.Errorf("generate: resolve project dir: %w", err)
	}
	if c.SchemaRoot, err = resolvePath(c.ProjectDir, c.SchemaRoot); err != nil {
		return fmt.Errorf("generate: resolve schema root: %w", err)
	}
	if c.ApiConfig, err = resolvePath(c.ProjectDir, c.ApiConfig); err != nil {
		return fmt.Errorf("generate: resolve api config: %w", err)
	}
	return nil
}

func (c *GenerateConfig) validate() error {
	if len(c.ModelPackages) == 0 {
		return newUsageError("generate: --model-packages needs at least one package pattern")
	}
	if c.SchemaRoot == "" {
		return newUsageError("generate: --schema-root must not be empty")
	}
	if st, err := os.Stat(c.ProjectDir); err != nil || !st.IsDir() {
		return newUsageError(fmt.Sprintf("generate: project dir %q is not a directory", c.ProjectDir))
	}
	return nil
}

func runGenerate(ctx context.Context, cfg *GenerateConfig) error {
	log := newLogger(cfg.Log)
	res, err := generateSchemas(ctx, cfg, log)
	if err != nil {
		return err
	}

	if cfg.DryRun {
		printPlan(cfg.SchemaRoot, res.Written)
	} else {
		fmt.Fprintf(os.Stdout, "Wrote %d schema(s) to %s\n", len(res.Written), cfg.SchemaRoot)
	}
	for _, s := range res.Skipped {
		fmt.Fprintf(os.Stdout, "Skipped %s (%s of %s): model not found\n", s.Model, s.Side, s.Item)
	}
	return nil
}

func generateSchemas(ctx context.Context, cfg *GenerateConfig, log logging.Logger) (*generate.Result, error) {
	items, err := loadApiItems(itemSources{
		MainConfig:        cfg.MainConfigPath,
		ApiConfig:         cfg.ApiConfig,
		ApiConfigExplicit: cfg.ApiConfigExplicit,
		SchemaRoot:        cfg.SchemaRoot,
	}, log)
	if err != nil {
		return nil, err
	}

	prog, err := compiler.Load(ctx, cfg.ModelPackages, compiler.WithDir(cfg.ProjectDir))
	if err != nil {
		return nil, newUsageErrorWrap(fmt.Sprintf("load model packages %s: %v", strings.Join(cfg.ModelPackages, ", "), err), err)
	}
	log.Debug().Int("symbols", len(prog.Symbols())).Msg("model packages loaded")

	res, err := generate.New(prog, log, generate.Options{
		SchemaRoot:          cfg.SchemaRoot,
		Clean:               cfg.Clean,
		IgnoreMissingModels: cfg.IgnoreMissingModels,
		DryRun:              cfg.DryRun,
	}).Generate(ctx, items)
	if err != nil {
		return nil, wrapOutputError(err, cfg.SchemaRoot)
	}
	return res, nil
}

func printPlan(root string, outputs []generate.Output) {
	fmt.Fprintf(os.Stdout, "Planned writes to %s (%d files):\n", root, len(outputs))
	for _, o := range outputs {
		rel, err := filepath.Rel(root, o.Path)
		if err != nil {
			rel = o.Path
		}
		fmt.Fprintf(os.Stdout, "- %s (%s)\n", filepath.ToSlash(rel), o.Model)
	}
}

func wrapOutputError(err error, root string) error {
	if errors.Is(err, generate.ErrModelNotFound) {
		return newUsageErrorWrap(err.Error()+"\nHint: check --model-packages or pass --ignore-missing-models.", err)
	}
	var werr *generate.WriteError
	if errors.As(err, &werr) {
		return newUsageErrorWrap(fmt.Sprintf("output error for %s: %s\nHint: choose a different --schema-root or check directory permissions.", root, err), err)
	}
	return err
}
