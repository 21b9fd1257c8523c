package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/apitool/internal/config"
)

// InitConfig captures the options for the init command.
type InitConfig struct {
	OutputPath string
	Force      bool
}

var initRunner = runInit

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a sample apitool configuration file",
		Long:  "Scaffold a commented apitool configuration file that documents available options.",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := cmd.Flags().GetString("out")
			if err != nil {
				return err
			}
			force, err := cmd.Flags().GetBool("force")
			if err != nil {
				return err
			}
			return initRunner(cmd.Context(), &InitConfig{OutputPath: out, Force: force})
		},
	}

	cmd.Flags().String("out", config.DefaultFileName, "Where to write the sample config file")
	cmd.Flags().Bool("force", false, "Overwrite the target file if it already exists")

	return cmd
}

func runInit(_ context.Context, cfg *InitConfig) error {
	out := strings.TrimSpace(cfg.OutputPath)
	if out == "" {
		out = config.DefaultFileName
	}
	absPath, err := filepath.Abs(out)
	if err != nil {
		return fmt.Errorf("init: resolve output path: %w", err)
	}

	if st, err := os.Stat(absPath); err == nil && !cfg.Force {
		if st.Mode().IsRegular() {
			return newUsageError(fmt.Sprintf("init: %q already exists (use --force to overwrite)", absPath))
		}
	}

	content := strings.TrimSpace(sampleConfigYAML) + "\n"
	// the sample must always load cleanly
	if _, err := config.Parse([]byte(content)); err != nil {
		return fmt.Errorf("init: sample config: %w", err)
	}

	dir := filepath.Dir(absPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return newUsageError(fmt.Sprintf("init: cannot create parent directory: %v", err))
	}
	tmp, err := os.CreateTemp(dir, ".apitool-*.yaml")
	if err != nil {
		return newUsageError(fmt.Sprintf("init: cannot write temp file: %v\nHint: choose a different --out or check directory permissions.", err))
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("init: write sample config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("init: write sample config: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("init: write sample config: %w", err)
	}
	if err := os.Rename(tmpName, absPath); err != nil {
		_ = os.Remove(tmpName)
		return newUsageError(fmt.Sprintf("init: cannot place file at %s: %v", absPath, err))
	}
	fmt.Fprintf(os.Stdout, "Wrote sample config to %s\n", absPath)
	return nil
}

// sampleConfigYAML documents every option with its default value.
const sampleConfigYAML = `# apitool configuration (YAML)
# Command-line flags override config values; omitted values use the defaults shown.

globalOptions:
  # trace|debug|info|warn|error|disabled
  logLevel: info
  # Human readable console output instead of JSON lines.
  logPretty: true

generate:
  # Relative paths below are resolved against projectDir.
  projectDir: .
  # Go package patterns holding the request/response models.
  modelPackages:
    - ./...
  schemaRootPath: data/schemas
  apiItemConfigPath: api.yml
  # Remove schemaRootPath before writing.
  clean: false
  # Skip models without a Go type instead of failing the run.
  ignoreMissingModels: false

serve:
  host: 127.0.0.1
  port: 8080
  prefixUrl: ""
  projectDir: .
  schemaRootPath: data/schemas
  apiItemConfigPath: api.yml
  # Only fake required properties.
  requiredOnly: false
  # Fake every optional property; overrides requiredOnly.
  alwaysFakeOptionals: false
  # Chance in [0,1] that an optional property is faked.
  optionalsProbability: 0.8
  # Answer with <dataFileRootPath>/<group>/<item>/<method>-response.json when present.
  useDataFileFirst: false
  dataFileRootPath: data/mock

# Api groups can live here as well as in apiItemConfigPath; a route defined in both
# keeps the definition below.
# api:
#   user:
#     url: /api/user
#     model: User
#     items:
#       me:
#         url: /me
#         requestModel: null
#       update:
#         method: POST
#         responseModel: null
`
