package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mark3labs/apitool/internal/config"
	"github.com/mark3labs/apitool/internal/faker"
	"github.com/mark3labs/apitool/internal/logging"
)

// LogConfig selects the logger built for a run.
type LogConfig struct {
	Level  string
	Pretty bool
}

// GenerateConfig captures all inputs of the generate command after merging defaults,
// config file values, and CLI overrides. Paths are absolute once resolved.
type GenerateConfig struct {
	// ConfigPath is the tool config file in use, empty when none was found.
	ConfigPath string
	// MainConfigPath is set when ConfigPath also declares inline api groups.
	MainConfigPath      string
	ProjectDir          string
	ModelPackages       []string
	SchemaRoot          string
	ApiConfig           string
	ApiConfigExplicit   bool
	Clean               bool
	IgnoreMissingModels bool
	DryRun              bool
	Log                 LogConfig
}

// ServeConfig captures all inputs of the serve command.
type ServeConfig struct {
	ConfigPath           string
	MainConfigPath       string
	Host                 string
	Port                 int
	PrefixURL            string
	ProjectDir           string
	SchemaRoot           string
	ApiConfig            string
	ApiConfigExplicit    bool
	RequiredOnly         bool
	AlwaysFakeOptionals  bool
	OptionalsProbability float64
	UseDataFileFirst     bool
	DataRoot             string
	Log                  LogConfig
}

func defaultGenerateConfig() GenerateConfig {
	return GenerateConfig{
		ProjectDir:    ".",
		ModelPackages: []string{"./..."},
		SchemaRoot:    "data/schemas",
		ApiConfig:     "api.yml",
		Log:           LogConfig{Level: "info"},
	}
}

func defaultServeConfig() ServeConfig {
	return ServeConfig{
		Host:                 "127.0.0.1",
		Port:                 8080,
		ProjectDir:           ".",
		SchemaRoot:           "data/schemas",
		ApiConfig:            "api.yml",
		OptionalsProbability: faker.DefaultOptionalsProbability,
		DataRoot:             "data/mock",
		Log:                  LogConfig{Level: "info"},
	}
}

// generateOverrides holds the flags that were explicitly set; nil means unset.
type generateOverrides struct {
	ProjectDir          *string
	ModelPackages       []string
	SchemaRoot          *string
	ApiConfig           *string
	Clean               *bool
	IgnoreMissingModels *bool
	DryRun              *bool
}

type serveOverrides struct {
	Host                 *string
	Port                 *int
	PrefixURL            *string
	ProjectDir           *string
	SchemaRoot           *string
	ApiConfig            *string
	RequiredOnly         *bool
	AlwaysFakeOptionals  *bool
	OptionalsProbability *float64
	UseDataFileFirst     *bool
	DataRoot             *string
}

type logOverrides struct {
	Level   *string
	Verbose bool
}

// mergeLogConfig applies flag > file > default; --verbose wins over every level.
func mergeLogConfig(def LogConfig, file config.GlobalOptions, flags logOverrides) LogConfig {
	out := def
	setString(&out.Level, file.LogLevel)
	setBool(&out.Pretty, file.LogPretty)
	setString(&out.Level, flags.Level)
	if flags.Verbose {
		out.Level = "debug"
	}
	out.Level = strings.ToLower(strings.TrimSpace(out.Level))
	return out
}

// mergeGenerateConfig applies flag > file > default. It does not touch the filesystem.
func mergeGenerateConfig(def GenerateConfig, file config.GenerateSection, flags generateOverrides) GenerateConfig {
	out := def
	out.ModelPackages = append([]string(nil), def.ModelPackages...)

	setString(&out.ProjectDir, file.ProjectDir)
	if file.ModelPackages != nil {
		out.ModelPackages = sanitizeList(file.ModelPackages)
	}
	setString(&out.SchemaRoot, file.SchemaRootPath)
	out.ApiConfigExplicit = setString(&out.ApiConfig, file.ApiItemConfigPath)
	setBool(&out.Clean, file.Clean)
	setBool(&out.IgnoreMissingModels, file.IgnoreMissingModels)

	setString(&out.ProjectDir, flags.ProjectDir)
	if flags.ModelPackages != nil {
		out.ModelPackages = sanitizeList(flags.ModelPackages)
	}
	setString(&out.SchemaRoot, flags.SchemaRoot)
	if setString(&out.ApiConfig, flags.ApiConfig) {
		out.ApiConfigExplicit = true
	}
	setBool(&out.Clean, flags.Clean)
	setBool(&out.IgnoreMissingModels, flags.IgnoreMissingModels)
	setBool(&out.DryRun, flags.DryRun)
	return out
}

// mergeServeConfig applies flag > file > default and clamps the optionals probability.
func mergeServeConfig(def ServeConfig, file config.ServeSection, flags serveOverrides) ServeConfig {
	out := def

	setString(&out.Host, file.Host)
	setInt(&out.Port, file.Port)
	setString(&out.PrefixURL, file.PrefixUrl)
	setString(&out.ProjectDir, file.ProjectDir)
	setString(&out.SchemaRoot, file.SchemaRootPath)
	out.ApiConfigExplicit = setString(&out.ApiConfig, file.ApiItemConfigPath)
	setBool(&out.RequiredOnly, file.RequiredOnly)
	setBool(&out.AlwaysFakeOptionals, file.AlwaysFakeOptionals)
	setFloat(&out.OptionalsProbability, file.OptionalsProbability)
	setBool(&out.UseDataFileFirst, file.UseDataFileFirst)
	setString(&out.DataRoot, file.DataFileRootPath)

	setString(&out.Host, flags.Host)
	setInt(&out.Port, flags.Port)
	setString(&out.PrefixURL, flags.PrefixURL)
	setString(&out.ProjectDir, flags.ProjectDir)
	setString(&out.SchemaRoot, flags.SchemaRoot)
	if setString(&out.ApiConfig, flags.ApiConfig) {
		out.ApiConfigExplicit = true
	}
	setBool(&out.RequiredOnly, flags.RequiredOnly)
	setBool(&out.AlwaysFakeOptionals, flags.AlwaysFakeOptionals)
	setFloat(&out.OptionalsProbability, flags.OptionalsProbability)
	setBool(&out.UseDataFileFirst, flags.UseDataFileFirst)
	setString(&out.DataRoot, flags.DataRoot)

	out.OptionalsProbability = clampProbability(out.OptionalsProbability)
	return out
}

func clampProbability(p float64) float64 {
	switch {
	case math.IsNaN(p):
		return faker.DefaultOptionalsProbability
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}

func setString(dst *string, v *string) bool {
	if v == nil {
		return false
	}
	*dst = strings.TrimSpace(*v)
	return true
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func sanitizeList(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}

// resolvePath makes p absolute; relative paths are taken from base.
func resolvePath(base, p string) (string, error) {
	if p == "" {
		return "", nil
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(base, p)
	}
	return filepath.Abs(p)
}

// loadToolConfig reads --config, or apitool.yaml from the working directory when the flag
// is not given. Only an explicit --config is required to exist.
func loadToolConfig(cmd *cobra.Command) (*config.File, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	path = strings.TrimSpace(path)
	if path == "" {
		if _, statErr := os.Stat(config.DefaultFileName); statErr != nil {
			if errors.Is(statErr, fs.ErrNotExist) {
				return &config.File{}, nil
			}
			return nil, newUsageError(fmt.Sprintf("config file %q: %v", config.DefaultFileName, statErr))
		}
		path = config.DefaultFileName
	}

	f, err := config.Load(path)
	if err != nil {
		return nil, newUsageErrorWrap(err.Error(), err)
	}
	return f, nil
}

func resolveLogConfig(cmd *cobra.Command, file config.GlobalOptions) (LogConfig, error) {
	flags := cmd.Flags()
	level, err := changedString(flags, "log-level")
	if err != nil {
		return LogConfig{}, err
	}
	verbose, err := flags.GetBool("verbose")
	if err != nil {
		return LogConfig{}, err
	}
	return mergeLogConfig(LogConfig{Level: "info"}, file, logOverrides{Level: level, Verbose: verbose}), nil
}

func newLogger(cfg LogConfig) logging.Logger {
	return logging.New(cfg.Level, cfg.Pretty)
}

// changedString returns nil unless the flag was set on the command line.
func changedString(flags *pflag.FlagSet, name string) (*string, error) {
	if !flags.Changed(name) {
		return nil, nil
	}
	v, err := flags.GetString(name)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func changedBool(flags *pflag.FlagSet, name string) (*bool, error) {
	if !flags.Changed(name) {
		return nil, nil
	}
	v, err := flags.GetBool(name)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func changedInt(flags *pflag.FlagSet, name string) (*int, error) {
	if !flags.Changed(name) {
		return nil, nil
	}
	v, err := flags.GetInt(name)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func changedFloat(flags *pflag.FlagSet, name string) (*float64, error) {
	if !flags.Changed(name) {
		return nil, nil
	}
	v, err := flags.GetFloat64(name)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func changedStringSlice(flags *pflag.FlagSet, name string) ([]string, error) {
	if !flags.Changed(name) {
		return nil, nil
	}
	v, err := flags.GetStringSlice(name)
	if err != nil {
		return nil, err
	}
	if v == nil {
		v = []string{}
	}
	return v, nil
}
