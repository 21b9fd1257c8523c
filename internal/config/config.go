// Package config loads the apitool configuration file.
//
// Every field is a pointer (or a nil slice) so callers can tell a value that was set in the
// file from one that was left out; the cli package merges the file over built-in defaults
// and under explicit flags.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// DefaultFileName is looked up in the working directory when no --config is given.
const DefaultFileName = "apitool.yaml"

// APIKey is the top-level key holding inline api groups.
const APIKey = "api"

var topLevelKeys = []string{"globalOptions", "generate", "serve", APIKey}

// File is the parsed configuration file.
type File struct {
	GlobalOptions GlobalOptions   `koanf:"globalOptions"`
	Generate      GenerateSection `koanf:"generate"`
	Serve         ServeSection    `koanf:"serve"`

	// Path is the file the configuration was read from, empty for in-memory sources.
	Path string `koanf:"-"`
	// HasAPI reports whether the file declares inline api groups under APIKey.
	HasAPI bool `koanf:"-"`
}

// GlobalOptions apply to every command.
type GlobalOptions struct {
	LogLevel  *string `koanf:"logLevel" validate:"omitempty,oneof=trace debug info warn error disabled"`
	LogPretty *bool   `koanf:"logPretty"`
}

// GenerateSection configures `apitool generate`.
type GenerateSection struct {
	ProjectDir          *string  `koanf:"projectDir"`
	ModelPackages       []string `koanf:"modelPackages" validate:"omitempty,dive,required"`
	SchemaRootPath      *string  `koanf:"schemaRootPath"`
	ApiItemConfigPath   *string  `koanf:"apiItemConfigPath"`
	Clean               *bool    `koanf:"clean"`
	IgnoreMissingModels *bool    `koanf:"ignoreMissingModels"`
}

// ServeSection configures `apitool serve`.
type ServeSection struct {
	Host                 *string  `koanf:"host"`
	Port                 *int     `koanf:"port" validate:"omitempty,min=0,max=65535"`
	PrefixUrl            *string  `koanf:"prefixUrl"`
	ProjectDir           *string  `koanf:"projectDir"`
	SchemaRootPath       *string  `koanf:"schemaRootPath"`
	ApiItemConfigPath    *string  `koanf:"apiItemConfigPath"`
	RequiredOnly         *bool    `koanf:"requiredOnly"`
	AlwaysFakeOptionals  *bool    `koanf:"alwaysFakeOptionals"`
	OptionalsProbability *float64 `koanf:"optionalsProbability"`
	UseDataFileFirst     *bool    `koanf:"useDataFileFirst"`
	DataFileRootPath     *string  `koanf:"dataFileRootPath"`
}

var validate = validator.New()

// Load reads a .json, .yml or .yaml configuration file.
func Load(path string) (*File, error) {
	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		parser = json.Parser()
	case ".yml", ".yaml":
		parser = yaml.Parser()
	default:
		return nil, fmt.Errorf("config file %q: must be a file with a .json/.yml/.yaml extension", path)
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("load config file %q: %w", path, err)
	}
	f, err := decode(k)
	if err != nil {
		return nil, fmt.Errorf("config file %q: %w", path, err)
	}
	f.Path = path
	return f, nil
}

// Parse decodes configuration from YAML bytes.
func Parse(data []byte) (*File, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return decode(k)
}

func decode(k *koanf.Koanf) (*File, error) {
	var unknown []string
	for key := range k.Raw() {
		if !slices.Contains(topLevelKeys, key) {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown field(s) %s (allowed: %s)", strings.Join(unknown, ", "), strings.Join(topLevelKeys, ", "))
	}

	f := &File{HasAPI: k.Exists(APIKey)}
	sections := []struct {
		key    string
		target any
	}{
		{"globalOptions", &f.GlobalOptions},
		{"generate", &f.Generate},
		{"serve", &f.Serve},
	}
	for _, s := range sections {
		if !k.Exists(s.key) {
			continue
		}
		if err := k.UnmarshalWithConf(s.key, s.target, strictConf(s.target)); err != nil {
			return nil, fmt.Errorf("%s: %w", s.key, err)
		}
	}

	if err := validate.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return nil, fmt.Errorf("invalid value %v for %s (%s)", fieldValue(fe.Value()), fe.Namespace(), fe.Tag())
		}
		return nil, err
	}
	return f, nil
}

// strictConf rejects keys that do not map to a field, so typos surface as errors.
func strictConf(target any) koanf.UnmarshalConf {
	return koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           target,
			WeaklyTypedInput: true,
			ErrorUnused:      true,
		},
	}
}

func fieldValue(v any) string {
	switch val := v.(type) {
	case *string:
		if val != nil {
			return fmt.Sprintf("%q", *val)
		}
	case *int:
		if val != nil {
			return fmt.Sprint(*val)
		}
	case string:
		return fmt.Sprintf("%q", val)
	}
	return fmt.Sprint(v)
}
