// Package serve answers every registered endpoint with a recorded or synthesized body.
package serve

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/mark3labs/apitool/internal/apiitem"
	"github.com/mark3labs/apitool/internal/logging"
)

var (
	// ErrBadSchema is returned when an item's response schema file is missing or malformed.
	ErrBadSchema = errors.New("bad schema")
	// ErrBadDataFile is returned when a recorded data file is not valid JSON.
	ErrBadDataFile = errors.New("bad data file")
)

// Source tells where a response body came from.
type Source int

const (
	// SourceNone means the endpoint has no response model and no data file.
	SourceNone Source = iota
	SourceDataFile
	SourceSchema
)

func (s Source) String() string {
	switch s {
	case SourceDataFile:
		return "data-file"
	case SourceSchema:
		return "schema"
	}
	return "none"
}

// ValueGenerator synthesizes a value from a schema.
type ValueGenerator interface {
	Generate(schema *openapi3.Schema) (any, error)
}

// ResolverOptions configure response resolution.
type ResolverOptions struct {
	UseDataFileFirst bool
	// DataRoot holds recorded responses; it is ignored unless it is an existing directory.
	DataRoot string
}

// Resolver resolves a response body per request. It keeps no state between requests:
// files are read on every call.
type Resolver struct {
	gen              ValueGenerator
	log              logging.Logger
	useDataFileFirst bool
	dataRoot         string
}

func NewResolver(gen ValueGenerator, log logging.Logger, opts ResolverOptions) *Resolver {
	if log == nil {
		log = logging.Nop()
	}
	r := &Resolver{gen: gen, log: log, useDataFileFirst: opts.UseDataFileFirst}
	if opts.UseDataFileFirst && opts.DataRoot != "" {
		if st, err := os.Stat(opts.DataRoot); err == nil && st.IsDir() {
			r.dataRoot = opts.DataRoot
		} else {
			log.Warn().Str("path", opts.DataRoot).Msg("data file root is not a directory, recorded data disabled")
		}
	}
	return r
}

// DataRoot returns the data root in use, empty when recorded data is disabled.
func (r *Resolver) DataRoot() string { return r.dataRoot }

// DataFilePath is where the recorded response for item lives below the data root.
func (r *Resolver) DataFilePath(item apiitem.ApiItem) string {
	if r.dataRoot == "" {
		return ""
	}
	return filepath.Join(r.dataRoot, apiitem.RelativeItemPath(item.Group, item.Name, item.Method, apiitem.SideResponse))
}

// Resolve returns the body for item. A recorded data file is returned as raw JSON,
// byte for byte. SourceNone with a nil body means there is nothing to send.
func (r *Resolver) Resolve(item apiitem.ApiItem) (any, Source, error) {
	if r.useDataFileFirst && r.dataRoot != "" {
		raw, ok, err := r.readDataFile(item)
		if err != nil {
			return nil, SourceNone, err
		}
		if ok {
			return raw, SourceDataFile, nil
		}
	}

	if item.ResponseModel == "" {
		return nil, SourceNone, nil
	}

	schema, err := loadSchema(item.ResponseSchemaPath)
	if err != nil {
		return nil, SourceNone, err
	}
	v, err := r.gen.Generate(schema)
	if err != nil {
		return nil, SourceNone, fmt.Errorf("fake %s: %w", item.ResponseModel, err)
	}
	return v, SourceSchema, nil
}

func (r *Resolver) readDataFile(item apiitem.ApiItem) (json.RawMessage, bool, error) {
	path := r.DataFilePath(item)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		r.log.Debug().Str("path", path).Msg("no data file, falling back to schema")
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read data file %s: %w", path, err)
	}
	if !json.Valid(data) {
		return nil, false, fmt.Errorf("%w: %s is not valid JSON", ErrBadDataFile, path)
	}
	return json.RawMessage(data), true, nil
}

func loadSchema(path string) (*openapi3.Schema, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s is not found", ErrBadSchema, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", path, err)
	}
	var schema openapi3.Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrBadSchema, path, err)
	}
	return &schema, nil
}
