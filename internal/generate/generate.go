// Package generate writes one schema document per endpoint model.
package generate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/getkin/kin-openapi/openapi3"
	"golang.org/x/sync/errgroup"

	"github.com/mark3labs/apitool/internal/apiitem"
	"github.com/mark3labs/apitool/internal/compiler"
	"github.com/mark3labs/apitool/internal/logging"
)

// ErrModelNotFound is returned when a model has no type in the loaded program and
// missing models are not ignored.
var ErrModelNotFound = errors.New("model not found")

// SchemaCompiler resolves a model name to its schema. It must return an error matching
// compiler.ErrSymbolNotFound for unknown names.
type SchemaCompiler interface {
	SchemaForSymbol(name string) (*openapi3.Schema, error)
}

// Options controls a generation run.
type Options struct {
	// SchemaRoot is removed before writing when Clean is set.
	SchemaRoot          string
	Clean               bool
	IgnoreMissingModels bool
	// DryRun compiles every schema and reports the planned outputs without touching disk.
	DryRun bool
	// Concurrency bounds parallel writes; zero means 8.
	Concurrency int
}

// Output is one schema file.
type Output struct {
	Model string
	Side  apiitem.Side
	Path  string
	Item  apiitem.RouteKey
}

// Skip is a model left out because it was not found.
type Skip struct {
	Model string
	Side  apiitem.Side
	Item  apiitem.RouteKey
}

// Result lists the outputs written (or planned, in a dry run) and the skipped models.
type Result struct {
	Written []Output
	Skipped []Skip
}

// WriteError identifies the schema file that could not be written.
type WriteError struct {
	Model string
	Path  string
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write schema %s to %s: %v", e.Model, e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Generator runs the generation pipeline.
type Generator struct {
	compiler SchemaCompiler
	log      logging.Logger
	opts     Options
}

func New(c SchemaCompiler, log logging.Logger, opts Options) *Generator {
	if log == nil {
		log = logging.Nop()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	return &Generator{compiler: c, log: log, opts: opts}
}

type job struct {
	out  Output
	data []byte
}

// Generate compiles the models of items and writes them to their schema paths. Every
// model is compiled before the first write, so a missing model fails the run with
// nothing written (and nothing cleaned).
func (g *Generator) Generate(ctx context.Context, items []apiitem.ApiItem) (*Result, error) {
	if len(items) == 0 {
		return nil, apiitem.ErrNoApiItems
	}

	jobs, skipped, err := g.plan(items)
	if err != nil {
		return nil, err
	}
	res := &Result{Skipped: skipped, Written: make([]Output, len(jobs))}
	for i, j := range jobs {
		res.Written[i] = j.out
	}

	if g.opts.DryRun {
		for _, j := range jobs {
			g.log.Info().Str("model", j.out.Model).Str("path", j.out.Path).Msg("planned schema")
		}
		return res, nil
	}

	if g.opts.Clean {
		if err := cleanRoot(g.opts.SchemaRoot); err != nil {
			return nil, err
		}
		g.log.Info().Str("path", g.opts.SchemaRoot).Msg("removed schema root")
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.opts.Concurrency)
	for _, j := range jobs {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := writeFileAtomic(j.out.Path, j.data); err != nil {
				return &WriteError{Model: j.out.Model, Path: j.out.Path, Err: err}
			}
			g.log.Info().Str("model", j.out.Model).Str("path", j.out.Path).Msg("output schema")
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}

func (g *Generator) plan(items []apiitem.ApiItem) ([]job, []Skip, error) {
	cache := make(map[string][]byte)
	var (
		jobs    []job
		skipped []Skip
	)
	for _, item := range items {
		sides := []struct {
			side  apiitem.Side
			model string
			path  string
		}{
			{apiitem.SideRequest, item.RequestModel, item.RequestSchemaPath},
			{apiitem.SideResponse, item.ResponseModel, item.ResponseSchemaPath},
		}
		for _, s := range sides {
			if s.model == "" {
				continue
			}
			data, ok := cache[s.model]
			if !ok {
				schema, err := g.compiler.SchemaForSymbol(s.model)
				switch {
				case errors.Is(err, compiler.ErrSymbolNotFound):
					if !g.opts.IgnoreMissingModels {
						return nil, nil, fmt.Errorf("%w: %s (%s)", ErrModelNotFound, s.model, item.Key())
					}
					g.log.Info().Str("model", s.model).Str("route", item.Key().String()).Str("side", string(s.side)).Msg("model not found, skipped")
					skipped = append(skipped, Skip{Model: s.model, Side: s.side, Item: item.Key()})
					continue
				case err != nil:
					return nil, nil, fmt.Errorf("compile model %s: %w", s.model, err)
				}
				data, err = json.MarshalIndent(schema, "", "  ")
				if err != nil {
					return nil, nil, fmt.Errorf("encode model %s: %w", s.model, err)
				}
				data = append(data, '\n')
				cache[s.model] = data
			}
			jobs = append(jobs, job{
				out:  Output{Model: s.model, Side: s.side, Path: s.path, Item: item.Key()},
				data: data,
			})
		}
	}
	return jobs, skipped, nil
}

func cleanRoot(root string) error {
	if root == "" {
		return errors.New("clean: schema root is not set")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("clean: resolve schema root: %w", err)
	}
	if filepath.Dir(abs) == abs {
		return fmt.Errorf("clean: refusing to remove %s", abs)
	}
	if err := os.RemoveAll(abs); err != nil {
		return fmt.Errorf("clean: remove %s: %w", abs, err)
	}
	return nil
}

// writeFileAtomic writes through a temp file in the target directory and renames it into
// place. Concurrent writers to the same path leave one complete file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("chmod temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
