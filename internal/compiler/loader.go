// Package compiler turns Go model types into JSON schema documents.
//
// A Program is the set of model packages loaded once with go/packages; SchemaForSymbol
// then compiles a single exported type into an inlined openapi3.Schema whose title is
// the symbol name.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"sort"
	"strings"

	"golang.org/x/tools/go/packages"
)

// ErrSymbolNotFound is returned when no loaded package declares the requested type.
var ErrSymbolNotFound = errors.New("symbol not found")

// Settings configures how model packages are loaded.
type Settings struct {
	// Dir is the directory go/packages runs in; it selects the module.
	Dir string
	// BuildFlags are passed to the underlying build tool, e.g. -tags.
	BuildFlags []string
}

// DefaultSettings returns settings that load from the current directory.
func DefaultSettings() Settings { return Settings{} }

// Option mutates Settings.
type Option func(*Settings)

func WithDir(dir string) Option            { return func(s *Settings) { s.Dir = dir } }
func WithBuildFlags(flags ...string) Option { return func(s *Settings) { s.BuildFlags = flags } }

// Program is a loaded set of model packages.
type Program struct {
	pkgs []*packages.Package
	docs map[token.Pos]string
}

// Load type-checks the packages matched by patterns. Packages with errors fail the load.
func Load(ctx context.Context, patterns []string, opts ...Option) (*Program, error) {
	if len(patterns) == 0 {
		return nil, errors.New("no model packages specified")
	}
	s := DefaultSettings()
	for _, o := range opts {
		o(&s)
	}

	cfg := &packages.Config{
		Context:    ctx,
		Dir:        s.Dir,
		BuildFlags: s.BuildFlags,
		Mode: packages.NeedName |
			packages.NeedFiles |
			packages.NeedCompiledGoFiles |
			packages.NeedImports |
			packages.NeedTypes |
			packages.NeedSyntax |
			packages.NeedTypesInfo,
	}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("load packages %s: %w", strings.Join(patterns, " "), err)
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("no packages match %s", strings.Join(patterns, " "))
	}
	for _, pkg := range pkgs {
		if len(pkg.Errors) > 0 {
			return nil, fmt.Errorf("package %s has errors: %v", pkg.PkgPath, pkg.Errors)
		}
	}

	p := &Program{pkgs: pkgs, docs: make(map[token.Pos]string)}
	for _, pkg := range pkgs {
		for _, file := range pkg.Syntax {
			p.indexDocs(file)
		}
	}
	return p, nil
}

// indexDocs records doc comments of type declarations and struct fields by the position
// of their name. Fields of generic instances keep their origin's position, so the index
// serves them too.
func (p *Program) indexDocs(file *ast.File) {
	ast.Inspect(file, func(n ast.Node) bool {
		switch node := n.(type) {
		case *ast.GenDecl:
			if node.Tok != token.TYPE {
				return true
			}
			for _, spec := range node.Specs {
				ts, ok := spec.(*ast.TypeSpec)
				if !ok {
					continue
				}
				doc := ts.Doc
				if doc == nil && len(node.Specs) == 1 {
					doc = node.Doc
				}
				if text := commentText(doc); text != "" {
					p.docs[ts.Name.Pos()] = text
				}
			}
		case *ast.StructType:
			for _, field := range node.Fields.List {
				text := commentText(field.Doc)
				if text == "" {
					text = commentText(field.Comment)
				}
				if text == "" {
					continue
				}
				for _, name := range field.Names {
					p.docs[name.Pos()] = text
				}
			}
		}
		return true
	})
}

func commentText(cg *ast.CommentGroup) string {
	if cg == nil {
		return ""
	}
	return strings.TrimSpace(cg.Text())
}

// Symbols lists the exported type names of the loaded packages, sorted.
func (p *Program) Symbols() []string {
	var names []string
	for _, pkg := range p.pkgs {
		scope := pkg.Types.Scope()
		for _, name := range scope.Names() {
			if tn, ok := scope.Lookup(name).(*types.TypeName); ok && tn.Exported() {
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

func (p *Program) lookup(name string) *types.TypeName {
	for _, pkg := range p.pkgs {
		if tn, ok := pkg.Types.Scope().Lookup(name).(*types.TypeName); ok {
			return tn
		}
	}
	return nil
}
