package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/apitool/internal/apiitem"
	"github.com/mark3labs/apitool/internal/compiler"
	"github.com/mark3labs/apitool/internal/logging"
)

type fakeCompiler struct {
	known map[string]bool
	calls []string
}

func (f *fakeCompiler) SchemaForSymbol(name string) (*openapi3.Schema, error) {
	f.calls = append(f.calls, name)
	if !f.known[name] {
		return nil, fmt.Errorf("%w: %s", compiler.ErrSymbolNotFound, name)
	}
	s := openapi3.NewObjectSchema().WithProperty("id", openapi3.NewStringSchema())
	s.Title = name
	return s, nil
}

func blogItems(root string) []apiitem.ApiItem {
	canon := apiitem.NewCanonicalizer(root)
	return canon.Canonicalize(apiitem.RawApiItemGroup{
		Name:  "blog",
		URL:   "/api/blog",
		Model: "Blog",
		Items: []apiitem.RawApiItem{
			{Name: "create", Method: apiitem.POST},
			{Name: "queryById", URL: "/:blogId", RequestModel: apiitem.Omit(), ResponseModel: apiitem.Named("QueryBlogByIdResponseVo")},
		},
	})
}

func allKnown() *fakeCompiler {
	return &fakeCompiler{known: map[string]bool{
		"BlogCreateRequestVo":     true,
		"BlogCreateResponseVo":    true,
		"QueryBlogByIdResponseVo": true,
	}}
}

func readTitle(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	title, _ := doc["title"].(string)
	return title
}

func TestGenerateWritesSchemas(t *testing.T) {
	t.Parallel()
	root := filepath.Join(t.TempDir(), "schemas")
	items := blogItems(root)
	fc := allKnown()
	var buf bytes.Buffer

	res, err := New(fc, logging.NewWithWriter(&buf, "info", false), Options{SchemaRoot: root}).Generate(context.Background(), items)
	require.NoError(t, err)

	require.Len(t, res.Written, 3)
	assert.Empty(t, res.Skipped)
	assert.Equal(t, "BlogCreateRequestVo", readTitle(t, items[0].RequestSchemaPath))
	assert.Equal(t, "BlogCreateResponseVo", readTitle(t, items[0].ResponseSchemaPath))
	assert.Equal(t, "QueryBlogByIdResponseVo", readTitle(t, items[1].ResponseSchemaPath))

	// the omitted request model is never compiled nor written
	assert.NotContains(t, fc.calls, "")
	assert.NoFileExists(t, items[1].RequestSchemaPath)
	assert.Contains(t, buf.String(), "output schema")

	entries, err := os.ReadDir(filepath.Dir(items[0].RequestSchemaPath))
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temp files are left behind")
}

func TestGenerateMissingModelIsFatal(t *testing.T) {
	t.Parallel()
	root := filepath.Join(t.TempDir(), "schemas")
	stale := filepath.Join(root, "stale.json")
	require.NoError(t, os.MkdirAll(root, 0o755))
	require.NoError(t, os.WriteFile(stale, []byte("{}"), 0o644))

	fc := allKnown()
	delete(fc.known, "QueryBlogByIdResponseVo")

	_, err := New(fc, nil, Options{SchemaRoot: root, Clean: true}).Generate(context.Background(), blogItems(root))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrModelNotFound))
	assert.Contains(t, err.Error(), "QueryBlogByIdResponseVo")

	assert.FileExists(t, stale, "nothing is cleaned when compilation fails")
	assert.NoDirExists(t, filepath.Join(root, "blog"), "nothing is written when compilation fails")
}

func TestGenerateIgnoreMissingModels(t *testing.T) {
	t.Parallel()
	root := filepath.Join(t.TempDir(), "schemas")
	items := blogItems(root)
	fc := allKnown()
	delete(fc.known, "BlogCreateRequestVo")
	var buf bytes.Buffer

	res, err := New(fc, logging.NewWithWriter(&buf, "info", false), Options{SchemaRoot: root, IgnoreMissingModels: true}).
		Generate(context.Background(), items)
	require.NoError(t, err)

	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "BlogCreateRequestVo", res.Skipped[0].Model)
	assert.Equal(t, apiitem.SideRequest, res.Skipped[0].Side)
	assert.Len(t, res.Written, 2)
	assert.NoFileExists(t, items[0].RequestSchemaPath)
	assert.FileExists(t, items[0].ResponseSchemaPath)
	assert.Contains(t, buf.String(), "model not found, skipped")
}

func TestGenerateCleanRemovesStaleFiles(t *testing.T) {
	t.Parallel()
	root := filepath.Join(t.TempDir(), "schemas")
	stale := filepath.Join(root, "old", "get-response.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
	require.NoError(t, os.WriteFile(stale, []byte("{}"), 0o644))

	_, err := New(allKnown(), nil, Options{SchemaRoot: root, Clean: true}).Generate(context.Background(), blogItems(root))
	require.NoError(t, err)
	assert.NoFileExists(t, stale)
	assert.FileExists(t, filepath.Join(root, "blog", "create", "post-request.json"))
}

func TestGenerateWriteFailureNamesModelAndPath(t *testing.T) {
	t.Parallel()
	root := filepath.Join(t.TempDir(), "schemas")
	require.NoError(t, os.MkdirAll(root, 0o755))
	// a regular file where the group directory should be
	require.NoError(t, os.WriteFile(filepath.Join(root, "blog"), []byte("x"), 0o644))

	_, err := New(allKnown(), nil, Options{SchemaRoot: root}).Generate(context.Background(), blogItems(root))
	require.Error(t, err)

	var werr *WriteError
	require.True(t, errors.As(err, &werr), "got %T: %v", err, err)
	assert.NotEmpty(t, werr.Model)
	assert.Contains(t, werr.Path, filepath.Join(root, "blog"))
	assert.Contains(t, err.Error(), werr.Model)
}

func TestGenerateDryRun(t *testing.T) {
	t.Parallel()
	root := filepath.Join(t.TempDir(), "schemas")

	res, err := New(allKnown(), nil, Options{SchemaRoot: root, DryRun: true, Clean: true}).Generate(context.Background(), blogItems(root))
	require.NoError(t, err)
	assert.Len(t, res.Written, 3)
	assert.NoDirExists(t, root)
}

func TestGenerateSharedModelCompiledOnce(t *testing.T) {
	t.Parallel()
	root := filepath.Join(t.TempDir(), "schemas")
	items := apiitem.NewCanonicalizer(root).Canonicalize(apiitem.RawApiItemGroup{
		Name: "user",
		Items: []apiitem.RawApiItem{
			{Name: "a", URL: "/a", RequestModel: apiitem.Omit(), ResponseModel: apiitem.Named("User")},
			{Name: "b", URL: "/b", RequestModel: apiitem.Omit(), ResponseModel: apiitem.Named("User")},
		},
	})
	fc := &fakeCompiler{known: map[string]bool{"User": true}}

	res, err := New(fc, nil, Options{SchemaRoot: root}).Generate(context.Background(), items)
	require.NoError(t, err)
	assert.Len(t, res.Written, 2)
	assert.Equal(t, []string{"User"}, fc.calls)
}

func TestGenerateNoItems(t *testing.T) {
	t.Parallel()
	_, err := New(allKnown(), nil, Options{SchemaRoot: t.TempDir()}).Generate(context.Background(), nil)
	assert.ErrorIs(t, err, apiitem.ErrNoApiItems)
}

func TestCleanRootRefusesFilesystemRoot(t *testing.T) {
	t.Parallel()
	assert.Error(t, cleanRoot(""))
	assert.Error(t, cleanRoot(string(filepath.Separator)))
}
