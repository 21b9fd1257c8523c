package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/apitool/internal/generate"
)

const exampleProject = "../../examples/simple"

func captureStdout(fn func()) string {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w
	defer func() { os.Stdout = old }()
	fn()
	_ = w.Close()
	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

func exampleArgs(t *testing.T, schemaRoot string, extra ...string) []string {
	t.Helper()
	project, err := filepath.Abs(exampleProject)
	if err != nil {
		t.Fatalf("abs: %v", err)
	}
	args := []string{
		"--log-level", "disabled",
		"generate",
		"--project-dir", project,
		"--model-packages", "./model",
		"--schema-root", schemaRoot,
	}
	return append(args, extra...)
}

func TestGeneratePipeline_DryRun(t *testing.T) {
	schemaRoot := filepath.Join(t.TempDir(), "schemas")

	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs(exampleArgs(t, schemaRoot, "--dry-run"))

	out := captureStdout(func() {
		if err := root.Execute(); err != nil {
			t.Fatalf("execute: %v", err)
		}
	})
	if !strings.Contains(out, "Planned writes to") || !strings.Contains(out, "(6 files)") {
		t.Fatalf("expected dry-run plan output, got: %s", out)
	}
	if !strings.Contains(out, "- blog/query-by-id/get-response.json (QueryBlogByIdResponseVo)") {
		t.Fatalf("expected query-by-id in plan, got: %s", out)
	}
	// Dry-run should not create the directory
	if _, err := os.Stat(schemaRoot); err == nil {
		t.Fatalf("expected no writes on dry-run")
	}
}

func TestGeneratePipeline_WritesSchemas(t *testing.T) {
	schemaRoot := filepath.Join(t.TempDir(), "schemas")

	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs(exampleArgs(t, schemaRoot))

	out := captureStdout(func() {
		if err := root.Execute(); err != nil {
			t.Fatalf("execute: %v", err)
		}
	})
	if !strings.Contains(out, "Wrote 6 schema(s)") {
		t.Fatalf("unexpected output: %s", out)
	}

	want := map[string]string{
		"user/me/get-response.json":          "UserMeResponseVo",
		"user/list/get-response.json":        "UserListResponseVo",
		"user/update/post-request.json":      "UserUpdateRequestVo",
		"blog/create/post-request.json":      "BlogCreateRequestVo",
		"blog/create/post-response.json":     "BlogCreateResponseVo",
		"blog/query-by-id/get-response.json": "QueryBlogByIdResponseVo",
	}
	for rel, title := range want {
		data, err := os.ReadFile(filepath.Join(schemaRoot, filepath.FromSlash(rel)))
		if err != nil {
			t.Fatalf("read %s: %v", rel, err)
		}
		var doc map[string]any
		if err := json.Unmarshal(data, &doc); err != nil {
			t.Fatalf("decode %s: %v", rel, err)
		}
		if doc["title"] != title {
			t.Errorf("%s: want title %q got %v", rel, title, doc["title"])
		}
	}
	if _, err := os.Stat(filepath.Join(schemaRoot, "blog", "remove")); err == nil {
		t.Fatalf("remove has no models, nothing should be written for it")
	}
}

func TestGeneratePipeline_MissingModel(t *testing.T) {
	dir := t.TempDir()
	apiPath := filepath.Join(dir, "api.yml")
	content := "order:\n  url: /api/order\n  model: Order\n  items:\n    create:\n      method: POST\n"
	if err := os.WriteFile(apiPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write api config: %v", err)
	}
	schemaRoot := filepath.Join(dir, "schemas")

	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs(exampleArgs(t, schemaRoot, "--api-config", apiPath))

	var err error
	_ = captureStdout(func() { err = root.Execute() })
	if !errors.Is(err, generate.ErrModelNotFound) || !errors.Is(err, ErrUsage) {
		t.Fatalf("expected model not found usage error, got %v", err)
	}
	if !strings.Contains(err.Error(), "OrderCreateRequestVo") {
		t.Fatalf("error should name the model: %v", err)
	}

	root = NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs(exampleArgs(t, schemaRoot, "--api-config", apiPath, "--ignore-missing-models"))
	out := captureStdout(func() { err = root.Execute() })
	if err != nil {
		t.Fatalf("ignore-missing-models: %v", err)
	}
	if !strings.Contains(out, "Wrote 0 schema(s)") || !strings.Contains(out, "Skipped OrderCreateResponseVo") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestGeneratePipeline_NoApiItems(t *testing.T) {
	dir := t.TempDir()

	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{
		"--log-level", "disabled",
		"generate",
		"--project-dir", dir,
		"--schema-root", filepath.Join(dir, "schemas"),
	})

	err := root.Execute()
	if !errors.Is(err, ErrUsage) || !strings.Contains(err.Error(), "no valid api item found") {
		t.Fatalf("expected no api item error, got %v", err)
	}

	root = NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{
		"--log-level", "disabled",
		"generate",
		"--project-dir", dir,
		"--api-config", "missing.yml",
	})
	err = root.Execute()
	if !errors.Is(err, ErrUsage) || !strings.Contains(err.Error(), "missing.yml") {
		t.Fatalf("expected explicit api config error naming the file, got %v", err)
	}
}
