package serve

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/apitool/internal/apiitem"
	"github.com/mark3labs/apitool/internal/faker"
)

// syncBuffer is a bytes.Buffer safe for the server's request goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func envelopeSchema(result *openapi3.Schema) *openapi3.Schema {
	s := openapi3.NewObjectSchema().
		WithProperty("code", openapi3.NewIntegerSchema().WithMin(0).WithMax(0)).
		WithProperty("message", openapi3.NewStringSchema()).
		WithProperty("result", result)
	s.Required = []string{"code", "message", "result"}
	return s
}

func blogSchema() *openapi3.Schema {
	s := openapi3.NewObjectSchema().
		WithProperty("id", openapi3.NewUUIDSchema()).
		WithProperty("title", openapi3.NewStringSchema()).
		WithProperty("views", openapi3.NewInt64Schema())
	s.Required = []string{"id", "title"}
	return s
}

// blogItems returns the blog endpoints with schemas rooted at root:
// create (POST /api/blog), queryById (GET /api/blog/:blogId) and remove
// (DEL /api/blog/:blogId, no response model).
func blogItems(root string) []apiitem.ApiItem {
	return apiitem.NewCanonicalizer(root).Canonicalize(apiitem.RawApiItemGroup{
		Name:  "blog",
		URL:   "/api/blog",
		Model: "Blog",
		Items: []apiitem.RawApiItem{
			{Name: "create", Method: apiitem.POST},
			{Name: "queryById", URL: "/:blogId", ResponseModel: apiitem.Named("QueryBlogByIdResponseVo")},
			{Name: "remove", URL: "/:blogId", Method: apiitem.DEL, ResponseModel: apiitem.Omit()},
		},
	})
}

func writeSchema(t *testing.T, path string, s *openapi3.Schema) {
	t.Helper()
	data, err := json.Marshal(s)
	require.NoError(t, err)
	writeRaw(t, path, data)
}

func writeRaw(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func newFaker() *faker.Faker {
	return faker.NewSeeded(faker.Options{AlwaysFakeOptionals: true}, 1)
}
