package apiitem

import (
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
)

func TestDeriveModelName(t *testing.T) {
	t.Parallel()
	tests := []struct {
		model, item, suffix string
		want                string
	}{
		{"Blog", "create", "RequestVo", "BlogCreateRequestVo"},
		{"Blog", "queryById", "ResponseVo", "BlogQueryByIdResponseVo"},
		{"", "create", "RequestVo", "CreateRequestVo"},
		{"user_profile", "me", "ResponseVo", "UserProfileMeResponseVo"},
		{"order", "list-all", "Dto", "OrderListAllDto"},
		{"Blog", "create", "", "BlogCreate"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DeriveModelName(tt.model, tt.item, tt.suffix), "%q/%q/%q", tt.model, tt.item, tt.suffix)
	}
}

func TestDeriveModelNameHasNoSeparators(t *testing.T) {
	t.Parallel()
	inputs := [][3]string{
		{"a-b", "c_d", "e f"},
		{"--", "__", "  "},
		{"Blog.v2", "get/all", "Response-Vo"},
		{"x", "y", "z"},
	}
	for _, in := range inputs {
		got := DeriveModelName(in[0], in[1], in[2])
		assert.Equal(t, got, DeriveModelName(in[0], in[1], in[2]), "deterministic")
		for _, r := range got {
			assert.True(t, unicode.IsLetter(r) || unicode.IsDigit(r), "separator %q left in %q", r, got)
		}
		if got != "" {
			first := []rune(got)[0]
			assert.False(t, unicode.IsLower(first), "%q must start upper-case", got)
		}
	}
}

func TestToKebab(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"create":     "create",
		"queryById":  "query-by-id",
		"QueryById":  "query-by-id",
		"HTMLParser": "html-parser",
		"get_user":   "get-user",
		"getV2User":  "get-v2-user",
		"me":         "me",
		"already-ok": "already-ok",
	}
	for in, want := range tests {
		assert.Equal(t, want, ToKebab(in), in)
	}
	assert.False(t, strings.ContainsAny(ToKebab("Some Item_name"), " _"))
}
