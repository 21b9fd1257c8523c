package apiitem

import (
	"strings"
	"unicode"
)

// DeriveModelName hyphen-joins model, item and suffix and converts the result to upper
// camel case: ("Blog", "create", "RequestVo") -> "BlogCreateRequestVo".
func DeriveModelName(model, item, suffix string) string {
	return ToUpperCamel(model + "-" + item + "-" + suffix)
}

// ToUpperCamel splits s on every rune that is not a letter or digit, drops empty
// segments and upper-cases the first rune of each remaining segment. The rest of
// each segment is kept as is, so "queryById" stays "QueryById".
func ToUpperCamel(s string) string {
	segments := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var b strings.Builder
	b.Grow(len(s))
	for _, seg := range segments {
		runes := []rune(seg)
		runes[0] = unicode.ToUpper(runes[0])
		b.WriteString(string(runes))
	}
	return b.String()
}

// ToKebab converts camel/pascal case and underscores to lower kebab case:
// "queryById" -> "query-by-id", "HTMLParser" -> "html-parser", "get_user" -> "get-user".
func ToKebab(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i, r := range runes {
		if r == '_' || unicode.IsSpace(r) {
			b.WriteByte('-')
			continue
		}
		if unicode.IsUpper(r) && i > 0 {
			prev := runes[i-1]
			lowerOrDigitBefore := unicode.IsLower(prev) || unicode.IsDigit(prev)
			// the last capital of an acronym starts a new word: "HTMLParser" -> "html-parser"
			acronymEnd := unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if lowerOrDigitBefore || acronymEnd {
				b.WriteByte('-')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
