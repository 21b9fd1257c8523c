package apiitem

import (
	"path/filepath"
	"strings"
)

// Side names the request or the response half of an endpoint.
type Side string

const (
	SideRequest  Side = "request"
	SideResponse Side = "response"
)

const (
	DefaultRequestModelSuffix  = "RequestVo"
	DefaultResponseModelSuffix = "ResponseVo"
)

// Canonicalizer applies the engine-wide defaults to raw groups and items.
type Canonicalizer struct {
	// SchemaRoot is the absolute directory schema files live under.
	SchemaRoot                 string
	DefaultMethod              HttpVerb
	DefaultRequestModelSuffix  string
	DefaultResponseModelSuffix string
}

// NewCanonicalizer returns a Canonicalizer with the built-in defaults: GET, "RequestVo"
// and "ResponseVo".
func NewCanonicalizer(schemaRoot string) *Canonicalizer {
	return &Canonicalizer{
		SchemaRoot:                 schemaRoot,
		DefaultMethod:              GET,
		DefaultRequestModelSuffix:  DefaultRequestModelSuffix,
		DefaultResponseModelSuffix: DefaultResponseModelSuffix,
	}
}

// ResolveGroup fills every optional group field from the engine defaults.
func (c *Canonicalizer) ResolveGroup(raw RawApiItemGroup) ApiItemGroup {
	return ApiItemGroup{
		Name:                raw.Name,
		URL:                 raw.URL,
		Method:              firstVerb(raw.Method, c.DefaultMethod, GET),
		Description:         raw.Description,
		Model:               raw.Model,
		RequestModelSuffix:  firstNonEmpty(raw.RequestModelSuffix, c.DefaultRequestModelSuffix, DefaultRequestModelSuffix),
		ResponseModelSuffix: firstNonEmpty(raw.ResponseModelSuffix, c.DefaultResponseModelSuffix, DefaultResponseModelSuffix),
	}
}

// Canonicalize resolves every item of raw, in authored order. It is pure: identical
// inputs always produce identical items. A group without items yields nil.
func (c *Canonicalizer) Canonicalize(raw RawApiItemGroup) []ApiItem {
	if len(raw.Items) == 0 {
		return nil
	}
	group := c.ResolveGroup(raw)

	items := make([]ApiItem, 0, len(raw.Items))
	for _, ri := range raw.Items {
		method := firstVerb(ri.Method, group.Method)
		model := firstNonEmpty(ri.Model, group.Model)
		items = append(items, ApiItem{
			Name:               ri.Name,
			Title:              firstNonEmpty(ri.Title, ri.Name),
			URL:                group.URL + ri.URL,
			Description:        ri.Description,
			Method:             method,
			Group:              group.Name,
			RequestModel:       resolveModel(ri.RequestModel, model, ri.Name, group.RequestModelSuffix),
			ResponseModel:      resolveModel(ri.ResponseModel, model, ri.Name, group.ResponseModelSuffix),
			RequestSchemaPath:  c.schemaPath(ri.RequestSchemaPath, group.Name, ri.Name, method, SideRequest),
			ResponseSchemaPath: c.schemaPath(ri.ResponseSchemaPath, group.Name, ri.Name, method, SideResponse),
		})
	}
	return items
}

func (c *Canonicalizer) schemaPath(explicit, group, item string, method HttpVerb, side Side) string {
	if explicit != "" {
		if filepath.IsAbs(explicit) {
			return filepath.Clean(explicit)
		}
		return filepath.Join(c.SchemaRoot, explicit)
	}
	return filepath.Join(c.SchemaRoot, RelativeItemPath(group, item, method, side))
}

// RelativeItemPath is the default location of an item file below a root directory:
// <group>/<kebab(item)>/<lower(method)>-<side>.json. Schema files and recorded data
// files share this layout.
//
// The item directory is kebab-cased, so item queryById lives in query-by-id, and the
// file prefix is the wire method, so DEL items write delete-request.json and
// delete-response.json. The group name is used as written.
func RelativeItemPath(group, item string, method HttpVerb, side Side) string {
	name := strings.ToLower(method.HTTPMethod()) + "-" + string(side) + ".json"
	return filepath.Join(group, ToKebab(item), name)
}

func resolveModel(ref ModelRef, model, item, suffix string) string {
	switch ref.Kind {
	case ModelOmit:
		return ""
	case ModelNamed:
		return ref.Name
	}
	return DeriveModelName(model, item, suffix)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstVerb(values ...HttpVerb) HttpVerb {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
