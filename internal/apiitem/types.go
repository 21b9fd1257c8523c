// Package apiitem turns api configuration documents into a canonical, deduplicated
// registry of endpoint descriptors.
//
// The flow is two-stage: ExtractGroups walks a loaded document into validated raw records
// (RawApiItemGroup, RawApiItem), then the Canonicalizer applies the default cascade
// (engine -> group -> item) and yields ApiItem values which the Registry deduplicates
// by (HTTP method, url).
package apiitem

import (
	"net/http"
	"strings"
)

// HttpVerb is an authored HTTP verb. DEL is accepted as a synonym of DELETE.
type HttpVerb string

const (
	GET    HttpVerb = "GET"
	POST   HttpVerb = "POST"
	PUT    HttpVerb = "PUT"
	PATCH  HttpVerb = "PATCH"
	DEL    HttpVerb = "DEL"
	DELETE HttpVerb = "DELETE"
)

// ParseHttpVerb upper-cases s and reports whether it names a supported verb.
func ParseHttpVerb(s string) (HttpVerb, bool) {
	v := HttpVerb(strings.ToUpper(strings.TrimSpace(s)))
	switch v {
	case GET, POST, PUT, PATCH, DEL, DELETE:
		return v, true
	}
	return "", false
}

// HTTPMethod returns the method used on the wire.
func (v HttpVerb) HTTPMethod() string {
	switch v {
	case DEL, DELETE:
		return http.MethodDelete
	case "":
		return http.MethodGet
	}
	return string(v)
}

// ModelRefKind tells how a request/response model name is obtained.
type ModelRefKind int

const (
	// ModelDerive means the key was absent: the name is derived from model, item and suffix.
	ModelDerive ModelRefKind = iota
	// ModelOmit means the key was an explicit null: the endpoint has no such model.
	ModelOmit
	// ModelNamed means the key held a name that is used verbatim.
	ModelNamed
)

func (k ModelRefKind) String() string {
	switch k {
	case ModelDerive:
		return "derive"
	case ModelOmit:
		return "omit"
	case ModelNamed:
		return "named"
	}
	return "unknown"
}

// ModelRef is the three-valued requestModel/responseModel field of a raw item.
type ModelRef struct {
	Kind ModelRefKind
	Name string
}

// Derive returns a ModelRef asking for a derived name.
func Derive() ModelRef { return ModelRef{Kind: ModelDerive} }

// Omit returns a ModelRef for an endpoint without that model.
func Omit() ModelRef { return ModelRef{Kind: ModelOmit} }

// Named returns a ModelRef that uses name verbatim.
func Named(name string) ModelRef { return ModelRef{Kind: ModelNamed, Name: name} }

// RawApiItemGroup is a group exactly as authored.
type RawApiItemGroup struct {
	Name                string `validate:"required"`
	URL                 string
	Description         string
	Method              HttpVerb `validate:"omitempty,oneof=GET POST PUT PATCH DEL DELETE"`
	Model               string
	RequestModelSuffix  string
	ResponseModelSuffix string
	Items               []RawApiItem `validate:"dive"`
}

// RawApiItem is an item exactly as authored under a group.
type RawApiItem struct {
	Name               string `validate:"required"`
	Title              string
	URL                string
	Description        string
	Method             HttpVerb `validate:"omitempty,oneof=GET POST PUT PATCH DEL DELETE"`
	Model              string
	RequestModel       ModelRef
	ResponseModel      ModelRef
	RequestSchemaPath  string
	ResponseSchemaPath string
}

// ApiItemGroup is a group with every optional field resolved against the defaults.
type ApiItemGroup struct {
	Name                string
	URL                 string
	Method              HttpVerb
	Description         string
	Model               string
	RequestModelSuffix  string
	ResponseModelSuffix string
}

// ApiItem is a canonical endpoint descriptor. An empty RequestModel or ResponseModel
// means the endpoint has no such model; the schema paths are computed regardless.
type ApiItem struct {
	Name               string   `json:"name"`
	Title              string   `json:"title"`
	URL                string   `json:"url"`
	Description        string   `json:"description"`
	Method             HttpVerb `json:"method"`
	Group              string   `json:"group"`
	RequestModel       string   `json:"requestModel,omitempty"`
	ResponseModel      string   `json:"responseModel,omitempty"`
	RequestSchemaPath  string   `json:"requestSchemaPath"`
	ResponseSchemaPath string   `json:"responseSchemaPath"`
}

// Key returns the identity used for deduplication.
func (it ApiItem) Key() RouteKey {
	return RouteKey{Method: it.Method.HTTPMethod(), URL: it.URL}
}

// RouteKey identifies an endpoint by wire method and url.
type RouteKey struct {
	Method string
	URL    string
}

func (k RouteKey) String() string { return k.Method + " " + k.URL }
