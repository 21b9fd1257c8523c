package apiitem

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ReadDocument reads a .json, .yml or .yaml file and returns its root node. Both formats
// end up as a yaml.Node tree, which keeps key order and tells an absent key from an
// explicit null. An empty document yields a nil node.
func ReadDocument(path string) (*yaml.Node, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json", ".yml", ".yaml":
	default:
		return nil, &ConfigError{Code: InputError, Path: path, Message: "must be a file with a .json/.yml/.yaml extension"}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Code: InputError, Path: path, Message: fmt.Sprintf("read file: %v", err), Cause: err}
	}

	var root *yaml.Node
	if ext == ".json" {
		root, err = decodeJSON(data)
	} else {
		root, err = decodeYAML(data)
	}
	if err != nil {
		return nil, &ConfigError{Code: ParseError, Path: path, Message: fmt.Sprintf("parse: %v", err), Cause: err}
	}
	return root, nil
}

func decodeYAML(data []byte) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, nil
	}
	return doc.Content[0], nil
}

// decodeJSON builds the node tree from the token stream. Duplicate keys keep their first
// position and the last value, as encoding/json does for maps.
func decodeJSON(data []byte) (*yaml.Node, error) {
	d := &jsonDoc{dec: json.NewDecoder(bytes.NewReader(data)), data: data}
	d.dec.UseNumber()

	tok, err := d.dec.Token()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	root, err := d.value(tok)
	if err != nil {
		return nil, err
	}
	if _, err := d.dec.Token(); !errors.Is(err, io.EOF) {
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("unexpected data after the top-level value (line %d)", d.line())
	}
	return root, nil
}

type jsonDoc struct {
	dec  *json.Decoder
	data []byte
}

// line is the line of the token the decoder just returned.
func (d *jsonDoc) line() int {
	off := int(d.dec.InputOffset())
	if off > len(d.data) {
		off = len(d.data)
	}
	return bytes.Count(d.data[:off], []byte{'\n'}) + 1
}

func (d *jsonDoc) value(tok json.Token) (*yaml.Node, error) {
	line := d.line()
	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			return d.object(line)
		case '[':
			return d.array(line)
		}
		return nil, fmt.Errorf("unexpected %q (line %d)", v, line)
	case string:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v, Style: yaml.DoubleQuotedStyle, Line: line}, nil
	case json.Number:
		tag := "!!int"
		if strings.ContainsAny(v.String(), ".eE") {
			tag = "!!float"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: v.String(), Line: line}, nil
	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: fmt.Sprint(v), Line: line}, nil
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null", Line: line}, nil
	}
	return nil, fmt.Errorf("unexpected token %v (line %d)", tok, line)
}

func (d *jsonDoc) object(line int) (*yaml.Node, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Style: yaml.FlowStyle, Line: line}
	index := map[string]int{}
	for d.dec.More() {
		tok, err := d.dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("object key must be a string (line %d)", d.line())
		}
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key, Style: yaml.DoubleQuotedStyle, Line: d.line()}

		tok, err = d.dec.Token()
		if err != nil {
			return nil, err
		}
		val, err := d.value(tok)
		if err != nil {
			return nil, err
		}
		if i, dup := index[key]; dup {
			node.Content[i+1] = val
			continue
		}
		index[key] = len(node.Content)
		node.Content = append(node.Content, keyNode, val)
	}
	if _, err := d.dec.Token(); err != nil {
		return nil, err
	}
	return node, nil
}

func (d *jsonDoc) array(line int) (*yaml.Node, error) {
	node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Style: yaml.FlowStyle, Line: line}
	for d.dec.More() {
		tok, err := d.dec.Token()
		if err != nil {
			return nil, err
		}
		val, err := d.value(tok)
		if err != nil {
			return nil, err
		}
		node.Content = append(node.Content, val)
	}
	if _, err := d.dec.Token(); err != nil {
		return nil, err
	}
	return node, nil
}

// Lookup returns the value stored under key in a mapping node, or nil.
func Lookup(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

// ExtractGroups walks a group-name -> group mapping into validated raw records, in
// document order. A nil or null node yields no groups. path is only used in errors.
func ExtractGroups(node *yaml.Node, path string) ([]RawApiItemGroup, error) {
	if node == nil || isNull(node) {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, structureErr(path, "", node, "api groups must be a mapping of group name to group")
	}

	groups := make([]RawApiItemGroup, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		group, err := extractGroup(name, node.Content[i+1], path)
		if err != nil {
			return nil, err
		}
		if err := validate.Struct(group); err != nil {
			return nil, validationErr(path, "group "+name, err)
		}
		groups = append(groups, group)
	}
	return groups, nil
}

func extractGroup(name string, node *yaml.Node, path string) (RawApiItemGroup, error) {
	group := RawApiItemGroup{Name: name}
	loc := "group " + name
	if isNull(node) {
		return group, nil
	}
	if node.Kind != yaml.MappingNode {
		return group, structureErr(path, loc, node, "group must be a mapping")
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i].Value, node.Content[i+1]
		var err error
		switch key {
		case "url":
			group.URL, err = scalarString(value)
		case "description", "desc":
			group.Description, err = scalarString(value)
		case "method":
			var s string
			s, err = scalarString(value)
			group.Method = HttpVerb(strings.ToUpper(strings.TrimSpace(s)))
		case "model":
			group.Model, err = scalarString(value)
		case "requestModelSuffix":
			group.RequestModelSuffix, err = scalarString(value)
		case "responseModelSuffix":
			group.ResponseModelSuffix, err = scalarString(value)
		case "items":
			group.Items, err = extractItems(name, value, path)
			if err != nil {
				return group, err
			}
		default:
			return group, structureErr(path, loc, node.Content[i], fmt.Sprintf("unknown field %q", key))
		}
		if err != nil {
			return group, structureErr(path, loc, value, fmt.Sprintf("field %q: %v", key, err))
		}
	}
	return group, nil
}

func extractItems(groupName string, node *yaml.Node, path string) ([]RawApiItem, error) {
	if isNull(node) {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, structureErr(path, "group "+groupName, node, "items must be a mapping of item name to item")
	}

	items := make([]RawApiItem, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		item, err := extractItem(groupName, node.Content[i].Value, node.Content[i+1], path)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func extractItem(groupName, name string, node *yaml.Node, path string) (RawApiItem, error) {
	item := RawApiItem{Name: name, RequestModel: Derive(), ResponseModel: Derive()}
	loc := fmt.Sprintf("group %s item %s", groupName, name)
	if isNull(node) {
		return item, nil
	}
	if node.Kind != yaml.MappingNode {
		return item, structureErr(path, loc, node, "item must be a mapping")
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i].Value, node.Content[i+1]
		var err error
		switch key {
		case "url":
			item.URL, err = scalarString(value)
		case "title":
			item.Title, err = scalarString(value)
		case "description", "desc":
			item.Description, err = scalarString(value)
		case "method":
			var s string
			s, err = scalarString(value)
			item.Method = HttpVerb(strings.ToUpper(strings.TrimSpace(s)))
		case "model":
			item.Model, err = scalarString(value)
		case "requestModel":
			item.RequestModel, err = modelRef(value)
		case "responseModel":
			item.ResponseModel, err = modelRef(value)
		case "requestSchemaPath":
			item.RequestSchemaPath, err = scalarString(value)
		case "responseSchemaPath":
			item.ResponseSchemaPath, err = scalarString(value)
		default:
			return item, structureErr(path, loc, node.Content[i], fmt.Sprintf("unknown field %q", key))
		}
		if err != nil {
			return item, structureErr(path, loc, value, fmt.Sprintf("field %q: %v", key, err))
		}
	}
	return item, nil
}

// modelRef maps null to Omit, a blank string to Derive and anything else to Named, with
// the name kept exactly as written.
func modelRef(node *yaml.Node) (ModelRef, error) {
	if isNull(node) {
		return Omit(), nil
	}
	s, err := scalarString(node)
	if err != nil {
		return ModelRef{}, err
	}
	if strings.TrimSpace(s) == "" {
		return Derive(), nil
	}
	return Named(s), nil
}

func scalarString(node *yaml.Node) (string, error) {
	if node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	if isNull(node) {
		return "", nil
	}
	if node.Kind != yaml.ScalarNode {
		return "", fmt.Errorf("expected a string, got %s", kindName(node.Kind))
	}
	return node.Value, nil
}

func isNull(node *yaml.Node) bool {
	return node == nil || (node.Kind == yaml.ScalarNode && node.ShortTag() == "!!null")
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.MappingNode:
		return "mapping"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.DocumentNode:
		return "document"
	case yaml.AliasNode:
		return "alias"
	}
	return "node"
}

func structureErr(path, location string, node *yaml.Node, msg string) error {
	if node != nil && node.Line > 0 {
		msg = fmt.Sprintf("%s (line %d)", msg, node.Line)
	}
	return &ConfigError{Code: StructureError, Path: path, Location: location, Message: msg}
}

func validationErr(path, location string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ConfigError{Code: ValidationError, Path: path, Location: location, Message: err.Error(), Cause: err}
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %q (value %q)", fe.Namespace(), fe.Tag(), fmt.Sprint(fe.Value())))
	}
	return &ConfigError{Code: ValidationError, Path: path, Location: location, Message: strings.Join(parts, "; "), Cause: err}
}
