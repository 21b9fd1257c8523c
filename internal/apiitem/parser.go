package apiitem

import (
	"gopkg.in/yaml.v3"

	"github.com/mark3labs/apitool/internal/logging"
)

// DefaultMainConfigKey is the key api groups are nested under in the tool config file.
const DefaultMainConfigKey = "api"

// Parser loads api groups from one or more documents into a single Registry. Sources are
// loaded in call order; the first definition of a route wins.
type Parser struct {
	canon    *Canonicalizer
	registry *Registry
	log      logging.Logger
}

func NewParser(canon *Canonicalizer, log logging.Logger) *Parser {
	if log == nil {
		log = logging.Nop()
	}
	return &Parser{canon: canon, registry: NewRegistry(log), log: log}
}

// LoadFromApiConfig loads a document whose top level is the group mapping. It returns the
// number of items added to the registry.
func (p *Parser) LoadFromApiConfig(path string) (int, error) {
	root, err := ReadDocument(path)
	if err != nil {
		return 0, err
	}
	return p.load(root, path)
}

// LoadFromMainConfig loads the groups nested under key in a larger config document. An
// empty key means DefaultMainConfigKey; a document without the key adds nothing.
func (p *Parser) LoadFromMainConfig(path, key string) (int, error) {
	if key == "" {
		key = DefaultMainConfigKey
	}
	root, err := ReadDocument(path)
	if err != nil {
		return 0, err
	}
	node := Lookup(root, key)
	if node == nil {
		p.log.Debug().Str("path", path).Str("key", key).Msg("no api items in main config")
		return 0, nil
	}
	return p.load(node, path)
}

func (p *Parser) load(node *yaml.Node, path string) (int, error) {
	groups, err := ExtractGroups(node, path)
	if err != nil {
		return 0, err
	}
	added := 0
	for _, g := range groups {
		added += p.ParseGroup(g)
	}
	p.log.Debug().Str("path", path).Int("groups", len(groups)).Int("items", added).Msg("loaded api items")
	return added, nil
}

// ParseGroup canonicalizes raw and registers its items, returning how many were kept.
func (p *Parser) ParseGroup(raw RawApiItemGroup) int {
	added := 0
	for _, item := range p.canon.Canonicalize(raw) {
		if p.registry.Add(item) {
			added++
		}
	}
	return added
}

// Collect returns a snapshot of the registered items.
func (p *Parser) Collect() []ApiItem { return p.registry.Collect() }

// Registry exposes the underlying registry, e.g. to inspect conflicts.
func (p *Parser) Registry() *Registry { return p.registry }
