package apiitem

import "github.com/mark3labs/apitool/internal/logging"

// Conflict records an item dropped because its route was already registered.
type Conflict struct {
	Key     RouteKey
	Kept    ApiItem
	Dropped ApiItem
}

// Registry accumulates canonical items in insertion order, keeping the first item seen
// for every (HTTP method, url) pair. It is not safe for concurrent writers; build it
// completely before handing Collect's snapshot to a pipeline.
type Registry struct {
	log       logging.Logger
	items     []ApiItem
	index     map[RouteKey]int
	conflicts []Conflict
}

// NewRegistry returns an empty registry. A nil logger discards warnings.
func NewRegistry(log logging.Logger) *Registry {
	if log == nil {
		log = logging.Nop()
	}
	return &Registry{log: log, index: make(map[RouteKey]int)}
}

// Add inserts item and reports whether it was kept. A duplicate route is not an error:
// the item is dropped and a warning is logged.
func (r *Registry) Add(item ApiItem) bool {
	key := item.Key()
	if i, ok := r.index[key]; ok {
		kept := r.items[i]
		r.conflicts = append(r.conflicts, Conflict{Key: key, Kept: kept, Dropped: item})
		r.log.Warn().
			Str("method", key.Method).
			Str("url", key.URL).
			Str("kept", kept.Group+"."+kept.Name).
			Str("dropped", item.Group+"."+item.Name).
			Msg("duplicate api item ignored")
		return false
	}
	r.index[key] = len(r.items)
	r.items = append(r.items, item)
	return true
}

// Collect returns an order-preserving copy of the registered items.
func (r *Registry) Collect() []ApiItem {
	out := make([]ApiItem, len(r.items))
	copy(out, r.items)
	return out
}

// Conflicts returns a copy of the duplicates rejected so far.
func (r *Registry) Conflicts() []Conflict {
	out := make([]Conflict, len(r.conflicts))
	copy(out, r.conflicts)
	return out
}

func (r *Registry) Len() int { return len(r.items) }
