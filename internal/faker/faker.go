// Package faker synthesizes JSON values that conform to a schema document.
package faker

import (
	"encoding/base64"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/google/uuid"
)

// DefaultOptionalsProbability is used when no probability is configured.
const DefaultOptionalsProbability = 0.8

const (
	maxDepth        = 12
	defaultMaxItems = 3
	defaultIntMax   = 1000
)

// Options tune which optional properties are generated.
type Options struct {
	// RequiredOnly emits only required properties.
	RequiredOnly bool
	// AlwaysFakeOptionals emits every optional property; it overrides RequiredOnly.
	AlwaysFakeOptionals bool
	// OptionalsProbability is the chance, in [0, 1], that an optional property is emitted.
	OptionalsProbability float64
}

// Normalize returns opts with the probability clamped into [0, 1] (NaN becomes the
// default) and AlwaysFakeOptionals applied: probability 1 and RequiredOnly off.
func (o Options) Normalize() Options {
	switch {
	case math.IsNaN(o.OptionalsProbability):
		o.OptionalsProbability = DefaultOptionalsProbability
	case o.OptionalsProbability < 0:
		o.OptionalsProbability = 0
	case o.OptionalsProbability > 1:
		o.OptionalsProbability = 1
	}
	if o.AlwaysFakeOptionals {
		o.OptionalsProbability = 1
		o.RequiredOnly = false
	}
	return o
}

// Faker generates values. It is safe for concurrent use.
type Faker struct {
	opts Options

	mu   sync.Mutex
	rnd  *rand.Rand
	fake *gofakeit.Faker
}

// New returns a Faker seeded from the clock.
func New(opts Options) *Faker {
	return NewSeeded(opts, time.Now().UnixNano())
}

// NewSeeded returns a Faker whose output is reproducible for a given seed.
func NewSeeded(opts Options, seed int64) *Faker {
	rnd := rand.New(rand.NewSource(seed))
	// gofakeit treats seed 0 as "pick a random seed"
	return &Faker{opts: opts.Normalize(), rnd: rnd, fake: gofakeit.New(rnd.Uint64() | 1)}
}

// Options returns the normalized options in use.
func (f *Faker) Options() Options { return f.opts }

// Generate returns a value for schema built from maps, slices, strings, float64/int64
// and bools, ready for JSON encoding.
func (f *Faker) Generate(schema *openapi3.Schema) (any, error) {
	if schema == nil {
		return nil, fmt.Errorf("faker: nil schema")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value(schema, 0), nil
}

func (f *Faker) value(s *openapi3.Schema, depth int) any {
	if s == nil {
		return nil
	}
	if len(s.Enum) > 0 {
		return s.Enum[f.rnd.Intn(len(s.Enum))]
	}
	if s.Example != nil {
		return s.Example
	}

	switch s.Type {
	case "object":
		return f.object(s, depth)
	case "array":
		return f.array(s, depth)
	case "string":
		return f.str(s)
	case "integer":
		return f.integer(s)
	case "number":
		return f.number(s)
	case "boolean":
		return f.rnd.Intn(2) == 1
	}
	if len(s.Properties) > 0 {
		return f.object(s, depth)
	}
	if s.Items != nil {
		return f.array(s, depth)
	}
	return f.word()
}

func (f *Faker) object(s *openapi3.Schema, depth int) any {
	out := make(map[string]any, len(s.Properties))
	if depth >= maxDepth {
		return out
	}
	required := make(map[string]bool, len(s.Required))
	for _, name := range s.Required {
		required[name] = true
	}

	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if !required[name] && !f.includeOptional() {
			continue
		}
		ref := s.Properties[name]
		if ref == nil {
			continue
		}
		out[name] = f.value(ref.Value, depth+1)
	}
	return out
}

func (f *Faker) includeOptional() bool {
	if f.opts.RequiredOnly {
		return false
	}
	switch p := f.opts.OptionalsProbability; {
	case p >= 1:
		return true
	case p <= 0:
		return false
	default:
		return f.rnd.Float64() < p
	}
}

func (f *Faker) array(s *openapi3.Schema, depth int) any {
	if depth >= maxDepth || s.Items == nil {
		return []any{}
	}
	lo := int(s.MinItems)
	hi := lo + defaultMaxItems
	if s.MaxItems != nil && int(*s.MaxItems) < hi {
		hi = int(*s.MaxItems)
	}
	if hi < lo {
		hi = lo
	}
	n := lo + f.rnd.Intn(hi-lo+1)
	out := make([]any, n)
	for i := range out {
		out[i] = f.value(s.Items.Value, depth+1)
	}
	return out
}

func (f *Faker) integer(s *openapi3.Schema) any {
	lo, hi := int64(0), int64(defaultIntMax)
	if s.Min != nil {
		lo = toInt64(math.Ceil(*s.Min))
		if s.ExclusiveMin && float64(lo) == *s.Min && lo < math.MaxInt64 {
			lo++
		}
		if s.Max == nil {
			hi = addSat(lo, defaultIntMax)
		}
	}
	if s.Max != nil {
		hi = toInt64(math.Floor(*s.Max))
		if s.ExclusiveMax && float64(hi) == *s.Max && hi > math.MinInt64 {
			hi--
		}
		if s.Min == nil && hi < lo {
			lo = addSat(hi, -defaultIntMax)
		}
	}
	if hi < lo {
		return lo
	}
	return f.int64Between(lo, hi)
}

// int64Between draws from [lo, hi]. Spans wider than Int63n accepts are drawn from
// Uint64 by rejection, which accepts at least half of the draws.
func (f *Faker) int64Between(lo, hi int64) int64 {
	span := uint64(hi) - uint64(lo)
	if span < math.MaxInt64 {
		return lo + f.rnd.Int63n(int64(span)+1)
	}
	for {
		if r := f.rnd.Uint64(); r <= span {
			return int64(uint64(lo) + r)
		}
	}
}

func toInt64(v float64) int64 {
	switch {
	case v >= math.MaxInt64:
		return math.MaxInt64
	case v <= math.MinInt64:
		return math.MinInt64
	}
	return int64(v)
}

func addSat(a, b int64) int64 {
	switch {
	case b > 0 && a > math.MaxInt64-b:
		return math.MaxInt64
	case b < 0 && a < math.MinInt64-b:
		return math.MinInt64
	}
	return a + b
}

func (f *Faker) number(s *openapi3.Schema) any {
	lo, hi := 0.0, float64(defaultIntMax)
	if s.Min != nil {
		lo = *s.Min
		if s.Max == nil {
			hi = lo + defaultIntMax
		}
	}
	if s.Max != nil {
		hi = *s.Max
		if s.Min == nil && hi < lo {
			lo = hi - defaultIntMax
		}
	}
	if hi <= lo {
		return lo
	}
	// interpolate instead of lo+r*(hi-lo): the span overflows to Inf for wide ranges
	r := f.rnd.Float64()
	v := lo*(1-r) + hi*r
	if v <= lo || v >= hi {
		v = lo/2 + hi/2
	}
	// two decimals keep the payload readable; stay inside an exclusive bound
	rounded := math.Round(v*100) / 100
	if math.IsInf(rounded, 0) || rounded <= lo || rounded >= hi {
		return v
	}
	return rounded
}

func (f *Faker) str(s *openapi3.Schema) any {
	switch s.Format {
	case "date-time":
		return f.timestamp().Format(time.RFC3339)
	case "date":
		return f.timestamp().Format(time.DateOnly)
	case "email":
		return f.fake.Email()
	case "uri", "url":
		return f.fake.URL()
	case "hostname":
		return f.fake.DomainName()
	case "ipv4":
		return f.fake.IPv4Address()
	case "ipv6":
		return f.fake.IPv6Address()
	case "uuid":
		id, err := uuid.NewRandomFromReader(f.rnd)
		if err != nil {
			return uuid.NewString()
		}
		return id.String()
	case "byte":
		buf := make([]byte, 8+f.rnd.Intn(8))
		_, _ = f.rnd.Read(buf)
		return base64.StdEncoding.EncodeToString(buf)
	}
	return f.text(int(s.MinLength), s.MaxLength)
}

func (f *Faker) text(minLen int, maxLen *uint64) string {
	target := 1 + f.rnd.Intn(3)
	var b strings.Builder
	for i := 0; i < target || b.Len() < minLen; i++ {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(f.word())
	}
	out := b.String()
	if maxLen != nil && uint64(len(out)) > *maxLen {
		out = strings.TrimSpace(out[:*maxLen])
		for uint64(len(out)) < uint64(minLen) {
			out += "x"
		}
	}
	return out
}

var (
	dateFrom = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	dateTo   = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
)

// timestamp stays inside a fixed window so a seed yields the same dates on every run.
func (f *Faker) timestamp() time.Time {
	return f.fake.DateRange(dateFrom, dateTo).UTC().Truncate(time.Second)
}

func (f *Faker) word() string { return f.fake.LoremIpsumWord() }
