package ontology

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/singleflight"

	"github.com/structureddynamics/OSF-Web-Services-sub001/internal/triplestore"
	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/kvcache"
	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/logger"
	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/sparql"
)

// Namespace is the shared-cache namespace of every ontology entry.
const Namespace = "ontology"

// Reader is the ontology-read collaborator. It reports direct superclasses
// only; the closure is computed here.
type Reader interface {
	SuperClasses(ctx context.Context, class string) ([]string, error)
	Property(ctx context.Context, property string) (*triplestore.PropertyDecl, error)
}

// PropertyMetadata is the cached view of a property. Range holds the
// declared range classes together with all their ancestors.
type PropertyMetadata struct {
	URI            string   `json:"uri"`
	Types          []string `json:"types,omitempty"`
	Cardinality    *int     `json:"cardinality,omitempty"`
	MaxCardinality *int     `json:"max_cardinality,omitempty"`
	Range          []string `json:"range,omitempty"`
}

// SingleValued reports whether at most one value may be indexed.
func (p *PropertyMetadata) SingleValued() bool {
	if p == nil {
		return false
	}
	return (p.Cardinality != nil && *p.Cardinality == 1) ||
		(p.MaxCardinality != nil && *p.MaxCardinality == 1)
}

// InRange reports whether class is in the property's range closure.
func (p *PropertyMetadata) InRange(class string) bool {
	if p == nil {
		return false
	}
	for _, r := range p.Range {
		if r == class {
			return true
		}
	}
	return false
}

type localEntry struct {
	value   any
	expires time.Time
}

// Cache resolves class closures and property metadata through a
// process-local LRU, the shared cache and finally the Reader.
type Cache struct {
	reader Reader
	shared kvcache.Cache
	local  *lru.Cache
	ttl    time.Duration
	shTTL  time.Duration
	root   string
	group  singleflight.Group
	now    func() time.Time
	log    *slog.Logger
}

// Options tunes a Cache.
type Options struct {
	RootType  string
	LocalSize int
	LocalTTL  time.Duration
	SharedTTL time.Duration
}

// NewCache builds a Cache. root is added to every class closure.
func NewCache(reader Reader, shared kvcache.Cache, opts Options, log *slog.Logger) (*Cache, error) {
	if opts.LocalSize <= 0 {
		opts.LocalSize = 4096
	}
	local, err := lru.New(opts.LocalSize)
	if err != nil {
		return nil, fmt.Errorf("ontology lru: %w", err)
	}
	return &Cache{
		reader: reader,
		shared: shared,
		local:  local,
		ttl:    opts.LocalTTL,
		shTTL:  opts.SharedTTL,
		root:   opts.RootType,
		now:    time.Now,
		log:    log.With(logger.Scope("ontology.cache")),
	}, nil
}

// RootType is the class every closure contains.
func (c *Cache) RootType() string {
	return c.root
}

// NewSession returns a memo scoped to one update call.
func (c *Cache) NewSession() *Session {
	return &Session{
		cache:   c,
		classes: map[string][]string{},
		props:   map[string]*PropertyMetadata{},
	}
}

// SuperClasses returns the ancestor closure of class, always including the
// root type.
func (c *Cache) SuperClasses(ctx context.Context, class string) ([]string, error) {
	key := "superclasses:" + class
	if v, ok := c.localGet(key); ok {
		lookups.WithLabelValues("local", "class").Inc()
		return v.([]string), nil
	}

	var closure []string
	if c.sharedGet(ctx, key, &closure) {
		lookups.WithLabelValues("shared", "class").Inc()
		c.localAdd(key, closure)
		return closure, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		return c.closure(ctx, class)
	})
	if err != nil {
		return nil, err
	}
	lookups.WithLabelValues("reader", "class").Inc()
	closure = v.([]string)
	c.localAdd(key, closure)
	c.sharedSet(ctx, key, closure)
	return closure, nil
}

// closure walks rdfs:subClassOf breadth first. The visited set makes it
// terminate on cyclic hierarchies.
func (c *Cache) closure(ctx context.Context, class string) ([]string, error) {
	visited := map[string]bool{class: true}
	queue := []string{class}
	var out []string

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		supers, err := c.reader.SuperClasses(ctx, cur)
		if err != nil {
			if unknown(err) {
				continue
			}
			return nil, fmt.Errorf("superclasses of %s: %w", cur, err)
		}
		for _, s := range supers {
			if !visited[s] {
				visited[s] = true
				out = append(out, s)
				queue = append(queue, s)
			}
		}
	}

	if c.root != "" && (class == c.root || !visited[c.root]) {
		out = append(out, c.root)
	}
	sort.Strings(out)
	return out, nil
}

// Property returns the metadata of property, or nil when no ontology
// describes it or access to it is denied.
func (c *Cache) Property(ctx context.Context, property string) (*PropertyMetadata, error) {
	key := "property:" + property
	if v, ok := c.localGet(key); ok {
		lookups.WithLabelValues("local", "property").Inc()
		return v.(*PropertyMetadata), nil
	}

	var meta *PropertyMetadata
	if c.sharedGet(ctx, key, &meta) {
		lookups.WithLabelValues("shared", "property").Inc()
		c.localAdd(key, meta)
		return meta, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		return c.resolveProperty(ctx, property)
	})
	if err != nil {
		return nil, err
	}
	lookups.WithLabelValues("reader", "property").Inc()
	meta = v.(*PropertyMetadata)
	c.localAdd(key, meta)
	c.sharedSet(ctx, key, meta)
	return meta, nil
}

func (c *Cache) resolveProperty(ctx context.Context, property string) (*PropertyMetadata, error) {
	decl, err := c.reader.Property(ctx, property)
	if err != nil {
		if unknown(err) {
			return (*PropertyMetadata)(nil), nil
		}
		return nil, fmt.Errorf("property %s: %w", property, err)
	}

	meta := &PropertyMetadata{
		URI:            property,
		Types:          decl.Types,
		Cardinality:    decl.Cardinality,
		MaxCardinality: decl.MaxCardinality,
	}
	seen := map[string]bool{}
	for _, r := range decl.Ranges {
		if !seen[r] {
			seen[r] = true
			meta.Range = append(meta.Range, r)
		}
		closure, err := c.SuperClasses(ctx, r)
		if err != nil {
			return nil, err
		}
		for _, s := range closure {
			if !seen[s] {
				seen[s] = true
				meta.Range = append(meta.Range, s)
			}
		}
	}
	return meta, nil
}

// Invalidate drops every local entry and bumps the shared namespace.
func (c *Cache) Invalidate(ctx context.Context) error {
	c.local.Purge()
	if c.shared == nil {
		return nil
	}
	return kvcache.Invalidate(ctx, c.shared, Namespace)
}

func unknown(err error) bool {
	return errors.Is(err, triplestore.ErrNotFound) || errors.Is(err, sparql.ErrForbidden)
}

func (c *Cache) localGet(key string) (any, bool) {
	v, ok := c.local.Get(key)
	if !ok {
		return nil, false
	}
	e := v.(localEntry)
	if c.ttl > 0 && !c.now().Before(e.expires) {
		c.local.Remove(key)
		return nil, false
	}
	return e.value, true
}

func (c *Cache) localAdd(key string, value any) {
	c.local.Add(key, localEntry{value: value, expires: c.now().Add(c.ttl)})
}

// sharedGet decodes a shared-cache hit into out. Cache failures degrade to
// a miss.
func (c *Cache) sharedGet(ctx context.Context, key string, out any) bool {
	if c.shared == nil {
		return false
	}
	k, err := kvcache.NamespacedKey(ctx, c.shared, Namespace, key)
	if err != nil {
		c.log.Warn("shared cache unavailable", logger.Error(err))
		return false
	}
	raw, err := c.shared.Get(ctx, k)
	if err != nil {
		if !errors.Is(err, kvcache.ErrMiss) {
			c.log.Warn("shared cache read failed", slog.String("key", key), logger.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		c.log.Warn("corrupt shared cache entry", slog.String("key", key), logger.Error(err))
		return false
	}
	return true
}

func (c *Cache) sharedSet(ctx context.Context, key string, value any) {
	if c.shared == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	k, err := kvcache.NamespacedKey(ctx, c.shared, Namespace, key)
	if err == nil {
		err = c.shared.Set(ctx, k, raw, c.shTTL)
	}
	if err != nil {
		c.log.Warn("shared cache write failed", slog.String("key", key), logger.Error(err))
	}
}
