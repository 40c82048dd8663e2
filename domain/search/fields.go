package search

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/structureddynamics/OSF-Web-Services-sub001/domain/ontology"
	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/rdf"
)

// Field kinds that do not depend on a language.
const (
	KindDate   = "date"
	KindInt    = "int"
	KindFloat  = "float"
	KindObjURI = "obj_uri"
)

// Fixed fields of every document.
const (
	FieldID           = "id"
	FieldURI          = "uri"
	FieldDataset      = "dataset"
	FieldType         = "type"
	FieldInferredType = "inferred_type"
	FieldAttribute    = "attribute"
	FieldPrefLabel    = "prefLabel"
	FieldLat          = "lat"
	FieldLong         = "long"
	FieldAlt          = "alt"
	FieldGeohash      = "geohash"
	FieldLocatedIn    = "located_in"
	FieldPolygon      = "polygonCoordinates"
	FieldPolyline     = "polylineCoordinates"
)

// FieldName is a dynamic attribute field derived from a predicate.
type FieldName struct {
	Predicate    string
	Kind         string
	SingleValued bool
}

func (f FieldName) String() string {
	s := escape(f.Predicate) + "_attr_" + f.Kind
	if f.SingleValued {
		s += "_single_valued"
	}
	return s
}

// TextKind is the kind of a plain literal field in lang.
func TextKind(lang string) string { return lang }

// ObjectKind is the kind of the label text of a referenced resource.
func ObjectKind(lang string) string { return "obj_" + lang }

func escape(predicate string) string {
	return url.QueryEscape(predicate)
}

func facetField(predicate string) string {
	return escape(predicate) + "_attr_facets"
}

func reifyAttrField(predicate string) string {
	return escape(predicate) + "_reify_attr"
}

func reifyObjField(predicate string) string {
	return escape(predicate) + "_reify_obj"
}

func reifyValueField(predicate, lang string) string {
	return escape(predicate) + "_reify_value_" + lang
}

func prefLabelField(lang string) string   { return "prefLabel_" + lang }
func altLabelField(lang string) string    { return "altLabel_" + lang }
func descriptionField(lang string) string { return "description_" + lang }

var (
	dateClasses  = []string{rdf.XSDDateTime, rdf.XSDDate}
	intClasses   = []string{rdf.XSDInteger, rdf.XSDInt, rdf.XSDLong, rdf.XSDShort, rdf.XSDByte, rdf.XSDNonNeg, rdf.XSDPosInt, rdf.XSDUnsigned}
	floatClasses = []string{rdf.XSDFloat, rdf.XSDDouble, rdf.XSDDecimal}
)

// literalKind picks the field kind of a literal from the property's range:
// date first, then int, then float, else the text field of lang. A nil
// property is unknown and always yields text.
func literalKind(p *ontology.PropertyMetadata, lang string) string {
	switch {
	case inAnyRange(p, dateClasses):
		return KindDate
	case inAnyRange(p, intClasses):
		return KindInt
	case inAnyRange(p, floatClasses):
		return KindFloat
	default:
		return TextKind(lang)
	}
}

func inAnyRange(p *ontology.PropertyMetadata, classes []string) bool {
	for _, c := range classes {
		if p.InRange(c) {
			return true
		}
	}
	return false
}

// FieldLister reads the index's field directory.
type FieldLister interface {
	Fields(ctx context.Context) ([]string, error)
}

// fieldDirectory caches the field names the index knows. Entries starting
// or ending with '*' are dynamic field patterns.
type fieldDirectory struct {
	mu       sync.RWMutex
	loaded   bool
	static   map[string]bool
	prefixes []string
	suffixes []string
}

func (d *fieldDirectory) ensure(ctx context.Context, l FieldLister) error {
	d.mu.RLock()
	loaded := d.loaded
	d.mu.RUnlock()
	if loaded {
		return nil
	}
	return d.refresh(ctx, l)
}

func (d *fieldDirectory) refresh(ctx context.Context, l FieldLister) error {
	names, err := l.Fields(ctx)
	if err != nil {
		return err
	}
	static := make(map[string]bool, len(names))
	var prefixes, suffixes []string
	for _, n := range names {
		switch {
		case strings.HasPrefix(n, "*"):
			suffixes = append(suffixes, n[1:])
		case strings.HasSuffix(n, "*"):
			prefixes = append(prefixes, n[:len(n)-1])
		default:
			static[n] = true
		}
	}
	d.mu.Lock()
	d.static, d.prefixes, d.suffixes, d.loaded = static, prefixes, suffixes, true
	d.mu.Unlock()
	return nil
}

func (d *fieldDirectory) known(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.static[name] {
		return true
	}
	for _, s := range d.suffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	for _, p := range d.prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}
