package search

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/structureddynamics/OSF-Web-Services-sub001/domain/ontology"
	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/rdf"
	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/solr"
)

// Label predicates, highest priority first.
var prefLabelPredicates = []string{
	rdf.IRONPrefLabel,
	rdf.SKOSPrefLabel,
	rdf.UMBELPrefLabel,
	rdf.RDFSLabel,
	rdf.DCTermsTitle,
	rdf.DCTitle,
	rdf.FOAFName,
}

var altLabelPredicates = []string{
	rdf.IRONAltLabel,
	rdf.SKOSAltLabel,
}

var descriptionPredicates = []string{
	rdf.IRONDescription,
	rdf.SKOSDefinition,
	rdf.DCTermsDesc,
	rdf.DCDescription,
	rdf.RDFSComment,
}

var structural = map[string]bool{
	rdf.RDFType:      true,
	rdf.RDFSubject:   true,
	rdf.RDFPredicate: true,
	rdf.RDFObject:    true,
}

// DocumentID keys a subject's index document within a dataset.
func DocumentID(dataset, subject string) string {
	sum := md5.Sum([]byte(dataset + subject))
	return hex.EncodeToString(sum[:])
}

// Metadata is the per-call view of the ontology cache.
type Metadata interface {
	RootType() string
	SuperClasses(ctx context.Context, class string) ([]string, error)
	Property(ctx context.Context, property string) (*ontology.PropertyMetadata, error)
}

// LabelStore reads the labels of a referenced resource.
type LabelStore interface {
	Labels(ctx context.Context, subject string, predicates []string) ([]rdf.Value, error)
}

// builder projects the subjects of one description. Object label lookups
// are memoized for the life of the builder.
type builder struct {
	dataset   string
	d         rdf.Description
	meta      Metadata
	labels    LabelStore
	languages []string
	geo       bool
	objLabels map[string]string
}

func (b *builder) defaultLang() string {
	return b.languages[0]
}

// lang maps a literal onto a supported language. Untagged literals and
// literals in unsupported languages take the default language.
func (b *builder) lang(v rdf.Value) string {
	if v.Lang == "" {
		return b.defaultLang()
	}
	l := strings.ToLower(v.Lang)
	for _, s := range b.languages {
		if s == l {
			return s
		}
	}
	return b.defaultLang()
}

func (b *builder) document(ctx context.Context, subject string) (solr.Document, error) {
	res := b.d[subject]
	doc := solr.Document{}
	doc.Add(FieldID, DocumentID(b.dataset, subject))
	doc.Add(FieldURI, subject)
	doc.Add(FieldDataset, b.dataset)

	consumed := map[string]bool{rdf.RDFType: true}
	if err := b.types(ctx, doc, res); err != nil {
		return nil, err
	}
	b.labelFields(doc, subject, res, consumed)
	if b.geo {
		b.geoFields(doc, res, consumed)
	}

	seenAttr := map[string]bool{}
	for _, p := range res.Predicates() {
		if consumed[p] {
			continue
		}
		meta, err := b.meta.Property(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("property %s: %w", p, err)
		}
		single := meta.SingleValued()
		singleSeen := false
		for _, v := range res[p] {
			if !seenAttr[p] {
				doc.Add(FieldAttribute, p)
				seenAttr[p] = true
			}
			doc.Add(facetField(p), v.Content)

			if v.IsLiteral() {
				// single-valued: first literal of the predicate only
				if single && singleSeen {
					continue
				}
				singleSeen = true
				f, val := b.literalField(meta, p, v)
				doc.Add(f.String(), val)
			} else if err := b.objectField(ctx, doc, p, v); err != nil {
				return nil, err
			}
			b.reificationFields(doc, subject, p, v)
		}
	}
	return doc, nil
}

func (b *builder) types(ctx context.Context, doc solr.Document, res rdf.Resource) error {
	seen := map[string]bool{}
	var declared []string
	for _, v := range res[rdf.RDFType] {
		if v.IsURI() && !seen[v.Content] {
			seen[v.Content] = true
			declared = append(declared, v.Content)
			doc.Add(FieldType, v.Content)
		}
	}

	inferred := map[string]bool{}
	add := func(c string) {
		if !inferred[c] {
			inferred[c] = true
			doc.Add(FieldInferredType, c)
		}
	}
	for _, t := range declared {
		add(t)
		closure, err := b.meta.SuperClasses(ctx, t)
		if err != nil {
			return fmt.Errorf("superclasses of %s: %w", t, err)
		}
		for _, c := range closure {
			add(c)
		}
	}
	add(b.meta.RootType())
	return nil
}

func (b *builder) labelFields(doc solr.Document, subject string, res rdf.Resource, consumed map[string]bool) {
	hasPref := map[string]bool{}
	for _, p := range prefLabelPredicates {
		consumed[p] = true
		for _, v := range res[p] {
			if !v.IsLiteral() {
				continue
			}
			l := b.lang(v)
			if !hasPref[l] {
				hasPref[l] = true
				doc.Add(prefLabelField(l), v.Content)
				continue
			}
			doc.Add(altLabelField(l), v.Content)
		}
	}
	for _, p := range altLabelPredicates {
		consumed[p] = true
		for _, v := range res[p] {
			if v.IsLiteral() {
				doc.Add(altLabelField(b.lang(v)), v.Content)
			}
		}
	}
	for _, p := range descriptionPredicates {
		consumed[p] = true
		for _, v := range res[p] {
			if v.IsLiteral() {
				doc.Add(descriptionField(b.lang(v)), v.Content)
			}
		}
	}

	def := b.defaultLang()
	if len(hasPref) == 0 {
		doc.Add(prefLabelField(def), rdf.LocalName(subject))
	}
	if labels := doc[prefLabelField(def)]; len(labels) > 0 {
		doc.Add(FieldPrefLabel, labels[0])
		return
	}
	for _, l := range b.languages {
		if labels := doc[prefLabelField(l)]; len(labels) > 0 {
			doc.Add(FieldPrefLabel, labels[0])
			return
		}
	}
}

// literalField names the field of a literal and converts its value. A
// value that does not parse as its range's datatype falls back to the
// text field.
func (b *builder) literalField(meta *ontology.PropertyMetadata, p string, v rdf.Value) (FieldName, any) {
	lang := b.lang(v)
	f := FieldName{Predicate: p, Kind: literalKind(meta, lang), SingleValued: meta.SingleValued()}
	switch f.Kind {
	case KindDate:
		if t, ok := parseDate(v.Content); ok {
			return f, t.UTC().Format(time.RFC3339)
		}
	case KindInt:
		if n, err := strconv.ParseInt(strings.TrimSpace(v.Content), 10, 64); err == nil {
			return f, n
		}
	case KindFloat:
		if n, err := strconv.ParseFloat(strings.TrimSpace(v.Content), 64); err == nil {
			return f, n
		}
	default:
		return f, v.Content
	}
	f.Kind = TextKind(lang)
	return f, v.Content
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02Z07:00",
	"2006-01-02",
	"2006-01",
	"2006",
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// objectField indexes a referenced resource's URI and the text of its
// labels.
func (b *builder) objectField(ctx context.Context, doc solr.Document, p string, v rdf.Value) error {
	text, err := b.objectLabel(ctx, v)
	if err != nil {
		return err
	}
	if v.IsURI() {
		doc.Add(FieldName{Predicate: p, Kind: KindObjURI}.String(), v.Content)
	}
	if text != "" {
		doc.Add(FieldName{Predicate: p, Kind: ObjectKind(b.defaultLang())}.String(), text)
	}
	return nil
}

func (b *builder) objectLabel(ctx context.Context, v rdf.Value) (string, error) {
	if v.IsBlank() {
		var parts []string
		for _, p := range prefLabelPredicates {
			for _, l := range b.d[rdf.BlankSubject(v.Content)][p] {
				parts = append(parts, l.Content)
			}
		}
		return strings.Join(parts, " "), nil
	}
	if text, ok := b.objLabels[v.Content]; ok {
		return text, nil
	}
	vals, err := b.labels.Labels(ctx, v.Content, prefLabelPredicates)
	if err != nil {
		return "", fmt.Errorf("labels of %s: %w", v.Content, err)
	}
	parts := make([]string, 0, len(vals))
	for _, l := range vals {
		parts = append(parts, l.Content)
	}
	text := strings.Join(parts, " ")
	if text == "" {
		text = rdf.LocalName(v.Content)
	}
	b.objLabels[v.Content] = text
	return text, nil
}

// reificationFields projects the annotations of every statement that
// reifies (subject, p, v).
func (b *builder) reificationFields(doc solr.Document, subject, p string, v rdf.Value) {
	for _, st := range b.d.Subjects() {
		if !b.d.HasType(st, rdf.RDFStatement) {
			continue
		}
		res := b.d[st]
		s, ok1 := res.First(rdf.RDFSubject)
		pr, ok2 := res.First(rdf.RDFPredicate)
		o, ok3 := res.First(rdf.RDFObject)
		if !ok1 || !ok2 || !ok3 || s.Content != subject || pr.Content != p || !sameObject(o, v) {
			continue
		}
		for _, rp := range res.Predicates() {
			if structural[rp] {
				continue
			}
			for _, rv := range res[rp] {
				doc.Add(reifyAttrField(rp), p)
				doc.Add(reifyObjField(rp), v.Content)
				doc.Add(reifyValueField(rp, b.lang(rv)), rv.Content)
			}
		}
	}
}

// sameObject compares the lexical form and kind. Datatype and language tag
// are ignored because reification documents often omit them.
func sameObject(a, b rdf.Value) bool {
	return a.Kind == b.Kind && a.Content == b.Content
}
