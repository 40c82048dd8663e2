// Package rdf holds the in-memory resource description the update pipeline
// reads and rewrites, together with the codec that moves it to and from
// N-Triples and Turtle.
package rdf

import (
	"sort"
	"strings"
)

// ValueKind distinguishes the three RDF term kinds that can appear in
// object position.
type ValueKind int

const (
	KindURI ValueKind = iota
	KindLiteral
	KindBlank
)

func (k ValueKind) String() string {
	switch k {
	case KindURI:
		return "uri"
	case KindLiteral:
		return "literal"
	case KindBlank:
		return "blank"
	default:
		return "unknown"
	}
}

// Value is one object of a statement.
type Value struct {
	Kind     ValueKind `json:"kind"`
	Content  string    `json:"content"`
	Datatype string    `json:"datatype,omitempty"`
	Lang     string    `json:"lang,omitempty"`
}

func URI(u string) Value { return Value{Kind: KindURI, Content: u} }
func Blank(id string) Value { return Value{Kind: KindBlank, Content: id} }
func Literal(s string) Value { return Value{Kind: KindLiteral, Content: s} }
func LangLiteral(s, lang string) Value {
	return Value{Kind: KindLiteral, Content: s, Lang: lang}
}
func TypedLiteral(s, datatype string) Value {
	return Value{Kind: KindLiteral, Content: s, Datatype: datatype}
}

func (v Value) IsURI() bool     { return v.Kind == KindURI }
func (v Value) IsLiteral() bool { return v.Kind == KindLiteral }
func (v Value) IsBlank() bool   { return v.Kind == KindBlank }

// Resource maps predicate URIs to their ordered values.
type Resource map[string][]Value

// Description maps subject URIs (or "_:" blank labels) to resources.
type Description map[string]Resource

// IsBlankSubject reports whether s is a blank-node label.
func IsBlankSubject(s string) bool {
	return strings.HasPrefix(s, "_:")
}

// BlankSubject returns the subject key of a blank-node value's label.
func BlankSubject(label string) string {
	return "_:" + strings.TrimPrefix(label, "_:")
}

// Add appends v under subject/predicate, skipping exact duplicates.
func (d Description) Add(subject, predicate string, v Value) {
	res, ok := d[subject]
	if !ok {
		res = Resource{}
		d[subject] = res
	}
	for _, existing := range res[predicate] {
		if existing == v {
			return
		}
	}
	res[predicate] = append(res[predicate], v)
}

// Merge adds every statement of other into d.
func (d Description) Merge(other Description) {
	for s, res := range other {
		for p, vals := range res {
			for _, v := range vals {
				d.Add(s, p, v)
			}
		}
	}
}

// Subjects returns the subjects in lexical order.
func (d Description) Subjects() []string {
	out := make([]string, 0, len(d))
	for s := range d {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Types returns the rdf:type URIs of subject in document order.
func (d Description) Types(subject string) []string {
	var out []string
	for _, v := range d[subject][RDFType] {
		if v.IsURI() {
			out = append(out, v.Content)
		}
	}
	return out
}

// HasType reports whether subject is declared with the given type.
func (d Description) HasType(subject, typ string) bool {
	for _, t := range d.Types(subject) {
		if t == typ {
			return true
		}
	}
	return false
}

// Subset returns a description holding only the given subjects.
func (d Description) Subset(subjects []string) Description {
	out := make(Description, len(subjects))
	for _, s := range subjects {
		if res, ok := d[s]; ok {
			out[s] = res.Clone()
		}
	}
	return out
}

// Clone deep-copies d.
func (d Description) Clone() Description {
	out := make(Description, len(d))
	for s, res := range d {
		out[s] = res.Clone()
	}
	return out
}

// Len counts statements.
func (d Description) Len() int {
	n := 0
	for _, res := range d {
		for _, vals := range res {
			n += len(vals)
		}
	}
	return n
}

// Clone deep-copies r.
func (r Resource) Clone() Resource {
	out := make(Resource, len(r))
	for p, vals := range r {
		out[p] = append([]Value(nil), vals...)
	}
	return out
}

// Predicates returns the predicates of r in lexical order.
func (r Resource) Predicates() []string {
	out := make([]string, 0, len(r))
	for p := range r {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// First returns the first value of predicate, if any.
func (r Resource) First(predicate string) (Value, bool) {
	vals := r[predicate]
	if len(vals) == 0 {
		return Value{}, false
	}
	return vals[0], true
}

// LocalName returns the trailing fragment or path segment of a URI, used as
// a fallback label.
func LocalName(uri string) string {
	u := strings.TrimRight(uri, "/#")
	if i := strings.LastIndexAny(u, "#/:"); i >= 0 && i < len(u)-1 {
		return u[i+1:]
	}
	return u
}
