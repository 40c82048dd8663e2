package rdf

import (
	"bufio"
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/cayleygraph/quad"
	"github.com/cayleygraph/quad/nquads"
)

// Media types accepted by Parse.
const (
	MediaNTriples = "application/n-triples"
	MediaNQuads   = "application/n-quads"
	MediaText     = "text/plain"
	MediaTurtle   = "text/turtle"
)

// LineError is a parse failure on one line of input.
type LineError struct {
	Line int
	Msg  string
}

// ParseError collects every failing line of a document.
type ParseError struct {
	Lines []LineError
}

func (e *ParseError) Error() string {
	msgs := make([]string, 0, len(e.Lines))
	for _, l := range e.Lines {
		if l.Line > 0 {
			msgs = append(msgs, fmt.Sprintf("line %d: %s", l.Line, l.Msg))
		} else {
			msgs = append(msgs, l.Msg)
		}
	}
	return strings.Join(msgs, "; ")
}

// Parse decodes an N-Triples, N-Quads or Turtle document. Graph labels are
// dropped and relative IRIs are resolved against base.
func Parse(base string, data []byte, mediaType string) (Description, error) {
	var baseURL *url.URL
	if base != "" {
		if u, err := url.Parse(base); err == nil {
			baseURL = u
		}
	}

	switch normalizeMedia(mediaType) {
	case MediaNTriples, MediaNQuads, MediaText:
	case MediaTurtle:
		return parseTurtle(baseURL, data)
	default:
		return nil, &ParseError{Lines: []LineError{{Msg: fmt.Sprintf("unsupported media type %q", mediaType)}}}
	}

	desc := Description{}
	var perr ParseError

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		q, err := nquads.Parse(line)
		if err != nil {
			perr.Lines = append(perr.Lines, LineError{Line: n, Msg: err.Error()})
			continue
		}
		if err := addQuad(desc, q, baseURL); err != nil {
			perr.Lines = append(perr.Lines, LineError{Line: n, Msg: err.Error()})
		}
	}
	if err := sc.Err(); err != nil {
		perr.Lines = append(perr.Lines, LineError{Line: n + 1, Msg: err.Error()})
	}
	if len(perr.Lines) > 0 {
		return nil, &perr
	}
	return desc, nil
}

func normalizeMedia(m string) string {
	if i := strings.IndexByte(m, ';'); i >= 0 {
		m = m[:i]
	}
	m = strings.ToLower(strings.TrimSpace(m))
	if m == "" {
		return MediaNTriples
	}
	return m
}

func addQuad(d Description, q quad.Quad, base *url.URL) error {
	var subject string
	switch s := q.Subject.(type) {
	case quad.IRI:
		subject = resolve(base, string(s))
	case quad.BNode:
		subject = "_:" + string(s)
	default:
		return fmt.Errorf("invalid subject %v", q.Subject)
	}

	pred, ok := q.Predicate.(quad.IRI)
	if !ok {
		return fmt.Errorf("invalid predicate %v", q.Predicate)
	}

	obj, err := fromQuadValue(q.Object)
	if err != nil {
		return err
	}
	if obj.IsURI() {
		obj.Content = resolve(base, obj.Content)
	}

	d.Add(subject, resolve(base, string(pred)), obj)
	return nil
}

func resolve(base *url.URL, iri string) string {
	if base == nil {
		return iri
	}
	u, err := url.Parse(iri)
	if err != nil || u.IsAbs() {
		return iri
	}
	return base.ResolveReference(u).String()
}

func fromQuadValue(v quad.Value) (Value, error) {
	switch t := v.(type) {
	case quad.IRI:
		return URI(string(t)), nil
	case quad.BNode:
		return Blank(string(t)), nil
	case quad.String:
		return Literal(string(t)), nil
	case quad.LangString:
		return LangLiteral(string(t.Value), t.Lang), nil
	case quad.TypedString:
		return TypedLiteral(string(t.Value), string(t.Type)), nil
	case quad.TypedStringer:
		ts := t.TypedString()
		return TypedLiteral(string(ts.Value), string(ts.Type)), nil
	case nil:
		return Value{}, fmt.Errorf("missing object")
	default:
		return Literal(v.String()), nil
	}
}

func toQuadValue(v Value) quad.Value {
	switch v.Kind {
	case KindURI:
		return quad.IRI(v.Content)
	case KindBlank:
		return quad.BNode(strings.TrimPrefix(v.Content, "_:"))
	}
	switch {
	case v.Lang != "":
		return quad.LangString{Value: quad.String(v.Content), Lang: v.Lang}
	case v.Datatype != "" && v.Datatype != XSDString:
		return quad.TypedString{Value: quad.String(v.Content), Type: quad.IRI(v.Datatype)}
	default:
		return quad.String(v.Content)
	}
}

func subjectValue(s string) quad.Value {
	if IsBlankSubject(s) {
		return quad.BNode(strings.TrimPrefix(s, "_:"))
	}
	return quad.IRI(s)
}

// Term renders v in N-Triples term syntax, which is also valid in Turtle
// and SPARQL.
func (v Value) Term() string {
	return toQuadValue(v).String()
}

// SubjectTerm renders a subject key in N-Triples term syntax.
func SubjectTerm(s string) string {
	return subjectValue(s).String()
}

// IRITerm renders a bare IRI as <iri>.
func IRITerm(iri string) string {
	return quad.IRI(iri).String()
}

// SerializeNTriples writes d as N-Triples with subjects and predicates in
// lexical order.
func SerializeNTriples(d Description) ([]byte, error) {
	var buf bytes.Buffer
	w := nquads.NewWriter(&buf)
	for _, s := range d.Subjects() {
		res := d[s]
		for _, p := range res.Predicates() {
			for _, v := range res[p] {
				q := quad.Quad{
					Subject:   subjectValue(s),
					Predicate: quad.IRI(p),
					Object:    toQuadValue(v),
				}
				if err := w.WriteQuad(q); err != nil {
					return nil, fmt.Errorf("write triple: %w", err)
				}
			}
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
