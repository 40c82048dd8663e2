package rdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	rdfgo "github.com/geoknoesis/rdf-go/rdf"
)

// SerializeTurtle writes d as Turtle with subjects and predicates in lexical
// order. This is the syntax handed to the store's bulk loader.
func SerializeTurtle(d Description) ([]byte, error) {
	var buf bytes.Buffer
	w, err := rdfgo.NewWriter(&buf, rdfgo.FormatTurtle)
	if err != nil {
		return nil, fmt.Errorf("turtle writer: %w", err)
	}
	for _, s := range d.Subjects() {
		res := d[s]
		for _, p := range res.Predicates() {
			for _, v := range res[p] {
				st := rdfgo.NewTriple(subjectTerm(s), rdfgo.IRI{Value: p}, objectTerm(v))
				if err := w.Write(st); err != nil {
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

func parseTurtle(base *url.URL, data []byte) (Description, error) {
	r, err := rdfgo.NewReader(bytes.NewReader(data), rdfgo.FormatTurtle, rdfgo.OptSafeLimits())
	if err != nil {
		return nil, &ParseError{Lines: []LineError{{Msg: err.Error()}}}
	}
	defer r.Close()

	desc := Description{}
	for {
		st, err := r.Next()
		if errors.Is(err, io.EOF) {
			return desc, nil
		}
		if err != nil {
			return nil, &ParseError{Lines: []LineError{{Msg: err.Error()}}}
		}
		if err := addStatement(desc, st, base); err != nil {
			return nil, &ParseError{Lines: []LineError{{Msg: err.Error()}}}
		}
	}
}

func addStatement(d Description, st rdfgo.Statement, base *url.URL) error {
	var subject string
	switch s := st.S.(type) {
	case rdfgo.IRI:
		subject = resolve(base, s.Value)
	case rdfgo.BlankNode:
		subject = BlankSubject(s.ID)
	default:
		return fmt.Errorf("invalid subject %v", st.S)
	}
	if st.P.Value == "" {
		return fmt.Errorf("missing predicate")
	}

	var obj Value
	switch o := st.O.(type) {
	case rdfgo.IRI:
		obj = URI(resolve(base, o.Value))
	case rdfgo.BlankNode:
		obj = Blank(o.ID)
	case rdfgo.Literal:
		switch {
		case o.Lang != "":
			obj = LangLiteral(o.Lexical, o.Lang)
		case o.Datatype.Value != "" && o.Datatype.Value != XSDString:
			obj = TypedLiteral(o.Lexical, o.Datatype.Value)
		default:
			obj = Literal(o.Lexical)
		}
	case nil:
		return fmt.Errorf("missing object")
	default:
		return fmt.Errorf("unsupported object %v", st.O)
	}

	d.Add(subject, resolve(base, st.P.Value), obj)
	return nil
}

func subjectTerm(s string) rdfgo.Term {
	if IsBlankSubject(s) {
		return rdfgo.BlankNode{ID: strings.TrimPrefix(s, "_:")}
	}
	return rdfgo.IRI{Value: s}
}

func objectTerm(v Value) rdfgo.Term {
	switch v.Kind {
	case KindURI:
		return rdfgo.IRI{Value: v.Content}
	case KindBlank:
		return rdfgo.BlankNode{ID: strings.TrimPrefix(v.Content, "_:")}
	}
	lit := rdfgo.Literal{Lexical: v.Content, Lang: v.Lang}
	if v.Lang == "" && v.Datatype != "" && v.Datatype != XSDString {
		lit.Datatype = rdfgo.IRI{Value: v.Datatype}
	}
	return lit
}
