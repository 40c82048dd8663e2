package sparql

import (
	"strings"

	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/rdf"
)

// IRI renders an IRI reference.
func IRI(iri string) string {
	return rdf.IRITerm(iri)
}

// Literal renders a plain string literal.
func Literal(s string) string {
	return rdf.Literal(s).Term()
}

// Values renders a VALUES block binding variable to each IRI.
func Values(variable string, iris []string) string {
	var sb strings.Builder
	sb.WriteString("VALUES ?" + variable + " {")
	for _, iri := range iris {
		sb.WriteString(" " + IRI(iri))
	}
	sb.WriteString(" }")
	return sb.String()
}

// RDF converts a bound term back to an rdf.Value.
func (t Term) RDF() rdf.Value {
	switch t.Type {
	case "uri":
		return rdf.URI(t.Value)
	case "bnode":
		return rdf.Blank(t.Value)
	default:
		return rdf.Value{Kind: rdf.KindLiteral, Content: t.Value, Datatype: t.Datatype, Lang: t.Lang}
	}
}

// Get returns the lexical value of a bound variable, or "" if unbound.
func (b Binding) Get(name string) string {
	return b[name].Value
}
