package rdf

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `
# a comment
<http://ex.org/d#r1> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <http://xmlns.com/foaf/0.1/Person> .
<http://ex.org/d#r1> <http://www.w3.org/2000/01/rdf-schema#label> "Alice"@en .
<http://ex.org/d#r1> <http://xmlns.com/foaf/0.1/age> "42"^^<http://www.w3.org/2001/XMLSchema#integer> .
<http://ex.org/d#r1> <http://xmlns.com/foaf/0.1/knows> _:b1 .
_:b1 <http://xmlns.com/foaf/0.1/name> "Bob" .
`

func TestParse_NTriples(t *testing.T) {
	d, err := Parse("http://ex.org/d", []byte(sampleDoc), MediaNTriples)
	require.NoError(t, err)

	assert.Equal(t, []string{"_:b1", "http://ex.org/d#r1"}, d.Subjects())
	r1 := d["http://ex.org/d#r1"]
	assert.Equal(t, []string{NSFOAF + "Person"}, d.Types("http://ex.org/d#r1"))
	assert.Equal(t, []Value{LangLiteral("Alice", "en")}, r1[RDFSLabel])
	assert.Equal(t, []Value{Blank("b1")}, r1[NSFOAF+"knows"])
	require.Len(t, r1[NSFOAF+"age"], 1)
	assert.Equal(t, "42", r1[NSFOAF+"age"][0].Content)
	assert.True(t, r1[NSFOAF+"age"][0].IsLiteral())
	assert.Equal(t, []Value{Literal("Bob")}, d["_:b1"][NSFOAF+"name"])
}

func TestParse_DropsDuplicates(t *testing.T) {
	doc := `<urn:a> <urn:p> "x" .
<urn:a> <urn:p> "x" .
`
	d, err := Parse("", []byte(doc), "")
	require.NoError(t, err)
	assert.Len(t, d["urn:a"]["urn:p"], 1)
}

func TestParse_LineErrorsAreConcatenated(t *testing.T) {
	doc := `<urn:a> <urn:p> "ok" .
this is not a triple
<urn:a> <urn:p> "fine" .
neither is this
`
	_, err := Parse("", []byte(doc), MediaNTriples)
	require.Error(t, err)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	require.Len(t, perr.Lines, 2)
	assert.Equal(t, 2, perr.Lines[0].Line)
	assert.Equal(t, 4, perr.Lines[1].Line)
	assert.Contains(t, err.Error(), "line 2:")
	assert.Contains(t, err.Error(), "; line 4:")
}

func TestParse_UnsupportedMediaType(t *testing.T) {
	_, err := Parse("", []byte(sampleDoc), "application/rdf+xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported media type")
}

func TestParse_MediaTypeParameters(t *testing.T) {
	_, err := Parse("", []byte(sampleDoc), "application/n-triples; charset=utf-8")
	assert.NoError(t, err)
}

func TestSerializeNTriples_Deterministic(t *testing.T) {
	d := Description{}
	d.Add("urn:b", RDFSLabel, LangLiteral("B", "en"))
	d.Add("urn:a", RDFType, URI(NSFOAF+"Person"))
	d.Add("urn:a", NSFOAF+"age", TypedLiteral("3", XSDInteger))
	d.Add("urn:a", NSFOAF+"knows", Blank("k"))

	out, err := SerializeNTriples(d)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "<urn:a> <http://www.w3.org/1999/02/22-rdf-syntax-ns#type>"), lines[0])
	assert.Contains(t, lines[1], `"3"^^<http://www.w3.org/2001/XMLSchema#integer>`)
	assert.Contains(t, lines[2], "_:k")
	assert.Contains(t, lines[3], `"B"@en`)

	back, err := Parse("", out, MediaNTriples)
	require.NoError(t, err)
	assert.Equal(t, d.Len(), back.Len())
	assert.Equal(t, d["urn:b"], back["urn:b"])
}

func TestValueTerm(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{URI("urn:x"), "<urn:x>"},
		{Blank("b0"), "_:b0"},
		{Literal("plain"), `"plain"`},
		{Literal(`say "hi"`), `"say \"hi\""`},
		{LangLiteral("chat", "fr"), `"chat"@fr`},
		{TypedLiteral("1", XSDInteger), `"1"^^<http://www.w3.org/2001/XMLSchema#integer>`},
		{TypedLiteral("s", XSDString), `"s"`},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.v.Term())
		})
	}
}

func TestSerializeTurtle(t *testing.T) {
	d := Description{}
	d.Add("http://ex.org/r1", RDFType, URI(NSFOAF+"Person"))
	d.Add("http://ex.org/r1", RDFSLabel, LangLiteral("Alice", "en"))
	d.Add("http://ex.org/r1", "http://ex.org/vocab/age", TypedLiteral("34", XSDInteger))
	d.Add("http://ex.org/r1", "http://ex.org/vocab/knows", Blank("b0"))
	d.Add("_:b0", RDFSLabel, Literal("Bob"))

	out, err := SerializeTurtle(d)
	require.NoError(t, err)

	text := string(out)
	assert.Contains(t, text, "<http://ex.org/r1> <"+RDFType+"> <"+NSFOAF+"Person> .\n")
	assert.Contains(t, text, "<http://ex.org/r1> <"+RDFSLabel+`> "Alice"@en .`)
	assert.Contains(t, text, `"34"^^<`+XSDInteger+`>`)
	assert.Contains(t, text, "<http://ex.org/vocab/knows> _:b0 .")
	assert.Contains(t, text, "_:b0 <"+RDFSLabel+`> "Bob" .`)

	back, err := Parse("", out, MediaTurtle)
	require.NoError(t, err)
	assert.Equal(t, d["http://ex.org/r1"], back["http://ex.org/r1"])
	assert.Len(t, back, 2)
}

func TestParse_Turtle(t *testing.T) {
	doc := `@prefix foaf: <http://xmlns.com/foaf/0.1/> .
@prefix ex: <http://ex.org/people/> .

ex:alice a foaf:Person ;
    foaf:name "Alice"@en , "Alicia"@es ;
    foaf:knows ex:bob .
`
	d, err := Parse("", []byte(doc), "text/turtle; charset=utf-8")
	require.NoError(t, err)

	alice := d["http://ex.org/people/alice"]
	require.NotNil(t, alice)
	assert.Equal(t, []Value{URI(NSFOAF + "Person")}, alice[RDFType])
	assert.Equal(t, []Value{LangLiteral("Alice", "en"), LangLiteral("Alicia", "es")}, alice[FOAFName])
	assert.Equal(t, []Value{URI("http://ex.org/people/bob")}, alice[NSFOAF+"knows"])
}

func TestParse_TurtleSyntaxError(t *testing.T) {
	_, err := Parse("", []byte("<http://ex.org/a> <http://ex.org/p> ."), MediaTurtle)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
}

func TestLocalName(t *testing.T) {
	tests := map[string]string{
		"http://ex.org/d#r1":      "r1",
		"http://ex.org/people/42": "42",
		"http://ex.org/people/":   "people",
		"urn:isbn:123":            "123",
		"nopath":                  "nopath",
	}
	for in, want := range tests {
		assert.Equal(t, want, LocalName(in), in)
	}
}
