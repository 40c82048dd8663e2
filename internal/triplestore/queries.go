package triplestore

import (
	"strings"

	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/rdf"
	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/sparql"
)

func triplesBlock(d rdf.Description) string {
	var sb strings.Builder
	for _, s := range d.Subjects() {
		res := d[s]
		for _, p := range res.Predicates() {
			for _, v := range res[p] {
				sb.WriteString(rdf.SubjectTerm(s))
				sb.WriteByte(' ')
				sb.WriteString(sparql.IRI(p))
				sb.WriteByte(' ')
				sb.WriteString(v.Term())
				sb.WriteString(" .\n")
			}
		}
	}
	return sb.String()
}

func insertDataQuery(graph string, d rdf.Description) string {
	return "INSERT DATA { GRAPH " + sparql.IRI(graph) + " {\n" + triplesBlock(d) + "} }"
}

// replaceSubjectsQuery deletes every live triple of each subject staged in
// temp, then copies temp into live, in a single request.
func replaceSubjectsQuery(live, temp string) string {
	l, t := sparql.IRI(live), sparql.IRI(temp)
	return "DELETE { GRAPH " + l + " { ?s ?p ?o } }\n" +
		"WHERE {\n" +
		"  { SELECT DISTINCT ?s WHERE { GRAPH " + t + " { ?s ?tp ?to } } }\n" +
		"  GRAPH " + l + " { ?s ?p ?o }\n" +
		"} ;\n" +
		"INSERT { GRAPH " + l + " { ?s ?p ?o } }\n" +
		"WHERE { GRAPH " + t + " { ?s ?p ?o } }"
}

func deleteReificationsQuery(reif string, subjects []string) string {
	r := sparql.IRI(reif)
	return "DELETE { GRAPH " + r + " { ?st ?p ?o } }\n" +
		"WHERE {\n" +
		"  " + sparql.Values("s", subjects) + "\n" +
		"  GRAPH " + r + " { ?st " + sparql.IRI(rdf.RDFSubject) + " ?s . ?st ?p ?o }\n" +
		"}"
}

func replaceReificationsQuery(reif, temp string, subjects []string) string {
	return deleteReificationsQuery(reif, subjects) + " ;\n" +
		"INSERT { GRAPH " + sparql.IRI(reif) + " { ?s ?p ?o } }\n" +
		"WHERE { GRAPH " + sparql.IRI(temp) + " { ?s ?p ?o } }"
}

func clearQuery(graph string) string {
	return "CLEAR SILENT GRAPH " + sparql.IRI(graph)
}

func latestRevisionQuery(revGraph, subject string) string {
	return revisionsQuery(revGraph, subject) + " LIMIT 1"
}

func revisionsQuery(revGraph, subject string) string {
	return "SELECT ?revision ?status ?time ?performer\n" +
		"FROM " + sparql.IRI(revGraph) + "\n" +
		"WHERE {\n" +
		"  ?revision " + sparql.IRI(rdf.WSFRevisionUri) + " " + sparql.IRI(subject) + " ;\n" +
		"    " + sparql.IRI(rdf.WSFRevisionStatus) + " ?status ;\n" +
		"    " + sparql.IRI(rdf.WSFRevisionTime) + " ?time .\n" +
		"  OPTIONAL { ?revision " + sparql.IRI(rdf.WSFPerformer) + " ?performer }\n" +
		"}\n" +
		"ORDER BY DESC(?time)"
}

// archivePublishedQuery flips every published revision of subjects to
// archive.
func archivePublishedQuery(revGraph string, subjects []string) string {
	status := sparql.IRI(rdf.WSFRevisionStatus)
	return "WITH " + sparql.IRI(revGraph) + "\n" +
		"DELETE { ?revision " + status + " " + sparql.IRI(StatusURI(StatusPublished)) + " }\n" +
		"INSERT { ?revision " + status + " " + sparql.IRI(StatusURI(StatusArchive)) + " }\n" +
		"WHERE {\n" +
		"  " + sparql.Values("s", subjects) + "\n" +
		"  ?revision " + sparql.IRI(rdf.WSFRevisionUri) + " ?s ;\n" +
		"    " + status + " " + sparql.IRI(StatusURI(StatusPublished)) + " .\n" +
		"}"
}

func describeQuery(graph, subject string) string {
	return "SELECT ?p ?o WHERE { GRAPH " + sparql.IRI(graph) + " { " + sparql.IRI(subject) + " ?p ?o } }"
}

func reificationsQuery(graph string, subjects []string) string {
	return "SELECT ?st ?p ?o WHERE {\n" +
		"  " + sparql.Values("s", subjects) + "\n" +
		"  GRAPH " + sparql.IRI(graph) + " { ?st " + sparql.IRI(rdf.RDFSubject) + " ?s . ?st ?p ?o }\n" +
		"}"
}

func labelsQuery(subject string, predicates []string) string {
	return "SELECT ?p ?label WHERE {\n" +
		"  " + sparql.Values("p", predicates) + "\n" +
		"  " + sparql.IRI(subject) + " ?p ?label .\n" +
		"  FILTER(isLiteral(?label))\n" +
		"}"
}

func superClassesQuery(class string) string {
	return "SELECT DISTINCT ?super WHERE {\n" +
		"  " + sparql.IRI(class) + " " + sparql.IRI(rdf.RDFSSubClassOf) + " ?super .\n" +
		"  FILTER(isIRI(?super))\n" +
		"}"
}

func propertyQuery(property string) string {
	p := sparql.IRI(property)
	return "SELECT ?type ?range ?card ?max WHERE {\n" +
		"  { " + p + " " + sparql.IRI(rdf.RDFType) + " ?type }\n" +
		"  UNION { " + p + " " + sparql.IRI(rdf.RDFSRange) + " ?range }\n" +
		"  UNION { " + p + " " + sparql.IRI(rdf.OWLCardinality) + " ?card }\n" +
		"  UNION { " + p + " " + sparql.IRI(rdf.OWLMaxCardinality) + " ?max }\n" +
		"}"
}

func graphsQuery(prefix string) string {
	return "SELECT DISTINCT ?g WHERE {\n" +
		"  GRAPH ?g { ?s ?p ?o }\n" +
		"  FILTER(STRSTARTS(STR(?g), " + sparql.Literal(prefix) + "))\n" +
		"}"
}
