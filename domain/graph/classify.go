// Package graph applies resource descriptions to a dataset's live and
// reification graphs and reads records back from them.
package graph

import (
	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/rdf"
)

// Classification splits the subjects of a description. Both lists are in
// lexical order.
type Classification struct {
	// Reifications are subjects typed rdf:Statement.
	Reifications []string
	// Instances are every other subject.
	Instances []string
}

// Classify separates reification statements from instance resources.
func Classify(d rdf.Description) Classification {
	var c Classification
	for _, s := range d.Subjects() {
		if d.HasType(s, rdf.RDFStatement) {
			c.Reifications = append(c.Reifications, s)
		} else {
			c.Instances = append(c.Instances, s)
		}
	}
	return c
}

// Addressable returns the instance subjects that are neither blank nodes
// nor skolemized blank nodes.
func (c Classification) Addressable() []string {
	out := make([]string, 0, len(c.Instances))
	for _, s := range c.Instances {
		if !rdf.IsBlankSubject(s) && !rdf.IsSkolem(s) {
			out = append(out, s)
		}
	}
	return out
}
