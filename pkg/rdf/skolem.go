package rdf

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// GenIDPath is the well-known path under which blank nodes are skolemized.
const GenIDPath = ".well-known/genid/"

// Skolemize returns a copy of d with every blank node replaced by an IRI
// under base. Each IRI hashes the node's label with the addressable subject
// that owns it: applying the same document twice yields the same IRIs, and
// equal labels owned by different records stay apart. The returned map takes
// each blank subject key of d to its IRI.
func Skolemize(base string, d Description) (Description, map[string]string) {
	if base != "" && !strings.HasSuffix(base, "/") && !strings.HasSuffix(base, "#") {
		base += "/"
	}
	sk := &skolemizer{base: base, d: d, iris: map[string]string{}}

	out := make(Description, len(d))
	for s, res := range d {
		ns := s
		if IsBlankSubject(s) {
			ns = sk.iri(s)
		}
		nres := out[ns]
		if nres == nil {
			nres = Resource{}
			out[ns] = nres
		}
		for p, vals := range res {
			for _, v := range vals {
				if v.IsBlank() {
					v = URI(sk.iri(BlankSubject(v.Content)))
				}
				nres[p] = append(nres[p], v)
			}
		}
	}

	mapped := map[string]string{}
	for s := range d {
		if IsBlankSubject(s) {
			mapped[s] = sk.iris[s]
		}
	}
	return out, mapped
}

// IsSkolem reports whether iri was minted by Skolemize.
func IsSkolem(iri string) bool {
	return strings.Contains(iri, "/"+GenIDPath) || strings.Contains(iri, "#"+GenIDPath)
}

type skolemizer struct {
	base string
	d    Description
	iris map[string]string
}

func (k *skolemizer) iri(key string) string {
	if iri, ok := k.iris[key]; ok {
		return iri
	}
	h := sha256.New()
	h.Write([]byte(k.owner(key, map[string]bool{})))
	h.Write([]byte{0})
	h.Write([]byte(strings.TrimPrefix(key, "_:")))
	iri := k.base + GenIDPath + hex.EncodeToString(h.Sum(nil))[:32]
	k.iris[key] = iri
	return iri
}

// owner finds the addressable subject a blank node hangs off: the subject
// of a reification statement, else the first subject referencing it,
// following chains of blank nodes.
func (k *skolemizer) owner(key string, seen map[string]bool) string {
	if seen[key] {
		return ""
	}
	seen[key] = true

	if res, ok := k.d[key]; ok {
		for _, v := range res[RDFSubject] {
			if v.IsURI() {
				return v.Content
			}
		}
	}
	for _, s := range k.d.Subjects() {
		for _, p := range k.d[s].Predicates() {
			for _, v := range k.d[s][p] {
				if !v.IsBlank() || BlankSubject(v.Content) != key {
					continue
				}
				if !IsBlankSubject(s) {
					return s
				}
				if o := k.owner(s, seen); o != "" {
					return o
				}
			}
		}
	}
	return ""
}
