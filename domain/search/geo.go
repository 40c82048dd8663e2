package search

import (
	"strconv"
	"strings"

	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/rdf"
	"github.com/structureddynamics/OSF-Web-Services-sub001/pkg/solr"
)

var coordinateFields = []struct{ predicate, field string }{
	{rdf.SCOPolygonCoordinates, FieldPolygon},
	{rdf.SCOPolylineCoordinates, FieldPolyline},
}

type point struct {
	lat, long float64
}

func (p point) geohash() string {
	return formatCoord(p.lat) + "," + formatCoord(p.long)
}

func formatCoord(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// parsePoint reads "lat,long" or "lat long".
func parsePoint(s string) (point, bool) {
	s = strings.TrimSpace(s)
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	if len(parts) != 2 {
		return point{}, false
	}
	lat, err1 := strconv.ParseFloat(parts[0], 64)
	long, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil {
		return point{}, false
	}
	return point{lat: lat, long: long}, true
}

// parseCoordinates reads a whitespace separated list of "lat,long" points.
func parseCoordinates(s string) []point {
	var out []point
	for _, f := range strings.Fields(s) {
		if p, ok := parsePoint(f); ok {
			out = append(out, p)
		}
	}
	return out
}

func addPoint(doc solr.Document, p point) {
	doc.Add(FieldLat, p.lat)
	doc.Add(FieldLong, p.long)
	doc.Add(FieldGeohash, p.geohash())
}

// geoFields consumes the geo predicates. Values that do not parse are left
// to the generic attribute handling.
func (b *builder) geoFields(doc solr.Document, res rdf.Resource, consumed map[string]bool) {
	lats, longs := floats(res[rdf.GeoLat]), floats(res[rdf.GeoLong])
	if len(lats) > 0 && len(lats) == len(longs) {
		consumed[rdf.GeoLat], consumed[rdf.GeoLong] = true, true
		for i := range lats {
			addPoint(doc, point{lat: lats[i], long: longs[i]})
		}
	}
	if alts := floats(res[rdf.GeoAlt]); len(alts) > 0 && len(alts) == len(res[rdf.GeoAlt]) {
		consumed[rdf.GeoAlt] = true
		for _, a := range alts {
			doc.Add(FieldAlt, a)
		}
	}

	var latLong []point
	for _, v := range res[rdf.GeoLatLong] {
		if p, ok := parsePoint(v.Content); ok {
			latLong = append(latLong, p)
		}
	}
	if len(latLong) > 0 && len(latLong) == len(res[rdf.GeoLatLong]) {
		consumed[rdf.GeoLatLong] = true
		for _, p := range latLong {
			addPoint(doc, p)
		}
	}

	for _, c := range coordinateFields {
		for _, v := range res[c.predicate] {
			consumed[c.predicate] = true
			doc.Add(c.field, v.Content)
			for _, p := range parseCoordinates(v.Content) {
				addPoint(doc, p)
			}
		}
	}

	for _, v := range res[rdf.SCOLocatedIn] {
		consumed[rdf.SCOLocatedIn] = true
		doc.Add(FieldLocatedIn, v.Content)
	}
}

func floats(vals []rdf.Value) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		f, err := strconv.ParseFloat(strings.TrimSpace(v.Content), 64)
		if err != nil {
			return nil
		}
		out = append(out, f)
	}
	return out
}
