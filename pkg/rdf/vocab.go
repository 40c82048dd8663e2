package rdf

const (
	NSRDF     = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	NSRDFS    = "http://www.w3.org/2000/01/rdf-schema#"
	NSOWL     = "http://www.w3.org/2002/07/owl#"
	NSXSD     = "http://www.w3.org/2001/XMLSchema#"
	NSSKOS    = "http://www.w3.org/2004/02/skos/core#"
	NSFOAF    = "http://xmlns.com/foaf/0.1/"
	NSDCTerms = "http://purl.org/dc/terms/"
	NSDC      = "http://purl.org/dc/elements/1.1/"
	NSGeo     = "http://www.w3.org/2003/01/geo/wgs84_pos#"
	NSUMBEL   = "http://umbel.org/umbel#"
	NSIRON    = "http://purl.org/ontology/iron#"
	NSSCO     = "http://purl.org/ontology/sco#"
	NSWSF     = "http://purl.org/ontology/wsf#"
)

const (
	RDFType      = NSRDF + "type"
	RDFStatement = NSRDF + "Statement"
	RDFSubject   = NSRDF + "subject"
	RDFPredicate = NSRDF + "predicate"
	RDFObject    = NSRDF + "object"

	RDFSLabel      = NSRDFS + "label"
	RDFSComment    = NSRDFS + "comment"
	RDFSSubClassOf = NSRDFS + "subClassOf"
	RDFSRange      = NSRDFS + "range"
	RDFSLiteral    = NSRDFS + "Literal"

	OWLThing          = NSOWL + "Thing"
	OWLCardinality    = NSOWL + "cardinality"
	OWLMaxCardinality = NSOWL + "maxCardinality"
	OWLObjectProperty = NSOWL + "ObjectProperty"
	OWLDatatypeProp   = NSOWL + "DatatypeProperty"

	XSDString   = NSXSD + "string"
	XSDInteger  = NSXSD + "integer"
	XSDInt      = NSXSD + "int"
	XSDLong     = NSXSD + "long"
	XSDShort    = NSXSD + "short"
	XSDByte     = NSXSD + "byte"
	XSDNonNeg   = NSXSD + "nonNegativeInteger"
	XSDPosInt   = NSXSD + "positiveInteger"
	XSDUnsigned = NSXSD + "unsignedInt"
	XSDFloat    = NSXSD + "float"
	XSDDouble   = NSXSD + "double"
	XSDDecimal  = NSXSD + "decimal"
	XSDDate     = NSXSD + "date"
	XSDDateTime = NSXSD + "dateTime"
	XSDTime     = NSXSD + "time"
	XSDBoolean  = NSXSD + "boolean"

	SKOSPrefLabel   = NSSKOS + "prefLabel"
	SKOSAltLabel    = NSSKOS + "altLabel"
	SKOSDefinition  = NSSKOS + "definition"
	FOAFName        = NSFOAF + "name"
	DCTermsTitle    = NSDCTerms + "title"
	DCTermsDesc     = NSDCTerms + "description"
	DCTitle         = NSDC + "title"
	DCDescription   = NSDC + "description"
	UMBELPrefLabel  = NSUMBEL + "prefLabel"
	IRONPrefLabel   = NSIRON + "prefLabel"
	IRONAltLabel    = NSIRON + "altLabel"
	IRONDescription = NSIRON + "description"

	GeoLat     = NSGeo + "lat"
	GeoLong    = NSGeo + "long"
	GeoAlt     = NSGeo + "alt"
	GeoLatLong = NSGeo + "lat_long"

	SCOPolygonCoordinates  = NSSCO + "polygonCoordinates"
	SCOPolylineCoordinates = NSSCO + "polylineCoordinates"
	SCOLocatedIn           = NSSCO + "locatedIn"
)

// Revision vocabulary.
const (
	WSFRevision       = NSWSF + "Revision"
	WSFRevisionUri    = NSWSF + "revisionUri"
	WSFFromDataset    = NSWSF + "fromDataset"
	WSFRevisionTime   = NSWSF + "revisionTime"
	WSFPerformer      = NSWSF + "performer"
	WSFRevisionStatus = NSWSF + "revisionStatus"
)
