package ontology

import "context"

// Session memoizes lookups for the duration of one update call. It is not
// safe for concurrent use and must not outlive the call.
type Session struct {
	cache   *Cache
	classes map[string][]string
	props   map[string]*PropertyMetadata
}

// RootType is the class every closure contains.
func (s *Session) RootType() string {
	return s.cache.root
}

func (s *Session) SuperClasses(ctx context.Context, class string) ([]string, error) {
	if v, ok := s.classes[class]; ok {
		lookups.WithLabelValues("session", "class").Inc()
		return v, nil
	}
	v, err := s.cache.SuperClasses(ctx, class)
	if err != nil {
		return nil, err
	}
	s.classes[class] = v
	return v, nil
}

// Property returns nil for properties no ontology describes.
func (s *Session) Property(ctx context.Context, property string) (*PropertyMetadata, error) {
	if v, ok := s.props[property]; ok {
		lookups.WithLabelValues("session", "property").Inc()
		return v, nil
	}
	v, err := s.cache.Property(ctx, property)
	if err != nil {
		return nil, err
	}
	s.props[property] = v
	return v, nil
}
