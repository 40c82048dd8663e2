package revisions

import (
	"fmt"
	"strings"

	"github.com/structureddynamics/OSF-Web-Services-sub001/internal/triplestore"
)

// Status is both the lifecycle stage of an incoming update and the status
// recorded on a revision.
type Status string

const (
	Published    Status = triplestore.StatusPublished
	Archive      Status = triplestore.StatusArchive
	Experimental Status = triplestore.StatusExperimental
	PreRelease   Status = triplestore.StatusPreRelease
	Staging      Status = triplestore.StatusStaging
	Harvesting   Status = triplestore.StatusHarvesting
	Unspecified  Status = triplestore.StatusUnspecified
)

var statuses = []Status{Published, Archive, Experimental, PreRelease, Staging, Harvesting, Unspecified}

// ParseStatus accepts the seven lifecycle names, case-insensitively. An
// empty string is Published.
func ParseStatus(s string) (Status, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Published, nil
	}
	for _, st := range statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown lifecycle stage %q", s)
}

// URI is the individual stored as wsf:revisionStatus.
func (s Status) URI() string {
	return triplestore.StatusURI(string(s))
}
