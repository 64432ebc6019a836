package rules

import (
	"errors"
	"sort"
	"strings"

	"github.com/jwalitptl/medhist-api/internal/model"
)

// DiseaseSet is the versioned set of one-time diseases, keyed by
// model.DiagnosisKey.
type DiseaseSet struct {
	version string
	names   map[string]struct{}
}

func NewDiseaseSet(version string, names []string) (*DiseaseSet, error) {
	if len(names) == 0 {
		return nil, errors.New("one-time disease set must not be empty")
	}

	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			return nil, errors.New("one-time disease names must not be blank")
		}
		set[model.DiagnosisKey(name)] = struct{}{}
	}

	return &DiseaseSet{version: version, names: set}, nil
}

func (s *DiseaseSet) Contains(name string) bool {
	_, ok := s.names[model.DiagnosisKey(name)]
	return ok
}

func (s *DiseaseSet) Version() string {
	return s.version
}

// Names returns the member keys in sorted order
func (s *DiseaseSet) Names() []string {
	out := make([]string, 0, len(s.names))
	for name := range s.names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
