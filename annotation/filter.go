package annotation

import (
	"fmt"

	"github.com/gobwas/glob"
)

// Query selects annotations. Zero fields match everything.
type Query struct {
	Project string
	URLGlob string
}

// Filter returns the annotations of list matching q, deduplicated by id in
// first-seen order.
func Filter(list []Annotation, q Query) ([]Annotation, error) {
	var g glob.Glob
	if q.URLGlob != "" {
		var err error
		if g, err = glob.Compile(q.URLGlob); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadGlob, err)
		}
	}
	seen := make(map[string]bool, len(list))
	var out []Annotation
	for _, a := range list {
		if seen[a.ID] {
			continue
		}
		seen[a.ID] = true
		if !a.InProject(q.Project) {
			continue
		}
		if g != nil && !g.Match(a.URL) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}
