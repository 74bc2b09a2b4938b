// CLAUDE:SUMMARY Annotation record, operation context, color palette, and project membership helpers.
package annotation

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// DefaultProject is the catch-all project every annotation belongs to.
const DefaultProject = "General"

// Annotation is one persisted highlight. Text is the quote as captured and
// never changes; splitting an annotation produces new ids.
type Annotation struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	HTML      string    `json:"html,omitempty"`
	Path      string    `json:"path"`
	Color     string    `json:"color"`
	Note      string    `json:"note"`
	Timestamp time.Time `json:"timestamp"`
	Projects  []string  `json:"projects"`
}

// InProject reports whether a belongs to project. Every annotation belongs
// to DefaultProject.
func (a Annotation) InProject(project string) bool {
	if project == "" || project == DefaultProject {
		return true
	}
	return slices.Contains(a.Projects, project)
}

// SetProject adds or removes project from a's tags, keeping them unique.
func (a *Annotation) SetProject(project string, on bool) {
	i := slices.Index(a.Projects, project)
	switch {
	case on && i < 0:
		a.Projects = append(a.Projects, project)
	case !on && i >= 0:
		a.Projects = slices.Delete(a.Projects, i, i+1)
	}
}

// Context is the page-level information every operation needs. It travels
// with the command instead of living in shared state.
type Context struct {
	URL     string
	Title   string
	Project string
}

// ProjectTags returns the tags a new annotation gets in this context.
func (c Context) ProjectTags() []string {
	if c.Project == "" {
		return []string{DefaultProject}
	}
	return []string{c.Project}
}

// Palette colors.
const (
	Yellow      = "#ffeb3b"
	Blue        = "#81d4fa"
	Green       = "#a5d6a7"
	Pink        = "#f48fb1"
	Transparent = "transparent"
)

var palette = map[string]string{
	"yellow":      Yellow,
	"blue":        Blue,
	"green":       Green,
	"pink":        Pink,
	"transparent": Transparent,
}

// Colors lists the palette names.
func Colors() []string {
	return []string{"yellow", "blue", "transparent", "green", "pink"}
}

// NormalizeColor maps a palette name, palette hex, or the rgb() form of a
// palette color to its canonical value.
func NormalizeColor(c string) (string, error) {
	v := strings.ToLower(strings.TrimSpace(c))
	if hex, ok := palette[v]; ok {
		return hex, nil
	}
	if strings.HasPrefix(v, "rgb(") {
		if hex, ok := rgbToHex(v); ok {
			v = hex
		}
	}
	for _, hex := range palette {
		if v == hex {
			return hex, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidColor, c)
}

// SameColor compares two colors after normalization.
func SameColor(a, b string) bool {
	na, errA := NormalizeColor(a)
	nb, errB := NormalizeColor(b)
	if errA != nil || errB != nil {
		return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
	}
	return na == nb
}

func rgbToHex(v string) (string, bool) {
	inner, ok := strings.CutPrefix(v, "rgb(")
	if !ok {
		return "", false
	}
	inner, ok = strings.CutSuffix(inner, ")")
	if !ok {
		return "", false
	}
	parts := strings.Split(inner, ",")
	if len(parts) != 3 {
		return "", false
	}
	var sb strings.Builder
	sb.WriteByte('#')
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 || n > 255 {
			return "", false
		}
		fmt.Fprintf(&sb, "%02x", n)
	}
	return sb.String(), true
}
