package conversion

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// DefaultTimeout bounds every external converter run.
const DefaultTimeout = 60 * time.Second

// Invoker produces artifacts for a job. Implementations write only inside
// job.WorkDir and never modify job.InputPath.
type Invoker interface {
	Invoke(ctx context.Context, job *Job) (*Result, error)
	// Program names the external binary, or "" for in-process converters.
	Program() string
}

// Spec declares one conversion kind. Specs are built once at startup and
// shared read-only between requests.
type Spec struct {
	Kind        Kind
	Title       string
	Description string
	// Accept lists allowed input extensions, lower case, without the dot.
	Accept []string
	// OutputExt is the extension of a single artifact, without the dot.
	OutputExt string
	// OutputSuffix is appended to the base name of a single artifact.
	OutputSuffix string
	Timeout      time.Duration
	Invoker      Invoker
}

// Accepts reports whether ext (any case, no dot) is allowed.
func (s *Spec) Accepts(ext string) bool {
	ext = strings.ToLower(ext)
	for _, a := range s.Accept {
		if a == ext {
			return true
		}
	}
	return false
}

// AcceptList renders the allowed extensions for messages:
// ".pdf", ".doc or .docx", ".jpg, .jpeg, or .png".
func (s *Spec) AcceptList() string {
	dotted := make([]string, len(s.Accept))
	for i, a := range s.Accept {
		dotted[i] = "." + a
	}
	switch len(dotted) {
	case 0:
		return ""
	case 1:
		return dotted[0]
	case 2:
		return dotted[0] + " or " + dotted[1]
	default:
		return strings.Join(dotted[:len(dotted)-1], ", ") + ", or " + dotted[len(dotted)-1]
	}
}

// Registry is the table of conversion kinds.
type Registry struct {
	specs map[Kind]*Spec
}

// NewRegistry indexes specs by kind. Duplicate or incomplete specs are rejected.
func NewRegistry(specs ...*Spec) (*Registry, error) {
	r := &Registry{specs: make(map[Kind]*Spec, len(specs))}
	for _, s := range specs {
		if s.Kind == "" || s.Invoker == nil || len(s.Accept) == 0 || s.OutputExt == "" {
			return nil, fmt.Errorf("incomplete converter spec %q", s.Kind)
		}
		if _, dup := r.specs[s.Kind]; dup {
			return nil, fmt.Errorf("duplicate converter spec %q", s.Kind)
		}
		if s.Timeout <= 0 {
			s.Timeout = DefaultTimeout
		}
		r.specs[s.Kind] = s
	}
	return r, nil
}

// Lookup returns the spec for kind.
func (r *Registry) Lookup(kind Kind) (*Spec, bool) {
	s, ok := r.specs[kind]
	return s, ok
}

// All returns every spec sorted by kind.
func (r *Registry) All() []*Spec {
	out := make([]*Spec, 0, len(r.specs))
	for _, s := range r.specs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}

// Programs returns the distinct external binaries the table depends on.
func (r *Registry) Programs() []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range r.All() {
		p := s.Invoker.Program()
		if p != "" && !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}
