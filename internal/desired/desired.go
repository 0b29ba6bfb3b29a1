// Package desired defines the domain model for the desired state: named
// services paired with semantic version requirement constraints.
package desired

import (
	"sort"

	"github.com/Masterminds/semver/v3"

	ferrors "git.home.luguber.info/inful/statekeeper/internal/foundation/errors"
)

// Service pairs a unique name with a version requirement constraint.
// Identity is by Name alone; the requirement is the mutable part.
type Service struct {
	Name        string
	Requirement *semver.Constraints
}

// RequirementString returns the canonical string form of the requirement.
func (s Service) RequirementString() string {
	if s.Requirement == nil {
		return ""
	}
	return s.Requirement.String()
}

// ParseRequirement parses a version requirement expression such as "^1.2.3"
// or ">2.0.0". A malformed expression yields a validation error.
func ParseRequirement(expr string) (*semver.Constraints, error) {
	c, err := semver.NewConstraint(expr)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryValidation, "invalid version requirement").
			WithContext("expression", expr).
			Build()
	}
	return c, nil
}

// Sorted returns the services of the mapping as a slice sorted by name.
func Sorted(services map[string]Service) []Service {
	out := make([]Service, 0, len(services))
	for _, svc := range services {
		out = append(out, svc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Equal reports whether two mappings contain the same (name, requirement)
// pairs, comparing requirements by their canonical string form.
func Equal(a, b map[string]Service) bool {
	if len(a) != len(b) {
		return false
	}
	for name, svc := range a {
		other, ok := b[name]
		if !ok || svc.RequirementString() != other.RequirementString() {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the mapping. Constraint values are
// shared; they are never mutated after parse.
func Clone(services map[string]Service) map[string]Service {
	out := make(map[string]Service, len(services))
	for name, svc := range services {
		out[name] = svc
	}
	return out
}
