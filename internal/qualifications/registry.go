// Package qualifications holds the read-only reference data mapping task
// types to the team members qualified to do them.
package qualifications

import (
	"slices"
	"sort"
	"sync/atomic"

	"github.com/nick-dorsch/slotplan/pkg/models"
)

// Registry is immutable once built. A zero Registry, or nil, is empty.
type Registry struct {
	qualifications map[string][]string
	members        map[string]models.MemberProfile
	memberOrder    []string
}

// NewRegistry builds a registry from a loaded document. Member lists keep
// their declared order with duplicates removed.
func NewRegistry(doc models.Qualifications) *Registry {
	r := &Registry{
		qualifications: make(map[string][]string, len(doc.Qualifications)),
		members:        make(map[string]models.MemberProfile, len(doc.TeamMembers)),
	}

	for taskType, names := range doc.Qualifications {
		seen := make(map[string]struct{}, len(names))
		ordered := make([]string, 0, len(names))
		for _, n := range names {
			if n == "" {
				continue
			}
			if _, dup := seen[n]; dup {
				continue
			}
			seen[n] = struct{}{}
			ordered = append(ordered, n)
		}
		r.qualifications[taskType] = ordered
	}

	for key, p := range doc.TeamMembers {
		if p.Name == "" {
			p.Name = key
		}
		r.members[key] = p
		r.memberOrder = append(r.memberOrder, key)
	}
	sort.Strings(r.memberOrder)
	return r
}

func Empty() *Registry { return NewRegistry(models.Qualifications{}) }

// TaskTypes returns every known task type, sorted.
func (r *Registry) TaskTypes() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.qualifications))
	for t := range r.qualifications {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// QualifiedMembers returns the members for taskType in declared order, or an
// empty slice when the type is unknown.
func (r *Registry) QualifiedMembers(taskType string) []string {
	if r == nil || taskType == "" {
		return []string{}
	}
	return slices.Clone(r.qualifications[taskType])
}

func (r *Registry) IsQualified(member, taskType string) bool {
	if r == nil {
		return false
	}
	return slices.Contains(r.qualifications[taskType], member)
}

func (r *Registry) MemberProfile(name string) (models.MemberProfile, bool) {
	if r == nil || name == "" {
		return models.MemberProfile{}, false
	}
	p, ok := r.members[name]
	return p, ok
}

// Members returns all team member profiles sorted by key.
func (r *Registry) Members() []models.MemberProfile {
	if r == nil {
		return nil
	}
	out := make([]models.MemberProfile, 0, len(r.memberOrder))
	for _, k := range r.memberOrder {
		out = append(out, r.members[k])
	}
	return out
}

func (r *Registry) IsEmpty() bool {
	return r == nil || (len(r.qualifications) == 0 && len(r.members) == 0)
}

// Provider hands out the current registry and lets a watcher swap in a
// freshly loaded one.
type Provider struct {
	current atomic.Pointer[Registry]
}

func NewProvider(r *Registry) *Provider {
	p := &Provider{}
	p.Set(r)
	return p
}

func (p *Provider) Get() *Registry {
	if r := p.current.Load(); r != nil {
		return r
	}
	return Empty()
}

func (p *Provider) Set(r *Registry) {
	if r == nil {
		r = Empty()
	}
	p.current.Store(r)
}
