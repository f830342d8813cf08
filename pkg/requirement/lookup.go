package requirement

import (
	"context"
	"slices"
	"sync"

	"github.com/matzehuels/parcyl/pkg/errors"
	"github.com/matzehuels/parcyl/pkg/metadata"
	"github.com/matzehuels/parcyl/pkg/observability"
	"github.com/matzehuels/parcyl/pkg/version"
)

// State is the metadata state of a requirement.
type State int

const (
	// StateUnresolved means no lookup has run yet.
	StateUnresolved State = iota
	// StateResolved means the lookup succeeded.
	StateResolved
	// StateUnknown means the lookup failed, was skipped for a VCS
	// requirement, or no service is bound.
	StateUnknown
)

// lookup is the fetch-once metadata slot shared by a requirement and its
// clones.
type lookup struct {
	svc metadata.Service
	log observability.Logger

	once     sync.Once
	state    State
	info     metadata.Info
	requires []*Requirement
	err      error
}

// Bind attaches a metadata service and logger to reqs. Binding resets any
// cached metadata. A nil logger discards output.
func Bind(svc metadata.Service, log observability.Logger, reqs ...*Requirement) {
	for _, r := range reqs {
		r.meta = &lookup{svc: svc, log: observability.LoggerOr(log)}
	}
}

// Bound reports whether r has a metadata service attached.
func (r *Requirement) Bound() bool { return r.meta != nil && r.meta.svc != nil }

// State reports the metadata state of r. Only meaningful once
// [Requirement.Fetch] has returned.
func (r *Requirement) State() State {
	if r.meta == nil {
		return StateUnresolved
	}
	return r.meta.state
}

func (r *Requirement) logger() observability.Logger {
	if r.meta == nil {
		return observability.NopLogger{}
	}
	return r.meta.log
}

// Fetch resolves installed version, latest version in spec and requires in
// a single lookup. It runs at most once per requirement; later calls return
// the first result. VCS requirements and unbound requirements resolve to
// [StateUnknown] without error.
//
// A failed lookup is logged and returned with [errors.ErrCodeTransitiveFetch]
// ([errors.ErrCodeTimeout] when ctx expired). Version accessors treat it as
// unknown; [Requirement.Requires] reports it.
func (r *Requirement) Fetch(ctx context.Context) error {
	m := r.meta
	if m == nil {
		return nil
	}
	m.once.Do(func() { r.fetch(ctx, m) })
	return m.err
}

func (r *Requirement) fetch(ctx context.Context, m *lookup) {
	if r.SourceLocator != "" || m.svc == nil {
		m.state = StateUnknown
		return
	}

	info, err := m.svc.Lookup(ctx, r.ProjectName, r.declared)
	if err != nil {
		m.state = StateUnknown
		code := errors.ErrCodeTransitiveFetch
		if ctx.Err() != nil {
			code = errors.ErrCodeTimeout
		}
		m.err = errors.Wrap(code, err, "metadata for %s", r.ProjectName)
		m.log.Warnf("%s: unable to resolve %s: %v", errors.ErrCodeUnresolvable, r.ProjectName, err)
		return
	}

	m.info = *info
	m.state = StateResolved
	for _, s := range info.Requires {
		dep, err := Parse(s)
		if err != nil {
			m.log.Warnf("Skipping unparseable requirement of %s: %q", r.ProjectName, s)
			continue
		}
		dep.meta = &lookup{svc: m.svc, log: m.log}
		m.requires = append(m.requires, dep)
	}
}

// VersionInstalled returns the installed version, or "" if unknown.
func (r *Requirement) VersionInstalled(ctx context.Context) string {
	if r.Fetch(ctx) != nil || r.meta == nil {
		return ""
	}
	return r.meta.info.Installed
}

// VersionLatestInSpec returns the newest release satisfying the declared
// specs, or "" if unknown.
func (r *Requirement) VersionLatestInSpec(ctx context.Context) string {
	if r.Fetch(ctx) != nil || r.meta == nil {
		return ""
	}
	return r.meta.info.LatestInSpec
}

// Requires returns the runtime requirements of r as fresh clones, sorted by
// key. Lookup failures are returned so deep expansion can abort.
func (r *Requirement) Requires(ctx context.Context) ([]*Requirement, error) {
	if err := r.Fetch(ctx); err != nil {
		return nil, err
	}
	if r.meta == nil {
		return nil, nil
	}
	out := make([]*Requirement, 0, len(r.meta.requires))
	for _, dep := range r.meta.requires {
		out = append(out, dep.Clone())
	}
	Sort(out)
	return out, nil
}

// Freeze pins r for a frozen manifest. A requirement declared with specs
// gets those specs back, which makes Freeze idempotent. Otherwise it is
// pinned to the installed version, falling back to the latest version in
// spec; when neither is known a warning is logged and Specs is untouched.
func (r *Requirement) Freeze(ctx context.Context) {
	if r.restoreDeclared() {
		return
	}
	v := r.VersionInstalled(ctx)
	if v == "" {
		v = r.VersionLatestInSpec(ctx)
	}
	r.pin("freeze", v)
}

// Upgrade pins r to the latest version in spec, with the same restore and
// warning rules as [Requirement.Freeze].
func (r *Requirement) Upgrade(ctx context.Context) {
	if r.restoreDeclared() {
		return
	}
	r.pin("upgrade", r.VersionLatestInSpec(ctx))
}

func (r *Requirement) restoreDeclared() bool {
	if len(r.declared) == 0 {
		return false
	}
	r.logger().Debugf("Using original spec version %s: %v", r.ProjectName, r.declared)
	r.Specs = slices.Clone(r.declared)
	return true
}

func (r *Requirement) pin(action, v string) {
	if r.SourceLocator != "" {
		return
	}
	if v == "" {
		r.logger().Warnf("Unable to determine %s version for %s", action, r.ProjectName)
		return
	}
	r.logger().Debugf("%s version for %s: %s", action, r.ProjectName, v)
	r.Specs = []version.Spec{{Op: "==", Version: v}}
}
