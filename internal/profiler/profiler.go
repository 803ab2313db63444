package profiler

import (
	"fmt"
	"sort"

	"github.com/teranos/agent-react-devtools/internal/tree"
	"github.com/teranos/agent-react-devtools/internal/wireerr"
)

func componentPlaceholder(id uint32) string {
	return fmt.Sprintf("Component#%d", id)
}

// Profiler owns at most one active Session (§3 invariant: "At most one
// active ProfilingSession"). Like internal/tree and internal/health, it
// carries no internal locking — the orchestrator serializes every call.
type Profiler struct {
	session *Session
}

// New returns a Profiler with no active session.
func New() *Profiler {
	return &Profiler{}
}

// Start clears any prior session and begins a new one, snapshotting
// every currently-known node's display name so components that later
// unmount mid-session can still be named in reports.
func (p *Profiler) Start(name string, t *tree.ComponentTree, nowMs int64) {
	snapshot := make(map[uint32]string)
	for _, id := range t.AllNodeIDs() {
		if n, ok := t.GetNode(id); ok {
			snapshot[id] = n.DisplayName
		}
	}
	p.session = &Session{
		Name:         name,
		StartedAt:    nowMs,
		DisplayNames: snapshot,
	}
}

// Active reports whether a profiling session is currently running.
func (p *Profiler) Active() bool {
	return p.session != nil && p.session.StoppedAt == nil
}

// Stop finalizes the active session and returns its summary.
func (p *Profiler) Stop(t *tree.ComponentTree, nowMs int64) (*Summary, error) {
	if p.session == nil {
		return nil, wireerr.Wrap(wireerr.ErrNotReady, "profile-stop with no active session")
	}
	p.session.StoppedAt = &nowMs

	counts := make(map[uint32]int)
	for _, c := range p.session.Commits {
		for id := range c.ActualDurations {
			counts[id]++
		}
	}
	rows := make([]ComponentCount, 0, len(counts))
	for id, n := range counts {
		rows = append(rows, ComponentCount{ID: id, DisplayName: resolveName(id, p.session.DisplayNames, t), RenderCount: n})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].RenderCount > rows[j].RenderCount })

	return &Summary{
		Name:                     p.session.Name,
		DurationMs:               nowMs - p.session.StartedAt,
		CommitCount:              len(p.session.Commits),
		PerComponentRenderCounts: rows,
	}, nil
}

// deriveCauses implements §4.5's cause-derivation rules.
func deriveCauses(cd ChangeDescription) []Cause {
	if cd.IsFirstMount {
		return []Cause{FirstMount}
	}
	var causes []Cause
	if len(cd.Props) > 0 {
		causes = append(causes, PropsChanged)
	}
	if len(cd.State) > 0 {
		causes = append(causes, StateChanged)
	}
	if cd.DidHooksChange {
		causes = append(causes, HooksChanged)
	}
	if len(causes) == 0 {
		causes = append(causes, ParentRendered)
	}
	return causes
}

func changedKeysOf(cd ChangeDescription) []string {
	keys := make([]string, 0, len(cd.Props)+len(cd.State)+len(cd.Hooks))
	keys = append(keys, cd.Props...)
	keys = append(keys, cd.State...)
	for _, h := range cd.Hooks {
		keys = append(keys, fmt.Sprintf("%d", h))
	}
	return keys
}

// GetReport aggregates every commit that touched id into a single Report.
// The session may be active or already stopped. Returns ErrNotReady if
// no session was ever started or the component never rendered in it.
func (p *Profiler) GetReport(id uint32, t *tree.ComponentTree) (*Report, error) {
	if p.session == nil {
		return nil, wireerr.Wrap(wireerr.ErrNotReady, "no active or completed profiling session")
	}
	report, ok := p.buildReport(id, t)
	if !ok {
		return nil, wireerr.Wrap(wireerr.ErrNotReady, "component never rendered in this session")
	}
	return report, nil
}

func (p *Profiler) buildReport(id uint32, t *tree.ComponentTree) (*Report, bool) {
	var total, max float64
	count := 0
	causesSeen := make(map[Cause]bool)
	var causes []Cause
	keysSeen := make(map[string]bool)
	var keys []string

	for _, c := range p.session.Commits {
		dur, ok := c.ActualDurations[id]
		if !ok {
			continue
		}
		count++
		total += dur
		if dur > max {
			max = dur
		}
		if cd, ok := c.Changes[id]; ok {
			for _, cause := range deriveCauses(cd) {
				if !causesSeen[cause] {
					causesSeen[cause] = true
					causes = append(causes, cause)
				}
			}
			for _, k := range changedKeysOf(cd) {
				if !keysSeen[k] {
					keysSeen[k] = true
					keys = append(keys, k)
				}
			}
		}
	}
	if count == 0 {
		return nil, false
	}
	return &Report{
		ID:            id,
		DisplayName:   resolveName(id, p.session.DisplayNames, t),
		RenderCount:   count,
		TotalDuration: total,
		AvgDuration:   total / float64(count),
		MaxDuration:   max,
		Causes:        causes,
		ChangedKeys:   keys,
	}, true
}

func (p *Profiler) allRenderedIDs() []uint32 {
	seen := make(map[uint32]bool)
	var ids []uint32
	for _, c := range p.session.Commits {
		for id := range c.ActualDurations {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// GetSlowest returns the top `limit` components by average duration.
func (p *Profiler) GetSlowest(t *tree.ComponentTree, limit int) ([]Report, error) {
	if p.session == nil {
		return nil, wireerr.Wrap(wireerr.ErrNotReady, "no active or completed profiling session")
	}
	reports := p.allReports(t)
	sort.Slice(reports, func(i, j int) bool { return reports[i].AvgDuration > reports[j].AvgDuration })
	return truncate(reports, limit), nil
}

// GetMostRerenders returns the top `limit` components by render count.
func (p *Profiler) GetMostRerenders(t *tree.ComponentTree, limit int) ([]Report, error) {
	if p.session == nil {
		return nil, wireerr.Wrap(wireerr.ErrNotReady, "no active or completed profiling session")
	}
	reports := p.allReports(t)
	sort.Slice(reports, func(i, j int) bool { return reports[i].RenderCount > reports[j].RenderCount })
	return truncate(reports, limit), nil
}

func (p *Profiler) allReports(t *tree.ComponentTree) []Report {
	var reports []Report
	for _, id := range p.allRenderedIDs() {
		if r, ok := p.buildReport(id, t); ok {
			reports = append(reports, *r)
		}
	}
	return reports
}

func truncate(reports []Report, limit int) []Report {
	if limit <= 0 || limit >= len(reports) {
		return reports
	}
	return reports[:limit]
}

// GetTimeline returns every commit's summary in commit order, optionally
// truncated to the first `limit` entries (limit == nil means unlimited).
func (p *Profiler) GetTimeline(limit *int) ([]TimelineEntry, error) {
	if p.session == nil {
		return nil, wireerr.Wrap(wireerr.ErrNotReady, "no active or completed profiling session")
	}
	entries := make([]TimelineEntry, len(p.session.Commits))
	for i, c := range p.session.Commits {
		entries[i] = TimelineEntry{
			Index:          i,
			Timestamp:      c.Timestamp,
			Duration:       c.Duration,
			ComponentCount: len(c.ActualDurations),
		}
	}
	if limit != nil && *limit >= 0 && *limit < len(entries) {
		entries = entries[:*limit]
	}
	return entries, nil
}

// GetCommitDetails returns the per-component breakdown of commit index,
// sorted by self duration descending. TotalComponents always reports the
// untruncated count even when limit truncates Components.
func (p *Profiler) GetCommitDetails(index int, t *tree.ComponentTree, limit int) (*CommitDetails, error) {
	if p.session == nil {
		return nil, wireerr.Wrap(wireerr.ErrNotReady, "no active or completed profiling session")
	}
	if index < 0 || index >= len(p.session.Commits) {
		return nil, wireerr.Wrap(wireerr.ErrNotFound, "commit index out of range")
	}
	c := p.session.Commits[index]

	components := make([]CommitComponent, 0, len(c.ActualDurations))
	for id, actual := range c.ActualDurations {
		var causes []Cause
		if cd, ok := c.Changes[id]; ok {
			causes = deriveCauses(cd)
		}
		components = append(components, CommitComponent{
			ID:             id,
			DisplayName:    resolveName(id, p.session.DisplayNames, t),
			ActualDuration: actual,
			SelfDuration:   c.SelfDurations[id],
			Causes:         causes,
		})
	}
	sort.Slice(components, func(i, j int) bool { return components[i].SelfDuration > components[j].SelfDuration })

	total := len(components)
	if limit > 0 && limit < len(components) {
		components = components[:limit]
	}

	return &CommitDetails{
		Index:           index,
		Timestamp:       c.Timestamp,
		Duration:        c.Duration,
		Components:      components,
		TotalComponents: total,
	}, nil
}

// AppendCommit is used by ProcessPayload (and directly by tests) to add
// one parsed commit to the active session. With no active session (none
// started, or already stopped) the commit is silently dropped —
// profilingData can race a stop.
func (p *Profiler) AppendCommit(c Commit) {
	if !p.Active() {
		return
	}
	p.session.Commits = append(p.session.Commits, c)
}
