// Package profiler implements the Profiler component (§4.5): a single
// active ProfilingSession that accumulates Commits reported by the
// runtime and answers render-count/duration/cause queries over them.
package profiler

import "github.com/teranos/agent-react-devtools/internal/tree"

// Cause is one entry in a commit's derived cause set (§4.5 "Cause
// derivation").
type Cause int

const (
	FirstMount Cause = iota
	PropsChanged
	StateChanged
	HooksChanged
	ParentRendered
	// ForceUpdate is part of the taxonomy but the wire format never
	// reports it distinctly — reserved, never produced by deriveCauses.
	ForceUpdate
)

func (c Cause) String() string {
	switch c {
	case FirstMount:
		return "FirstMount"
	case PropsChanged:
		return "PropsChanged"
	case StateChanged:
		return "StateChanged"
	case HooksChanged:
		return "HooksChanged"
	case ParentRendered:
		return "ParentRendered"
	case ForceUpdate:
		return "ForceUpdate"
	default:
		return "Unknown"
	}
}

// ChangeDescription is one component's reported change within a commit.
type ChangeDescription struct {
	IsFirstMount   bool
	DidHooksChange bool
	Props          []string
	State          []string
	Hooks          []int
}

// Commit is one atomic render batch reported by the runtime.
type Commit struct {
	Timestamp       int64
	Duration        float64
	ActualDurations map[uint32]float64
	SelfDurations   map[uint32]float64
	Changes         map[uint32]ChangeDescription
}

// Session is one profiling run: started by Start, appended to by
// ProcessPayload, finalized by Stop.
type Session struct {
	Name         string
	StartedAt    int64
	StoppedAt    *int64
	Commits      []Commit
	DisplayNames map[uint32]string // snapshot at Start; survives unmounts
}

// ComponentCount is one row of a ProfileSummary's per-component tally.
type ComponentCount struct {
	ID          uint32
	DisplayName string
	RenderCount int
}

// Summary is what Stop returns.
type Summary struct {
	Name                     string
	DurationMs               int64
	CommitCount              int
	PerComponentRenderCounts []ComponentCount
}

// Report is what getReport/getSlowest/getMostRerenders return per
// component.
type Report struct {
	ID            uint32
	DisplayName   string
	RenderCount   int
	TotalDuration float64
	AvgDuration   float64
	MaxDuration   float64
	Causes        []Cause
	ChangedKeys   []string
}

// TimelineEntry is one row of getTimeline.
type TimelineEntry struct {
	Index           int
	Timestamp       int64
	Duration        float64
	ComponentCount  int
}

// CommitComponent is one component's row in getCommitDetails.
type CommitComponent struct {
	ID             uint32
	DisplayName    string
	ActualDuration float64
	SelfDuration   float64
	Causes         []Cause
}

// CommitDetails is the full breakdown of one commit.
type CommitDetails struct {
	Index           int
	Timestamp       int64
	Duration        float64
	Components      []CommitComponent
	TotalComponents int
}

// resolveName follows §4.5's fallback chain: live tree, then the
// session's startup snapshot, then a synthetic placeholder.
func resolveName(id uint32, snapshot map[uint32]string, t *tree.ComponentTree) string {
	if t != nil {
		if n, ok := t.GetNode(id); ok {
			return n.DisplayName
		}
	}
	if name, ok := snapshot[id]; ok {
		return name
	}
	return componentPlaceholder(id)
}
