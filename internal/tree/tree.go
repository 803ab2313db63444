package tree

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/teranos/agent-react-devtools/internal/opstream"
)

// ComponentTree is the canonical store the orchestrator mutates as
// operations batches arrive and reads from to answer get-tree,
// get-component, find, and count requests (§4.3).
type ComponentTree struct {
	nodes map[uint32]*Node
	roots []uint32 // insertion order, oldest first

	// nameIndex maps lower(displayName) to the set of node ids with that
	// name, maintained incrementally as nodes are added and removed.
	nameIndex map[string]map[uint32]struct{}

	// labelMap/idToLabel are rebuilt by the most recent GetTree call and
	// consulted by ResolveID and best-effort Entry labeling elsewhere.
	labelMap  map[string]uint32
	idToLabel map[uint32]string
}

// New returns an empty ComponentTree.
func New() *ComponentTree {
	return &ComponentTree{
		nodes:     make(map[uint32]*Node),
		nameIndex: make(map[string]map[uint32]struct{}),
		labelMap:  make(map[string]uint32),
		idToLabel: make(map[uint32]string),
	}
}

// Apply folds one decoded batch's ops into the tree and returns a summary
// of every node created, for the Wait Registry to re-check
// NamedComponentPresent conditions against (§4.7).
func (t *ComponentTree) Apply(batch *opstream.DecodedBatch) []AddedSummary {
	var added []AddedSummary
	for _, op := range batch.Ops {
		switch v := op.(type) {
		case opstream.AddRoot:
			// §4.2: a Root-shaped ADD produces a node with kind=Other, not
			// kind=Root — KindRoot exists only to detect this wire shape.
			node := &Node{ID: v.ID, DisplayName: "Root", Kind: opstream.KindOther, RendererID: batch.RendererID}
			t.nodes[v.ID] = node
			t.roots = append(t.roots, v.ID)
			t.indexName(node)
			added = append(added, AddedSummary{ID: node.ID, DisplayName: node.DisplayName})

		case opstream.AddNode:
			name := resolveDisplayName(batch.StringTable, v.DisplayNameStrID, v.Kind)
			key := resolveOptionalString(batch.StringTable, v.KeyStrID)
			parentID := v.ParentID
			node := &Node{
				ID:          v.ID,
				DisplayName: name,
				Kind:        v.Kind,
				Key:         key,
				ParentID:    &parentID,
				RendererID:  batch.RendererID,
			}
			t.nodes[v.ID] = node
			t.indexName(node)
			if parent, ok := t.nodes[parentID]; ok {
				parent.ChildIDs = append(parent.ChildIDs, v.ID)
			}
			added = append(added, AddedSummary{ID: node.ID, DisplayName: node.DisplayName})

		case opstream.Remove:
			for _, id := range v.IDs {
				t.removeNode(id)
			}

		case opstream.ReorderChildren:
			if parent, ok := t.nodes[v.ParentID]; ok {
				parent.ChildIDs = append([]uint32(nil), v.ChildIDs...)
			}

		case opstream.RemoveRoot:
			t.RemoveRoot(batch.RootID)

		case opstream.Ignored:
			// no tree-visible effect
		}
	}
	return added
}

// resolveDisplayName implements the ADD name-resolution rule: a zero or
// unresolvable display-name string id falls back to "HostComponent" for
// host elements and "Anonymous" for everything else.
func resolveDisplayName(table []string, strID int64, kind opstream.ElementKind) string {
	if name, ok := opstream.Resolve(table, strID); ok {
		return name
	}
	if kind == opstream.KindHost {
		return "HostComponent"
	}
	return "Anonymous"
}

func resolveOptionalString(table []string, strID int64) *string {
	s, ok := opstream.Resolve(table, strID)
	if !ok {
		return nil
	}
	return &s
}

func (t *ComponentTree) indexName(n *Node) {
	key := strings.ToLower(n.DisplayName)
	set, ok := t.nameIndex[key]
	if !ok {
		set = make(map[uint32]struct{})
		t.nameIndex[key] = set
	}
	set[n.ID] = struct{}{}
}

func (t *ComponentTree) unindexName(n *Node) {
	key := strings.ToLower(n.DisplayName)
	if set, ok := t.nameIndex[key]; ok {
		delete(set, n.ID)
		if len(set) == 0 {
			delete(t.nameIndex, key)
		}
	}
}

// removeNode unlinks id from its parent (or from the root list) and
// cascades deletion through its subtree.
func (t *ComponentTree) removeNode(id uint32) []uint32 {
	node, ok := t.nodes[id]
	if !ok {
		return nil
	}
	if node.ParentID != nil {
		if parent, ok := t.nodes[*node.ParentID]; ok {
			parent.ChildIDs = removeID(parent.ChildIDs, id)
		}
	} else {
		t.roots = removeID(t.roots, id)
	}
	var removed []uint32
	t.cascadeDelete(id, &removed)
	return removed
}

func (t *ComponentTree) cascadeDelete(id uint32, removed *[]uint32) {
	node, ok := t.nodes[id]
	if !ok {
		return
	}
	for _, childID := range node.ChildIDs {
		t.cascadeDelete(childID, removed)
	}
	t.unindexName(node)
	delete(t.nodes, id)
	*removed = append(*removed, id)
}

// RemoveRoot deletes rootID and its whole subtree. Unknown ids are a
// silent no-op (§4.2's RemoveRoot already tolerates a batch whose root
// was removed a different way).
func (t *ComponentTree) RemoveRoot(rootID uint32) []uint32 {
	if _, ok := t.nodes[rootID]; !ok {
		return nil
	}
	var removed []uint32
	t.cascadeDelete(rootID, &removed)
	t.roots = removeID(t.roots, rootID)
	return removed
}

func removeID(ids []uint32, target uint32) []uint32 {
	for i, id := range ids {
		if id == target {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// GetNode returns the node with id, if it exists.
func (t *ComponentTree) GetNode(id uint32) (*Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// AllNodeIDs returns every live node id, sorted ascending for deterministic
// output.
func (t *ComponentTree) AllNodeIDs() []uint32 {
	ids := make([]uint32, 0, len(t.nodes))
	for id := range t.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// GetCountByKind tallies live nodes by ElementKind.
func (t *ComponentTree) GetCountByKind() map[opstream.ElementKind]int {
	counts := make(map[opstream.ElementKind]int)
	for _, n := range t.nodes {
		counts[n.Kind]++
	}
	return counts
}

// GetTree walks every root depth-first, pre-order, assigning a fresh
// @cN label to each emitted entry. When maxDepth is non-nil, nodes deeper
// than it are not emitted, but their ancestors still are. The label map
// this call produces becomes the one ResolveID consults for @cN refs
// until the next GetTree call.
func (t *ComponentTree) GetTree(maxDepth *int) []Entry {
	labelMap := make(map[string]uint32)
	idToLabel := make(map[uint32]string)
	counter := 1
	var entries []Entry

	var walk func(id uint32, depth int)
	walk = func(id uint32, depth int) {
		node, ok := t.nodes[id]
		if !ok {
			return
		}
		if maxDepth != nil && depth > *maxDepth {
			return
		}
		label := fmt.Sprintf("@c%d", counter)
		counter++
		labelMap[label] = id
		idToLabel[id] = label
		entries = append(entries, Entry{
			ID:          id,
			Label:       label,
			DisplayName: node.DisplayName,
			Kind:        node.Kind,
			Key:         node.Key,
			ParentID:    node.ParentID,
			ChildIDs:    append([]uint32(nil), node.ChildIDs...),
			Depth:       depth,
		})
		for _, childID := range node.ChildIDs {
			walk(childID, depth+1)
		}
	}
	for _, rootID := range t.roots {
		walk(rootID, 0)
	}

	t.labelMap = labelMap
	t.idToLabel = idToLabel
	return entries
}

// FindByName searches the name index case-insensitively. exact matches
// the lower-cased name verbatim; otherwise every index key containing
// name as a substring contributes its ids.
func (t *ComponentTree) FindByName(name string, exact bool) []Entry {
	query := strings.ToLower(name)
	var ids []uint32
	if exact {
		for id := range t.nameIndex[query] {
			ids = append(ids, id)
		}
	} else {
		for key, set := range t.nameIndex {
			if !strings.Contains(key, query) {
				continue
			}
			for id := range set {
				ids = append(ids, id)
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	entries := make([]Entry, 0, len(ids))
	for _, id := range ids {
		node := t.nodes[id]
		entries = append(entries, Entry{
			ID:          id,
			Label:       t.idToLabel[id],
			DisplayName: node.DisplayName,
			Kind:        node.Kind,
			Key:         node.Key,
			ParentID:    node.ParentID,
			ChildIDs:    append([]uint32(nil), node.ChildIDs...),
			Depth:       -1,
		})
	}
	return entries
}

// ResolveID accepts either a raw numeric id or an @cN label produced by
// the most recent GetTree call.
func (t *ComponentTree) ResolveID(ref string) (uint32, bool) {
	if strings.HasPrefix(ref, "@c") {
		id, ok := t.labelMap[ref]
		return id, ok
	}
	n, err := strconv.ParseUint(ref, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(n), true
}
