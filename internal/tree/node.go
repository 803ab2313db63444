// Package tree implements the canonical component tree store (§4.3):
// node records, parent/child edges, roots, the case-insensitive name
// index, and the per-getTree label map.
//
// ComponentTree is not safe for concurrent use. Per the daemon's
// single-writer design (§5, §9 "Cooperative scheduling vs threads"), all
// mutation is serialized through the orchestrator's single event loop —
// the same discipline server.QNTXServer.Run() applies to its hub
// goroutine, just without needing an internal mutex because only one
// goroutine ever calls into the tree.
package tree

import "github.com/teranos/agent-react-devtools/internal/opstream"

// Node is one entry in the component tree (§3).
type Node struct {
	ID          uint32
	DisplayName string
	Kind        opstream.ElementKind
	Key         *string
	ParentID    *uint32 // nil iff this node is a root
	ChildIDs    []uint32
	RendererID  uint32
}

// AddedSummary is what applyBatch reports for each newly created node —
// used by the Wait Registry to re-evaluate NamedComponentPresent (§4.7).
type AddedSummary struct {
	ID          uint32
	DisplayName string
}

// Entry is one row of a flattened tree view: getTree's depth-first
// pre-order walk, or a findByName match. Depth is -1 when the entry was
// not produced by a tree walk (find/get-component results don't have a
// meaningful depth).
type Entry struct {
	ID          uint32
	Label       string
	DisplayName string
	Kind        opstream.ElementKind
	Key         *string
	ParentID    *uint32
	ChildIDs    []uint32
	Depth       int
}
