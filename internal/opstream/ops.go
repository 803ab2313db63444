package opstream

// Op is one decoded mutation event from an operations batch. Only a subset
// of opcodes produce tree mutations the Component Tree acts on (§4.3);
// the rest are decoded faithfully (to keep the cursor aligned) and carried
// as inert events.
type Op interface {
	isOp()
}

// AddNode is opcode 1 (ADD) for any non-Root element kind.
type AddNode struct {
	ID                uint32
	Kind              ElementKind
	ParentID          uint32
	OwnerID           uint32
	DisplayNameStrID  int64
	KeyStrID          int64
	NamePropStrID     int64 // -1 when the short (non-extended) shape was used
}

// AddRoot is opcode 1 (ADD) with elementKind == Root: a special payload
// shape carrying four capability flags instead of parent/owner/name/key.
type AddRoot struct {
	ID                    uint32
	StrictModeCompliant   bool
	SupportsProfiling     bool
	SupportsStrictMode    bool
	HasOwnerMetadata      bool
}

// Remove is opcode 2 (REMOVE): each id (and its subtree) is deleted.
type Remove struct {
	IDs []uint32
}

// ReorderChildren is opcode 3: a parent's childIds are replaced verbatim.
type ReorderChildren struct {
	ParentID uint32
	ChildIDs []uint32
}

// RemoveRoot is opcode 6: no payload, removes the batch's declared root.
type RemoveRoot struct{}

// Ignored carries an opcode the Component Tree does not act on: either one
// of the "consumed, ignored" base-duration/errors/subtree-mode opcodes, a
// suspense-boundary opcode (no suspense model exists in the tree store),
// or a genuinely unrecognized opcode advanced by one integer per §4.2's
// forward-compatibility rule.
type Ignored struct {
	Opcode int64
}

func (AddNode) isOp()         {}
func (AddRoot) isOp()         {}
func (Remove) isOp()          {}
func (ReorderChildren) isOp() {}
func (RemoveRoot) isOp()      {}
func (Ignored) isOp()         {}

// DecodedBatch is the parsed result of one operations batch.
type DecodedBatch struct {
	RendererID  uint32
	RootID      uint32
	StringTable []string
	Ops         []Op
}
