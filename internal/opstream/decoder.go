// Package opstream decodes the React DevTools "Wall" protocol's binary
// operations stream: a per-batch interned string table followed by a
// sequence of variable-length opcodes describing component tree mutations.
package opstream

import "github.com/teranos/agent-react-devtools/internal/wireerr"

const (
	opAdd                         = 1
	opRemove                      = 2
	opReorderChildren             = 3
	opUpdateTreeBaseDuration      = 4
	opUpdateErrorsOrWarnings      = 5
	opRemoveRoot                  = 6
	opSetSubtreeMode              = 7
	opSuspenseAdd                 = 8
	opSuspenseRemove              = 9
	opSuspenseReorderChildren     = 10
	opSuspenseResize              = 11
	opSuspenseSuspenders          = 12
	opAppliedActivitySliceChange  = 13
)

// firstSuspenseOpcode..lastSuspenseOpcode bounds the range whose first
// appearance latches extended-ADD detection (§4.2, §9 design notes).
const (
	firstSuspenseOpcode = opSuspenseAdd
	lastSuspenseOpcode  = opAppliedActivitySliceChange
)

// Decoder parses successive operations batches from one WebSocket
// connection. Its extended-ADD latch is connection-scoped: once any
// opcode in 8..13 is observed, every later ADD (in this batch or any
// subsequent one from this connection) is parsed with the extended wire
// shape, even if that misparses an extended-format ADD that happened to
// precede the first suspense opcode. This mirrors the reference decoder's
// behavior exactly; see §9 "Ambiguity in extended-ADD detection".
type Decoder struct {
	extendedAdd bool
}

// NewDecoder returns a Decoder with fresh (unlatched) state, one per
// connection.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode parses one batch: [rendererId, rootId, stringTableSize,
// ...stringTable, ...ops]. On a string-table overrun it returns
// wireerr.ErrMalformedBatch; the caller is expected to drop just this
// batch and keep the connection open (§7).
func (d *Decoder) Decode(batch []int64) (*DecodedBatch, error) {
	if len(batch) < 3 {
		return nil, wireerr.Wrap(wireerr.ErrMalformedBatch, "batch shorter than header")
	}

	rendererID := uint32(batch[0])
	rootID := uint32(batch[1])
	tableSize := batch[2]

	pos := int64(3)
	if tableSize < 0 || tableSize > int64(len(batch))-pos {
		return nil, wireerr.Wrap(wireerr.ErrMalformedBatch, "string table size overruns batch")
	}

	table, err := DecodeStringTable(batch[pos:pos+tableSize], tableSize)
	if err != nil {
		return nil, err
	}
	pos += tableSize

	var ops []Op
	for pos < int64(len(batch)) {
		opcode := batch[pos]
		pos++

		if opcode >= firstSuspenseOpcode && opcode <= lastSuspenseOpcode {
			d.extendedAdd = true
		}

		switch opcode {
		case opAdd:
			op, newPos, err := d.decodeAdd(batch, pos)
			if err != nil {
				return nil, err
			}
			pos = newPos
			ops = append(ops, op)

		case opRemove:
			ids, newPos, err := decodeIDList(batch, pos)
			if err != nil {
				return nil, err
			}
			pos = newPos
			ops = append(ops, Remove{IDs: ids})

		case opReorderChildren:
			if pos >= int64(len(batch)) {
				return nil, wireerr.Wrap(wireerr.ErrMalformedBatch, "truncated REORDER_CHILDREN")
			}
			parentID := uint32(batch[pos])
			pos++
			children, newPos, err := decodeIDList(batch, pos)
			if err != nil {
				return nil, err
			}
			pos = newPos
			ops = append(ops, ReorderChildren{ParentID: parentID, ChildIDs: children})

		case opUpdateTreeBaseDuration:
			pos, err = skip(batch, pos, 2)
			if err != nil {
				return nil, err
			}
			ops = append(ops, Ignored{Opcode: opcode})

		case opUpdateErrorsOrWarnings:
			pos, err = skip(batch, pos, 3)
			if err != nil {
				return nil, err
			}
			ops = append(ops, Ignored{Opcode: opcode})

		case opRemoveRoot:
			ops = append(ops, RemoveRoot{})

		case opSetSubtreeMode:
			pos, err = skip(batch, pos, 2)
			if err != nil {
				return nil, err
			}
			ops = append(ops, Ignored{Opcode: opcode})

		case opSuspenseAdd:
			pos, err = skip(batch, pos, 4)
			if err != nil {
				return nil, err
			}
			pos, err = skipRects(batch, pos)
			if err != nil {
				return nil, err
			}
			ops = append(ops, Ignored{Opcode: opcode})

		case opSuspenseRemove:
			_, newPos, err := decodeIDList(batch, pos)
			if err != nil {
				return nil, err
			}
			pos = newPos
			ops = append(ops, Ignored{Opcode: opcode})

		case opSuspenseReorderChildren:
			pos, err = skip(batch, pos, 1) // parentId
			if err != nil {
				return nil, err
			}
			_, newPos, err := decodeIDList(batch, pos)
			if err != nil {
				return nil, err
			}
			pos = newPos
			ops = append(ops, Ignored{Opcode: opcode})

		case opSuspenseResize:
			pos, err = skip(batch, pos, 1) // fiberId
			if err != nil {
				return nil, err
			}
			pos, err = skipRects(batch, pos)
			if err != nil {
				return nil, err
			}
			ops = append(ops, Ignored{Opcode: opcode})

		case opSuspenseSuspenders:
			if pos >= int64(len(batch)) {
				return nil, wireerr.Wrap(wireerr.ErrMalformedBatch, "truncated SUSPENSE_SUSPENDERS")
			}
			numChanges := batch[pos]
			pos++
			pos, err = skip(batch, pos, numChanges*4)
			if err != nil {
				return nil, err
			}
			ops = append(ops, Ignored{Opcode: opcode})

		case opAppliedActivitySliceChange:
			pos, err = skip(batch, pos, 1)
			if err != nil {
				return nil, err
			}
			ops = append(ops, Ignored{Opcode: opcode})

		default:
			// Forward compatibility: unknown opcode advances by one
			// integer (the opcode itself was already consumed above) and
			// parsing continues — not an error.
			ops = append(ops, Ignored{Opcode: opcode})
		}
	}

	return &DecodedBatch{
		RendererID:  rendererID,
		RootID:      rootID,
		StringTable: table,
		Ops:         ops,
	}, nil
}

func (d *Decoder) decodeAdd(batch []int64, pos int64) (Op, int64, error) {
	if pos+1 >= int64(len(batch)) {
		return nil, 0, wireerr.Wrap(wireerr.ErrMalformedBatch, "truncated ADD")
	}
	id := uint32(batch[pos])
	kind := wireKind(batch[pos+1])
	pos += 2

	if kind == KindRoot {
		if pos+3 >= int64(len(batch)) {
			return nil, 0, wireerr.Wrap(wireerr.ErrMalformedBatch, "truncated ADD(Root)")
		}
		root := AddRoot{
			ID:                  id,
			StrictModeCompliant: batch[pos] != 0,
			SupportsProfiling:   batch[pos+1] != 0,
			SupportsStrictMode:  batch[pos+2] != 0,
			HasOwnerMetadata:    batch[pos+3] != 0,
		}
		return root, pos + 4, nil
	}

	if pos+3 >= int64(len(batch)) {
		return nil, 0, wireerr.Wrap(wireerr.ErrMalformedBatch, "truncated ADD")
	}
	node := AddNode{
		ID:               id,
		Kind:             kind,
		ParentID:         uint32(batch[pos]),
		OwnerID:          uint32(batch[pos+1]),
		DisplayNameStrID: batch[pos+2],
		KeyStrID:         batch[pos+3],
		NamePropStrID:    -1,
	}
	pos += 4

	if d.extendedAdd {
		if pos >= int64(len(batch)) {
			return nil, 0, wireerr.Wrap(wireerr.ErrMalformedBatch, "truncated extended ADD")
		}
		node.NamePropStrID = batch[pos]
		pos++
	}

	return node, pos, nil
}

// decodeIDList reads a `count, id1, ..., idCount` payload shared by REMOVE
// and the REORDER_CHILDREN/SUSPENSE_* child-list shapes.
func decodeIDList(batch []int64, pos int64) ([]uint32, int64, error) {
	if pos >= int64(len(batch)) {
		return nil, 0, wireerr.Wrap(wireerr.ErrMalformedBatch, "truncated id list count")
	}
	count := batch[pos]
	pos++
	if count < 0 || count > int64(len(batch))-pos {
		return nil, 0, wireerr.Wrap(wireerr.ErrMalformedBatch, "truncated id list")
	}
	ids := make([]uint32, count)
	for i := int64(0); i < count; i++ {
		ids[i] = uint32(batch[pos+i])
	}
	return ids, pos + count, nil
}

// skipRects consumes the rects encoding: a leading count C; -1 means no
// rects, otherwise 4*C further values follow.
func skipRects(batch []int64, pos int64) (int64, error) {
	if pos >= int64(len(batch)) {
		return 0, wireerr.Wrap(wireerr.ErrMalformedBatch, "truncated rects count")
	}
	count := batch[pos]
	pos++
	if count == -1 {
		return pos, nil
	}
	// Reject before multiplying: any valid rects count can consume at
	// most len(batch) further int64s, so this also rules out count*4
	// overflowing before skip ever sees it.
	if count < 0 || count > int64(len(batch))-pos {
		return 0, wireerr.Wrap(wireerr.ErrMalformedBatch, "negative rects count")
	}
	return skip(batch, pos, count*4)
}

func skip(batch []int64, pos int64, n int64) (int64, error) {
	if n < 0 || n > int64(len(batch))-pos {
		return 0, wireerr.Wrap(wireerr.ErrMalformedBatch, "truncated payload")
	}
	return pos + n, nil
}
