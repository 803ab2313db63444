package opstream

import "github.com/teranos/agent-react-devtools/internal/wireerr"

// DecodeStringTable decodes the per-batch interned string table.
//
// ints holds exactly size integers: [len1, cp11, cp12, ..., len2, cp21, ...].
// Index 0 of the returned table is reserved for "null/absent"; entries
// 1..K hold the decoded strings in order.
func DecodeStringTable(ints []int64, size int64) ([]string, error) {
	if size < 0 || int64(len(ints)) < size {
		return nil, wireerr.Wrap(wireerr.ErrMalformedBatch, "string table size overruns buffer")
	}

	table := []string{""} // index 0 reserved
	var consumed int64
	for consumed < size {
		length := ints[consumed]
		consumed++
		if length < 0 || consumed+length > size {
			return nil, wireerr.Wrap(wireerr.ErrMalformedBatch, "string table entry overruns declared size")
		}
		runes := make([]rune, length)
		for i := int64(0); i < length; i++ {
			runes[i] = rune(ints[consumed+i])
		}
		consumed += length
		table = append(table, string(runes))
	}
	return table, nil
}

// Resolve looks up a string table entry by its wire index. Index 0 (or an
// out-of-range index) resolves to ("", false) — "null/absent".
func Resolve(table []string, idx int64) (string, bool) {
	if idx <= 0 || int(idx) >= len(table) {
		return "", false
	}
	return table[idx], true
}
