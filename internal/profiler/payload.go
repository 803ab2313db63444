package profiler

import (
	"encoding/json"
	"strconv"

	"github.com/teranos/agent-react-devtools/internal/wireerr"
)

// ProcessPayload accepts a `profilingData` WebSocket payload in either of
// §4.5's two shapes — nested (`{dataForRoots: [{commitData: [...]},...]}`)
// or flat (`{commitData: [...]}`) — and appends every commit it contains
// to the active session. A malformed payload fails the whole message
// rather than appending partial commits.
func (p *Profiler) ProcessPayload(raw json.RawMessage) error {
	var generic map[string]interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return wireerr.Wrap(err, "invalid profilingData payload")
	}

	var commitDicts []interface{}
	if rootsRaw, ok := generic["dataForRoots"]; ok {
		roots, _ := rootsRaw.([]interface{})
		for _, rootRaw := range roots {
			rootMap, ok := rootRaw.(map[string]interface{})
			if !ok {
				continue
			}
			if cd, ok := rootMap["commitData"].([]interface{}); ok {
				commitDicts = append(commitDicts, cd...)
			}
		}
	} else if cd, ok := generic["commitData"].([]interface{}); ok {
		commitDicts = cd
	}

	for _, cRaw := range commitDicts {
		cMap, ok := cRaw.(map[string]interface{})
		if !ok {
			continue
		}
		p.AppendCommit(parseCommit(cMap))
	}
	return nil
}

func parseCommit(m map[string]interface{}) Commit {
	commit := Commit{
		ActualDurations: map[uint32]float64{},
		SelfDurations:   map[uint32]float64{},
		Changes:         map[uint32]ChangeDescription{},
	}
	if ts, ok := toFloat(m["timestamp"]); ok {
		commit.Timestamp = int64(ts)
	}
	if d, ok := toFloat(m["duration"]); ok {
		commit.Duration = d
	}
	commit.ActualDurations = parseDurations(m["fiberActualDurations"])
	commit.SelfDurations = parseDurations(m["fiberSelfDurations"])
	commit.Changes = parseChangeDescriptions(m["changeDescriptions"])
	return commit
}

// parseDurations accepts both the tuple shape `[[id,dur],...]` and the
// interleaved flat shape `[id,dur,id,dur,...]`.
func parseDurations(raw interface{}) map[uint32]float64 {
	result := make(map[uint32]float64)
	arr, ok := raw.([]interface{})
	if !ok || len(arr) == 0 {
		return result
	}

	if _, tuples := arr[0].([]interface{}); tuples {
		for _, entry := range arr {
			pair, ok := entry.([]interface{})
			if !ok || len(pair) < 2 {
				continue
			}
			id, idOk := toUint32(pair[0])
			dur, durOk := toFloat(pair[1])
			if idOk && durOk {
				result[id] = dur
			}
		}
		return result
	}

	for i := 0; i+1 < len(arr); i += 2 {
		id, idOk := toUint32(arr[i])
		dur, durOk := toFloat(arr[i+1])
		if idOk && durOk {
			result[id] = dur
		}
	}
	return result
}

// parseChangeDescriptions accepts either a `{id: desc}` map or an ordered
// `[[id, desc], ...]` sequence.
func parseChangeDescriptions(raw interface{}) map[uint32]ChangeDescription {
	result := make(map[uint32]ChangeDescription)
	switch v := raw.(type) {
	case map[string]interface{}:
		for idStr, descRaw := range v {
			id, err := strconv.ParseUint(idStr, 10, 32)
			if err != nil {
				continue
			}
			result[uint32(id)] = parseChangeDescription(descRaw)
		}
	case []interface{}:
		for _, entry := range v {
			pair, ok := entry.([]interface{})
			if !ok || len(pair) < 2 {
				continue
			}
			id, ok := toUint32(pair[0])
			if !ok {
				continue
			}
			result[id] = parseChangeDescription(pair[1])
		}
	}
	return result
}

func parseChangeDescription(raw interface{}) ChangeDescription {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return ChangeDescription{}
	}
	cd := ChangeDescription{}
	if v, ok := m["isFirstMount"].(bool); ok {
		cd.IsFirstMount = v
	}
	if v, ok := m["didHooksChange"].(bool); ok {
		cd.DidHooksChange = v
	}
	cd.Props = toStringSlice(m["props"])
	cd.State = toStringSlice(m["state"])
	cd.Hooks = toIntSlice(m["hooks"])
	return cd
}

func toStringSlice(raw interface{}) []string {
	arr, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func toIntSlice(raw interface{}) []int {
	arr, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	out := make([]int, 0, len(arr))
	for _, v := range arr {
		if f, ok := toFloat(v); ok {
			out = append(out, int(f))
		}
	}
	return out
}

func toFloat(v interface{}) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}

func toUint32(v interface{}) (uint32, bool) {
	f, ok := v.(float64)
	if !ok {
		return 0, false
	}
	return uint32(f), true
}
