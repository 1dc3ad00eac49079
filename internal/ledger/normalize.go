package ledger

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// normalizeSymbolList converts the contract's list_symbols return value
// into an uppercase symbol slice. The contract has returned three shapes
// over its lifetime:
//
//   - a plain array: ["btc","eth"]
//   - a map with numeric string keys, ordered by key: {"0":"btc","1":"eth"}
//   - a map keyed by symbol, with a bookkeeping "length" entry: {"BTC":true,"length":1}
//
// A null value yields an empty slice; any other shape is an error.
func normalizeSymbolList(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return []string{}, nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		out := make([]string, 0, len(list))
		for _, s := range list {
			out = append(out, strings.ToUpper(s))
		}
		return out, nil
	}

	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("unexpected symbol list shape: %s", truncate(string(raw), 80))
	}

	type indexed struct {
		idx int
		key string
	}
	var numeric []indexed
	for k := range m {
		if n, err := strconv.Atoi(k); err == nil {
			numeric = append(numeric, indexed{idx: n, key: k})
		}
	}

	if len(numeric) > 0 {
		sort.Slice(numeric, func(i, j int) bool { return numeric[i].idx < numeric[j].idx })
		out := make([]string, 0, len(numeric))
		for _, e := range numeric {
			var v string
			if err := json.Unmarshal(m[e.key], &v); err != nil || v == "" {
				continue
			}
			out = append(out, strings.ToUpper(v))
		}
		return out, nil
	}

	out := make([]string, 0, len(m))
	for k := range m {
		if k == "length" {
			continue
		}
		out = append(out, strings.ToUpper(k))
	}
	sort.Strings(out)
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
