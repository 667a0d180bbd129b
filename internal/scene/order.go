package scene

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// axisKeyOrder recovers the declaration order of the permutation and
// variant keys from raw JSON documents. Keys from earlier documents come
// first; later documents append keys not seen yet.
func axisKeyOrder(docs ...[]byte) (map[string][]string, error) {
	order := map[string][]string{}
	for _, data := range docs {
		var top map[string]json.RawMessage
		if err := json.Unmarshal(data, &top); err != nil {
			return nil, err
		}
		for _, field := range []string{KeyPermutations, KeyVariants} {
			raw, ok := top[field]
			if !ok {
				continue
			}
			keys, err := objectKeys(raw)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", field, err)
			}
			order[field] = appendNew(order[field], keys)
		}
	}
	return order, nil
}

// objectKeys lists the keys of a JSON object in document order.
func objectKeys(raw json.RawMessage) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, nil
	}

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		keys = append(keys, key)

		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

func appendNew(dst, keys []string) []string {
	for _, k := range keys {
		found := false
		for _, d := range dst {
			if d == k {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, k)
		}
	}
	return dst
}
