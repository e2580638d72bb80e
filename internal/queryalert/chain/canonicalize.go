package chain

import (
	"bytes"
	"encoding/json"
	"sort"
	"time"
)

// Field names the chain adds to each record. They are excluded from the
// canonical form.
const (
	FieldHashPrev  = "hash_prev"
	FieldHash      = "hash"
	FieldHashIndex = "hash_chain_index"
)

// Canonicalize returns the deterministic JSON form of a record used for
// hashing: chain fields removed, keys sorted at every depth, RFC3339
// timestamps normalized to UTC second precision, no whitespace.
func Canonicalize(record map[string]interface{}) (string, error) {
	clean := make(map[string]interface{}, len(record))
	for k, v := range record {
		if k == FieldHash || k == FieldHashPrev || k == FieldHashIndex {
			continue
		}
		clean[k] = normalize(v)
	}

	var buf bytes.Buffer
	if err := encodeSorted(&buf, clean); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// normalize deep-copies v, rewriting timestamp strings on the way.
func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, vv := range t {
			m[k] = normalize(vv)
		}
		return m
	case []interface{}:
		arr := make([]interface{}, len(t))
		for i := range t {
			arr[i] = normalize(t[i])
		}
		return arr
	case string:
		if ts, err := time.Parse(time.RFC3339, t); err == nil {
			return ts.UTC().Format(time.RFC3339)
		}
		return t
	default:
		return t
	}
}

func encodeSorted(buf *bytes.Buffer, v interface{}) error {
	switch t := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, _ := json.Marshal(k)
			buf.Write(kb)
			buf.WriteByte(':')
			if err := encodeSorted(buf, t[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case []interface{}:
		buf.WriteByte('[')
		for i, elem := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeSorted(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return err
		}
		buf.Write(b)
		return nil
	}
}
