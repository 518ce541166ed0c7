package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"supperclub/internal/domain"
)

type docKey struct {
	collection string
	key        string
}

func (k docKey) String() string {
	return k.collection + "/" + k.key
}

// pendingWrite is a buffered transaction write; data is nil for deletes.
type pendingWrite struct {
	data    []byte
	deleted bool
}

// writeSet keeps transaction writes in the order they were issued.
type writeSet struct {
	writes map[docKey]pendingWrite
	order  []docKey
}

func newWriteSet() *writeSet {
	return &writeSet{writes: make(map[docKey]pendingWrite)}
}

func (w *writeSet) put(k docKey, pw pendingWrite) {
	if _, ok := w.writes[k]; !ok {
		w.order = append(w.order, k)
	}
	w.writes[k] = pw
}

func (w *writeSet) get(k docKey) (pendingWrite, bool) {
	pw, ok := w.writes[k]
	return pw, ok
}

func encodeDoc(doc any) ([]byte, error) {
	if raw, ok := doc.(json.RawMessage); ok {
		return raw, nil
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return data, nil
}

func decodeDoc(data []byte, dst any) error {
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode document: %w: %w", domain.ErrDocMalformed, err)
	}
	return nil
}

func decodeMap(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if doc == nil {
		doc = make(map[string]any)
	}
	return doc, nil
}

// mergeFields sets each field of fields on the stored document. Keys may be
// dotted paths ("rescheduleRequest.status"); missing intermediate objects are created.
func mergeFields(data []byte, fields map[string]any) ([]byte, error) {
	doc, err := decodeMap(data)
	if err != nil {
		return nil, err
	}
	for path, value := range fields {
		if err := setPath(doc, strings.Split(path, "."), value); err != nil {
			return nil, fmt.Errorf("update field %s: %w", path, err)
		}
	}
	return json.Marshal(doc)
}

func setPath(doc map[string]any, path []string, value any) error {
	if len(path) == 1 {
		if value == nil {
			delete(doc, path[0])
			return nil
		}
		doc[path[0]] = value
		return nil
	}
	child, ok := doc[path[0]]
	if !ok || child == nil {
		next := make(map[string]any)
		doc[path[0]] = next
		return setPath(next, path[1:], value)
	}
	next, ok := child.(map[string]any)
	if !ok {
		return fmt.Errorf("%s is not an object", path[0])
	}
	return setPath(next, path[1:], value)
}

func incrementField(data []byte, field string, delta int64) ([]byte, error) {
	doc, err := decodeMap(data)
	if err != nil {
		return nil, err
	}

	var current int64
	switch v := doc[field].(type) {
	case nil:
	case json.Number:
		current, err = strconv.ParseInt(v.String(), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("field %s is not an integer: %w", field, err)
		}
	default:
		return nil, fmt.Errorf("field %s is not numeric", field)
	}

	doc[field] = json.Number(strconv.FormatInt(current+delta, 10))
	return json.Marshal(doc)
}
