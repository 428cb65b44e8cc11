// Package envelope turns the backend's inconsistent response bodies into
// canonical values. A body is first classified into one of a closed set of
// wire shapes and only then decoded, so business code never branches on keys.
//
// Lists are recognised in this order:
//
//	{"data": [...]}                      ShapeData
//	{"<name>": [...]} / {"items": [...]} ShapeNamed
//	[...]                                ShapeBare
//	{"status": .., "data": {"<name>": [...]}} ShapeStatusData
//
// Single entities follow the same order with objects in place of arrays;
// a bare entity must carry an "id" key.
package envelope

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Domenick1991/fieldbooking/internal/domain"
)

type Shape string

const (
	ShapeUnknown    Shape = "unknown"
	ShapeData       Shape = "data"
	ShapeNamed      Shape = "named"
	ShapeBare       Shape = "bare"
	ShapeStatusData Shape = "status+data"
)

// ItemsKey is accepted as a collection name on every list endpoint.
const ItemsKey = "items"

var ErrUnexpectedShape = errors.New("unexpected response shape")

// ShapeError reports a body that matched none of the known shapes, or whose
// matched payload could not be decoded into the target type.
type ShapeError struct {
	Kind string
	Keys []string
	Err  error
}

func (e *ShapeError) Error() string {
	msg := fmt.Sprintf("envelope: %s: %s", ErrUnexpectedShape, e.Kind)
	if len(e.Keys) > 0 {
		msg += " (keys: " + strings.Join(e.Keys, ",") + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ShapeError) Is(target error) bool { return target == ErrUnexpectedShape }

func (e *ShapeError) Unwrap() error { return e.Err }

// List is a decoded collection in server order.
type List[T any] struct {
	Shape Shape
	Key   string
	Items []T
	Meta  *domain.PageMeta
}

// One is a decoded single entity.
type One[T any] struct {
	Shape Shape
	Key   string
	Value T
}

// DecodeList decodes a collection body. names are the endpoint specific
// collection keys checked after "data" (e.g. "bookings"); "items" is always accepted.
func DecodeList[T any](body []byte, names ...string) (List[T], error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return List[T]{Shape: ShapeUnknown}, &ShapeError{Kind: "list", Err: errors.New("empty body")}
	}

	names = append(names[:len(names):len(names)], ItemsKey)

	if trimmed[0] != '{' {
		if trimmed[0] != '[' {
			return List[T]{Shape: ShapeUnknown}, &ShapeError{Kind: "list"}
		}
		items, err := decodeItems[T](trimmed)
		if err != nil {
			return List[T]{Shape: ShapeUnknown}, &ShapeError{Kind: "list", Err: err}
		}
		return List[T]{Shape: ShapeBare, Items: items}, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return List[T]{Shape: ShapeUnknown}, &ShapeError{Kind: "list", Err: err}
	}

	shape, key, raw := classifyList(obj, names)
	if shape == ShapeUnknown {
		return List[T]{Shape: ShapeUnknown}, &ShapeError{Kind: "list", Keys: keysOf(obj)}
	}

	items, err := decodeItems[T](raw)
	if err != nil {
		return List[T]{Shape: ShapeUnknown}, &ShapeError{Kind: "list", Keys: keysOf(obj), Err: err}
	}

	out := List[T]{Shape: shape, Key: key, Items: items}
	if metaRaw, ok := obj["meta"]; ok && isObject(metaRaw) {
		var meta domain.PageMeta
		if err := json.Unmarshal(metaRaw, &meta); err == nil {
			out.Meta = &meta
		}
	}
	return out, nil
}

func classifyList(obj map[string]json.RawMessage, names []string) (Shape, string, json.RawMessage) {
	if raw, ok := obj["data"]; ok && isArray(raw) {
		return ShapeData, "data", raw
	}
	for _, name := range names {
		if raw, ok := obj[name]; ok && isArray(raw) {
			return ShapeNamed, name, raw
		}
	}
	if _, ok := obj["status"]; ok {
		if raw, ok := obj["data"]; ok && isObject(raw) {
			var inner map[string]json.RawMessage
			if err := json.Unmarshal(raw, &inner); err == nil {
				for _, name := range names {
					if coll, ok := inner[name]; ok && isArray(coll) {
						return ShapeStatusData, name, coll
					}
				}
			}
		}
	}
	return ShapeUnknown, "", nil
}

// DecodeOne decodes a single entity body. names are the endpoint specific
// wrapper keys (e.g. "booking", "payment").
func DecodeOne[T any](body []byte, names ...string) (One[T], error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return One[T]{Shape: ShapeUnknown}, &ShapeError{Kind: "entity"}
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return One[T]{Shape: ShapeUnknown}, &ShapeError{Kind: "entity", Err: err}
	}

	shape, key, raw := classifyOne(obj, names)
	if shape == ShapeUnknown {
		return One[T]{Shape: ShapeUnknown}, &ShapeError{Kind: "entity", Keys: keysOf(obj)}
	}

	if shape == ShapeBare {
		raw = trimmed
	} else if !hasID(raw) {
		// an entity without an id is an empty answer, not a record
		return One[T]{Shape: ShapeUnknown}, &ShapeError{Kind: "entity", Keys: keysOf(obj)}
	}

	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		return One[T]{Shape: ShapeUnknown}, &ShapeError{Kind: "entity", Keys: keysOf(obj), Err: err}
	}
	return One[T]{Shape: shape, Key: key, Value: value}, nil
}

func classifyOne(obj map[string]json.RawMessage, names []string) (Shape, string, json.RawMessage) {
	if raw, ok := obj["data"]; ok {
		if isObject(raw) {
			if _, hasStatus := obj["status"]; hasStatus {
				if key, inner, ok := namedEntity(raw, names); ok {
					return ShapeStatusData, key, inner
				}
			}
			return ShapeData, "data", raw
		}
		if isArray(raw) {
			var elems []json.RawMessage
			if err := json.Unmarshal(raw, &elems); err == nil && len(elems) > 0 && isObject(elems[0]) {
				return ShapeData, "data", elems[0]
			}
		}
	}
	for _, name := range names {
		if raw, ok := obj[name]; ok && isObject(raw) {
			return ShapeNamed, name, raw
		}
	}
	if _, ok := obj["id"]; ok {
		return ShapeBare, "", nil
	}
	return ShapeUnknown, "", nil
}

// namedEntity looks for one of names inside a data object that is not
// itself an entity (no "id").
func namedEntity(raw json.RawMessage, names []string) (string, json.RawMessage, bool) {
	var inner map[string]json.RawMessage
	if err := json.Unmarshal(raw, &inner); err != nil {
		return "", nil, false
	}
	if _, ok := inner["id"]; ok {
		return "", nil, false
	}
	for _, name := range names {
		if v, ok := inner[name]; ok && isObject(v) {
			return name, v, true
		}
	}
	return "", nil, false
}

func hasID(raw json.RawMessage) bool {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return false
	}
	id, ok := obj["id"]
	return ok && string(bytes.TrimSpace(id)) != "null"
}

func decodeItems[T any](raw json.RawMessage) ([]T, error) {
	items := make([]T, 0)
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func isArray(raw json.RawMessage) bool {
	b := bytes.TrimSpace(raw)
	return len(b) > 0 && b[0] == '['
}

func isObject(raw json.RawMessage) bool {
	b := bytes.TrimSpace(raw)
	return len(b) > 0 && b[0] == '{'
}

func keysOf(obj map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
