package usecase

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	cryptoDomain "github.com/allisson/fleetvault/internal/crypto/domain"
)

// fieldPayload is the plaintext sealed inside a field envelope. Kind records the Go
// type so decryption hands back exactly what was encrypted. Maps and lists are
// encoded member by member, so nested values keep their kinds too.
type fieldPayload struct {
	Kind  string          `json:"k"`
	Value json.RawMessage `json:"v,omitempty"`
}

const (
	kindNull    = "null"
	kindString  = "string"
	kindBool    = "bool"
	kindInt     = "int"
	kindInt32   = "int32"
	kindInt64   = "int64"
	kindUint    = "uint"
	kindUint32  = "uint32"
	kindUint64  = "uint64"
	kindFloat32 = "float32"
	kindFloat64 = "float64"
	kindNumber  = "number"
	kindTime    = "time"
	kindBytes   = "bytes"
	kindMap     = "map"
	kindList    = "list"
)

func encodePayload(v any) ([]byte, error) {
	p, err := newPayload(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(p)
}

// newPayload builds the typed payload tree for v. Types outside the object model
// (JSON-decoded values plus the Go scalars above) are rejected rather than
// approximated.
func newPayload(v any) (*fieldPayload, error) {
	var kind string
	switch t := v.(type) {
	case nil:
		return &fieldPayload{Kind: kindNull}, nil
	case map[string]any:
		members := make(map[string]*fieldPayload, len(t))
		for name, member := range t {
			p, err := newPayload(member)
			if err != nil {
				return nil, err
			}
			members[name] = p
		}
		return wrapPayload(kindMap, members)
	case []any:
		items := make([]*fieldPayload, len(t))
		for i, item := range t {
			p, err := newPayload(item)
			if err != nil {
				return nil, err
			}
			items[i] = p
		}
		return wrapPayload(kindList, items)
	case string:
		kind = kindString
	case bool:
		kind = kindBool
	case int:
		kind = kindInt
	case int32:
		kind = kindInt32
	case int64:
		kind = kindInt64
	case uint:
		kind = kindUint
	case uint32:
		kind = kindUint32
	case uint64:
		kind = kindUint64
	case float32:
		kind = kindFloat32
	case float64:
		kind = kindFloat64
	case json.Number:
		kind = kindNumber
		v = t.String()
	case time.Time:
		kind = kindTime
		v = t.Format(time.RFC3339Nano)
	case []byte:
		kind = kindBytes
	default:
		return nil, fmt.Errorf("%w: unsupported field value type %T", cryptoDomain.ErrSerializationFailure, v)
	}
	return wrapPayload(kind, v)
}

func wrapPayload(kind string, v any) (*fieldPayload, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cryptoDomain.ErrSerializationFailure, err)
	}
	return &fieldPayload{Kind: kind, Value: raw}, nil
}

func decodePayload(data []byte) (any, error) {
	var p fieldPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", cryptoDomain.ErrSerializationFailure, err)
	}
	return p.decode()
}

func (p *fieldPayload) decode() (any, error) {
	var (
		v   any
		err error
	)
	switch p.Kind {
	case kindNull:
		return nil, nil
	case kindMap:
		var members map[string]*fieldPayload
		if members, err = decodeAs[map[string]*fieldPayload](p.Value); err == nil {
			v, err = decodeMembers(members)
		}
	case kindList:
		var items []*fieldPayload
		if items, err = decodeAs[[]*fieldPayload](p.Value); err == nil {
			v, err = decodeItems(items)
		}
	case kindString:
		v, err = decodeAs[string](p.Value)
	case kindBool:
		v, err = decodeAs[bool](p.Value)
	case kindInt:
		v, err = decodeAs[int](p.Value)
	case kindInt32:
		v, err = decodeAs[int32](p.Value)
	case kindInt64:
		v, err = decodeAs[int64](p.Value)
	case kindUint:
		v, err = decodeAs[uint](p.Value)
	case kindUint32:
		v, err = decodeAs[uint32](p.Value)
	case kindUint64:
		v, err = decodeAs[uint64](p.Value)
	case kindFloat32:
		v, err = decodeAs[float32](p.Value)
	case kindFloat64:
		v, err = decodeAs[float64](p.Value)
	case kindNumber:
		var s string
		s, err = decodeAs[string](p.Value)
		v = json.Number(s)
	case kindTime:
		var s string
		if s, err = decodeAs[string](p.Value); err == nil {
			v, err = time.Parse(time.RFC3339Nano, s)
		}
	case kindBytes:
		v, err = decodeAs[[]byte](p.Value)
	default:
		return nil, fmt.Errorf("%w: unknown payload kind %q", cryptoDomain.ErrSerializationFailure, p.Kind)
	}
	if err != nil {
		if errors.Is(err, cryptoDomain.ErrSerializationFailure) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", cryptoDomain.ErrSerializationFailure, err)
	}
	return v, nil
}

func decodeMembers(members map[string]*fieldPayload) (map[string]any, error) {
	out := make(map[string]any, len(members))
	for name, member := range members {
		if member == nil {
			return nil, fmt.Errorf("%w: member %q has no payload", cryptoDomain.ErrSerializationFailure, name)
		}
		v, err := member.decode()
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}

func decodeItems(items []*fieldPayload) ([]any, error) {
	out := make([]any, len(items))
	for i, item := range items {
		if item == nil {
			return nil, fmt.Errorf("%w: item %d has no payload", cryptoDomain.ErrSerializationFailure, i)
		}
		v, err := item.decode()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func decodeAs[T any](raw json.RawMessage) (T, error) {
	var v T
	err := json.Unmarshal(raw, &v)
	return v, err
}
