package domain

import "encoding/json"

// ChangePayload wraps a JSON snapshot of an entity before or after a change.
type ChangePayload struct {
	defined bool
	raw     json.RawMessage
}

// NewChangePayload builds a payload from raw JSON. The bytes are cloned so the
// caller may reuse its buffer.
func NewChangePayload(raw json.RawMessage) ChangePayload {
	payload := ChangePayload{defined: true}
	if raw != nil {
		payload.raw = append(json.RawMessage(nil), raw...)
	}
	return payload
}

// SnapshotOf marshals value into a ChangePayload. Values that cannot be
// marshaled yield an undefined payload.
func SnapshotOf[T any](value T) ChangePayload {
	raw, err := json.Marshal(value)
	if err != nil {
		return ChangePayload{}
	}
	return ChangePayload{defined: true, raw: raw}
}

// Defined reports whether the payload has been initialized. Creates have an
// undefined Before.
func (p ChangePayload) Defined() bool {
	return p.defined
}

// Raw returns a copy of the underlying JSON bytes, or nil when undefined.
func (p ChangePayload) Raw() json.RawMessage {
	if !p.defined || len(p.raw) == 0 {
		return nil
	}
	return append(json.RawMessage(nil), p.raw...)
}

// DecodePayload unmarshals payload into T. It reports false when the payload is
// undefined, empty or does not decode.
func DecodePayload[T any](payload ChangePayload) (T, bool) {
	var out T
	if !payload.defined || len(payload.raw) == 0 {
		return out, false
	}
	if err := json.Unmarshal(payload.raw, &out); err != nil {
		return out, false
	}
	return out, true
}
