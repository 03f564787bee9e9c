package wire

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// EncodeEnvelope produces the self-delimited byte string for an envelope.
func EncodeEnvelope(e Envelope) ([]byte, error) {
	b, err := msgpack.Marshal(&e)
	if err != nil {
		return nil, fmt.Errorf("wire: encode envelope: %w", err)
	}
	return b, nil
}

// DecodeEnvelope is total: a truncated or malformed frame returns an error,
// never a panic, and the caller is expected to drop the frame.
func DecodeEnvelope(b []byte) (Envelope, error) {
	var e Envelope
	if err := msgpack.Unmarshal(b, &e); err != nil {
		return Envelope{}, fmt.Errorf("wire: decode envelope: %w", err)
	}
	return e, nil
}

// EncodePayload msgpack-encodes any of the kind-specific payload structs.
func EncodePayload(v any) ([]byte, error) {
	b, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("wire: encode payload: %w", err)
	}
	return b, nil
}

// DecodeAs decodes payload bytes into v. It is the caller's responsibility
// to pick v according to the envelope's Kind (and, for ADV/ARP, the
// sub-type); a mismatched shape surfaces as a decode error here rather than
// silently succeeding with zero values.
func DecodeAs(payload []byte, v any) error {
	if err := msgpack.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("wire: decode payload: %w", err)
	}
	return nil
}

// BuildEnvelope is a convenience that encodes a payload struct and wraps it
// in an Envelope of the given kind.
func BuildEnvelope(kind MType, payload any) (Envelope, error) {
	b, err := EncodePayload(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Kind: kind, Payload: b}, nil
}
