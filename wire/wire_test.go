package wire_test

import (
	"testing"

	"github.com/deavmi/twine/wire"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	adv := wire.RouteAdvertisement{Address: "peer-pub-key", Distance: 64}
	content, err := wire.EncodePayload(adv)
	require.NoError(t, err)

	env, err := wire.BuildEnvelope(wire.Adv, wire.AdvPayload{
		Origin:  "origin-pub-key",
		Type:    wire.Advertisement,
		Content: content,
	})
	require.NoError(t, err)
	require.Equal(t, wire.Adv, env.Kind)

	raw, err := wire.EncodeEnvelope(env)
	require.NoError(t, err)

	decoded, err := wire.DecodeEnvelope(raw)
	require.NoError(t, err)
	require.Equal(t, env, decoded)

	var advOut wire.AdvPayload
	require.NoError(t, wire.DecodeAs(decoded.Payload, &advOut))
	require.Equal(t, "origin-pub-key", advOut.Origin)
	require.Equal(t, wire.Advertisement, advOut.Type)

	var raOut wire.RouteAdvertisement
	require.NoError(t, wire.DecodeAs(advOut.Content, &raOut))
	require.Equal(t, adv, raOut)
}

func TestArpRoundTrip(t *testing.T) {
	reply := wire.ArpReply{L3: "peer-nl", L2: "[fe80::1%eth0]:9999"}
	content, err := wire.EncodePayload(reply)
	require.NoError(t, err)

	env, err := wire.BuildEnvelope(wire.Arp, wire.ArpPayload{
		Type:    wire.Response,
		Content: content,
	})
	require.NoError(t, err)

	raw, err := wire.EncodeEnvelope(env)
	require.NoError(t, err)
	decoded, err := wire.DecodeEnvelope(raw)
	require.NoError(t, err)

	var arp wire.ArpPayload
	require.NoError(t, wire.DecodeAs(decoded.Payload, &arp))
	require.Equal(t, wire.Response, arp.Type)

	var got wire.ArpReply
	require.NoError(t, wire.DecodeAs(arp.Content, &got))
	require.Equal(t, reply, got)
}

func TestDataRoundTrip(t *testing.T) {
	env, err := wire.BuildEnvelope(wire.Data, wire.DataPayload{
		Ttl:  wire.DefaultTTL,
		Data: []byte("ciphertext"),
		Src:  "src-nl",
		Dst:  "dst-nl",
	})
	require.NoError(t, err)

	raw, err := wire.EncodeEnvelope(env)
	require.NoError(t, err)
	decoded, err := wire.DecodeEnvelope(raw)
	require.NoError(t, err)

	var data wire.DataPayload
	require.NoError(t, wire.DecodeAs(decoded.Payload, &data))
	require.Equal(t, wire.DefaultTTL, data.Ttl)
	require.Equal(t, []byte("ciphertext"), data.Data)
}

func TestDecodeTotalOnGarbage(t *testing.T) {
	_, err := wire.DecodeEnvelope([]byte{0xff, 0xff, 0xff})
	require.Error(t, err)
}

func TestDecodeAsMismatchedKind(t *testing.T) {
	env, err := wire.BuildEnvelope(wire.Adv, wire.AdvPayload{Origin: "x", Type: wire.Advertisement})
	require.NoError(t, err)

	var data wire.DataPayload
	err = wire.DecodeAs(env.Payload, &data)
	// A well-formed but wrong-shape payload should either error or decode
	// into zero values; it must never panic.
	_ = err
}

func TestUnknownIsZeroValue(t *testing.T) {
	var m wire.MType
	require.Equal(t, wire.Unknown, m)
}
