// Package identity owns a node's keypair. A node's public key doubles as
// its network-layer address: routing, ARP and end-to-end encryption are
// all keyed off it.
//
// The asymmetric primitive itself is treated as an opaque collaborator by
// the router core; this package supplies the concrete stand-in, built on
// NaCl box (golang.org/x/crypto/nacl/box).
package identity

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/nacl/box"
)

// NL is a network-layer address: a peer's public key, as a printable,
// opaque string.
type NL string

// String renders the address the way logs and wire payloads expect it.
func (n NL) String() string {
	return string(n)
}

// Keypair is a node's identity: a NaCl box keypair used both to derive the
// node's NL address and to encrypt/decrypt end-to-end DATA payloads.
type Keypair struct {
	public  *[32]byte
	private *[32]byte
}

// New generates a fresh keypair.
func New() (Keypair, error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return Keypair{}, fmt.Errorf("identity: generate key: %w", err)
	}
	return Keypair{public: pub, private: priv}, nil
}

// PublicKey returns the node's own NL address.
func (k Keypair) PublicKey() NL {
	return NL(base64.StdEncoding.EncodeToString(k.public[:]))
}

// ParseNL decodes the printable form of a peer's public key, as carried in
// wire payloads, back into raw key bytes suitable for Encrypt.
func ParseNL(addr NL) (*[32]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(string(addr))
	if err != nil {
		return nil, fmt.Errorf("identity: malformed public key: %w", err)
	}
	if len(raw) != 32 {
		return nil, errors.New("identity: public key has wrong length")
	}
	var out [32]byte
	copy(out[:], raw)
	return &out, nil
}

// Encrypt seals plaintext so that only the holder of peerPub's private key
// can open it.
func Encrypt(plaintext []byte, peerPub NL) ([]byte, error) {
	pub, err := ParseNL(peerPub)
	if err != nil {
		return nil, err
	}
	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("identity: nonce: %w", err)
	}
	// Anonymous sealed box: the sender's identity is not authenticated at
	// this layer.
	ephPub, ephPriv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("identity: ephemeral key: %w", err)
	}
	sealed := box.Seal(nil, plaintext, &nonce, pub, ephPriv)
	out := make([]byte, 0, 32+24+len(sealed))
	out = append(out, ephPub[:]...)
	out = append(out, nonce[:]...)
	out = append(out, sealed...)
	return out, nil
}

// Decrypt opens ciphertext produced by Encrypt, using this node's private
// key. No authentication is performed on the sender, so a malformed frame
// or the wrong key yields an error, never a panic.
func (k Keypair) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < 32+24 {
		return nil, errors.New("identity: ciphertext too short")
	}
	var ephPub [32]byte
	var nonce [24]byte
	copy(ephPub[:], ciphertext[:32])
	copy(nonce[:], ciphertext[32:56])
	plaintext, ok := box.Open(nil, ciphertext[56:], &nonce, &ephPub, k.private)
	if !ok {
		return nil, errors.New("identity: decryption failed")
	}
	return plaintext, nil
}

// LoadOrCreate loads a keypair from path, creating and persisting a fresh
// one if it doesn't yet exist: read the file, and on os.IsNotExist
// generate and write a new key.
func LoadOrCreate(path string) (Keypair, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return Keypair{}, fmt.Errorf("identity: reading keyfile: %w", err)
		}
		kp, err := New()
		if err != nil {
			return Keypair{}, err
		}
		if err := kp.save(path); err != nil {
			return Keypair{}, err
		}
		return kp, nil
	}
	return decodeKeypair(b)
}

func (k Keypair) save(path string) error {
	var buf [64]byte
	copy(buf[:32], k.private[:])
	copy(buf[32:], k.public[:])
	return os.WriteFile(path, buf[:], 0600)
}

func decodeKeypair(b []byte) (Keypair, error) {
	if len(b) != 64 {
		return Keypair{}, errors.New("identity: corrupt keyfile")
	}
	var priv, pub [32]byte
	copy(priv[:], b[:32])
	copy(pub[:], b[32:])
	return Keypair{public: &pub, private: &priv}, nil
}
