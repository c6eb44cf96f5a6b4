// Package types defines all core data types for the founders
// protocol ledger boundary.
//
// These are plain Go structs with cramberry struct tags for
// deterministic binary serialization. Transport concerns
// (gRPC codec registration) are handled in the transport packages.
package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Hash is a 32-byte cryptographic hash.
type Hash [32]byte

// AppHash is a deterministic fingerprint of the application
// state after execution.
type AppHash [32]byte

// Tx is an opaque application transaction. For the founders protocol
// it carries one custody operation; the consensus engine never
// inspects its contents.
type Tx []byte

// QueryPath is a structured key for state queries
// (e.g., "/vault", "/territory").
type QueryPath string

// BlockID uniquely identifies a point in the chain.
type BlockID struct {
	Height uint64 `cramberry:"1"`
	Hash   Hash   `cramberry:"2"`
}

// Identity is the opaque 32-byte authenticated identity of a protocol
// participant (founder, sponsor, challenger, recipient). Signature
// verification happens upstream in the engine; by the time an identity
// reaches the application it is trusted.
type Identity [32]byte

// String returns the hex encoding of the identity.
func (id Identity) String() string {
	return hex.EncodeToString(id[:])
}

// MarshalJSON encodes the identity as a hex string so that JSON
// state serialization is deterministic and readable.
func (id Identity) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

// UnmarshalJSON decodes a hex-string identity.
func (id *Identity) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, ok := IdentityFromHex(s)
	if !ok {
		return fmt.Errorf("invalid identity %q", s)
	}
	*id = parsed
	return nil
}

// IsZero reports whether the identity is the zero value, used to
// represent "no party" (e.g. an unclaimed territory's defender).
func (id Identity) IsZero() bool {
	return id == Identity{}
}

// IdentityFromHex parses a hex-encoded identity. Returns false if the
// input is not exactly 64 hex characters.
func IdentityFromHex(s string) (Identity, bool) {
	var id Identity
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != len(id) {
		return Identity{}, false
	}
	copy(id[:], b)
	return id, true
}
