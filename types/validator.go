package types

// ValidatorAddress is the 20-byte address derived from a validator's
// public key.
type ValidatorAddress [20]byte

// KeyType names a validator key algorithm.
type KeyType uint8

const (
	KeyTypeEd25519   KeyType = 1
	KeyTypeSecp256k1 KeyType = 2
)

// PublicKey is a validator's cryptographic identity.
type PublicKey struct {
	Type KeyType `cramberry:"1"`
	Data []byte  `cramberry:"2"`
}

// ValidatorUpdate changes one validator's voting power. Zero power
// removes the validator. The founders protocol never emits updates;
// the type exists so genesis documents and block outcomes stay
// engine-compatible.
type ValidatorUpdate struct {
	PubKey PublicKey `cramberry:"1"`
	Power  uint64    `cramberry:"2"`
}
