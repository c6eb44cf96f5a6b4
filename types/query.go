package types

// StateQuery reads committed application state. The founders protocol
// routes on Path ("/balance", "/vault", "/proposal", "/escrow",
// "/territory", "/contest") and treats Data as the entity key.
type StateQuery struct {
	Path QueryPath `cramberry:"1"`
	Data []byte    `cramberry:"2"`
	// Height to read at. Nil means latest committed.
	Height *uint64 `cramberry:"3"`
	// Request a Merkle proof alongside the value.
	Prove bool `cramberry:"4"`
}

// StateQueryResult carries the value read, or a non-zero Code when the
// path or key could not be served.
type StateQueryResult struct {
	Code   uint32       `cramberry:"1"`
	Key    []byte       `cramberry:"2"`
	Value  []byte       `cramberry:"3"`
	Height uint64       `cramberry:"4"`
	Proof  *MerkleProof `cramberry:"5"`
	Info   string       `cramberry:"6"`
}

// MerkleProof proves inclusion or exclusion against the app state root.
type MerkleProof struct {
	Ops []ProofOp `cramberry:"1"`
}

// ProofOp is one step of a Merkle proof.
type ProofOp struct {
	Type string `cramberry:"1"`
	Key  []byte `cramberry:"2"`
	Data []byte `cramberry:"3"`
}
