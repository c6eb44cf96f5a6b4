package types

// TxOutcome is the result of executing one operation. A non-zero Code
// is a deterministic protocol error (Unauthorized, Expired, and so
// on), never an engine failure.
type TxOutcome struct {
	// Position of the operation in its block, 0-indexed.
	Index uint32 `cramberry:"1"`
	// Protocol result code. Zero is success.
	Code uint32 `cramberry:"2"`
	// Operator-facing detail. Not part of the app hash.
	Info string `cramberry:"3"`
	// Deterministic result bytes, operation-defined.
	Data []byte `cramberry:"4"`
	// Custody events emitted by this operation.
	Events []Event `cramberry:"5"`
}

// OK reports whether the operation applied.
func (t TxOutcome) OK() bool { return t.Code == 0 }

// BlockOutcome is the comprehensive output of executing a finalized
// block. All execution side-effects live here.
type BlockOutcome struct {
	// Per-transaction results, in block order.
	TxOutcomes []TxOutcome `cramberry:"1"`
	// All custody events of the block in execution order, the
	// concatenation of every successful operation's Events.
	BlockEvents []Event `cramberry:"2"`
	// New app state root after this block.
	AppHash AppHash `cramberry:"3"`
	// Changes to the validator set. Empty slice = no change.
	ValidatorUpdates []ValidatorUpdate `cramberry:"4"`
	// Changes to consensus params. Nil = no change.
	ParamsUpdate *ConsensusParams `cramberry:"5"`
}

// FinalizedBlock is a decided block delivered to the application
// for execution. Its timestamp is the protocol's sole time source:
// every created_at/expires_at field and deadline comparison derives
// from it, keeping execution deterministic across replicas.
type FinalizedBlock struct {
	Height        uint64           `cramberry:"1"`
	Time          Timestamp        `cramberry:"2"`
	Proposer      ValidatorAddress `cramberry:"3"`
	Txs           []Tx             `cramberry:"4"`
	LastBlockHash Hash             `cramberry:"5"`
}

// CommitResult is returned after the application persists
// state to disk.
type CommitResult struct {
	// Minimum height the app still needs for queries / proofs.
	// The engine may prune blocks below this. 0 = no pruning preference.
	RetainHeight uint64 `cramberry:"1"`
}
