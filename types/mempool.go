package types

// MempoolContext distinguishes a transaction's first admission check
// from a re-check after committed state moved underneath it.
type MempoolContext uint8

const (
	// MempoolFirstSeen: the transaction just arrived.
	MempoolFirstSeen MempoolContext = 1
	// MempoolRevalidation: a block committed since admission and the
	// verdict is being refreshed.
	MempoolRevalidation MempoolContext = 2
)

// GateVerdict is the admission decision for one transaction. The
// founders protocol gates on structure only, so a verdict here never
// predicts execution success.
type GateVerdict struct {
	// Zero admits the transaction; anything else rejects it.
	Code uint32 `cramberry:"1"`
	// Rejection detail, for operators. Not consensus-relevant.
	Info string `cramberry:"2"`
	// Ordering priority inside the mempool. Higher goes first.
	Priority int64 `cramberry:"3"`
	// Sender key for same-sender sequencing and replacement.
	Sender string `cramberry:"4"`
}

// Accepted reports whether the transaction was admitted.
func (v GateVerdict) Accepted() bool { return v.Code == 0 }
