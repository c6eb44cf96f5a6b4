package types

// ConsensusParams are the consensus-critical limits the application
// may ask the engine to adjust.
type ConsensusParams struct {
	MaxBlockBytes uint64 `cramberry:"1"`
	MaxTxBytes    uint64 `cramberry:"2"`
}
