package types

// HandshakeRequest opens every engine/application session, whether a
// cold genesis boot or a restart mid-chain.
type HandshakeRequest struct {
	// Last block the engine committed. Nil means fresh genesis.
	LastCommitted *BlockID `cramberry:"1"`
	// Genesis document, populated only when LastCommitted is nil.
	Genesis *GenesisDoc `cramberry:"2"`
}

// HandshakeResponse reports the application's committed position and
// its optional capabilities.
type HandshakeResponse struct {
	// Last block the application committed. Nil means no state yet.
	LastBlock *BlockID `cramberry:"1"`
	// App hash at LastBlock, used to detect divergence from the engine.
	AppHash *AppHash `cramberry:"2"`
	// Optional interfaces the application implements.
	Capabilities Capabilities `cramberry:"3"`
}
