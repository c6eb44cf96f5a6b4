package types

// SnapshotDescriptor advertises one exportable snapshot of committed
// state. The founders protocol exports a single zstd-compressed state
// blob per height and notes the codec in Metadata.
type SnapshotDescriptor struct {
	Height uint64 `cramberry:"1"`
	Format uint32 `cramberry:"2"`
	// Chunk count, for transfer progress and completeness checks.
	Chunks uint32 `cramberry:"3"`
	// Hash over the full (compressed) snapshot body.
	Hash Hash `cramberry:"4"`
	// Codec or versioning hints, opaque to the engine.
	Metadata []byte `cramberry:"5"`
}

// SnapshotChunk is one ordered piece of a snapshot body.
type SnapshotChunk struct {
	Index uint32 `cramberry:"1"`
	Data  []byte `cramberry:"2"`
}

// ImportStatus is the application's verdict on an imported snapshot.
type ImportStatus uint8

const (
	// ImportOK: the snapshot was applied.
	ImportOK ImportStatus = 1
	// ImportReject: unusable snapshot, the engine should try another.
	ImportReject ImportStatus = 2
	// ImportRetryChunks: specific chunks were missing or corrupt and
	// should be re-sent.
	ImportRetryChunks ImportStatus = 3
)

// ImportResult reports how a snapshot import ended.
type ImportResult struct {
	Status ImportStatus `cramberry:"1"`
	// Populated on ImportOK so the engine can verify against the chain.
	AppHash *AppHash `cramberry:"2"`
	// Populated on ImportReject.
	Reason string `cramberry:"3"`
	// Populated on ImportRetryChunks.
	RetryIndices []uint32 `cramberry:"4"`
}
