// Package founders defines the ledger boundary of the founders
// protocol, a deterministic state machine governing shared custody:
// threshold-governed team vaults, milestone-gated sponsor escrows, and
// contest-driven territory ownership.
//
// The core [Lifecycle] interface is required. The optional interfaces
// are capabilities discovered via Go type assertion at handshake time.
package founders

import (
	"context"

	"github.com/blockberries/founders/types"
)

// Lifecycle is the core interface the ledger application implements.
// It covers the complete happy-path from boot to steady-state block
// production.
//
// The engine guarantees the following call order:
//  1. Handshake is called exactly once, before anything else.
//  2. ExecuteBlock(h) is called exactly once per committed height h.
//  3. Commit is called exactly once after each ExecuteBlock.
//  4. CheckTx, Query may be called concurrently at any time after Handshake.
type Lifecycle interface {
	// Handshake is called once on every startup (cold start or restart).
	//
	// The engine communicates the last block it committed. If LastCommitted
	// is nil, this is a fresh genesis and Genesis will be populated.
	//
	// The application returns its own view of its state so the engine can
	// detect and recover from any divergence.
	Handshake(ctx context.Context, req types.HandshakeRequest) (types.HandshakeResponse, error)

	// CheckTx gate-checks an operation before it enters the mempool.
	// Only structural validation happens here; authorization and
	// lifecycle-state checks are execution concerns.
	//
	// This method MUST be safe for concurrent use.
	CheckTx(ctx context.Context, tx types.Tx, mctx types.MempoolContext) (types.GateVerdict, error)

	// ExecuteBlock deterministically executes a finalized block.
	//
	// The application MUST execute every transaction in order and return
	// a comprehensive BlockOutcome. Each transaction either applies all of
	// its entity mutations and transfers, or none of them.
	//
	// This method MUST NOT persist state to disk; that happens in Commit.
	// The AppHash in the returned BlockOutcome must be deterministic: all
	// correct nodes executing the same block must produce the same AppHash.
	ExecuteBlock(ctx context.Context, block types.FinalizedBlock) (types.BlockOutcome, error)

	// Commit persists all state changes from the last ExecuteBlock to
	// durable storage.
	//
	// Called exactly once after each ExecuteBlock. Must be crash-safe:
	// either all changes land, or none do (atomic persistence).
	//
	// Returns the retain height, the minimum height the engine should
	// keep for historical queries. The engine MAY prune blocks below this.
	Commit(ctx context.Context) (types.CommitResult, error)

	// Query reads committed application state.
	//
	// This method MUST be safe for concurrent use, including concurrent
	// with ExecuteBlock (reads should see the last committed state).
	Query(ctx context.Context, req types.StateQuery) (types.StateQueryResult, error)
}

// StateSync enables snapshot-based state synchronization for fast node
// bootstrapping, using a streamlined export/import model.
//
// Declared via: types.CapStateSync in HandshakeResponse.Capabilities
type StateSync interface {
	// AvailableSnapshots lists snapshots the application can export.
	AvailableSnapshots(ctx context.Context) ([]types.SnapshotDescriptor, error)

	// ExportSnapshot exports a snapshot as a pull-based stream of chunks.
	//
	// The returned channel yields chunks in order. The channel is closed
	// after the last chunk. The caller controls backpressure by the rate
	// at which it reads from the channel.
	ExportSnapshot(ctx context.Context, height uint64, format uint32) (<-chan types.SnapshotChunk, *types.SnapshotDescriptor, error)

	// ImportSnapshot imports a snapshot from a push-based stream of chunks.
	//
	// The application receives the descriptor and a channel of chunks.
	// After consuming all chunks, it must rebuild state and return the
	// resulting AppHash so the engine can verify it against the chain.
	ImportSnapshot(ctx context.Context, descriptor types.SnapshotDescriptor, chunks <-chan types.SnapshotChunk) (types.ImportResult, error)
}

// Simulator provides a clean, dedicated path for dry-run execution of a
// single operation against committed state.
//
// Declared via: types.CapSimulation in HandshakeResponse.Capabilities
type Simulator interface {
	// Simulate dry-runs a transaction against current committed state
	// without persisting any changes. Returns the execution result
	// including events and application-defined result data.
	//
	// This method MUST be safe for concurrent use.
	Simulate(ctx context.Context, tx types.Tx) (types.TxOutcome, error)
}

// Application is a convenience interface that embeds all founders
// interfaces. Applications that support all capabilities may implement
// this directly. Most applications should implement only Lifecycle plus
// the optional interfaces they need.
type Application interface {
	Lifecycle
	StateSync
	Simulator
}

// Connection represents a transport-agnostic connection to a founders
// application. Both gRPC clients and in-process adapters implement this.
type Connection interface {
	Lifecycle

	// Capabilities returns the capabilities discovered at handshake.
	// Must only be called after Handshake completes.
	Capabilities() types.Capabilities

	// AsStateSync returns the StateSync interface if available,
	// or nil if the app does not support it.
	AsStateSync() StateSync

	// AsSimulator returns the Simulator interface if available.
	AsSimulator() Simulator

	// Close terminates the connection.
	Close() error
}
