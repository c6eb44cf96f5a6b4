// Package protocol implements the founders custody ledger: team vaults
// governed by threshold voting, sponsor escrows released against
// milestone percentages, and territory ownership decided by adjudicated
// contests.
//
// A transaction is one prefix byte followed by a cramberry-marshaled
// operation payload. Execution is strictly serial within a block and
// each operation either fully applies or leaves state untouched.
package protocol

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/blockberries/founders"
	"github.com/blockberries/founders/types"
)

// Compile-time interface checks.
var (
	_ founders.Lifecycle = (*App)(nil)
	_ founders.StateSync = (*App)(nil)
	_ founders.Simulator = (*App)(nil)
)

// Store persists committed state between process restarts. The protocol
// package defines the contract; the store package provides the
// SQLite-backed implementation.
type Store interface {
	// Save durably records the serialized state at a height. Must be
	// atomic: a crash mid-save leaves the previous record intact.
	Save(height uint64, appHash types.AppHash, state []byte) error
	// Latest returns the most recent saved record, or ok=false when the
	// store is empty.
	Latest() (height uint64, appHash types.AppHash, state []byte, ok bool, err error)
	// Prune discards records below the given height.
	Prune(below uint64) error
}

// genesisState is the expected shape of GenesisDoc.AppState.
type genesisState struct {
	Balances map[string]uint64 `json:"balances"`
}

// App is the custody ledger application.
type App struct {
	mu      sync.RWMutex
	current *state
	staged  *state
	store   Store
}

// Option configures an App.
type Option func(*App)

// WithStore makes Commit persist state through the given store and
// Handshake recover from it on restart.
func WithStore(s Store) Option {
	return func(app *App) { app.store = s }
}

// New creates a custody ledger application with empty state.
func New(opts ...Option) *App {
	app := &App{current: newState()}
	for _, opt := range opts {
		opt(app)
	}
	return app
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

func (app *App) Handshake(_ context.Context, req types.HandshakeRequest) (types.HandshakeResponse, error) {
	app.mu.Lock()
	defer app.mu.Unlock()

	caps := types.CapStateSync | types.CapSimulation

	if app.store != nil {
		if _, _, blob, ok, err := app.store.Latest(); err != nil {
			return types.HandshakeResponse{}, fmt.Errorf("load persisted state: %w", err)
		} else if ok {
			s, err := unmarshalState(blob)
			if err != nil {
				return types.HandshakeResponse{}, fmt.Errorf("load persisted state: %w", err)
			}
			app.current = s
		}
	}

	if req.LastCommitted == nil && app.current.Height == 0 {
		// Fresh genesis. Seed custody balances from the app state doc.
		if req.Genesis != nil && len(req.Genesis.AppState) > 0 {
			var gs genesisState
			if err := json.Unmarshal(req.Genesis.AppState, &gs); err != nil {
				return types.HandshakeResponse{}, fmt.Errorf("decode genesis app state: %w", err)
			}
			for account, amount := range gs.Balances {
				app.current.credit(account, amount)
			}
		}
		h := app.current.appHash()
		return types.HandshakeResponse{
			AppHash:      &h,
			Capabilities: caps,
		}, nil
	}

	h := app.current.appHash()
	return types.HandshakeResponse{
		LastBlock: &types.BlockID{
			Height: app.current.Height,
		},
		AppHash:      &h,
		Capabilities: caps,
	}, nil
}

// CheckTx admits structurally valid operations only. Authorization and
// lifecycle-state checks are deliberately deferred to execution so the
// mempool verdict never depends on racing state.
func (app *App) CheckTx(_ context.Context, tx types.Tx, _ types.MempoolContext) (types.GateVerdict, error) {
	if len(tx) < 2 {
		return types.GateVerdict{Code: uint32(KindBadRequest), Info: "transaction too short"}, nil
	}
	switch tx[0] {
	case TxDeposit:
		var op DepositOp
		if err := decodePayload(tx, &op); err != nil {
			return types.GateVerdict{Code: uint32(err.Kind), Info: err.Msg}, nil
		}
		return types.GateVerdict{Priority: 10, Sender: op.Account}, nil
	case TxCreateVault:
		var op CreateVaultOp
		if err := decodePayload(tx, &op); err != nil {
			return types.GateVerdict{Code: uint32(err.Kind), Info: err.Msg}, nil
		}
		return types.GateVerdict{Priority: 5, Sender: op.Caller.String()}, nil
	case TxCreateProposal:
		var op CreateProposalOp
		if err := decodePayload(tx, &op); err != nil {
			return types.GateVerdict{Code: uint32(err.Kind), Info: err.Msg}, nil
		}
		return types.GateVerdict{Priority: 5, Sender: op.Proposer.String()}, nil
	case TxVote:
		var op VoteOp
		if err := decodePayload(tx, &op); err != nil {
			return types.GateVerdict{Code: uint32(err.Kind), Info: err.Msg}, nil
		}
		return types.GateVerdict{Priority: 8, Sender: op.Voter.String()}, nil
	case TxExecuteProposal:
		var op ExecuteProposalOp
		if err := decodePayload(tx, &op); err != nil {
			return types.GateVerdict{Code: uint32(err.Kind), Info: err.Msg}, nil
		}
		return types.GateVerdict{Priority: 8}, nil
	case TxCreateEscrow:
		var op CreateEscrowOp
		if err := decodePayload(tx, &op); err != nil {
			return types.GateVerdict{Code: uint32(err.Kind), Info: err.Msg}, nil
		}
		return types.GateVerdict{Priority: 5, Sender: op.Sponsor.String()}, nil
	case TxReleaseMilestone:
		var op ReleaseMilestoneOp
		if err := decodePayload(tx, &op); err != nil {
			return types.GateVerdict{Code: uint32(err.Kind), Info: err.Msg}, nil
		}
		return types.GateVerdict{Priority: 8}, nil
	case TxCreateTerritory:
		var op CreateTerritoryOp
		if err := decodePayload(tx, &op); err != nil {
			return types.GateVerdict{Code: uint32(err.Kind), Info: err.Msg}, nil
		}
		return types.GateVerdict{Priority: 5, Sender: op.Caller.String()}, nil
	case TxOpenContest:
		var op OpenContestOp
		if err := decodePayload(tx, &op); err != nil {
			return types.GateVerdict{Code: uint32(err.Kind), Info: err.Msg}, nil
		}
		return types.GateVerdict{Priority: 5, Sender: op.Challenger.String()}, nil
	case TxResolveContest:
		var op ResolveContestOp
		if err := decodePayload(tx, &op); err != nil {
			return types.GateVerdict{Code: uint32(err.Kind), Info: err.Msg}, nil
		}
		return types.GateVerdict{Priority: 8}, nil
	default:
		return types.GateVerdict{
			Code: uint32(KindBadRequest),
			Info: fmt.Sprintf("unknown operation 0x%02x", tx[0]),
		}, nil
	}
}

func (app *App) ExecuteBlock(_ context.Context, block types.FinalizedBlock) (types.BlockOutcome, error) {
	app.mu.RLock()
	s := app.current.clone()
	app.mu.RUnlock()

	s.Height = block.Height

	outcomes := make([]types.TxOutcome, len(block.Txs))
	var blockEvents []types.Event

	for i, tx := range block.Txs {
		outcome := executeTx(s, uint32(i), tx, block.Time)
		outcomes[i] = outcome
		blockEvents = append(blockEvents, outcome.Events...)
	}

	h := s.appHash()
	app.staged = s

	return types.BlockOutcome{
		TxOutcomes:  outcomes,
		BlockEvents: blockEvents,
		AppHash:     h,
	}, nil
}

func (app *App) Commit(_ context.Context) (types.CommitResult, error) {
	app.mu.Lock()
	defer app.mu.Unlock()

	app.current = app.staged
	app.staged = nil

	retain := uint64(0)
	if app.current.Height > 100 {
		retain = app.current.Height - 100
	}

	if app.store != nil {
		blob, err := app.current.marshal()
		if err != nil {
			return types.CommitResult{}, fmt.Errorf("marshal state: %w", err)
		}
		if err := app.store.Save(app.current.Height, app.current.appHash(), blob); err != nil {
			return types.CommitResult{}, fmt.Errorf("persist state: %w", err)
		}
		if retain > 0 {
			if err := app.store.Prune(retain); err != nil {
				return types.CommitResult{}, fmt.Errorf("prune state: %w", err)
			}
		}
	}

	return types.CommitResult{RetainHeight: retain}, nil
}

func (app *App) Query(_ context.Context, req types.StateQuery) (types.StateQueryResult, error) {
	app.mu.RLock()
	defer app.mu.RUnlock()

	height := app.current.Height

	switch string(req.Path) {
	case "/balance":
		// Data = custody account name.
		bal := app.current.balance(string(req.Data))
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, bal)
		return types.StateQueryResult{
			Key:    req.Data,
			Value:  buf,
			Height: height,
		}, nil

	case "/vault":
		v, ok := app.current.Vaults[string(req.Data)]
		return jsonQueryResult(req.Data, v, ok, height)

	case "/proposal":
		p, ok := app.current.Proposals[string(req.Data)]
		return jsonQueryResult(req.Data, p, ok, height)

	case "/escrow":
		e, ok := app.current.Escrows[string(req.Data)]
		return jsonQueryResult(req.Data, e, ok, height)

	case "/territory":
		t, ok := app.current.Territories[string(req.Data)]
		return jsonQueryResult(req.Data, t, ok, height)

	case "/contest":
		c, ok := app.current.Contests[string(req.Data)]
		return jsonQueryResult(req.Data, c, ok, height)

	default:
		return types.StateQueryResult{
			Code:   uint32(KindBadRequest),
			Info:   "unknown query path",
			Height: height,
		}, nil
	}
}

// jsonQueryResult wraps an entity lookup as a query response.
func jsonQueryResult(key []byte, entity any, ok bool, height uint64) (types.StateQueryResult, error) {
	if !ok {
		return types.StateQueryResult{
			Code:   uint32(KindNotFound),
			Info:   "no such entity",
			Height: height,
		}, nil
	}
	data, err := json.Marshal(entity)
	if err != nil {
		return types.StateQueryResult{}, fmt.Errorf("marshal entity: %w", err)
	}
	return types.StateQueryResult{
		Key:    key,
		Value:  data,
		Height: height,
	}, nil
}

// ---------------------------------------------------------------------------
// Simulator
// ---------------------------------------------------------------------------

func (app *App) Simulate(_ context.Context, tx types.Tx) (types.TxOutcome, error) {
	app.mu.RLock()
	s := app.current.clone()
	now := types.Timestamp{} // simulation has no block time; expiry checks see genesis time
	app.mu.RUnlock()

	return executeTx(s, 0, tx, now), nil
}

// ---------------------------------------------------------------------------
// StateSync
// ---------------------------------------------------------------------------

const snapshotFormat uint32 = 1
const snapshotChunkSize = 64 * 1024 // 64 KiB per chunk

// compressState serializes and zstd-compresses the committed state.
func compressState(s *state) ([]byte, error) {
	data, err := s.marshal()
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("init compressor: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}

func (app *App) AvailableSnapshots(_ context.Context) ([]types.SnapshotDescriptor, error) {
	app.mu.RLock()
	defer app.mu.RUnlock()

	if app.current.Height == 0 {
		return nil, nil
	}

	blob, err := compressState(app.current)
	if err != nil {
		return nil, err
	}

	hash := sha256.Sum256(blob)
	nChunks := (uint32(len(blob)) + snapshotChunkSize - 1) / snapshotChunkSize

	return []types.SnapshotDescriptor{{
		Height:   app.current.Height,
		Format:   snapshotFormat,
		Chunks:   nChunks,
		Hash:     types.Hash(hash),
		Metadata: []byte("zstd"),
	}}, nil
}

func (app *App) ExportSnapshot(_ context.Context, height uint64, format uint32) (<-chan types.SnapshotChunk, *types.SnapshotDescriptor, error) {
	app.mu.RLock()
	defer app.mu.RUnlock()

	if format != snapshotFormat {
		return nil, nil, fmt.Errorf("unsupported snapshot format %d", format)
	}
	if app.current.Height != height {
		return nil, nil, fmt.Errorf("snapshot at height %d not available (current: %d)", height, app.current.Height)
	}

	blob, err := compressState(app.current)
	if err != nil {
		return nil, nil, err
	}

	hash := sha256.Sum256(blob)
	nChunks := (uint32(len(blob)) + snapshotChunkSize - 1) / snapshotChunkSize

	desc := &types.SnapshotDescriptor{
		Height:   height,
		Format:   snapshotFormat,
		Chunks:   nChunks,
		Hash:     types.Hash(hash),
		Metadata: []byte("zstd"),
	}

	ch := make(chan types.SnapshotChunk, nChunks)
	go func() {
		defer close(ch)
		for i := uint32(0); i < nChunks; i++ {
			start := i * snapshotChunkSize
			end := start + snapshotChunkSize
			if int(end) > len(blob) {
				end = uint32(len(blob))
			}
			ch <- types.SnapshotChunk{
				Index: i,
				Data:  blob[start:end],
			}
		}
	}()

	return ch, desc, nil
}

func (app *App) ImportSnapshot(_ context.Context, descriptor types.SnapshotDescriptor, chunks <-chan types.SnapshotChunk) (types.ImportResult, error) {
	if descriptor.Format != snapshotFormat {
		return types.ImportResult{
			Status: types.ImportReject,
			Reason: fmt.Sprintf("unsupported format %d", descriptor.Format),
		}, nil
	}

	received := make(map[uint32][]byte)
	for chunk := range chunks {
		received[chunk.Index] = chunk.Data
	}

	if uint32(len(received)) != descriptor.Chunks {
		var missing []uint32
		for i := uint32(0); i < descriptor.Chunks; i++ {
			if _, ok := received[i]; !ok {
				missing = append(missing, i)
			}
		}
		return types.ImportResult{
			Status:       types.ImportRetryChunks,
			RetryIndices: missing,
		}, nil
	}

	var blob []byte
	for i := uint32(0); i < descriptor.Chunks; i++ {
		blob = append(blob, received[i]...)
	}

	// Integrity check over the compressed blob, before any decoding.
	hash := sha256.Sum256(blob)
	if types.Hash(hash) != descriptor.Hash {
		return types.ImportResult{
			Status: types.ImportReject,
			Reason: "snapshot hash mismatch",
		}, nil
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return types.ImportResult{}, fmt.Errorf("init decompressor: %w", err)
	}
	defer dec.Close()
	data, err := dec.DecodeAll(blob, nil)
	if err != nil {
		return types.ImportResult{
			Status: types.ImportReject,
			Reason: fmt.Sprintf("decompress snapshot: %v", err),
		}, nil
	}

	s, err := unmarshalState(data)
	if err != nil {
		return types.ImportResult{
			Status: types.ImportReject,
			Reason: err.Error(),
		}, nil
	}

	app.mu.Lock()
	app.current = s
	app.mu.Unlock()

	appHash := s.appHash()
	return types.ImportResult{
		Status:  types.ImportOK,
		AppHash: &appHash,
	}, nil
}

// ---------------------------------------------------------------------------
// Internal: transaction execution
// ---------------------------------------------------------------------------

// executeTx dispatches one operation against the working state. Every
// engine validates fully before its first mutation, so a non-nil error
// means the state was not touched.
func executeTx(s *state, index uint32, tx types.Tx, now types.Timestamp) types.TxOutcome {
	if len(tx) < 2 {
		return types.TxOutcome{Index: index, Code: uint32(KindBadRequest), Info: "transaction too short"}
	}

	var (
		events []types.Event
		perr   *Error
	)
	switch tx[0] {
	case TxDeposit:
		var op DepositOp
		if perr = decodePayload(tx, &op); perr == nil {
			events, perr = s.deposit(op)
		}
	case TxCreateVault:
		var op CreateVaultOp
		if perr = decodePayload(tx, &op); perr == nil {
			events, perr = s.createVault(op, now)
		}
	case TxCreateProposal:
		var op CreateProposalOp
		if perr = decodePayload(tx, &op); perr == nil {
			events, perr = s.createProposal(op, now)
		}
	case TxVote:
		var op VoteOp
		if perr = decodePayload(tx, &op); perr == nil {
			events, perr = s.vote(op, now)
		}
	case TxExecuteProposal:
		var op ExecuteProposalOp
		if perr = decodePayload(tx, &op); perr == nil {
			events, perr = s.executeProposal(op, now)
		}
	case TxCreateEscrow:
		var op CreateEscrowOp
		if perr = decodePayload(tx, &op); perr == nil {
			events, perr = s.createEscrow(op, now)
		}
	case TxReleaseMilestone:
		var op ReleaseMilestoneOp
		if perr = decodePayload(tx, &op); perr == nil {
			events, perr = s.releaseMilestone(op, now)
		}
	case TxCreateTerritory:
		var op CreateTerritoryOp
		if perr = decodePayload(tx, &op); perr == nil {
			events, perr = s.createTerritory(op, now)
		}
	case TxOpenContest:
		var op OpenContestOp
		if perr = decodePayload(tx, &op); perr == nil {
			events, perr = s.openContest(op, now)
		}
	case TxResolveContest:
		var op ResolveContestOp
		if perr = decodePayload(tx, &op); perr == nil {
			events, perr = s.resolveContest(op, now)
		}
	default:
		perr = errf(KindBadRequest, "unknown operation 0x%02x", tx[0])
	}

	if perr != nil {
		return types.TxOutcome{Index: index, Code: uint32(perr.Kind), Info: perr.Msg}
	}
	return types.TxOutcome{Index: index, Events: events}
}

// deposit credits a custody account from the external bridge.
func (s *state) deposit(op DepositOp) ([]types.Event, *Error) {
	if op.Account == "" {
		return nil, errf(KindBadRequest, "empty deposit account")
	}
	if op.Amount == 0 {
		return nil, errf(KindOutOfRange, "deposit amount must be positive")
	}
	s.credit(op.Account, op.Amount)
	return []types.Event{{
		Kind: "deposit",
		Attributes: []types.EventAttribute{
			{Key: "account", Value: op.Account, Index: true},
			{Key: "amount", Value: fmt.Sprintf("%d", op.Amount), Index: true},
		},
	}}, nil
}
