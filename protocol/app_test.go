package protocol

import (
	"context"
	"testing"

	"github.com/blockberries/founders"
	"github.com/blockberries/founders/store"
	founderstest "github.com/blockberries/founders/testing"
	"github.com/blockberries/founders/types"
)

func TestApp_Compliance(t *testing.T) {
	founderstest.RunComplianceSuite(t, func() founders.Lifecycle {
		return New()
	})
}

func TestApp_Capabilities(t *testing.T) {
	h := founderstest.NewHarness(t, New())
	resp := h.GenesisDefault()
	if !resp.Capabilities.Has(types.CapStateSync) {
		t.Error("expected CapStateSync")
	}
	if !resp.Capabilities.Has(types.CapSimulation) {
		t.Error("expected CapSimulation")
	}
}

func TestApp_GenesisBalances(t *testing.T) {
	h := founderstest.NewHarness(t, New())
	genesis := founderstest.DefaultGenesis()
	genesis.AppState = []byte(`{"balances": {"` + AccountOf(testIdentity(1)) + `": 2500, "vault/seed-team": 100}}`)
	h.Genesis(genesis)

	if got := queryBalance(t, h, AccountOf(testIdentity(1))); got != 2500 {
		t.Errorf("seeded identity balance = %d, want 2500", got)
	}
	if got := queryBalance(t, h, "vault/seed-team"); got != 100 {
		t.Errorf("seeded vault balance = %d, want 100", got)
	}
}

func TestApp_CheckTxStructural(t *testing.T) {
	h := founderstest.NewHarness(t, New())
	h.GenesisDefault()

	h.MustAcceptTx(DepositTx("someone", 1))
	h.MustAcceptTx(VoteTx(testIdentity(1), "team-1/1", true))

	h.MustRejectTx(types.Tx{0xFF, 0x00})
	h.MustRejectTx(types.Tx{TxDeposit})
	h.MustRejectTx(nil)

	// Admission is structural only. A vote on a proposal that does not
	// exist yet still passes the gate; execution decides its fate.
	v := h.CheckTx(VoteTx(testIdentity(1), "no-such-proposal", true))
	if !v.Accepted() {
		t.Errorf("structurally valid vote rejected: code=%d", v.Code)
	}
}

func TestApp_CheckTxPriorities(t *testing.T) {
	h := founderstest.NewHarness(t, New())
	h.GenesisDefault()

	deposit := h.CheckTx(DepositTx("someone", 1))
	vote := h.CheckTx(VoteTx(testIdentity(1), "t/1", true))
	create := h.CheckTx(CreateTerritoryTx(testIdentity(1), territoryOp("pass", 3)))

	if deposit.Priority <= vote.Priority || vote.Priority <= create.Priority {
		t.Errorf("priority order deposit(%d) > vote(%d) > create(%d) violated",
			deposit.Priority, vote.Priority, create.Priority)
	}
	if vote.Sender != testIdentity(1).String() {
		t.Errorf("vote sender = %q", vote.Sender)
	}
}

// A failing operation in the middle of a block must leave no trace
// while its neighbors apply normally.
func TestApp_PerTxAtomicity(t *testing.T) {
	h := founderstest.NewHarness(t, New())
	h.GenesisDefault()
	sponsor := testIdentity(1)

	outcome := h.ExecuteAndCommit(founderstest.MakeBlock(1,
		DepositTx(AccountOf(sponsor), 1000),
		// Fails the allocation check after the deposit succeeded.
		CreateEscrowTx(sponsor, "quest-1", 500, milestoneSpecs(60, 60)),
		// Still applies on the same working state.
		CreateEscrowTx(sponsor, "quest-2", 500, milestoneSpecs(100)),
	))
	mustOK(t, outcome, 0)
	mustFail(t, outcome, 1, KindInvalidAllocation)
	mustOK(t, outcome, 2)

	if got := queryBalance(t, h, AccountOf(sponsor)); got != 500 {
		t.Errorf("sponsor balance = %d, want 500", got)
	}
	if result := h.Query("/escrow", []byte("quest-1")); result.Code != uint32(KindNotFound) {
		t.Errorf("failed escrow was recorded: code=%d", result.Code)
	}
}

func TestApp_DeterministicAcrossInstances(t *testing.T) {
	blocks := []types.FinalizedBlock{
		founderstest.MakeBlock(1,
			DepositTx(AccountOf(testIdentity(1)), 1000),
			CreateVaultTx(testIdentity(1), "team-1", "n",
				[]types.Identity{testIdentity(1), testIdentity(2)}, 2),
			CreateTerritoryTx(testIdentity(3), territoryOp("pass", 3)),
		),
		founderstest.MakeBlock(2,
			CreateProposalTx(testIdentity(1), "team-1", "t", "d", testIdentity(5), 10),
			OpenContestTx(testIdentity(4), "pass", "team-x", ContestConquest, 5),
			CreateEscrowTx(testIdentity(1), "quest-1", 600, milestoneSpecs(50, 50)),
		),
		founderstest.MakeBlock(3,
			VoteTx(testIdentity(1), "team-1/1", true),
			VoteTx(testIdentity(2), "team-1/1", true),
			ResolveContestTx("pass/1", testIdentity(4), 99),
			ReleaseMilestoneTx("quest-1", 1, testIdentity(6)),
		),
	}

	h1 := founderstest.NewHarness(t, New())
	h1.GenesisDefault()
	h2 := founderstest.NewHarness(t, New())
	h2.GenesisDefault()

	for _, block := range blocks {
		o1 := h1.ExecuteAndCommit(block)
		o2 := h2.ExecuteAndCommit(block)
		if o1.AppHash != o2.AppHash {
			t.Fatalf("height %d: app hash diverged: %x != %x", block.Height, o1.AppHash, o2.AppHash)
		}
	}
}

func TestApp_SimulateDoesNotMutate(t *testing.T) {
	app := New()
	h := founderstest.NewHarness(t, app)
	h.GenesisDefault()
	alice := testIdentity(1)

	h.ExecuteAndCommit(founderstest.MakeBlock(1,
		DepositTx(AccountOf(alice), 1000),
	))

	outcome, err := app.Simulate(context.Background(), DepositTx(AccountOf(alice), 500))
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if !outcome.OK() {
		t.Fatalf("Simulate failed: code=%d info=%s", outcome.Code, outcome.Info)
	}

	// The dry run observed the committed balance but did not change it.
	if got := queryBalance(t, h, AccountOf(alice)); got != 1000 {
		t.Errorf("balance = %d after simulation, want 1000", got)
	}
}

func TestApp_SnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	app1 := New()
	h1 := founderstest.NewHarness(t, app1)
	h1.GenesisDefault()
	alice := testIdentity(1)

	want := h1.ExecuteAndCommit(founderstest.MakeBlock(1,
		DepositTx(AccountOf(alice), 1000),
		CreateTerritoryTx(testIdentity(2), territoryOp("pass", 3)),
	)).AppHash

	snaps, err := app1.AvailableSnapshots(ctx)
	if err != nil {
		t.Fatalf("AvailableSnapshots: %v", err)
	}
	if len(snaps) != 1 || snaps[0].Height != 1 {
		t.Fatalf("unexpected snapshots: %+v", snaps)
	}

	ch, desc, err := app1.ExportSnapshot(ctx, 1, snaps[0].Format)
	if err != nil {
		t.Fatalf("ExportSnapshot: %v", err)
	}
	if desc.Hash != snaps[0].Hash {
		t.Fatal("descriptor hash mismatch between listing and export")
	}

	app2 := New()
	result, err := app2.ImportSnapshot(ctx, *desc, ch)
	if err != nil {
		t.Fatalf("ImportSnapshot: %v", err)
	}
	if result.Status != types.ImportOK {
		t.Fatalf("import status = %v, reason %q", result.Status, result.Reason)
	}
	if result.AppHash == nil || *result.AppHash != want {
		t.Fatalf("imported app hash = %v, want %x", result.AppHash, want)
	}

	qr, err := app2.Query(ctx, types.StateQuery{Path: "/territory", Data: []byte("pass")})
	if err != nil {
		t.Fatalf("Query on imported state: %v", err)
	}
	if qr.Code != 0 {
		t.Fatalf("territory missing after import: code=%d", qr.Code)
	}
}

func TestApp_ImportRejectsCorruptSnapshot(t *testing.T) {
	ctx := context.Background()
	app1 := New()
	h1 := founderstest.NewHarness(t, app1)
	h1.GenesisDefault()
	h1.ExecuteAndCommit(founderstest.MakeBlock(1, DepositTx("someone", 42)))

	ch, desc, err := app1.ExportSnapshot(ctx, 1, 1)
	if err != nil {
		t.Fatalf("ExportSnapshot: %v", err)
	}

	corrupted := make(chan types.SnapshotChunk, desc.Chunks)
	for chunk := range ch {
		if chunk.Index == 0 && len(chunk.Data) > 0 {
			data := append([]byte(nil), chunk.Data...)
			data[0] ^= 0xFF
			chunk.Data = data
		}
		corrupted <- chunk
	}
	close(corrupted)

	result, err := New().ImportSnapshot(ctx, *desc, corrupted)
	if err != nil {
		t.Fatalf("ImportSnapshot: %v", err)
	}
	if result.Status != types.ImportReject {
		t.Fatalf("corrupt snapshot was not rejected: %v", result.Status)
	}
}

func TestApp_StoreBackedRestart(t *testing.T) {
	path := t.TempDir() + "/founders.db"

	st, err := store.Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	h := founderstest.NewHarness(t, New(WithStore(st)))
	h.GenesisDefault()
	alice := testIdentity(1)
	h.ExecuteAndCommit(founderstest.MakeBlock(1, DepositTx(AccountOf(alice), 1000)))
	h.ExecuteAndCommit(founderstest.MakeBlock(2, DepositTx(AccountOf(alice), 500)))
	if err := st.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	// A fresh process reopens the store and resumes from height 2.
	st2, err := store.Open(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer st2.Close()

	h2 := founderstest.NewHarness(t, New(WithStore(st2)))
	resp := h2.Restart(types.BlockID{Height: 2})
	if resp.LastBlock == nil || resp.LastBlock.Height != 2 {
		t.Fatalf("recovered LastBlock = %+v, want height 2", resp.LastBlock)
	}
	if got := queryBalance(t, h2, AccountOf(alice)); got != 1500 {
		t.Errorf("recovered balance = %d, want 1500", got)
	}
}
