package protocol

import (
	"encoding/json"
	"testing"

	founderstest "github.com/blockberries/founders/testing"
	"github.com/blockberries/founders/types"
)

func queryEscrow(t *testing.T, h *founderstest.Harness, questID string) Escrow {
	t.Helper()
	result := h.Query("/escrow", []byte(questID))
	if result.Code != 0 {
		t.Fatalf("escrow query failed: code=%d info=%s", result.Code, result.Info)
	}
	var e Escrow
	if err := json.Unmarshal(result.Value, &e); err != nil {
		t.Fatalf("decode escrow: %v", err)
	}
	return e
}

func milestoneSpecs(pcts ...uint16) []MilestoneSpec {
	specs := make([]MilestoneSpec, len(pcts))
	for i, p := range pcts {
		specs[i] = MilestoneSpec{Title: "m", Percentage: p}
	}
	return specs
}

func TestEscrow_CreateValidation(t *testing.T) {
	sponsor := testIdentity(1)

	tests := []struct {
		name       string
		total      uint64
		milestones []MilestoneSpec
		want       Kind
	}{
		{"sum below 100", 1000, milestoneSpecs(30, 30), KindInvalidAllocation},
		{"sum above 100", 1000, milestoneSpecs(60, 60), KindInvalidAllocation},
		{"percentage above 100", 1000, milestoneSpecs(101), KindOutOfRange},
		{"zero total", 0, milestoneSpecs(100), KindOutOfRange},
		{"no milestones", 1000, nil, KindBadRequest},
		{"too many milestones", 1000, milestoneSpecs(10, 10, 10, 10, 10, 10, 10, 10, 10, 5, 5), KindTooManyParts},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := founderstest.NewHarness(t, New())
			h.GenesisDefault()
			h.ExecuteAndCommit(founderstest.MakeBlock(1,
				DepositTx(AccountOf(sponsor), 5000),
			))

			outcome := h.ExecuteAndCommit(founderstest.MakeBlock(2,
				CreateEscrowTx(sponsor, "quest-1", tt.total, tt.milestones),
			))
			mustFail(t, outcome, 0, tt.want)

			// A declined creation must not touch the sponsor's funds.
			if got := queryBalance(t, h, AccountOf(sponsor)); got != 5000 {
				t.Errorf("sponsor balance = %d after failed creation, want 5000", got)
			}
		})
	}
}

func TestEscrow_CreateUnderfundedSponsor(t *testing.T) {
	h := founderstest.NewHarness(t, New())
	h.GenesisDefault()
	sponsor := testIdentity(1)

	outcome := h.ExecuteAndCommit(founderstest.MakeBlock(1,
		DepositTx(AccountOf(sponsor), 500),
		CreateEscrowTx(sponsor, "quest-1", 1000, milestoneSpecs(100)),
	))
	mustOK(t, outcome, 0)
	mustFail(t, outcome, 1, KindTransferFailed)

	// No escrow entity, no fund movement.
	if result := h.Query("/escrow", []byte("quest-1")); result.Code != uint32(KindNotFound) {
		t.Errorf("escrow query code = %d, want %d", result.Code, KindNotFound)
	}
	if got := queryBalance(t, h, AccountOf(sponsor)); got != 500 {
		t.Errorf("sponsor balance = %d, want 500", got)
	}
}

func TestEscrow_ReleaseLifecycle(t *testing.T) {
	h := founderstest.NewHarness(t, New())
	h.GenesisDefault()
	sponsor := testIdentity(1)
	builder := testIdentity(2)

	outcome := h.ExecuteAndCommit(founderstest.MakeBlock(1,
		DepositTx(AccountOf(sponsor), 1000),
		CreateEscrowTx(sponsor, "quest-1", 1000, milestoneSpecs(30, 30, 40)),
	))
	mustOK(t, outcome, 0)
	mustOK(t, outcome, 1)
	if got := queryBalance(t, h, EscrowAccount("quest-1")); got != 1000 {
		t.Fatalf("escrow custody = %d, want 1000", got)
	}

	// Milestones may be released in any order.
	outcome = h.ExecuteAndCommit(founderstest.MakeBlock(2,
		ReleaseMilestoneTx("quest-1", 2, builder),
	))
	mustOK(t, outcome, 0)
	if got := queryBalance(t, h, AccountOf(builder)); got != 400 {
		t.Errorf("builder balance = %d after 40%% release, want 400", got)
	}

	// Double release of the same milestone.
	outcome = h.ExecuteAndCommit(founderstest.MakeBlock(3,
		ReleaseMilestoneTx("quest-1", 0, builder),
		ReleaseMilestoneTx("quest-1", 0, builder),
	))
	mustOK(t, outcome, 0)
	mustFail(t, outcome, 1, KindAlreadyReleased)
	if got := queryBalance(t, h, AccountOf(builder)); got != 700 {
		t.Errorf("builder balance = %d, want 700", got)
	}

	// Releasing the final milestone completes the escrow.
	outcome = h.ExecuteAndCommit(founderstest.MakeBlock(4,
		ReleaseMilestoneTx("quest-1", 1, builder),
	))
	mustOK(t, outcome, 0)
	var completed bool
	for _, e := range outcome.BlockEvents {
		if e.Kind == "escrow_completed" {
			completed = true
		}
	}
	if !completed {
		t.Error("expected escrow_completed event on final release")
	}

	e := queryEscrow(t, h, "quest-1")
	if e.Status != EscrowCompleted {
		t.Errorf("status = %s, want completed", e.Status)
	}
	if e.ReleasedAmount != 1000 {
		t.Errorf("released amount = %d, want 1000", e.ReleasedAmount)
	}

	// A completed escrow accepts no further releases.
	outcome = h.ExecuteAndCommit(founderstest.MakeBlock(5,
		ReleaseMilestoneTx("quest-1", 1, builder),
	))
	mustFail(t, outcome, 0, KindInvalidState)
}

func TestEscrow_FlooredSharesLeaveRemainder(t *testing.T) {
	h := founderstest.NewHarness(t, New())
	h.GenesisDefault()
	sponsor := testIdentity(1)
	builder := testIdentity(2)

	// 105 split 30/30/40 floors to 31+31+42 = 104; the indivisible
	// unit stays in escrow custody.
	outcome := h.ExecuteAndCommit(founderstest.MakeBlock(1,
		DepositTx(AccountOf(sponsor), 105),
		CreateEscrowTx(sponsor, "quest-1", 105, milestoneSpecs(30, 30, 40)),
		ReleaseMilestoneTx("quest-1", 0, builder),
		ReleaseMilestoneTx("quest-1", 1, builder),
		ReleaseMilestoneTx("quest-1", 2, builder),
	))
	for i := 0; i < 5; i++ {
		mustOK(t, outcome, i)
	}

	if got := queryBalance(t, h, AccountOf(builder)); got != 104 {
		t.Errorf("builder balance = %d, want 104", got)
	}
	if got := queryBalance(t, h, EscrowAccount("quest-1")); got != 1 {
		t.Errorf("escrow remainder = %d, want 1", got)
	}
	e := queryEscrow(t, h, "quest-1")
	if e.Status != EscrowCompleted || e.ReleasedAmount != 104 {
		t.Errorf("status=%s released=%d, want completed/104", e.Status, e.ReleasedAmount)
	}
}

func TestEscrow_ZeroPercentageMilestone(t *testing.T) {
	h := founderstest.NewHarness(t, New())
	h.GenesisDefault()
	sponsor := testIdentity(1)
	builder := testIdentity(2)

	// A 0% milestone moves no funds but still counts toward
	// completion.
	outcome := h.ExecuteAndCommit(founderstest.MakeBlock(1,
		DepositTx(AccountOf(sponsor), 500),
		CreateEscrowTx(sponsor, "quest-1", 500, milestoneSpecs(0, 100)),
		ReleaseMilestoneTx("quest-1", 0, builder),
	))
	for i := 0; i < 3; i++ {
		mustOK(t, outcome, i)
	}
	if got := queryBalance(t, h, AccountOf(builder)); got != 0 {
		t.Errorf("builder balance = %d after 0%% release, want 0", got)
	}
	e := queryEscrow(t, h, "quest-1")
	if e.Status != EscrowActive || !e.Milestones[0].Released {
		t.Errorf("unexpected escrow after 0%% release: %+v", e)
	}

	outcome = h.ExecuteAndCommit(founderstest.MakeBlock(2,
		ReleaseMilestoneTx("quest-1", 1, builder),
	))
	mustOK(t, outcome, 0)
	if e := queryEscrow(t, h, "quest-1"); e.Status != EscrowCompleted {
		t.Errorf("status = %s, want completed", e.Status)
	}
}

func TestEscrow_ReleaseValidation(t *testing.T) {
	h := founderstest.NewHarness(t, New())
	h.GenesisDefault()
	sponsor := testIdentity(1)
	builder := testIdentity(2)

	h.ExecuteAndCommit(founderstest.MakeBlock(1,
		DepositTx(AccountOf(sponsor), 1000),
		CreateEscrowTx(sponsor, "quest-1", 1000, milestoneSpecs(50, 50)),
	))

	outcome := h.ExecuteAndCommit(founderstest.MakeBlock(2,
		ReleaseMilestoneTx("missing", 0, builder),
		ReleaseMilestoneTx("quest-1", 2, builder),
		ReleaseMilestoneTx("quest-1", 0, types.Identity{}),
	))
	mustFail(t, outcome, 0, KindNotFound)
	mustFail(t, outcome, 1, KindOutOfRange)
	mustFail(t, outcome, 2, KindBadRequest)

	if got := queryBalance(t, h, EscrowAccount("quest-1")); got != 1000 {
		t.Errorf("escrow custody = %d after failed releases, want 1000", got)
	}
}

func TestMilestoneShare(t *testing.T) {
	tests := []struct {
		total uint64
		pct   uint16
		want  uint64
	}{
		{1000, 30, 300},
		{1000, 100, 1000},
		{105, 30, 31},
		{99, 1, 0},
		{1, 100, 1},
		// A full-range total times 100 overflows 64 bits; the
		// 128-bit intermediate keeps the share exact.
		{1 << 62, 50, 1 << 61},
		{18446744073709551615, 100, 18446744073709551615},
	}
	for _, tt := range tests {
		if got := milestoneShare(tt.total, tt.pct); got != tt.want {
			t.Errorf("milestoneShare(%d, %d) = %d, want %d", tt.total, tt.pct, got, tt.want)
		}
	}
}
