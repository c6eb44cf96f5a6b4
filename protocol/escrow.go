package protocol

import (
	"fmt"
	"math/bits"

	"github.com/blockberries/founders/types"
)

// MaxMilestones caps the milestone sequence of an escrow.
const MaxMilestones = 10

// createEscrow validates a CreateEscrowOp, then atomically moves the
// total from the sponsor's account into escrow custody and records the
// entity.
func (s *state) createEscrow(op CreateEscrowOp, now types.Timestamp) ([]types.Event, *Error) {
	if op.QuestID == "" {
		return nil, errf(KindBadRequest, "empty quest id")
	}
	if op.Sponsor.IsZero() {
		return nil, errf(KindBadRequest, "zero sponsor identity")
	}
	if _, ok := s.Escrows[op.QuestID]; ok {
		return nil, errf(KindAlreadyExists, "escrow %s already exists", op.QuestID)
	}
	if op.TotalAmount == 0 {
		return nil, errf(KindOutOfRange, "escrow total must be positive")
	}
	if len(op.Milestones) == 0 {
		return nil, errf(KindBadRequest, "empty milestone sequence")
	}
	if len(op.Milestones) > MaxMilestones {
		return nil, errf(KindTooManyParts, "%d milestones exceeds cap of %d", len(op.Milestones), MaxMilestones)
	}
	// A zero-percentage milestone is legal: it releases nothing but
	// still gates completion.
	var sum uint32
	for i, m := range op.Milestones {
		if m.Percentage > 100 {
			return nil, errf(KindOutOfRange, "milestone %d percentage %d out of range", i, m.Percentage)
		}
		sum += uint32(m.Percentage)
	}
	if sum != 100 {
		return nil, errf(KindInvalidAllocation, "milestone percentages sum to %d, need 100", sum)
	}
	if err := s.transfer(AccountOf(op.Sponsor), EscrowAccount(op.QuestID), op.TotalAmount); err != nil {
		return nil, err
	}

	milestones := make([]Milestone, len(op.Milestones))
	for i, m := range op.Milestones {
		milestones[i] = Milestone{
			Title:       m.Title,
			Description: m.Description,
			Percentage:  m.Percentage,
		}
	}
	s.Escrows[op.QuestID] = &Escrow{
		QuestID:     op.QuestID,
		Sponsor:     op.Sponsor,
		TotalAmount: op.TotalAmount,
		Milestones:  milestones,
		Status:      EscrowActive,
		CreatedAt:   now,
	}
	return []types.Event{{
		Kind: "escrow_created",
		Attributes: []types.EventAttribute{
			{Key: "quest_id", Value: op.QuestID},
			{Key: "sponsor", Value: op.Sponsor.String()},
			{Key: "total_amount", Value: fmt.Sprintf("%d", op.TotalAmount)},
			{Key: "milestones", Value: fmt.Sprintf("%d", len(op.Milestones))},
		},
	}}, nil
}

// milestoneShare computes floor(total * pct / 100) with a full 128-bit
// intermediate so large totals cannot overflow.
func milestoneShare(total uint64, pct uint16) uint64 {
	hi, lo := bits.Mul64(total, uint64(pct))
	// pct <= 100, so hi < 100 and the division cannot trap.
	q, _ := bits.Div64(hi, lo, 100)
	return q
}

// releaseMilestone pays out one milestone's share to the recipient.
// Releasing the last milestone completes the escrow.
func (s *state) releaseMilestone(op ReleaseMilestoneOp, now types.Timestamp) ([]types.Event, *Error) {
	e, ok := s.Escrows[op.QuestID]
	if !ok {
		return nil, errf(KindNotFound, "escrow %s not found", op.QuestID)
	}
	if e.Status != EscrowActive {
		return nil, errf(KindInvalidState, "escrow %s is %s, not active", e.QuestID, e.Status)
	}
	if int(op.Index) >= len(e.Milestones) {
		return nil, errf(KindOutOfRange, "milestone index %d out of range for %d milestones", op.Index, len(e.Milestones))
	}
	m := &e.Milestones[op.Index]
	if m.Released {
		return nil, errf(KindAlreadyReleased, "milestone %d of %s already released", op.Index, e.QuestID)
	}
	if op.Recipient.IsZero() {
		return nil, errf(KindBadRequest, "zero recipient identity")
	}
	amount := milestoneShare(e.TotalAmount, m.Percentage)
	if err := s.transfer(EscrowAccount(e.QuestID), AccountOf(op.Recipient), amount); err != nil {
		return nil, err
	}

	m.Released = true
	released := now
	m.ReleasedAt = &released
	e.ReleasedAmount += amount

	events := []types.Event{{
		Kind: "milestone_released",
		Attributes: []types.EventAttribute{
			{Key: "quest_id", Value: e.QuestID},
			{Key: "index", Value: fmt.Sprintf("%d", op.Index)},
			{Key: "recipient", Value: op.Recipient.String()},
			{Key: "amount", Value: fmt.Sprintf("%d", amount)},
		},
	}}
	if e.allReleased() {
		e.Status = EscrowCompleted
		events = append(events, types.Event{
			Kind: "escrow_completed",
			Attributes: []types.EventAttribute{
				{Key: "quest_id", Value: e.QuestID},
				{Key: "released_amount", Value: fmt.Sprintf("%d", e.ReleasedAmount)},
			},
		})
	}
	return events, nil
}
