package protocol

import (
	"fmt"
	"time"

	"github.com/blockberries/founders/types"
)

const (
	// MaxFounders caps the size of a vault's founder set.
	MaxFounders = 10

	// ProposalTTL is how long a proposal accepts votes after creation.
	ProposalTTL = 7 * 24 * time.Hour
)

// createVault validates and applies a CreateVaultOp.
func (s *state) createVault(op CreateVaultOp, now types.Timestamp) ([]types.Event, *Error) {
	if op.TeamID == "" {
		return nil, errf(KindBadRequest, "empty team id")
	}
	if op.Caller.IsZero() {
		return nil, errf(KindBadRequest, "zero caller identity")
	}
	if _, ok := s.Vaults[op.TeamID]; ok {
		return nil, errf(KindAlreadyExists, "vault %s already exists", op.TeamID)
	}
	if len(op.Founders) > MaxFounders {
		return nil, errf(KindTooManyParties, "%d founders exceeds cap of %d", len(op.Founders), MaxFounders)
	}
	seen := make(map[types.Identity]bool, len(op.Founders))
	for _, f := range op.Founders {
		if f.IsZero() {
			return nil, errf(KindBadRequest, "zero founder identity")
		}
		if seen[f] {
			return nil, errf(KindBadRequest, "duplicate founder %s", f)
		}
		seen[f] = true
	}
	// The creating authority need not be a founder; an empty founder
	// set cannot satisfy any positive threshold.
	if op.Threshold == 0 || int(op.Threshold) > len(op.Founders) {
		return nil, errf(KindInvalidAllocation, "threshold %d out of range for %d founders", op.Threshold, len(op.Founders))
	}

	s.Vaults[op.TeamID] = &Vault{
		TeamID:    op.TeamID,
		Name:      op.Name,
		Founders:  append([]types.Identity(nil), op.Founders...),
		Threshold: op.Threshold,
		IsActive:  true,
		CreatedAt: now,
	}
	return []types.Event{{
		Kind: "vault_created",
		Attributes: []types.EventAttribute{
			{Key: "team_id", Value: op.TeamID},
			{Key: "threshold", Value: fmt.Sprintf("%d", op.Threshold)},
			{Key: "founders", Value: fmt.Sprintf("%d", len(op.Founders))},
		},
	}}, nil
}

// createProposal validates and applies a CreateProposalOp. The proposal
// ID is derived from the vault's monotonic counter.
func (s *state) createProposal(op CreateProposalOp, now types.Timestamp) ([]types.Event, *Error) {
	v, ok := s.Vaults[op.TeamID]
	if !ok {
		return nil, errf(KindNotFound, "vault %s not found", op.TeamID)
	}
	if !v.IsActive {
		return nil, errf(KindInvalidState, "vault %s is inactive", op.TeamID)
	}
	if !v.isFounder(op.Proposer) {
		return nil, errf(KindUnauthorized, "proposer %s is not a founder of %s", op.Proposer, op.TeamID)
	}
	if op.Amount == 0 {
		return nil, errf(KindOutOfRange, "proposal amount must be positive")
	}
	if op.Recipient.IsZero() {
		return nil, errf(KindBadRequest, "zero recipient identity")
	}
	if op.Kind != ProposalTransfer {
		return nil, errf(KindBadRequest, "unknown proposal kind %d", op.Kind)
	}

	v.ProposalCount++
	id := fmt.Sprintf("%s/%d", op.TeamID, v.ProposalCount)
	s.Proposals[id] = &Proposal{
		ID:          id,
		TeamID:      op.TeamID,
		Proposer:    op.Proposer,
		Title:       op.Title,
		Description: op.Description,
		Recipient:   op.Recipient,
		Amount:      op.Amount,
		Kind:        op.Kind,
		Status:      ProposalPending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ProposalTTL),
	}
	return []types.Event{{
		Kind: "proposal_created",
		Attributes: []types.EventAttribute{
			{Key: "proposal_id", Value: id},
			{Key: "team_id", Value: op.TeamID},
			{Key: "amount", Value: fmt.Sprintf("%d", op.Amount)},
			{Key: "recipient", Value: op.Recipient.String()},
		},
	}}, nil
}

// vote validates and applies a VoteOp. Reaching the threshold flips the
// proposal to Approved in the same operation.
func (s *state) vote(op VoteOp, now types.Timestamp) ([]types.Event, *Error) {
	p, ok := s.Proposals[op.ProposalID]
	if !ok {
		return nil, errf(KindNotFound, "proposal %s not found", op.ProposalID)
	}
	v, ok := s.Vaults[p.TeamID]
	if !ok {
		return nil, errf(KindNotFound, "vault %s not found", p.TeamID)
	}
	if !v.isFounder(op.Voter) {
		return nil, errf(KindUnauthorized, "voter %s is not a founder of %s", op.Voter, p.TeamID)
	}
	if p.hasVoted(op.Voter) {
		return nil, errf(KindDuplicateVote, "founder %s already voted on %s", op.Voter, p.ID)
	}
	if p.Status != ProposalPending {
		return nil, errf(KindInvalidState, "proposal %s is %s, not pending", p.ID, p.Status)
	}
	if !now.Before(p.ExpiresAt) {
		return nil, errf(KindExpired, "proposal %s voting window closed", p.ID)
	}

	p.Votes = append(p.Votes, Vote{Voter: op.Voter, Support: op.Support, Timestamp: now})

	events := []types.Event{{
		Kind: "vote_cast",
		Attributes: []types.EventAttribute{
			{Key: "proposal_id", Value: p.ID},
			{Key: "voter", Value: op.Voter.String()},
			{Key: "support", Value: fmt.Sprintf("%t", op.Support)},
		},
	}}
	if p.supportVotes() >= int(v.Threshold) {
		p.Status = ProposalApproved
		events = append(events, types.Event{
			Kind: "proposal_approved",
			Attributes: []types.EventAttribute{
				{Key: "proposal_id", Value: p.ID},
				{Key: "support_votes", Value: fmt.Sprintf("%d", p.supportVotes())},
			},
		})
	}
	return events, nil
}

// executeProposal moves funds for an approved proposal, exactly once.
func (s *state) executeProposal(op ExecuteProposalOp, now types.Timestamp) ([]types.Event, *Error) {
	p, ok := s.Proposals[op.ProposalID]
	if !ok {
		return nil, errf(KindNotFound, "proposal %s not found", op.ProposalID)
	}
	if p.Status != ProposalApproved {
		return nil, errf(KindInvalidState, "proposal %s is %s, not approved", p.ID, p.Status)
	}
	if err := s.transfer(VaultAccount(p.TeamID), AccountOf(p.Recipient), p.Amount); err != nil {
		return nil, err
	}
	p.Status = ProposalExecuted
	executed := now
	p.ExecutedAt = &executed
	return []types.Event{{
		Kind: "proposal_executed",
		Attributes: []types.EventAttribute{
			{Key: "proposal_id", Value: p.ID},
			{Key: "team_id", Value: p.TeamID},
			{Key: "recipient", Value: p.Recipient.String()},
			{Key: "amount", Value: fmt.Sprintf("%d", p.Amount)},
		},
	}}, nil
}
