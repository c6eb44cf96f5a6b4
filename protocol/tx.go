package protocol

import (
	"fmt"

	"github.com/blockberries/cramberry/pkg/cramberry"

	"github.com/blockberries/founders/types"
)

// Operation prefix bytes. A transaction is one prefix byte followed by
// the cramberry-marshaled operation payload. Each payload carries the
// caller's authenticated identity; signature verification happens
// upstream in the engine, so by execution time the identity is trusted.
const (
	TxDeposit byte = 0x01

	TxCreateVault     byte = 0x10
	TxCreateProposal  byte = 0x11
	TxVote            byte = 0x12
	TxExecuteProposal byte = 0x13

	TxCreateEscrow     byte = 0x20
	TxReleaseMilestone byte = 0x21

	TxCreateTerritory byte = 0x30
	TxOpenContest     byte = 0x31
	TxResolveContest  byte = 0x32
)

// DepositOp credits a custody account from the external asset bridge.
// The account may be personal (a hex identity) or shared custody
// (a "vault/" or "escrow/" name).
type DepositOp struct {
	Account string `cramberry:"1"`
	Amount  uint64 `cramberry:"2"`
}

// CreateVaultOp opens a new team vault.
type CreateVaultOp struct {
	Caller    types.Identity   `cramberry:"1"`
	TeamID    string           `cramberry:"2"`
	Name      string           `cramberry:"3"`
	Founders  []types.Identity `cramberry:"4"`
	Threshold uint8            `cramberry:"5"`
}

// CreateProposalOp proposes a fund movement out of a vault.
type CreateProposalOp struct {
	Proposer    types.Identity `cramberry:"1"`
	TeamID      string         `cramberry:"2"`
	Title       string         `cramberry:"3"`
	Description string         `cramberry:"4"`
	Recipient   types.Identity `cramberry:"5"`
	Amount      uint64         `cramberry:"6"`
	Kind        ProposalKind   `cramberry:"7"`
}

// VoteOp casts a founder's ballot on a pending proposal.
type VoteOp struct {
	Voter      types.Identity `cramberry:"1"`
	ProposalID string         `cramberry:"2"`
	Support    bool           `cramberry:"3"`
}

// ExecuteProposalOp performs the fund movement of an approved
// proposal. Authorization comes from the Approved state, not from the
// caller, so the payload carries no identity.
type ExecuteProposalOp struct {
	ProposalID string `cramberry:"1"`
}

// MilestoneSpec declares one milestone at escrow creation.
type MilestoneSpec struct {
	Title       string `cramberry:"1"`
	Description string `cramberry:"2"`
	Percentage  uint16 `cramberry:"3"`
}

// CreateEscrowOp funds a new sponsor escrow. The deposit from the
// sponsor's account is atomic with entity creation.
type CreateEscrowOp struct {
	Sponsor     types.Identity  `cramberry:"1"`
	QuestID     string          `cramberry:"2"`
	TotalAmount uint64          `cramberry:"3"`
	Milestones  []MilestoneSpec `cramberry:"4"`
}

// ReleaseMilestoneOp releases one milestone's share to the recipient.
// The recipient is supplied per call by the release authority.
type ReleaseMilestoneOp struct {
	QuestID   string         `cramberry:"1"`
	Index     uint32         `cramberry:"2"`
	Recipient types.Identity `cramberry:"3"`
}

// CreateTerritoryOp registers a new contestable territory.
type CreateTerritoryOp struct {
	Caller      types.Identity `cramberry:"1"`
	TerritoryID string         `cramberry:"2"`
	Name        string         `cramberry:"3"`
	Description string         `cramberry:"4"`
	X           int32          `cramberry:"5"`
	Y           int32          `cramberry:"6"`
	Size        uint32         `cramberry:"7"`
	Difficulty  uint8          `cramberry:"8"`
	MaxTeams    uint16         `cramberry:"9"`
	URI         string         `cramberry:"10"`
}

// OpenContestOp opens a contest against a territory.
type OpenContestOp struct {
	Challenger       types.Identity `cramberry:"1"`
	TerritoryID      string         `cramberry:"2"`
	ChallengerTeamID string         `cramberry:"3"`
	Kind             ContestKind    `cramberry:"4"`
	StakeAmount      uint64         `cramberry:"5"`
}

// ResolveContestOp records an externally adjudicated result. The
// winner and score are trusted entirely; who may call this is the
// engine's authorization concern.
type ResolveContestOp struct {
	ContestID string         `cramberry:"1"`
	Winner    types.Identity `cramberry:"2"`
	Score     uint32         `cramberry:"3"`
}

// encodeTx prepends the prefix byte to the marshaled payload.
func encodeTx(prefix byte, op any) types.Tx {
	payload, err := cramberry.Marshal(op)
	if err != nil {
		// Operation payloads are plain tagged structs; marshal cannot
		// fail for well-formed inputs.
		panic(fmt.Sprintf("founders/protocol: marshal op 0x%02x: %v", prefix, err))
	}
	tx := make(types.Tx, 1+len(payload))
	tx[0] = prefix
	copy(tx[1:], payload)
	return tx
}

// decodePayload unmarshals the payload portion of a transaction.
func decodePayload(tx types.Tx, op any) *Error {
	if err := cramberry.Unmarshal(tx[1:], op); err != nil {
		return errf(KindBadRequest, "undecodable payload for op 0x%02x: %v", tx[0], err)
	}
	return nil
}

// --- Transaction builders ---

// DepositTx builds a deposit transaction.
func DepositTx(account string, amount uint64) types.Tx {
	return encodeTx(TxDeposit, DepositOp{Account: account, Amount: amount})
}

// CreateVaultTx builds a create-vault transaction.
func CreateVaultTx(caller types.Identity, teamID, name string, founders []types.Identity, threshold uint8) types.Tx {
	return encodeTx(TxCreateVault, CreateVaultOp{
		Caller:    caller,
		TeamID:    teamID,
		Name:      name,
		Founders:  founders,
		Threshold: threshold,
	})
}

// CreateProposalTx builds a create-proposal transaction.
func CreateProposalTx(proposer types.Identity, teamID, title, description string, recipient types.Identity, amount uint64) types.Tx {
	return encodeTx(TxCreateProposal, CreateProposalOp{
		Proposer:    proposer,
		TeamID:      teamID,
		Title:       title,
		Description: description,
		Recipient:   recipient,
		Amount:      amount,
		Kind:        ProposalTransfer,
	})
}

// VoteTx builds a vote transaction.
func VoteTx(voter types.Identity, proposalID string, support bool) types.Tx {
	return encodeTx(TxVote, VoteOp{Voter: voter, ProposalID: proposalID, Support: support})
}

// ExecuteProposalTx builds an execute-proposal transaction.
func ExecuteProposalTx(proposalID string) types.Tx {
	return encodeTx(TxExecuteProposal, ExecuteProposalOp{ProposalID: proposalID})
}

// CreateEscrowTx builds a create-escrow transaction.
func CreateEscrowTx(sponsor types.Identity, questID string, totalAmount uint64, milestones []MilestoneSpec) types.Tx {
	return encodeTx(TxCreateEscrow, CreateEscrowOp{
		Sponsor:     sponsor,
		QuestID:     questID,
		TotalAmount: totalAmount,
		Milestones:  milestones,
	})
}

// ReleaseMilestoneTx builds a release-milestone transaction.
func ReleaseMilestoneTx(questID string, index uint32, recipient types.Identity) types.Tx {
	return encodeTx(TxReleaseMilestone, ReleaseMilestoneOp{
		QuestID:   questID,
		Index:     index,
		Recipient: recipient,
	})
}

// CreateTerritoryTx builds a create-territory transaction.
func CreateTerritoryTx(caller types.Identity, op CreateTerritoryOp) types.Tx {
	op.Caller = caller
	return encodeTx(TxCreateTerritory, op)
}

// OpenContestTx builds an open-contest transaction.
func OpenContestTx(challenger types.Identity, territoryID, challengerTeamID string, kind ContestKind, stake uint64) types.Tx {
	return encodeTx(TxOpenContest, OpenContestOp{
		Challenger:       challenger,
		TerritoryID:      territoryID,
		ChallengerTeamID: challengerTeamID,
		Kind:             kind,
		StakeAmount:      stake,
	})
}

// ResolveContestTx builds a resolve-contest transaction.
func ResolveContestTx(contestID string, winner types.Identity, score uint32) types.Tx {
	return encodeTx(TxResolveContest, ResolveContestOp{
		ContestID: contestID,
		Winner:    winner,
		Score:     score,
	})
}
