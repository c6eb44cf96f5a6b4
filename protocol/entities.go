package protocol

import "github.com/blockberries/founders/types"

// Entity structs are serialized with encoding/json both for the
// deterministic app hash and for query responses, so every field
// carries a json tag and map-free ordering is preserved.

// ProposalStatus is the lifecycle state of a spending proposal.
type ProposalStatus uint8

const (
	ProposalPending  ProposalStatus = 1
	ProposalApproved ProposalStatus = 2
	// ProposalRejected is declared for compatibility; no operation
	// produces it.
	ProposalRejected ProposalStatus = 3
	ProposalExecuted ProposalStatus = 4
	// ProposalExpired is declared for compatibility; expiry is checked
	// at vote/execute time, never written back.
	ProposalExpired ProposalStatus = 5
)

func (s ProposalStatus) String() string {
	switch s {
	case ProposalPending:
		return "pending"
	case ProposalApproved:
		return "approved"
	case ProposalRejected:
		return "rejected"
	case ProposalExecuted:
		return "executed"
	case ProposalExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// ProposalKind discriminates what an approved proposal does.
// Only fund transfers exist today.
type ProposalKind uint8

const (
	ProposalTransfer ProposalKind = 1
)

func (k ProposalKind) String() string {
	if k == ProposalTransfer {
		return "transfer"
	}
	return "unknown"
}

// EscrowStatus is the lifecycle state of a sponsor escrow.
type EscrowStatus uint8

const (
	EscrowActive    EscrowStatus = 1
	EscrowCompleted EscrowStatus = 2
	// EscrowCancelled is declared for compatibility; no core operation
	// transitions into it.
	EscrowCancelled EscrowStatus = 3
)

func (s EscrowStatus) String() string {
	switch s {
	case EscrowActive:
		return "active"
	case EscrowCompleted:
		return "completed"
	case EscrowCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// ContestKind is the flavor of a territory contest.
type ContestKind uint8

const (
	ContestConquest ContestKind = 1
	ContestDefense  ContestKind = 2
	ContestRaid     ContestKind = 3
)

func (k ContestKind) String() string {
	switch k {
	case ContestConquest:
		return "conquest"
	case ContestDefense:
		return "defense"
	case ContestRaid:
		return "raid"
	default:
		return "unknown"
	}
}

// ContestStatus is the lifecycle state of a contest.
type ContestStatus uint8

const (
	ContestPending ContestStatus = 1
	// ContestInProgress is declared for compatibility; no operation
	// transitions into it.
	ContestInProgress ContestStatus = 2
	ContestCompleted  ContestStatus = 3
	// ContestCancelled is declared for compatibility.
	ContestCancelled ContestStatus = 4
)

func (s ContestStatus) String() string {
	switch s {
	case ContestPending:
		return "pending"
	case ContestInProgress:
		return "in_progress"
	case ContestCompleted:
		return "completed"
	case ContestCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Vault is a shared custody account controlled by a fixed founder set.
// Moving funds out requires Threshold supporting votes on a proposal.
type Vault struct {
	TeamID        string           `json:"team_id"`
	Name          string           `json:"name"`
	Founders      []types.Identity `json:"founders"`
	Threshold     uint8            `json:"threshold"`
	ProposalCount uint64           `json:"proposal_count"`
	IsActive      bool             `json:"is_active"`
	CreatedAt     types.Timestamp  `json:"created_at"`
}

// isFounder reports whether id belongs to the vault's founder set.
func (v *Vault) isFounder(id types.Identity) bool {
	for _, f := range v.Founders {
		if f == id {
			return true
		}
	}
	return false
}

// Vote is a single founder's immutable ballot on a proposal.
type Vote struct {
	Voter     types.Identity  `json:"voter"`
	Support   bool            `json:"support"`
	Timestamp types.Timestamp `json:"timestamp"`
}

// Proposal is a proposed fund movement out of a vault's custody.
type Proposal struct {
	ID          string           `json:"id"`
	TeamID      string           `json:"team_id"`
	Proposer    types.Identity   `json:"proposer"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Recipient   types.Identity   `json:"recipient"`
	Amount      uint64           `json:"amount"`
	Kind        ProposalKind     `json:"kind"`
	Votes       []Vote           `json:"votes"`
	Status      ProposalStatus   `json:"status"`
	CreatedAt   types.Timestamp  `json:"created_at"`
	ExpiresAt   types.Timestamp  `json:"expires_at"`
	ExecutedAt  *types.Timestamp `json:"executed_at,omitempty"`
}

// hasVoted reports whether id already cast a ballot, regardless of
// its support value.
func (p *Proposal) hasVoted(id types.Identity) bool {
	for _, v := range p.Votes {
		if v.Voter == id {
			return true
		}
	}
	return false
}

// supportVotes counts supporting ballots.
func (p *Proposal) supportVotes() int {
	n := 0
	for _, v := range p.Votes {
		if v.Support {
			n++
		}
	}
	return n
}

// Milestone is a fixed percentage-share of an escrow's total,
// releasable exactly once.
type Milestone struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Percentage  uint16           `json:"percentage"`
	Released    bool             `json:"released"`
	ReleasedAt  *types.Timestamp `json:"released_at,omitempty"`
}

// Escrow is a custody account funded once by a sponsor and released
// incrementally against milestone percentages.
type Escrow struct {
	QuestID        string          `json:"quest_id"`
	Sponsor        types.Identity  `json:"sponsor"`
	TotalAmount    uint64          `json:"total_amount"`
	ReleasedAmount uint64          `json:"released_amount"`
	Milestones     []Milestone     `json:"milestones"`
	Status         EscrowStatus    `json:"status"`
	CreatedAt      types.Timestamp `json:"created_at"`
}

// allReleased reports whether every milestone has been released.
func (e *Escrow) allReleased() bool {
	for _, m := range e.Milestones {
		if !m.Released {
			return false
		}
	}
	return true
}

// Territory is an abstract contestable resource with at most one
// current owner. Owner is the sole contested field; the battle
// counters are attributed to the territory, not to any claimant.
type Territory struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	X            int32           `json:"x"`
	Y            int32           `json:"y"`
	Size         uint32          `json:"size"`
	Difficulty   uint8           `json:"difficulty"`
	MaxTeams     uint16          `json:"max_teams"`
	CurrentTeams uint16          `json:"current_teams"`
	URI          string          `json:"uri"`
	Owner        types.Identity  `json:"owner"` // zero = unclaimed
	BattlesWon   uint32          `json:"battles_won"`
	BattlesLost  uint32          `json:"battles_lost"`
	TotalRewards uint64          `json:"total_rewards"`
	IsActive     bool            `json:"is_active"`
	ContestCount uint64          `json:"contest_count"`
	CreatedAt    types.Timestamp `json:"created_at"`
}

// Contest is an adjudicated challenge for ownership of a territory.
// Defender is the territory's owner captured at creation time, a
// snapshot that is never re-read at resolution.
type Contest struct {
	ID               string           `json:"id"`
	TerritoryID      string           `json:"territory_id"`
	Challenger       types.Identity   `json:"challenger"`
	ChallengerTeamID string           `json:"challenger_team_id"`
	Defender         types.Identity   `json:"defender"` // zero = territory was unclaimed
	Kind             ContestKind      `json:"kind"`
	Status           ContestStatus    `json:"status"`
	StakeAmount      uint64           `json:"stake_amount"`
	Winner           types.Identity   `json:"winner"` // zero until resolved
	Score            uint32           `json:"score"`
	CreatedAt        types.Timestamp  `json:"created_at"`
	ExpiresAt        types.Timestamp  `json:"expires_at"`
	ResolvedAt       *types.Timestamp `json:"resolved_at,omitempty"`
}
