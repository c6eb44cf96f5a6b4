package protocol

import (
	"fmt"
	"time"

	"github.com/blockberries/founders/types"
)

// ContestTTL sets a contest's advisory adjudication deadline. No
// operation enforces it; resolution past the deadline still applies.
const ContestTTL = 24 * time.Hour

// createTerritory validates and applies a CreateTerritoryOp. New
// territories start unclaimed.
func (s *state) createTerritory(op CreateTerritoryOp, now types.Timestamp) ([]types.Event, *Error) {
	if op.TerritoryID == "" {
		return nil, errf(KindBadRequest, "empty territory id")
	}
	if op.Caller.IsZero() {
		return nil, errf(KindBadRequest, "zero caller identity")
	}
	if _, ok := s.Territories[op.TerritoryID]; ok {
		return nil, errf(KindAlreadyExists, "territory %s already exists", op.TerritoryID)
	}
	if op.Difficulty < 1 || op.Difficulty > 5 {
		return nil, errf(KindOutOfRange, "difficulty %d out of range 1..5", op.Difficulty)
	}

	s.Territories[op.TerritoryID] = &Territory{
		ID:          op.TerritoryID,
		Name:        op.Name,
		Description: op.Description,
		X:           op.X,
		Y:           op.Y,
		Size:        op.Size,
		Difficulty:  op.Difficulty,
		MaxTeams:    op.MaxTeams,
		URI:         op.URI,
		IsActive:    true,
		CreatedAt:   now,
	}
	return []types.Event{{
		Kind: "territory_created",
		Attributes: []types.EventAttribute{
			{Key: "territory_id", Value: op.TerritoryID},
			{Key: "difficulty", Value: fmt.Sprintf("%d", op.Difficulty)},
		},
	}}, nil
}

// openContest validates and applies an OpenContestOp. The defender is
// the territory's owner at this moment, captured into the contest and
// never re-read.
func (s *state) openContest(op OpenContestOp, now types.Timestamp) ([]types.Event, *Error) {
	t, ok := s.Territories[op.TerritoryID]
	if !ok {
		return nil, errf(KindNotFound, "territory %s not found", op.TerritoryID)
	}
	if !t.IsActive {
		return nil, errf(KindInvalidState, "territory %s is inactive", t.ID)
	}
	if op.Challenger.IsZero() {
		return nil, errf(KindBadRequest, "zero challenger identity")
	}
	// The current owner may challenge their own territory and several
	// pending contests may coexist; each snapshots its own defender.
	switch op.Kind {
	case ContestConquest, ContestDefense, ContestRaid:
	default:
		return nil, errf(KindBadRequest, "unknown contest kind %d", op.Kind)
	}

	t.ContestCount++
	id := fmt.Sprintf("%s/%d", t.ID, t.ContestCount)
	s.Contests[id] = &Contest{
		ID:               id,
		TerritoryID:      t.ID,
		Challenger:       op.Challenger,
		ChallengerTeamID: op.ChallengerTeamID,
		Defender:         t.Owner,
		Kind:             op.Kind,
		Status:           ContestPending,
		StakeAmount:      op.StakeAmount,
		CreatedAt:        now,
		ExpiresAt:        now.Add(ContestTTL),
	}
	return []types.Event{{
		Kind: "territory_challenged",
		Attributes: []types.EventAttribute{
			{Key: "contest_id", Value: id},
			{Key: "territory_id", Value: t.ID},
			{Key: "challenger", Value: op.Challenger.String()},
			{Key: "defender", Value: t.Owner.String()},
		},
	}}, nil
}

// resolveContest records an adjudicated result. The winner and score
// are trusted entirely; a challenger win transfers ownership and any
// other winner leaves the owner in place.
func (s *state) resolveContest(op ResolveContestOp, now types.Timestamp) ([]types.Event, *Error) {
	c, ok := s.Contests[op.ContestID]
	if !ok {
		return nil, errf(KindNotFound, "contest %s not found", op.ContestID)
	}
	if c.Status != ContestPending {
		return nil, errf(KindInvalidState, "contest %s is %s, not pending", c.ID, c.Status)
	}
	t, ok := s.Territories[c.TerritoryID]
	if !ok {
		return nil, errf(KindNotFound, "territory %s not found", c.TerritoryID)
	}

	c.Status = ContestCompleted
	c.Winner = op.Winner
	c.Score = op.Score
	resolved := now
	c.ResolvedAt = &resolved

	if op.Winner == c.Challenger {
		t.Owner = c.Challenger
		t.BattlesWon++
	} else {
		t.BattlesLost++
	}
	return []types.Event{{
		Kind: "contest_resolved",
		Attributes: []types.EventAttribute{
			{Key: "contest_id", Value: c.ID},
			{Key: "territory_id", Value: t.ID},
			{Key: "winner", Value: op.Winner.String()},
			{Key: "owner", Value: t.Owner.String()},
			{Key: "score", Value: fmt.Sprintf("%d", op.Score)},
		},
	}}, nil
}
