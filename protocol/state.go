package protocol

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/blockberries/founders/types"
)

// state is the full custody ledger at one height. It is serialized
// with encoding/json for both the app hash and durable snapshots, so
// every field is exported with a json tag. Map keys are strings and
// encoding/json sorts them, which keeps serialization deterministic.
type state struct {
	Height uint64 `json:"height"`

	// Balances maps custody account names to unit balances.
	// Personal accounts are hex identities; shared custody uses the
	// "vault/" and "escrow/" prefixes.
	Balances map[string]uint64 `json:"balances"`

	Vaults      map[string]*Vault     `json:"vaults"`
	Proposals   map[string]*Proposal  `json:"proposals"`
	Escrows     map[string]*Escrow    `json:"escrows"`
	Territories map[string]*Territory `json:"territories"`
	Contests    map[string]*Contest   `json:"contests"`
}

func newState() *state {
	return &state{
		Balances:    make(map[string]uint64),
		Vaults:      make(map[string]*Vault),
		Proposals:   make(map[string]*Proposal),
		Escrows:     make(map[string]*Escrow),
		Territories: make(map[string]*Territory),
		Contests:    make(map[string]*Contest),
	}
}

// clone returns a deep copy. Execution mutates the clone; the committed
// state stays untouched until Commit swaps them.
func (s *state) clone() *state {
	c := &state{
		Height:      s.Height,
		Balances:    make(map[string]uint64, len(s.Balances)),
		Vaults:      make(map[string]*Vault, len(s.Vaults)),
		Proposals:   make(map[string]*Proposal, len(s.Proposals)),
		Escrows:     make(map[string]*Escrow, len(s.Escrows)),
		Territories: make(map[string]*Territory, len(s.Territories)),
		Contests:    make(map[string]*Contest, len(s.Contests)),
	}
	for k, v := range s.Balances {
		c.Balances[k] = v
	}
	for k, v := range s.Vaults {
		vv := *v
		vv.Founders = append([]types.Identity(nil), v.Founders...)
		c.Vaults[k] = &vv
	}
	for k, p := range s.Proposals {
		pp := *p
		pp.Votes = append([]Vote(nil), p.Votes...)
		if p.ExecutedAt != nil {
			t := *p.ExecutedAt
			pp.ExecutedAt = &t
		}
		c.Proposals[k] = &pp
	}
	for k, e := range s.Escrows {
		ee := *e
		ee.Milestones = make([]Milestone, len(e.Milestones))
		for i, m := range e.Milestones {
			if m.ReleasedAt != nil {
				t := *m.ReleasedAt
				m.ReleasedAt = &t
			}
			ee.Milestones[i] = m
		}
		c.Escrows[k] = &ee
	}
	for k, t := range s.Territories {
		tt := *t
		c.Territories[k] = &tt
	}
	for k, ct := range s.Contests {
		cc := *ct
		if ct.ResolvedAt != nil {
			t := *ct.ResolvedAt
			cc.ResolvedAt = &t
		}
		c.Contests[k] = &cc
	}
	return c
}

// appHash fingerprints the state. encoding/json emits map keys in
// sorted order, so equal states hash equal on every replica.
func (s *state) appHash() types.AppHash {
	data, err := json.Marshal(s)
	if err != nil {
		panic(fmt.Sprintf("founders/protocol: state marshal: %v", err))
	}
	return sha256.Sum256(data)
}

// marshal serializes the state for snapshots and durable storage.
func (s *state) marshal() ([]byte, error) {
	return json.Marshal(s)
}

// unmarshalState rebuilds a state from its serialized form.
func unmarshalState(data []byte) (*state, error) {
	s := newState()
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	return s, nil
}
