package protocol

import "github.com/blockberries/founders/types"

// Custody account naming. Personal accounts are hex identities; shared
// custody accounts are prefixed so they can never collide with a
// 64-hex-character identity string.

// AccountOf returns the personal custody account of an identity.
func AccountOf(id types.Identity) string {
	return id.String()
}

// VaultAccount returns the shared custody account backing a team vault.
func VaultAccount(teamID string) string {
	return "vault/" + teamID
}

// EscrowAccount returns the shared custody account backing an escrow.
func EscrowAccount(questID string) string {
	return "escrow/" + questID
}

// balance returns the units held by an account. Missing accounts hold
// zero.
func (s *state) balance(account string) uint64 {
	return s.Balances[account]
}

// credit adds units to an account, creating it if needed.
func (s *state) credit(account string, amount uint64) {
	s.Balances[account] += amount
}

// transfer moves units between custody accounts. It fails without
// mutating anything if the source cannot cover the amount.
func (s *state) transfer(from, to string, amount uint64) *Error {
	if s.Balances[from] < amount {
		return errf(KindTransferFailed, "account %s holds %d, needs %d", from, s.Balances[from], amount)
	}
	s.Balances[from] -= amount
	s.Balances[to] += amount
	return nil
}
