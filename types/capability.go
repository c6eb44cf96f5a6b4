package types

import "strings"

// Capabilities is a bitfield naming the optional interfaces an
// application declared at handshake. The engine only exercises an
// optional interface when its bit is set.
type Capabilities uint8

const (
	CapStateSync  Capabilities = 1 << iota // snapshot export/import
	CapSimulation                          // dry-run execution
)

// Has reports whether every bit in cap is set.
func (c Capabilities) Has(cap Capabilities) bool {
	return c&cap == cap
}

func (c Capabilities) String() string {
	var caps []string
	if c.Has(CapStateSync) {
		caps = append(caps, "StateSync")
	}
	if c.Has(CapSimulation) {
		caps = append(caps, "Simulation")
	}
	if len(caps) == 0 {
		return "none"
	}
	return strings.Join(caps, "|")
}
