package ipmigo

import "fmt"

// Quirk names a known BMC/NIC firmware deviation from the spec this client
// otherwise assumes. Sourced from ipmitool's lanplus driver, which carries
// a `-N`/vendor table of these same names (original_source).
type Quirk uint8

const (
	// QuirkNone assumes strict spec-conforming behavior.
	QuirkNone Quirk = iota

	// QuirkIntelPlus: some Intel BMCs report accepted_character_count 0 on
	// a chunk that was, in fact, fully accepted. Without this quirk that
	// count would be read literally and the whole chunk resent; with it,
	// accepted==0 is treated as non-partial and nothing is resent.
	QuirkIntelPlus

	// QuirkI82571SPT: the 82571 NIC firmware found on some blade chassis
	// management modules needs the console to wait for link before the
	// first Get Channel Authentication Capabilities probe succeeds;
	// callers using this quirk should add a startup delay of their own.
	QuirkI82571SPT

	// QuirkICTS names the conformance-test-suite profile for
	// ICTS-certified BMCs. No code path in this package consults it, so
	// selecting it changes no behavior.
	QuirkICTS
)

func (q Quirk) String() string {
	switch q {
	case QuirkNone:
		return "none"
	case QuirkIntelPlus:
		return "intelplus"
	case QuirkI82571SPT:
		return "i82571spt"
	case QuirkICTS:
		return "icts"
	default:
		return fmt.Sprintf("Unknown(%d)", q)
	}
}
