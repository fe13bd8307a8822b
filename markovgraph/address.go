package markovgraph

import (
	"strconv"
	"strings"

	"github.com/katalvlaran/credgraph/addr"
)

// CorePart is the reserved first address part for every synthesized node
// and edge address (spec.md §6). Input contribution-graph nodes may
// never use it (spec.md §3, §4.5.6).
const CorePart = "core"

// IsCoreAddress reports whether a starts with the reserved core
// namespace.
func IsCoreAddress(a addr.Address) bool {
	return len(a) > 0 && a[0] == CorePart
}

// addrKey returns a string uniquely identifying an address for use as a
// map key. Parts are joined with a separator ("\x1f", ASCII unit
// separator) that cannot appear in a well-formed address part, so two
// distinct part sequences never collide.
func addrKey(a addr.Address) string {
	return strings.Join(a, "\x1f")
}

// epochTag renders an epoch start for embedding in a synthetic address.
func epochTag(epochStartMs int64) string {
	return strconv.FormatInt(epochStartMs, 10)
}

// SeedAddress is the single synthesized seed node's address.
func SeedAddress() addr.Address {
	return addr.Address{CorePart, "SEED"}
}

// AccumulatorAddress is the synthesized epoch-accumulator node address
// for the epoch starting at epochStartMs.
func AccumulatorAddress(epochStartMs int64) addr.Address {
	return addr.Address{CorePart, "EPOCH", epochTag(epochStartMs)}
}

// UserEpochAddress is the synthesized (participant, epoch) node address.
func UserEpochAddress(epochStartMs int64, ownerID string) addr.Address {
	return addr.Address{CorePart, "USER_EPOCH", epochTag(epochStartMs), ownerID}
}

// PayoutAddress is the synthesized payout-edge address from a
// user-epoch node to its epoch accumulator.
func PayoutAddress(epochStartMs int64, ownerID string) addr.Address {
	return addr.Address{CorePart, "fibration", "EPOCH_PAYOUT", epochTag(epochStartMs), ownerID}
}

// WebbingAddress is the synthesized webbing-edge address coupling a
// participant's user-epoch node at thisStartMs to the one at
// lastStartMs (the temporally adjacent epoch in the traversed
// direction).
func WebbingAddress(thisStartMs, lastStartMs int64, ownerID string) addr.Address {
	return addr.Address{CorePart, "fibration", "EPOCH_WEBBING", epochTag(thisStartMs), epochTag(lastStartMs), ownerID}
}

// AttributionAddress is the synthesized personal-attribution edge
// address, from one participant's user-epoch node to another's within
// the same epoch.
func AttributionAddress(epochStartMs int64, fromID, toID string) addr.Address {
	return addr.Address{CorePart, "fibration", "EPOCH_ATTRIBUTION", epochTag(epochStartMs), fromID, toID}
}

// RadiationAddress is the synthesized radiation-edge address returning
// mass from target back to the seed. The target's own address is
// embedded so the edge address round-trips to its source node.
func RadiationAddress(target addr.Address) addr.Address {
	return addr.Address{CorePart, "CONTRIBUTION_RADIATION"}.Append(target...)
}

// MintAddress is the synthesized seed-to-target minting edge address.
func MintAddress(target addr.Address) addr.Address {
	return addr.Address{CorePart, "SEED_MINT"}.Append(target...)
}
