package relayer

import (
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
)

// ChainID, ClientID, ConnectionID, ChannelID and PortID are ledger-defined
// identifiers with structural equality. They are plain string aliases
// rather than distinct types: every chain handle operation already takes
// and returns them as strings, and introducing a wrapper type here would
// only add casts at every call site without buying any extra safety (the
// cross-chain mixups this spec actually cares about are caught by
// comparing the ChainID the value came from, not by the identifier type).
type (
	ChainID      = string
	ClientID     = string
	ConnectionID = string
	ChannelID    = string
	PortID       = string
)

// Height is an opaque, monotonic per-chain version. ZeroHeight means
// "at the latest committed height".
type Height = clienttypes.Height

// ZeroHeight returns the distinguished height meaning "latest".
func ZeroHeight() Height {
	return clienttypes.ZeroHeight()
}
