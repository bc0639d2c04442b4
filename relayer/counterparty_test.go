package relayer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	chantypes "github.com/cosmos/ibc-go/v8/modules/core/04-channel/types"
	conntypes "github.com/cosmos/ibc-go/v8/modules/core/03-connection/types"
)

func TestCounterpartyChainFromConnection(t *testing.T) {
	chainA, _, aClient, bClient := setupChains(t)

	chainA.connections["connection-0"] = &conntypes.ConnectionEnd{
		ClientId: aClient.ID(),
		Counterparty: conntypes.Counterparty{
			ClientId:     bClient.ID(),
			ConnectionId: "connection-1",
		},
		State: conntypes.OPEN,
	}

	chainID, err := CounterpartyChainFromConnection(context.Background(), chainA, "connection-0")
	require.NoError(t, err)
	require.Equal(t, ChainID("chain-b"), chainID)
}

func TestConnectionStateOnDestinationKnownCounterparty(t *testing.T) {
	chainA, chainB, aClient, bClient := setupChains(t)

	chainB.connections["connection-1"] = &conntypes.ConnectionEnd{
		ClientId: bClient.ID(),
		Counterparty: conntypes.Counterparty{
			ClientId:     aClient.ID(),
			ConnectionId: "connection-0",
		},
		State: conntypes.TRYOPEN,
	}
	chainA.connections["connection-0"] = &conntypes.ConnectionEnd{
		ClientId: aClient.ID(),
		Counterparty: conntypes.Counterparty{
			ClientId:     bClient.ID(),
			ConnectionId: "connection-1",
		},
		State: conntypes.INIT,
	}

	probe := &conntypes.IdentifiedConnectionEnd{
		ConnectionId: "connection-0",
		ClientId:     aClient.ID(),
		Counterparty: chainA.connections["connection-0"].Counterparty,
		State:        conntypes.INIT,
	}

	state, err := ConnectionStateOnDestination(context.Background(), probe, chainB)
	require.NoError(t, err)
	require.Equal(t, conntypes.TRYOPEN, state)
}

func TestConnectionStateOnDestinationUnknownCounterpartyScans(t *testing.T) {
	_, chainB, aClient, bClient := setupChains(t)

	// chainB has a TryOpen end mirroring chainA's Init end, but chainA
	// does not yet know chainB's connection id.
	chainB.connections["connection-5"] = &conntypes.ConnectionEnd{
		ClientId: bClient.ID(),
		Counterparty: conntypes.Counterparty{
			ClientId:     aClient.ID(),
			ConnectionId: "connection-2",
		},
		State: conntypes.TRYOPEN,
	}

	probe := &conntypes.IdentifiedConnectionEnd{
		ConnectionId: "connection-2",
		ClientId:     aClient.ID(),
		Counterparty: conntypes.Counterparty{ClientId: bClient.ID()}, // no connection id yet
		State:        conntypes.INIT,
	}

	state, err := ConnectionStateOnDestination(context.Background(), probe, chainB)
	require.NoError(t, err)
	require.Equal(t, conntypes.TRYOPEN, state)
}

func TestConnectionStateOnDestinationNoMirrorYet(t *testing.T) {
	_, chainB, aClient, bClient := setupChains(t)

	probe := &conntypes.IdentifiedConnectionEnd{
		ConnectionId: "connection-2",
		ClientId:     aClient.ID(),
		Counterparty: conntypes.Counterparty{ClientId: bClient.ID()},
		State:        conntypes.INIT,
	}

	state, err := ConnectionStateOnDestination(context.Background(), probe, chainB)
	require.NoError(t, err)
	require.Equal(t, conntypes.UNINITIALIZED, state)
}

func TestQueryChannelConnectionClientRejectsMultiHop(t *testing.T) {
	chainA, _, aClient, bClient := setupChains(t)

	chainA.connections["connection-0"] = &conntypes.ConnectionEnd{
		ClientId: aClient.ID(),
		Counterparty: conntypes.Counterparty{
			ClientId:     bClient.ID(),
			ConnectionId: "connection-1",
		},
		State: conntypes.OPEN,
	}
	chainA.channels["transfer/channel-0"] = &chantypes.Channel{
		State:          chantypes.OPEN,
		ConnectionHops: []string{"connection-0", "connection-1"},
		Counterparty:   chantypes.Counterparty{PortId: "transfer", ChannelId: "channel-1"},
	}

	_, err := QueryChannelConnectionClient(context.Background(), chainA, "transfer", "channel-0")
	require.ErrorIs(t, err, ErrMissingConnectionHops)
}

func TestCounterpartyChainFromChannel(t *testing.T) {
	chainA, _, aClient, bClient := setupChains(t)

	chainA.connections["connection-0"] = &conntypes.ConnectionEnd{
		ClientId: aClient.ID(),
		Counterparty: conntypes.Counterparty{
			ClientId:     bClient.ID(),
			ConnectionId: "connection-1",
		},
		State: conntypes.OPEN,
	}
	chainA.channels["transfer/channel-0"] = &chantypes.Channel{
		State:          chantypes.OPEN,
		ConnectionHops: []string{"connection-0"},
		Counterparty:   chantypes.Counterparty{PortId: "transfer", ChannelId: "channel-1"},
	}

	chainID, err := CounterpartyChainFromChannel(context.Background(), chainA, "transfer", "channel-0")
	require.NoError(t, err)
	require.Equal(t, ChainID("chain-b"), chainID)
}

func TestCheckChannelCounterpartyRejectsMismatch(t *testing.T) {
	chainA, _, _, _ := setupChains(t)

	chainA.channels["transfer/channel-0"] = &chantypes.Channel{
		State:        chantypes.OPEN,
		Counterparty: chantypes.Counterparty{PortId: "transfer", ChannelId: "channel-1"},
	}

	err := CheckChannelCounterparty(context.Background(), chainA, "transfer", "channel-0", "transfer", "channel-9")
	require.ErrorIs(t, err, ErrMismatchChannelEnds)
}

func TestCheckChannelCounterpartyRejectsUninitialized(t *testing.T) {
	chainA, _, _, _ := setupChains(t)

	chainA.channels["transfer/channel-0"] = &chantypes.Channel{State: chantypes.UNINITIALIZED}

	err := CheckChannelCounterparty(context.Background(), chainA, "transfer", "channel-0", "transfer", "channel-1")
	require.ErrorIs(t, err, ErrChannelUninitialized)
}

func TestChannelOnDestinationScansWhenCounterpartyUnknown(t *testing.T) {
	_, chainB, _, _ := setupChains(t)

	chainB.channels["transfer/channel-7"] = &chantypes.Channel{
		State:          chantypes.TRYOPEN,
		ConnectionHops: []string{"connection-5"},
		Counterparty:   chantypes.Counterparty{PortId: "transfer", ChannelId: "channel-0"},
	}

	probe := &chantypes.IdentifiedChannel{
		PortId:         "transfer",
		ChannelId:      "channel-0",
		ConnectionHops: []string{"connection-0"},
		Counterparty:   chantypes.Counterparty{PortId: "transfer"},
	}

	state, err := ChannelStateOnDestination(context.Background(), probe, "connection-5", chainB)
	require.NoError(t, err)
	require.Equal(t, chantypes.TRYOPEN, state)
}
