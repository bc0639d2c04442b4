package relayer

import (
	"context"

	errorsmod "cosmossdk.io/errors"
	chantypes "github.com/cosmos/ibc-go/v8/modules/core/04-channel/types"
	ibcexported "github.com/cosmos/ibc-go/v8/modules/core/exported"
	tmclient "github.com/cosmos/ibc-go/v8/modules/light-clients/07-tendermint"

	conntypes "github.com/cosmos/ibc-go/v8/modules/core/03-connection/types"
)

// chainIDFromClientState extracts the concrete chain id a client state
// tracks. This package only ever relays between Tendermint chains, the
// same assumption the teacher's own CastClientStateToTMType makes; a
// client state of any other type is rejected rather than guessed at.
func chainIDFromClientState(cs ibcexported.ClientState) (ChainID, error) {
	tmCs, ok := cs.(*tmclient.ClientState)
	if !ok {
		return "", errorsmod.Wrapf(ErrClientOperation, "unsupported client state type %T", cs)
	}
	return tmCs.ChainId, nil
}

// CounterpartyChainFromConnection returns the id of the chain that the
// client backing connectionID on chain tracks — i.e. the chain on the
// other end of the connection.
func CounterpartyChainFromConnection(ctx context.Context, chain ChainHandle, connectionID ConnectionID) (ChainID, error) {
	connEnd, err := chain.QueryConnection(ctx, connectionID, ZeroHeight())
	if err != nil {
		return "", errorsmod.Wrapf(ErrConnectionQuery, "%s on %s: %s", connectionID, chain.ID(), err)
	}

	client, err := chain.QueryClientState(ctx, connEnd.ClientId, ZeroHeight())
	if err != nil {
		return "", errorsmod.Wrapf(ErrClientOperation, "%s on %s: %s", connEnd.ClientId, chain.ID(), err)
	}

	return chainIDFromClientState(client.ClientState)
}

// connectionOnDestination fetches the connection end counterpartyChain
// holds, translating a not-found lookup into this package's own error
// taxonomy.
func connectionOnDestination(ctx context.Context, counterpartyChain ChainHandle, connectionID ConnectionID) (*conntypes.ConnectionEnd, error) {
	end, err := counterpartyChain.QueryConnection(ctx, connectionID, ZeroHeight())
	if err != nil {
		return nil, errorsmod.Wrapf(ErrConnectionQuery, "%s on %s: %s", connectionID, counterpartyChain.ID(), err)
	}
	return end, nil
}

// ConnectionStateOnDestination reports the state of probe's mirror
// connection on counterpartyChain. When probe does not yet know its
// counterparty's connection id (it is still in Init), every connection
// counterpartyChain holds for the matching client is fetched via
// connections-by-client and scanned for one whose own counterparty names
// probe back; if none does, the mirror connection does not exist yet and
// Uninitialized is reported without error.
func ConnectionStateOnDestination(ctx context.Context, probe *conntypes.IdentifiedConnectionEnd, counterpartyChain ChainHandle) (conntypes.State, error) {
	if probe.Counterparty.ConnectionId != "" {
		end, err := connectionOnDestination(ctx, counterpartyChain, probe.Counterparty.ConnectionId)
		if err != nil {
			return conntypes.UNINITIALIZED, err
		}
		return end.State, nil
	}

	connIDs, err := counterpartyChain.QueryClientConnections(ctx, probe.Counterparty.ClientId)
	if err != nil {
		return conntypes.UNINITIALIZED, errorsmod.Wrapf(ErrChainQuery, "connections for client %s on %s: %s", probe.Counterparty.ClientId, counterpartyChain.ID(), err)
	}

	for _, connID := range connIDs {
		end, err := connectionOnDestination(ctx, counterpartyChain, connID)
		if err != nil {
			return conntypes.UNINITIALIZED, err
		}
		if end.Counterparty.ConnectionId == probe.ConnectionId {
			return end.State, nil
		}
	}
	return conntypes.UNINITIALIZED, nil
}

// ChannelConnectionClient bundles a channel end with the single
// connection it hops over and the client backing that connection, the
// three objects this package's callers repeatedly need together when
// tracing a channel back to its counterparty chain.
type ChannelConnectionClient struct {
	Channel    *chantypes.IdentifiedChannel
	Connection *conntypes.IdentifiedConnectionEnd
	Client     IdentifiedClientState
}

// QueryChannelConnectionClient resolves portID/channelID on chain into
// its ChannelConnectionClient bundle. A channel with zero or more than
// one connection hop is rejected: multi-hop channels are out of scope
// (spec.md §1 Non-goals).
func QueryChannelConnectionClient(ctx context.Context, chain ChainHandle, portID PortID, channelID ChannelID) (ChannelConnectionClient, error) {
	channel, err := chain.QueryChannel(ctx, portID, channelID, ZeroHeight())
	if err != nil {
		return ChannelConnectionClient{}, errorsmod.Wrapf(ErrChainQuery, "channel %s/%s on %s: %s", portID, channelID, chain.ID(), err)
	}
	if channel.State == chantypes.UNINITIALIZED {
		return ChannelConnectionClient{}, errorsmod.Wrapf(ErrChannelUninitialized, "%s/%s on %s", portID, channelID, chain.ID())
	}
	if len(channel.ConnectionHops) != 1 {
		return ChannelConnectionClient{}, errorsmod.Wrapf(ErrMissingConnectionHops, "%s/%s on %s has %d hops", portID, channelID, chain.ID(), len(channel.ConnectionHops))
	}
	connID := channel.ConnectionHops[0]

	connEnd, err := chain.QueryConnection(ctx, connID, ZeroHeight())
	if err != nil {
		return ChannelConnectionClient{}, errorsmod.Wrapf(ErrConnectionQuery, "%s on %s: %s", connID, chain.ID(), err)
	}

	client, err := chain.QueryClientState(ctx, connEnd.ClientId, ZeroHeight())
	if err != nil {
		return ChannelConnectionClient{}, errorsmod.Wrapf(ErrClientOperation, "%s on %s: %s", connEnd.ClientId, chain.ID(), err)
	}

	return ChannelConnectionClient{
		Channel: &chantypes.IdentifiedChannel{
			State:          channel.State,
			Ordering:       channel.Ordering,
			Counterparty:   channel.Counterparty,
			ConnectionHops: channel.ConnectionHops,
			Version:        channel.Version,
			PortId:         portID,
			ChannelId:      channelID,
		},
		Connection: &conntypes.IdentifiedConnectionEnd{
			ConnectionId: connID,
			ClientId:     connEnd.ClientId,
			Counterparty: connEnd.Counterparty,
			State:        connEnd.State,
			Versions:     connEnd.Versions,
			DelayPeriod:  connEnd.DelayPeriod,
		},
		Client: client,
	}, nil
}

// CounterpartyChainFromChannel returns the id of the chain on the other
// end of portID/channelID, by way of the connection and client it hops.
func CounterpartyChainFromChannel(ctx context.Context, chain ChainHandle, portID PortID, channelID ChannelID) (ChainID, error) {
	bundle, err := QueryChannelConnectionClient(ctx, chain, portID, channelID)
	if err != nil {
		return "", err
	}
	return chainIDFromClientState(bundle.Client.ClientState)
}

// fetchChannelOnDestination fetches the channel end counterpartyChain
// holds at portID/channelID.
func fetchChannelOnDestination(ctx context.Context, counterpartyChain ChainHandle, portID PortID, channelID ChannelID) (*chantypes.Channel, error) {
	channel, err := counterpartyChain.QueryChannel(ctx, portID, channelID, ZeroHeight())
	if err != nil {
		return nil, errorsmod.Wrapf(ErrChainQuery, "channel %s/%s on %s: %s", portID, channelID, counterpartyChain.ID(), err)
	}
	return channel, nil
}

// ChannelOnDestination resolves probe's mirror channel on
// counterpartyChain, scanning every channel hopping over
// counterpartyConnectionID when probe does not yet know its
// counterparty's channel id. A nil, nil result means the mirror channel
// does not exist yet.
func ChannelOnDestination(ctx context.Context, probe *chantypes.IdentifiedChannel, counterpartyConnectionID ConnectionID, counterpartyChain ChainHandle) (*chantypes.IdentifiedChannel, error) {
	if probe.Counterparty.ChannelId != "" {
		channel, err := fetchChannelOnDestination(ctx, counterpartyChain, probe.Counterparty.PortId, probe.Counterparty.ChannelId)
		if err != nil {
			return nil, err
		}
		return &chantypes.IdentifiedChannel{
			State:          channel.State,
			Ordering:       channel.Ordering,
			Counterparty:   channel.Counterparty,
			ConnectionHops: channel.ConnectionHops,
			Version:        channel.Version,
			PortId:         probe.Counterparty.PortId,
			ChannelId:      probe.Counterparty.ChannelId,
		}, nil
	}

	channels, err := counterpartyChain.QueryConnectionChannels(ctx, counterpartyConnectionID, AllPages)
	if err != nil {
		return nil, errorsmod.Wrapf(ErrChainQuery, "channels on connection %s of %s: %s", counterpartyConnectionID, counterpartyChain.ID(), err)
	}
	for _, ch := range channels {
		if ch.Counterparty.PortId == probe.PortId && ch.Counterparty.ChannelId == probe.ChannelId {
			return ch, nil
		}
	}
	return nil, nil
}

// ChannelStateOnDestination is ChannelOnDestination narrowed to just the
// state, reporting Uninitialized (without error) when the mirror channel
// does not exist yet.
func ChannelStateOnDestination(ctx context.Context, probe *chantypes.IdentifiedChannel, counterpartyConnectionID ConnectionID, counterpartyChain ChainHandle) (chantypes.State, error) {
	channel, err := ChannelOnDestination(ctx, probe, counterpartyConnectionID, counterpartyChain)
	if err != nil {
		return chantypes.UNINITIALIZED, err
	}
	if channel == nil {
		return chantypes.UNINITIALIZED, nil
	}
	return channel.State, nil
}

// CheckChannelCounterparty validates that the channel end at
// portID/channelID on chain names expectedCounterpartyPortID and
// expectedCounterpartyChannelID as its counterparty, and has not been
// left half-initialized.
func CheckChannelCounterparty(ctx context.Context, chain ChainHandle, portID PortID, channelID ChannelID, expectedCounterpartyPortID PortID, expectedCounterpartyChannelID ChannelID) error {
	channel, err := chain.QueryChannel(ctx, portID, channelID, ZeroHeight())
	if err != nil {
		return errorsmod.Wrapf(ErrChainQuery, "channel %s/%s on %s: %s", portID, channelID, chain.ID(), err)
	}
	if channel.State == chantypes.UNINITIALIZED {
		return errorsmod.Wrapf(ErrChannelUninitialized, "%s/%s on %s", portID, channelID, chain.ID())
	}
	if channel.Counterparty.ChannelId == "" {
		return errorsmod.Wrapf(ErrIncompleteChannelState, "%s/%s on %s", portID, channelID, chain.ID())
	}
	if channel.Counterparty.PortId != expectedCounterpartyPortID || channel.Counterparty.ChannelId != expectedCounterpartyChannelID {
		return errorsmod.Wrapf(ErrMismatchChannelEnds, "%s/%s on %s names counterparty %s/%s, expected %s/%s",
			portID, channelID, chain.ID(), channel.Counterparty.PortId, channel.Counterparty.ChannelId, expectedCounterpartyPortID, expectedCounterpartyChannelID)
	}
	return nil
}
