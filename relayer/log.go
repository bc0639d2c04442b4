package relayer

import (
	"go.uber.org/zap"
)

// relayLogger wraps a zap.Logger with the chain/connection context this
// package's callers repeatedly attach, the same way yui-relayer's
// log.RelayLogger composes WithChain/WithChannel helpers on top of its
// structured logger — adapted here to zap's field API (the dependency
// this module's go.mod actually carries) rather than slog.
type relayLogger struct {
	*zap.SugaredLogger
}

var nopLogger = relayLogger{zap.NewNop().Sugar()}

// withConnection scopes a logger to one side of an in-progress handshake.
func withConnection(log *zap.SugaredLogger, side string, chainID ChainID, clientID ClientID, connectionID ConnectionID) *zap.SugaredLogger {
	if log == nil {
		return nopLogger.SugaredLogger
	}
	return log.With(
		zap.String("side", side),
		zap.String("chain_id", chainID),
		zap.String("client_id", clientID),
		zap.String("connection_id", connectionID),
	)
}

// withChainPair scopes a logger to the two chains a connection spans.
func withChainPair(log *zap.SugaredLogger, a, b ChainID) *zap.SugaredLogger {
	if log == nil {
		return nopLogger.SugaredLogger
	}
	return log.With(zap.String("chain_a", a), zap.String("chain_b", b))
}
