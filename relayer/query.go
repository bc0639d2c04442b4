package relayer

import (
	"context"

	"golang.org/x/sync/errgroup"

	conntypes "github.com/cosmos/ibc-go/v8/modules/core/03-connection/types"
)

// queryConnectionPair fetches srcChain and dstChain's connection ends
// concurrently, the same shape as the teacher's QueryConnectionPair:
// Phase 3 re-queries both ends on every iteration, so doing it serially
// would double the per-iteration latency for no benefit.
func queryConnectionPair(ctx context.Context, srcChain, dstChain ChainHandle, srcConnID, dstConnID ConnectionID) (srcEnd, dstEnd *conntypes.ConnectionEnd, err error) {
	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		var err error
		srcEnd, err = srcChain.QueryConnection(egCtx, srcConnID, ZeroHeight())
		return err
	})
	eg.Go(func() error {
		var err error
		dstEnd, err = dstChain.QueryConnection(egCtx, dstConnID, ZeroHeight())
		return err
	})

	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}
	return srcEnd, dstEnd, nil
}
