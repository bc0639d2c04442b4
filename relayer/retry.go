package relayer

import (
	"time"

	retry "github.com/avast/retry-go/v4"
)

// Retry options shared by every bounded retry in this package, mirroring
// the RtyAtt/RtyDel/RtyErr trio the teacher's own query.go declares
// alongside its retry.Do calls. The delay between attempts is always
// zero (no backoff and no random jitter): spec.md §5 states retries are
// immediate.
const RtyAttNum = uint(MaxRetries)

var (
	RtyAtt = retry.Attempts(RtyAttNum)
	RtyDel = retry.DelayType(func(uint, error, *retry.Config) time.Duration { return 0 })
	RtyErr = retry.LastErrorOnly(true)
)

// Phase 1 and 2 of the handshake (SPEC_FULL.md §4, retry policy) charge the retry
// budget on every failed attempt, so they're implemented with retry.Do
// directly. Phase 3 cannot use it: a query error there must not consume
// the budget, so it's a hand-rolled loop in connection.go instead.
