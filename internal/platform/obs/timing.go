package obs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

type ctxKey string

const RequestIDKey ctxKey = "req_id"

// Time returns a deferred closure that logs the duration of an operation,
// tagged with the request id carried in the context.
//
//	defer obs.Time(ctx, "solveRun")(&err)
func Time(ctx context.Context, name string) func(errp *error) {
	start := time.Now()

	reqID, _ := ctx.Value(RequestIDKey).(string)

	return func(errp *error) {
		dur := time.Since(start)

		ev := log.Info()
		if errp != nil && *errp != nil {
			ev = log.Error().Err(*errp)
		}
		ev.Str("req_id", reqID).Str("op", name).Int64("dur_ms", dur.Milliseconds()).Send()
	}
}
