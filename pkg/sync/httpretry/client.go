package httpretry

import (
	"time"

	"github.com/ybbus/httpretry"
)

// Client is shared by every API client in pkg/sync. The transaction service
// and public RPC gateways both throttle aggressively, so 429 is retried like
// a transport failure.
var Client = httpretry.NewDefaultClient(
	httpretry.WithMaxRetryCount(8),

	// Retry on any error, 5xx status codes, 0 status codes and 429.
	httpretry.WithRetryPolicy(func(statusCode int, err error) bool {
		return err != nil || statusCode >= 500 || statusCode == 0 || statusCode == 429
	}),

	// Retry with an incremental backoff policy.
	httpretry.WithBackoffPolicy(func(attemptNum int) time.Duration {
		return time.Duration(attemptNum+1) * 3 * time.Second
	}),
)
