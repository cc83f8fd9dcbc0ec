package gatewayhttp

import "time"

const rfc3339 = time.RFC3339

func msToDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
