package cache

import "fmt"

const (
	HistorySnapshotKey = "copydesk:history"
	StatsSnapshotKey   = "copydesk:stats"
)

func RateLimitKey(bucket string) string {
	return fmt.Sprintf("ratelimit:%s", bucket)
}
