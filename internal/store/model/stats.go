package model

// Statistics is a point in time view of the store used by the metrics collector.
type Statistics struct {
	JobsByStatus map[JobStatus]int64
	Policies     int64
}
