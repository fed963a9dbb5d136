// Package store holds the in-memory domain caches that sit between the
// REST client, the realtime channel, and the UI. Each store owns its
// cache exclusively: REST results, push events, and optimistic local
// mutations all merge through the same store methods, which are the only
// defense against duplication when the two input paths race.
package store

// Status tracks the lifecycle of a store's last fetch.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSucceeded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}
