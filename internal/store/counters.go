package store

// Counter names maintained from the change feed.
const (
	CounterFollowers  = "followers"
	CounterFollowing  = "following"
	CounterLikes      = "likes"
	CounterLikesGiven = "likesGiven"
)

// AtomicAdd adjusts a named counter on an entity by delta. The adjustment is
// a storage-level merge, so concurrent maintainers compose without a read.
func (s *Store) AtomicAdd(entity, counter string, delta int64) error {
	return s.db.MergeAdd(keyCounter(s.ns, entity, counter), delta)
}

// Counter reads the current value of a named counter, 0 when absent.
func (s *Store) Counter(entity, counter string) (int64, error) {
	return s.db.ReadCounter(keyCounter(s.ns, entity, counter))
}
