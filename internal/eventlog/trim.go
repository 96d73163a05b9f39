package eventlog

import (
	"context"
	"time"

	"github.com/cockroachdb/pebble"
)

// HeaderTimestampExtractor extracts a write timestamp (ms) from an event header.
// Returns (ms, true) if present and valid.
type HeaderTimestampExtractor func(header []byte) (int64, bool)

// TrimOlderThan deletes entries with header timestamp < cutoffMs. Deletes are
// committed in batches of up to batchLimit keys with an optional throttle
// between commits. Returns the number of deleted entries.
func (l *Log) TrimOlderThan(ctx context.Context, cutoffMs int64, batchLimit int, throttle time.Duration, tsx HeaderTimestampExtractor) (int, error) {
	if batchLimit <= 0 {
		batchLimit = 1024
	}

	low := KeyLogEntry(l.namespace, l.topic, l.part, 0)
	hi := KeyLogEntry(l.namespace, l.topic, l.part, ^uint64(0))
	iter, err := l.db.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: append(hi, 0x00)})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	deleted := 0
	for ok := iter.First(); ok; {
		b := l.db.NewBatch()
		n := 0
		for ok && n < batchLimit {
			dec, okDec := DecodeRecord(iter.Value())
			if okDec {
				if ms, okTs := tsx(dec.Header); okTs && ms < cutoffMs {
					if err := b.Delete(iter.Key(), nil); err != nil {
						b.Close()
						return deleted, err
					}
					deleted++
					n++
					ok = iter.Next()
					continue
				}
			}
			// stop when we reach an entry newer than cutoff
			ok = false
			break
		}
		if n > 0 {
			if err := l.db.CommitBatch(ctx, b); err != nil {
				b.Close()
				return deleted, err
			}
			b.Close()
			if throttle > 0 {
				time.Sleep(throttle)
			}
		} else {
			b.Close()
		}
	}
	return deleted, nil
}

// TrimToMaxBytes approximates retention by total value bytes. If current
// bytes <= maxBytes, it is a no-op. Otherwise, deletes the oldest entries
// until total bytes <= maxBytes. Batched and throttled like TrimOlderThan.
func (l *Log) TrimToMaxBytes(ctx context.Context, maxBytes int64, batchLimit int, throttle time.Duration) (int, error) {
	if batchLimit <= 0 {
		batchLimit = 1024
	}
	if maxBytes < 0 {
		return 0, nil
	}

	low := KeyLogEntry(l.namespace, l.topic, l.part, 0)
	hi := KeyLogEntry(l.namespace, l.topic, l.part, ^uint64(0))
	iter, err := l.db.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: append(hi, 0x00)})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	var total int64
	for ok := iter.First(); ok; ok = iter.Next() {
		total += int64(len(iter.Value()))
	}
	if total <= maxBytes {
		return 0, nil
	}

	deleted := 0
	for ok := iter.First(); ok && total > maxBytes; {
		b := l.db.NewBatch()
		n := 0
		for ok && n < batchLimit && total > maxBytes {
			valLen := int64(len(iter.Value()))
			if err := b.Delete(iter.Key(), nil); err != nil {
				b.Close()
				return deleted, err
			}
			total -= valLen
			deleted++
			n++
			ok = iter.Next()
		}
		if n > 0 {
			if err := l.db.CommitBatch(ctx, b); err != nil {
				b.Close()
				return deleted, err
			}
			b.Close()
			if throttle > 0 {
				time.Sleep(throttle)
			}
		} else {
			b.Close()
		}
	}
	return deleted, nil
}
