package eventlog

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/cockroachdb/pebble"
)

// Token encodes a read position as the last consumed seq (8 bytes big-endian).
// The zero token means "before the first entry".
type Token [8]byte

// TokenFromSeq builds a token positioned after seq.
func TokenFromSeq(seq uint64) Token { var t Token; binary.BigEndian.PutUint64(t[:], seq); return t }

// Seq returns the sequence the token points past.
func (t Token) Seq() uint64 { return binary.BigEndian.Uint64(t[:]) }

type ReadOptions struct {
	After   Token // read entries strictly newer than this position
	Limit   int
	Reverse bool
}

type Item struct {
	Partition uint32
	Seq       uint64
	Header    []byte
	Payload   []byte
}

// Read returns up to Limit items after opts.After. Reverse scans descending
// from the newest entry.
func (l *Log) Read(opts ReadOptions) []Item {
	low := KeyLogEntry(l.namespace, l.topic, l.part, 0)
	hi := KeyLogEntry(l.namespace, l.topic, l.part, ^uint64(0))

	items := make([]Item, 0, maxInt(1, opts.Limit))
	iter, err := l.db.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: append(hi, 0x00)})
	if err != nil {
		return items
	}
	defer iter.Close()

	keyLen := len(low)
	decode := func() (Item, bool) {
		seq := binary.BigEndian.Uint64(iter.Key()[keyLen-8:])
		dec, ok := DecodeRecord(iter.Value())
		if !ok {
			return Item{}, false
		}
		return Item{Partition: l.part, Seq: seq, Header: dec.Header, Payload: dec.Payload}, true
	}

	if opts.Reverse {
		if !iter.Last() {
			return items
		}
		for iter.Valid() && (opts.Limit == 0 || len(items) < opts.Limit) {
			if it, ok := decode(); ok {
				items = append(items, it)
			}
			if !iter.Prev() {
				break
			}
		}
		return items
	}

	startKey := KeyLogEntry(l.namespace, l.topic, l.part, opts.After.Seq()+1)
	if !iter.SeekGE(startKey) {
		return items
	}
	for iter.Valid() && (opts.Limit == 0 || len(items) < opts.Limit) {
		if it, ok := decode(); ok {
			items = append(items, it)
		}
		if !iter.Next() {
			break
		}
	}
	return items
}

// FetchBatch reads up to max items after the given position, waiting up to
// maxWait for appends to fill the batch before returning a partial one. An
// empty result means nothing arrived within the window.
func (l *Log) FetchBatch(ctx context.Context, after Token, max int, maxWait time.Duration) []Item {
	if max <= 0 {
		max = 1
	}
	deadline := time.Now().Add(maxWait)
	for {
		items := l.Read(ReadOptions{After: after, Limit: max})
		if len(items) >= max {
			return items
		}
		remaining := time.Until(deadline)
		if remaining <= 0 || ctx.Err() != nil {
			return items
		}
		// Re-read regardless of wake reason so a near-deadline append is
		// still picked up.
		if !l.WaitForAppend(remaining) {
			return l.Read(ReadOptions{After: after, Limit: max})
		}
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
