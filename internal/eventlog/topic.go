package eventlog

import (
	"context"
	"fmt"

	"github.com/spaolacci/murmur3"

	pebblestore "github.com/step2this/social-media-app-sub010/internal/storage/pebble"
)

// Topic is a partitioned log. A partition key routes deterministically to one
// partition via murmur3, so ordering holds per key while load spreads across
// partitions for high-entropy keys.
type Topic struct {
	namespace string
	name      string
	parts     []*Log
}

// KeyedRecord is an appendable record with its partition key.
type KeyedRecord struct {
	PartitionKey string
	Header       []byte
	Payload      []byte
}

// Position identifies a stored record.
type Position struct {
	Partition uint32
	Seq       uint64
}

// OpenTopic opens all partitions of a topic.
func OpenTopic(db *pebblestore.DB, namespace, name string, partitions int) (*Topic, error) {
	if partitions <= 0 {
		return nil, fmt.Errorf("eventlog: topic %q needs at least one partition", name)
	}
	t := &Topic{namespace: namespace, name: name, parts: make([]*Log, partitions)}
	for i := 0; i < partitions; i++ {
		l, err := OpenLog(db, namespace, name, uint32(i))
		if err != nil {
			return nil, err
		}
		t.parts[i] = l
	}
	return t, nil
}

// Name returns the topic name.
func (t *Topic) Name() string { return t.name }

// Partitions returns the partition count.
func (t *Topic) Partitions() int { return len(t.parts) }

// Partition returns the log for partition i.
func (t *Topic) Partition(i uint32) *Log { return t.parts[i] }

// PartitionFor routes a partition key to its partition.
func (t *Topic) PartitionFor(key string) uint32 {
	return murmur3.Sum32([]byte(key)) % uint32(len(t.parts))
}

// Append writes one record to the partition owning its key.
func (t *Topic) Append(ctx context.Context, rec KeyedRecord) (Position, error) {
	part := t.PartitionFor(rec.PartitionKey)
	seqs, err := t.parts[part].Append(ctx, []AppendRecord{{Header: rec.Header, Payload: rec.Payload}})
	if err != nil {
		return Position{}, err
	}
	return Position{Partition: part, Seq: seqs[0]}, nil
}

// AppendBatch groups records by partition and appends each group atomically.
// Returns one position per input record, in input order. A partition-level
// failure fails the whole call; callers treat that as every record failed.
func (t *Topic) AppendBatch(ctx context.Context, recs []KeyedRecord) ([]Position, error) {
	if len(recs) == 0 {
		return nil, nil
	}
	type slot struct {
		part uint32
		idx  []int
		out  []AppendRecord
	}
	groups := map[uint32]*slot{}
	order := make([]uint32, 0, 4)
	for i, r := range recs {
		part := t.PartitionFor(r.PartitionKey)
		g, ok := groups[part]
		if !ok {
			g = &slot{part: part}
			groups[part] = g
			order = append(order, part)
		}
		g.idx = append(g.idx, i)
		g.out = append(g.out, AppendRecord{Header: r.Header, Payload: r.Payload})
	}

	positions := make([]Position, len(recs))
	for _, part := range order {
		g := groups[part]
		seqs, err := t.parts[part].Append(ctx, g.out)
		if err != nil {
			return nil, err
		}
		for j, origIdx := range g.idx {
			positions[origIdx] = Position{Partition: part, Seq: seqs[j]}
		}
	}
	return positions, nil
}
