package eventlog

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/golang/snappy"
)

// Record encoding:
//   flags | varint headerLen | header | payload | crc32c(header|payload)
// flagCompressed marks the payload bytes as snappy-compressed. The crc covers
// the stored (possibly compressed) payload so corruption is detected before
// decompression.

const (
	flagNone       byte = 0
	flagCompressed byte = 1 << 0
)

// compressThreshold is the payload size above which snappy compression is
// attempted. Small payloads are stored raw.
const compressThreshold = 512

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

func EncodeRecord(header, payload []byte) []byte {
	flags := flagNone
	stored := payload
	if len(payload) >= compressThreshold {
		if c := snappy.Encode(nil, payload); len(c) < len(payload) {
			flags |= flagCompressed
			stored = c
		}
	}

	out := make([]byte, 0, 11+len(header)+len(stored)+4)
	out = append(out, flags)
	var tmp [10]byte
	n := binary.PutUvarint(tmp[:], uint64(len(header)))
	out = append(out, tmp[:n]...)
	out = append(out, header...)
	out = append(out, stored...)

	crc := crc32.Update(0, castagnoli, header)
	crc = crc32.Update(crc, castagnoli, stored)
	var crcb [4]byte
	binary.BigEndian.PutUint32(crcb[:], crc)
	out = append(out, crcb[:]...)
	return out
}

type Decoded struct {
	Header  []byte
	Payload []byte
}

func DecodeRecord(b []byte) (Decoded, bool) {
	if len(b) < 1+1+4 {
		return Decoded{}, false
	}
	flags := b[0]
	b = b[1:]
	hlen, n := binary.Uvarint(b)
	if n <= 0 {
		return Decoded{}, false
	}
	if int(n)+int(hlen)+4 > len(b) {
		return Decoded{}, false
	}
	header := b[n : n+int(hlen)]
	stored := b[n+int(hlen) : len(b)-4]
	expect := binary.BigEndian.Uint32(b[len(b)-4:])
	crc := crc32.Update(0, castagnoli, header)
	crc = crc32.Update(crc, castagnoli, stored)
	if crc != expect {
		return Decoded{}, false
	}
	payload := append([]byte(nil), stored...)
	if flags&flagCompressed != 0 {
		raw, err := snappy.Decode(nil, stored)
		if err != nil {
			return Decoded{}, false
		}
		payload = raw
	}
	return Decoded{Header: append([]byte(nil), header...), Payload: payload}, true
}
