// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mpsclog

import "encoding/binary"

// HeaderSize is the byte-tight, unpadded size of a RecordHeader on the wire.
const HeaderSize = 8 + 4 + 4

// RecordHeader is the fixed header written before every record's payload.
// No alignment padding — records pack byte-tight, per spec.
type RecordHeader struct {
	TimestampNS uint64
	ProducerID  uint32
	PayloadLen  uint32
}

func (h RecordHeader) marshalInto(b []byte) {
	binary.LittleEndian.PutUint64(b[0:8], h.TimestampNS)
	binary.LittleEndian.PutUint32(b[8:12], h.ProducerID)
	binary.LittleEndian.PutUint32(b[12:16], h.PayloadLen)
}

func unmarshalHeader(b []byte) RecordHeader {
	return RecordHeader{
		TimestampNS: binary.LittleEndian.Uint64(b[0:8]),
		ProducerID:  binary.LittleEndian.Uint32(b[8:12]),
		PayloadLen:  binary.LittleEndian.Uint32(b[12:16]),
	}
}

// WriteRecord reserves, writes, and publishes a header+payload record in
// one call. Total record length (header + payload) must not exceed the
// log's capacity.
func WriteRecord(l *Log, p *Producer, timestampNS uint64, producerID uint32, payload []byte) error {
	h := RecordHeader{TimestampNS: timestampNS, ProducerID: producerID, PayloadLen: uint32(len(payload))}
	total := HeaderSize + len(payload)

	off, err := l.Acquire(p, total)
	if err != nil {
		return err
	}
	h.marshalInto(l.arena[off : off+HeaderSize])
	copy(l.arena[off+HeaderSize:], payload)
	l.Publish(p)
	return nil
}

// ReadRecord decodes a header and returns the payload slice, given the byte
// range [offset, offset+n) returned by a preceding Consume. It assumes the
// whole range is exactly one record — use ReadRecordAt when a single
// Consume range may hold several records back to back (the usual case:
// Consume returns a contiguous committed range, not a single record, and
// several producers' WriteRecord calls routinely land in the same range).
func ReadRecord(l *Log, offset, n int) (RecordHeader, []byte) {
	h := unmarshalHeader(l.arena[offset : offset+HeaderSize])
	payload := l.arena[offset+HeaderSize : offset+n]
	return h, payload
}

// ReadRecordAt decodes the single record starting at offset and returns
// its header, payload, and total on-wire length (HeaderSize+len(payload))
// so the caller can advance to the next record within a multi-record
// Consume range. It panics if fewer than HeaderSize bytes remain before
// limit, or if the decoded payload length would run past limit —
// callers should only invoke this with offset within a range Consume
// returned and limit set to that range's end.
func ReadRecordAt(l *Log, offset, limit int) (h RecordHeader, payload []byte, recordLen int) {
	h = unmarshalHeader(l.arena[offset : offset+HeaderSize])
	payloadEnd := offset + HeaderSize + int(h.PayloadLen)
	if payloadEnd > limit {
		panic("mpsclog: ReadRecordAt: record runs past limit")
	}
	payload = l.arena[offset+HeaderSize : payloadEnd]
	return h, payload, HeaderSize + int(h.PayloadLen)
}
