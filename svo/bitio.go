package svo

import "io"

// bitPacker appends fields of arbitrary width to a byte stream, LSB first
// with no per-field padding. Snapshot payload fields (Morton key, material,
// color channels, active flag) all go through it so cells cost exactly their
// declared widths.
type bitPacker struct {
	out     []byte
	pending uint64 // bits not yet flushed, low bits first
	fill    uint8  // how many bits of pending are in use
}

func newBitPacker() *bitPacker { return &bitPacker{out: make([]byte, 0, 256)} }

// push appends the low width bits of v. width must stay <= 32 so pending
// cannot overflow between flushes; wider fields are split by the caller.
func (p *bitPacker) push(v uint64, width uint8) {
	p.pending |= (v & ((1 << width) - 1)) << p.fill
	p.fill += width
	for p.fill >= 8 {
		p.out = append(p.out, byte(p.pending))
		p.pending >>= 8
		p.fill -= 8
	}
}

// finish flushes any partial trailing byte and returns the packed stream.
func (p *bitPacker) finish() []byte {
	if p.fill > 0 {
		p.out = append(p.out, byte(p.pending))
		p.pending = 0
		p.fill = 0
	}
	return p.out
}

// bitUnpacker reads back fields written by bitPacker, consuming its input
// slice as it refills.
type bitUnpacker struct {
	rest    []byte
	pending uint64
	fill    uint8
}

func newBitUnpacker(b []byte) *bitUnpacker { return &bitUnpacker{rest: b} }

func (u *bitUnpacker) take(width uint8) (uint64, error) {
	for u.fill < width {
		if len(u.rest) == 0 {
			return 0, io.ErrUnexpectedEOF
		}
		u.pending |= uint64(u.rest[0]) << u.fill
		u.rest = u.rest[1:]
		u.fill += 8
	}
	v := u.pending & ((1 << width) - 1)
	u.pending >>= width
	u.fill -= width
	return v, nil
}
