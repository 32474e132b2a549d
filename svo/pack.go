package svo

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	xxhash "github.com/cespare/xxhash/v2"
)

const (
	packMagic   = "SVOXPACK"
	packVersion = 1
)

// PackEntry is one named chunk snapshot inside a pack: the raw voxel payload
// plus its entry count, without the per-file header.
type PackEntry struct {
	Name    string
	Count   uint32
	Payload []byte
}

// Pack bundles snapshots of several chunk octrees that share one
// (size, maxDepth) pair, so the common header is stored once.
type Pack struct {
	SizeUnits uint32
	MaxDepth  uint8
	Entries   []PackEntry
}

// NewPack creates an empty pack for trees of the given geometry. The same
// divisibility rule as New applies.
func NewPack(size float32, maxDepth int) (*Pack, error) {
	if maxDepth < 0 || maxDepth > 20 {
		return nil, fmt.Errorf("maxDepth out of range: %d", maxDepth)
	}
	units := int(size)
	if size <= 0 || float32(units) != size || units%(1<<maxDepth) != 0 {
		return nil, fmt.Errorf("size %g not divisible by 2^%d", size, maxDepth)
	}
	return &Pack{SizeUnits: uint32(units), MaxDepth: uint8(maxDepth)}, nil
}

// Add snapshots t under the given name. The tree's geometry must match the
// pack header.
func (p *Pack) Add(name string, t *Octree) error {
	if uint32(t.size) != p.SizeUnits || t.maxDepth != p.MaxDepth {
		return fmt.Errorf("inconsistent parameters (%s)", name)
	}
	if len(name) > 0xFFFF {
		return fmt.Errorf("name too long: %s", name)
	}
	payload, count := t.encodePayload()
	p.Entries = append(p.Entries, PackEntry{Name: name, Count: count, Payload: payload})
	return nil
}

// Tree rebuilds the octree stored at entry i.
func (p *Pack) Tree(i int) (*Octree, error) {
	if i < 0 || i >= len(p.Entries) {
		return nil, fmt.Errorf("entry index out of range: %d", i)
	}
	t, err := New(float32(p.SizeUnits), int(p.MaxDepth))
	if err != nil {
		return nil, err
	}
	e := p.Entries[i]
	if err := t.decodePayload(e.Payload, e.Count); err != nil {
		return nil, fmt.Errorf("entry %d (%s): %w", i, e.Name, err)
	}
	return t, nil
}

// Marshal encodes the pack, compressing the whole content section with the
// given codec.
//
// Layout: magic "SVOXPACK" | ver u8 | comp u8 | xxhash64(raw content) u64 |
// content. Content: sizeUnits u32 | maxDepth u8 | nEntries u32 | entries,
// each nameLen u16 | name | count u32 | payloadLen u32 | payload.
func (p *Pack) Marshal(comp Compression) ([]byte, error) {
	var content bytes.Buffer
	_ = binary.Write(&content, binary.LittleEndian, p.SizeUnits)
	_ = binary.Write(&content, binary.LittleEndian, p.MaxDepth)
	_ = binary.Write(&content, binary.LittleEndian, uint32(len(p.Entries)))
	for _, e := range p.Entries {
		nb := []byte(e.Name)
		if len(nb) > 0xFFFF {
			return nil, fmt.Errorf("name too long: %s", e.Name)
		}
		_ = binary.Write(&content, binary.LittleEndian, uint16(len(nb)))
		_, _ = content.Write(nb)
		_ = binary.Write(&content, binary.LittleEndian, e.Count)
		_ = binary.Write(&content, binary.LittleEndian, uint32(len(e.Payload)))
		_, _ = content.Write(e.Payload)
	}

	sum := xxhash.Sum64(content.Bytes())
	stored, err := compressBytes(content.Bytes(), comp)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	out.WriteString(packMagic)
	_ = binary.Write(&out, binary.LittleEndian, uint8(packVersion))
	_ = binary.Write(&out, binary.LittleEndian, uint8(comp))
	_ = binary.Write(&out, binary.LittleEndian, sum)
	_, _ = out.Write(stored)
	return out.Bytes(), nil
}

// UnmarshalPack parses a pack blob, returning the pack and the compression it
// was stored with.
func UnmarshalPack(data []byte) (*Pack, Compression, error) {
	if len(data) < 18 || string(data[:8]) != packMagic {
		return nil, 0, fmt.Errorf("invalid format or not SVOXPACK")
	}
	if data[8] != packVersion {
		return nil, 0, fmt.Errorf("unsupported pack version: %d", data[8])
	}
	comp := Compression(data[9])
	sum := binary.LittleEndian.Uint64(data[10:18])

	content, err := decompressBytes(data[18:], comp)
	if err != nil {
		return nil, 0, err
	}
	if xxhash.Sum64(content) != sum {
		return nil, 0, fmt.Errorf("content checksum mismatch")
	}

	r := bytes.NewReader(content)
	p := &Pack{}
	_ = binary.Read(r, binary.LittleEndian, &p.SizeUnits)
	_ = binary.Read(r, binary.LittleEndian, &p.MaxDepth)
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, 0, err
	}
	p.Entries = make([]PackEntry, n)
	for i := uint32(0); i < n; i++ {
		var nameLen uint16
		if err := binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
			return nil, 0, err
		}
		nameBytes := make([]byte, nameLen)
		if _, err := io.ReadFull(r, nameBytes); err != nil {
			return nil, 0, err
		}
		var count, plen uint32
		if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
			return nil, 0, err
		}
		if err := binary.Read(r, binary.LittleEndian, &plen); err != nil {
			return nil, 0, err
		}
		payload := make([]byte, plen)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, 0, err
		}
		p.Entries[i] = PackEntry{Name: string(nameBytes), Count: count, Payload: payload}
	}
	return p, comp, nil
}
