package svo

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	xxhash "github.com/cespare/xxhash/v2"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/klauspost/compress/zstd"
)

// Compression selects the codec applied to snapshot and pack payloads.
type Compression uint8

const (
	CompNone Compression = 0
	CompZlib Compression = 1
	CompZstd Compression = 2
)

const (
	snapMagic   = "SVOX"
	snapVersion = 1
)

// Snapshot layout:
//
//	magic "SVOX" | ver u8 | comp u8 | maxDepth u8 | sizeUnits u32 |
//	count u32 | payloadLen u32 | xxhash64(raw payload) u64 | payload
//
// The payload is a continuous bitstream, one entry per stored voxel in Morton
// order: key (3*maxDepth bits), material (16), RGBA (4x8, quantized), active
// (1). All integers little-endian.

type snapEntry struct {
	key uint64
	vox Voxel
}

func (t *Octree) keyBits() uint8 { return 3 * t.maxDepth }

// encodePayload serializes all stored voxels as a Morton-ordered bitstream.
func (t *Octree) encodePayload() (payload []byte, count uint32) {
	entries := make([]snapEntry, 0, 64)
	t.walk(0, func(h handle) bool {
		n := t.nodes[h]
		ux := uint32(n.pos[0] / t.leafSize)
		uy := uint32(n.pos[1] / t.leafSize)
		uz := uint32(n.pos[2] / t.leafSize)
		entries = append(entries, snapEntry{key: Morton3D(ux, uy, uz), vox: n.voxel})
		return true
	})
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	bw := newBitPacker()
	kb := t.keyBits()
	for _, e := range entries {
		writeKey(bw, e.key, kb)
		bw.push(uint64(e.vox.Material), 16)
		for c := 0; c < 4; c++ {
			bw.push(uint64(quantizeChannel(e.vox.Color[c])), 8)
		}
		if e.vox.Active {
			bw.push(1, 1)
		} else {
			bw.push(0, 1)
		}
	}
	return bw.finish(), uint32(len(entries))
}

// decodePayload replays a payload of count entries into the (empty) tree.
func (t *Octree) decodePayload(payload []byte, count uint32) error {
	br := newBitUnpacker(payload)
	kb := t.keyBits()
	cells := uint32(1) << t.maxDepth
	for i := uint32(0); i < count; i++ {
		key, err := readKey(br, kb)
		if err != nil {
			return err
		}
		mat, err := br.take(16)
		if err != nil {
			return err
		}
		var color mgl32.Vec4
		for c := 0; c < 4; c++ {
			ch, err := br.take(8)
			if err != nil {
				return err
			}
			color[c] = float32(ch) / 255
		}
		act, err := br.take(1)
		if err != nil {
			return err
		}
		ux, uy, uz := MortonDecode3D(key)
		if ux >= cells || uy >= cells || uz >= cells {
			return fmt.Errorf("voxel key out of range: %d", key)
		}
		pos := mgl32.Vec3{
			float32(ux) * t.leafSize,
			float32(uy) * t.leafSize,
			float32(uz) * t.leafSize,
		}
		t.set(0, pos, Voxel{Material: uint16(mat), Color: color, Active: act == 1}, true)
	}
	return nil
}

// Marshal serializes the tree into a snapshot blob with the given payload
// compression.
func (t *Octree) Marshal(comp Compression) ([]byte, error) {
	payload, count := t.encodePayload()
	sum := xxhash.Sum64(payload)

	stored, err := compressBytes(payload, comp)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	out.WriteString(snapMagic)
	_ = binary.Write(&out, binary.LittleEndian, uint8(snapVersion))
	_ = binary.Write(&out, binary.LittleEndian, uint8(comp))
	_ = binary.Write(&out, binary.LittleEndian, t.maxDepth)
	_ = binary.Write(&out, binary.LittleEndian, uint32(t.size))
	_ = binary.Write(&out, binary.LittleEndian, count)
	_ = binary.Write(&out, binary.LittleEndian, uint32(len(stored)))
	_ = binary.Write(&out, binary.LittleEndian, sum)
	_, _ = out.Write(stored)
	return out.Bytes(), nil
}

// Unmarshal rebuilds a tree from a snapshot blob, verifying the payload
// checksum before replaying entries.
func Unmarshal(data []byte) (*Octree, error) {
	if len(data) < 27 || string(data[:4]) != snapMagic {
		return nil, fmt.Errorf("invalid format or not SVOX")
	}
	r := bytes.NewReader(data[4:])
	var ver, compByte, maxDepth uint8
	var sizeUnits, count, plen uint32
	var sum uint64
	_ = binary.Read(r, binary.LittleEndian, &ver)
	_ = binary.Read(r, binary.LittleEndian, &compByte)
	_ = binary.Read(r, binary.LittleEndian, &maxDepth)
	_ = binary.Read(r, binary.LittleEndian, &sizeUnits)
	_ = binary.Read(r, binary.LittleEndian, &count)
	_ = binary.Read(r, binary.LittleEndian, &plen)
	if err := binary.Read(r, binary.LittleEndian, &sum); err != nil {
		return nil, err
	}
	if ver != snapVersion {
		return nil, fmt.Errorf("unsupported SVOX version: %d", ver)
	}
	stored := make([]byte, plen)
	if _, err := io.ReadFull(r, stored); err != nil {
		return nil, err
	}

	payload, err := decompressBytes(stored, Compression(compByte))
	if err != nil {
		return nil, err
	}
	if xxhash.Sum64(payload) != sum {
		return nil, fmt.Errorf("payload checksum mismatch")
	}

	t, err := New(float32(sizeUnits), int(maxDepth))
	if err != nil {
		return nil, err
	}
	if err := t.decodePayload(payload, count); err != nil {
		return nil, err
	}
	return t, nil
}

// writeKey splits keys wider than 32 bits so each push stays within the
// packer's field-width limit.
func writeKey(bw *bitPacker, key uint64, bits uint8) {
	if bits <= 32 {
		bw.push(key, bits)
		return
	}
	bw.push(key&0xFFFFFFFF, 32)
	bw.push(key>>32, bits-32)
}

func readKey(br *bitUnpacker, bits uint8) (uint64, error) {
	if bits <= 32 {
		return br.take(bits)
	}
	lo, err := br.take(32)
	if err != nil {
		return 0, err
	}
	hi, err := br.take(bits - 32)
	if err != nil {
		return 0, err
	}
	return lo | hi<<32, nil
}

func quantizeChannel(c float32) uint8 {
	if c <= 0 {
		return 0
	}
	if c >= 1 {
		return 255
	}
	return uint8(c*255 + 0.5)
}

func compressBytes(b []byte, comp Compression) ([]byte, error) {
	switch comp {
	case CompNone:
		return b, nil
	case CompZlib:
		var buf bytes.Buffer
		zw, _ := zlib.NewWriterLevel(&buf, zlib.BestCompression)
		if _, err := zw.Write(b); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case CompZstd:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, err
		}
		defer enc.Close()
		return enc.EncodeAll(b, nil), nil
	default:
		return nil, fmt.Errorf("unsupported compression: %d", comp)
	}
}

func decompressBytes(b []byte, comp Compression) ([]byte, error) {
	switch comp {
	case CompNone:
		return b, nil
	case CompZlib:
		zr, err := zlib.NewReader(bytes.NewReader(b))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return io.ReadAll(zr)
	case CompZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return dec.DecodeAll(b, nil)
	default:
		return nil, fmt.Errorf("unsupported compression: %d", comp)
	}
}
