package encoder

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// The decode functions read back the three marker formats. They exist for
// round-trip verification and tooling; the WebAR runtime carries its own
// reader.

// ISetLevel is one decoded pyramid level of a .iset file.
type ISetLevel struct {
	Width  int
	Height int
	Dpi    float32
	Pixels []byte
}

// FeatureRecord is one decoded feature of a .fset or .fset3 file. The
// descriptor is nil for .fset records.
type FeatureRecord struct {
	X          float32
	Y          float32
	Strength   float32
	Descriptor []float32
}

// DecodeISet parses a .iset payload.
func DecodeISet(r io.Reader) ([]ISetLevel, error) {
	levelCount, err := readHeader(r, MagicISet)
	if err != nil {
		return nil, err
	}

	levels := make([]ISetLevel, 0, levelCount)
	for i := 0; i < levelCount; i++ {
		var width, height uint16
		var dpi float32
		if err := binary.Read(r, binary.LittleEndian, &width); err != nil {
			return nil, fmt.Errorf("level %d width: %w", i, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &height); err != nil {
			return nil, fmt.Errorf("level %d height: %w", i, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &dpi); err != nil {
			return nil, fmt.Errorf("level %d dpi: %w", i, err)
		}

		pixels := make([]byte, int(width)*int(height))
		if _, err := io.ReadFull(r, pixels); err != nil {
			return nil, fmt.Errorf("level %d pixels: %w", i, err)
		}
		levels = append(levels, ISetLevel{
			Width:  int(width),
			Height: int(height),
			Dpi:    dpi,
			Pixels: pixels,
		})
	}
	return levels, nil
}

// DecodeFSet parses a .fset payload.
func DecodeFSet(r io.Reader) ([][]FeatureRecord, error) {
	return decodeFeatures(r, MagicFSet, 0)
}

// DecodeFSet3 parses a .fset3 payload including descriptors.
func DecodeFSet3(r io.Reader) ([][]FeatureRecord, error) {
	return decodeFeatures(r, MagicFSet3, DescriptorSize)
}

func decodeFeatures(r io.Reader, magic [4]byte, descriptorLen int) ([][]FeatureRecord, error) {
	levelCount, err := readHeader(r, magic)
	if err != nil {
		return nil, err
	}

	levels := make([][]FeatureRecord, 0, levelCount)
	for i := 0; i < levelCount; i++ {
		var count uint32
		if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
			return nil, fmt.Errorf("level %d feature count: %w", i, err)
		}

		records := make([]FeatureRecord, 0, count)
		for j := uint32(0); j < count; j++ {
			var rec FeatureRecord
			if err := binary.Read(r, binary.LittleEndian, &rec.X); err != nil {
				return nil, fmt.Errorf("level %d feature %d: %w", i, j, err)
			}
			if err := binary.Read(r, binary.LittleEndian, &rec.Y); err != nil {
				return nil, fmt.Errorf("level %d feature %d: %w", i, j, err)
			}
			if err := binary.Read(r, binary.LittleEndian, &rec.Strength); err != nil {
				return nil, fmt.Errorf("level %d feature %d: %w", i, j, err)
			}
			if descriptorLen > 0 {
				rec.Descriptor = make([]float32, descriptorLen)
				if err := binary.Read(r, binary.LittleEndian, rec.Descriptor); err != nil {
					return nil, fmt.Errorf("level %d feature %d descriptor: %w", i, j, err)
				}
			}
			records = append(records, rec)
		}
		levels = append(levels, records)
	}
	return levels, nil
}

func readHeader(r io.Reader, magic [4]byte) (int, error) {
	var got [4]byte
	if _, err := io.ReadFull(r, got[:]); err != nil {
		return 0, fmt.Errorf("reading magic: %w", err)
	}
	if !bytes.Equal(got[:], magic[:]) {
		return 0, fmt.Errorf("bad magic %q, want %q", got, magic)
	}

	var levelCount uint8
	if err := binary.Read(r, binary.LittleEndian, &levelCount); err != nil {
		return 0, fmt.Errorf("reading level count: %w", err)
	}
	if levelCount == 0 {
		return 0, fmt.Errorf("level count must be positive")
	}
	return int(levelCount), nil
}
