package encoder

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	apperrors "go-nft-marker-gen/internal/errors"
	"go-nft-marker-gen/internal/extractor"
	"go-nft-marker-gen/internal/logger"
	"go-nft-marker-gen/pkg/models"

	"github.com/sirupsen/logrus"
)

// Magic numbers of the three companion formats. Little-endian throughout.
var (
	MagicISet  = [4]byte{'A', 'R', 'I', 'S'}
	MagicFSet  = [4]byte{'A', 'R', 'J', 'S'}
	MagicFSet3 = [4]byte{'A', 'R', '3', 'D'}
)

// MarkerEncoder serializes extraction output into the .fset/.fset3/.iset
// companion files under <markersRoot>/<markerName>/. The final directory
// never holds a partial set: payloads go to temp files first and are
// renamed in only after all three writes succeeded.
type MarkerEncoder struct {
	markersRoot string

	// writeFile is a seam for fault-injection tests.
	writeFile func(path string, data []byte) error
}

// NewMarkerEncoder creates an encoder rooted at markersRoot.
func NewMarkerEncoder(markersRoot string) *MarkerEncoder {
	return &MarkerEncoder{
		markersRoot: markersRoot,
		writeFile:   writeAndSync,
	}
}

// Encode writes the three marker files atomically and returns the artifact
// description. Any failure leaves the marker directory without a partial
// file set.
func (e *MarkerEncoder) Encode(markerName string, res *extractor.Result) (models.MarkerArtifact, error) {
	if err := validateMarkerName(markerName); err != nil {
		return models.MarkerArtifact{}, err
	}
	if len(res.Levels) == 0 || len(res.Levels) > 255 {
		return models.MarkerArtifact{}, apperrors.NewEncodingError(
			fmt.Sprintf("level count %d outside the encodable range [1,255]", len(res.Levels)), nil)
	}

	dir := filepath.Join(e.markersRoot, markerName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return models.MarkerArtifact{}, apperrors.NewEncodingError("creating marker directory", err)
	}

	payloads := map[string][]byte{
		"iset":  encodeISet(res),
		"fset":  encodeFSet(res),
		"fset3": encodeFSet3(res),
	}

	// Fixed write order keeps logs and fault-injection tests predictable.
	exts := []string{"iset", "fset", "fset3"}

	tempPaths := make(map[string]string, len(exts))
	for _, ext := range exts {
		temp := filepath.Join(dir, markerName+"."+ext+".tmp")
		if err := e.writeFile(temp, payloads[ext]); err != nil {
			removeAll(tempPaths)
			os.Remove(temp)
			return models.MarkerArtifact{}, apperrors.NewEncodingError(
				fmt.Sprintf("writing %s payload", ext), err)
		}
		tempPaths[ext] = temp
	}

	finalPaths := make(map[string]string, len(exts))
	for _, ext := range exts {
		final := filepath.Join(dir, markerName+"."+ext)
		if err := os.Rename(tempPaths[ext], final); err != nil {
			removeAll(finalPaths)
			removeAll(tempPaths)
			return models.MarkerArtifact{}, apperrors.NewEncodingError(
				fmt.Sprintf("renaming %s payload into place", ext), err)
		}
		delete(tempPaths, ext)
		finalPaths[ext] = final
	}

	logger.WithFields(logrus.Fields{
		"marker": markerName,
		"levels": len(res.Levels),
		"width":  res.Width,
		"height": res.Height,
	}).Info("Marker artifact encoded")

	return models.MarkerArtifact{
		MarkerName:  markerName,
		Levels:      len(res.Levels),
		FSetPath:    finalPaths["fset"],
		FSet3Path:   finalPaths["fset3"],
		ISetPath:    finalPaths["iset"],
		Width:       res.Width,
		Height:      res.Height,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// encodeISet packs the pyramid imagery: magic, levelCount:u8, then per
// level width:u16, height:u16, dpi:f32 and the raw grayscale pixels.
func encodeISet(res *extractor.Result) []byte {
	buf := &bytes.Buffer{}
	buf.Write(MagicISet[:])
	buf.WriteByte(uint8(len(res.Levels)))

	for _, lf := range res.Levels {
		binary.Write(buf, binary.LittleEndian, uint16(lf.Level.Width))
		binary.Write(buf, binary.LittleEndian, uint16(lf.Level.Height))
		binary.Write(buf, binary.LittleEndian, float32(lf.Level.Dpi))

		gray := lf.Level.Gray
		for y := 0; y < lf.Level.Height; y++ {
			row := gray.Pix[y*gray.Stride : y*gray.Stride+lf.Level.Width]
			buf.Write(row)
		}
	}
	return buf.Bytes()
}

// encodeFSet packs the per-level feature records: magic, levelCount:u8,
// then per level featureCount:u32 and x:f32, y:f32, strength:f32 per
// feature.
func encodeFSet(res *extractor.Result) []byte {
	buf := &bytes.Buffer{}
	buf.Write(MagicFSet[:])
	buf.WriteByte(uint8(len(res.Levels)))

	for _, lf := range res.Levels {
		binary.Write(buf, binary.LittleEndian, uint32(len(lf.Points)))
		for _, p := range lf.Points {
			binary.Write(buf, binary.LittleEndian, float32(p.X))
			binary.Write(buf, binary.LittleEndian, float32(p.Y))
			binary.Write(buf, binary.LittleEndian, float32(p.Strength))
		}
	}
	return buf.Bytes()
}

// encodeFSet3 packs the same per-level records as .fset plus the
// fixed-length viewing-angle descriptor per feature.
func encodeFSet3(res *extractor.Result) []byte {
	buf := &bytes.Buffer{}
	buf.Write(MagicFSet3[:])
	buf.WriteByte(uint8(len(res.Levels)))

	for _, lf := range res.Levels {
		binary.Write(buf, binary.LittleEndian, uint32(len(lf.Points)))
		for _, p := range lf.Points {
			binary.Write(buf, binary.LittleEndian, float32(p.X))
			binary.Write(buf, binary.LittleEndian, float32(p.Y))
			binary.Write(buf, binary.LittleEndian, float32(p.Strength))

			desc := computeDescriptor(lf.Level.Gray, int(p.X), int(p.Y))
			binary.Write(buf, binary.LittleEndian, desc[:])
		}
	}
	return buf.Bytes()
}

func validateMarkerName(name string) error {
	if name == "" {
		return apperrors.NewValidationError("marker name must not be empty", nil)
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return apperrors.NewValidationError(
			fmt.Sprintf("marker name %q must not contain path separators", name), nil)
	}
	return nil
}

// writeAndSync writes data to path and flushes it to durable storage.
func writeAndSync(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func removeAll(paths map[string]string) {
	for _, p := range paths {
		os.Remove(p)
	}
}
