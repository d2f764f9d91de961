package encoder

import (
	"bytes"
	"errors"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	apperrors "go-nft-marker-gen/internal/errors"
	"go-nft-marker-gen/internal/extractor"
	"go-nft-marker-gen/pkg/models"
)

// testResult builds a small deterministic extraction result.
func testResult(levels int) *extractor.Result {
	res := &extractor.Result{Width: 16, Height: 12}
	for i := 0; i < levels; i++ {
		width, height := 16>>i, 12>>i
		gray := image.NewGray(image.Rect(0, 0, width, height))
		for p := range gray.Pix {
			gray.Pix[p] = uint8((p * 7) % 256)
		}
		lf := extractor.LevelFeatures{
			Level: extractor.Level{
				Index:  i,
				Dpi:    144 - float64(i)*36,
				Width:  width,
				Height: height,
				Gray:   gray,
			},
		}
		for j := 0; j < 3+i; j++ {
			lf.Points = append(lf.Points, models.FeaturePoint{
				X:        float64(j + 2),
				Y:        float64(j + 3),
				Strength: float64(10 - j),
				Level:    i,
			})
		}
		res.Levels = append(res.Levels, lf)
	}
	return res
}

func TestEncodeRoundTrip(t *testing.T) {
	root := t.TempDir()
	enc := NewMarkerEncoder(root)
	res := testResult(3)

	artifact, err := enc.Encode("poster", res)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	if artifact.MarkerName != "poster" || artifact.Levels != 3 {
		t.Errorf("Unexpected artifact metadata: %+v", artifact)
	}
	if artifact.Width != 16 || artifact.Height != 12 {
		t.Errorf("Expected dimensions 16x12, got %dx%d", artifact.Width, artifact.Height)
	}

	isetData, err := os.ReadFile(artifact.ISetPath)
	if err != nil {
		t.Fatalf("Reading iset failed: %v", err)
	}
	isetLevels, err := DecodeISet(bytes.NewReader(isetData))
	if err != nil {
		t.Fatalf("Decoding iset failed: %v", err)
	}
	if len(isetLevels) != 3 {
		t.Fatalf("Expected 3 iset levels, got %d", len(isetLevels))
	}
	for i, lvl := range isetLevels {
		want := res.Levels[i].Level
		if lvl.Width != want.Width || lvl.Height != want.Height {
			t.Errorf("Level %d: expected %dx%d, got %dx%d",
				i, want.Width, want.Height, lvl.Width, lvl.Height)
		}
		if len(lvl.Pixels) != want.Width*want.Height {
			t.Errorf("Level %d: expected %d pixels, got %d",
				i, want.Width*want.Height, len(lvl.Pixels))
		}
	}

	fsetData, err := os.ReadFile(artifact.FSetPath)
	if err != nil {
		t.Fatalf("Reading fset failed: %v", err)
	}
	fsetLevels, err := DecodeFSet(bytes.NewReader(fsetData))
	if err != nil {
		t.Fatalf("Decoding fset failed: %v", err)
	}
	for i, records := range fsetLevels {
		if len(records) != len(res.Levels[i].Points) {
			t.Errorf("Level %d: expected %d features, got %d",
				i, len(res.Levels[i].Points), len(records))
		}
	}

	fset3Data, err := os.ReadFile(artifact.FSet3Path)
	if err != nil {
		t.Fatalf("Reading fset3 failed: %v", err)
	}
	fset3Levels, err := DecodeFSet3(bytes.NewReader(fset3Data))
	if err != nil {
		t.Fatalf("Decoding fset3 failed: %v", err)
	}
	for i, records := range fset3Levels {
		if len(records) != len(res.Levels[i].Points) {
			t.Errorf("Level %d: expected %d fset3 features, got %d",
				i, len(res.Levels[i].Points), len(records))
		}
		for j, rec := range records {
			if len(rec.Descriptor) != DescriptorSize {
				t.Fatalf("Level %d feature %d: expected descriptor length %d, got %d",
					i, j, DescriptorSize, len(rec.Descriptor))
			}
		}
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	res := testResult(2)

	rootA := t.TempDir()
	rootB := t.TempDir()
	artifactA, err := NewMarkerEncoder(rootA).Encode("poster", res)
	if err != nil {
		t.Fatalf("First encode failed: %v", err)
	}
	artifactB, err := NewMarkerEncoder(rootB).Encode("poster", res)
	if err != nil {
		t.Fatalf("Second encode failed: %v", err)
	}

	pairs := [][2]string{
		{artifactA.ISetPath, artifactB.ISetPath},
		{artifactA.FSetPath, artifactB.FSetPath},
		{artifactA.FSet3Path, artifactB.FSet3Path},
	}
	for _, pair := range pairs {
		a, err := os.ReadFile(pair[0])
		if err != nil {
			t.Fatalf("Reading %s failed: %v", pair[0], err)
		}
		b, err := os.ReadFile(pair[1])
		if err != nil {
			t.Fatalf("Reading %s failed: %v", pair[1], err)
		}
		if !bytes.Equal(a, b) {
			t.Errorf("Expected byte-identical output for %s and %s", pair[0], pair[1])
		}
	}
}

func TestEncodeAtomicityOnWriteFailure(t *testing.T) {
	root := t.TempDir()
	enc := NewMarkerEncoder(root)

	// Fail the second of the three payload writes.
	writes := 0
	enc.writeFile = func(path string, data []byte) error {
		writes++
		if writes == 2 {
			return errors.New("disk full")
		}
		return writeAndSync(path, data)
	}

	_, err := enc.Encode("poster", testResult(2))
	if err == nil {
		t.Fatal("Expected encode to fail")
	}
	if !apperrors.IsType(err, apperrors.ErrorTypeEncoding) {
		t.Errorf("Expected encoding error, got %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(root, "poster"))
	if err != nil {
		t.Fatalf("Reading marker directory failed: %v", err)
	}
	for _, entry := range entries {
		t.Errorf("Expected empty marker directory after failed encode, found %s", entry.Name())
	}
}

func TestEncodeMagicNumbers(t *testing.T) {
	root := t.TempDir()
	artifact, err := NewMarkerEncoder(root).Encode("poster", testResult(1))
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	cases := []struct {
		path  string
		magic [4]byte
	}{
		{artifact.ISetPath, MagicISet},
		{artifact.FSetPath, MagicFSet},
		{artifact.FSet3Path, MagicFSet3},
	}
	for _, tc := range cases {
		data, err := os.ReadFile(tc.path)
		if err != nil {
			t.Fatalf("Reading %s failed: %v", tc.path, err)
		}
		if !bytes.HasPrefix(data, tc.magic[:]) {
			t.Errorf("File %s does not start with magic %q", tc.path, tc.magic)
		}
	}
}

func TestEncodeRejectsBadMarkerNames(t *testing.T) {
	enc := NewMarkerEncoder(t.TempDir())
	res := testResult(1)

	for _, name := range []string{"", "a/b", `a\b`, ".", ".."} {
		_, err := enc.Encode(name, res)
		if err == nil {
			t.Errorf("Expected marker name %q to be rejected", name)
			continue
		}
		if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
			t.Errorf("Expected validation error for name %q, got %v", name, err)
		}
	}
}

func TestEncodeRejectsEmptyResult(t *testing.T) {
	enc := NewMarkerEncoder(t.TempDir())

	_, err := enc.Encode("poster", &extractor.Result{})
	if err == nil {
		t.Fatal("Expected encoding error for a result without levels")
	}
	if !apperrors.IsType(err, apperrors.ErrorTypeEncoding) {
		t.Errorf("Expected encoding error, got %v", err)
	}
}

func TestDecodeRejectsWrongMagic(t *testing.T) {
	data := append([]byte("XXXX"), 1)
	if _, err := DecodeISet(bytes.NewReader(data)); err == nil {
		t.Error("Expected iset decode to reject wrong magic")
	}
	if _, err := DecodeFSet(bytes.NewReader(data)); err == nil {
		t.Error("Expected fset decode to reject wrong magic")
	}
	_, err := DecodeFSet3(bytes.NewReader(data))
	if err == nil || !strings.Contains(err.Error(), "magic") {
		t.Errorf("Expected fset3 decode error to mention the magic check, got %v", err)
	}
}
