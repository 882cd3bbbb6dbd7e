package fingerprint

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func patternImage(width, height int, seed uint8) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x) + seed, G: uint8(y), B: seed, A: 255})
		}
	}
	return img
}

func uniformImage(width, height int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestHashIsDeterministic(t *testing.T) {
	h := NewHasher()
	img := patternImage(100, 80, 7)

	first := h.Hash(img, 100, 80)
	second := h.Hash(img, 100, 80)

	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
}

func TestHashIgnoresEncoderDifferences(t *testing.T) {
	h := NewHasher()
	src := patternImage(120, 120, 3)

	// Encode the same pixels at two compression levels; decoded pixel data
	// is identical, so the fingerprints must match.
	var fast, best bytes.Buffer
	require.NoError(t, (&png.Encoder{CompressionLevel: png.BestSpeed}).Encode(&fast, src))
	require.NoError(t, (&png.Encoder{CompressionLevel: png.BestCompression}).Encode(&best, src))
	require.NotEqual(t, fast.Bytes(), best.Bytes())

	imgFast, _, err := image.Decode(bytes.NewReader(fast.Bytes()))
	require.NoError(t, err)
	imgBest, _, err := image.Decode(bytes.NewReader(best.Bytes()))
	require.NoError(t, err)

	assert.Equal(t, h.Hash(imgFast, 120, 120), h.Hash(imgBest, 120, 120))
}

func TestHashSeparatesDifferentContent(t *testing.T) {
	h := NewHasher()

	a := h.Hash(patternImage(64, 64, 1), 64, 64)
	b := h.Hash(patternImage(64, 64, 2), 64, 64)

	assert.NotEqual(t, a, b)
}

func TestHashFoldsInOriginalDimensions(t *testing.T) {
	h := NewHasher()
	c := color.NRGBA{R: 40, G: 90, B: 200, A: 255}

	// Both scale to an identical uniform canonical buffer; only the folded
	// dimensions keep them apart.
	small := h.Hash(uniformImage(64, 64, c), 64, 64)
	large := h.Hash(uniformImage(128, 128, c), 128, 128)

	assert.NotEqual(t, small, large)
}

func TestHashIsSafeForConcurrentUse(t *testing.T) {
	h := NewHasher()
	img := patternImage(90, 90, 5)
	want := h.Hash(img, 90, 90)

	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, want, h.Hash(img, 90, 90))
		}()
	}
	wg.Wait()
}
