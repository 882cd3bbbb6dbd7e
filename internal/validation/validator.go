package validation

import (
	"bytes"
	"fmt"
	"image"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// Stage identifies which validation gate rejected an upload.
type Stage string

const (
	StageSignature    Stage = "signature"
	StageIntegrity    Stage = "integrity"
	StageDimensions   Stage = "dimensions"
	StageDecodeSafety Stage = "decode_safety"
)

// Default dimension bounds for uploaded images.
const (
	MinDimension   = 32
	MaxDimension   = 4096
	MaxAspectRatio = 10.0
)

// Magic byte signatures. WebP is not a fixed prefix: it lives in a RIFF
// container, and RIFF alone is shared with WAV/AVI, so the WEBP marker at
// offset 8 must be checked as well.
var (
	jpegSignature = []byte{0xff, 0xd8, 0xff}
	pngSignature  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	gifSignatures = [][]byte{[]byte("GIF87a"), []byte("GIF89a")}

	webpRIFFHeader = []byte("RIFF") // bytes 0..3
	webpMarker     = []byte("WEBP") // bytes 8..11
)

// Outcome is the tagged result of a validation run. Exactly one of the two
// shapes is populated: a valid outcome carries the decoded image plus format
// and dimensions, an invalid one carries the failing stage and reason.
type Outcome struct {
	Valid  bool
	Format string
	Width  int
	Height int
	Image  image.Image

	Stage  Stage
	Reason string
}

// ImageValidator runs the four-stage gate over untrusted upload bytes:
// signature, integrity, dimensions, decode safety. Stages are ordered
// cheapest first and short-circuit on the first failure.
type ImageValidator struct {
	minWidth       int
	minHeight      int
	maxWidth       int
	maxHeight      int
	maxAspectRatio float64
	maxBytes       int64
}

// NewImageValidator creates a validator with the default dimension bounds.
// maxBytes caps the accepted input size before any decode is attempted;
// zero disables the cap.
func NewImageValidator(maxBytes int64) *ImageValidator {
	return &ImageValidator{
		minWidth:       MinDimension,
		minHeight:      MinDimension,
		maxWidth:       MaxDimension,
		maxHeight:      MaxDimension,
		maxAspectRatio: MaxAspectRatio,
		maxBytes:       maxBytes,
	}
}

// Validate runs all stages over data. It is pure: no state is retained
// across calls and concurrent use is safe.
func (v *ImageValidator) Validate(data []byte) Outcome {
	if _, ok := detectFormat(data); !ok {
		return Outcome{
			Valid:  false,
			Stage:  StageSignature,
			Reason: "unrecognized or ambiguous file signature",
		}
	}

	// Bound the byte size before decoding so a compressed bomb cannot force
	// a huge allocation.
	if v.maxBytes > 0 && int64(len(data)) > v.maxBytes {
		return Outcome{
			Valid:  false,
			Stage:  StageIntegrity,
			Reason: fmt.Sprintf("%d bytes exceeds the %d byte decode ceiling", len(data), v.maxBytes),
		}
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Outcome{
			Valid:  false,
			Stage:  StageIntegrity,
			Reason: "image data is truncated or corrupt: " + err.Error(),
		}
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width < v.minWidth || height < v.minHeight {
		return Outcome{
			Valid:  false,
			Stage:  StageDimensions,
			Reason: fmt.Sprintf("image too small (%dx%d), minimum %dx%d required", width, height, v.minWidth, v.minHeight),
		}
	}
	if width > v.maxWidth || height > v.maxHeight {
		return Outcome{
			Valid:  false,
			Stage:  StageDimensions,
			Reason: fmt.Sprintf("image too large (%dx%d), maximum %dx%d allowed", width, height, v.maxWidth, v.maxHeight),
		}
	}
	ratio := float64(width) / float64(height)
	if ratio < 1 {
		ratio = 1 / ratio
	}
	if ratio > v.maxAspectRatio {
		return Outcome{
			Valid:  false,
			Stage:  StageDimensions,
			Reason: fmt.Sprintf("abnormal aspect ratio (%.1f:1), maximum %.0f:1 allowed", ratio, v.maxAspectRatio),
		}
	}

	if !isSupportedColorModel(img) {
		return Outcome{
			Valid:  false,
			Stage:  StageDecodeSafety,
			Reason: fmt.Sprintf("unsupported color mode %T", img),
		}
	}

	return Outcome{
		Valid:  true,
		Format: format,
		Width:  width,
		Height: height,
		Image:  img,
	}
}

// detectFormat matches data against the known container signatures and
// reports the format name. WebP is checked first with the two-field RIFF
// plus WEBP test so other RIFF formats are never misclassified.
func detectFormat(data []byte) (string, bool) {
	if len(data) < 12 {
		return "", false
	}
	if isWebP(data) {
		return "webp", true
	}
	if bytes.HasPrefix(data, jpegSignature) {
		return "jpeg", true
	}
	if bytes.HasPrefix(data, pngSignature) {
		return "png", true
	}
	for _, sig := range gifSignatures {
		if bytes.HasPrefix(data, sig) {
			return "gif", true
		}
	}
	return "", false
}

// isWebP verifies the RIFF container structure:
//
//	bytes  0..3  'RIFF'
//	bytes  4..7  file size (not checked)
//	bytes  8..11 'WEBP'
func isWebP(data []byte) bool {
	if len(data) < 12 {
		return false
	}
	return bytes.Equal(data[0:4], webpRIFFHeader) && bytes.Equal(data[8:12], webpMarker)
}

// isSupportedColorModel accepts the grayscale, YCbCr and RGBA image families.
// Indexed-palette and CMYK images can desync downstream pixel buffers and are
// rejected.
func isSupportedColorModel(img image.Image) bool {
	switch img.(type) {
	case *image.Gray, *image.Gray16,
		*image.YCbCr, *image.NYCbCrA,
		*image.RGBA, *image.NRGBA,
		*image.RGBA64, *image.NRGBA64:
		return true
	default:
		return false
	}
}
