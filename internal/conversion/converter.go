package conversion

import (
	"image"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// ImageNet channel statistics. The model was trained on inputs normalized
// with these values, so every tensor this package produces uses them.
var (
	imagenetMean = [3]float32{0.485, 0.456, 0.406}
	imagenetStd  = [3]float32{0.229, 0.224, 0.225}
)

// Tensor is a preprocessed model input in NHWC layout: [1, Size, Size, 3].
type Tensor struct {
	Data []float32
	Size int
}

// Shape returns the ONNX input shape of the tensor.
func (t *Tensor) Shape() []int64 {
	return []int64{1, int64(t.Size), int64(t.Size), 3}
}

// Converter prepares validated images for the inference engine: bicubic
// resize to the model resolution, scale to [0,1], ImageNet normalization,
// NHWC layout. A Converter is stateless and safe for concurrent use.
type Converter struct {
	targetSize int
}

func NewConverter(targetSize int) *Converter {
	return &Converter{targetSize: targetSize}
}

// TargetSize returns the square model input resolution.
func (c *Converter) TargetSize() int {
	return c.targetSize
}

// ToTensor converts a decoded image into a normalized input tensor.
// Non-square images are stretched, not cropped, matching the training
// pipeline of the model.
func (c *Converter) ToTensor(img image.Image) (*Tensor, error) {
	if img == nil {
		return nil, errors.New("cannot convert nil image")
	}

	size := c.targetSize
	resized := resize.Resize(uint(size), uint(size), img, resize.Bicubic)
	bounds := resized.Bounds()
	if bounds.Dx() != size || bounds.Dy() != size {
		return nil, errors.Errorf("resize produced %dx%d, expected %dx%d", bounds.Dx(), bounds.Dy(), size, size)
	}

	data := make([]float32, size*size*3)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, g, b, _ := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			base := (y*size + x) * 3
			data[base+0] = (float32(r)/65535.0 - imagenetMean[0]) / imagenetStd[0]
			data[base+1] = (float32(g)/65535.0 - imagenetMean[1]) / imagenetStd[1]
			data[base+2] = (float32(b)/65535.0 - imagenetMean[2]) / imagenetStd[2]
		}
	}
	return &Tensor{Data: data, Size: size}, nil
}

// SyntheticTensor returns a deterministic mid-gray input, used to warm the
// inference session before the first real request.
func SyntheticTensor(size int) *Tensor {
	data := make([]float32, size*size*3)
	for i := 0; i < len(data); i += 3 {
		data[i+0] = (0.5 - imagenetMean[0]) / imagenetStd[0]
		data[i+1] = (0.5 - imagenetMean[1]) / imagenetStd[1]
		data[i+2] = (0.5 - imagenetMean[2]) / imagenetStd[2]
	}
	return &Tensor{Data: data, Size: size}
}
