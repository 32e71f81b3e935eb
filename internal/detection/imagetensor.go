package detection

import (
	"fmt"
	"image"
	_ "image/jpeg" // register JPEG decoding
	_ "image/png"  // register PNG decoding
	"os"

	"github.com/toolkitvision/toolcheck-go/internal/errors"
)

// LoadImageTensor decodes the image at path and returns a float32 slice
// laid out in NHWC order with shape (1, size, size, 3), values normalized
// to [0,1]. The image is resampled to size x size with nearest-neighbor
// scaling, matching the preprocessing the model was trained with.
func LoadImageTensor(path string, size int) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(fmt.Errorf("cannot open image: %w", err)).
			Component(serviceName).
			Category(errors.CategoryFileIO).
			Context("image_path", path).
			Build()
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.New(fmt.Errorf("cannot decode image: %w", err)).
			Component(serviceName).
			Category(errors.CategoryImageProcessing).
			Context("image_path", path).
			Build()
	}

	bounds := img.Bounds()
	srcW := bounds.Dx()
	srcH := bounds.Dy()
	if srcW == 0 || srcH == 0 {
		return nil, errors.Newf("empty image %dx%d", srcW, srcH).
			Component(serviceName).
			Category(errors.CategoryImageProcessing).
			Context("image_path", path).
			Build()
	}

	// NHWC with batch=1: length = 1 * size * size * 3
	out := make([]float32, 1*size*size*3)

	// iterate rows (y) then columns (x) so memory layout matches NHWC
	for y := 0; y < size; y++ {
		srcY := bounds.Min.Y + y*srcH/size
		for x := 0; x < size; x++ {
			srcX := bounds.Min.X + x*srcW/size
			r32, g32, b32, _ := img.At(srcX, srcY).RGBA()

			base := ((y * size) + x) * 3
			// convert 16-bit color to 8-bit, then normalize
			out[base+0] = float32(r32>>8) / 255.0
			out[base+1] = float32(g32>>8) / 255.0
			out[base+2] = float32(b32>>8) / 255.0
		}
	}

	return out, nil
}
