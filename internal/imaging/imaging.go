package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/your-org/suspectwatch/internal/models"
)

// ThumbnailSize is the longest side of stored suspect thumbnails.
const ThumbnailSize = 256

// MaxPixels caps the decoded size of an uploaded image.
const MaxPixels = 40_000_000

// Decode decodes JPEG, PNG, BMP or WebP data. Images declaring more than
// MaxPixels are rejected before their pixels are allocated.
func Decode(data []byte) (image.Image, string, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", models.WrapError(models.KindImageProcessing, "decode image header", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, "", models.NewError(models.KindImageProcessing,
			fmt.Sprintf("image is %dx%d, limit is %d pixels", cfg.Width, cfg.Height, MaxPixels))
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", models.WrapError(models.KindImageProcessing, "decode image", err)
	}
	return img, format, nil
}

// Thumbnail scales img to fit within maxSide, keeping the aspect ratio.
// Images already small enough are returned unchanged.
func Thumbnail(img image.Image, maxSide int) image.Image {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width <= maxSide && height <= maxSide {
		return img
	}

	var newWidth, newHeight int
	if width > height {
		newWidth = maxSide
		newHeight = max(1, int(float64(height)*float64(maxSide)/float64(width)))
	} else {
		newHeight = maxSide
		newWidth = max(1, int(float64(width)*float64(maxSide)/float64(height)))
	}

	resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
	return resized
}

func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, models.WrapError(models.KindImageProcessing, "encode jpeg", err)
	}
	return buf.Bytes(), nil
}

// Pixels resizes img to size×size and returns its RGB values (0-255)
// interleaved row by row, ready for pre-whitening.
func Pixels(img image.Image, size int) []float64 {
	resized := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.BiLinear.Scale(resized, resized.Bounds(), img, img.Bounds(), draw.Src, nil)

	out := make([]float64, 0, size*size*3)
	for i := 0; i < len(resized.Pix); i += 4 {
		out = append(out, float64(resized.Pix[i]), float64(resized.Pix[i+1]), float64(resized.Pix[i+2]))
	}
	return out
}
