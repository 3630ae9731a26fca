package avatar

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
	"golang.org/x/image/webp"

	"github.com/baechuer/contacts-service/internal/application/auth"
	"github.com/baechuer/contacts-service/internal/domain"
)

// magic bytes of accepted uploads
var magic = map[string][]byte{
	"image/jpeg": {0xFF, 0xD8, 0xFF},
	"image/png":  {0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A},
	"image/webp": {0x52, 0x49, 0x46, 0x46}, // RIFF....WEBP
}

// DetectType sniffs the image type from its header, ignoring any client-supplied content type.
func DetectType(data []byte) (string, error) {
	if len(data) < 12 {
		return "", fmt.Errorf("data too short to detect type")
	}
	switch {
	case bytes.HasPrefix(data, magic["image/jpeg"]):
		return "image/jpeg", nil
	case bytes.HasPrefix(data, magic["image/png"]):
		return "image/png", nil
	case bytes.HasPrefix(data, magic["image/webp"]) && string(data[8:12]) == "WEBP":
		return "image/webp", nil
	}
	return "", fmt.Errorf("unsupported image type")
}

func decode(data []byte, mimeType string) (image.Image, error) {
	r := bytes.NewReader(data)
	switch mimeType {
	case "image/jpeg":
		return jpeg.Decode(r)
	case "image/png":
		return png.Decode(r)
	case "image/webp":
		return webp.Decode(r)
	default:
		return nil, fmt.Errorf("unsupported image type: %s", mimeType)
	}
}

// SquareCrop centre-crops img to a square and scales it to size×size.
func SquareCrop(img image.Image, size int) image.Image {
	b := img.Bounds()
	side := min(b.Dx(), b.Dy())
	x := b.Min.X + (b.Dx()-side)/2
	y := b.Min.Y + (b.Dy()-side)/2
	crop := image.Rect(x, y, x+side, y+side)

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, crop, draw.Src, nil)
	return dst
}

// Processor decodes an upload, crops it square and re-encodes it.
// PNG stays PNG to keep transparency; JPEG and WebP become JPEG.
type Processor struct {
	MaxPixels int // rejects decompression bombs; 0 disables the check
	Quality   int
}

func NewProcessor() *Processor {
	return &Processor{MaxPixels: 40_000_000, Quality: 90}
}

func (p *Processor) Process(data []byte, size int) (auth.ProcessedImage, error) {
	mimeType, err := DetectType(data)
	if err != nil {
		return auth.ProcessedImage{}, domain.ErrUnsupportedImage(err.Error())
	}

	if p.MaxPixels > 0 {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err == nil && cfg.Width*cfg.Height > p.MaxPixels {
			return auth.ProcessedImage{}, domain.ErrUnsupportedImage("image dimensions too large")
		}
	}

	img, err := decode(data, mimeType)
	if err != nil {
		return auth.ProcessedImage{}, domain.ErrUnsupportedImage("corrupt image")
	}

	out := SquareCrop(img, size)

	var buf bytes.Buffer
	if mimeType == "image/png" {
		if err := png.Encode(&buf, out); err != nil {
			return auth.ProcessedImage{}, domain.ErrImageProcessingFailed(err)
		}
		return auth.ProcessedImage{Data: buf.Bytes(), Ext: "png", ContentType: "image/png"}, nil
	}

	q := p.Quality
	if q <= 0 {
		q = 90
	}
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: q}); err != nil {
		return auth.ProcessedImage{}, domain.ErrImageProcessingFailed(err)
	}
	return auth.ProcessedImage{Data: buf.Bytes(), Ext: "jpg", ContentType: "image/jpeg"}, nil
}
