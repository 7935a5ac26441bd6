package artwork

import (
	"fmt"
	"image"
	_ "image/gif" // GIF decoder
	"image/jpeg"
	_ "image/png" // PNG decoder
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/bmp" // BMP decoder
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // WebP decoder
)

// ThumbnailSize is the bounding box edge of a thumbnail in pixels.
type ThumbnailSize int

const (
	ThumbSmall  ThumbnailSize = 150 // list views
	ThumbMedium ThumbnailSize = 300 // grid views
	ThumbLarge  ThumbnailSize = 500 // detail views
)

// ThumbnailSizes lists the sizes rendered for every stored image.
var ThumbnailSizes = []ThumbnailSize{ThumbSmall, ThumbMedium, ThumbLarge}

// ThumbnailGenerator renders JPEG thumbnails into dir.
type ThumbnailGenerator struct {
	dir string
}

// NewThumbnailGenerator creates a generator writing below dir.
func NewThumbnailGenerator(dir string) *ThumbnailGenerator {
	return &ThumbnailGenerator{dir: dir}
}

// Path returns where the thumbnail of the image identified by checksum is kept.
func (g *ThumbnailGenerator) Path(checksum string, size ThumbnailSize) string {
	return filepath.Join(g.dir, fmt.Sprintf("%s_%d.jpg", checksum, size))
}

// Generate renders one thumbnail of sourcePath. Images already smaller than
// size are re-encoded without upscaling.
func (g *ThumbnailGenerator) Generate(sourcePath, checksum string, size ThumbnailSize) (string, error) {
	if err := os.MkdirAll(g.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create thumbnail directory: %w", err)
	}

	thumbPath := g.Path(checksum, size)
	if _, err := os.Stat(thumbPath); err == nil {
		return thumbPath, nil
	}

	src, err := os.Open(sourcePath)
	if err != nil {
		return "", fmt.Errorf("failed to open source image: %w", err)
	}
	defer src.Close()

	img, format, err := image.Decode(src)
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	log.Debug().
		Str("source", sourcePath).
		Str("format", format).
		Int("size", int(size)).
		Msg("Generating thumbnail")

	thumb := resize(img, int(size))

	tmp := thumbPath + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("failed to create thumbnail file: %w", err)
	}
	if err := jpeg.Encode(out, thumb, &jpeg.Options{Quality: 85}); err != nil {
		out.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to write thumbnail: %w", err)
	}
	if err := os.Rename(tmp, thumbPath); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to move thumbnail: %w", err)
	}

	return thumbPath, nil
}

// GenerateAll renders every size in ThumbnailSizes. Failures are logged and
// skipped.
func (g *ThumbnailGenerator) GenerateAll(sourcePath, checksum string) map[ThumbnailSize]string {
	result := make(map[ThumbnailSize]string)
	for _, size := range ThumbnailSizes {
		path, err := g.Generate(sourcePath, checksum, size)
		if err != nil {
			log.Warn().
				Err(err).
				Str("checksum", checksum).
				Int("size", int(size)).
				Msg("Failed to generate thumbnail")
			continue
		}
		result[size] = path
	}
	return result
}

// Remove deletes all thumbnails of checksum.
func (g *ThumbnailGenerator) Remove(checksum string) {
	for _, size := range ThumbnailSizes {
		p := g.Path(checksum, size)
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", p).Msg("Failed to remove thumbnail")
		}
	}
}

// resize scales src to fit within maxSize, keeping the aspect ratio.
func resize(src image.Image, maxSize int) image.Image {
	bounds := src.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()

	newW, newH := srcW, srcH
	if srcW > maxSize || srcH > maxSize {
		if srcW > srcH {
			newW = maxSize
			newH = max(1, srcH*maxSize/srcW)
		} else {
			newH = maxSize
			newW = max(1, srcW*maxSize/srcH)
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	return dst
}
