package pubstatic

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
)

const (
	jpegQuality   = 85
	publicSubdir  = "public"
	maxImageBytes = 20 << 20 // larger files are copied untouched
)

// processImage decodes a JPEG or PNG from src and, when it is wider than
// maxWidth, scales it down preserving aspect ratio and re-encodes it in the
// same format. resized is false when the image was left as is.
func processImage(src io.Reader, ext string, maxWidth int) (out []byte, resized bool, err error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return nil, false, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if maxWidth <= 0 || w <= maxWidth {
		return nil, false, nil
	}

	newH := h * maxWidth / w
	if newH < 1 {
		newH = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	switch ext {
	case ".png":
		err = png.Encode(&buf, dst)
	default:
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality})
	}
	if err != nil {
		return nil, false, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), true, nil
}

func isResizable(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}

// assetStats summarizes a static copy.
type assetStats struct {
	Copied  int
	Resized int
}

// copyAssets mirrors staticDir into outDir/public, downscaling wide images.
// A missing static directory copies nothing.
func copyAssets(staticDir, outDir string, maxWidth int) (assetStats, error) {
	var stats assetStats
	dest := filepath.Join(outDir, publicSubdir)
	err := filepath.WalkDir(staticDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(staticDir, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}

		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		if isResizable(p) && len(data) <= maxImageBytes {
			out, resized, err := processImage(bytes.NewReader(data), strings.ToLower(filepath.Ext(p)), maxWidth)
			if err != nil {
				return fmt.Errorf("%s: %w", rel, err)
			}
			if resized {
				data = out
				stats.Resized++
			}
		}
		if err := writeFileAtomic(target, data); err != nil {
			return err
		}
		stats.Copied++
		return nil
	})
	if os.IsNotExist(err) {
		return stats, nil
	}
	return stats, err
}

// writeFileAtomic writes data to a temp file next to path and renames it in
// place, so readers never see a half-written page.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
