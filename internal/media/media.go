// Package media prepares local files for upload with a question.
package media

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/jcccaz/TRIAI/internal/council"
)

const (
	// CompressAbove is the size at which images are downscaled.
	CompressAbove = 1 << 20
	MaxDimension  = 1200
	JPEGQuality   = 80
	MaxFileSize   = 25 << 20
)

// Prepare reads path into an attachment. Large images are scaled down and
// re-encoded as JPEG; if that fails the original bytes are kept.
func Prepare(path string) (council.Attachment, error) {
	info, err := os.Stat(path)
	if err != nil {
		return council.Attachment{}, err
	}
	if info.IsDir() {
		return council.Attachment{}, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > MaxFileSize {
		return council.Attachment{}, fmt.Errorf("%s is larger than %d MiB", filepath.Base(path), MaxFileSize>>20)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return council.Attachment{}, err
	}
	a := council.Attachment{Name: filepath.Base(path), ContentType: contentType(path, data), Data: data}
	if !strings.HasPrefix(a.ContentType, "image/") || len(data) < CompressAbove {
		return a, nil
	}
	if out, ok := Downscale(data); ok {
		a.Data = out
		a.ContentType = "image/jpeg"
	}
	return a, nil
}

// Downscale fits the image within MaxDimension on its longer side and
// encodes it as JPEG. It reports false when the input cannot be decoded.
func Downscale(data []byte) ([]byte, bool) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, false
	}
	w, h := fit(src.Bounds().Dx(), src.Bounds().Dy(), MaxDimension)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, false
	}
	return buf.Bytes(), true
}

// fit keeps the aspect ratio and never upscales.
func fit(w, h, limit int) (int, int) {
	if w <= limit && h <= limit {
		return w, h
	}
	if w >= h {
		return limit, max(1, h*limit/w)
	}
	return max(1, w*limit/h), limit
}

func contentType(path string, data []byte) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); ct != "" {
		return ct
	}
	return http.DetectContentType(data)
}
