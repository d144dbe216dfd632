// Package transform produces image derivatives.
//
// Thumbnails are generated in-process: decode, CatmullRom resize, JPEG
// encode. WebP and AVIF have no pure-Go encoders, so those targets shell out
// to the cwebp and avifenc binaries through temp files, never a shell, with
// a hard timeout.
package transform

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"os/exec"
	"strings"
	"time"

	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"

	"github.com/tendant/simple-asset/pkg/simpleasset"
)

const (
	jpegQuality    = 80
	defaultTimeout = 20 * time.Second
)

// Config configures the image transformer.
type Config struct {
	// CWebPBin is the cwebp binary path or PATH name (default "cwebp")
	CWebPBin string
	// AvifEncBin is the avifenc binary path or PATH name (default "avifenc")
	AvifEncBin string
	// Timeout bounds each external encoder invocation
	Timeout time.Duration
}

// ImageTransformer implements simpleasset.Transformer for raster images.
type ImageTransformer struct {
	cwebp   string
	avifenc string
	timeout time.Duration
}

// New creates an image transformer with the given configuration.
func New(cfg Config) *ImageTransformer {
	if cfg.CWebPBin == "" {
		cfg.CWebPBin = "cwebp"
	}
	if cfg.AvifEncBin == "" {
		cfg.AvifEncBin = "avifenc"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &ImageTransformer{
		cwebp:   cfg.CWebPBin,
		avifenc: cfg.AvifEncBin,
		timeout: cfg.Timeout,
	}
}

// Supports reports whether the transformer can read the content type.
// SVG and icon formats are vector/legacy containers the decoders can't read.
func (t *ImageTransformer) Supports(contentType string) bool {
	ct := strings.ToLower(contentType)
	if !strings.HasPrefix(ct, "image/") {
		return false
	}
	switch ct {
	case "image/svg+xml", "image/x-icon", "image/vnd.microsoft.icon":
		return false
	}
	return true
}

// Transform produces one rendition of the original bytes.
func (t *ImageTransformer) Transform(ctx context.Context, original []byte, target simpleasset.DerivativeTarget) (*simpleasset.TransformResult, error) {
	switch target.Kind {
	case simpleasset.KindThumb256, simpleasset.KindThumb512:
		return t.thumbnail(original, target.Width)
	case simpleasset.KindWebP:
		out, err := t.runEncoder(ctx, original, ".webp",
			t.cwebp, "-q", "85", "-m", "6", "-mt", "@IN@", "-o", "@OUT@")
		if err != nil {
			return nil, err
		}
		return &simpleasset.TransformResult{Bytes: out, ContentType: "image/webp"}, nil
	case simpleasset.KindAVIF:
		out, err := t.runEncoder(ctx, original, ".avif",
			t.avifenc, "--min", "25", "--max", "35", "--speed", "6", "@IN@", "@OUT@")
		if err != nil {
			return nil, err
		}
		return &simpleasset.TransformResult{Bytes: out, ContentType: "image/avif"}, nil
	default:
		return nil, fmt.Errorf("%w: %s", simpleasset.ErrUnsupportedTarget, target.Kind)
	}
}

// thumbnail decodes, scales to maxWidth preserving aspect ratio, and encodes
// as JPEG. Images already narrower than maxWidth are re-encoded unscaled.
func (t *ImageTransformer) thumbnail(original []byte, maxWidth int) (*simpleasset.TransformResult, error) {
	img, _, err := image.Decode(bytes.NewReader(original))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if maxWidth > 0 && w > maxWidth {
		newH := h * maxWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
		w = maxWidth
		h = newH
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}

	return &simpleasset.TransformResult{
		Bytes:       buf.Bytes(),
		ContentType: "image/jpeg",
		Width:       w,
		Height:      h,
	}, nil
}

// runEncoder writes the input to a temp file, substitutes the @IN@/@OUT@
// tokens, runs the encoder with a timeout, and reads back the output file.
// exec.CommandContext takes an argument vector, so nothing passes through a
// shell.
func (t *ImageTransformer) runEncoder(ctx context.Context, input []byte, outExt string, argv ...string) ([]byte, error) {
	in, err := os.CreateTemp("", "img-*.in")
	if err != nil {
		return nil, fmt.Errorf("create temp input: %w", err)
	}
	defer os.Remove(in.Name())

	out, err := os.CreateTemp("", "img-*"+outExt)
	if err != nil {
		in.Close()
		return nil, fmt.Errorf("create temp output: %w", err)
	}
	defer os.Remove(out.Name())
	out.Close()

	if _, err := in.Write(input); err != nil {
		in.Close()
		return nil, fmt.Errorf("write temp input: %w", err)
	}
	if err := in.Close(); err != nil {
		return nil, fmt.Errorf("close temp input: %w", err)
	}

	args := make([]string, len(argv))
	for i, a := range argv {
		a = strings.ReplaceAll(a, "@IN@", in.Name())
		a = strings.ReplaceAll(a, "@OUT@", out.Name())
		args[i] = a
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	combined, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("image tool timeout: %s", args[0])
		}
		return nil, fmt.Errorf("image tool %s failed: %v: %s", args[0], err, bytes.TrimSpace(combined))
	}

	return os.ReadFile(out.Name())
}
