package presets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tendant/simple-asset/pkg/simpleasset"
)

func kinds(targets []simpleasset.DerivativeTarget) []simpleasset.DerivativeKind {
	if len(targets) == 0 {
		return nil
	}
	out := make([]simpleasset.DerivativeKind, 0, len(targets))
	for _, t := range targets {
		out = append(out, t.Kind)
	}
	return out
}

func TestResolve(t *testing.T) {
	r := NewResolver()

	tests := []struct {
		name        string
		preset      string
		contentType string
		want        []simpleasset.DerivativeKind
	}{
		{
			name:        "blog default for images gets the full set",
			preset:      BlogDefault,
			contentType: "image/png",
			want: []simpleasset.DerivativeKind{
				simpleasset.KindThumb512, simpleasset.KindThumb256,
				simpleasset.KindWebP, simpleasset.KindAVIF,
			},
		},
		{
			name:        "blog default for videos gets thumbnails only",
			preset:      BlogDefault,
			contentType: "video/mp4",
			want:        []simpleasset.DerivativeKind{simpleasset.KindThumb512, simpleasset.KindThumb256},
		},
		{
			name:        "avatar",
			preset:      Avatar,
			contentType: "image/jpeg",
			want:        []simpleasset.DerivativeKind{simpleasset.KindThumb256, simpleasset.KindWebP},
		},
		{
			name:        "icon",
			preset:      Icon,
			contentType: "image/png",
			want:        []simpleasset.DerivativeKind{simpleasset.KindThumb256},
		},
		{
			name:        "banner",
			preset:      Banner,
			contentType: "image/jpeg",
			want: []simpleasset.DerivativeKind{
				simpleasset.KindThumb512, simpleasset.KindWebP, simpleasset.KindAVIF,
			},
		},
		{
			name:        "empty preset falls back to default",
			preset:      "",
			contentType: "image/jpeg",
			want:        []simpleasset.DerivativeKind{simpleasset.KindWebP},
		},
		{
			name:        "unknown preset falls back to default",
			preset:      "something-else",
			contentType: "image/jpeg",
			want:        []simpleasset.DerivativeKind{simpleasset.KindWebP},
		},
		{
			name:        "preset names are case insensitive",
			preset:      "BLOG_DEFAULT",
			contentType: "video/mp4",
			want:        []simpleasset.DerivativeKind{simpleasset.KindThumb512, simpleasset.KindThumb256},
		},
		{
			name:        "unsupported content type resolves to nothing",
			preset:      BlogDefault,
			contentType: "application/pdf",
			want:        nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Resolve(tt.preset, tt.contentType)
			assert.Equal(t, tt.want, kinds(got))
		})
	}
}
