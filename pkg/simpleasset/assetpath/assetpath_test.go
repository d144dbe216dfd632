package assetpath

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	id := uuid.MustParse("0192a1b2-0000-7000-8000-000000000001")
	at := time.Date(2026, 8, 29, 23, 30, 0, 0, time.FixedZone("KST", 9*3600))

	p := New(id, at)

	// Bucketed by the UTC date, not the local one
	assert.Equal(t, "2026/08/29/"+id.String()+"/", p.Prefix())
	assert.Equal(t, p.Prefix()+"original", p.OriginalKey())
	assert.Equal(t, p.Prefix()+"variants/", p.VariantsPrefix())
	assert.Equal(t, p.Prefix()+"variants/thumb_256.jpg", p.VariantKey("thumb_256", "jpg"))
	assert.Equal(t, p.Prefix()+"variants/webp.webp", p.VariantKey("webp", ".webp"))
}

func TestFromPrefix(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		want   string
	}{
		{"with trailing slash", "2026/01/02/abc/", "2026/01/02/abc/"},
		{"without trailing slash", "2026/01/02/abc", "2026/01/02/abc/"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromPrefix(tt.prefix).Prefix())
		})
	}
}

func TestRoundTrip(t *testing.T) {
	p := New(uuid.New(), time.Now())
	restored := FromPrefix(p.Prefix())

	assert.Equal(t, p.OriginalKey(), restored.OriginalKey())
	assert.Equal(t, p.VariantKey("avif", "avif"), restored.VariantKey("avif", "avif"))
}
