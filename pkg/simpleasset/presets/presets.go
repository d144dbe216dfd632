// Package presets maps named derivative presets to target lists.
//
// A preset describes what renditions a class of upload should get (an avatar
// needs a small square thumbnail, a banner needs large formats); the content
// type decides which of the preset's targets actually apply. Unknown presets
// fall back to the default, unsupported content types resolve to nothing.
package presets

import (
	"strings"

	"github.com/tendant/simple-asset/pkg/simpleasset"
)

// Preset names.
const (
	Avatar      = "avatar"
	Icon        = "icon"
	Banner      = "banner"
	BlogDefault = "blog_default"
)

// Resolver implements simpleasset.PresetResolver with the default preset table.
type Resolver struct{}

// NewResolver creates the default preset resolver.
func NewResolver() *Resolver { return &Resolver{} }

// Resolve returns the targets for the given preset and content type. An empty
// or unknown preset resolves to the default targets.
func (r *Resolver) Resolve(preset string, contentType string) []simpleasset.DerivativeTarget {
	switch strings.ToLower(preset) {
	case Avatar:
		return avatarTargets(contentType)
	case Icon:
		return iconTargets(contentType)
	case Banner:
		return bannerTargets(contentType)
	case BlogDefault:
		return blogTargets(contentType)
	default:
		return defaultTargets(contentType)
	}
}

func defaultTargets(ct string) []simpleasset.DerivativeTarget {
	if isImage(ct) {
		return []simpleasset.DerivativeTarget{
			simpleasset.TargetWebP(),
		}
	}
	if isVideo(ct) {
		return []simpleasset.DerivativeTarget{
			simpleasset.TargetThumb256(),
		}
	}
	return nil
}

func avatarTargets(ct string) []simpleasset.DerivativeTarget {
	if isImage(ct) {
		return []simpleasset.DerivativeTarget{
			simpleasset.TargetThumb256(),
			simpleasset.TargetWebP(),
		}
	}
	if isVideo(ct) {
		return []simpleasset.DerivativeTarget{
			simpleasset.TargetThumb256(),
		}
	}
	return nil
}

func iconTargets(ct string) []simpleasset.DerivativeTarget {
	if isImage(ct) {
		return []simpleasset.DerivativeTarget{
			simpleasset.TargetThumb256(),
		}
	}
	return nil
}

func bannerTargets(ct string) []simpleasset.DerivativeTarget {
	if isImage(ct) {
		return []simpleasset.DerivativeTarget{
			simpleasset.TargetThumb512(),
			simpleasset.TargetWebP(),
			simpleasset.TargetAVIF(),
		}
	}
	if isVideo(ct) {
		return []simpleasset.DerivativeTarget{
			simpleasset.TargetThumb512(),
		}
	}
	return nil
}

func blogTargets(ct string) []simpleasset.DerivativeTarget {
	if isImage(ct) {
		return []simpleasset.DerivativeTarget{
			simpleasset.TargetThumb512(),
			simpleasset.TargetThumb256(),
			simpleasset.TargetWebP(),
			simpleasset.TargetAVIF(),
		}
	}
	if isVideo(ct) {
		return []simpleasset.DerivativeTarget{
			simpleasset.TargetThumb512(),
			simpleasset.TargetThumb256(),
		}
	}
	return nil
}

func isImage(ct string) bool { return strings.HasPrefix(strings.ToLower(ct), "image/") }
func isVideo(ct string) bool { return strings.HasPrefix(strings.ToLower(ct), "video/") }
