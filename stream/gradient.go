package stream

import (
	"github.com/lucasb-eyer/go-colorful"

	"github.com/matt-g-everett/slidetx/util"
)

// FadeIn blends from black toward target. Progress is clamped to [0,1].
func FadeIn(target colorful.Color, progress float64) colorful.Color {
	return Black.BlendRgb(target, util.Clamp01(progress))
}

// FadeOut blends from source back toward black. Progress is clamped to [0,1].
func FadeOut(source colorful.Color, progress float64) colorful.Color {
	return Black.BlendRgb(source, 1-util.Clamp01(progress))
}
