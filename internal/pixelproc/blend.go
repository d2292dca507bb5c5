package pixelproc

import (
	"fmt"
	"image"
	"math"
)

// BlendMode specifies how two buffers are combined.
type BlendMode int

const (
	BlendNormal BlendMode = iota
	BlendMultiply
	BlendScreen
	BlendOverlay
	BlendDifference
)

func (m BlendMode) String() string {
	switch m {
	case BlendNormal:
		return "Normal"
	case BlendMultiply:
		return "Multiply"
	case BlendScreen:
		return "Screen"
	case BlendOverlay:
		return "Overlay"
	case BlendDifference:
		return "Difference"
	default:
		return "Unknown"
	}
}

// blendImages blends src over dst with the given mode and opacity, returning
// a fresh buffer. Both inputs must have equal dimensions.
func blendImages(dst, src *image.RGBA, mode BlendMode, opacity float64) (*image.RGBA, error) {
	if dst == nil || src == nil {
		return nil, fmt.Errorf("missing input buffer")
	}
	if dst.Bounds().Dx() != src.Bounds().Dx() || dst.Bounds().Dy() != src.Bounds().Dy() {
		return nil, fmt.Errorf("buffer size mismatch: %v vs %v", dst.Bounds(), src.Bounds())
	}
	if opacity < 0 {
		opacity = 0
	}
	if opacity > 1 {
		opacity = 1
	}

	out := image.NewRGBA(dst.Bounds())

	for i := 0; i < len(out.Pix); i += 4 {
		sf := [4]float64{
			float64(src.Pix[i+0]) / 255.0,
			float64(src.Pix[i+1]) / 255.0,
			float64(src.Pix[i+2]) / 255.0,
			float64(src.Pix[i+3]) / 255.0,
		}
		df := [4]float64{
			float64(dst.Pix[i+0]) / 255.0,
			float64(dst.Pix[i+1]) / 255.0,
			float64(dst.Pix[i+2]) / 255.0,
			float64(dst.Pix[i+3]) / 255.0,
		}

		var rf [3]float64
		switch mode {
		case BlendMultiply:
			for c := 0; c < 3; c++ {
				rf[c] = sf[c] * df[c]
			}
		case BlendScreen:
			for c := 0; c < 3; c++ {
				rf[c] = 1 - (1-sf[c])*(1-df[c])
			}
		case BlendOverlay:
			for c := 0; c < 3; c++ {
				if df[c] < 0.5 {
					rf[c] = 2 * sf[c] * df[c]
				} else {
					rf[c] = 1 - 2*(1-sf[c])*(1-df[c])
				}
			}
		case BlendDifference:
			for c := 0; c < 3; c++ {
				rf[c] = math.Abs(sf[c] - df[c])
			}
		default: // BlendNormal
			rf[0], rf[1], rf[2] = sf[0], sf[1], sf[2]
		}

		alpha := sf[3] * opacity
		out.Pix[i+0] = uint8(clamp01(rf[0]*alpha+df[0]*(1-alpha)) * 255)
		out.Pix[i+1] = uint8(clamp01(rf[1]*alpha+df[1]*(1-alpha)) * 255)
		out.Pix[i+2] = uint8(clamp01(rf[2]*alpha+df[2]*(1-alpha)) * 255)
		out.Pix[i+3] = uint8(clamp01(alpha+df[3]*(1-alpha)) * 255)
	}
	return out, nil
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
