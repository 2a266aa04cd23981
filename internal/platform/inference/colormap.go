package inference

import "image/color"

// jetColor maps a normalized value in [0,1] to the jet palette
// (blue -> cyan -> yellow -> red), the conventional palette for saliency
// heat maps.
func jetColor(v float64) color.NRGBA {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}

	r := jetChannel(v - 0.25)
	g := jetChannel(v)
	b := jetChannel(v + 0.25)
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

// jetChannel evaluates one channel of the jet ramp: a triangle peaking at
// 0.5 with a plateau between 0.375 and 0.625.
func jetChannel(v float64) uint8 {
	var f float64
	switch {
	case v <= 0.125 || v >= 0.875:
		f = 0
	case v < 0.375:
		f = (v - 0.125) / 0.25
	case v <= 0.625:
		f = 1
	default:
		f = (0.875 - v) / 0.25
	}
	return uint8(f*255 + 0.5)
}
