package spectrogram

import "image/color"

// magma anchors at eighths of the unit interval.
var magma = [...]color.RGBA{
	{0, 0, 4, 255},
	{28, 16, 68, 255},
	{79, 18, 123, 255},
	{129, 37, 129, 255},
	{181, 54, 122, 255},
	{229, 80, 100, 255},
	{251, 135, 97, 255},
	{254, 194, 135, 255},
	{252, 253, 191, 255},
}

// colorAt maps v in [0, 1] onto the palette with linear interpolation.
func colorAt(v float64) color.RGBA {
	v = min(max(v, 0), 1)
	pos := v * float64(len(magma)-1)
	i := int(pos)
	if i >= len(magma)-1 {
		return magma[len(magma)-1]
	}
	frac := pos - float64(i)
	a, b := magma[i], magma[i+1]
	lerp := func(x, y uint8) uint8 {
		return uint8(float64(x) + (float64(y)-float64(x))*frac + 0.5)
	}
	return color.RGBA{lerp(a.R, b.R), lerp(a.G, b.G), lerp(a.B, b.B), 255}
}
