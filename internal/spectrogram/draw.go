package spectrogram

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	highlightFill = color.NRGBA{R: 255, A: 38}
	highlightEdge = color.RGBA{R: 255, A: 255}
	labelFill     = color.RGBA{R: 255, A: 255}
	textColor     = color.White
	titleFill     = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	titleText     = color.Black
)

const (
	edgeWidth    = 2
	labelPadding = 2
)

var face = basicfont.Face7x13

// textWidth returns the advance of s in pixels.
func textWidth(s string) int {
	return font.MeasureString(face, s).Ceil()
}

// drawHighlight fills r with the translucent highlight and strokes its border.
func drawHighlight(img *image.RGBA, r image.Rectangle) {
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return
	}
	draw.Draw(img, r, image.NewUniform(highlightFill), image.Point{}, draw.Over)

	edge := image.NewUniform(highlightEdge)
	draw.Draw(img, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+edgeWidth).Intersect(r), edge, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(r.Min.X, r.Max.Y-edgeWidth, r.Max.X, r.Max.Y).Intersect(r), edge, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(r.Min.X, r.Min.Y, r.Min.X+edgeWidth, r.Max.Y).Intersect(r), edge, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(r.Max.X-edgeWidth, r.Min.Y, r.Max.X, r.Max.Y).Intersect(r), edge, image.Point{}, draw.Src)
}

// labelBox returns the background rectangle of a label horizontally centred
// on cx with its baseline at y, shifted to stay inside bounds.
func labelBox(text string, cx, y int, bounds image.Rectangle) image.Rectangle {
	w := textWidth(text) + 2*labelPadding
	ascent := face.Metrics().Ascent.Ceil()
	descent := face.Metrics().Descent.Ceil()

	r := image.Rect(cx-w/2, y-ascent-labelPadding, cx-w/2+w, y+descent+labelPadding)
	if r.Min.X < bounds.Min.X {
		r = r.Add(image.Pt(bounds.Min.X-r.Min.X, 0))
	}
	if r.Max.X > bounds.Max.X {
		r = r.Add(image.Pt(bounds.Max.X-r.Max.X, 0))
	}
	if r.Min.Y < bounds.Min.Y {
		r = r.Add(image.Pt(0, bounds.Min.Y-r.Min.Y))
	}
	if r.Max.Y > bounds.Max.Y {
		r = r.Add(image.Pt(0, bounds.Max.Y-r.Max.Y))
	}
	return r
}

// drawLabel draws white text on a solid red box.
func drawLabel(img *image.RGBA, text string, cx, y int, bounds image.Rectangle) {
	box := labelBox(text, cx, y, bounds)
	fill(img, box, labelFill)
	drawText(img, text, box.Min.X+labelPadding, box.Max.Y-labelPadding-face.Metrics().Descent.Ceil(), textColor)
}

func fill(img *image.RGBA, r image.Rectangle, c color.Color) {
	draw.Draw(img, r, image.NewUniform(c), image.Point{}, draw.Src)
}

// drawTitle fills the strip above the plot and centres text in it.
func drawTitle(img *image.RGBA, text string, strip image.Rectangle) {
	fill(img, strip, titleFill)
	x := strip.Min.X + max((strip.Dx()-textWidth(text))/2, labelPadding)
	baseline := strip.Min.Y + (strip.Dy()+face.Metrics().Ascent.Ceil())/2
	drawText(img, text, x, baseline, titleText)
}

func drawText(img *image.RGBA, text string, x, baseline int, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, baseline),
	}
	d.DrawString(text)
}
