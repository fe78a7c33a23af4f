package render

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"nanodet/internal/imageio"
	"nanodet/internal/models"
)

// BoxColor is the default outline color.
var BoxColor = color.RGBA{R: 0, G: 255, B: 0, A: 255}

// ToRGBA converts an RGB buffer into an opaque RGBA image of the same extent.
func ToRGBA(buf *imageio.Buffer) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, buf.Width, buf.Height))
	for i := 0; i < buf.Width*buf.Height; i++ {
		img.Pix[i*4] = buf.Pix[i*3]
		img.Pix[i*4+1] = buf.Pix[i*3+1]
		img.Pix[i*4+2] = buf.Pix[i*3+2]
		img.Pix[i*4+3] = 255
	}
	return img
}

// DrawRectangle paints the outline of the box spanned by two corners. Corners
// may come in any order and are clamped to the image; thickness grows inwards.
func DrawRectangle(img *image.RGBA, x1, y1, x2, y2 int, c color.Color, thickness int) {
	bounds := img.Bounds()
	if bounds.Empty() {
		return
	}
	if thickness < 1 {
		thickness = 1
	}

	xMin, xMax := clampInt(min(x1, x2), bounds.Min.X, bounds.Max.X-1), clampInt(max(x1, x2), bounds.Min.X, bounds.Max.X-1)
	yMin, yMax := clampInt(min(y1, y2), bounds.Min.Y, bounds.Max.Y-1), clampInt(max(y1, y2), bounds.Min.Y, bounds.Max.Y-1)

	src := image.NewUniform(c)
	bands := []image.Rectangle{
		image.Rect(xMin, yMin, xMax+1, yMin+thickness),
		image.Rect(xMin, yMax-thickness+1, xMax+1, yMax+1),
		image.Rect(xMin, yMin, xMin+thickness, yMax+1),
		image.Rect(xMax-thickness+1, yMin, xMax+1, yMax+1),
	}
	box := image.Rect(xMin, yMin, xMax+1, yMax+1)
	for _, band := range bands {
		draw.Draw(img, band.Intersect(box), src, image.Point{}, draw.Src)
	}
}

// DrawObject draws an object already adjusted to the image size. Float
// coordinates are truncated toward zero.
func DrawObject(img *image.RGBA, obj models.ObjectInfo, c color.Color, thickness int) {
	DrawRectangle(img, int(obj.X1), int(obj.Y1), int(obj.X2), int(obj.Y2), c, thickness)
}

// DrawLabel writes "label score" just above the box, or inside it when the box
// touches the top edge.
func DrawLabel(img *image.RGBA, obj models.ObjectInfo, c color.Color) {
	face := basicfont.Face7x13
	text := fmt.Sprintf("%s %.2f", obj.Label, obj.Score)

	x := int(obj.X1)
	y := int(obj.Y1) - 2
	if y-face.Ascent < img.Bounds().Min.Y {
		y = int(obj.Y1) + face.Ascent + 1
	}

	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	drawer.DrawString(text)
}

// Annotate converts buf to RGBA and draws every object onto it.
func Annotate(buf *imageio.Buffer, objects []models.ObjectInfo, thickness int, labels bool) *image.RGBA {
	img := ToRGBA(buf)
	for _, obj := range objects {
		adjusted := obj.AdjustToImageSize(buf.Height, buf.Width)
		DrawObject(img, adjusted, BoxColor, thickness)
		if labels {
			DrawLabel(img, adjusted, BoxColor)
		}
	}
	return img
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return min(max(v, lo), hi)
}
