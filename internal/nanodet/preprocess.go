package nanodet

import (
	"github.com/disintegration/imaging"

	"nanodet/internal/imageio"
)

// Preprocess resizes buf to the variant input and returns a normalized
// 1x3xHxW BGR tensor.
func (v Variant) Preprocess(buf *imageio.Buffer) []float32 {
	resized := imaging.Resize(buf.Image(), v.InputWidth, v.InputHeight, imaging.Linear)

	mean, std := v.Normalization()
	planeSize := v.InputWidth * v.InputHeight
	data := make([]float32, 3*planeSize)
	for y := 0; y < v.InputHeight; y++ {
		row := resized.Pix[y*resized.Stride:]
		for x := 0; x < v.InputWidth; x++ {
			i := y*v.InputWidth + x
			r, g, b := row[x*4], row[x*4+1], row[x*4+2]
			data[i] = (float32(b) - mean[0]) / std[0]
			data[planeSize+i] = (float32(g) - mean[1]) / std[1]
			data[2*planeSize+i] = (float32(r) - mean[2]) / std[2]
		}
	}
	return data
}

// InputShape returns the NCHW shape of the preprocessed tensor.
func (v Variant) InputShape() []int64 {
	return []int64{1, 3, int64(v.InputHeight), int64(v.InputWidth)}
}
