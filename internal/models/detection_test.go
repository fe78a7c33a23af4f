package models

import (
	"math"
	"testing"
)

func TestAdjustToImageSize_Scales(t *testing.T) {
	obj := ObjectInfo{X1: 10, Y1: 20, X2: 160, Y2: 100, ImageWidth: 320, ImageHeight: 320}

	adjusted := obj.AdjustToImageSize(640, 960)

	if adjusted.X1 != 30 || adjusted.X2 != 480 {
		t.Errorf("Expected x range [30,480], got [%v,%v]", adjusted.X1, adjusted.X2)
	}
	if adjusted.Y1 != 40 || adjusted.Y2 != 200 {
		t.Errorf("Expected y range [40,200], got [%v,%v]", adjusted.Y1, adjusted.Y2)
	}
	if adjusted.ImageWidth != 960 || adjusted.ImageHeight != 640 {
		t.Errorf("Expected image size 960x640, got %dx%d", adjusted.ImageWidth, adjusted.ImageHeight)
	}
}

func TestAdjustToImageSize_Clamps(t *testing.T) {
	tests := []struct {
		name string
		obj  ObjectInfo
	}{
		{"negative", ObjectInfo{X1: -50, Y1: -1, X2: 10, Y2: 10, ImageWidth: 100, ImageHeight: 100}},
		{"overflow", ObjectInfo{X1: 90, Y1: 90, X2: 500, Y2: 101, ImageWidth: 100, ImageHeight: 100}},
		{"huge", ObjectInfo{X1: -1e6, Y1: -1e6, X2: 1e6, Y2: 1e6, ImageWidth: 100, ImageHeight: 100}},
		{"no source space", ObjectInfo{X1: -3, Y1: 7, X2: 1000, Y2: 1000}},
	}

	const width, height = 64, 48
	for _, tt := range tests {
		adjusted := tt.obj.AdjustToImageSize(height, width)
		for _, x := range []float32{adjusted.X1, adjusted.X2} {
			if x < 0 || x >= width {
				t.Errorf("%s: x=%v outside [0,%d)", tt.name, x, width)
			}
		}
		for _, y := range []float32{adjusted.Y1, adjusted.Y2} {
			if y < 0 || y >= height {
				t.Errorf("%s: y=%v outside [0,%d)", tt.name, y, height)
			}
		}
	}
}

func TestAdjustToImageSize_KeepsMetadata(t *testing.T) {
	obj := ObjectInfo{X1: 1, Y1: 1, X2: 2, Y2: 2, Score: 0.75, ClassID: 17, Label: "cat", ImageWidth: 10, ImageHeight: 10}

	adjusted := obj.AdjustToImageSize(20, 20)

	if adjusted.Score != 0.75 || adjusted.ClassID != 17 || adjusted.Label != "cat" {
		t.Errorf("Metadata changed: %+v", adjusted)
	}
	if obj.X1 != 1 {
		t.Error("AdjustToImageSize must not modify the receiver")
	}
}

func TestIntersectionOverUnion(t *testing.T) {
	tests := []struct {
		a, b     ObjectInfo
		expected float64
	}{
		{ObjectInfo{X1: 0, Y1: 0, X2: 10, Y2: 10}, ObjectInfo{X1: 0, Y1: 0, X2: 10, Y2: 10}, 1},
		{ObjectInfo{X1: 0, Y1: 0, X2: 10, Y2: 10}, ObjectInfo{X1: 20, Y1: 20, X2: 30, Y2: 30}, 0},
		{ObjectInfo{X1: 0, Y1: 0, X2: 10, Y2: 10}, ObjectInfo{X1: 5, Y1: 0, X2: 15, Y2: 10}, 50.0 / 150.0},
		{ObjectInfo{X1: 0, Y1: 0, X2: 0, Y2: 0}, ObjectInfo{X1: 0, Y1: 0, X2: 0, Y2: 0}, 0},
	}

	for _, tt := range tests {
		got := float64(tt.a.IntersectionOverUnion(tt.b))
		if math.Abs(got-tt.expected) > 1e-6 {
			t.Errorf("IoU(%+v, %+v) = %v, expected %v", tt.a, tt.b, got, tt.expected)
		}
	}
}
