package models

// ObjectInfo is one located object. Coordinates are corners expressed in a
// space of ImageWidth x ImageHeight pixels.
type ObjectInfo struct {
	X1          float32 `json:"x1"`
	Y1          float32 `json:"y1"`
	X2          float32 `json:"x2"`
	Y2          float32 `json:"y2"`
	Score       float32 `json:"score"`
	ClassID     int     `json:"class_id"`
	Label       string  `json:"label"`
	ImageWidth  int     `json:"image_width"`
	ImageHeight int     `json:"image_height"`
}

// AdjustToImageSize maps the box from its current space into an image of
// origHeight x origWidth pixels and clamps it to [0, origWidth-1] x [0, origHeight-1].
func (o ObjectInfo) AdjustToImageSize(origHeight, origWidth int) ObjectInfo {
	scaleX, scaleY := float32(1), float32(1)
	if o.ImageWidth > 0 {
		scaleX = float32(origWidth) / float32(o.ImageWidth)
	}
	if o.ImageHeight > 0 {
		scaleY = float32(origHeight) / float32(o.ImageHeight)
	}

	adjusted := o
	adjusted.ImageWidth = origWidth
	adjusted.ImageHeight = origHeight
	adjusted.X1 = clamp(o.X1*scaleX, 0, float32(origWidth-1))
	adjusted.Y1 = clamp(o.Y1*scaleY, 0, float32(origHeight-1))
	adjusted.X2 = clamp(o.X2*scaleX, 0, float32(origWidth-1))
	adjusted.Y2 = clamp(o.Y2*scaleY, 0, float32(origHeight-1))
	return adjusted
}

// Width returns the box width, zero for inverted boxes.
func (o ObjectInfo) Width() float32 {
	return max(0, o.X2-o.X1)
}

// Height returns the box height, zero for inverted boxes.
func (o ObjectInfo) Height() float32 {
	return max(0, o.Y2-o.Y1)
}

// Area returns the box area.
func (o ObjectInfo) Area() float32 {
	return o.Width() * o.Height()
}

// IntersectionOverUnion returns the IoU of two boxes in the same space.
func (o ObjectInfo) IntersectionOverUnion(other ObjectInfo) float32 {
	x1 := max(o.X1, other.X1)
	y1 := max(o.Y1, other.Y1)
	x2 := min(o.X2, other.X2)
	y2 := min(o.Y2, other.Y2)

	if x2 <= x1 || y2 <= y1 {
		return 0
	}

	intersection := (x2 - x1) * (y2 - y1)
	union := o.Area() + other.Area() - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}

func clamp(v, lo, hi float32) float32 {
	if hi < lo {
		return lo
	}
	return min(max(v, lo), hi)
}
