package nanodet

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"nanodet/internal/models"
)

// ErrMalformedOutput is returned when output blobs do not match the variant.
var ErrMalformedOutput = errors.New("malformed model output")

// Decoder turns raw NanoDet head outputs into detections.
type Decoder struct {
	Variant        Variant
	Labels         []string
	ScoreThreshold float32
	NMSThreshold   float32
}

// Decode reads every head, keeps cells whose best class score reaches the
// threshold and returns the survivors of class-wise NMS, best first.
func (d *Decoder) Decode(blobs map[string][]float32) ([]models.ObjectInfo, error) {
	numClasses := len(d.Labels)
	if numClasses == 0 {
		return nil, fmt.Errorf("%w: no class labels", ErrMalformedOutput)
	}

	var candidates []models.ObjectInfo
	for _, head := range d.Variant.Heads {
		found, err := d.decodeHead(head, blobs, numClasses)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, found...)
	}

	return NMS(candidates, d.NMSThreshold), nil
}

func (d *Decoder) decodeHead(head Head, blobs map[string][]float32, numClasses int) ([]models.ObjectInfo, error) {
	v := d.Variant
	fw, fh := v.FeatureSize(head.Stride)
	cells := fw * fh
	bins := v.Bins()

	cls, ok := blobs[head.ClsOutput]
	if !ok {
		return nil, fmt.Errorf("%w: missing blob %q", ErrMalformedOutput, head.ClsOutput)
	}
	dis, ok := blobs[head.DisOutput]
	if !ok {
		return nil, fmt.Errorf("%w: missing blob %q", ErrMalformedOutput, head.DisOutput)
	}
	if len(cls) != cells*numClasses {
		return nil, fmt.Errorf("%w: blob %q has %d values, want %d", ErrMalformedOutput, head.ClsOutput, len(cls), cells*numClasses)
	}
	if len(dis) != cells*4*bins {
		return nil, fmt.Errorf("%w: blob %q has %d values, want %d", ErrMalformedOutput, head.DisOutput, len(dis), cells*4*bins)
	}

	var objects []models.ObjectInfo
	stride := float32(head.Stride)
	for idx := 0; idx < cells; idx++ {
		scores := cls[idx*numClasses : (idx+1)*numClasses]
		if !finite(scores) {
			return nil, fmt.Errorf("%w: blob %q has non-finite scores at cell %d", ErrMalformedOutput, head.ClsOutput, idx)
		}
		classID, score := 0, scores[0]
		for c, s := range scores[1:] {
			if s > score {
				classID, score = c+1, s
			}
		}
		if score < d.ScoreThreshold {
			continue
		}

		col, row := idx%fw, idx/fw
		ctX := (float32(col) + v.Offset()) * stride
		ctY := (float32(row) + v.Offset()) * stride

		var dist [4]float32
		for side := 0; side < 4; side++ {
			offset := (idx*4 + side) * bins
			logits := dis[offset : offset+bins]
			if !finite(logits) {
				return nil, fmt.Errorf("%w: blob %q has non-finite values at cell %d", ErrMalformedOutput, head.DisOutput, idx)
			}
			dist[side] = integral(logits) * stride
		}

		objects = append(objects, models.ObjectInfo{
			X1:          max(ctX-dist[0], 0),
			Y1:          max(ctY-dist[1], 0),
			X2:          min(ctX+dist[2], float32(v.InputWidth)),
			Y2:          min(ctY+dist[3], float32(v.InputHeight)),
			Score:       score,
			ClassID:     classID,
			Label:       labelFor(d.Labels, classID),
			ImageWidth:  v.InputWidth,
			ImageHeight: v.InputHeight,
		})
	}
	return objects, nil
}

func finite(values []float32) bool {
	for _, v := range values {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return false
		}
	}
	return true
}

// integral returns the expectation of the softmax distribution over bin indices.
func integral(logits []float32) float32 {
	maxLogit := logits[0]
	for _, l := range logits[1:] {
		maxLogit = max(maxLogit, l)
	}

	var sum, weighted float64
	for j, l := range logits {
		e := math.Exp(float64(l - maxLogit))
		sum += e
		weighted += e * float64(j)
	}
	return float32(weighted / sum)
}

// NMS suppresses same-class boxes overlapping a better one by more than
// iouThreshold. The result is sorted by score, best first; ties keep input order.
func NMS(objects []models.ObjectInfo, iouThreshold float32) []models.ObjectInfo {
	sorted := make([]models.ObjectInfo, len(objects))
	copy(sorted, objects)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	kept := make([]models.ObjectInfo, 0, len(sorted))
	for _, candidate := range sorted {
		suppressed := false
		for _, k := range kept {
			if k.ClassID == candidate.ClassID && k.IntersectionOverUnion(candidate) > iouThreshold {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, candidate)
		}
	}
	return kept
}
