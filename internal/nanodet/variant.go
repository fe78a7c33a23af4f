package nanodet

import (
	"errors"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// ErrUnknownVariant is returned when a model variant tag has neither a preset
// nor an entry in the model description.
var ErrUnknownVariant = errors.New("unknown model variant")

// Head names the two output blobs of one detection stride.
type Head struct {
	Stride    int    `yaml:"stride"`
	ClsOutput string `yaml:"cls_output"`
	DisOutput string `yaml:"dis_output"`
}

// Variant describes the input geometry and head layout of one NanoDet model.
type Variant struct {
	InputWidth   int         `yaml:"input_width"`
	InputHeight  int         `yaml:"input_height"`
	InputName    string      `yaml:"input_name"`
	RegMax       int         `yaml:"reg_max"`
	CenterOffset *float32    `yaml:"center_offset"`
	Mean         *[3]float32 `yaml:"mean"`
	Std          *[3]float32 `yaml:"std"`
	Heads        []Head      `yaml:"heads"`
}

// Description is the parsed model description file.
type Description struct {
	Labels   []string           `yaml:"labels"`
	Variants map[string]Variant `yaml:"variants"`
}

var (
	defaultMean = [3]float32{103.53, 116.28, 123.675}
	defaultStd  = [3]float32{57.375, 57.12, 58.395}
)

func defaultHeads() []Head {
	return []Head{
		{Stride: 8, ClsOutput: "cls_pred_stride_8", DisOutput: "dis_pred_stride_8"},
		{Stride: 16, ClsOutput: "cls_pred_stride_16", DisOutput: "dis_pred_stride_16"},
		{Stride: 32, ClsOutput: "cls_pred_stride_32", DisOutput: "dis_pred_stride_32"},
	}
}

func preset(size int) Variant {
	offset := float32(0.5)
	mean, std := defaultMean, defaultStd
	return Variant{
		InputWidth:   size,
		InputHeight:  size,
		InputName:    "input.1",
		RegMax:       7,
		CenterOffset: &offset,
		Mean:         &mean,
		Std:          &std,
		Heads:        defaultHeads(),
	}
}

// Presets returns the built-in variants keyed by tag.
func Presets() map[string]Variant {
	return map[string]Variant{
		"m":     preset(320),
		"m-416": preset(416),
		"e0":    preset(320),
		"e1":    preset(416),
		"e2":    preset(512),
	}
}

// ParseDescription decodes a YAML model description.
func ParseDescription(data []byte) (*Description, error) {
	var desc Description
	if err := yaml.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("failed to parse model description: %w", err)
	}
	return &desc, nil
}

// ClassLabels returns the description labels, or COCO labels when none are given.
func (d *Description) ClassLabels() []string {
	if len(d.Labels) > 0 {
		return d.Labels
	}
	return CocoLabels
}

// Variant resolves tag against the presets, overlaying any fields the
// description sets for the same tag.
func (d *Description) Variant(tag string) (Variant, error) {
	base, hasPreset := Presets()[tag]
	override, hasOverride := d.Variants[tag]

	if !hasPreset && !hasOverride {
		return Variant{}, fmt.Errorf("%w %q (known: %v)", ErrUnknownVariant, tag, d.knownTags())
	}

	v := base.merge(override)
	if err := v.Validate(); err != nil {
		return Variant{}, fmt.Errorf("variant %q: %w", tag, err)
	}
	return v, nil
}

func (d *Description) knownTags() []string {
	seen := make(map[string]bool)
	for tag := range Presets() {
		seen[tag] = true
	}
	for tag := range d.Variants {
		seen[tag] = true
	}

	tags := make([]string, 0, len(seen))
	for tag := range seen {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

func (v Variant) merge(o Variant) Variant {
	if o.InputWidth != 0 {
		v.InputWidth = o.InputWidth
	}
	if o.InputHeight != 0 {
		v.InputHeight = o.InputHeight
	}
	if o.InputName != "" {
		v.InputName = o.InputName
	}
	if o.RegMax != 0 {
		v.RegMax = o.RegMax
	}
	if o.CenterOffset != nil {
		v.CenterOffset = o.CenterOffset
	}
	if o.Mean != nil {
		v.Mean = o.Mean
	}
	if o.Std != nil {
		v.Std = o.Std
	}
	if len(o.Heads) > 0 {
		v.Heads = o.Heads
	}
	return v
}

// Validate checks that the variant can drive preprocessing and decoding.
func (v Variant) Validate() error {
	if v.InputWidth <= 0 || v.InputHeight <= 0 {
		return fmt.Errorf("invalid input size %dx%d", v.InputWidth, v.InputHeight)
	}
	if v.InputName == "" {
		return errors.New("input name is empty")
	}
	if v.RegMax <= 0 {
		return fmt.Errorf("invalid reg_max %d", v.RegMax)
	}
	_, std := v.Normalization()
	for c, s := range std {
		if s == 0 {
			return fmt.Errorf("std of channel %d is zero", c)
		}
	}
	if len(v.Heads) == 0 {
		return errors.New("no heads defined")
	}
	for _, h := range v.Heads {
		if h.Stride <= 0 {
			return fmt.Errorf("invalid stride %d", h.Stride)
		}
		if h.ClsOutput == "" || h.DisOutput == "" {
			return fmt.Errorf("head with stride %d has no output names", h.Stride)
		}
	}
	return nil
}

// Offset returns the cell center offset, 0.5 when unset.
func (v Variant) Offset() float32 {
	if v.CenterOffset == nil {
		return 0.5
	}
	return *v.CenterOffset
}

// Normalization returns the per-channel mean and std in BGR order. Unset
// values fall back to the NanoDet defaults.
func (v Variant) Normalization() (mean, std [3]float32) {
	mean, std = defaultMean, defaultStd
	if v.Mean != nil {
		mean = *v.Mean
	}
	if v.Std != nil {
		std = *v.Std
	}
	return mean, std
}

// Bins is the number of distribution bins per box side.
func (v Variant) Bins() int {
	return v.RegMax + 1
}

// FeatureSize returns the feature map width and height of a stride.
func (v Variant) FeatureSize(stride int) (int, int) {
	return ceilDiv(v.InputWidth, stride), ceilDiv(v.InputHeight, stride)
}

// OutputNames lists every output blob the variant reads, cls before dis per head.
func (v Variant) OutputNames() []string {
	names := make([]string, 0, len(v.Heads)*2)
	for _, h := range v.Heads {
		names = append(names, h.ClsOutput, h.DisOutput)
	}
	return names
}

// OutputShapes returns the expected [1, cells, channels] shape of every output blob.
func (v Variant) OutputShapes(numClasses int) map[string][]int64 {
	shapes := make(map[string][]int64, len(v.Heads)*2)
	for _, h := range v.Heads {
		fw, fh := v.FeatureSize(h.Stride)
		cells := int64(fw * fh)
		shapes[h.ClsOutput] = []int64{1, cells, int64(numClasses)}
		shapes[h.DisOutput] = []int64{1, cells, int64(4 * v.Bins())}
	}
	return shapes
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
