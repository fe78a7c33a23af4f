package journal

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"nanodet/internal/models"
	"nanodet/internal/repository"
)

// ErrRunNotFound is returned when a run id is not in the journal.
var ErrRunNotFound = errors.New("run not found")

// Reader prints the contents of the run journal.
type Reader struct {
	runs       repository.RunRepository
	detections repository.DetectionRepository
	out        io.Writer
}

// NewReader creates a Reader writing to out.
func NewReader(runs repository.RunRepository, detections repository.DetectionRepository, out io.Writer) *Reader {
	return &Reader{runs: runs, detections: detections, out: out}
}

// List prints the runs matching filter, newest first, followed by the total.
func (r *Reader) List(filter *models.RunFilter) error {
	runs, err := r.runs.GetAll(filter)
	if err != nil {
		return err
	}
	total, err := r.runs.GetTotalCount(filter)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTIME\tINPUT\tSIZE\tMODEL\tENGINE\tOBJECTS\tDURATION")
	for _, run := range runs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%dx%d\t%s\t%s/%s\t%d\t%s\n",
			run.ID, run.Timestamp.Format("2006-01-02 15:04:05"), run.InputPath, run.Width, run.Height,
			run.ModelCfg, run.Engine, run.ComputeUnits, run.ObjectCount, run.Duration)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(r.out, "Showing %d of %d runs\n", len(runs), total)
	return nil
}

// Show prints one run and its detections.
func (r *Reader) Show(id int64) error {
	run, err := r.runs.GetByID(id)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}

	detections, err := r.detections.GetByRunID(id)
	if err != nil {
		return err
	}

	fmt.Fprintf(r.out, "Run %d: %s -> %s (%dx%d, %s on %s/%s, %s)\n",
		run.ID, run.InputPath, run.OutputPath, run.Width, run.Height,
		run.ModelCfg, run.Engine, run.ComputeUnits, run.Duration)

	tw := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LABEL\tSCORE\tX1\tY1\tX2\tY2")
	for _, det := range detections {
		fmt.Fprintf(tw, "%s\t%.3f\t%.0f\t%.0f\t%.0f\t%.0f\n", det.Label, det.Score, det.X1, det.Y1, det.X2, det.Y2)
	}
	return tw.Flush()
}

// Stats prints how often each label was detected, most frequent first.
func (r *Reader) Stats() error {
	counts, err := r.detections.GetLabelCounts()
	if err != nil {
		return err
	}

	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if counts[labels[i]] != counts[labels[j]] {
			return counts[labels[i]] > counts[labels[j]]
		}
		return labels[i] < labels[j]
	})

	tw := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "LABEL\tCOUNT")
	for _, label := range labels {
		fmt.Fprintf(tw, "%s\t%d\n", label, counts[label])
	}
	return tw.Flush()
}

// Delete removes a run and its detections.
func (r *Reader) Delete(id int64) error {
	run, err := r.runs.GetByID(id)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}

	if err := r.runs.Delete(id); err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Deleted run %d\n", id)
	return nil
}
