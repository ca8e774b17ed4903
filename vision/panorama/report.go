package panorama

import (
	"fmt"
	"image"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/montanaflynn/stats"
	"github.com/samber/lo"
)

// Report summarizes a stitching run.
type Report struct {
	CornersA         int
	CornersB         int
	FeaturesA        int
	FeaturesB        int
	Correspondences  int
	Inliers          int
	Iterations       int
	DegenerateTrials int
	// MedianResidual and MeanResidual are the reprojection errors of the inliers, in full
	// resolution pixels.
	MedianResidual float64
	MeanResidual   float64
	DetectionScale float64
	CanvasSize     image.Point
}

// String prints the report as a table, one row per pipeline stage.
func (r Report) String() string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Stage", "Image A", "Image B"})
	t.AppendRow(table.Row{"corners", r.CornersA, r.CornersB})
	t.AppendRow(table.Row{"features", r.FeaturesA, r.FeaturesB})
	t.AppendSeparator()
	t.AppendRow(table.Row{"correspondences", r.Correspondences, ""})
	t.AppendRow(table.Row{"inliers", r.Inliers, ""})
	t.AppendRow(table.Row{"iterations", fmt.Sprintf("%d (%d degenerate)", r.Iterations, r.DegenerateTrials), ""})
	t.AppendRow(table.Row{"residual px", fmt.Sprintf("median %.3f", r.MedianResidual), fmt.Sprintf("mean %.3f", r.MeanResidual)})
	t.AppendRow(table.Row{"detection scale", fmt.Sprintf("%.3f", r.DetectionScale), ""})
	t.AppendRow(table.Row{"canvas", fmt.Sprintf("%dx%d", r.CanvasSize.X, r.CanvasSize.Y), ""})
	return t.Render()
}

// inlierResiduals returns the reprojection errors of the inliers of a run, divided by the
// detection scale to bring them back to full resolution pixels.
func inlierResiduals(result *Result, scale float64) []float64 {
	residuals := Residuals(result.RANSAC.Homography, result.Correspondences)
	inliers := lo.Filter(residuals, func(_ float64, i int) bool {
		return result.RANSAC.Inliers[i]
	})
	return lo.Map(inliers, func(r float64, _ int) float64 {
		return r / scale
	})
}

// InlierResiduals returns the reprojection errors of the inliers in full resolution pixels.
func (result *Result) InlierResiduals() []float64 {
	scale := result.Report.DetectionScale
	if scale == 0 {
		scale = 1
	}
	return inlierResiduals(result, scale)
}

func buildReport(result *Result, scale float64) Report {
	report := Report{
		CornersA:         len(result.CornersA),
		CornersB:         len(result.CornersB),
		FeaturesA:        len(result.FeaturesA),
		FeaturesB:        len(result.FeaturesB),
		Correspondences:  len(result.Correspondences),
		Inliers:          result.RANSAC.InlierCount,
		Iterations:       result.RANSAC.Iterations,
		DegenerateTrials: result.RANSAC.DegenerateTrials,
		DetectionScale:   scale,
		CanvasSize:       image.Point{result.Panorama.Width(), result.Panorama.Height()},
	}
	residuals := stats.Float64Data(inlierResiduals(result, scale))
	if median, err := stats.Median(residuals); err == nil {
		report.MedianResidual = median
	}
	if mean, err := stats.Mean(residuals); err == nil {
		report.MeanResidual = mean
	}
	return report
}
