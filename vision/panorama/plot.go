package panorama

import (
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"go.viam.com/panorama/rimage"
	"go.viam.com/panorama/rimage/transform"
	"go.viam.com/panorama/vision/keypoints"
)

var (
	inlierColor      = color.NRGBA{0, 200, 0, 255}
	outlierColor     = color.NRGBA{220, 0, 0, 255}
	detectedInlier   = color.NRGBA{0, 255, 0, 255}
	projectedInlier  = color.NRGBA{255, 0, 0, 255}
	detectedOutlier  = color.NRGBA{255, 255, 0, 255}
	projectedOutlier = color.NRGBA{0, 0, 255, 255}
)

// VisualizePairsWithInliers shows the two images side by side with every correspondence
// joined by a green line when it is an inlier and a red line otherwise.
func VisualizePairsWithInliers(img1, img2 image.Image, corrs []keypoints.FeatureCorrespondence, mask []bool) (image.Image, error) {
	if len(mask) != len(corrs) {
		return nil, errors.Errorf("inlier mask has %d entries for %d correspondences", len(mask), len(corrs))
	}
	dc := rimage.SideBySide(img1, img2)
	offset := float64(img1.Bounds().Dx())
	o1, o2 := img1.Bounds().Min, img2.Bounds().Min
	dc.SetLineWidth(1)
	for i, c := range corrs {
		p1 := c.Feature(0).Point().Sub(o1)
		p2 := c.Feature(1).Point().Sub(o2)
		if mask[i] {
			dc.SetColor(inlierColor)
		} else {
			dc.SetColor(outlierColor)
		}
		dc.DrawLine(float64(p1.X), float64(p1.Y), offset+float64(p2.X), float64(p2.Y))
		dc.Stroke()
	}
	return dc.Image(), nil
}

// VisualizeReprojection draws, on each image, the detected location of every correspondence
// next to where h (or its inverse, for the first image) sends its partner. Inliers are drawn
// green (detected) and red (reprojected), outliers yellow and blue.
func VisualizeReprojection(
	img1, img2 image.Image,
	h *transform.Homography,
	corrs []keypoints.FeatureCorrespondence,
	mask []bool,
) (image.Image, image.Image, error) {
	if len(mask) != len(corrs) {
		return nil, nil, errors.Errorf("inlier mask has %d entries for %d correspondences", len(mask), len(corrs))
	}
	inv, err := h.Inverse()
	if err != nil {
		return nil, nil, err
	}
	kps1, kps2 := keypoints.GetMatchingKeyPoints(corrs)
	draw := func(img image.Image, detected, partners keypoints.KeyPoints, m *transform.Homography) image.Image {
		dc := gg.NewContextForImage(img)
		origin := img.Bounds().Min
		for i := range detected {
			projected := m.Apply(transform.ToR2(partners[i]))
			det, proj := detectedOutlier, projectedOutlier
			if mask[i] {
				det, proj = detectedInlier, projectedInlier
			}
			rimage.DrawDisk(dc, detected[i].Sub(origin), 2, det)
			if math.Abs(projected.X) < 1e6 && math.Abs(projected.Y) < 1e6 {
				dc.SetColor(proj)
				dc.DrawCircle(projected.X-float64(origin.X), projected.Y-float64(origin.Y), 2)
				dc.Fill()
			}
		}
		return dc.Image()
	}
	return draw(img1, kps1, kps2, inv), draw(img2, kps2, kps1, h), nil
}

// SaveResidualHistogram plots a histogram of reprojection residuals to path; the image format
// follows the file extension.
func SaveResidualHistogram(residuals []float64, path string) error {
	if len(residuals) == 0 {
		return errors.New("no residuals to plot")
	}
	p := plot.New()
	p.Title.Text = "reprojection residuals"
	p.X.Label.Text = "pixels"
	p.Y.Label.Text = "correspondences"
	hist, err := plotter.NewHist(plotter.Values(residuals), 16)
	if err != nil {
		return err
	}
	p.Add(hist)
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
