package panorama

import (
	"image"
	"image/color"
	"os"
	"path/filepath"

	"github.com/samber/lo"
	"go.uber.org/multierr"

	"go.viam.com/panorama/rimage"
	"go.viam.com/panorama/utils"
	"go.viam.com/panorama/vision/keypoints"
)

var cornerColor = color.NRGBA{255, 0, 0, 255}

// writeDebugArtifacts saves the intermediate images of a run to cfg.DebugDir.
func writeDebugArtifacts(cfg *Config, imgA, imgB *rimage.FloatImage, detA, detB *detection, result *Result) error {
	if err := os.MkdirAll(cfg.DebugDir, 0o750); err != nil {
		return err
	}
	var err error
	save := func(name string, img image.Image) {
		err = multierr.Append(err, rimage.WriteImageToFile(filepath.Join(cfg.DebugDir, name), img))
	}

	for _, side := range []struct {
		suffix string
		img    *rimage.FloatImage
		det    *detection
	}{{"a", imgA, detA}, {"b", imgB, detB}} {
		response := side.det.response.Image()
		save("response_"+side.suffix+".png", response.ToNormalizedGray(0))
		save("response_max_"+side.suffix+".png", rimage.MaximumFilter(response, cfg.Harris.MaxiDiam).ToNormalizedGray(0))
		rgb := side.img.ToNRGBA()
		save("corners_"+side.suffix+".png", keypoints.VisualizeCorners(rgb, side.det.corners, 2, cornerColor))
		save("features_"+side.suffix+".png", keypoints.VisualizeFeatures(rgb, side.det.features))
	}

	rgbA, rgbB := imgA.ToNRGBA(), imgB.ToNRGBA()
	save("pairs.png", keypoints.VisualizePairs(rgbA, rgbB, result.Correspondences))
	inliers, visErr := VisualizePairsWithInliers(rgbA, rgbB, result.Correspondences, result.RANSAC.Inliers)
	if visErr != nil {
		err = multierr.Append(err, visErr)
	} else {
		save("inliers.png", inliers)
	}
	reprojA, reprojB, visErr := VisualizeReprojection(rgbA, rgbB, result.RANSAC.Homography, result.Correspondences, result.RANSAC.Inliers)
	if visErr != nil {
		err = multierr.Append(err, visErr)
	} else {
		save("reprojection_a.png", reprojA)
		save("reprojection_b.png", reprojB)
	}

	residuals := lo.Filter(Residuals(result.RANSAC.Homography, result.Correspondences), func(r float64, _ int) bool {
		return utils.IsFinite(r)
	})
	if len(residuals) > 0 {
		err = multierr.Append(err, SaveResidualHistogram(residuals, filepath.Join(cfg.DebugDir, "residuals.png")))
	}
	return err
}
