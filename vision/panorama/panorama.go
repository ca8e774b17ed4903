// Package panorama estimates the homography between two overlapping images and composites
// them into a single panorama.
package panorama

import (
	"context"
	"image"
	"math"
	"math/rand"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"
	"golang.org/x/sync/errgroup"

	"go.viam.com/panorama/logging"
	"go.viam.com/panorama/rimage"
	"go.viam.com/panorama/rimage/transform"
	"go.viam.com/panorama/vision/keypoints"
)

// Result holds the output of every stage of the pipeline. Corners, features and
// correspondences live in detection coordinates, see Report.DetectionScale.
type Result struct {
	CornersA        keypoints.KeyPoints
	CornersB        keypoints.KeyPoints
	FeaturesA       []*keypoints.Feature
	FeaturesB       []*keypoints.Feature
	Correspondences []keypoints.FeatureCorrespondence
	RANSAC          *RANSACResult
	// Homography maps full resolution points of the first image onto the second.
	Homography *transform.Homography
	Panorama   *rimage.FloatImage
	Report     Report
}

type detection struct {
	response *keypoints.CornerResponse
	corners  keypoints.KeyPoints
	features []*keypoints.Feature
}

func detect(ctx context.Context, img *rimage.FloatImage, cfg *Config) (*detection, error) {
	_, span := trace.StartSpan(ctx, "panorama::detect")
	defer span.End()

	response, err := keypoints.ComputeCornerResponse(img, cfg.Harris)
	if err != nil {
		return nil, err
	}
	corners := response.LocalMaxima(cfg.Harris.MaxiDiam, cfg.Harris.BoundarySize)
	usable := keypoints.FilterCornersForDescriptor(corners, img.Bounds(), cfg.Descriptor.Radius)
	features, err := keypoints.ComputeFeatures(img, usable, cfg.Descriptor)
	if err != nil {
		return nil, err
	}
	return &detection{response: response, corners: corners, features: features}, nil
}

// ExtractFeatures detects the corners of img and describes those far enough from the edges.
func ExtractFeatures(ctx context.Context, img *rimage.FloatImage, cfg *Config) (keypoints.KeyPoints, []*keypoints.Feature, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(""); err != nil {
		return nil, nil, err
	}
	det, err := detect(ctx, img, cfg)
	if err != nil {
		return nil, nil, err
	}
	return det.corners, det.features, nil
}

// detectionScale is the factor that brings the larger dimension of both images down to maxSize.
func detectionScale(a, b image.Rectangle, maxSize int) float64 {
	if maxSize <= 0 {
		return 1
	}
	largest := max(a.Dx(), a.Dy(), b.Dx(), b.Dy())
	if largest <= maxSize {
		return 1
	}
	return float64(maxSize) / float64(largest)
}

func downscale(img image.Image, scale float64) image.Image {
	if scale == 1 {
		return img
	}
	b := img.Bounds()
	width := uint(math.Max(1, math.Round(float64(b.Dx())*scale)))
	height := uint(math.Max(1, math.Round(float64(b.Dy())*scale)))
	return resize.Resize(width, height, img, resize.Bilinear)
}

// Stitch finds corners in both images, matches their descriptors, estimates the homography
// from imgA to imgB with RANSAC and composites imgA onto the frame of imgB.
func Stitch(ctx context.Context, imgA, imgB image.Image, cfg *Config, logger logging.Logger) (*Result, error) {
	ctx, span := trace.StartSpan(ctx, "panorama::Stitch")
	defer span.End()

	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(""); err != nil {
		return nil, err
	}
	if imgA.Bounds().Empty() || imgB.Bounds().Empty() {
		return nil, rimage.ErrEmptyImage
	}

	scale := detectionScale(imgA.Bounds(), imgB.Bounds(), cfg.MaxDetectionSize)
	fullA, fullB := rimage.NewFloatImageFromImage(imgA), rimage.NewFloatImageFromImage(imgB)
	smallA, smallB := fullA, fullB
	if scale != 1 {
		smallA = rimage.NewFloatImageFromImage(downscale(imgA, scale))
		smallB = rimage.NewFloatImageFromImage(downscale(imgB, scale))
		logger.Debugw("detecting at reduced resolution", "scale", scale,
			"width_a", smallA.Width(), "height_a", smallA.Height(),
			"width_b", smallB.Width(), "height_b", smallB.Height())
	}

	var detA, detB *detection
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		detA, err = detect(gctx, smallA, cfg)
		return errors.Wrap(err, "cannot detect features of the first image")
	})
	g.Go(func() error {
		var err error
		detB, err = detect(gctx, smallB, cfg)
		return errors.Wrap(err, "cannot detect features of the second image")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	logger.Debugw("detected features",
		"corners_a", len(detA.corners), "features_a", len(detA.features),
		"corners_b", len(detB.corners), "features_b", len(detB.features))

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_, matchSpan := trace.StartSpan(ctx, "panorama::match")
	corrs, err := keypoints.FindCorrespondences(detA.features, detB.features, cfg.Matching.Threshold)
	matchSpan.End()
	if err != nil {
		return nil, err
	}
	logger.Debugw("matched features", "correspondences", len(corrs))

	_, ransacSpan := trace.StartSpan(ctx, "panorama::ransac")
	estimate, err := RANSAC(corrs, cfg.RANSAC, rand.New(rand.NewSource(cfg.Seed))) //nolint:gosec
	ransacSpan.End()
	if err != nil {
		return nil, err
	}
	if estimate.InlierCount == 0 {
		logger.Warnw("no homography explains any correspondence, compositing with the identity",
			"correspondences", len(corrs), "iterations", estimate.Iterations)
	}
	logger.Debugw("estimated homography", "homography", estimate.Homography.String(),
		"inliers", estimate.InlierCount, "degenerate_trials", estimate.DegenerateTrials)

	h := estimate.Homography
	if scale != 1 {
		h = transform.Scaling(1 / scale).Compose(h).Compose(transform.Scaling(scale))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_, compositeSpan := trace.StartSpan(ctx, "panorama::composite")
	pano, err := Composite(fullA, fullB, h, cfg.Bilinear)
	compositeSpan.End()
	if err != nil {
		return nil, err
	}

	result := &Result{
		CornersA:        detA.corners,
		CornersB:        detB.corners,
		FeaturesA:       detA.features,
		FeaturesB:       detB.features,
		Correspondences: corrs,
		RANSAC:          estimate,
		Homography:      h,
		Panorama:        pano,
	}
	result.Report = buildReport(result, scale)
	logger.Infow("stitched panorama",
		"inliers", result.Report.Inliers, "correspondences", result.Report.Correspondences,
		"width", pano.Width(), "height", pano.Height())

	if cfg.DebugDir != "" {
		if err := writeDebugArtifacts(cfg, smallA, smallB, detA, detB, result); err != nil {
			logger.Warnw("cannot write debug artifacts", "dir", cfg.DebugDir, "error", err)
		}
	}
	return result, nil
}

// StitchFiles reads two image files and stitches them.
func StitchFiles(ctx context.Context, pathA, pathB string, cfg *Config, logger logging.Logger) (*Result, error) {
	imgA, err := rimage.ReadImageFromFile(pathA)
	if err != nil {
		return nil, err
	}
	imgB, err := rimage.ReadImageFromFile(pathB)
	if err != nil {
		return nil, err
	}
	return Stitch(ctx, imgA, imgB, cfg, logger)
}
