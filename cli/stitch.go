package cli

import (
	"fmt"
	"image/color"
	"io"
	"math/rand"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap/zapcore"
	"go.viam.com/utils"

	"go.viam.com/panorama/logging"
	"go.viam.com/panorama/rimage"
	"go.viam.com/panorama/vision/keypoints"
	"go.viam.com/panorama/vision/panorama"
)

const (
	logFileMaxSizeMB = 64
	histogramBins    = 8
	histogramWidth   = 40
)

var cornerColor = color.NRGBA{255, 0, 0, 255}

// printf prints a message with no decoration.
func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}

func newLogger(c *cli.Context) logging.Logger {
	level := zapcore.InfoLevel
	if c.Bool(flagDebug) {
		level = zapcore.DebugLevel
	}
	if path := c.String(flagLogFile); path != "" {
		return logging.NewFileLogger("autostitch", path, logFileMaxSizeMB, level)
	}
	if level == zapcore.DebugLevel {
		return logging.NewDebugLogger("autostitch")
	}
	return logging.NewLogger("autostitch")
}

// printResidualHistogram draws the distribution of residuals in the terminal. Nothing is drawn
// when all residuals are equal.
func printResidualHistogram(w io.Writer, residuals []float64) error {
	if len(residuals) == 0 || lo.Min(residuals) == lo.Max(residuals) {
		return nil
	}
	printf(w, "inlier residuals (px):")
	return histogram.Fprint(w, histogram.Hist(histogramBins, residuals), histogram.Linear(histogramWidth))
}

func requireArgs(c *cli.Context, n int) ([]string, error) {
	if c.Args().Len() != n {
		return nil, errors.Errorf("%s expects %d arguments: %s", c.Command.Name, n, c.Command.ArgsUsage)
	}
	return c.Args().Slice(), nil
}

// loadConfig reads --config when given and applies the flags that were set on top of it.
func loadConfig(c *cli.Context) (*panorama.Config, error) {
	cfg := panorama.DefaultConfig()
	path := c.String(flagConfig)
	if path != "" {
		var err error
		if cfg, err = panorama.LoadConfig(path); err != nil {
			return nil, err
		}
	}
	if c.IsSet(flagSeed) {
		cfg.Seed = c.Int64(flagSeed)
	}
	if c.IsSet(flagIterations) {
		cfg.RANSAC.NIter = c.Int(flagIterations)
	}
	if c.IsSet(flagEpsilon) {
		cfg.RANSAC.Epsilon = c.Float64(flagEpsilon)
	}
	if c.IsSet(flagInlierScope) {
		cfg.RANSAC.InlierScope = panorama.InlierScope(c.String(flagInlierScope))
	}
	if c.IsSet(flagThreshold) {
		cfg.Matching.Threshold = c.Float64(flagThreshold)
	}
	if c.IsSet(flagRadius) {
		cfg.Descriptor.Radius = c.Int(flagRadius)
	}
	if c.IsSet(flagMaxSize) {
		cfg.MaxDetectionSize = c.Int(flagMaxSize)
	}
	if c.IsSet(flagBilinear) {
		cfg.Bilinear = c.Bool(flagBilinear)
	}
	if c.IsSet(flagDebugDir) {
		cfg.DebugDir = c.String(flagDebugDir)
	}
	if err := cfg.Validate(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// StitchAction stitches two images into a panorama and prints a summary of the run.
func StitchAction(c *cli.Context) error {
	args, err := requireArgs(c, 3)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger := newLogger(c)
	defer utils.UncheckedErrorFunc(logger.Sync)

	result, err := panorama.StitchFiles(c.Context, args[0], args[1], cfg, logger)
	if err != nil {
		return err
	}
	if err := rimage.WriteImageToFile(args[2], result.Panorama.ToNRGBA()); err != nil {
		return err
	}
	printf(c.App.Writer, "%s", result.Report)
	if err := printResidualHistogram(c.App.Writer, result.InlierResiduals()); err != nil {
		return err
	}
	printf(c.App.Writer, "homography:\n%s", result.Homography)
	printf(c.App.Writer, "wrote %s", args[2])
	return nil
}

// CornersAction draws the Harris corners of an image.
func CornersAction(c *cli.Context) error {
	args, err := requireArgs(c, 2)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	img, err := rimage.NewFloatImageFromFile(args[0])
	if err != nil {
		return err
	}
	corners, err := keypoints.HarrisCorners(img, cfg.Harris)
	if err != nil {
		return err
	}
	overlay := keypoints.VisualizeCorners(img.ToNRGBA(), corners, 3, cornerColor)
	if err := rimage.WriteImageToFile(args[1], overlay); err != nil {
		return err
	}
	printf(c.App.Writer, "found %d corners, wrote %s", len(corners), args[1])
	return nil
}

// MatchAction matches the features of two images, flags the matches RANSAC agrees with and
// draws the pairs side by side.
func MatchAction(c *cli.Context) error {
	args, err := requireArgs(c, 3)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	imgA, err := rimage.NewFloatImageFromFile(args[0])
	if err != nil {
		return err
	}
	imgB, err := rimage.NewFloatImageFromFile(args[1])
	if err != nil {
		return err
	}
	_, featuresA, err := panorama.ExtractFeatures(c.Context, imgA, cfg)
	if err != nil {
		return err
	}
	_, featuresB, err := panorama.ExtractFeatures(c.Context, imgB, cfg)
	if err != nil {
		return err
	}
	corrs, err := keypoints.FindCorrespondences(featuresA, featuresB, cfg.Matching.Threshold)
	if err != nil {
		return err
	}

	inliers := make([]bool, len(corrs))
	if len(corrs) >= 4 {
		//nolint:gosec
		estimate, err := panorama.RANSAC(corrs, cfg.RANSAC, rand.New(rand.NewSource(cfg.Seed)))
		if err != nil {
			return err
		}
		inliers = estimate.Inliers
	}
	vis, err := panorama.VisualizePairsWithInliers(imgA.ToNRGBA(), imgB.ToNRGBA(), corrs, inliers)
	if err != nil {
		return err
	}
	if err := rimage.WriteImageToFile(args[2], vis); err != nil {
		return err
	}

	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Image A", "Image B", "Inlier"})
	for i, corr := range corrs {
		t.AppendRow(table.Row{i, corr.Feature(0).Point(), corr.Feature(1).Point(), inliers[i]})
	}
	t.AppendFooter(table.Row{"", len(featuresA), len(featuresB), panorama.CountInliers(inliers)})
	printf(c.App.Writer, "%s", t.Render())
	printf(c.App.Writer, "wrote %s", args[2])
	return nil
}
