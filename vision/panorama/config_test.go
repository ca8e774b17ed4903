package panorama

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	test.That(t, cfg.Validate(""), test.ShouldBeNil)
	test.That(t, cfg.Harris.K, test.ShouldEqual, 0.15)
	test.That(t, cfg.Descriptor.Radius, test.ShouldEqual, 4)
	test.That(t, cfg.Descriptor.SkipDegenerate, test.ShouldBeTrue)
	test.That(t, cfg.Matching.Threshold, test.ShouldEqual, 1.)
	test.That(t, cfg.RANSAC.NIter, test.ShouldEqual, 500)
	test.That(t, cfg.RANSAC.Epsilon, test.ShouldEqual, 4.)
	test.That(t, cfg.RANSAC.InlierScope, test.ShouldEqual, InlierScopeFull)
	test.That(t, cfg.Bilinear, test.ShouldBeTrue)
	test.That(t, cfg.MaxDetectionSize, test.ShouldEqual, 0)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "stitch.json")
	contents := `{
		// detector
		"harris": {"k": 0.04, "maxi_diam": 5},
		"ransac": {"n_iter": 50, "inlier_scope": "sample"},
		"bilinear": false,
		"max_detection_size": 800,
		"seed": 12
	}`
	test.That(t, os.WriteFile(file, []byte(contents), 0o600), test.ShouldBeNil)

	cfg, err := LoadConfig(file)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Harris.K, test.ShouldEqual, 0.04)
	test.That(t, cfg.Harris.MaxiDiam, test.ShouldEqual, 5)
	// fields missing from the file keep their defaults
	test.That(t, cfg.Harris.SigmaG, test.ShouldEqual, 1.)
	test.That(t, cfg.Descriptor.Radius, test.ShouldEqual, 4)
	test.That(t, cfg.RANSAC.NIter, test.ShouldEqual, 50)
	test.That(t, cfg.RANSAC.Epsilon, test.ShouldEqual, 4.)
	test.That(t, cfg.RANSAC.InlierScope, test.ShouldEqual, InlierScopeSample)
	test.That(t, cfg.Bilinear, test.ShouldBeFalse)
	test.That(t, cfg.MaxDetectionSize, test.ShouldEqual, 800)
	test.That(t, cfg.Seed, test.ShouldEqual, int64(12))

	// seeds beyond 2^53 keep every digit
	bigSeed := filepath.Join(dir, "seed.json")
	test.That(t, os.WriteFile(bigSeed, []byte(`{"seed": 9007199254740993, "ransac": {"epsilon": 2.5,},}`), 0o600), test.ShouldBeNil)
	cfg, err = LoadConfig(bigSeed)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Seed, test.ShouldEqual, int64(9007199254740993))
	test.That(t, cfg.RANSAC.Epsilon, test.ShouldEqual, 2.5)

	_, err = LoadConfig(filepath.Join(dir, "missing.json"))
	test.That(t, err, test.ShouldNotBeNil)

	garbled := filepath.Join(dir, "garbled.json")
	test.That(t, os.WriteFile(garbled, []byte(`{"harris": `), 0o600), test.ShouldBeNil)
	_, err = LoadConfig(garbled)
	test.That(t, err, test.ShouldNotBeNil)

	invalid := filepath.Join(dir, "invalid.json")
	test.That(t, os.WriteFile(invalid, []byte(`{"ransac": {"epsilon": -1}}`), 0o600), test.ShouldBeNil)
	_, err = LoadConfig(invalid)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "epsilon")
}

func TestConfigValidate(t *testing.T) {
	for _, tc := range []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"missing harris", func(c *Config) { c.Harris = nil }, "harris"},
		{"missing descriptor", func(c *Config) { c.Descriptor = nil }, "descriptor"},
		{"missing matching", func(c *Config) { c.Matching = nil }, "matching"},
		{"missing ransac", func(c *Config) { c.RANSAC = nil }, "ransac"},
		{"bad iterations", func(c *Config) { c.RANSAC.NIter = 0 }, "n_iter"},
		{"bad max size", func(c *Config) { c.MaxDetectionSize = -1 }, "max_detection_size"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate("stitch")
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.field)
		})
	}
}
