package panorama

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/yosuke-furukawa/json5/encoding/json5"
	"go.viam.com/utils"

	"go.viam.com/panorama/vision/keypoints"
)

// Config contains every parameter of the stitching pipeline.
type Config struct {
	Harris     *keypoints.HarrisConfig     `json:"harris"`
	Descriptor *keypoints.DescriptorConfig `json:"descriptor"`
	Matching   *keypoints.MatchingConfig   `json:"matching"`
	RANSAC     *RANSACConfig               `json:"ransac"`
	// Bilinear selects bilinear over nearest neighbor sampling when compositing.
	Bilinear bool `json:"bilinear"`
	// MaxDetectionSize caps the larger dimension of the images features are detected on;
	// 0 detects at full resolution.
	MaxDetectionSize int   `json:"max_detection_size"`
	Seed             int64 `json:"seed"`
	// DebugDir receives intermediate images when set.
	DebugDir string `json:"debug_dir"`
}

// DefaultConfig returns the pipeline configuration used when nothing is specified.
func DefaultConfig() *Config {
	descriptor := keypoints.DefaultDescriptorConfig()
	descriptor.SkipDegenerate = true
	return &Config{
		Harris:     keypoints.DefaultHarrisConfig(),
		Descriptor: descriptor,
		Matching:   keypoints.DefaultMatchingConfig(),
		RANSAC:     DefaultRANSACConfig(),
		Bilinear:   true,
	}
}

// LoadConfig loads a Config from a JSON5 file, so comments and trailing commas are allowed.
// Fields missing from the file keep their default values.
func LoadConfig(file string) (*Config, error) {
	config := DefaultConfig()
	data, err := os.ReadFile(filepath.Clean(file))
	if err != nil {
		return nil, err
	}
	dec := json5.NewDecoder(bytes.NewReader(data))
	// numbers stay literal so int64 fields such as seed keep every digit
	dec.UseNumber()
	var relaxed interface{}
	if err := dec.Decode(&relaxed); err != nil {
		return nil, errors.Wrapf(err, "cannot parse config %q", file)
	}
	// the fields are decoded from strict JSON so the json struct tags apply
	strict, err := json.Marshal(strictNumbers(relaxed))
	if err != nil {
		return nil, errors.Wrapf(err, "cannot decode config %q", file)
	}
	if err := json.Unmarshal(strict, config); err != nil {
		return nil, errors.Wrapf(err, "cannot decode config %q", file)
	}
	if err := config.Validate(file); err != nil {
		return nil, err
	}
	return config, nil
}

// strictNumbers replaces the json5 number literals of a decoded document with json.Number so
// they are written back verbatim.
func strictNumbers(v interface{}) interface{} {
	switch v := v.(type) {
	case json5.Number:
		return json.Number(v)
	case map[string]interface{}:
		for k, e := range v {
			v[k] = strictNumbers(e)
		}
	case []interface{}:
		for i, e := range v {
			v[i] = strictNumbers(e)
		}
	}
	return v
}

// Validate ensures all parts of the Config are valid.
func (config *Config) Validate(path string) error {
	if config.Harris == nil {
		return utils.NewConfigValidationFieldRequiredError(path, "harris")
	}
	if config.Descriptor == nil {
		return utils.NewConfigValidationFieldRequiredError(path, "descriptor")
	}
	if config.Matching == nil {
		return utils.NewConfigValidationFieldRequiredError(path, "matching")
	}
	if config.RANSAC == nil {
		return utils.NewConfigValidationFieldRequiredError(path, "ransac")
	}
	if err := config.Harris.Validate(path); err != nil {
		return err
	}
	if err := config.Descriptor.Validate(path); err != nil {
		return err
	}
	if err := config.Matching.Validate(path); err != nil {
		return err
	}
	if err := config.RANSAC.Validate(path); err != nil {
		return err
	}
	if config.MaxDetectionSize < 0 {
		return utils.NewConfigValidationError(path, errors.New("max_detection_size should be >= 0"))
	}
	return nil
}
