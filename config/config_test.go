package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-yolo/models/model"
	"github.com/nvr-ai/go-yolo/models/yolov3"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	for _, path := range []string{"", filepath.Join(t.TempDir(), "absent.yaml")} {
		cfg, err := Load(path)
		require.NoError(t, err)

		assert.False(t, cfg.Debug)
		assert.Equal(t, model.ModelNameYOLOv3, cfg.Model.Name)
		assert.Equal(t, yolov3.DefaultConfig(), cfg.Postprocess)
	}
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
debug: true
model:
  name: yolov3
  path: /models/yolov3.onnx
  library_path: /usr/lib/onnxruntime.so
postprocess:
  objectness_threshold: 0.5
  nms_iou_threshold: 0.45
  categories: 2
  workers: 4
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	assert.Equal(t, "/models/yolov3.onnx", cfg.Model.Path)
	assert.Equal(t, "/usr/lib/onnxruntime.so", cfg.Model.LibraryPath)
	assert.Equal(t, float32(0.5), cfg.Postprocess.ObjectnessThreshold)
	assert.Equal(t, float32(0.45), cfg.Postprocess.NMSThreshold)
	assert.Equal(t, 2, cfg.Postprocess.Categories)
	assert.Equal(t, 4, cfg.Postprocess.Workers)

	// Keys absent from the file keep the preset.
	assert.Equal(t, yolov3.COCOAnchors, cfg.Postprocess.Anchors)
	assert.Equal(t, yolov3.Resolution{Height: 608, Width: 608}, cfg.Postprocess.InputResolution)
}

func TestLoad_TinyPresetWithCustomAnchors(t *testing.T) {
	path := writeConfig(t, `
model:
  name: yolov3-tiny
postprocess:
  anchors: [[10, 14], [23, 27], [37, 58], [81, 82], [135, 169], [344, 320]]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, model.ModelNameYOLOv3Tiny, cfg.Model.Name)
	assert.Equal(t, []yolov3.Mask{{3, 4, 5}, {1, 2, 3}}, cfg.Postprocess.Masks)
	assert.Equal(t, yolov3.Resolution{Height: 416, Width: 416}, cfg.Postprocess.InputResolution)
	require.Len(t, cfg.Postprocess.Anchors, 6)
	assert.Equal(t, yolov3.Anchor{344, 320}, cfg.Postprocess.Anchors[5])
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, `
postprocess:
  objectness_threshold: 0.5
`)
	t.Setenv("CFG_POSTPROCESS__OBJECTNESS_THRESHOLD", "0.3")
	t.Setenv("CFG_POSTPROCESS__INPUT_RESOLUTION__HEIGHT", "416")
	t.Setenv("CFG_MODEL__NAME", "yolov3-416")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, float32(0.3), cfg.Postprocess.ObjectnessThreshold)
	assert.Equal(t, 416, cfg.Postprocess.InputResolution.Height)
	assert.Equal(t, 416, cfg.Postprocess.InputResolution.Width)
	assert.Equal(t, model.ModelNameYOLOv3Res416, cfg.Model.Name)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		invalid bool
	}{
		{name: "threshold out of range", body: "postprocess:\n  objectness_threshold: 1.5\n", invalid: true},
		{name: "mask out of range", body: "postprocess:\n  masks: [[0, 1, 9]]\n", invalid: true},
		{name: "unknown model", body: "model:\n  name: ssd\n"},
		{name: "malformed yaml", body: "postprocess: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Equal(t, tt.invalid, errors.Is(err, yolov3.ErrInvalidConfiguration))
		})
	}
}

func TestPreset(t *testing.T) {
	for name, want := range map[model.Name]yolov3.Config{
		"":                          yolov3.DefaultConfig(),
		model.ModelNameYOLOv3:       yolov3.Config608(),
		model.ModelNameYOLOv3Res416: yolov3.Config416(),
		model.ModelNameYOLOv3Tiny:   yolov3.TinyConfig(),
	} {
		got, err := Preset(name)
		require.NoError(t, err)
		assert.Equal(t, want, got, "preset %q", name)
	}
}

func TestEnvValue(t *testing.T) {
	key, value := envValue("CFG_POSTPROCESS__NMS_IOU_THRESHOLD", "0.4")
	assert.Equal(t, "postprocess.nms_iou_threshold", key)
	assert.Equal(t, "0.4", value)

	_, value = envValue("CFG_MODEL__OUTPUTS", "a,b")
	assert.Equal(t, []string{"a", "b"}, value)
}
