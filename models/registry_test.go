package models

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-yolo/images"
	"github.com/nvr-ai/go-yolo/models/model"
	"github.com/nvr-ai/go-yolo/models/postprocess"
	"github.com/nvr-ai/go-yolo/models/yolov3"
)

func TestNewModel(t *testing.T) {
	for _, name := range Supported() {
		t.Run(string(name), func(t *testing.T) {
			m, err := NewModel(model.NewModelArgs{Name: name, Path: "model.onnx"})
			require.NoError(t, err)
			assert.Equal(t, name, m.Options().Name)
			assert.Equal(t, model.ModelFamilyYOLO, m.Options().Family)
			assert.Equal(t, "model.onnx", m.Options().Path)
		})
	}

	t.Run("416 preset", func(t *testing.T) {
		m, err := NewModel(model.NewModelArgs{Name: model.ModelNameYOLOv3Res416})
		require.NoError(t, err)
		config := m.(*yolov3.YOLOv3).Postprocessor().Config()
		assert.Equal(t, yolov3.Resolution{Height: 416, Width: 416}, config.InputResolution)
	})

	t.Run("unsupported", func(t *testing.T) {
		m, err := NewModel(model.NewModelArgs{Name: "rfdetr"})
		assert.Error(t, err)
		assert.Nil(t, m)
	})
}

func TestClassManager(t *testing.T) {
	require.Len(t, COCONames, 80)

	tests := []struct {
		idx  int
		name string
	}{
		{0, "person"},
		{2, "car"},
		{16, "dog"},
		{79, "toothbrush"},
	}
	for _, tt := range tests {
		name, err := DefaultClassManager.GetName(model.ModelFamilyYOLO, tt.idx)
		require.NoError(t, err)
		assert.Equal(t, tt.name, name)

		idx, err := DefaultClassManager.GetIndex(model.ModelFamilyYOLO, tt.name)
		require.NoError(t, err)
		assert.Equal(t, tt.idx, idx)
	}

	_, err := DefaultClassManager.GetName(model.ModelFamilyYOLO, 80)
	assert.True(t, errors.Is(err, ErrUnknownClass))
	_, err = DefaultClassManager.GetIndex(model.ModelFamilyYOLO, "unicorn")
	assert.True(t, errors.Is(err, ErrUnknownClass))
	_, err = DefaultClassManager.GetName("voc", 0)
	assert.Error(t, err)
}

func TestClassManager_Label(t *testing.T) {
	d := postprocess.Assemble([]postprocess.Candidate{
		{Box: images.Box{W: 10, H: 10}, Score: 0.9, Class: 0},
		{Box: images.Box{W: 5, H: 5}, Score: 0.8, Class: 2},
	})

	labelled, err := DefaultClassManager.Label(model.ModelFamilyYOLO, d)
	require.NoError(t, err)
	require.Len(t, labelled, 2)
	assert.Equal(t, "person", labelled[0].Label)
	assert.Equal(t, "car", labelled[1].Label)

	_, err = DefaultClassManager.Label("voc", d)
	assert.Error(t, err)
}
