package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dukex/canvasflow/pkg/canvas"
	"github.com/dukex/canvasflow/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	t.Parallel()

	settings := config.Default()
	require.NoError(t, settings.Validate())

	assert.Equal(t, 60*time.Second, settings.Kernel.RunTimeout())

	table := settings.RoleTable()
	assert.NotEmpty(t, table.ColorFor(canvas.RoleOutput))
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	contents := `
inference:
  host: http://127.0.0.1:11434
  primary:
    model: mistral
    temperature: 0.9
  secondary:
    model: llama3.1
  tertiary:
    model: qwen2.5-coder
kernel:
  command: python3
  args: ["-i", "-q", "-u"]
  timeout_seconds: 30
colors:
  "#FF00AA": primary-model
  "1": code
  "2": output
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	settings, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "mistral", settings.Inference.Primary.Model)
	assert.InDelta(t, 0.9, settings.Inference.Primary.Temperature, 0.001)
	assert.Equal(t, 30*time.Second, settings.Kernel.RunTimeout())

	// Hex keys normalize on table construction.
	role, ok := canvas.ClassifyRole(&canvas.Node{ID: "n", Type: canvas.NodeTypeText, Color: "#ff00aa"}, settings.RoleTable())
	require.True(t, ok)
	assert.Equal(t, canvas.RolePrimaryModel, role)
}

func TestLoad_RejectsUnknownRole(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	contents := `
colors:
  "1": mystery-role
  "2": output
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestLoad_RejectsMissingOutputColor(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yaml")
	contents := `
colors:
  "1": code
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	_, err := config.Load(path)
	assert.ErrorContains(t, err, "output")
}

func TestModelFor(t *testing.T) {
	t.Parallel()

	settings := config.Default()

	model, ok := settings.ModelFor(canvas.RoleSecondaryModel)
	require.True(t, ok)
	assert.Equal(t, settings.Inference.Secondary, model)

	_, ok = settings.ModelFor(canvas.RoleCode)
	assert.False(t, ok)
}
