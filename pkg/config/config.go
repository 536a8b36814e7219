// Package config loads and validates engine settings: the color-to-role
// table, per-role model parameters, kernel command and inference host.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/dukex/canvasflow/pkg/canvas"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"
)

const (
	DefaultInferenceHost = "http://127.0.0.1:11434"
	DefaultKernelCommand = "python3"
)

// ModelSettings configures one model-call role.
type ModelSettings struct {
	Model       string  `yaml:"model"       validate:"required"`
	Temperature float64 `yaml:"temperature" validate:"gte=0,lte=2"`
}

// InferenceSettings configures the local generation endpoint.
type InferenceSettings struct {
	Host      string        `yaml:"host"      validate:"required,url"`
	Primary   ModelSettings `yaml:"primary"   validate:"required"`
	Secondary ModelSettings `yaml:"secondary" validate:"required"`
	Tertiary  ModelSettings `yaml:"tertiary"  validate:"required"`
}

// KernelSettings configures the interpreter subprocess.
type KernelSettings struct {
	Command        string   `yaml:"command"         validate:"required"`
	Args           []string `yaml:"args"`
	TimeoutSeconds int      `yaml:"timeout_seconds" validate:"gt=0"`
}

// RunTimeout returns the per-call timeout as a duration.
func (k KernelSettings) RunTimeout() time.Duration {
	return time.Duration(k.TimeoutSeconds) * time.Second
}

// SidecarSettings toggles the optional auxiliary nodes model runs produce.
// The output sidecar is always written.
type SidecarSettings struct {
	Prompt   bool `yaml:"prompt"`
	Thinking bool `yaml:"thinking"`
}

// Settings is the full engine configuration.
type Settings struct {
	Inference InferenceSettings      `yaml:"inference" validate:"required"`
	Kernel    KernelSettings         `yaml:"kernel"    validate:"required"`
	Sidecars  SidecarSettings        `yaml:"sidecars"`
	Colors    map[string]canvas.Role `yaml:"colors"    validate:"required,min=1,dive,oneof=primary-model secondary-model tertiary-model code passthrough output"`
}

// Default returns the settings used when no file is given: canvas preset
// colors mapped to roles and a local Ollama endpoint.
func Default() *Settings {
	return &Settings{
		Inference: InferenceSettings{
			Host:      DefaultInferenceHost,
			Primary:   ModelSettings{Model: "llama3.1", Temperature: 0.7},
			Secondary: ModelSettings{Model: "llama3.1", Temperature: 0.2},
			Tertiary:  ModelSettings{Model: "qwen2.5-coder", Temperature: 0.2},
		},
		Kernel: KernelSettings{
			Command:        DefaultKernelCommand,
			Args:           []string{"-i", "-q", "-u"},
			TimeoutSeconds: 60,
		},
		Sidecars: SidecarSettings{Prompt: false, Thinking: false},
		Colors: map[string]canvas.Role{
			"6": canvas.RolePrimaryModel,
			"5": canvas.RoleSecondaryModel,
			"4": canvas.RoleTertiaryModel,
			"1": canvas.RoleCode,
			"3": canvas.RolePassthrough,
			"2": canvas.RoleOutput,
		},
	}
}

// Load reads a YAML settings file over the defaults. An empty path returns
// the defaults unchanged. The result is always validated.
func Load(path string) (*Settings, error) {
	settings := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read settings file %s: %w", path, err)
		}

		var file Settings
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse settings file %s: %w", path, err)
		}

		settings.merge(&file)
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}

	return settings, nil
}

// merge overlays the non-empty fields of a settings file onto the defaults.
// A colors section, when present, replaces the default table wholesale so a
// user mapping is never silently mixed with defaults.
func (s *Settings) merge(file *Settings) {
	if file.Inference.Host != "" {
		s.Inference.Host = file.Inference.Host
	}

	if file.Inference.Primary.Model != "" {
		s.Inference.Primary = file.Inference.Primary
	}

	if file.Inference.Secondary.Model != "" {
		s.Inference.Secondary = file.Inference.Secondary
	}

	if file.Inference.Tertiary.Model != "" {
		s.Inference.Tertiary = file.Inference.Tertiary
	}

	if file.Kernel.Command != "" {
		s.Kernel.Command = file.Kernel.Command
		s.Kernel.Args = file.Kernel.Args
	}

	if file.Kernel.TimeoutSeconds > 0 {
		s.Kernel.TimeoutSeconds = file.Kernel.TimeoutSeconds
	}

	s.Sidecars = file.Sidecars

	if file.Colors != nil {
		s.Colors = file.Colors
	}
}

// Validate checks the settings against their struct constraints.
func (s *Settings) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())

	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	if s.RoleTable().ColorFor(canvas.RoleOutput) == "" {
		return fmt.Errorf("invalid settings: no color mapped to the output role")
	}

	return nil
}

// RoleTable returns the normalized color-to-role table.
func (s *Settings) RoleTable() canvas.RoleTable {
	return canvas.NewRoleTable(s.Colors)
}

// ModelFor returns the model parameters for a model-call role.
func (s *Settings) ModelFor(role canvas.Role) (ModelSettings, bool) {
	switch role {
	case canvas.RolePrimaryModel:
		return s.Inference.Primary, true
	case canvas.RoleSecondaryModel:
		return s.Inference.Secondary, true
	case canvas.RoleTertiaryModel:
		return s.Inference.Tertiary, true
	default:
		return ModelSettings{}, false
	}
}
