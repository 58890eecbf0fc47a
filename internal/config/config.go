// Package config loads and validates user settings from settings.json.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Whisper locates the recognition backend.
type Whisper struct {
	BinPath  string `json:"binPath"`
	ModelDir string `json:"modelDir"`
}

// Settings is the persisted user configuration. Field names follow the
// camelCase settings file schema.
type Settings struct {
	Language           string  `json:"language" validate:"required"`
	Model              string  `json:"model" validate:"oneof=tiny base small medium large"`
	Device             string  `json:"device"`
	Hotkey             string  `json:"hotkey"`
	AutoStart          bool    `json:"autoStart"`
	AutoPaste          bool    `json:"autoPaste"`
	RetentionDays      int     `json:"retentionDays" validate:"min=0"`
	Theme              string  `json:"theme" validate:"oneof=system light dark"`
	OnboardingComplete bool    `json:"onboardingComplete"`
	Whisper            Whisper `json:"whisper"`
}

// Loaded captures the resolved settings path, parsed values, and non-fatal
// warnings.
type Loaded struct {
	Path     string
	Settings Settings
	Warnings []string
	Exists   bool
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Default returns the settings used when no file is present.
func Default() Settings {
	return Settings{
		Language:      "auto",
		Model:         "base",
		Device:        "default",
		Hotkey:        "ctrl+shift+space",
		AutoPaste:     true,
		RetentionDays: 30,
		Theme:         "system",
	}
}

// ResolvePath applies CLI/XDG/home fallback rules for settings.json location.
func ResolvePath(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}

	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "voiceflow", "settings.json"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for settings fallback")
	}
	return filepath.Join(home, ".config", "voiceflow", "settings.json"), nil
}

// Load resolves, reads, parses, and validates the settings file. A missing
// file yields defaults with a warning rather than an error.
func Load(explicitPath string) (Loaded, error) {
	resolvedPath, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	settings := Default()
	content, err := os.ReadFile(resolvedPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Loaded{
				Path:     resolvedPath,
				Settings: settings,
				Warnings: []string{fmt.Sprintf("settings file %q not found; using defaults", resolvedPath)},
			}, nil
		}
		return Loaded{}, fmt.Errorf("read settings %q: %w", resolvedPath, err)
	}

	if err := json.Unmarshal(content, &settings); err != nil {
		return Loaded{}, fmt.Errorf("parse settings %q: %w", resolvedPath, err)
	}
	if err := validate.Struct(settings); err != nil {
		return Loaded{}, fmt.Errorf("validate settings %q: %w", resolvedPath, err)
	}

	return Loaded{
		Path:     resolvedPath,
		Settings: settings,
		Exists:   true,
	}, nil
}

// Save writes settings to path, creating parent directories as needed.
func Save(path string, settings Settings) error {
	if err := validate.Struct(settings); err != nil {
		return fmt.Errorf("validate settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write settings %q: %w", path, err)
	}
	return nil
}
