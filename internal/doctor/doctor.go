// Package doctor runs runtime readiness diagnostics for settings, audio,
// the recognition backend, and the clipboard.
package doctor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"voiceflow/internal/asr"
	"voiceflow/internal/audio"
	"voiceflow/internal/config"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Clipboard abstracts the clipboard round-trip probe.
type Clipboard interface {
	SetText(text string) error
	GetText() (string, error)
}

// HotkeyListener abstracts the hook registration probe.
type HotkeyListener interface {
	Start() error
	Stop()
}

// Deps carries the live handles doctor probes. AudioCtx may be nil when the
// platform backend failed to initialize.
type Deps struct {
	AudioCtx  audio.Context
	Clipboard Clipboard
	Hotkey    HotkeyListener
}

// Run executes environment/settings/runtime checks for loaded settings.
func Run(loaded config.Loaded, deps Deps) Report {
	checks := []Check{settingsCheck(loaded)}
	checks = append(checks, audioCheck(deps.AudioCtx))
	checks = append(checks, whisperBinaryCheck(loaded.Settings.Whisper))
	checks = append(checks, modelFileCheck(loaded.Settings))
	checks = append(checks, clipboardCheck(deps.Clipboard))
	checks = append(checks, hotkeyCheck(deps.Hotkey))
	checks = append(checks, stateDirCheck())
	return Report{Checks: checks}
}

func settingsCheck(loaded config.Loaded) Check {
	if !loaded.Exists {
		return Check{
			Name:    "settings",
			Pass:    true,
			Message: fmt.Sprintf("no file at %q; defaults in effect", loaded.Path),
		}
	}
	return Check{Name: "settings", Pass: true, Message: fmt.Sprintf("loaded %q", loaded.Path)}
}

func audioCheck(ctx audio.Context) Check {
	if ctx == nil {
		return Check{Name: "audio.backend", Pass: false, Message: "audio backend failed to initialize"}
	}
	devices, err := ctx.Devices()
	if err != nil {
		return Check{Name: "audio.backend", Pass: false, Message: err.Error()}
	}
	if len(devices) == 0 {
		return Check{Name: "audio.backend", Pass: false, Message: "no capture devices found"}
	}
	return Check{Name: "audio.backend", Pass: true, Message: fmt.Sprintf("%d capture device(s)", len(devices))}
}

func whisperBinaryCheck(cfg config.Whisper) Check {
	if cfg.BinPath != "" {
		if _, err := os.Stat(cfg.BinPath); err != nil {
			return Check{Name: "whisper.binary", Pass: false, Message: fmt.Sprintf("configured binary %q: %v", cfg.BinPath, err)}
		}
		return Check{Name: "whisper.binary", Pass: true, Message: fmt.Sprintf("configured at %s", cfg.BinPath)}
	}

	if path := asr.FindBinary(); path != "" {
		return Check{Name: "whisper.binary", Pass: true, Message: fmt.Sprintf("found at %s", path)}
	}
	return Check{Name: "whisper.binary", Pass: false, Message: "whisper.cpp binary not found in PATH"}
}

func modelFileCheck(settings config.Settings) Check {
	modelDir := settings.Whisper.ModelDir
	if modelDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Check{Name: "whisper.model", Pass: false, Message: err.Error()}
		}
		modelDir = filepath.Join(home, ".local", "share", "voiceflow", "models")
	}

	path := asr.ModelPath(modelDir, settings.Model)
	info, err := os.Stat(path)
	if err != nil {
		return Check{Name: "whisper.model", Pass: false, Message: fmt.Sprintf("model %q missing at %s", settings.Model, path)}
	}
	return Check{Name: "whisper.model", Pass: true, Message: fmt.Sprintf("%s (%d MiB)", path, info.Size()/(1024*1024))}
}

func clipboardCheck(clip Clipboard) Check {
	if clip == nil {
		return Check{Name: "clipboard", Pass: false, Message: "clipboard unavailable"}
	}
	original, err := clip.GetText()
	if err != nil {
		return Check{Name: "clipboard", Pass: false, Message: err.Error()}
	}
	// Writing the current contents back verifies write access without
	// clobbering anything.
	if err := clip.SetText(original); err != nil {
		return Check{Name: "clipboard", Pass: false, Message: err.Error()}
	}
	return Check{Name: "clipboard", Pass: true, Message: "clipboard round-trip OK"}
}

func hotkeyCheck(listener HotkeyListener) Check {
	if listener == nil {
		return Check{Name: "hotkey", Pass: false, Message: "hotkey hook unavailable"}
	}
	if err := listener.Start(); err != nil {
		return Check{Name: "hotkey", Pass: false, Message: err.Error()}
	}
	listener.Stop()
	return Check{Name: "hotkey", Pass: true, Message: "global hook registered and released"}
}

func stateDirCheck() Check {
	dir := os.Getenv("XDG_STATE_HOME")
	if strings.TrimSpace(dir) == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Check{Name: "state.dir", Pass: false, Message: err.Error()}
		}
		dir = filepath.Join(home, ".local", "state")
	}
	dir = filepath.Join(dir, "voiceflow")

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Check{Name: "state.dir", Pass: false, Message: fmt.Sprintf("create %q: %v", dir, err)}
	}
	probe := filepath.Join(dir, ".doctor-probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return Check{Name: "state.dir", Pass: false, Message: fmt.Sprintf("write %q: %v", dir, err)}
	}
	_ = os.Remove(probe)
	return Check{Name: "state.dir", Pass: true, Message: fmt.Sprintf("%s is writable", dir)}
}
