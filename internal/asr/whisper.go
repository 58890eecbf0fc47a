package asr

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// WhisperConfig locates the whisper.cpp CLI and its model files.
type WhisperConfig struct {
	BinPath  string // explicit binary path; discovered when empty
	ModelDir string // directory holding ggml-<name>.bin files
}

// WhisperBackend loads models for the whisper.cpp command line tool. A
// "loaded" model is a validated binary plus model file; inference shells out
// per transcription.
type WhisperBackend struct {
	cfg WhisperConfig
}

// NewWhisperBackend resolves the model directory, defaulting to
// ~/.local/share/voiceflow/models.
func NewWhisperBackend(cfg WhisperConfig) (*WhisperBackend, error) {
	if cfg.ModelDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		cfg.ModelDir = filepath.Join(home, ".local", "share", "voiceflow", "models")
	}
	return &WhisperBackend{cfg: cfg}, nil
}

// Load validates that the binary and the named model file exist.
func (b *WhisperBackend) Load(_ context.Context, name string) (Model, error) {
	binPath := b.cfg.BinPath
	if binPath == "" {
		binPath = findWhisperBinary()
	}
	if binPath == "" {
		return nil, fmt.Errorf("whisper.cpp binary not found; install whisper.cpp or set whisper.binPath")
	}

	modelPath := ModelPath(b.cfg.ModelDir, name)
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file %s: %w", modelPath, err)
	}

	return &whisperModel{binPath: binPath, modelPath: modelPath}, nil
}

// ModelPath returns the ggml model file path for a model name.
func ModelPath(modelDir, name string) string {
	return filepath.Join(modelDir, fmt.Sprintf("ggml-%s.bin", name))
}

// FindBinary reports the discovered whisper.cpp binary path, or "" when no
// installation is visible. Used by diagnostics.
func FindBinary() string {
	return findWhisperBinary()
}

// findWhisperBinary probes PATH and common install locations. whisper-cli is
// the Homebrew name; main is the legacy whisper.cpp build output.
func findWhisperBinary() string {
	names := []string{"whisper-cli", "whisper-cpp", "whisper", "main"}

	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	home, _ := os.UserHomeDir()
	locations := []string{
		"/opt/homebrew/bin",
		"/usr/local/bin",
		filepath.Join(home, ".local", "bin"),
		filepath.Join(home, "whisper.cpp"),
	}
	for _, loc := range locations {
		for _, name := range names {
			path := filepath.Join(loc, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

type whisperModel struct {
	binPath   string
	modelPath string
}

func (m *whisperModel) Transcribe(ctx context.Context, samples []float32, language string) (string, error) {
	wavPath, err := writeTempWAV(samples)
	if err != nil {
		return "", err
	}
	defer os.Remove(wavPath)

	args := []string{
		"-m", m.modelPath,
		"-f", wavPath,
		"-oj",
		"--no-prints",
	}
	if language != "" && language != "auto" {
		args = append(args, "-l", language)
	}

	cmd := exec.CommandContext(ctx, m.binPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("whisper.cpp: %w, stderr: %s", err, stderr.String())
	}

	return parseWhisperOutput(stdout.Bytes()), nil
}

func (m *whisperModel) Close() error {
	return nil
}

// whisperOutput is the shape of whisper.cpp -oj output.
type whisperOutput struct {
	Transcription []struct {
		Text string `json:"text"`
	} `json:"transcription"`
}

// parseWhisperOutput joins transcription segments, falling back to the raw
// text when the output is not JSON.
func parseWhisperOutput(out []byte) string {
	var parsed whisperOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return strings.TrimSpace(string(out))
	}
	var sb strings.Builder
	for _, seg := range parsed.Transcription {
		sb.WriteString(seg.Text)
	}
	return strings.TrimSpace(sb.String())
}

// writeTempWAV converts float32 samples to 16kHz mono s16 PCM and writes a
// minimal RIFF file for the CLI to consume.
func writeTempWAV(samples []float32) (string, error) {
	file, err := os.CreateTemp("", "voiceflow-*.wav")
	if err != nil {
		return "", fmt.Errorf("create temp wav: %w", err)
	}

	pcm := make([]byte, len(samples)*2)
	for i, v := range samples {
		s := int16(v * 32767)
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}

	if err := writePCM16WAV(file, pcm, 16000, 1); err != nil {
		file.Close()
		os.Remove(file.Name())
		return "", fmt.Errorf("write temp wav: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(file.Name())
		return "", fmt.Errorf("close temp wav: %w", err)
	}
	return file.Name(), nil
}

// writePCM16WAV writes raw little-endian PCM bytes with a minimal WAV header.
func writePCM16WAV(file *os.File, pcm []byte, sampleRate int, channels int) error {
	if channels <= 0 {
		channels = 1
	}
	const bitsPerSample = 16
	byteRate := sampleRate * channels * (bitsPerSample / 8)
	blockAlign := channels * (bitsPerSample / 8)

	header := make([]byte, 44)
	copy(header[0:4], []byte("RIFF"))
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+len(pcm)))
	copy(header[8:12], []byte("WAVE"))
	copy(header[12:16], []byte("fmt "))
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)
	copy(header[36:40], []byte("data"))
	binary.LittleEndian.PutUint32(header[40:44], uint32(len(pcm)))

	if _, err := file.Write(header); err != nil {
		return err
	}
	_, err := file.Write(pcm)
	return err
}
