// Package app wires configuration, logging, and the dictation pipeline into
// the command line entry point.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"voiceflow/internal/asr"
	"voiceflow/internal/audio"
	"voiceflow/internal/cli"
	"voiceflow/internal/config"
	"voiceflow/internal/doctor"
	"voiceflow/internal/dsp"
	"voiceflow/internal/hotkey"
	"voiceflow/internal/logging"
	"voiceflow/internal/output"
	"voiceflow/internal/pipeline"
	"voiceflow/internal/relay"
	"voiceflow/internal/version"
)

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("voiceflow"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("voiceflow"))
		return 0
	}

	switch parsed.Command {
	case cli.CommandVersion:
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	case cli.CommandModels:
		return r.commandModels()
	}

	logRuntime, err := logging.New()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	loaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load settings failed", "error", err.Error())
		return 1
	}
	for _, warning := range loaded.Warnings {
		fmt.Fprintf(r.Stderr, "warning: %s\n", warning)
		logger.Warn("settings warning", "message", warning)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"settings", loaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		return r.commandDoctor(loaded, logger)
	case cli.CommandDevices:
		return r.commandDevices(logger)
	case cli.CommandRun:
		return r.commandRun(ctx, loaded.Settings, logger)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandModels() int {
	for _, name := range asr.KnownModels() {
		fmt.Fprintln(r.Stdout, name)
	}
	return 0
}

func (r Runner) commandDoctor(loaded config.Loaded, logger *slog.Logger) int {
	deps := doctor.Deps{
		Clipboard: output.NewSink(logger),
		Hotkey:    hotkey.NewListener(nil),
	}
	if audioCtx, err := audio.NewContext(); err == nil {
		deps.AudioCtx = audioCtx
		defer audioCtx.Close()
	}

	report := doctor.Run(loaded, deps)
	fmt.Fprintln(r.Stdout, report.String())
	if report.OK() {
		return 0
	}
	return 1
}

func (r Runner) commandDevices(logger *slog.Logger) int {
	audioCtx, err := audio.NewContext()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("audio backend init failed", "error", err.Error())
		return 1
	}
	defer audioCtx.Close()

	devices, err := audioCtx.Devices()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no capture devices found")
		return 1
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		fmt.Fprintf(r.Stdout, "%s id=%s | name=%q\n", defaultMark, device.ID, device.Name)
	}
	return 0
}

func (r Runner) commandRun(ctx context.Context, settings config.Settings, logger *slog.Logger) int {
	audioCtx, err := audio.NewContext()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("audio backend init failed", "error", err.Error())
		return 1
	}
	defer audioCtx.Close()

	backend, err := asr.NewWhisperBackend(asr.WhisperConfig{
		BinPath:  settings.Whisper.BinPath,
		ModelDir: settings.Whisper.ModelDir,
	})
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	events := relay.New()
	capture := audio.NewService(
		audioCtx,
		dsp.NewAnalyzer(audio.BlockSize, audio.SampleRate),
		events,
		logger,
	)
	engine := asr.NewEngine(backend, logger)
	listener := hotkey.NewListener(nil)
	sink := output.NewSink(logger)

	controller := pipeline.New(settings, logger, capture, engine, listener, sink, events)
	defer controller.Shutdown()

	if err := controller.Init(ctx); err != nil {
		fmt.Fprintf(r.Stderr, "warning: %v\n", err)
	}

	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		r.consumeEvents(events, logger)
	}()

	fmt.Fprintln(r.Stdout, "voiceflow is running; hold Ctrl+Shift+Space to dictate (Ctrl+C to quit)")
	<-ctx.Done()

	controller.Shutdown()
	<-consumerDone
	logger.Info("run loop exited")
	return 0
}

// consumeEvents surfaces pipeline lifecycle to the terminal and log until
// the relay closes. Amplitude frames are log-only noise at debug level.
func (r Runner) consumeEvents(events *relay.Relay, logger *slog.Logger) {
	for ev := range events.Events() {
		switch ev.Kind {
		case relay.KindRecordingStarted:
			fmt.Fprintln(r.Stdout, "recording...")
			logger.Info("recording started")
		case relay.KindRecordingStopped:
			fmt.Fprintln(r.Stdout, "transcribing...")
			logger.Info("recording stopped")
		case relay.KindTranscriptionComplete:
			if ev.Text != "" {
				fmt.Fprintln(r.Stdout, ev.Text)
			}
			logger.Info("transcription complete", "chars", len(ev.Text))
		case relay.KindError:
			fmt.Fprintf(r.Stderr, "error: %s\n", ev.Text)
		case relay.KindAmplitude:
			logger.Debug("amplitude", "loudness", ev.Loudness)
		}
	}
}
