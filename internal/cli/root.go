package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/fmueller/voxscribe/internal/logging"
	"github.com/fmueller/voxscribe/internal/platform"
	"github.com/fmueller/voxscribe/internal/transcript"
	"github.com/fmueller/voxscribe/internal/version"
	"github.com/fmueller/voxscribe/internal/whisper"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/spf13/cobra"
)

type appState struct {
	verbose      bool
	jsonLogs     bool
	noProgress   bool
	model        string
	modelDir     string
	language     string
	autoDownload bool
	snippetSize  float64
	silenceGate  bool
	silenceDBFS  float64

	logger *zap.Logger

	transcribeFn func(ctx context.Context, cfg runConfig) ([]transcript.Segment, error)
	newEngineFn  func(logger *zap.Logger) (whisper.Engine, error)
}

func NewRootCmd() *cobra.Command {
	return newRootCmd(newAppState())
}

func newAppState() *appState {
	app := &appState{
		model:        whisper.DefaultModel,
		language:     "auto",
		autoDownload: true,
		snippetSize:  defaultSnippetSize,
		silenceGate:  true,
		silenceDBFS:  -65,
	}
	app.transcribeFn = app.transcribeMedia
	app.newEngineFn = newBundledEngine
	return app
}

func newRootCmd(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "voxscribe [flags] <input_file> <output_file>",
		Short: "Transcribe an audio or video file into a timestamped text transcript",
		Long: "Transcribe an audio or video file with a whisper model and write a plain-text\n" +
			"transcript grouped into fixed-size snippets, one timestamped line per snippet.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Resolve(),
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.ExactArgs(2)(cmd, args); err != nil {
				return withStage(stageConfig, err)
			}
			return nil
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := logging.New(logging.Options{Verbose: app.verbose, JSON: app.jsonLogs, Writer: cmd.ErrOrStderr()})
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			app.language = sanitizeLanguage(app.language)
			app.logger = logger
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.newRunConfig(args[0], args[1])
			if err != nil {
				return withStage(stageConfig, err)
			}
			return app.run(cmd.Context(), cfg)
		},
	}

	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")
	// Subcommands inherit this, so bad flags anywhere are config errors.
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return withStage(stageConfig, err)
	})

	bindLoggingFlags(cmd, app)
	bindProgressFlag(cmd, app)
	bindModelFlags(cmd, app)
	bindLanguageAndModelDownloadFlags(cmd, app)
	bindSilenceFlags(cmd, app)
	cmd.Flags().Float64Var(&app.snippetSize, "snippet-size", app.snippetSize, "Seconds of audio per transcript line")

	cmd.AddCommand(newSetupCmd(app))
	cmd.AddCommand(newModelsCmd(app))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func bindLoggingFlags(cmd *cobra.Command, app *appState) {
	cmd.Flags().BoolVar(&app.verbose, "verbose", app.verbose, "Enable verbose logs")
	cmd.Flags().BoolVar(&app.jsonLogs, "json", app.jsonLogs, "Enable JSON logging")
}

func bindProgressFlag(cmd *cobra.Command, app *appState) {
	cmd.Flags().BoolVar(&app.noProgress, "no-progress", app.noProgress, "Disable progress indicators")
}

func bindModelFlags(cmd *cobra.Command, app *appState) {
	cmd.Flags().StringVar(&app.model, "model", app.model, "Whisper model size: tiny|base|small|medium|large")
	cmd.Flags().StringVar(&app.modelDir, "model-dir", app.modelDir, "Directory where models are stored")
}

func bindLanguageAndModelDownloadFlags(cmd *cobra.Command, app *appState) {
	cmd.Flags().StringVar(&app.language, "language", app.language, "Language code (auto|en|de|...) for transcription")
	cmd.Flags().BoolVar(&app.autoDownload, "auto-download", app.autoDownload, "Automatically download missing models")
}

func bindSilenceFlags(cmd *cobra.Command, app *appState) {
	cmd.Flags().BoolVar(&app.silenceGate, "silence-gate", app.silenceGate, "Detect near-silent audio and skip transcription")
	cmd.Flags().Float64Var(&app.silenceDBFS, "silence-threshold-dbfs", app.silenceDBFS, "Silence gate threshold in dBFS")
}

func modelStorageDir(override string) (string, error) {
	dir, err := platform.ResolveModelDir(override)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create model directory %s: %w", dir, err)
	}
	return dir, nil
}

func (a *appState) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}

func (a *appState) progressEnabled() bool {
	if a.noProgress {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}

func newBundledEngine(logger *zap.Logger) (whisper.Engine, error) {
	return whisper.NewBundledEngine(logger)
}
