package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MimeLyc/video-subtitles/internal/config"
	"github.com/MimeLyc/video-subtitles/internal/service"
	"github.com/MimeLyc/video-subtitles/pkg/log"
)

type rootOptions struct {
	configPath        string
	model             string
	translateSegments string
	output            string
	skipTranslation   bool
}

func newRootCommand() *cobra.Command {
	var opts rootOptions

	rootCmd := &cobra.Command{
		Use:   "vidsub [video]",
		Short: "Transcribe a Japanese video and translate its subtitles",
		Long: "vidsub writes <video>_segments.json and <video>_ja.srt next to the video, then\n" +
			"translates the transcript into <video>_ko.srt. An interrupted translation resumes\n" +
			"from its checkpoint when the same command is run again.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, opts, args)
		},
	}

	flags := rootCmd.Flags()
	flags.StringVar(&opts.model, "model", "", "Whisper model (tiny, base, small, medium, large)")
	flags.StringVar(&opts.translateSegments, "translate-segments", "", "Translate a saved segments file instead of transcribing")
	flags.StringVarP(&opts.output, "output", "o", "", "Translated subtitle path")
	flags.BoolVar(&opts.skipTranslation, "skip-translation", false, "Only transcribe; translate later with --translate-segments")
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Configuration file path (TOML)")

	rootCmd.AddCommand(newWatchCommand(&opts.configPath))
	rootCmd.AddCommand(newStatusCommand(&opts.configPath))

	return rootCmd
}

// loadConfig reads .env, the TOML file and the environment, then sets the log level.
func loadConfig(configPath string, opts ...config.Option) (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	if configPath == "" {
		configPath = os.Getenv("VIDSUB_CONFIG")
	}
	cfg, err := config.Load(configPath, opts...)
	if err != nil {
		return nil, service.WrapError(err, service.ErrConfig, "invalid configuration")
	}
	log.InitLogger(log.ParseLevel(cfg.System.LogLevel))
	return cfg, nil
}

func runPipeline(cmd *cobra.Command, opts rootOptions, args []string) error {
	switch {
	case opts.translateSegments != "" && len(args) > 0:
		return fmt.Errorf("give either a video or --translate-segments, not both")
	case opts.translateSegments == "" && len(args) == 0:
		return cmd.Help()
	}

	cfg, err := loadConfig(opts.configPath, config.WithWhisperModel(opts.model))
	if err != nil {
		return err
	}
	pipeline := service.NewPipeline(*cfg, service.Dependencies{})
	out := cmd.OutOrStdout()

	if opts.translateSegments != "" {
		path, err := pipeline.TranslateSegmentsFile(cmd.Context(), opts.translateSegments, opts.output)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Translated subtitle: %s\n", path)
		return nil
	}

	res, err := pipeline.Run(cmd.Context(), args[0], service.RunOptions{
		SkipTranslation: opts.skipTranslation,
		OutputPath:      opts.output,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Segments: %s\n", res.Transcript.SegmentsPath)
	fmt.Fprintf(out, "Transcript subtitle: %s\n", res.Transcript.SubtitlePath)
	if res.TranslatedPath != "" {
		fmt.Fprintf(out, "Translated subtitle: %s\n", res.TranslatedPath)
	}
	return nil
}
