package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/docutag/visitor"
	"github.com/docutag/visitor/config"
	"github.com/docutag/visitor/storage"
	"github.com/docutag/visitor/tools"
)

const version = "1.0.0"

// options are the flags shared by every subcommand
type options struct {
	configPath string
	workingDir string
	profile    string
	verbose    bool

	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	o := &options{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "visitor",
		Short: "Bounded, relevance-ranked web page summaries for agents",
		Long: `visitor fetches a web page and reduces it to its title, headings, the most relevant
links and images, and a bounded slice of its text. Images are downloaded into a
working directory so they can be viewed locally.

Usage:
  visitor visit <url> [flags]
  visitor images [image-url...] [--website <url>]
  visitor mcp`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&o.configPath, "config", "", "Path to a YAML config file")
	root.PersistentFlags().StringVar(&o.workingDir, "working-dir", "", "Directory downloaded images are written to")
	root.PersistentFlags().StringVar(&o.profile, "profile", "", "Ranking profile: full or simple")
	root.PersistentFlags().BoolVarP(&o.verbose, "verbose", "v", false, "Log progress messages")

	root.AddCommand(newVisitCmd(o), newImagesCmd(o), newMCPCmd(o))
	return root
}

// logger writes to stderr so stdout stays machine-readable
func (o *options) logger() *slog.Logger {
	level := slog.LevelWarn
	if o.verbose {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(o.stderr, &slog.HandlerOptions{Level: level}))
}

// toolbox loads configuration and wires a visitor behind the tool layer
func (o *options) toolbox(cmd *cobra.Command, logger *slog.Logger) (*tools.Toolbox, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.workingDir != "" {
		cfg.WorkingDirectory = o.workingDir
	}
	if o.profile != "" {
		cfg.Profile = o.profile
	}

	visitorConfig, err := visitor.ConfigFrom(cfg)
	if err != nil {
		return nil, err
	}

	store, err := storage.New(storage.Config{BasePath: cfg.WorkingDirectory})
	if err != nil {
		return nil, err
	}

	opts := []visitor.Option{visitor.WithLogger(logger)}
	if cfg.S3.Enabled() {
		mirror, err := storage.NewS3Mirror(cmd.Context(), cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 mirror: %w", err)
		}
		opts = append(opts, visitor.WithMirror(mirror))
	}

	return tools.New(visitor.New(visitorConfig, store, opts...), tools.WithLogger(logger)), nil
}

// printReply writes a successful reply as indented JSON, or returns its message as the error
func (o *options) printReply(reply tools.Reply) error {
	if !reply.OK() {
		return fmt.Errorf("%s", reply.Message)
	}
	enc := json.NewEncoder(o.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(reply)
}

// intFlag returns a pointer to the flag value only when the user set it
func intFlag(cmd *cobra.Command, name string) *int {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, err := cmd.Flags().GetInt(name)
	if err != nil {
		return nil
	}
	return &v
}
