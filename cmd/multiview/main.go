// Command multiview renders a triangle into two views in a single multiview draw.
//
//	multiview render   [--out dir] [--width w] [--height h] [--msaa 1|4] [--mirror] [--frames n]
//	multiview preview  [--frames n] [--profile]
//	multiview validate [--shader file.wgsl] [--spirv out.spv] [--glsl dir]
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/Carmen-Shannon/oxy-multiview/engine/config"
	"github.com/Carmen-Shannon/oxy-multiview/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-multiview/engine/renderer/shader"
	"github.com/spf13/cobra"
)

func init() {
	// glfw and the wgpu surface must stay on the main thread.
	runtime.LockOSThread()
}

type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string

	config *config.Config
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		slog.Error("multiview failed", "err", err)
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "multiview",
		Short:         "Draw one triangle into two views with a per-view transform",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(cmd.ErrOrStderr(), opts.logLevel, opts.logFormat)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			if opts.configPath == "" {
				opts.config = config.Default()
				return nil
			}
			opts.config, err = config.Load(opts.configPath)
			if err != nil {
				return err
			}
			slog.Debug("config loaded", "path", opts.configPath)
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "YAML config file")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	flags.StringVar(&opts.logFormat, "log-format", "text", "log format: text or json")

	cmd.AddCommand(
		newRenderCommand(opts),
		newPreviewCommand(opts),
		newValidateCommand(opts),
	)
	return cmd
}

// newLogger builds the slog logger selected by the --log-level and --log-format flags.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("--log-level: %w", err)
	}
	handlerOpts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "text":
		return slog.New(slog.NewTextHandler(w, handlerOpts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, handlerOpts)), nil
	default:
		return nil, fmt.Errorf("--log-format: unknown format %q", format)
	}
}

// shaderSource returns the WGSL named by the config, or the built-in multiview shader.
func shaderSource(cfg *config.Config) (string, error) {
	if cfg.Shader == "" {
		return shader.MultiviewSource, nil
	}
	data, err := os.ReadFile(cfg.Shader)
	if err != nil {
		return "", fmt.Errorf("reading shader: %w", err)
	}
	if _, err := shader.NewPreProcessor().Process(string(data), shader.ViewModeBuiltin); err != nil {
		return "", fmt.Errorf("%s: %w", cfg.Shader, err)
	}
	return string(data), nil
}

// newMultiviewPipeline builds the two-view, three-vertex pipeline for the configured shader.
func newMultiviewPipeline(cfg *config.Config, key string) (pipeline.Pipeline, error) {
	src, err := shaderSource(cfg)
	if err != nil {
		return nil, err
	}
	return pipeline.NewPipeline(key,
		pipeline.WithVertexShader(shader.NewShader(key+"_vs", shader.ShaderTypeVertex, src)),
		pipeline.WithFragmentShader(shader.NewShader(key+"_fs", shader.ShaderTypeFragment, src)),
		pipeline.WithSampleCount(uint32(cfg.Renderer.MSAA)),
	), nil
}
