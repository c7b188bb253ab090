package main

import (
	"fmt"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-multiview/engine"
	"github.com/Carmen-Shannon/oxy-multiview/engine/config"
	"github.com/Carmen-Shannon/oxy-multiview/engine/renderer"
	"github.com/spf13/cobra"
)

func newRenderCommand(opts *rootOptions) *cobra.Command {
	var (
		out           string
		width, height int
		msaa, frames  int
		scale         int
		mirror        bool
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render both views on the software backend and write them as PNGs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := opts.config
			flags := cmd.Flags()
			if flags.Changed("out") {
				cfg.OutDir = out
			}
			if flags.Changed("width") {
				cfg.Window.Width = width
			}
			if flags.Changed("height") {
				cfg.Window.Height = height
			}
			if flags.Changed("msaa") {
				cfg.Renderer.MSAA = msaa
			}
			if flags.Changed("frames") {
				cfg.Frames = frames
			}
			if mirror {
				cfg.Rig.Preset = config.PresetMirror
			}
			cfg.Renderer.Backend = renderer.BackendTypeSoftware.String()
			if err := cfg.Validate(); err != nil {
				return err
			}

			r := renderer.NewRenderer(renderer.BackendTypeSoftware, nil, cfg.RendererOptions()...)
			defer r.Release()

			p, err := newMultiviewPipeline(cfg, engine.DefaultPipelineKey)
			if err != nil {
				return err
			}
			if err := r.RegisterPipelines(p); err != nil {
				return err
			}

			e := engine.NewEngine(
				engine.WithRenderer(r),
				engine.WithRig(cfg.NewRig()),
				engine.WithMaxFrames(max(cfg.Frames, 1)),
				engine.WithRenderFrameLimit(cfg.Renderer.FrameLimit),
			)
			if err := e.Run(cmd.Context()); err != nil {
				return err
			}

			paths, err := r.Target().WritePNGs(cfg.OutDir, scale)
			if err != nil {
				return err
			}
			slog.Info("rendered", "frames", e.Frames(), "width", cfg.Window.Width, "height", cfg.Window.Height, "msaa", cfg.Renderer.MSAA)
			for _, path := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&out, "out", "o", "", "output directory (config out_dir, default out)")
	flags.IntVar(&width, "width", 0, "width of each view in pixels (config window.width)")
	flags.IntVar(&height, "height", 0, "height of each view in pixels (config window.height)")
	flags.IntVar(&msaa, "msaa", 0, "sample count, 1 or 4 (config renderer.msaa)")
	flags.IntVar(&frames, "frames", 0, "frames to draw before writing (config frames, default 1)")
	flags.IntVar(&scale, "scale", 1, "integer upscale of the side by side image")
	flags.BoolVar(&mirror, "mirror", false, "use the mirror preset: view 1 turned half way about +Y")
	return cmd
}
