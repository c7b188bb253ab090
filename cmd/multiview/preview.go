package main

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-multiview/engine"
	"github.com/Carmen-Shannon/oxy-multiview/engine/renderer"
	"github.com/Carmen-Shannon/oxy-multiview/engine/view"
	"github.com/Carmen-Shannon/oxy-multiview/engine/window"
	"github.com/spf13/cobra"
)

func newPreviewCommand(opts *rootOptions) *cobra.Command {
	var (
		frames  int
		profile bool
	)
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Open a window and draw both views side by side on the wgpu backend",
		Long: "Open a window and draw both views side by side on the wgpu backend.\n" +
			"Space pauses the spin, M toggles the mirror preset, Escape quits.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := opts.config
			cfg.Renderer.Backend = renderer.BackendTypeWGPU.String()
			if err := cfg.Validate(); err != nil {
				return err
			}

			w := window.NewWindow(cfg.WindowOptions()...)
			r := renderer.NewRenderer(renderer.BackendTypeWGPU, w, cfg.RendererOptions()...)
			defer r.Release()

			p, err := newMultiviewPipeline(cfg, engine.DefaultPipelineKey)
			if err != nil {
				return err
			}
			if err := r.RegisterPipelines(p); err != nil {
				return err
			}

			rig := cfg.NewRig()
			mirror := view.NewRig(view.WithFixedMatrices(view.MirrorPair()))

			e := engine.NewEngine(
				engine.WithWindow(w),
				engine.WithRenderer(r),
				engine.WithRig(rig),
				engine.WithProfiling(profile),
				engine.WithMaxFrames(frames),
				engine.WithRenderFrameLimit(cfg.Renderer.FrameLimit),
			)
			e.SetKeyCallback(func(keyCode uint32) {
				if keyCode != window.KeyM {
					return
				}
				if e.Rig() == mirror {
					e.SetRig(rig)
				} else {
					e.SetRig(mirror)
				}
				slog.Info("rig preset", "mirror", e.Rig() == mirror)
			})
			return e.Run(cmd.Context())
		},
	}

	cmd.Flags().IntVar(&frames, "frames", 0, "quit after this many frames, 0 runs until the window closes")
	cmd.Flags().BoolVar(&profile, "profile", false, "log frame rate and memory every second")
	return cmd
}
