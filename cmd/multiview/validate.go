package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-multiview/engine/renderer/shader"
	"github.com/spf13/cobra"
)

func newValidateCommand(opts *rootOptions) *cobra.Command {
	var (
		shaderPath string
		spirvPath  string
		glslDir    string
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the multiview shader with naga and check its binding layout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := opts.config
			if shaderPath != "" {
				cfg.Shader = shaderPath
			}
			src, err := shaderSource(cfg)
			if err != nil {
				return err
			}
			processed, err := shader.NewPreProcessor().Process(src, shader.ViewModeBuiltin)
			if err != nil {
				return err
			}

			refl, err := shader.Validate(processed)
			if err != nil {
				return err
			}
			printReflection(cmd, refl)
			if err := shader.CheckBindingContract(refl, shader.ViewModeBuiltin); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "binding layout: ok")

			if spirvPath != "" {
				spv, err := shader.CompileSPIRV(processed)
				if err != nil {
					return err
				}
				if err := os.WriteFile(spirvPath, spv, 0o644); err != nil {
					return fmt.Errorf("writing spirv: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "spirv: %s (%d bytes)\n", spirvPath, len(spv))
			}

			if glslDir != "" {
				if err := os.MkdirAll(glslDir, 0o755); err != nil {
					return fmt.Errorf("creating glsl dir: %w", err)
				}
				for _, ep := range refl.EntryPoints {
					code, exts, err := shader.CompileGLSL(processed, ep.Name)
					if err != nil {
						return err
					}
					path := filepath.Join(glslDir, ep.Name+"."+glslExtension(ep.Stage))
					if err := os.WriteFile(path, []byte(code), 0o644); err != nil {
						return fmt.Errorf("writing glsl: %w", err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "glsl: %s extensions=[%s]\n", path, strings.Join(exts, " "))
				}
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&shaderPath, "shader", "", "WGSL file to validate instead of the built-in shader")
	flags.StringVar(&spirvPath, "spirv", "", "write the SPIR-V module to this file")
	flags.StringVar(&glslDir, "glsl", "", "write one GLSL file per entry point into this directory")
	return cmd
}

func printReflection(cmd *cobra.Command, refl *shader.Reflection) {
	out := cmd.OutOrStdout()
	for _, ep := range refl.EntryPoints {
		fmt.Fprintf(out, "entry %s (%s): in=[%s] out=[%s] locations=%v globals=[%s]\n",
			ep.Name, ep.Stage,
			strings.Join(ep.BuiltinInputs, " "),
			strings.Join(ep.BuiltinOutputs, " "),
			ep.Locations,
			strings.Join(ep.Globals, " "))
	}
	for _, b := range refl.Bindings {
		fmt.Fprintf(out, "binding @group(%d) @binding(%d) %s uniform=%t size=%d\n",
			b.Group, b.Binding, b.Name, b.Uniform, b.Size)
	}
}

func glslExtension(t shader.ShaderType) string {
	if t == shader.ShaderTypeFragment {
		return "frag"
	}
	return "vert"
}
