// Package config loads the YAML file describing a multiview run: the window, the renderer
// and the stereo rig whose matrices are uploaded each frame.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/Carmen-Shannon/oxy-multiview/common"
	"github.com/Carmen-Shannon/oxy-multiview/engine/renderer"
	"github.com/Carmen-Shannon/oxy-multiview/engine/view"
	"github.com/Carmen-Shannon/oxy-multiview/engine/window"
	"gopkg.in/yaml.v3"
)

const (
	PresetNone     = ""
	PresetIdentity = "identity"
	PresetMirror   = "mirror"
)

var (
	defaultClearColor = [4]float32{0, 1, 0, 1}
	defaultFov        = common.SymmetricFov(math.Pi/2, math.Pi/2)
	defaultHeadPose   = common.Pose{Position: common.Vec3{Z: 2}, Orientation: common.IdentityQuat()}
)

// Config is the root of the YAML document.
type Config struct {
	Window   WindowConfig   `yaml:"window"`
	Renderer RendererConfig `yaml:"renderer"`
	Rig      RigConfig      `yaml:"rig"`

	// OutDir is where the render command writes its PNGs.
	OutDir string `yaml:"out_dir"`
	// Frames is the number of frames the render command draws before writing output.
	Frames int `yaml:"frames"`
	// Shader optionally replaces the built-in WGSL with a file on disk.
	Shader string `yaml:"shader,omitempty"`
}

type WindowConfig struct {
	Title  string `yaml:"title"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	// Resize limits. The size must lie within them.
	MinWidth  int `yaml:"min_width"`
	MinHeight int `yaml:"min_height"`
	MaxWidth  int `yaml:"max_width"`
	MaxHeight int `yaml:"max_height"`
}

type RendererConfig struct {
	Backend     string     `yaml:"backend"`
	MSAA        int        `yaml:"msaa"`
	PresentMode string     `yaml:"present_mode"`
	FrameLimit  float64    `yaml:"frame_limit"`
	// ClearColor is nil when omitted so an explicit [0, 0, 0, 0] survives defaulting.
	ClearColor *[4]float32 `yaml:"clear_color,omitempty"`
	// Workers is the software rasterizer's worker count; 0 keeps one per CPU.
	Workers int `yaml:"workers"`
	// ForceFallbackAdapter asks wgpu for a CPU adapter.
	ForceFallbackAdapter bool `yaml:"force_fallback_adapter"`
}

// RigConfig describes the stereo rig. When Preset is set the views are ignored and the
// preset's matrices are served directly.
type RigConfig struct {
	Preset string       `yaml:"preset"`
	Head   *common.Pose `yaml:"head,omitempty"`
	Views  []ViewConfig `yaml:"views"`
	IPD    float32      `yaml:"ipd"`
	// Spin is the yaw rate of the geometry in radians per second.
	Spin float32 `yaml:"spin"`
}

type ViewConfig struct {
	Pose common.Pose `yaml:"pose"`
	Fov  common.Fov  `yaml:"fov"`
}

// Default returns the configuration used when no file is given: a 1280x640 window, the
// wgpu backend without MSAA, and the identity preset so the triangle lands in clip space
// unmodified in both views.
//
// Returns:
//   - *Config: the default configuration
func Default() *Config {
	c := &Config{Rig: RigConfig{Preset: PresetIdentity}}
	c.applyDefaults()
	return c
}

// Load reads and decodes the YAML file at path, fills omitted fields with defaults and
// validates the result.
//
// Parameters:
//   - path: the file to read
//
// Returns:
//   - *Config: the loaded configuration
//   - error: an error if the file cannot be read, decoded, or fails validation
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	c, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Decode is Load for an already opened document. Unknown keys are rejected.
//
// Parameters:
//   - r: the YAML source
//
// Returns:
//   - *Config: the decoded configuration
//   - error: an error if decoding or validation fails
func Decode(r io.Reader) (*Config, error) {
	var c Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// applyDefaults fills zero fields. Two default views are added when none are listed.
func (c *Config) applyDefaults() {
	c.Window.Title = common.Coalesce(c.Window.Title, "oxy multiview")
	c.Window.Width = common.Coalesce(c.Window.Width, 1280)
	c.Window.Height = common.Coalesce(c.Window.Height, 640)
	c.Window.MinWidth = common.Coalesce(c.Window.MinWidth, min(256, c.Window.Width))
	c.Window.MinHeight = common.Coalesce(c.Window.MinHeight, min(128, c.Window.Height))
	c.Window.MaxWidth = common.Coalesce(c.Window.MaxWidth, max(3840, c.Window.Width))
	c.Window.MaxHeight = common.Coalesce(c.Window.MaxHeight, max(2160, c.Window.Height))

	c.Renderer.Backend = common.Coalesce(c.Renderer.Backend, renderer.BackendTypeWGPU.String())
	c.Renderer.MSAA = common.Coalesce(c.Renderer.MSAA, int(renderer.MSAAOff))
	c.Renderer.PresentMode = common.Coalesce(c.Renderer.PresentMode, "vsync")
	if c.Renderer.ClearColor == nil {
		cc := defaultClearColor
		c.Renderer.ClearColor = &cc
	}

	if c.Rig.Head == nil {
		head := defaultHeadPose
		c.Rig.Head = &head
	}
	c.Rig.Head.Orientation = common.Coalesce(c.Rig.Head.Orientation, common.IdentityQuat())
	if len(c.Rig.Views) == 0 {
		c.Rig.Views = make([]ViewConfig, view.ViewCount)
	}
	for i := range c.Rig.Views {
		v := &c.Rig.Views[i]
		v.Pose.Orientation = common.Coalesce(v.Pose.Orientation, common.IdentityQuat())
		v.Fov = common.Coalesce(v.Fov, defaultFov)
	}

	c.OutDir = common.Coalesce(c.OutDir, "out")
	c.Frames = common.Coalesce(c.Frames, 1)
}

// Validate reports every problem with the configuration at once.
//
// Returns:
//   - error: the joined validation errors, nil if the configuration is usable
func (c *Config) Validate() error {
	var errs []error
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		errs = append(errs, fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height))
	}
	if c.Window.Width < c.Window.MinWidth || c.Window.Height < c.Window.MinHeight {
		errs = append(errs, fmt.Errorf("window size %dx%d is below the minimum %dx%d",
			c.Window.Width, c.Window.Height, c.Window.MinWidth, c.Window.MinHeight))
	}
	if c.Window.Width > c.Window.MaxWidth || c.Window.Height > c.Window.MaxHeight {
		errs = append(errs, fmt.Errorf("window size %dx%d exceeds the maximum %dx%d",
			c.Window.Width, c.Window.Height, c.Window.MaxWidth, c.Window.MaxHeight))
	}
	if _, err := renderer.ParseBackendType(c.Renderer.Backend); err != nil {
		errs = append(errs, err)
	}
	if _, err := renderer.ParsePresentMode(c.Renderer.PresentMode); err != nil {
		errs = append(errs, err)
	}
	if c.Renderer.MSAA != int(renderer.MSAAOff) && c.Renderer.MSAA != int(renderer.MSAA4x) {
		errs = append(errs, fmt.Errorf("msaa sample count %d must be 1 or 4", c.Renderer.MSAA))
	}
	if c.Renderer.FrameLimit < 0 {
		errs = append(errs, fmt.Errorf("frame limit %v must not be negative", c.Renderer.FrameLimit))
	}
	if c.Renderer.Workers < 0 {
		errs = append(errs, fmt.Errorf("worker count %d must not be negative", c.Renderer.Workers))
	}
	switch strings.ToLower(c.Rig.Preset) {
	case PresetNone, PresetIdentity, PresetMirror:
	default:
		errs = append(errs, fmt.Errorf("unknown rig preset %q", c.Rig.Preset))
	}
	if len(c.Rig.Views) != view.ViewCount {
		errs = append(errs, fmt.Errorf("rig has %d views, want %d", len(c.Rig.Views), view.ViewCount))
	}
	for i, v := range c.Rig.Views {
		if v.Fov.Left >= v.Fov.Right || v.Fov.Down >= v.Fov.Up {
			errs = append(errs, fmt.Errorf("view %d: empty field of view %+v", i, v.Fov))
		}
		if v.Fov.Left <= -math.Pi/2 || v.Fov.Right >= math.Pi/2 || v.Fov.Down <= -math.Pi/2 || v.Fov.Up >= math.Pi/2 {
			errs = append(errs, fmt.Errorf("view %d: field of view half angles must be within ±90 degrees", i))
		}
	}
	if c.Frames < 0 {
		errs = append(errs, fmt.Errorf("frame count %d must not be negative", c.Frames))
	}
	return errors.Join(errs...)
}

// BackendType returns the parsed renderer backend. Call after Validate.
func (c *Config) BackendType() renderer.RendererBackendType {
	t, _ := renderer.ParseBackendType(c.Renderer.Backend)
	return t
}

// RendererOptions translates the renderer section into renderer options.
//
// Returns:
//   - []renderer.RendererBuilderOption: options for renderer.NewRenderer
func (c *Config) RendererOptions() []renderer.RendererBuilderOption {
	mode, err := renderer.ParsePresentMode(c.Renderer.PresentMode)
	if err != nil {
		mode = renderer.PresentModeVSync
	}
	return []renderer.RendererBuilderOption{
		renderer.WithSize(c.Window.Width, c.Window.Height),
		renderer.WithMSAA(renderer.MSAASampleCount(c.Renderer.MSAA)),
		renderer.WithPresentMode(mode),
		renderer.WithClearColor(c.clearColor()),
		renderer.WithRasterWorkers(c.Renderer.Workers),
		renderer.WithForceSoftwareRenderer(c.Renderer.ForceFallbackAdapter),
	}
}

// WindowOptions translates the window section into window options.
//
// Returns:
//   - []window.WindowBuilderOption: options for window.NewWindow
func (c *Config) WindowOptions() []window.WindowBuilderOption {
	return []window.WindowBuilderOption{
		window.WithTitle(c.Window.Title),
		window.WithSize(c.Window.Width, c.Window.Height),
		window.WithMinSize(c.Window.MinWidth, c.Window.MinHeight),
		window.WithMaxSize(c.Window.MaxWidth, c.Window.MaxHeight),
	}
}

func (c *Config) clearColor() [4]float32 {
	if c.Renderer.ClearColor == nil {
		return defaultClearColor
	}
	return *c.Renderer.ClearColor
}

// NewRig builds the stereo rig described by the rig section.
//
// Returns:
//   - view.Rig: the rig
func (c *Config) NewRig() view.Rig {
	opts := []view.RigBuilderOption{
		view.WithHeadPose(*c.Rig.Head),
		view.WithIPD(c.Rig.IPD),
		view.WithSpin(c.Rig.Spin),
	}
	switch strings.ToLower(c.Rig.Preset) {
	case PresetIdentity:
		opts = append(opts, view.WithFixedMatrices(view.IdentityPair()))
	case PresetMirror:
		opts = append(opts, view.WithFixedMatrices(view.MirrorPair()))
	}
	if len(c.Rig.Views) == view.ViewCount {
		var views [view.ViewCount]view.View
		for i, v := range c.Rig.Views {
			views[i] = view.NewView(view.WithPose(v.Pose), view.WithFov(v.Fov))
		}
		opts = append(opts, view.WithViews(views[0], views[1]))
	}
	return view.NewRig(opts...)
}
