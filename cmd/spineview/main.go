// Command spineview opens a window and plays Spine skeletons described by a manifest or by flags.
//
//	spineview knight.atlas knight.json --animation walk --watch
//	spineview --config scene.toml
//
// Keys: n next animation, s next skin, r rebuild from disk, b toggle backface culling,
// p toggle profiler, left/right select rig, up/down or scroll to scale, drag to move, esc to quit.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/Carmen-Shannon/oxy-spine/common"
	"github.com/Carmen-Shannon/oxy-spine/config"
	"github.com/Carmen-Shannon/oxy-spine/engine"
	"github.com/Carmen-Shannon/oxy-spine/engine/renderer"
	"github.com/Carmen-Shannon/oxy-spine/engine/rig"
	"github.com/Carmen-Shannon/oxy-spine/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/spf13/cobra"
)

var errNoRigs = errors.New("nothing to show: pass an atlas and skeleton or a --config manifest with rigs")

type flags struct {
	config    string
	animation string
	skin      string
	scale     float32
	loop      bool
	watch     bool
	profile   bool
	workers   int
	msaa      uint32
	uncapped  bool
	software  bool
	logLevel  string
	width     int
	height    int
}

func main() {
	if err := newRootCommand(run).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// runFunc shows a validated manifest.
type runFunc func(ctx context.Context, m *config.Manifest, software bool) error

func newRootCommand(runFn runFunc) *cobra.Command {
	f := &flags{}
	cmd := &cobra.Command{
		Use:          "spineview [atlas skeleton]",
		Short:        "Play Spine skeletons in a window",
		Args:         cobra.MatchAll(cobra.MaximumNArgs(2), oneOrTwoPaths),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := buildManifest(cmd, f, args)
			if err != nil {
				return err
			}
			return runFn(cmd.Context(), m, f.software)
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&f.config, "config", "c", "", "manifest file (.toml, .yaml or .yml)")
	fs.StringVarP(&f.animation, "animation", "a", "", "initial animation for the rig given as arguments")
	fs.StringVar(&f.skin, "skin", "", "initial skin for the rig given as arguments")
	fs.Float32Var(&f.scale, "scale", 1, "scale for the rig given as arguments")
	fs.BoolVar(&f.loop, "loop", true, "loop the initial animation")
	fs.BoolVarP(&f.watch, "watch", "w", false, "reload textures when their files change")
	fs.BoolVar(&f.profile, "profile", false, "log frame statistics every second")
	fs.IntVar(&f.workers, "workers", 4, "texture decode workers")
	fs.Uint32Var(&f.msaa, "msaa", 1, "MSAA sample count (1 or 4)")
	fs.BoolVar(&f.uncapped, "uncapped", false, "present without waiting for vsync")
	fs.BoolVar(&f.software, "software", false, "force the software fallback adapter")
	fs.StringVar(&f.logLevel, "log-level", "info", "debug, info, warn or error")
	fs.IntVar(&f.width, "width", 800, "window width")
	fs.IntVar(&f.height, "height", 600, "window height")
	return cmd
}

func oneOrTwoPaths(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		return fmt.Errorf("expected both an atlas and a skeleton path, got %q", args[0])
	}
	return nil
}

// buildManifest merges the manifest file, positional rig and explicitly set flags. Flags win.
func buildManifest(cmd *cobra.Command, f *flags, args []string) (*config.Manifest, error) {
	m := config.Default()
	if f.config != "" {
		loaded, err := config.Load(f.config)
		if err != nil {
			return nil, err
		}
		m = loaded
	}

	changed := cmd.Flags().Changed
	if changed("watch") {
		m.Watch = f.watch
	}
	if changed("profile") {
		m.Profile = f.profile
	}
	if changed("workers") {
		m.Workers = f.workers
	}
	if changed("msaa") {
		m.Renderer.SampleCount = f.msaa
	}
	if changed("uncapped") {
		m.Renderer.PresentMode = "vsync"
		if f.uncapped {
			m.Renderer.PresentMode = "uncapped"
		}
	}
	if changed("log-level") {
		m.LogLevel = f.logLevel
	}
	if changed("width") {
		m.Window.Width = f.width
	}
	if changed("height") {
		m.Window.Height = f.height
	}

	if len(args) == 2 {
		loop := f.loop
		z := len(m.Rigs)
		for _, r := range m.Rigs {
			if *r.Z >= z {
				z = *r.Z + 1
			}
		}
		m.Rigs = append(m.Rigs, config.Rig{
			Atlas:     args[0],
			Skeleton:  args[1],
			Animation: f.animation,
			Skin:      f.skin,
			Loop:      &loop,
			Scale:     f.scale,
			Z:         &z,
		})
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	if len(m.Rigs) == 0 {
		return nil, errNoRigs
	}
	return m, nil
}

func presentMode(name string) renderer.PresentMode {
	if name == "uncapped" {
		return renderer.PresentModeUncapped
	}
	return renderer.PresentModeVSync
}

func run(ctx context.Context, m *config.Manifest, software bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	common.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: m.Level()})))

	win := window.NewWindow(
		window.WithTitle(m.Window.Title),
		window.WithSize(m.Window.Width, m.Window.Height),
	)
	defer win.Close()

	cc := m.Renderer.ClearColor
	r := renderer.NewRenderer(renderer.BackendTypeWGPU, win,
		renderer.WithMSAA(renderer.MSAASampleCount(m.Renderer.SampleCount)),
		renderer.WithClearColor(wgpu.Color{R: cc[0], G: cc[1], B: cc[2], A: cc[3]}),
		renderer.WithPresentMode(presentMode(m.Renderer.PresentMode)),
		renderer.WithForceSoftwareRenderer(software),
	)

	rt, err := rig.NewRuntime(r,
		rig.WithWorkers(m.Workers),
		rig.WithHotReload(m.Watch),
	)
	if err != nil {
		return fmt.Errorf("failed to create runtime: %w", err)
	}
	defer rt.Close()

	eng := engine.NewEngine(
		engine.WithWindow(win),
		engine.WithRenderer(r),
		engine.WithTickRate(m.TickRate),
		engine.WithRenderFrameLimit(m.FrameLimit),
		engine.WithProfiling(m.Profile),
	)

	v := newViewer(ctx, eng, rt, m)
	eng.SetTickCallback(v.tick)
	win.SetUpdateCallback(func() {
		if t, ok := v.takeTitle(); ok {
			win.SetTitle(t)
		}
	})
	win.SetKeyDownCallback(v.key)
	win.SetScrollCallback(v.scroll)
	win.SetDragCallback(v.drag)

	eng.Run()

	cancel()
	v.close()
	eng.Close()
	return nil
}
