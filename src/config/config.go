package config

import (
	"flag"
	"strings"
	"time"

	"github.com/WowVeryLogin/deferred_engine/src/logger"
	"github.com/cockroachdb/errors"
)

type Config struct {
	Width, Height int
	Title         string
	Validation    bool

	// FOV is the vertical field of view in degrees.
	FOV       float32
	Near, Far float32

	// AcquireTimeout bounds the wait for a presentable image. Zero waits forever.
	AcquireTimeout time.Duration
	// StrictStageOrder logs out-of-order render calls as warnings instead of debug messages.
	StrictStageOrder bool

	ShaderDir  string
	Models     []string
	LightProxy string
	// Skybox holds the six cube faces in +X, -X, +Y, -Y, +Z, -Z order, or nothing.
	Skybox []string

	PhysicsStep time.Duration
	LogLevel    string
}

func Default() Config {
	return Config{
		Width:       800,
		Height:      600,
		Title:       "Deferred Engine",
		Validation:  false,
		FOV:         90,
		Near:        0.01,
		Far:         1000,
		ShaderDir:   "shaders",
		Models:      []string{"assets/avocado.glb"},
		PhysicsStep: time.Second / 60,
		LogLevel:    "info",
	}
}

type listValue struct {
	list *[]string
}

func (l listValue) String() string {
	if l.list == nil {
		return ""
	}
	return strings.Join(*l.list, ",")
}

func (l listValue) Set(s string) error {
	*l.list = nil
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			*l.list = append(*l.list, item)
		}
	}
	return nil
}

// Parse reads command-line flags on top of Default.
func Parse(args []string) (Config, error) {
	cfg := Default()

	fs := flag.NewFlagSet("deferred_engine", flag.ContinueOnError)
	fs.IntVar(&cfg.Width, "width", cfg.Width, "window width")
	fs.IntVar(&cfg.Height, "height", cfg.Height, "window height")
	fs.StringVar(&cfg.Title, "title", cfg.Title, "window title")
	fs.BoolVar(&cfg.Validation, "validation", cfg.Validation, "enable Vulkan validation layers")
	fov := float64(cfg.FOV)
	fs.Float64Var(&fov, "fov", fov, "vertical field of view in degrees")
	near, far := float64(cfg.Near), float64(cfg.Far)
	fs.Float64Var(&near, "near", near, "near clip plane")
	fs.Float64Var(&far, "far", far, "far clip plane")
	fs.DurationVar(&cfg.AcquireTimeout, "acquire-timeout", cfg.AcquireTimeout, "swapchain acquire timeout, 0 waits forever")
	fs.BoolVar(&cfg.StrictStageOrder, "strict", cfg.StrictStageOrder, "warn on out-of-order render calls")
	fs.StringVar(&cfg.ShaderDir, "shaders", cfg.ShaderDir, "directory with compiled SPIR-V shaders")
	fs.Var(listValue{&cfg.Models}, "models", "comma separated model files (.glb, .gltf, .obj)")
	fs.StringVar(&cfg.LightProxy, "light-proxy", cfg.LightProxy, "model drawn at point light positions")
	fs.Var(listValue{&cfg.Skybox}, "skybox", "six comma separated cube face images")
	fs.DurationVar(&cfg.PhysicsStep, "physics-step", cfg.PhysicsStep, "fixed physics timestep")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")

	if err := fs.Parse(args); err != nil {
		return Config{}, errors.Wrap(err, "parse flags")
	}
	cfg.FOV, cfg.Near, cfg.Far = float32(fov), float32(near), float32(far)

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch {
	case c.Width <= 0 || c.Height <= 0:
		return errors.Newf("window size %dx%d must be positive", c.Width, c.Height)
	case c.FOV <= 0 || c.FOV >= 180:
		return errors.Newf("fov %v must be within (0, 180)", c.FOV)
	case c.Near <= 0 || c.Far <= c.Near:
		return errors.Newf("clip planes near=%v far=%v are invalid", c.Near, c.Far)
	case c.AcquireTimeout < 0:
		return errors.New("acquire timeout must not be negative")
	case len(c.Skybox) != 0 && len(c.Skybox) != 6:
		return errors.Newf("skybox needs 6 faces, got %d", len(c.Skybox))
	case c.PhysicsStep <= 0:
		return errors.New("physics step must be positive")
	}
	if _, ok := logger.ParseLevel(c.LogLevel); !ok {
		return errors.Newf("unknown log level %q", c.LogLevel)
	}
	return nil
}
