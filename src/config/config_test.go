package config

import (
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]string{
		"-width", "1280",
		"-fov", "70",
		"-acquire-timeout", "2s",
		"-models", "a.glb, b.obj",
		"-skybox", "px.png,nx.png,py.png,ny.png,pz.png,nz.png",
		"-log-level", "debug",
	})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 1280 || cfg.Height != 600 {
		t.Errorf("size = %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.FOV != 70 {
		t.Errorf("fov = %v", cfg.FOV)
	}
	if cfg.AcquireTimeout != 2*time.Second {
		t.Errorf("acquire timeout = %v", cfg.AcquireTimeout)
	}
	if len(cfg.Models) != 2 || cfg.Models[1] != "b.obj" {
		t.Errorf("models = %v", cfg.Models)
	}
	if len(cfg.Skybox) != 6 {
		t.Errorf("skybox = %v", cfg.Skybox)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := map[string]func(*Config){
		"zero width":      func(c *Config) { c.Width = 0 },
		"flat fov":        func(c *Config) { c.FOV = 180 },
		"far before near": func(c *Config) { c.Far = c.Near / 2 },
		"negative wait":   func(c *Config) { c.AcquireTimeout = -time.Second },
		"five faces":      func(c *Config) { c.Skybox = []string{"a", "b", "c", "d", "e"} },
		"no physics step": func(c *Config) { c.PhysicsStep = 0 },
		"bad level":       func(c *Config) { c.LogLevel = "loud" },
	}
	for name, mutate := range tests {
		cfg := Default()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
