package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etiktin/docker-pid1/pkg/model"
)

func load(t *testing.T, args ...string) (Config, error) {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddCommonFlags(fs)
	AddRunFlags(fs)
	require.NoError(t, fs.Parse(args))
	v, err := NewViper(fs)
	require.NoError(t, err)
	return Load(v)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(t)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFlags(t *testing.T) {
	cfg, err := load(t,
		"--interval=250ms",
		"--hold=0s",
		"--child-lifetime=1s",
		"--grandchild-lifetime=2s",
		"-o", "json",
		"--backend=procfs",
	)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.Interval)
	assert.Equal(t, time.Duration(0), cfg.Hold)
	assert.Equal(t, time.Second, cfg.ChildLifetime)
	assert.Equal(t, "json", cfg.Output)
	assert.Equal(t, "procfs", cfg.Backend)
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("DOCKER_PID1_INTERVAL", "5s")
	t.Setenv("DOCKER_PID1_NO_COLOR", "true")
	cfg, err := load(t)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Interval)
	assert.True(t, cfg.NoColor)
}

func TestLoadExecDefaultsChildMarker(t *testing.T) {
	cfg, err := load(t, "--exec=./b.py", "--grandchild-marker=./c.py")
	require.NoError(t, err)
	assert.Equal(t, "./b.py", cfg.ChildMarker)

	m := cfg.Matcher()
	role, ok := m.Match([]string{"/usr/bin/python3", "./c.py"})
	require.True(t, ok)
	assert.Equal(t, model.RoleGrandchild, role)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"zero interval":         func(c *Config) { c.Interval = 0 },
		"negative hold":         func(c *Config) { c.Hold = -time.Second },
		"same markers":          func(c *Config) { c.GrandchildMarker = c.ChildMarker },
		"empty marker":          func(c *Config) { c.ChildMarker = "" },
		"grandchild dies first": func(c *Config) { c.GrandchildLifetime = c.ChildLifetime },
		"bad output":            func(c *Config) { c.Output = "xml" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, Default().Validate())
}
