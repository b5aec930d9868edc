package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/etiktin/docker-pid1/internal/output"
	"github.com/etiktin/docker-pid1/internal/proc"
	"github.com/etiktin/docker-pid1/internal/process"
	"github.com/etiktin/docker-pid1/pkg/model"
)

// EnvPrefix prefixes the environment variable of every flag,
// e.g. DOCKER_PID1_INTERVAL=500ms
const EnvPrefix = "DOCKER_PID1"

const (
	DefaultChildMarker      = "docker-pid1-child"
	DefaultGrandchildMarker = "docker-pid1-grandchild"
)

type Config struct {
	// Interval between two polls of the process table
	Interval time.Duration
	// Hold is how long to stay idle after the final snapshot
	Hold time.Duration

	ChildLifetime      time.Duration
	GrandchildLifetime time.Duration

	// Exec replaces the built-in child with an external program
	Exec     string
	ExecArgs []string

	ChildMarker      string
	GrandchildMarker string

	Backend   string
	Subreaper bool
	Output    string
	NoColor   bool
	LogLevel  string
}

func Default() Config {
	return Config{
		Interval:           time.Second,
		Hold:               10 * time.Minute,
		ChildLifetime:      3 * time.Second,
		GrandchildLifetime: 6 * time.Second,
		ChildMarker:        DefaultChildMarker,
		GrandchildMarker:   DefaultGrandchildMarker,
		Backend:            proc.BackendGopsutil,
		Output:             output.FormatText,
		LogLevel:           "info",
	}
}

// AddCommonFlags registers the flags shared by every command
func AddCommonFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.Duration("interval", d.Interval, "delay between two inspections of the process table")
	fs.String("backend", d.Backend, "process inspection backend (gopsutil, procfs)")
	fs.String("child-marker", d.ChildMarker, "command line token identifying the child")
	fs.String("grandchild-marker", d.GrandchildMarker, "command line token identifying the grandchild")
	fs.Bool("no-color", d.NoColor, "disable colorized output")
	fs.String("log-level", d.LogLevel, "log level (debug, info, warn, error)")
}

// AddRunFlags registers the flags of the run command
func AddRunFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.Duration("hold", d.Hold, "how long to idle after the final snapshot")
	fs.Duration("child-lifetime", d.ChildLifetime, "how long the built-in child lives")
	fs.Duration("grandchild-lifetime", d.GrandchildLifetime, "how long the built-in grandchild lives")
	fs.String("exec", d.Exec, "launch this executable as the child instead of the built-in one")
	fs.StringSlice("exec-arg", nil, "argument passed to --exec (repeatable)")
	fs.Bool("subreaper", d.Subreaper, "adopt orphans like PID 1 does (linux only)")
	fs.StringP("output", "o", d.Output, "output format (text, json)")
}

// NewViper binds fs and the DOCKER_PID1_* environment
func NewViper(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, errors.Wrap(err, "bind flags")
	}
	return v, nil
}

// Load reads the configuration out of v and validates it
func Load(v *viper.Viper) (Config, error) {
	cfg := Default()
	cfg.Interval = v.GetDuration("interval")
	cfg.Backend = v.GetString("backend")
	cfg.ChildMarker = v.GetString("child-marker")
	cfg.GrandchildMarker = v.GetString("grandchild-marker")
	cfg.NoColor = v.GetBool("no-color")
	cfg.LogLevel = v.GetString("log-level")

	if v.IsSet("hold") {
		cfg.Hold = v.GetDuration("hold")
	}
	if v.IsSet("child-lifetime") {
		cfg.ChildLifetime = v.GetDuration("child-lifetime")
	}
	if v.IsSet("grandchild-lifetime") {
		cfg.GrandchildLifetime = v.GetDuration("grandchild-lifetime")
	}
	cfg.Exec = v.GetString("exec")
	if args := v.GetStringSlice("exec-arg"); len(args) > 0 {
		cfg.ExecArgs = args
	}
	cfg.Subreaper = v.GetBool("subreaper")
	if v.IsSet("output") {
		cfg.Output = v.GetString("output")
	}

	if cfg.Exec != "" && !v.IsSet("child-marker") {
		cfg.ChildMarker = cfg.Exec
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Interval <= 0 {
		return errors.Errorf("interval must be positive, got %s", c.Interval)
	}
	if c.Hold < 0 {
		return errors.Errorf("hold must not be negative, got %s", c.Hold)
	}
	if c.ChildMarker == "" || c.GrandchildMarker == "" {
		return errors.New("child and grandchild markers must not be empty")
	}
	if c.ChildMarker == c.GrandchildMarker {
		return errors.Errorf("child and grandchild share the marker %q", c.ChildMarker)
	}
	if c.Exec == "" && c.GrandchildLifetime <= c.ChildLifetime {
		return errors.Errorf("grandchild lifetime (%s) must exceed child lifetime (%s) for the grandchild to be orphaned",
			c.GrandchildLifetime, c.ChildLifetime)
	}
	switch c.Output {
	case output.FormatText, output.FormatJSON:
	default:
		return errors.Errorf("unknown output format %q", c.Output)
	}
	return nil
}

// Matcher resolves the child roles from their markers
func (c Config) Matcher() process.Matcher {
	return process.Matcher{
		c.ChildMarker:      model.RoleChild,
		c.GrandchildMarker: model.RoleGrandchild,
	}
}
