// Package config loads the diagram tool's TOML configuration.
//
// Lookup order for the file: the --config flag, then $DIAGRAM_CONFIG, then
// $XDG_CONFIG_HOME/diagram/config.toml (or the platform equivalent). A
// missing default file is not an error; [Default] values apply.
//
//	[policy]
//	allow_self_loops = false
//	reject_duplicates = false
//	protect_incoming = false
//
//	[geometry]
//	node_width = 160
//	node_height = 60
//	anchor_radius = 8
//
//	[persist]
//	url = "https://checklist.example.com"
//	timeout = "10s"
//
//	[store]
//	backend = "file"   # memory, file, redis or mongo
//	dir = "/var/lib/diagram"
//
//	[server]
//	addr = ":8080"
//	metrics = true
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/checklistapp/diagram/pkg/diagram"
	derrors "github.com/checklistapp/diagram/pkg/errors"
)

// EnvPath names the environment variable holding the config file path.
const EnvPath = "DIAGRAM_CONFIG"

// Store backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

var backends = []string{BackendMemory, BackendFile, BackendRedis, BackendMongo}

// Config is the complete tool configuration.
type Config struct {
	Policy   Policy   `toml:"policy"`
	Geometry Geometry `toml:"geometry"`
	Persist  Persist  `toml:"persist"`
	Store    Store    `toml:"store"`
	Server   Server   `toml:"server"`
}

// Policy mirrors [diagram.Policy].
type Policy struct {
	AllowSelfLoops   bool `toml:"allow_self_loops"`
	RejectDuplicates bool `toml:"reject_duplicates"`
	ProtectIncoming  bool `toml:"protect_incoming"`
}

// Geometry mirrors [diagram.Geometry].
type Geometry struct {
	NodeWidth    float64 `toml:"node_width"`
	NodeHeight   float64 `toml:"node_height"`
	AnchorRadius float64 `toml:"anchor_radius"`
}

// Persist configures the HTTP persistence client. An empty URL means
// documents are saved to the local store instead.
type Persist struct {
	URL        string        `toml:"url"`
	Timeout    time.Duration `toml:"timeout"`
	CSRFCookie string        `toml:"csrf_cookie"`
	CSRFHeader string        `toml:"csrf_header"`
	PagePath   string        `toml:"page_path"`
	SavePath   string        `toml:"save_path"`
	LoadPath   string        `toml:"load_path"`
}

// Store selects and configures the storage backend.
type Store struct {
	Backend         string `toml:"backend"`
	Dir             string `toml:"dir"`
	RedisAddr       string `toml:"redis_addr"`
	RedisPassword   string `toml:"redis_password"`
	RedisDB         int    `toml:"redis_db"`
	RedisPrefix     string `toml:"redis_prefix"`
	MongoURI        string `toml:"mongo_uri"`
	MongoDatabase   string `toml:"mongo_database"`
	MongoCollection string `toml:"mongo_collection"`
}

// Server configures the reference HTTP host.
type Server struct {
	Addr       string `toml:"addr"`
	CSRFCookie string `toml:"csrf_cookie"`
	CSRFHeader string `toml:"csrf_header"`
	Metrics    bool   `toml:"metrics"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	g := diagram.DefaultGeometry()
	return Config{
		Geometry: Geometry{NodeWidth: g.NodeWidth, NodeHeight: g.NodeHeight, AnchorRadius: g.AnchorRadius},
		Persist: Persist{
			Timeout:    10 * time.Second,
			CSRFCookie: "csrftoken",
			CSRFHeader: "X-CSRFToken",
		},
		Store: Store{
			Backend:     BackendFile,
			RedisAddr:   "localhost:6379",
			RedisPrefix: "diagram",
			MongoURI:    "mongodb://localhost:27017",
		},
		Server: Server{
			Addr:       ":8080",
			CSRFCookie: "csrftoken",
			CSRFHeader: "X-CSRFToken",
			Metrics:    true,
		},
	}
}

// DefaultPath returns the config file path from $DIAGRAM_CONFIG or the
// user config directory.
func DefaultPath() string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "diagram", "config.toml")
}

// Load reads the file at path over the defaults. An empty path uses
// [DefaultPath]; a missing default file yields [Default]. Unknown keys are
// rejected so typos do not pass silently.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, derrors.Wrap(derrors.ErrCodeInvalidInput, err, "load config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, derrors.New(derrors.ErrCodeInvalidInput, "unknown config keys in %s: %s", path, strings.Join(keys, ", "))
	}
	return cfg, cfg.Validate()
}

// Validate checks value ranges and enumerations.
func (c Config) Validate() error {
	if c.Geometry.NodeWidth <= 0 || c.Geometry.NodeHeight <= 0 {
		return derrors.New(derrors.ErrCodeInvalidInput, "geometry: node size must be positive")
	}
	if c.Geometry.AnchorRadius < 0 {
		return derrors.New(derrors.ErrCodeInvalidInput, "geometry: anchor_radius cannot be negative")
	}
	if !slices.Contains(backends, c.Store.Backend) {
		return derrors.New(derrors.ErrCodeInvalidInput, "store: unknown backend %q (want one of %s)", c.Store.Backend, strings.Join(backends, ", "))
	}
	if c.Persist.URL != "" {
		if err := derrors.ValidateURL(c.Persist.URL); err != nil {
			return fmt.Errorf("persist: %w", err)
		}
	}
	return nil
}

// DiagramPolicy converts the policy section.
func (p Policy) DiagramPolicy() diagram.Policy {
	return diagram.Policy{
		AllowSelfLoops:   p.AllowSelfLoops,
		RejectDuplicates: p.RejectDuplicates,
		ProtectIncoming:  p.ProtectIncoming,
	}
}

// DiagramGeometry converts the geometry section.
func (g Geometry) DiagramGeometry() diagram.Geometry {
	return diagram.Geometry{NodeWidth: g.NodeWidth, NodeHeight: g.NodeHeight, AnchorRadius: g.AnchorRadius}
}

// EditorOptions returns the editor options implied by the configuration.
func (c Config) EditorOptions() []diagram.Option {
	return []diagram.Option{
		diagram.WithPolicy(c.Policy.DiagramPolicy()),
		diagram.WithGeometry(c.Geometry.DiagramGeometry()),
	}
}
