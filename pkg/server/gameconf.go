package server

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// GameConf holds game-level configuration parameters, loaded from YAML.
type GameConf struct {
	// --- Identity ---
	Name string `yaml:"name"`
	Port int    `yaml:"port"`

	// --- World data ---
	WorldDir string `yaml:"world_dir"` // rooms.yaml, items.yaml, bots.yaml, scripts.yaml
	BoltPath string `yaml:"bolt_path"` // user records + world snapshot ("" = no persistence)

	// --- Scripts ---
	StepLimit  int  `yaml:"step_limit"`  // per-run interpreter step budget
	TickMillis int  `yaml:"tick_millis"` // scheduler tick interval
	WatchWorld bool `yaml:"watch_world"` // hot-reload scripts.yaml on write

	// --- Persistence cadence ---
	SaveInterval int `yaml:"save_interval"` // world snapshot interval in minutes, 0 = on shutdown only

	// --- Admin ---
	AdminUsers        []string `yaml:"admin_users"`         // names granted admin on login
	AdminPasswordHash string   `yaml:"admin_password_hash"` // bcrypt; gates web login for admin names ("" = no gate)

	// --- Chat history (SQLite) ---
	HistoryPath      string `yaml:"history_path"`      // "" = disabled
	HistoryRetention int    `yaml:"history_retention"` // seconds, default 7 days

	// --- Web/Security ---
	WebEnabled     bool     `yaml:"web_enabled"`
	WebPort        int      `yaml:"web_port"`
	WebHost        string   `yaml:"web_host"`
	WebDomain      string   `yaml:"web_domain"` // Let's Encrypt domain (empty = self-signed)
	WebCORSOrigins []string `yaml:"web_cors_origins"`
	WebRateLimit   int      `yaml:"web_rate_limit"` // requests per minute per IP
	JWTSecret      string   `yaml:"jwt_secret"`     // auto-generated if empty
	JWTExpiry      int      `yaml:"jwt_expiry"`     // seconds
	TLSCert        string   `yaml:"tls_cert"`
	TLSKey         string   `yaml:"tls_key"`
	CertDir        string   `yaml:"cert_dir"`
}

// DefaultGameConf returns a GameConf with workable defaults.
func DefaultGameConf() *GameConf {
	return &GameConf{
		Name:             "The Text Spot",
		Port:             8888,
		WorldDir:         "world",
		BoltPath:         "textspot.db",
		StepLimit:        10000,
		TickMillis:       100,
		WatchWorld:       true,
		SaveInterval:     30,
		AdminUsers:       []string{"admin"},
		HistoryRetention: 7 * 86400,
		WebEnabled:       true,
		WebPort:          8443,
		WebRateLimit:     60,
		JWTExpiry:        86400,
	}
}

// LoadGameConf loads a YAML config file over the defaults.
func LoadGameConf(path string) (*GameConf, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	gc := DefaultGameConf()
	if err := yaml.Unmarshal(data, gc); err != nil {
		return nil, fmt.Errorf("parsing YAML %s: %w", path, err)
	}
	return gc, nil
}

// IsAdminName reports whether a display name is configured as an admin.
func (gc *GameConf) IsAdminName(name string) bool {
	for _, a := range gc.AdminUsers {
		if a == name {
			return true
		}
	}
	return false
}
