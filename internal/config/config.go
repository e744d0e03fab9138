// Package config loads the migration configuration: value mapping
// dictionaries, per-table starting IDs, and column overrides. The file is
// YAML or JSON by extension; a handful of MPMIGRATE_* environment
// variables layer on top, with a .env.local picked up from the working
// directory or any parent.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/mberg/mpmigrate/internal/remap"
)

// Error marks a configuration problem. The run aborts before any table
// is touched.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// TableColumns holds per-table column name overrides.
type TableColumns struct {
	Members       []string `yaml:"members" json:"members"`
	Subscriptions []string `yaml:"subscriptions" json:"subscriptions"`
	Transactions  []string `yaml:"transactions" json:"transactions"`
}

// Config is the full migration configuration. Constructed once by Load
// and treated as read-only afterwards.
type Config struct {
	Mappings struct {
		Products map[string]string `yaml:"products" json:"products"`
		Gateways map[string]string `yaml:"gateways" json:"gateways"`
	} `yaml:"mappings" json:"mappings"`

	StartIDs struct {
		Members       int `yaml:"members" json:"members"`
		Subscriptions int `yaml:"subscriptions" json:"subscriptions"`
		Transactions  int `yaml:"transactions" json:"transactions"`
	} `yaml:"start_ids" json:"start_ids"`

	ProductColumns TableColumns `yaml:"product_columns" json:"product_columns"`
	GatewayColumns TableColumns `yaml:"gateway_columns" json:"gateway_columns"`

	// Optional; usually supplied as flags instead.
	OutDir  string `yaml:"outdir" json:"outdir"`
	AuditDB string `yaml:"audit_db" json:"audit_db"`
}

// Load reads the configuration file at path and applies environment
// overrides. Missing start_ids default to 1 downstream; anything
// negative is rejected here.
func Load(path string) (*Config, error) {
	if envPath := findEnvLocal(); envPath != "" {
		_ = godotenv.Load(envPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, &Error{Path: path, Err: fmt.Errorf("failed to parse yaml: %w", err)}
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, &Error{Path: path, Err: fmt.Errorf("failed to parse json: %w", err)}
		}
	}

	if outdir := os.Getenv("MPMIGRATE_OUTDIR"); outdir != "" {
		cfg.OutDir = outdir
	}
	if auditDB := os.Getenv("MPMIGRATE_AUDIT_DB"); auditDB != "" {
		cfg.AuditDB = auditDB
	}

	if err := cfg.validate(); err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	return cfg, nil
}

func (c *Config) validate() error {
	starts := map[string]int{
		"members":       c.StartIDs.Members,
		"subscriptions": c.StartIDs.Subscriptions,
		"transactions":  c.StartIDs.Transactions,
	}
	for name, start := range starts {
		if start < 0 {
			return fmt.Errorf("start_ids.%s must be a positive integer, got %d", name, start)
		}
	}
	return nil
}

// Options converts the configuration into engine options.
func (c *Config) Options() remap.Options {
	return remap.Options{
		Products: remap.NewValueMap(c.Mappings.Products),
		Gateways: remap.NewValueMap(c.Mappings.Gateways),
		Members: remap.TableOptions{
			Start:          c.StartIDs.Members,
			ProductColumns: c.ProductColumns.Members,
		},
		Subscriptions: remap.TableOptions{
			Start:          c.StartIDs.Subscriptions,
			ProductColumns: c.ProductColumns.Subscriptions,
			GatewayColumns: c.GatewayColumns.Subscriptions,
		},
		Transactions: remap.TableOptions{
			Start:          c.StartIDs.Transactions,
			ProductColumns: c.ProductColumns.Transactions,
			GatewayColumns: c.GatewayColumns.Transactions,
		},
	}
}

// findEnvLocal searches for .env.local starting from cwd and walking up
// parent directories, stopping at the user's home directory.
func findEnvLocal() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		if _, err := os.Stat(".env.local"); err == nil {
			return ".env.local"
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	homeDir = filepath.Clean(homeDir)
	dir := filepath.Clean(cwd)

	for {
		envPath := filepath.Join(dir, ".env.local")
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}

		if dir == homeDir {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}
