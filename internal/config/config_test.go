package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := *Defaults()
	cfg.SQLiteDBPath = "./test.db"
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		wantErr     bool
		errorString string
	}{
		{
			name:    "defaults are valid",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:        "invalid port - non-numeric",
			mutate:      func(c *Config) { c.Port = "abc" },
			wantErr:     true,
			errorString: "invalid port 'abc': must be a number",
		},
		{
			name:        "invalid port - out of range high",
			mutate:      func(c *Config) { c.Port = "70000" },
			wantErr:     true,
			errorString: "invalid port 70000: must be between 1 and 65535",
		},
		{
			name:        "request timeout too short",
			mutate:      func(c *Config) { c.RequestTimeout = 10 * time.Millisecond },
			wantErr:     true,
			errorString: "invalid request timeout 10ms",
		},
		{
			name:        "unknown log level",
			mutate:      func(c *Config) { c.LogLevel = "verbose" },
			wantErr:     true,
			errorString: `unknown log level "verbose"`,
		},
		{
			name:        "unknown log format",
			mutate:      func(c *Config) { c.LogFormat = "xml" },
			wantErr:     true,
			errorString: "invalid log format 'xml'",
		},
		{
			name:        "missing database path",
			mutate:      func(c *Config) { c.SQLiteDBPath = "" },
			wantErr:     true,
			errorString: "SQLite database path cannot be empty",
		},
		{
			name:        "invalid AMQP URL scheme",
			mutate:      func(c *Config) { c.AMQPURL = "http://localhost:5672/" },
			wantErr:     true,
			errorString: "invalid AMQP URL scheme 'http': must be 'amqp' or 'amqps'",
		},
		{
			name:        "AMQP URL without queue",
			mutate:      func(c *Config) { c.AMQPQueue = "" },
			wantErr:     true,
			errorString: "AMQP queue name cannot be empty when AMQP URL is provided",
		},
		{
			name: "AMQP disabled",
			mutate: func(c *Config) {
				c.AMQPEnabled = false
				c.AMQPURL, c.AMQPExchange, c.AMQPQueue = "", "", ""
			},
			wantErr: false,
		},
		{
			name:        "AMQP enabled without URL",
			mutate:      func(c *Config) { c.AMQPURL = "" },
			wantErr:     true,
			errorString: "AMQP URL is required when AMQP is enabled",
		},
		{
			name: "sheets export without credentials",
			mutate: func(c *Config) {
				c.GoogleSpreadsheetID = "sheet-id"
			},
			wantErr:     true,
			errorString: "either GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_SERVICE_ACCOUNT_JSON must be provided",
		},
		{
			name: "sheets export with inline credentials",
			mutate: func(c *Config) {
				c.GoogleSpreadsheetID = "sheet-id"
				c.GoogleServiceAccountJSON = "{}"
			},
			wantErr: false,
		},
		{
			name: "sheets export with missing credentials file",
			mutate: func(c *Config) {
				c.GoogleSpreadsheetID = "sheet-id"
				c.GoogleServiceAccountFile = "/non/existent/file.json"
			},
			wantErr:     true,
			errorString: "Google service account file does not exist",
		},
		{
			name:        "export debounce too long",
			mutate:      func(c *Config) { c.ExportDebounce = 2 * time.Hour },
			wantErr:     true,
			errorString: "invalid export debounce 2h0m0s: must be at most 1 hour",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.errorString != "" && !strings.Contains(err.Error(), tt.errorString) {
				t.Errorf("Config.Validate() error = %v, want error containing %v", err, tt.errorString)
			}
		})
	}
}

func TestConfig_ValidateAggregatesErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Port = "0"
	cfg.LogFormat = "yaml"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "invalid port 0") || !strings.Contains(err.Error(), "invalid log format 'yaml'") {
		t.Errorf("both problems should be reported, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	for _, key := range []string{ConfigFileEnv, "PORT", "SQLITE_DB_PATH", "LOG_LEVEL", "EXPORT_DEBOUNCE", "METRICS_ENABLED", "RATE_LIMIT_PER_MINUTE", "AMQP_ENABLED"} {
		t.Setenv(key, "")
	}

	t.Run("default values", func(t *testing.T) {
		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Port != "8081" {
			t.Errorf("Load() Port = %v, want 8081", cfg.Port)
		}
		if cfg.SQLiteDBPath != "./data/mesa.db" {
			t.Errorf("Load() SQLiteDBPath = %v, want ./data/mesa.db", cfg.SQLiteDBPath)
		}
		if cfg.ExportDebounce != 30*time.Second {
			t.Errorf("Load() ExportDebounce = %v, want 30s", cfg.ExportDebounce)
		}
		if !cfg.MetricsEnabled {
			t.Error("Load() MetricsEnabled = false, want true")
		}
	})

	t.Run("environment variables", func(t *testing.T) {
		t.Setenv("PORT", "9090")
		t.Setenv("SQLITE_DB_PATH", "/tmp/test.db")
		t.Setenv("EXPORT_DEBOUNCE", "5s")
		t.Setenv("METRICS_ENABLED", "false")
		t.Setenv("AMQP_ENABLED", "false")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Port != "9090" || cfg.SQLiteDBPath != "/tmp/test.db" {
			t.Errorf("Load() = %+v", cfg)
		}
		if cfg.ExportDebounce != 5*time.Second {
			t.Errorf("Load() ExportDebounce = %v, want 5s", cfg.ExportDebounce)
		}
		if cfg.AMQPEnabled {
			t.Error("Load() AMQPEnabled = true, want false")
		}
		if cfg.MetricsEnabled {
			t.Error("Load() MetricsEnabled = true, want false")
		}
	})

	t.Run("invalid environment variables use defaults", func(t *testing.T) {
		t.Setenv("EXPORT_DEBOUNCE", "soon")
		t.Setenv("RATE_LIMIT_PER_MINUTE", "many")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.ExportDebounce != 30*time.Second {
			t.Errorf("Load() ExportDebounce = %v, want 30s (default for invalid input)", cfg.ExportDebounce)
		}
		if cfg.RateLimitPerMinute != 120 {
			t.Errorf("Load() RateLimitPerMinute = %v, want 120 (default for invalid input)", cfg.RateLimitPerMinute)
		}
	})
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mesa.toml")
	content := `
[server]
port = "7000"
request_timeout = "10s"
metrics_enabled = false

[log]
level = "debug"
format = "json"

[database]
path = "/var/lib/mesa/ledger.db"

[worker]
export_debounce = "1m"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv(ConfigFileEnv, path)
	t.Setenv("PORT", "7100")
	t.Setenv("SQLITE_DB_PATH", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("METRICS_ENABLED", "")
	t.Setenv("EXPORT_DEBOUNCE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != "7100" {
		t.Errorf("environment should override the file: Port = %v", cfg.Port)
	}
	if cfg.RequestTimeout != 10*time.Second || cfg.LogLevel != "debug" || cfg.LogFormat != "json" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.SQLiteDBPath != "/var/lib/mesa/ledger.db" || cfg.ExportDebounce != time.Minute || cfg.MetricsEnabled {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.AMQPExchange != "mesa" {
		t.Errorf("unset file keys should keep defaults, got exchange %q", cfg.AMQPExchange)
	}
}

func TestLoadConfigFileErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
	}{
		{"malformed", "[server\nport = 1"},
		{"bad duration", "[worker]\nexport_debounce = \"often\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(tt.name, " ", "_")+".toml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatalf("write config file: %v", err)
			}
			t.Setenv(ConfigFileEnv, path)
			if _, err := Load(); err == nil {
				t.Error("Load() should fail")
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		t.Setenv(ConfigFileEnv, filepath.Join(dir, "absent.toml"))
		if _, err := Load(); err == nil {
			t.Error("Load() should fail for a missing file")
		}
	})
}
