package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// DBConfig holds relational database settings. Path is the sqlite file
// used when postgres is unreachable; ":memory:" selects the shared
// in-memory database.
type DBConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
	Path     string `json:"path" mapstructure:"path"`
}

// MemoryConfig holds JSON export settings for the memory backend.
type MemoryConfig struct {
	CompressOutput bool `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig tunes the periodic disk dump of the in-memory database.
type SQLiteConfig struct {
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// WebsocketConfig points the streaming backend at a collector.
type WebsocketConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	Secret string `json:"secret" mapstructure:"secret"`
}

// StorageConfig selects the artifact backend and its write cadence.
type StorageConfig struct {
	Type            string          `json:"type" mapstructure:"type"`
	FlushIntervalMs int             `json:"flushIntervalMs" mapstructure:"flushIntervalMs"`
	Memory          MemoryConfig    `json:"memory" mapstructure:"memory"`
	SQLite          SQLiteConfig    `json:"sqlite" mapstructure:"sqlite"`
	Websocket       WebsocketConfig `json:"websocket" mapstructure:"websocket"`
}

// FlushInterval returns the worker drain tick as a duration.
func (c StorageConfig) FlushInterval() time.Duration {
	return time.Duration(c.FlushIntervalMs) * time.Millisecond
}

// OutputsConfig toggles the derived artifact stages and names the
// export directory used by the memory backend.
type OutputsConfig struct {
	CenterlinePoints bool   `json:"centerlinePoints" mapstructure:"centerlinePoints"`
	CrestPoints      bool   `json:"crestPoints" mapstructure:"crestPoints"`
	ToePoints        bool   `json:"toePoints" mapstructure:"toePoints"`
	CrossSections    bool   `json:"crossSections" mapstructure:"crossSections"`
	ToeBoundary      bool   `json:"toeBoundary" mapstructure:"toeBoundary"`
	Surfaces         bool   `json:"surfaces" mapstructure:"surfaces"`
	Volumes          bool   `json:"volumes" mapstructure:"volumes"`
	Dir              string `json:"dir" mapstructure:"dir"`
}

// DetectorConfig is the break detector tuning surface.
type DetectorConfig struct {
	Window           int       `json:"window" mapstructure:"window"`
	CrestThreshold   float64   `json:"crestThreshold" mapstructure:"crestThreshold"`
	FlattenThreshold float64   `json:"flattenThreshold" mapstructure:"flattenThreshold"`
	DropRatio        float64   `json:"dropRatio" mapstructure:"dropRatio"`
	ToeRatios        []float64 `json:"toeRatios" mapstructure:"toeRatios"`
}

// Load reads configuration from a JSON file and sets default values.
// configDir is the directory containing crestline.cfg.json; a missing
// file is not an error because every key has a default.
func Load(configDir string) error {
	// Set default values
	viper.SetDefault("defaultLogLevel", "info")
	viper.SetDefault("logFile", "crestline.log")

	viper.SetDefault("stations.interval", 5.0)
	viper.SetDefault("stations.maxChainage", 0.0)

	viper.SetDefault("profile.spacing", 0.75)
	viper.SetDefault("profile.maxDistance", 20.0)

	viper.SetDefault("detector.window", 4)
	viper.SetDefault("detector.crestThreshold", -3.0)
	viper.SetDefault("detector.flattenThreshold", 5.0)
	viper.SetDefault("detector.dropRatio", 0.2)
	viper.SetDefault("detector.toeRatios", []float64{1.0})

	viper.SetDefault("curves.path", "")
	viper.SetDefault("curves.idProperty", "code")
	viper.SetDefault("curves.filter", "")

	viper.SetDefault("raster.path", "")

	viper.SetDefault("sampler.cacheLimit", 500000)

	viper.SetDefault("projection.sourceEpsg", 4326)
	viper.SetDefault("projection.targetEpsg", 2193)

	viper.SetDefault("outputs.centerlinePoints", true)
	viper.SetDefault("outputs.crestPoints", true)
	viper.SetDefault("outputs.toePoints", true)
	viper.SetDefault("outputs.crossSections", true)
	viper.SetDefault("outputs.toeBoundary", true)
	viper.SetDefault("outputs.surfaces", true)
	viper.SetDefault("outputs.volumes", true)
	viper.SetDefault("outputs.dir", "./output")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.flushIntervalMs", 250)
	viper.SetDefault("storage.memory.compressOutput", false)
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.websocket.url", "")
	viper.SetDefault("storage.websocket.secret", "")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "crestline")
	viper.SetDefault("db.path", "crestline.db")

	viper.SetDefault("gelf.enabled", false)
	viper.SetDefault("gelf.address", "")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "crestline-metrics")
	viper.SetDefault("influx.backupDir", "./influx_backup")

	viper.SetDefault("api.enabled", false)
	viper.SetDefault("api.serverUrl", "http://localhost:5000")
	viper.SetDefault("api.apiKey", "")

	viper.SetDefault("monitor.intervalSec", 30)

	viper.SetConfigName("crestline.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetFloat returns a float config value.
func GetFloat(key string) float64 {
	return viper.GetFloat64(key)
}

// GetDBConfig assembles the db block. Each field resolves through
// viper so file overrides and defaults merge per key.
func GetDBConfig() DBConfig {
	return DBConfig{
		Host:     viper.GetString("db.host"),
		Port:     viper.GetString("db.port"),
		Username: viper.GetString("db.username"),
		Password: viper.GetString("db.password"),
		Database: viper.GetString("db.database"),
		Path:     viper.GetString("db.path"),
	}
}

// GetStorageConfig assembles the storage block.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type:            viper.GetString("storage.type"),
		FlushIntervalMs: viper.GetInt("storage.flushIntervalMs"),
		Memory: MemoryConfig{
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
		Websocket: WebsocketConfig{
			URL:    viper.GetString("storage.websocket.url"),
			Secret: viper.GetString("storage.websocket.secret"),
		},
	}
}

// GetOutputsConfig assembles the outputs block.
func GetOutputsConfig() OutputsConfig {
	return OutputsConfig{
		CenterlinePoints: viper.GetBool("outputs.centerlinePoints"),
		CrestPoints:      viper.GetBool("outputs.crestPoints"),
		ToePoints:        viper.GetBool("outputs.toePoints"),
		CrossSections:    viper.GetBool("outputs.crossSections"),
		ToeBoundary:      viper.GetBool("outputs.toeBoundary"),
		Surfaces:         viper.GetBool("outputs.surfaces"),
		Volumes:          viper.GetBool("outputs.volumes"),
		Dir:              viper.GetString("outputs.dir"),
	}
}

// GetDetectorConfig assembles the detector block.
func GetDetectorConfig() DetectorConfig {
	return DetectorConfig{
		Window:           viper.GetInt("detector.window"),
		CrestThreshold:   viper.GetFloat64("detector.crestThreshold"),
		FlattenThreshold: viper.GetFloat64("detector.flattenThreshold"),
		DropRatio:        viper.GetFloat64("detector.dropRatio"),
		ToeRatios:        toeRatios(),
	}
}

// toeRatios reads the ratio list. JSON numbers decode as float64; the
// default is registered as []float64 directly.
func toeRatios() []float64 {
	switch v := viper.Get("detector.toeRatios").(type) {
	case []float64:
		return v
	case []any:
		out := make([]float64, 0, len(v))
		for _, e := range v {
			switch n := e.(type) {
			case float64:
				out = append(out, n)
			case int:
				out = append(out, float64(n))
			}
		}
		return out
	default:
		return nil
	}
}

// Snapshot returns the effective configuration with credentials
// redacted, for persisting alongside a run.
func Snapshot() map[string]any {
	s := viper.AllSettings()
	for _, block := range []string{"db", "api", "influx"} {
		m, ok := s[block].(map[string]any)
		if !ok {
			continue
		}
		for _, k := range []string{"password", "token", "apikey"} {
			if _, ok := m[k]; ok {
				m[k] = "redacted"
			}
		}
	}
	return s
}
