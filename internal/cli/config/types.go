// Package config provides configuration management for the netzero CLI.
package config

// Defaults applied before the config file, environment, and flags.
const (
	DefaultStoreURL  = "http://localhost:8000"
	DefaultExecURL   = "http://localhost:8000"
	DefaultStatePath = ".netzero/state.db"
	DefaultWatchDir  = "uploads"
	DefaultPort      = 8000
)

// Config holds all CLI configuration options.
type Config struct {
	// StoreURL is the base URL of the workflow store.
	StoreURL string `koanf:"store_url"`
	// ExecURL is the base URL of the query execution endpoint.
	ExecURL string `koanf:"exec_url"`
	// WorkflowID selects the workflow record to synchronize with. Zero
	// means no record: state lives only in the local cache.
	WorkflowID int `koanf:"workflow"`
	// Username scopes workflow listings.
	Username string `koanf:"username"`
	// StatePath is the local SQLite cache location.
	StatePath string `koanf:"state_path"`
	// WatchDir is the drop directory observed by the watch command.
	WatchDir string `koanf:"watch_dir"`
	// Port is the listen port of the embedded store server.
	Port int `koanf:"port"`
	// Verbose enables debug logging.
	Verbose bool `koanf:"verbose"`
}
