package config

import (
	"log"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Settings struct {
	ListenAddr     string   `envconfig:"LISTEN_ADDR" default:":8000"`
	DataPath       string   `envconfig:"DATA_PATH" default:"./data"`
	LogPath        string   `envconfig:"LOG_PATH" default:""`
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"*"`

	// Document storage
	StoreBackend  string `envconfig:"STORE_BACKEND" default:"file"`
	DatabasePath  string `envconfig:"DATABASE_PATH" default:""`
	EncryptionKey string `envconfig:"ENCRYPTION_KEY" default:""`
	SeedFile      string `envconfig:"SEED_FILE" default:""`

	// Relay settings
	ConnectTimeout   time.Duration `envconfig:"CONNECT_TIMEOUT" default:"15s"`
	SSHKnownHosts    string        `envconfig:"SSH_KNOWN_HOSTS" default:""`
	SessionRetention time.Duration `envconfig:"SESSION_RETENTION" default:"10m"`
}

var Cfg Settings

func Load() {
	if err := envconfig.Process("LEIZI", &Cfg); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if Cfg.DatabasePath == "" {
		Cfg.DatabasePath = filepath.Join(Cfg.DataPath, "leizi.db")
	}
}
