package cli

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"genstudio/pkg/adapter"
	"genstudio/pkg/repository"
	"genstudio/pkg/utils/logging"
)

// config holds configuration values shared by all commands
type config struct {
	configFile string
	logLevel   string

	geminiAPIKey string

	// Repository
	storageBackend string // "local" or "firestore"
	localPath      string
	project        string
	database       string
	bucket         string
}

// fileConfig mirrors the optional YAML config file
type fileConfig struct {
	LogLevel string `yaml:"log_level"`
	APIKey   string `yaml:"api_key"`
	Storage  struct {
		Backend  string `yaml:"backend"`
		Path     string `yaml:"path"`
		Project  string `yaml:"project"`
		Database string `yaml:"database"`
		Bucket   string `yaml:"bucket"`
	} `yaml:"storage"`
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to YAML config file",
			Sources:     cli.EnvVars("GENSTUDIO_CONFIG"),
			Destination: &cfg.configFile,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("GENSTUDIO_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "gemini-api-key",
			Usage:       "Gemini API key",
			Sources:     cli.EnvVars("GEMINI_API_KEY"),
			Destination: &cfg.geminiAPIKey,
		},
		&cli.StringFlag{
			Name:        "storage",
			Usage:       "History storage backend (local or firestore)",
			Value:       "local",
			Sources:     cli.EnvVars("GENSTUDIO_STORAGE"),
			Destination: &cfg.storageBackend,
		},
		&cli.StringFlag{
			Name:        "storage-path",
			Usage:       "Path to the local history file",
			Value:       defaultLocalPath(),
			Sources:     cli.EnvVars("GENSTUDIO_STORAGE_PATH"),
			Destination: &cfg.localPath,
		},
		&cli.StringFlag{
			Name:        "project",
			Aliases:     []string{"p"},
			Usage:       "Google Cloud project ID (firestore backend)",
			Sources:     cli.EnvVars("GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.project,
		},
		&cli.StringFlag{
			Name:        "database",
			Aliases:     []string{"d"},
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("FIRESTORE_DATABASE_ID"),
			Destination: &cfg.database,
		},
		&cli.StringFlag{
			Name:        "bucket",
			Usage:       "Cloud Storage bucket for history payloads (firestore backend)",
			Sources:     cli.EnvVars("GENSTUDIO_BUCKET"),
			Destination: &cfg.bucket,
		},
	}
}

func defaultLocalPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "genstudio.json"
	}
	return home + "/.config/genstudio/history.json"
}

// setup applies the config file and installs the logger. Flags and
// environment variables win over file values.
func (cfg *config) setup(ctx context.Context) (context.Context, error) {
	if cfg.configFile != "" {
		if err := cfg.applyFile(cfg.configFile); err != nil {
			return ctx, err
		}
	}

	logger := logging.New(cfg.logLevel, os.Stderr)
	logging.SetDefault(logger)
	return logging.With(ctx, logger), nil
}

func (cfg *config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return goerr.Wrap(err, "config file not found", goerr.V("path", path))
		}
		return goerr.Wrap(err, "failed to read config file")
	}

	var file fileConfig
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return goerr.Wrap(err, "failed to parse config file", goerr.V("path", path))
	}

	if cfg.geminiAPIKey == "" {
		cfg.geminiAPIKey = file.APIKey
	}
	if file.LogLevel != "" {
		cfg.logLevel = file.LogLevel
	}
	if file.Storage.Backend != "" {
		cfg.storageBackend = file.Storage.Backend
	}
	if file.Storage.Path != "" {
		cfg.localPath = file.Storage.Path
	}
	if cfg.project == "" {
		cfg.project = file.Storage.Project
	}
	if file.Storage.Database != "" {
		cfg.database = file.Storage.Database
	}
	if cfg.bucket == "" {
		cfg.bucket = file.Storage.Bucket
	}
	return nil
}

// newRepository creates the history store for the selected backend
func (cfg *config) newRepository(ctx context.Context) (repository.Repository, error) {
	switch cfg.storageBackend {
	case "local":
		repo, err := repository.NewLocal(cfg.localPath)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to open local history", goerr.V("path", cfg.localPath))
		}
		return repo, nil

	case "firestore":
		if cfg.project == "" {
			return nil, goerr.New("project is required for firestore storage")
		}
		if cfg.bucket == "" {
			return nil, goerr.New("bucket is required for firestore storage")
		}
		storage, err := adapter.NewStorage(ctx, cfg.bucket)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create storage")
		}
		repo, err := repository.NewFirestore(ctx, cfg.project, cfg.database, storage)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create firestore repository")
		}
		return repo, nil

	default:
		return nil, goerr.New("unknown storage backend", goerr.V("backend", cfg.storageBackend))
	}
}

// newGemini creates the Gemini adapter
func (cfg *config) newGemini(ctx context.Context) (adapter.Gemini, error) {
	if cfg.geminiAPIKey == "" {
		return nil, goerr.New("gemini-api-key is required")
	}
	return adapter.NewGemini(ctx, cfg.geminiAPIKey)
}

// newFetcher creates the artifact downloader
func (cfg *config) newFetcher() adapter.Fetcher {
	return adapter.NewFetcher(cfg.geminiAPIKey)
}
