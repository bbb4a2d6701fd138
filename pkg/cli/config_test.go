package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
)

func TestApplyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	body := `
log_level: debug
api_key: file-key
storage:
  backend: firestore
  project: my-project
  database: my-db
  bucket: my-bucket
`
	gt.NoError(t, os.WriteFile(path, []byte(body), 0600))

	cfg := config{logLevel: "info", storageBackend: "local"}
	gt.NoError(t, cfg.applyFile(path))

	gt.V(t, cfg.logLevel).Equal("debug")
	gt.V(t, cfg.geminiAPIKey).Equal("file-key")
	gt.V(t, cfg.storageBackend).Equal("firestore")
	gt.V(t, cfg.project).Equal("my-project")
	gt.V(t, cfg.database).Equal("my-db")
	gt.V(t, cfg.bucket).Equal("my-bucket")
}

func TestApplyFileFlagWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	gt.NoError(t, os.WriteFile(path, []byte("api_key: file-key\n"), 0600))

	cfg := config{geminiAPIKey: "flag-key"}
	gt.NoError(t, cfg.applyFile(path))
	gt.V(t, cfg.geminiAPIKey).Equal("flag-key")
}

func TestApplyFileMissing(t *testing.T) {
	cfg := config{}
	gt.Error(t, cfg.applyFile(filepath.Join(t.TempDir(), "nope.yml")))
}

func TestApplyFileMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	gt.NoError(t, os.WriteFile(path, []byte(":\n  - broken"), 0600))

	cfg := config{}
	gt.Error(t, cfg.applyFile(path))
}
