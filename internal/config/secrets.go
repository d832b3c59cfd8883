// Loads API credentials.

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Key names, shared by the keys file, .env and the environment.
const (
	KeyNotionSecret  = "NOTION_SECRET_KEY"
	KeyNewDatabaseID = "NOTION_NEW_DATABASE_ID"
	KeyOldDatabaseID = "NOTION_OLD_DATABASE_ID"
	KeyGoogleAPIKey  = "GOOGLE_API_KEY"
)

// DefaultKeysPath is where the keys file is looked up by default.
const DefaultKeysPath = "~/.secret/keys.json"

// Secrets holds API credentials.
type Secrets struct {
	NotionToken   string
	NewDatabaseID string
	OldDatabaseID string
	// GoogleAPIKey is optional; Google Books allows unauthenticated queries.
	GoogleAPIKey string
}

// LoadSecrets reads credentials from the JSON keys file at keysPath, then the
// .env file at envPath, then the environment. Later sources win. Missing files
// are skipped; empty paths are not read.
func LoadSecrets(keysPath, envPath string) (*Secrets, error) {
	values := map[string]string{}
	if keysPath != "" {
		p, err := expandHome(keysPath)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(p) //nolint:gosec // G304: path is a CLI flag
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read keys file: %w", err)
		}
		if err == nil {
			if err := json.Unmarshal(data, &values); err != nil {
				return nil, fmt.Errorf("failed to parse keys file %s: %w", p, err)
			}
		}
	}
	if envPath != "" {
		env, err := godotenv.Read(envPath)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read %s: %w", envPath, err)
		}
		for k, v := range env {
			values[k] = v
		}
	}
	for _, k := range []string{KeyNotionSecret, KeyNewDatabaseID, KeyOldDatabaseID, KeyGoogleAPIKey} {
		if v, ok := os.LookupEnv(k); ok && v != "" {
			values[k] = v
		}
	}
	s := &Secrets{
		NotionToken:   values[KeyNotionSecret],
		NewDatabaseID: values[KeyNewDatabaseID],
		OldDatabaseID: values[KeyOldDatabaseID],
		GoogleAPIKey:  values[KeyGoogleAPIKey],
	}
	if s.NotionToken == "" {
		return nil, configError(KeyNotionSecret, errors.New("is required"))
	}
	return s, nil
}

func expandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to expand %s: %w", p, err)
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}
