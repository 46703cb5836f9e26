package config

import (
	"os"
	"path/filepath"
)

// ClientConfig is read by the end-user CLI only.
type ClientConfig interface {
	GetAPIBaseURL() string
	GetSessionDBPath() string
}

type Client struct {
	APIBaseURL    string `env:"API_BASE_URL" envDefault:"http://localhost:8080"`
	SessionDBPath string `env:"SESSION_DB_PATH"`
}

var _ ClientConfig = Client{}

func (c Client) GetAPIBaseURL() string { return c.APIBaseURL }

// GetSessionDBPath defaults to a per-user file so sessions are scoped to the device user.
func (c Client) GetSessionDBPath() string {
	if c.SessionDBPath != "" {
		return c.SessionDBPath
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "newsfeed", "session.db")
}
