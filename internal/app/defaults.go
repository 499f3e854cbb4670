package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Defaults holds the paths used when no config overrides them.
type Defaults struct {
	ConfigPath string // TOML config file
	BaseDir    string // root for the database, blobs and logs
	LogDir     string
	EnvFile    string // optional dotenv file with secrets such as OPENAI_API_KEY
}

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - DRIVE_CONFIG_PATH: config file location (default: ~/.config/drive.toml)
//   - DRIVE_HOME: base directory for drive data (default: ~/.local/share/drive)
//   - DRIVE_ENV_FILE: dotenv file (default: drive.env next to the config file)
func GetDefaults() (*Defaults, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	envFile := os.Getenv("DRIVE_ENV_FILE")
	if envFile == "" {
		envFile = filepath.Join(filepath.Dir(configPath), "drive.env")
	}

	return &Defaults{
		ConfigPath: configPath,
		BaseDir:    baseDir,
		LogDir:     filepath.Join(baseDir, "log"),
		EnvFile:    envFile,
	}, nil
}

func getConfigPath() (string, error) {
	if path := os.Getenv("DRIVE_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "drive.toml"), nil
}

func getBaseDir() (string, error) {
	if path := os.Getenv("DRIVE_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "drive"), nil
}
