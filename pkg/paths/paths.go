// Package paths resolves the per-user directories mdattach writes to.
package paths

import (
	"os"
	"path/filepath"
)

const appName = "mdattach"

// GetConfigDir returns ~/.config/mdattach, or a directory under the system
// temp dir when the home directory is unknown.
func GetConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Clean(filepath.Join(os.TempDir(), "."+appName+"-config"))
	}
	return filepath.Clean(filepath.Join(homeDir, ".config", appName))
}

// GetDataDir returns ~/.mdattach, where uploads, the catalog and logs live.
func GetDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Clean(filepath.Join(os.TempDir(), "."+appName))
	}
	return filepath.Clean(filepath.Join(homeDir, "."+appName))
}

// GetStoreDir is where the local upload backend keeps attachment bytes.
func GetStoreDir() string {
	return filepath.Join(GetDataDir(), "attachments")
}

// GetCatalogPath is the SQLite database recording every stored attachment.
func GetCatalogPath() string {
	return filepath.Join(GetDataDir(), "catalog.db")
}

// GetLogPath is the default --log-file target.
func GetLogPath() string {
	return filepath.Join(GetDataDir(), appName+".debug.log")
}
