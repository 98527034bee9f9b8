package utils

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppPaths holds the per-OS directories the node writes to: configuration,
// rotating logs, and persistent data (job index + workspaces).
type AppPaths struct {
	ConfigDir string
	LogDir    string
	DataDir   string
}

// GetAppPaths resolves the standard directories for appName, creating them
// on first call. On linux the XDG base-directory variables are honored,
// which is also how tests isolate themselves.
func GetAppPaths(appName string) *AppPaths {
	if appName == "" {
		appName = "design-node"
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		if homeDir, err = os.Getwd(); err != nil {
			homeDir = "."
		}
	}

	var paths AppPaths
	switch runtime.GOOS {
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			appData = filepath.Join(homeDir, "AppData", "Roaming")
		}
		base := filepath.Join(appData, appName)
		paths = AppPaths{ConfigDir: base, LogDir: base, DataDir: base}

	case "darwin":
		base := filepath.Join(homeDir, "Library", "Application Support", appName)
		paths = AppPaths{
			ConfigDir: base,
			LogDir:    filepath.Join(homeDir, "Library", "Logs", appName),
			DataDir:   base,
		}

	case "linux":
		paths = AppPaths{
			ConfigDir: filepath.Join(xdgDir("XDG_CONFIG_HOME", homeDir, ".config"), appName),
			LogDir:    filepath.Join(xdgDir("XDG_CACHE_HOME", homeDir, ".cache"), appName, "logs"),
			DataDir:   filepath.Join(xdgDir("XDG_DATA_HOME", homeDir, ".local", "share"), appName),
		}

	default:
		base := filepath.Join(homeDir, "."+appName)
		paths = AppPaths{ConfigDir: base, LogDir: base, DataDir: base}
	}

	for _, dir := range []string{paths.ConfigDir, paths.LogDir, paths.DataDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			// unusable home, run out of the working directory instead
			return &AppPaths{ConfigDir: ".", LogDir: ".", DataDir: "."}
		}
	}

	return &paths
}

// xdgDir returns the value of an XDG environment variable, or its
// conventional default under the home directory
func xdgDir(envVar, homeDir string, defaultParts ...string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return filepath.Join(append([]string{homeDir}, defaultParts...)...)
}

// ResolveDataPath makes a possibly-relative configured path absolute by
// anchoring it at the app data directory. Absolute paths pass through.
func (ap *AppPaths) ResolveDataPath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(ap.DataDir, path)
}
