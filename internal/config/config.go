package config

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// DefaultAddr is fixed. There is intentionally no flag or environment override.
const DefaultAddr = ":8000"

const MemoryJournal = ":memory:"

type Config struct {
	Addr string
	Dir  string

	Name  string
	Hints []string

	OpenBrowser       bool
	Quiet             bool
	JournalPath       string
	JournalLimit      int
	ShutdownTimeout   time.Duration
	ReadHeaderTimeout time.Duration
}

func Default() Config {
	return Config{
		Addr: DefaultAddr,
		Dir:  ".",
		Name: "DreamMaps",
		Hints: []string{
			"📝 Make sure to configure Firebase in js/firebase-config.js",
			"📖 See FIREBASE_SETUP_TUTORIAL.md for setup instructions",
		},
		OpenBrowser:       true,
		JournalPath:       MemoryJournal,
		JournalLimit:      1000,
		ShutdownTimeout:   5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Load returns Default with the ambient settings overlaid from the environment
// and an optional .env file in the working directory.
func Load() Config {
	loadDotEnv(".env")
	cfg := Default()
	cfg.OpenBrowser = !getBool("DEVSERVE_NO_BROWSER", !cfg.OpenBrowser)
	cfg.Quiet = getBool("DEVSERVE_QUIET", cfg.Quiet)
	cfg.JournalPath = getEnv("DEVSERVE_JOURNAL_PATH", cfg.JournalPath)
	cfg.JournalLimit = getInt("DEVSERVE_JOURNAL_LIMIT", cfg.JournalLimit)
	cfg.ShutdownTimeout = getDuration("DEVSERVE_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	return cfg
}

func (c Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		return fmt.Errorf("invalid addr %q: %w", c.Addr, err)
	}
	info, err := os.Stat(c.Dir)
	if err != nil {
		return fmt.Errorf("serve dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("serve dir %s is not a directory", c.Dir)
	}
	if c.ShutdownTimeout < 0 {
		return fmt.Errorf("shutdown timeout must not be negative")
	}
	return nil
}

// Port returns the port part of Addr, or "" if Addr cannot be parsed.
func (c Config) Port() string {
	_, port, err := net.SplitHostPort(c.Addr)
	if err != nil {
		return ""
	}
	return port
}

// ProjectRoot returns the directory the server should serve from: the nearest
// ancestor of this source file that holds go.mod. Binaries built elsewhere
// fall back to the executable's directory, then to the working directory.
func ProjectRoot() (string, error) {
	if _, file, _, ok := runtime.Caller(0); ok {
		if root, ok := findModuleRoot(filepath.Dir(file)); ok {
			return root, nil
		}
	}
	if exe, err := os.Executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		if root, ok := findModuleRoot(filepath.Dir(exe)); ok {
			return root, nil
		}
	}
	return os.Getwd()
}

func findModuleRoot(dir string) (string, bool) {
	if !filepath.IsAbs(dir) {
		return "", false
	}
	for {
		if info, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil && !info.IsDir() {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func loadDotEnv(path string) {
	file, err := os.Open(path)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		value = strings.TrimSpace(value)
		value = strings.Trim(value, `"'`)
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		_ = os.Setenv(key, value)
	}
}
