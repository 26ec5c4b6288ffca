// cmd/preflight/main.go
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/hamed0406/sitemonitor/internal/config"
)

func main() {
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			fail(".env could not be parsed: " + err.Error())
		}
		warn(".env not found; using process environment only.")
	} else {
		ok(".env loaded")
	}

	env := config.FromEnv()

	// Log directory must be creatable and writable.
	if err := os.MkdirAll(env.LogDir, 0o755); err != nil {
		fail("LOG_DIR " + env.LogDir + " cannot be created: " + err.Error())
	}
	probe := filepath.Join(env.LogDir, ".preflight")
	if err := os.WriteFile(probe, []byte("ok"), 0o600); err != nil {
		fail("LOG_DIR " + env.LogDir + " is not writable: " + err.Error())
	}
	_ = os.Remove(probe)
	ok("LOG_DIR=" + env.LogDir)

	if raw := strings.TrimSpace(os.Getenv("LOG_LEVEL")); raw != "" && raw != env.LogLevel {
		warn("LOG_LEVEL normalized to " + env.LogLevel)
	}
	switch env.LogLevel {
	case "debug", "info", "warn", "error":
		ok("LOG_LEVEL=" + env.LogLevel)
	default:
		warn("LOG_LEVEL " + env.LogLevel + " is unknown; info will be used.")
	}

	if env.StatusAddr == "" {
		warn("STATUS_ADDR is empty; the status server (/healthz, /status, /metrics) is disabled.")
		ok("preflight passed")
		return
	}
	if _, _, err := net.SplitHostPort(env.StatusAddr); err != nil {
		fail("STATUS_ADDR " + env.StatusAddr + " is not host:port: " + err.Error())
	}
	ok("STATUS_ADDR=" + env.StatusAddr)

	keys := os.Getenv("STATUS_API_KEYS")
	if len(env.StatusAPIKeys) == 0 {
		warn("STATUS_API_KEYS is empty; /status and /metrics are open to anyone who can reach STATUS_ADDR.")
	} else if strings.Contains(keys, " ") {
		warn("STATUS_API_KEYS contains spaces; use comma-separated with no spaces, e.g. key1,key2")
	} else {
		ok(fmt.Sprintf("STATUS_API_KEYS has %d key(s)", len(env.StatusAPIKeys)))
	}

	if env.StatusRPM == 0 {
		warn("STATUS_RPM=0; status server rate limiting is disabled.")
	} else {
		ok(fmt.Sprintf("status rate limit %d/min, burst %d", env.StatusRPM, env.StatusBurst))
	}

	ok("preflight passed")
}
