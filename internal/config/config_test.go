package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestExpandHome_TildeOnly(t *testing.T) {
	home := expandHome("~")
	if home == "" {
		t.Fatalf("expected non-empty home")
	}
}

func TestExpandHome_TildeSlash(t *testing.T) {
	got := expandHome("~/.oriphim/logs")
	if strings.Contains(got, "~") {
		t.Fatalf("expected no ~ after expansion, got %q", got)
	}
	if !filepath.IsAbs(got) {
		t.Fatalf("expected absolute path after expansion, got %q", got)
	}
}

func TestResolvePath_RelativeAgainstBaseDir(t *testing.T) {
	base := "/tmp/runnerhost-config-dir"
	got := resolvePath("logs", base)
	want := filepath.Clean(filepath.Join(base, "logs"))
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestResolvePath_AbsoluteUnchanged(t *testing.T) {
	abs := "/var/log/runnerhost"
	got := resolvePath(abs, "/tmp/whatever")
	if got != abs {
		t.Fatalf("expected %q, got %q", abs, got)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Worker.Command != "python" || len(cfg.Worker.Args) != 1 || cfg.Worker.Args[0] != "main.py" {
		t.Fatalf("unexpected worker command: %s %v", cfg.Worker.Command, cfg.Worker.Args)
	}
	if cfg.Worker.WorkDir != "src" {
		t.Fatalf("expected work dir src, got %q", cfg.Worker.WorkDir)
	}
	if !strings.HasSuffix(cfg.Host.LogsDir, filepath.Join(".oriphim", "logs")) {
		t.Fatalf("expected logs dir under .oriphim/logs, got %q", cfg.Host.LogsDir)
	}
	if cfg.Host.AutoStartDelay.Std() != 2*time.Second {
		t.Fatalf("expected 2s autostart delay, got %v", cfg.Host.AutoStartDelay.Std())
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoad_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "runner.yaml")
	content := `
server:
  port: 9100
worker:
  command: python3
  args: ["bot.py", "--paper"]
  work_dir: bots
  log_file: worker.log
host:
  logs_dir: logs
  auto_start_delay: 500ms
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9100 || cfg.Server.Host != "127.0.0.1" {
		t.Fatalf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Worker.Command != "python3" || len(cfg.Worker.Args) != 2 {
		t.Fatalf("unexpected worker config: %+v", cfg.Worker)
	}
	if cfg.Worker.WorkDir != "bots" {
		t.Fatalf("expected relative work dir kept, got %q", cfg.Worker.WorkDir)
	}
	if cfg.Worker.LogFile != filepath.Join(dir, "worker.log") {
		t.Fatalf("expected log file resolved against config dir, got %q", cfg.Worker.LogFile)
	}
	if cfg.Host.LogsDir != filepath.Join(dir, "logs") {
		t.Fatalf("expected logs dir resolved against config dir, got %q", cfg.Host.LogsDir)
	}
	if cfg.Host.AutoStartDelay.Std() != 500*time.Millisecond {
		t.Fatalf("expected 500ms delay, got %v", cfg.Host.AutoStartDelay.Std())
	}
}

func TestLoad_TOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "runner.toml")
	content := `
[worker]
command = "node"
args = ["index.js"]

[host]
auto_start = false
auto_start_delay = "3s"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Worker.Command != "node" || cfg.Worker.Args[0] != "index.js" {
		t.Fatalf("unexpected worker config: %+v", cfg.Worker)
	}
	if cfg.Host.AutoStart {
		t.Fatalf("expected auto_start disabled")
	}
	if cfg.Host.AutoStartDelay.Std() != 3*time.Second {
		t.Fatalf("expected 3s delay, got %v", cfg.Host.AutoStartDelay.Std())
	}
}

func TestLoad_RejectsEmptyCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "runner.json")
	if err := os.WriteFile(path, []byte(`{"worker":{"command":"  "}}`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Worker.Command != "python" {
		t.Fatalf("expected defaults, got %+v", cfg.Worker)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	for _, name := range []string{"out.yaml", "out.toml", "out.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			cfg := DefaultConfig()
			cfg.Server.Port = 9200
			cfg.Worker.LogFile = "/var/log/worker.log"
			cfg.Host.LogsDir = "/var/log"
			if err := cfg.Save(path); err != nil {
				t.Fatalf("Save: %v", err)
			}
			loaded, err := Load(path)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if loaded.Server.Port != 9200 {
				t.Fatalf("expected port 9200, got %d", loaded.Server.Port)
			}
			if loaded.Host.AutoStartDelay != cfg.Host.AutoStartDelay {
				t.Fatalf("expected delay %v, got %v", cfg.Host.AutoStartDelay, loaded.Host.AutoStartDelay)
			}
		})
	}
}
