package startup

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"synothumb/internal/filesystem"
	"synothumb/internal/mediatypes"
	"synothumb/internal/memory"
	"synothumb/internal/pipeline"
	"synothumb/internal/transcoder"
)

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()

	if info.Version == "" {
		t.Error("Expected Version to be set")
	}
	if info.OS == "" || info.Arch == "" {
		t.Error("Expected OS and Arch to be set")
	}
	if info.GoVersion != GoVersion {
		t.Errorf("Expected GoVersion=%s, got %s", GoVersion, info.GoVersion)
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("SYNOTHUMB_TEST_SET", "custom")
	t.Setenv("SYNOTHUMB_TEST_EMPTY", "")

	if got := getEnv("SYNOTHUMB_TEST_SET", "default"); got != "custom" {
		t.Errorf("getEnv(set) = %q, want custom", got)
	}
	if got := getEnv("SYNOTHUMB_TEST_EMPTY", "default"); got != "default" {
		t.Errorf("getEnv(empty) = %q, want default", got)
	}
	if got := getEnv("SYNOTHUMB_TEST_UNSET_XYZ", "default"); got != "default" {
		t.Errorf("getEnv(unset) = %q, want default", got)
	}
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  int
	}{
		{"valid", "8", 8},
		{"zero", "0", 0},
		{"negative", "-2", 4},
		{"garbage", "many", 4},
		{"empty", "", 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SYNOTHUMB_TEST_INT", tt.value)
			if got := getEnvInt("SYNOTHUMB_TEST_INT", 4); got != tt.want {
				t.Errorf("getEnvInt(%q) = %d, want %d", tt.value, got, tt.want)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("THUMBNAIL_WORKERS", "6")
	t.Setenv("THUMBNAIL_BACKEND", "vips")
	t.Setenv("LOG_DIR", "/var/log/synothumb")
	t.Setenv("METRICS_ADDR", ":9100")
	t.Setenv("FFMPEG_PATH", "/opt/ffmpeg")
	t.Setenv("FFPROBE_PATH", "")
	t.Setenv("EXIFTOOL_PATH", "/opt/exiftool")
	t.Setenv("MIN_FREE_SPACE", "1024")

	cfg := LoadConfig()
	if cfg.Workers != 6 || cfg.Backend != "vips" || cfg.LogDir != "/var/log/synothumb" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.MetricsAddr != ":9100" || cfg.FFmpegPath != "/opt/ffmpeg" || cfg.ExiftoolPath != "/opt/exiftool" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.FFprobePath != "ffprobe" {
		t.Errorf("FFprobePath = %q, want default", cfg.FFprobePath)
	}
	if cfg.MinFreeBytes != 1024 {
		t.Errorf("MinFreeBytes = %d, want 1024", cfg.MinFreeBytes)
	}
	if !cfg.Progress {
		t.Error("Progress should default to true")
	}
}

func TestResolveMediaDir(t *testing.T) {
	cfg := LoadConfig()
	if err := cfg.ResolveMediaDir("photos"); err != nil {
		t.Fatalf("ResolveMediaDir() error = %v", err)
	}
	if !filepath.IsAbs(cfg.MediaDir) || filepath.Base(cfg.MediaDir) != "photos" {
		t.Errorf("MediaDir = %q", cfg.MediaDir)
	}
}

func TestLoadFilesPrecedence(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "synothumb.env")
	yamlFile := filepath.Join(dir, "synothumb.yaml")

	if err := os.WriteFile(envFile, []byte("THUMBNAIL_BACKEND=vips\nLOG_DIR=/from/env-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	yamlData := strings.Join([]string{
		"workers: 3",
		"backend: imaging",
		"log_dir: /from/yaml",
		"metrics_addr: 127.0.0.1:9999",
		"memory_ratio: 0.5",
	}, "\n")
	if err := os.WriteFile(yamlFile, []byte(yamlData), 0o644); err != nil {
		t.Fatal(err)
	}

	// Registered with t.Setenv so they are restored, then cleared so the
	// loaders see them as unset.
	for _, key := range []string{"THUMBNAIL_BACKEND", "LOG_DIR", "THUMBNAIL_WORKERS", "MEMORY_RATIO"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Setenv("METRICS_ADDR", ":1234")

	loaded, err := LoadFiles(envFile, yamlFile)
	if err != nil {
		t.Fatalf("LoadFiles() error = %v", err)
	}
	if len(loaded) != 2 {
		t.Errorf("loaded = %v, want both files", loaded)
	}

	want := map[string]string{
		"THUMBNAIL_BACKEND": "vips",
		"LOG_DIR":           "/from/env-file",
		"THUMBNAIL_WORKERS": "3",
		"METRICS_ADDR":      ":1234",
		"MEMORY_RATIO":      "0.5",
	}
	for key, value := range want {
		if got := os.Getenv(key); got != value {
			t.Errorf("%s = %q, want %q", key, got, value)
		}
	}
}

func TestLoadFilesMissing(t *testing.T) {
	if _, err := LoadFiles(filepath.Join(t.TempDir(), "missing.env"), ""); err == nil {
		t.Error("LoadFiles() with a missing env file should fail")
	}
	if _, err := LoadFiles("", filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadFiles() with a missing YAML file should fail")
	}
}

func TestReadFileConfig(t *testing.T) {
	dir := t.TempDir()

	empty := filepath.Join(dir, "empty.yaml")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := ReadFileConfig(empty)
	if err != nil {
		t.Fatalf("ReadFileConfig(empty) error = %v", err)
	}
	if len(cfg.env()) != 0 {
		t.Errorf("empty file set %v", cfg.env())
	}

	unknown := filepath.Join(dir, "unknown.yaml")
	if err := os.WriteFile(unknown, []byte("wrokers: 4\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadFileConfig(unknown); err == nil {
		t.Error("ReadFileConfig() should reject unknown keys")
	}
}

type fakeVideo struct {
	available error
	ffmpeg    error
}

func (f fakeVideo) CheckAvailable() error { return f.available }
func (f fakeVideo) CheckFFmpeg() error    { return f.ffmpeg }

type fakeRaw struct{ err error }

func (f fakeRaw) CheckAvailable() error { return f.err }

type fakeDisk struct {
	free uint64
	err  error
}

func (f fakeDisk) DiskFreeBytes(string) (uint64, error) { return f.free, f.err }

func TestPreflight(t *testing.T) {
	missing := errors.New("not found")
	plenty := fakeDisk{free: 1 << 30}

	tests := []struct {
		name    string
		cfg     PreflightConfig
		pending map[mediatypes.MediaKind]int
		wantErr error
	}{
		{
			name:    "images only need nothing",
			cfg:     PreflightConfig{Disk: plenty, Video: fakeVideo{available: missing, ffmpeg: missing}},
			pending: map[mediatypes.MediaKind]int{mediatypes.KindImage: 3},
		},
		{
			name:    "videos need ffmpeg",
			cfg:     PreflightConfig{Disk: plenty, Video: fakeVideo{available: transcoder.ErrToolMissing}},
			pending: map[mediatypes.MediaKind]int{mediatypes.KindVideo: 1},
			wantErr: transcoder.ErrToolMissing,
		},
		{
			name:    "videos with tools",
			cfg:     PreflightConfig{Disk: plenty, Video: fakeVideo{}},
			pending: map[mediatypes.MediaKind]int{mediatypes.KindVideo: 1},
		},
		{
			name:    "raw with exiftool",
			cfg:     PreflightConfig{Disk: plenty, Raw: fakeRaw{}},
			pending: map[mediatypes.MediaKind]int{mediatypes.KindRaw: 1},
		},
		{
			name:    "raw falls back to ffmpeg",
			cfg:     PreflightConfig{Disk: plenty, Raw: fakeRaw{err: missing}, Video: fakeVideo{}},
			pending: map[mediatypes.MediaKind]int{mediatypes.KindRaw: 1},
		},
		{
			name:    "raw without any decoder",
			cfg:     PreflightConfig{Disk: plenty, Raw: fakeRaw{err: missing}, Video: fakeVideo{ffmpeg: missing}},
			pending: map[mediatypes.MediaKind]int{mediatypes.KindRaw: 1},
			wantErr: missing,
		},
		{
			name:    "disk nearly full",
			cfg:     PreflightConfig{Disk: fakeDisk{free: 10}, MinFreeBytes: 1024},
			pending: map[mediatypes.MediaKind]int{mediatypes.KindImage: 1},
			wantErr: filesystem.ErrNoSpace,
		},
		{
			name:    "unknown free space is not fatal",
			cfg:     PreflightConfig{Disk: fakeDisk{err: missing}, MinFreeBytes: 1024},
			pending: map[mediatypes.MediaKind]int{mediatypes.KindImage: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Preflight(tt.cfg)(tt.pending)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Preflight() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Preflight() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPrintSummary(t *testing.T) {
	var out bytes.Buffer
	PrintSummary(&out, pipeline.Summary{
		RunID:         "run-1",
		Discovered:    4,
		Success:       2,
		Failed:        1,
		NotDispatched: 1,
		Interrupted:   true,
		Duration:      time.Second,
	}, []pipeline.Outcome{{
		Path: "x.jpg",
		Err:  &pipeline.FileError{Class: pipeline.ClassDecode, Err: errors.New("bad")},
	}}, "logs/run.log")

	got := out.String()
	for _, want := range []string{
		"RUN SUMMARY",
		"Run id:          run-1",
		"Generated:       2",
		"Failed:          1",
		"Not started:     1",
		"Run was interrupted.",
		"decode:",
		"logs/run.log",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("summary missing %q:\n%s", want, got)
		}
	}
}

func TestPrintSummaryClean(t *testing.T) {
	var out bytes.Buffer
	PrintSummary(&out, pipeline.Summary{RunID: "run-2", Skipped: 3}, nil, "logs/run.log")

	got := out.String()
	if !strings.Contains(got, "Already done:    3") {
		t.Errorf("summary missing skipped count:\n%s", got)
	}
	for _, unwanted := range []string{"Not started", "interrupted", "logs/run.log"} {
		if strings.Contains(got, unwanted) {
			t.Errorf("summary should not mention %q:\n%s", unwanted, got)
		}
	}
}

func TestLogMemoryConfig(_ *testing.T) {
	LogMemoryConfig(memory.ConfigResult{})
	LogMemoryConfig(memory.ConfigResult{Configured: true, Source: "GOMEMLIMIT", GoMemLimit: 1 << 30})
	LogMemoryConfig(memory.ConfigResult{Configured: true, Source: "host", GoMemLimit: 1 << 30, BudgetBytes: 2 << 30, Ratio: 0.5})
}

func TestLogConfig(_ *testing.T) {
	LogConfig(LoadConfig(), "logs/run.log")
}
