package startup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"synothumb/internal/logging"
	"synothumb/internal/memory"
	"synothumb/internal/pipeline"
	"synothumb/internal/workers"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// DefaultMinFreeBytes is the free space required on the media volume.
const DefaultMinFreeBytes = 32 << 20

// Config holds the settings of one run.
type Config struct {
	MediaDir     string
	LogDir       string
	Workers      int
	Backend      string
	MetricsAddr  string
	FFmpegPath   string
	FFprobePath  string
	ExiftoolPath string
	MinFreeBytes uint64
	Progress     bool
}

// LoadConfig reads the configuration from the environment. Flags are applied
// by the caller afterwards.
func LoadConfig() *Config {
	return &Config{
		LogDir:       getEnv("LOG_DIR", "logs"),
		Workers:      getEnvInt("THUMBNAIL_WORKERS", 0),
		Backend:      getEnv("THUMBNAIL_BACKEND", "imaging"),
		MetricsAddr:  getEnv("METRICS_ADDR", ""),
		FFmpegPath:   getEnv("FFMPEG_PATH", "ffmpeg"),
		FFprobePath:  getEnv("FFPROBE_PATH", "ffprobe"),
		ExiftoolPath: getEnv("EXIFTOOL_PATH", ""),
		MinFreeBytes: uint64(getEnvInt("MIN_FREE_SPACE", DefaultMinFreeBytes)),
		Progress:     true,
	}
}

// ResolveMediaDir makes the media directory absolute.
func (c *Config) ResolveMediaDir(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve media directory path: %w", err)
	}
	c.MediaDir = abs
	return nil
}

// LogConfig writes the banner, system information and configuration blocks
// to the run log.
func LogConfig(c *Config, runLog string) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Media directory:   %s", c.MediaDir)
	logging.Info("  Run log:           %s", runLog)
	logging.Info("  Workers:           %d", workers.Resolve(c.Workers, workers.DefaultLimit))
	logging.Info("  Image backend:     %s", c.Backend)
	logging.Info("  ffmpeg:            %s", c.FFmpegPath)
	logging.Info("  ffprobe:           %s", c.FFprobePath)
	logging.Info("  exiftool:          %s", orDefault(c.ExiftoolPath, "(PATH)"))
	logging.Info("  Min free space:    %s", memory.FormatBytes(int64(c.MinFreeBytes)))
	logging.Info("  Status server:     %s", orDefault(c.MetricsAddr, "DISABLED"))
	logging.Info("  LOG_LEVEL:         %s", logging.GetLevel())
	logging.Info("")
}

// LogMemoryConfig logs the outcome of memory.ConfigureFromEnv.
func LogMemoryConfig(r memory.ConfigResult) {
	if !r.Configured {
		logging.Info("  Memory limit:      not configured")
		return
	}
	switch r.Source {
	case "GOMEMLIMIT":
		logging.Info("  Memory limit:      %s (GOMEMLIMIT)", memory.FormatBytes(r.GoMemLimit))
	default:
		logging.Info("  Memory limit:      %s (%.0f%% of %s from %s)",
			memory.FormatBytes(r.GoMemLimit), r.Ratio*100, memory.FormatBytes(r.BudgetBytes), r.Source)
	}
}

// PrintSummary writes the end-of-run counts to out and the log.
func PrintSummary(out io.Writer, s pipeline.Summary, failures []pipeline.Outcome, runLog string) {
	lines := []string{
		"",
		"------------------------------------------------------------",
		"RUN SUMMARY",
		"------------------------------------------------------------",
		fmt.Sprintf("  Run id:          %s", s.RunID),
		fmt.Sprintf("  Discovered:      %d (%d unsupported ignored)", s.Discovered, s.Unsupported),
		fmt.Sprintf("  Generated:       %d", s.Success),
		fmt.Sprintf("  Already done:    %d", s.Skipped),
		fmt.Sprintf("  Failed:          %d", s.Failed),
	}
	if s.NotDispatched > 0 {
		lines = append(lines, fmt.Sprintf("  Not started:     %d", s.NotDispatched))
	}
	lines = append(lines, fmt.Sprintf("  Duration:        %v", s.Duration.Round(time.Millisecond)))
	if s.Interrupted {
		lines = append(lines, "  Run was interrupted.")
	}
	if len(failures) > 0 {
		byClass := make(map[pipeline.Class]int)
		for _, f := range failures {
			byClass[pipeline.ClassOf(f.Err)]++
		}
		for c := pipeline.ClassUnclassified; c <= pipeline.ClassDiskFull; c++ {
			if n := byClass[c]; n > 0 {
				lines = append(lines, fmt.Sprintf("    %-14s %d", c.String()+":", n))
			}
		}
		lines = append(lines, fmt.Sprintf("  Details of each failure are in %s", runLog))
	}

	for _, line := range lines {
		if _, err := fmt.Fprintln(out, line); err != nil {
			logging.Debug("failed to print summary: %v", err)
		}
		logging.Info("%s", line)
	}
}

// LogShutdownInitiated logs receipt of an interrupt.
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// Helper functions

func printBanner() {
	banner := `
------------------------------------------------------------
                         __  __                    __
   _______  ______  ____/ /_/ /_  __  ______ ___  / /_
  / ___/ / / / __ \/ __ \ __/ __ \/ / / / __ '__ \/ __ \
 (__  ) /_/ / / / / /_/ / /_/ / / / /_/ / / / / / / /_/ /
/____/\__, /_/ /_/\____/\__/_/ /_/\__,_/_/ /_/ /_/_.___/
     /____/
------------------------------------------------------------`
	logging.Printf("%s", banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if ratio, err := (memory.Host{}).MemoryUsedRatio(); err == nil {
		logging.Info("  Host memory use: %.0f%%", ratio*100)
	}

	if logging.IsDebugEnabled() {
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		logging.Warn("Invalid value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
