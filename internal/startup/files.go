package startup

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"synothumb/internal/logging"
)

// DefaultEnvFile is loaded when present and no other dotenv file is given.
const DefaultEnvFile = ".env"

// FileConfig is the YAML configuration file layout. Every key maps to one
// environment variable.
type FileConfig struct {
	Workers      int     `yaml:"workers"`
	Backend      string  `yaml:"backend"`
	LogDir       string  `yaml:"log_dir"`
	LogLevel     string  `yaml:"log_level"`
	MetricsAddr  string  `yaml:"metrics_addr"`
	FFmpegPath   string  `yaml:"ffmpeg_path"`
	FFprobePath  string  `yaml:"ffprobe_path"`
	ExiftoolPath string  `yaml:"exiftool_path"`
	MinFreeSpace int64   `yaml:"min_free_space"`
	MemoryLimit  int64   `yaml:"memory_limit"`
	MemoryRatio  float64 `yaml:"memory_ratio"`
}

// env returns the environment variables the file sets.
func (f FileConfig) env() map[string]string {
	vars := make(map[string]string)
	set := func(key, value string) {
		if value != "" {
			vars[key] = value
		}
	}
	if f.Workers > 0 {
		set("THUMBNAIL_WORKERS", strconv.Itoa(f.Workers))
	}
	set("THUMBNAIL_BACKEND", f.Backend)
	set("LOG_DIR", f.LogDir)
	set("LOG_LEVEL", f.LogLevel)
	set("METRICS_ADDR", f.MetricsAddr)
	set("FFMPEG_PATH", f.FFmpegPath)
	set("FFPROBE_PATH", f.FFprobePath)
	set("EXIFTOOL_PATH", f.ExiftoolPath)
	if f.MinFreeSpace > 0 {
		set("MIN_FREE_SPACE", strconv.FormatInt(f.MinFreeSpace, 10))
	}
	if f.MemoryLimit > 0 {
		set("MEMORY_LIMIT", strconv.FormatInt(f.MemoryLimit, 10))
	}
	if f.MemoryRatio > 0 {
		set("MEMORY_RATIO", strconv.FormatFloat(f.MemoryRatio, 'f', -1, 64))
	}
	return vars
}

// LoadFiles seeds unset environment variables from a dotenv file and then a
// YAML file. An empty envFile loads DefaultEnvFile if it exists; an empty
// yamlFile is skipped. It returns the names of the files it read.
func LoadFiles(envFile, yamlFile string) ([]string, error) {
	var loaded []string

	switch {
	case envFile != "":
		if err := godotenv.Load(envFile); err != nil {
			return loaded, fmt.Errorf("load env file %s: %w", envFile, err)
		}
		loaded = append(loaded, envFile)
	default:
		if _, err := os.Stat(DefaultEnvFile); err == nil {
			if err := godotenv.Load(DefaultEnvFile); err != nil {
				return loaded, fmt.Errorf("load env file %s: %w", DefaultEnvFile, err)
			}
			loaded = append(loaded, DefaultEnvFile)
		}
	}

	if yamlFile != "" {
		cfg, err := ReadFileConfig(yamlFile)
		if err != nil {
			return loaded, err
		}
		applied := 0
		for key, value := range cfg.env() {
			if _, ok := os.LookupEnv(key); ok {
				continue
			}
			if err := os.Setenv(key, value); err != nil {
				return loaded, fmt.Errorf("set %s: %w", key, err)
			}
			applied++
		}
		logging.Debug("Applied %d settings from %s", applied, yamlFile)
		loaded = append(loaded, yamlFile)
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		logging.SetLevel(logging.ParseLevel(level))
	}
	return loaded, nil
}

// ReadFileConfig parses a YAML configuration file. Unknown keys are
// rejected.
func ReadFileConfig(path string) (*FileConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config file %s does not exist", path)
		}
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.Warn("failed to close %s: %v", path, err)
		}
	}()

	var cfg FileConfig
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return &cfg, nil
}
