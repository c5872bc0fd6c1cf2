package startup

import (
	"fmt"

	"synothumb/internal/filesystem"
	"synothumb/internal/logging"
	"synothumb/internal/mediatypes"
	"synothumb/internal/memory"
	"synothumb/internal/pipeline"
)

// VideoChecker verifies the video tools. transcoder.Tool satisfies it.
type VideoChecker interface {
	CheckAvailable() error
	CheckFFmpeg() error
}

// RawChecker verifies the RAW preview extractor. rawdecode.Decoder
// satisfies it.
type RawChecker interface {
	CheckAvailable() error
}

// DiskChecker reports free space. memory.Host satisfies it.
type DiskChecker interface {
	DiskFreeBytes(path string) (uint64, error)
}

// PreflightConfig lists what Preflight checks.
type PreflightConfig struct {
	MediaDir     string
	MinFreeBytes uint64
	Video        VideoChecker
	Raw          RawChecker
	Disk         DiskChecker
}

// Preflight returns a hook that checks the tools needed by the pending
// kinds and the free space on the media volume.
//
// Videos need ffmpeg and ffprobe. RAW files prefer exiftool but can be
// decoded by ffmpeg, so a missing exiftool is only fatal when ffmpeg is
// missing too.
func Preflight(cfg PreflightConfig) pipeline.PreflightFunc {
	if cfg.Disk == nil {
		cfg.Disk = memory.Host{}
	}

	return func(pending map[mediatypes.MediaKind]int) error {
		logging.Info("------------------------------------------------------------")
		logging.Info("PREFLIGHT")
		logging.Info("------------------------------------------------------------")

		if pending[mediatypes.KindVideo] > 0 {
			if cfg.Video == nil {
				return fmt.Errorf("%d videos pending but no video tool configured", pending[mediatypes.KindVideo])
			}
			if err := cfg.Video.CheckAvailable(); err != nil {
				logging.Error("Video tools unavailable: %v", err)
				return err
			}
			logging.Info("  [OK] ffmpeg and ffprobe are available")
		}

		if pending[mediatypes.KindRaw] > 0 {
			if err := checkRaw(cfg); err != nil {
				return err
			}
		}

		free, err := cfg.Disk.DiskFreeBytes(cfg.MediaDir)
		if err != nil {
			logging.Warn("  Could not determine free space on %s: %v", cfg.MediaDir, err)
			return nil
		}
		if free < cfg.MinFreeBytes {
			logging.Error("Only %s free on %s, need %s", memory.FormatBytes(int64(free)), cfg.MediaDir, memory.FormatBytes(int64(cfg.MinFreeBytes)))
			return fmt.Errorf("%w: %s free on %s", filesystem.ErrNoSpace, memory.FormatBytes(int64(free)), cfg.MediaDir)
		}
		logging.Info("  [OK] %s free on media volume", memory.FormatBytes(int64(free)))
		return nil
	}
}

func checkRaw(cfg PreflightConfig) error {
	var rawErr error
	if cfg.Raw != nil {
		rawErr = cfg.Raw.CheckAvailable()
		if rawErr == nil {
			logging.Info("  [OK] exiftool is available")
			return nil
		}
	} else {
		rawErr = fmt.Errorf("no RAW decoder configured")
	}

	if cfg.Video != nil {
		if err := cfg.Video.CheckFFmpeg(); err == nil {
			logging.Warn("  exiftool unavailable (%v), RAW files will be decoded with ffmpeg", rawErr)
			return nil
		}
	}
	logging.Error("No RAW decoder available: %v", rawErr)
	return rawErr
}
