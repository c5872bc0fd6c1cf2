package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"path/filepath"
	"sync"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/disintegration/imaging"

	"synothumb/internal/logging"
)

var (
	vipsInitialized bool
	vipsInitMutex   sync.Mutex
	vipsAvailable   bool
)

// vipsLogHandler returns the libvips log level and a handler routing vips
// messages through our logger at a matching level.
func vipsLogHandler(appLevel logging.LogLevel) (vips.LogLevel, func(string, vips.LogLevel, string)) {
	switch appLevel {
	case logging.LevelDebug:
		return vips.LogLevelInfo, func(domain string, level vips.LogLevel, msg string) {
			switch level {
			case vips.LogLevelError, vips.LogLevelCritical:
				logging.Error("[%s] %s", domain, msg)
			case vips.LogLevelWarning:
				logging.Warn("[%s] %s", domain, msg)
			default:
				logging.Debug("[%s] %s", domain, msg)
			}
		}
	case logging.LevelWarn:
		return vips.LogLevelError, func(domain string, level vips.LogLevel, msg string) {
			if level >= vips.LogLevelError {
				logging.Error("[%s] %s", domain, msg)
			}
		}
	case logging.LevelError:
		return vips.LogLevelCritical, func(domain string, level vips.LogLevel, msg string) {
			if level >= vips.LogLevelCritical {
				logging.Error("[%s] %s", domain, msg)
			}
		}
	default:
		// Info: warnings and errors only
		return vips.LogLevelWarning, func(domain string, level vips.LogLevel, msg string) {
			switch level {
			case vips.LogLevelError, vips.LogLevelCritical:
				logging.Error("[%s] %s", domain, msg)
			case vips.LogLevelWarning:
				logging.Warn("[%s] %s", domain, msg)
			}
		}
	}
}

// InitVips initializes the libvips library.
// This should be called once at startup.
func InitVips() error {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		return nil
	}

	// Configure vips logging BEFORE Startup() so it respects LOG_LEVEL
	level, handler := vipsLogHandler(logging.GetLevel())
	vips.LoggingSettings(handler, level)

	// Workers already run in parallel; keep each vips call single-threaded.
	vips.Startup(&vips.Config{
		ConcurrencyLevel: 1,
		MaxCacheMem:      50 * 1024 * 1024,
		MaxCacheSize:     100,
	})

	vipsInitialized = true
	vipsAvailable = true
	logging.Info("libvips initialized successfully (version: %s)", vips.Version)
	return nil
}

// ShutdownVips cleans up libvips resources. libvips cannot be started again
// in the same process afterwards.
func ShutdownVips() {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		vips.Shutdown()
		vipsInitialized = false
		vipsAvailable = false
		logging.Info("libvips shutdown complete")
	}
}

// IsVipsAvailable returns whether libvips is initialized and available
func IsVipsAvailable() bool {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()
	return vipsAvailable
}

// vipsBackend shrinks during decode, which keeps memory flat for very large
// JPEGs. Files libvips rejects go to the imaging backend.
type vipsBackend struct {
	fallback ImageBackend
}

func (b *vipsBackend) Name() string { return BackendVips }

func (b *vipsBackend) Load(ctx context.Context, path string, maxDimension int) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := LoadImageWithVips(path, maxDimension)
	if err == nil {
		return img, nil
	}
	logging.Debug("vips failed for %s: %v, using %s", path, err, b.fallback.Name())
	return b.fallback.Load(ctx, path, maxDimension)
}

// loadVipsRef opens path upright. With a positive maxDimension it goes
// through vips_thumbnail, which lets JPEG and WebP decode at a reduced scale
// and never enlarges.
func loadVipsRef(path string, maxDimension int) (*vips.ImageRef, error) {
	if maxDimension > 0 {
		ref, err := vips.NewThumbnailWithSizeFromFile(path, maxDimension, maxDimension, vips.InterestingNone, vips.SizeDown)
		if err != nil {
			return nil, fmt.Errorf("vips failed to thumbnail image: %w", err)
		}
		return ref, nil
	}

	importParams := vips.NewImportParams()
	importParams.AutoRotate.Set(true)
	ref, err := vips.LoadImageFromFile(path, importParams)
	if err != nil {
		return nil, fmt.Errorf("vips failed to load image: %w", err)
	}
	return ref, nil
}

// LoadImageWithVips loads an upright image, shrinking it so its longest side
// is at most maxDimension. Smaller images are returned at full size.
func LoadImageWithVips(path string, maxDimension int) (image.Image, error) {
	if !IsVipsAvailable() {
		return nil, fmt.Errorf("libvips not available")
	}

	ref, err := loadVipsRef(path, maxDimension)
	if err != nil {
		return nil, err
	}
	defer ref.Close()
	logging.Debug("Vips loaded %s at %dx%d (max %d)", filepath.Base(path), ref.Width(), ref.Height(), maxDimension)

	// Lossless hand-off to the Go side
	imgBytes, _, err := ref.ExportPng(vips.NewPngExportParams())
	if err != nil {
		return nil, fmt.Errorf("vips export failed: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader(imgBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to decode vips output: %w", err)
	}
	return img, nil
}
