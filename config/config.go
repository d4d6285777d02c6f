// Package config resolves pipeline configuration from file, environment
// and built-in defaults using github.com/spf13/viper (spec §6 Environment).
// CLI flags are not read here; callers apply them to the returned Config.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Thresholds bundles the geometric tolerances the pipeline stages share.
type Thresholds struct {
	LineY         float64
	SentenceLineY float64
	Merge         float64
	Alignment     float64
}

// Config is the fully-resolved runtime configuration for one extraction
// run.
type Config struct {
	RasterDPI         int
	OCRLanguages      []string
	OCREngine         string
	SegmentModelPath  string
	SegmentConfidence float64
	SentenceLanguage  string
	Sigles            []string
	Thresholds        Thresholds
	ConcurrencyPages  int
}

// ConfigError reports a configuration resolution failure, distinguished
// from a per-page failure so the CLI can exit non-zero only for this case
// (spec §6 CLI).
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return fmt.Sprintf("config error: %v", e.Err) }
func (e *ConfigError) Unwrap() error { return e.Err }

// Load resolves configuration from an optional config file path, the
// environment (prefixed DOCIA_), and built-in defaults. Environment values
// override the file, and the file overrides the defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("DOCIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, &ConfigError{Err: fmt.Errorf("read config %s: %w", configPath, err)}
		}
	} else {
		v.SetConfigName("docia")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".docia"))
		}
		if err := v.ReadInConfig(); err != nil {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return nil, &ConfigError{Err: fmt.Errorf("read config: %w", err)}
			}
		}
	}

	cfg := &Config{
		RasterDPI:         v.GetInt("raster.dpi"),
		OCRLanguages:      v.GetStringSlice("ocr.languages"),
		OCREngine:         v.GetString("ocr.engine"),
		SegmentModelPath:  v.GetString("segment.model_path"),
		SegmentConfidence: v.GetFloat64("segment.confidence_floor"),
		SentenceLanguage:  v.GetString("sentence.language"),
		Sigles:            v.GetStringSlice("sigles"),
		Thresholds: Thresholds{
			LineY:         v.GetFloat64("thresholds.line_y"),
			SentenceLineY: v.GetFloat64("thresholds.sentence_line_y"),
			Merge:         v.GetFloat64("thresholds.merge"),
			Alignment:     v.GetFloat64("thresholds.alignment"),
		},
		ConcurrencyPages: v.GetInt("concurrency.pages"),
	}
	if cfg.SegmentModelPath == "" {
		return nil, &ConfigError{Err: fmt.Errorf("segment.model_path is required")}
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("raster.dpi", 300)
	v.SetDefault("ocr.languages", []string{"eng", "fra"})
	v.SetDefault("ocr.engine", "tesseract")
	v.SetDefault("segment.confidence_floor", 0.5)
	v.SetDefault("sentence.language", "fr")
	v.SetDefault("sigles", []string{"ONU", "OMS", "UNESCO", "CNAM", "WHO", "AI", "USA", "EU", "ETC"})
	v.SetDefault("thresholds.line_y", 5.0)
	v.SetDefault("thresholds.sentence_line_y", 2.5)
	v.SetDefault("thresholds.merge", 15.0)
	v.SetDefault("thresholds.alignment", 15.0)
	v.SetDefault("concurrency.pages", 4)
}
