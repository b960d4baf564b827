package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAssets(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAssets() error {
	if strings.TrimSpace(c.Assets.Background) == "" {
		return errors.New("assets.background must be set")
	}
	if strings.TrimSpace(c.Assets.Border) == "" {
		return errors.New("assets.border must be set")
	}
	return nil
}

func (c *Config) validateRender() error {
	if err := ensurePositive([]positiveField{
		{"render.workers", c.Render.Workers},
		{"render.width", c.Render.Width},
		{"render.height", c.Render.Height},
		{"render.frame_rate", c.Render.FrameRate},
		{"render.title_font_size", c.Render.TitleFontSize},
	}); err != nil {
		return err
	}
	if c.Render.ImageScale <= 0 || c.Render.ImageScale > 1 {
		return errors.New("render.image_scale must be between 0 and 1")
	}
	if c.Render.TitleY < 0 {
		return errors.New("render.title_y must be >= 0")
	}
	return nil
}

func (c *Config) validateOutput() error {
	if filepath.Base(c.Output.FileName) != c.Output.FileName {
		return fmt.Errorf("output.file_name must be a bare file name, got %q", c.Output.FileName)
	}
	if filepath.IsAbs(c.Output.Dir) {
		return fmt.Errorf("output.dir must be relative to the asset root's parent, got %q", c.Output.Dir)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error (got %q)", c.Logging.Level)
	}
}

type positiveField struct {
	key   string
	value int
}

// ensurePositive reports the first non-positive field in order.
func ensurePositive(fields []positiveField) error {
	for _, field := range fields {
		if field.value <= 0 {
			return fmt.Errorf("%s must be positive", field.key)
		}
	}
	return nil
}
