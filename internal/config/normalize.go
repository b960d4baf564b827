package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTools()
	if err := c.normalizeAssets(); err != nil {
		return err
	}
	c.normalizeRender()
	c.normalizeAudio()
	c.normalizeOutput()
	c.normalizeNotifications()
	if err := c.normalizeHistory(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTools() {
	c.Tools.FFmpeg = strings.TrimSpace(c.Tools.FFmpeg)
	if c.Tools.FFmpeg == "" {
		c.Tools.FFmpeg = defaultFFmpeg
	}
	c.Tools.FFprobe = strings.TrimSpace(c.Tools.FFprobe)
	if c.Tools.FFprobe == "" {
		c.Tools.FFprobe = defaultFFprobe
	}
}

func (c *Config) normalizeAssets() error {
	var err error
	if c.Assets.Background, err = expandPath(strings.TrimSpace(c.Assets.Background)); err != nil {
		return fmt.Errorf("assets.background: %w", err)
	}
	if c.Assets.Border, err = expandPath(strings.TrimSpace(c.Assets.Border)); err != nil {
		return fmt.Errorf("assets.border: %w", err)
	}
	if c.Assets.FontFile, err = expandPath(strings.TrimSpace(c.Assets.FontFile)); err != nil {
		return fmt.Errorf("assets.font_file: %w", err)
	}
	c.Assets.IntroBaseURL = strings.TrimRight(strings.TrimSpace(c.Assets.IntroBaseURL), "/")
	c.Assets.BackgroundBaseURL = strings.TrimRight(strings.TrimSpace(c.Assets.BackgroundBaseURL), "/")
	c.Assets.BorderBaseURL = strings.TrimRight(strings.TrimSpace(c.Assets.BorderBaseURL), "/")
	if c.Assets.DownloadTimeout <= 0 {
		c.Assets.DownloadTimeout = defaultDownloadTimeout
	}

	exts := make([]string, 0, len(c.Assets.AudioExtensions))
	seen := make(map[string]struct{}, len(c.Assets.AudioExtensions))
	for _, ext := range c.Assets.AudioExtensions {
		normalized := strings.ToLower(strings.TrimSpace(ext))
		if normalized == "" {
			continue
		}
		if !strings.HasPrefix(normalized, ".") {
			normalized = "." + normalized
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		exts = append(exts, normalized)
	}
	if len(exts) == 0 {
		exts = append(exts, defaultAudioExtensions...)
	}
	c.Assets.AudioExtensions = exts
	return nil
}

func (c *Config) normalizeRender() {
	if c.Render.Workers <= 0 {
		c.Render.Workers = defaultRenderWorkers
	}
	if c.Render.Width <= 0 {
		c.Render.Width = defaultWidth
	}
	if c.Render.Height <= 0 {
		c.Render.Height = defaultHeight
	}
	if c.Render.FrameRate <= 0 {
		c.Render.FrameRate = defaultFrameRate
	}
	c.Render.Preset = strings.ToLower(strings.TrimSpace(c.Render.Preset))
	if c.Render.Preset == "" {
		c.Render.Preset = defaultPreset
	}
	if c.Render.ImageScale == 0 {
		c.Render.ImageScale = defaultImageScale
	}
	if c.Render.TitleFontSize <= 0 {
		c.Render.TitleFontSize = defaultTitleFontSize
	}
}

func (c *Config) normalizeAudio() {
	c.Audio.Codec = strings.TrimSpace(c.Audio.Codec)
	if c.Audio.Codec == "" {
		c.Audio.Codec = defaultAudioCodec
	}
	c.Audio.Bitrate = strings.TrimSpace(c.Audio.Bitrate)
	if c.Audio.Bitrate == "" {
		c.Audio.Bitrate = defaultAudioBitrate
	}
	if c.Audio.SampleRate <= 0 {
		c.Audio.SampleRate = defaultSampleRate
	}
	if c.Audio.Channels <= 0 {
		c.Audio.Channels = defaultChannels
	}
	c.Audio.FinalCodec = strings.TrimSpace(c.Audio.FinalCodec)
	if c.Audio.FinalCodec == "" {
		c.Audio.FinalCodec = defaultFinalAudioCodec
	}
}

func (c *Config) normalizeOutput() {
	c.Output.Dir = strings.TrimSpace(c.Output.Dir)
	if c.Output.Dir == "" {
		c.Output.Dir = defaultOutputDir
	}
	c.Output.FileName = strings.TrimSpace(c.Output.FileName)
	if c.Output.FileName == "" {
		c.Output.FileName = defaultOutputFile
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("NARRATOR_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeHistory() error {
	var err error
	if c.History.Path, err = expandPath(strings.TrimSpace(c.History.Path)); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
