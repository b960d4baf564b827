package config

const (
	defaultConfigPath        = "~/.config/narrator/config.toml"
	defaultStateDir          = "~/.local/share/narrator"
	defaultLogDir            = "~/.local/share/narrator/logs"
	defaultFFmpeg            = "ffmpeg"
	defaultFFprobe           = "ffprobe"
	defaultBackground        = "/home/private/loop.mp4"
	defaultBorder            = "/home/private/border.png"
	defaultIntroBaseURL      = "https://sleepai.online/storage/intros"
	defaultBackgroundBaseURL = "https://sleepai.online/storage/backgrounds"
	defaultBorderBaseURL     = "https://sleepai.online/storage/frames"
	defaultDownloadTimeout   = 300
	defaultRenderWorkers     = 4
	defaultWidth             = 1920
	defaultHeight            = 1080
	defaultFrameRate         = 25
	defaultPreset            = "ultrafast"
	defaultImageScale        = 0.97
	defaultTitleFontSize     = 60
	defaultTitleY            = 70
	defaultAudioCodec        = "libmp3lame"
	defaultAudioBitrate      = "128k"
	defaultSampleRate        = 44100
	defaultChannels          = 2
	defaultFinalAudioCodec   = "aac"
	defaultOutputDir         = "render"
	defaultOutputFile        = "render.mp4"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultNotifyTimeout     = 10
)

var defaultAudioExtensions = []string{".mp3"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Tools: Tools{
			FFmpeg:  defaultFFmpeg,
			FFprobe: defaultFFprobe,
		},
		Assets: Assets{
			Background:        defaultBackground,
			Border:            defaultBorder,
			IntroBaseURL:      defaultIntroBaseURL,
			BackgroundBaseURL: defaultBackgroundBaseURL,
			BorderBaseURL:     defaultBorderBaseURL,
			DownloadTimeout:   defaultDownloadTimeout,
			AudioExtensions:   append([]string(nil), defaultAudioExtensions...),
		},
		Render: Render{
			Workers:       defaultRenderWorkers,
			Width:         defaultWidth,
			Height:        defaultHeight,
			FrameRate:     defaultFrameRate,
			Preset:        defaultPreset,
			ImageScale:    defaultImageScale,
			TitleFontSize: defaultTitleFontSize,
			TitleY:        defaultTitleY,
		},
		Audio: Audio{
			Codec:      defaultAudioCodec,
			Bitrate:    defaultAudioBitrate,
			SampleRate: defaultSampleRate,
			Channels:   defaultChannels,
			FinalCodec: defaultFinalAudioCodec,
		},
		Output: Output{
			Dir:      defaultOutputDir,
			FileName: defaultOutputFile,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Completed:      true,
			Errors:         true,
		},
		History: History{
			Enabled: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
