package config

const (
	defaultWorkDir              = "~/.local/share/minutes/work"
	defaultLogDir               = "~/.local/share/minutes/logs"
	defaultAPIBind              = "127.0.0.1:7910"
	defaultLarkDomain           = "open.larksuite.com"
	defaultLarkTokenPath        = "~/.config/minutes/lark_token.json"
	defaultLarkRequestTimeout   = 30
	defaultLarkDownloadTimeout  = 900
	defaultGeminiBaseURL        = "https://generativelanguage.googleapis.com"
	defaultGeminiModel          = "models/gemini-2.5-flash"
	defaultGeminiTagModel       = "models/gemini-2.0-flash-exp"
	defaultGeminiTimeoutSeconds = 600
	defaultSegmentSeconds       = 1500
	defaultReprocessPolicy      = ReprocessReplace
	defaultTagMaxAttempts       = 3
	defaultTagRetryDelaySeconds = 2
	defaultFFmpegBinary         = "ffmpeg"
	defaultFFprobeBinary        = "ffprobe"
	defaultNotifyRequestTimeout = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir: defaultWorkDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Lark: Lark{
			Domain:          defaultLarkDomain,
			TokenPath:       defaultLarkTokenPath,
			RequestTimeout:  defaultLarkRequestTimeout,
			DownloadTimeout: defaultLarkDownloadTimeout,
		},
		Gemini: Gemini{
			BaseURL:        defaultGeminiBaseURL,
			Model:          defaultGeminiModel,
			TagModel:       defaultGeminiTagModel,
			TimeoutSeconds: defaultGeminiTimeoutSeconds,
		},
		Pipeline: Pipeline{
			SegmentSeconds:       defaultSegmentSeconds,
			ReprocessPolicy:      defaultReprocessPolicy,
			TagMaxAttempts:       defaultTagMaxAttempts,
			TagRetryDelaySeconds: defaultTagRetryDelaySeconds,
			FFmpegBinary:         defaultFFmpegBinary,
			FFprobeBinary:        defaultFFprobeBinary,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Runs:           true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
