package config

const (
	defaultConfigPath            = "~/.config/viralvision/config.toml"
	defaultDataDir               = "~/.local/share/viralvision"
	defaultUploadDir             = "~/.local/share/viralvision/uploads"
	defaultLogDir                = "~/.local/share/viralvision/logs"
	defaultAPIBind               = "127.0.0.1:7490"
	defaultAnalysisBaseURL       = "https://openrouter.ai/api/v1/chat/completions"
	defaultAnalysisModel         = "google/gemini-2.5-flash"
	defaultAnalysisReferer       = "https://github.com/viralvision/viralvision"
	defaultAnalysisTitle         = "ViralVision Analyzer"
	defaultAnalysisTimeout       = 180
	defaultAnalysisRetryAttempts = 1
	defaultAnalysisMaxInlineMB   = 20
	defaultFetchBinary           = "yt-dlp"
	defaultFetchFormat           = "best[height<=720][ext=mp4]/best[height<=720]/best"
	defaultFetchTimeout          = 600
	defaultMaxDurationSeconds    = 1500
	defaultFFprobeBinary         = "ffprobe"
	defaultSignupBalance         = 3.0
	defaultWorkers               = 4
	defaultQueueDepth            = 64
	defaultSubmitRatePerMinute   = 30
	defaultSubmitBurst           = 5
	defaultMaxUploadMB           = 200
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

var defaultAllowedHosts = []string{
	"youtube.com",
	"youtu.be",
	"tiktok.com",
	"instagram.com",
	"facebook.com",
	"x.com",
	"twitter.com",
	"vimeo.com",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			UploadDir: defaultUploadDir,
			LogDir:    defaultLogDir,
			APIBind:   defaultAPIBind,
		},
		Analysis: Analysis{
			BaseURL:        defaultAnalysisBaseURL,
			Model:          defaultAnalysisModel,
			Referer:        defaultAnalysisReferer,
			Title:          defaultAnalysisTitle,
			TimeoutSeconds: defaultAnalysisTimeout,
			RetryAttempts:  defaultAnalysisRetryAttempts,
			MaxInlineMB:    defaultAnalysisMaxInlineMB,
		},
		Fetch: Fetch{
			Binary:             defaultFetchBinary,
			Format:             defaultFetchFormat,
			TimeoutSeconds:     defaultFetchTimeout,
			AllowedHosts:       append([]string(nil), defaultAllowedHosts...),
			MaxDurationSeconds: defaultMaxDurationSeconds,
		},
		Probe: Probe{
			FFprobeBinary: defaultFFprobeBinary,
		},
		Credits: Credits{
			SignupBalance: defaultSignupBalance,
		},
		Workflow: Workflow{
			Workers:    defaultWorkers,
			QueueDepth: defaultQueueDepth,
		},
		API: API{
			SubmitRatePerMinute: defaultSubmitRatePerMinute,
			SubmitBurst:         defaultSubmitBurst,
			MaxUploadMB:         defaultMaxUploadMB,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
