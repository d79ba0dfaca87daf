package config

// DefaultConfig holds every supported configuration key with its default
// value. PUT /settings rejects keys that are not listed here.
var DefaultConfig = map[string]any{
	"AI_MODE":              "offline",
	"LLM_PROVIDER":         "ollama",
	"OLLAMA_MODEL":         "llama3.2:3b",
	"OPENROUTER_MODEL":     "openrouter/auto",
	"WHISPER_MODEL":        "small",
	"WHISPER_DEVICE":       "auto",
	"MAX_CLIPS":            10,
	"MIN_VIRAL_SCORE":      60,
	"MAX_CONCURRENT_JOBS":  1,
	"GPU_ENABLED":          "auto",
	"LAN_ENABLED":          false,
	"LAN_TOKEN":            "",
	"FFMPEG_PRESET":        "veryfast",
	"OUTPUT_FORMAT":        "mp4",
	"APP_DATA_PATH":        "",
	"LOG_LEVEL":            "INFO",
	"AUTO_START":           false,
	"ENCRYPTED_OPENROUTER": "",
	"ENCRYPTED_OPENAI":     "",
}

// KnownKey reports whether key is a supported configuration key.
func KnownKey(key string) bool {
	_, ok := DefaultConfig[key]
	return ok
}
