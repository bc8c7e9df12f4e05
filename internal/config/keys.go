package config

import "os"

// APIKeySource represents where an API key comes from.
type APIKeySource string

const (
	KeySourceEnv    APIKeySource = "env"
	KeySourceConfig APIKeySource = "config"
	KeySourceNone   APIKeySource = "none"
)

// KeyStatus represents the status of an API key.
type KeyStatus struct {
	Name   string       `json:"name"`
	Source APIKeySource `json:"source"`
	IsSet  bool         `json:"is_set"`
	Masked string       `json:"masked,omitempty"` // e.g., "abc...xyz"
}

// CheckAPIKeys returns the status of every credential the service uses.
func CheckAPIKeys(cfg *Config) []KeyStatus {
	return []KeyStatus{
		checkKey("Updates API Key", cfg.API.Key, "KOSPIFEED_API_KEY", "BOT_API_KEY", "API_KEY"),
		checkKey("DART API Key", cfg.DART.APIKey, "KOSPIFEED_DART_API_KEY", "DART_API_KEY"),
		checkKey("Naver Client ID", cfg.Naver.ClientID, "KOSPIFEED_NAVER_CLIENT_ID", "NAVER_CLIENT_ID"),
		checkKey("Naver Client Secret", cfg.Naver.ClientSecret, "KOSPIFEED_NAVER_CLIENT_SECRET", "NAVER_CLIENT_SECRET"),
	}
}

// checkKey checks if a key is set and where it came from.
func checkKey(name, value string, envVars ...string) KeyStatus {
	status := KeyStatus{
		Name:  name,
		IsSet: value != "",
	}

	if value == "" {
		status.Source = KeySourceNone
		return status
	}

	status.Source = KeySourceConfig
	for _, e := range envVars {
		if os.Getenv(e) != "" {
			status.Source = KeySourceEnv
			break
		}
	}
	status.Masked = maskKey(value)
	return status
}

// maskKey masks an API key for display, showing only first 3 and last 3 chars.
func maskKey(key string) string {
	if len(key) <= 8 {
		return "***"
	}
	return key[:3] + "..." + key[len(key)-3:]
}
