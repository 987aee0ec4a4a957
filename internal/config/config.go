package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"github.com/tidwall/jsonc"
)

// OpenAIConfig configures the model backend.
type OpenAIConfig struct {
	APIKey    string `json:"apiKey,omitempty"`
	BaseURL   string `json:"baseUrl,omitempty"`
	Model     string `json:"model,omitempty"`
	MaxTokens int    `json:"maxTokens,omitempty"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host string `json:"host,omitempty"`
	Port int    `json:"port,omitempty"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Level  string `json:"level,omitempty"`
	Pretty bool   `json:"pretty,omitempty"`
}

// Config is the merged application configuration.
type Config struct {
	DataDir   string       `json:"dataDir,omitempty"`
	AgentsDir string       `json:"agentsDir,omitempty"`
	OpenAI    OpenAIConfig `json:"openai,omitempty"`
	Server    ServerConfig `json:"server,omitempty"`
	Log       LogConfig    `json:"log,omitempty"`
}

// Load loads configuration from multiple sources (priority order):
// 1. Global config (~/.polychat/)
// 2. Global config (~/.config/polychat/ - XDG compatible)
// 3. Project config (.polychat/)
// 4. POLYCHAT_CONFIG file
// 5. POLYCHAT_CONFIG_CONTENT inline JSON
// 6. Environment variables
func Load(directory string) (*Config, error) {
	// A project .env can supply OPENAI_API_KEY and friends. Values already
	// present in the environment win.
	if directory != "" {
		_ = godotenv.Load(filepath.Join(directory, ".env"))
	}

	config := &Config{}

	// Track loaded files to avoid duplicates
	loaded := make(map[string]bool)

	loadOnce := func(path string, baseDir string) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return
		}
		if loaded[absPath] {
			return
		}
		if loadConfigFile(path, config, baseDir) == nil {
			loaded[absPath] = true
		}
	}

	// 1. Dotfile-style global config (~/.polychat/)
	home := os.Getenv("HOME")
	if home != "" {
		dotDir := filepath.Join(home, ".polychat")
		loadOnce(filepath.Join(dotDir, "polychat.json"), dotDir)
		loadOnce(filepath.Join(dotDir, "polychat.jsonc"), dotDir)
	}

	// 2. XDG-compatible global config (~/.config/polychat/)
	globalPath := GetPaths().Config
	loadOnce(filepath.Join(globalPath, "polychat.json"), globalPath)
	loadOnce(filepath.Join(globalPath, "polychat.jsonc"), globalPath)

	// 3. Project config
	if directory != "" {
		projectConfigDir := filepath.Join(directory, ".polychat")
		loadOnce(filepath.Join(directory, "polychat.json"), directory)
		loadOnce(filepath.Join(directory, "polychat.jsonc"), directory)
		loadOnce(filepath.Join(projectConfigDir, "polychat.json"), projectConfigDir)
		loadOnce(filepath.Join(projectConfigDir, "polychat.jsonc"), projectConfigDir)
	}

	// 4. POLYCHAT_CONFIG file override
	if configPath := os.Getenv("POLYCHAT_CONFIG"); configPath != "" {
		configDir := filepath.Dir(configPath)
		loadOnce(configPath, configDir)
	}

	// 5. POLYCHAT_CONFIG_CONTENT inline JSON
	if configContent := os.Getenv("POLYCHAT_CONFIG_CONTENT"); configContent != "" {
		var inlineConfig Config
		if err := json.Unmarshal([]byte(configContent), &inlineConfig); err == nil {
			mergeConfig(config, &inlineConfig)
		}
	}

	// 6. Environment variables (highest priority)
	applyEnvOverrides(config)

	applyDefaults(config)

	return config, nil
}

// loadConfigFile loads a single config file with interpolation support.
func loadConfigFile(path string, config *Config, baseDir string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err // File doesn't exist, skip
	}

	// Strip JSONC comments using tidwall/jsonc
	data = jsonc.ToJSON(data)

	// Apply interpolation
	data = interpolate(data, baseDir)

	var fileConfig Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return err
	}

	mergeConfig(config, &fileConfig)
	return nil
}

// interpolate processes {env:VAR} and {file:path} placeholders.
func interpolate(data []byte, baseDir string) []byte {
	str := string(data)

	// Handle {env:VAR_NAME} placeholders
	envPattern := regexp.MustCompile(`\{env:([^}]+)\}`)
	str = envPattern.ReplaceAllStringFunc(str, func(match string) string {
		varName := envPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})

	// Handle {file:path} placeholders
	filePattern := regexp.MustCompile(`\{file:([^}]+)\}`)
	str = filePattern.ReplaceAllStringFunc(str, func(match string) string {
		filePath := filePattern.FindStringSubmatch(match)[1]

		// Resolve path
		if strings.HasPrefix(filePath, "~/") {
			home := os.Getenv("HOME")
			filePath = filepath.Join(home, filePath[2:])
		} else if !filepath.IsAbs(filePath) {
			filePath = filepath.Join(baseDir, filePath)
		}

		content, err := os.ReadFile(filePath)
		if err != nil {
			return match // Keep original if file not found
		}

		// Escape for JSON string
		escaped := strings.ReplaceAll(string(content), "\\", "\\\\")
		escaped = strings.ReplaceAll(escaped, "\"", "\\\"")
		escaped = strings.ReplaceAll(escaped, "\n", "\\n")
		escaped = strings.ReplaceAll(escaped, "\r", "\\r")
		escaped = strings.ReplaceAll(escaped, "\t", "\\t")

		return escaped
	})

	return []byte(str)
}

// mergeConfig merges source config into target.
func mergeConfig(target, source *Config) {
	if source.DataDir != "" {
		target.DataDir = source.DataDir
	}
	if source.AgentsDir != "" {
		target.AgentsDir = source.AgentsDir
	}
	if source.OpenAI.APIKey != "" {
		target.OpenAI.APIKey = source.OpenAI.APIKey
	}
	if source.OpenAI.BaseURL != "" {
		target.OpenAI.BaseURL = source.OpenAI.BaseURL
	}
	if source.OpenAI.Model != "" {
		target.OpenAI.Model = source.OpenAI.Model
	}
	if source.OpenAI.MaxTokens != 0 {
		target.OpenAI.MaxTokens = source.OpenAI.MaxTokens
	}
	if source.Server.Host != "" {
		target.Server.Host = source.Server.Host
	}
	if source.Server.Port != 0 {
		target.Server.Port = source.Server.Port
	}
	if source.Log.Level != "" {
		target.Log.Level = source.Log.Level
	}
	if source.Log.Pretty {
		target.Log.Pretty = true
	}
}

// applyEnvOverrides applies environment variable overrides.
func applyEnvOverrides(config *Config) {
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.OpenAI.APIKey = apiKey
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		config.OpenAI.BaseURL = baseURL
	}
	if model := os.Getenv("POLYCHAT_MODEL"); model != "" {
		config.OpenAI.Model = model
	}
	if dataDir := os.Getenv("POLYCHAT_DATA_DIR"); dataDir != "" {
		config.DataDir = dataDir
	}
	if level := os.Getenv("POLYCHAT_LOG_LEVEL"); level != "" {
		config.Log.Level = level
	}
}

// applyDefaults fills unset fields with working defaults.
func applyDefaults(config *Config) {
	if config.DataDir == "" {
		config.DataDir = GetPaths().StoragePath()
	}
	if config.AgentsDir == "" {
		config.AgentsDir = GetPaths().AgentsPath()
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8234
	}
	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
}

// Save saves the configuration to a file.
func Save(config *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
