package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the main server.
type Profile struct {
	// Mode can be "prod" or "dev"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where smartcal stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Secret signs session tokens
	Secret string
	// Timezone is the IANA timezone used to resolve relative date phrases
	Timezone string
	// Version is the current version of server
	Version string

	// AI configuration
	AIEnabled         bool   // SMARTCAL_AI_ENABLED
	AILLMProvider     string // SMARTCAL_AI_LLM_PROVIDER (default: dashscope)
	AILLMModel        string // SMARTCAL_AI_LLM_MODEL (default: qwen-plus)
	AIDashScopeAPIKey string // SMARTCAL_AI_DASHSCOPE_API_KEY (legacy: DASHSCOPE_API_KEY)
	AIDashScopeURL    string // SMARTCAL_AI_DASHSCOPE_BASE_URL
	AIDeepSeekAPIKey  string // SMARTCAL_AI_DEEPSEEK_API_KEY
	AIDeepSeekURL     string // SMARTCAL_AI_DEEPSEEK_BASE_URL
	AIOpenAIAPIKey    string // SMARTCAL_AI_OPENAI_API_KEY
	AIOpenAIURL       string // SMARTCAL_AI_OPENAI_BASE_URL
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if AI is enabled and at least one API key is configured.
func (p *Profile) IsAIEnabled() bool {
	return p.AIEnabled && (p.AIDashScopeAPIKey != "" || p.AIDeepSeekAPIKey != "" || p.AIOpenAIAPIKey != "")
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvWithFallback returns the new-style env value, falling back to the
// legacy key used by the early prototype.
func getEnvWithFallback(key, legacyKey string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return os.Getenv(legacyKey)
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	if v := os.Getenv("SMARTCAL_AI_ENABLED"); v != "" {
		p.AIEnabled = v == "true"
	}
	p.AILLMProvider = getEnvOrDefault("SMARTCAL_AI_LLM_PROVIDER", p.AILLMProvider)
	p.AILLMModel = getEnvOrDefault("SMARTCAL_AI_LLM_MODEL", p.AILLMModel)
	p.AIDashScopeAPIKey = getEnvWithFallback("SMARTCAL_AI_DASHSCOPE_API_KEY", "DASHSCOPE_API_KEY")
	p.AIDashScopeURL = getEnvOrDefault("SMARTCAL_AI_DASHSCOPE_BASE_URL", "https://dashscope.aliyuncs.com/compatible-mode/v1")
	p.AIDeepSeekAPIKey = os.Getenv("SMARTCAL_AI_DEEPSEEK_API_KEY")
	p.AIDeepSeekURL = getEnvOrDefault("SMARTCAL_AI_DEEPSEEK_BASE_URL", "https://api.deepseek.com")
	p.AIOpenAIAPIKey = os.Getenv("SMARTCAL_AI_OPENAI_API_KEY")
	p.AIOpenAIURL = getEnvOrDefault("SMARTCAL_AI_OPENAI_BASE_URL", "https://api.openai.com/v1")

	if v := os.Getenv("SMARTCAL_SECRET"); v != "" {
		p.Secret = v
	}
	if v := os.Getenv("SMARTCAL_TIMEZONE"); v != "" {
		p.Timezone = v
	}
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}

	if p.Timezone == "" {
		p.Timezone = "Asia/Shanghai"
	}
	if p.AILLMProvider == "" {
		p.AILLMProvider = "dashscope"
	}
	if p.AILLMModel == "" {
		p.AILLMModel = "qwen-plus"
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		return errors.Wrap(err, "failed to check data dir")
	}
	p.Data = dataDir

	if p.Driver == "" {
		p.Driver = "sqlite"
	}
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("smartcal_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}
	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("dsn is required for postgres driver")
	}

	return nil
}
