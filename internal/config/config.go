package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envFileVar = "AERAE_ENV_FILE"

var singleConfig *Config = nil

type Config struct {
	Database *dbConfig
	Service  *svcConfig
	LLM      *llmConfig
	Vector   *vectorConfig
	Opa      *opaConfig
	Scanner  *scannerConfig
	Archive  *archiveConfig
}

type dbConfig struct {
	Type     string `envconfig:"DB_TYPE" default:"sqlite"`
	Hostname string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	Name     string `envconfig:"DB_NAME" default:"aerae_local.db"`
	User     string `envconfig:"DB_USER" default:"admin"`
	Password string `envconfig:"DB_PASS" default:"adminpass"`
}

type svcConfig struct {
	Address        string        `envconfig:"AERAE_ADDRESS" default:":8000"`
	MetricsAddress string        `envconfig:"AERAE_METRICS_ADDRESS" default:":8080"`
	LogLevel       string        `envconfig:"AERAE_LOG_LEVEL" default:"info"`
	AllowedOrigins []string      `envconfig:"AERAE_CORS_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
	UploadDir      string        `envconfig:"AERAE_UPLOAD_DIR" default:""`
	MaxUploadSize  int64         `envconfig:"AERAE_MAX_UPLOAD_SIZE" default:"33554432"`
	DrainTimeout   time.Duration `envconfig:"AERAE_DRAIN_TIMEOUT" default:"30s"`
}

type llmConfig struct {
	AzureAPIKey         string `envconfig:"AZURE_OPENAI_API_KEY" default:""`
	AzureEndpoint       string `envconfig:"AZURE_OPENAI_ENDPOINT" default:"https://ai-proxy.lab.epam.com"`
	AzureAPIVersion     string `envconfig:"AZURE_OPENAI_API_VERSION" default:"2024-02-01"`
	AzureDeployment     string `envconfig:"AZURE_OPENAI_DEPLOYMENT_NAME" default:"gpt-4o-mini-2024-07-18"`
	AzureEmbeddingModel string `envconfig:"AZURE_OPENAI_EMBEDDING_MODEL" default:"text-embedding-3-small-1"`
	AzureRiskModel      string `envconfig:"AZURE_OPENAI_RISK_MODEL" default:"gpt-4o"`
	GeminiAPIKey        string `envconfig:"GEMINI_API_KEY" default:""`
	GeminiBaseURL       string `envconfig:"GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com/v1beta/openai/"`
	GeminiModel         string `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`
	GeminiDocumentModel string `envconfig:"GEMINI_DOCUMENT_MODEL" default:"gemini-2.0-flash-lite"`
}

type vectorConfig struct {
	Backend        string `envconfig:"AERAE_VECTOR_BACKEND" default:"store"`
	WeaviateHost   string `envconfig:"WEAVIATE_HOST" default:"localhost:8081"`
	WeaviateScheme string `envconfig:"WEAVIATE_SCHEME" default:"http"`
	WeaviateClass  string `envconfig:"WEAVIATE_CLASS" default:"AiPolicy"`
	TopK           int    `envconfig:"AERAE_POLICY_TOP_K" default:"3"`
}

type opaConfig struct {
	// Mode is one of remote, embedded or local. local starts the bundled
	// policy server in-process and talks to it over REST.
	Mode        string        `envconfig:"AERAE_OPA_MODE" default:"remote"`
	URL         string        `envconfig:"AERAE_OPA_URL" default:"http://localhost:8181/v1/data/ethical_gates"`
	Timeout     time.Duration `envconfig:"AERAE_OPA_TIMEOUT" default:"10s"`
	PoliciesDir string        `envconfig:"OPA_POLICIES_DIR" default:""`
	Address     string        `envconfig:"AERAE_OPA_ADDRESS" default:"127.0.0.1:8181"`
}

type scannerConfig struct {
	GitPath      string        `envconfig:"AERAE_GIT_PATH" default:"git"`
	GitleaksPath string        `envconfig:"AERAE_GITLEAKS_PATH" default:"gitleaks"`
	Timeout      time.Duration `envconfig:"AERAE_SECRET_SCAN_TIMEOUT" default:"120s"`
}

type archiveConfig struct {
	Endpoint  string `envconfig:"AERAE_ARCHIVE_ENDPOINT" default:""`
	AccessKey string `envconfig:"AERAE_ARCHIVE_ACCESS_KEY" default:""`
	SecretKey string `envconfig:"AERAE_ARCHIVE_SECRET_KEY" default:""`
	Bucket    string `envconfig:"AERAE_ARCHIVE_BUCKET" default:"aerae-documents"`
	UseSSL    bool   `envconfig:"AERAE_ARCHIVE_USE_SSL" default:"false"`
}

// New loads the configuration once per process. A .env file, when present,
// is applied first without overriding variables already set in the environment.
func New() (*Config, error) {
	if singleConfig == nil {
		if err := loadEnvFile(); err != nil {
			return nil, err
		}
		cfg := new(Config)
		if err := envconfig.Process("", cfg); err != nil {
			return nil, err
		}
		singleConfig = cfg
	}
	return singleConfig, nil
}

// NewDefault returns the environment configuration backed by an in-memory sqlite database.
func NewDefault() *Config {
	cfg := new(Config)
	_ = envconfig.Process("", cfg)
	cfg.Database.Type = "sqlite"
	cfg.Database.Name = "file::memory:?cache=shared"
	return cfg
}

func loadEnvFile() error {
	path := os.Getenv(envFileVar)
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
