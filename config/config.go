package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration parameters, loaded from environment variables.
type Config struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	HTTPPort     string `envconfig:"HTTP_PORT" default:"4242"`
	APISecretKey string `envconfig:"API_SECRET_KEY"`

	// Relevance scorer (OpenAI-compatible chat completions endpoint).
	ScorerEndpoint string        `envconfig:"SCORER_ENDPOINT" default:"https://api.openai.com/v1/chat/completions"`
	ScorerModel    string        `envconfig:"SCORER_MODEL" default:"gpt-4o-mini"`
	ScorerAPIKey   string        `envconfig:"SCORER_API_KEY"`
	ScorerTimeout  time.Duration `envconfig:"SCORER_TIMEOUT" default:"30s"`

	// Discovery scheduler and fan-out limits.
	SchedulerInterval   time.Duration `envconfig:"SCHEDULER_INTERVAL" default:"5m"`
	QuestionConcurrency int           `envconfig:"QUESTION_CONCURRENCY" default:"4"`
	SourceConcurrency   int           `envconfig:"SOURCE_CONCURRENCY" default:"3"`
	DefaultMaxArticles  int           `envconfig:"DEFAULT_MAX_ARTICLES" default:"50"`

	// Source adapters.
	EnabledSources string `envconfig:"ENABLED_SOURCES" default:"arxiv,pubmed,europepmc"`

	ArxivBaseURL string `envconfig:"ARXIV_BASE_URL" default:"https://export.arxiv.org/api/query"`

	PubMedBaseURL string `envconfig:"PUBMED_BASE_URL" default:"https://eutils.ncbi.nlm.nih.gov/entrez/eutils"`
	PubMedAPIKey  string `envconfig:"PUBMED_API_KEY"`
	PubMedTool    string `envconfig:"PUBMED_TOOL" default:"paperscout"`
	PubMedEmail   string `envconfig:"PUBMED_EMAIL"`

	EuropePMCBaseURL string `envconfig:"EUROPEPMC_BASE_URL" default:"https://www.ebi.ac.uk/europepmc/webservices/rest/search"`

	// Unpaywall fallback for open-access PDF links. Disabled when the email
	// is unset, since the API requires a contact address.
	UnpaywallBaseURL string `envconfig:"UNPAYWALL_BASE_URL" default:"https://api.unpaywall.org/v2"`
	UnpaywallEmail   string `envconfig:"UNPAYWALL_EMAIL"`
}

// DSN returns the Data Source Name for the PostgreSQL connection.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}
