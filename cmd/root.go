package cmd

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/mentor-matcher/internal/ai/gemini"
	"github.com/spigell/mentor-matcher/internal/ai/openai"
	"github.com/spigell/mentor-matcher/internal/explain"
	"github.com/spigell/mentor-matcher/internal/scoring"
	"github.com/spigell/mentor-matcher/internal/similarity"
	"github.com/spigell/mentor-matcher/internal/store"
)

const (
	app       = "mentor-matcher"
	envPrefix = "MENTOR_MATCHER"
)

type Config struct {
	// Input is a roster file. When empty the roster is fetched from the cohort api.
	Input       string            `mapstructure:"input"`
	Mode        string            `mapstructure:"mode"`
	Output      string            `mapstructure:"output"`
	MetricsFile string            `mapstructure:"metrics-file"`
	Rematch     bool              `mapstructure:"rematch"`
	Cohort      *CohortConfig     `mapstructure:"cohort"`
	Scoring     *ScoringConfig    `mapstructure:"scoring"`
	Similarity  *SimilarityConfig `mapstructure:"similarity"`
	Explain     *ExplainConfig    `mapstructure:"explain"`
	Store       store.Config      `mapstructure:"store"`
	AI          *AIConfig         `mapstructure:"ai"`
}

type CohortConfig struct {
	ID        string `mapstructure:"id"`
	APIURL    string `mapstructure:"api-url"`
	Token     string `mapstructure:"token" json:"-"`
	TokenFile string `mapstructure:"token-file"`
	UserAgent string `mapstructure:"user-agent"`
}

type ScoringConfig struct {
	Weights    *scoring.Weights    `mapstructure:"weights"`
	Thresholds *scoring.Thresholds `mapstructure:"thresholds"`
}

type SimilarityConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type ExplainConfig struct {
	Workers int                    `mapstructure:"workers"`
	Timeout time.Duration          `mapstructure:"timeout"`
	Prompt  gemini.PromptOverrides `mapstructure:"prompt"`
}

type AIConfig struct {
	// Enabled switches explanations from the built-in template to the generator.
	Enabled  bool   `mapstructure:"enabled"`
	Provider string `mapstructure:"provider"`
	// Embeddings picks the embedding provider: gemini, openai or none.
	Embeddings string        `mapstructure:"embeddings"`
	Gemini     *GeminiConfig `mapstructure:"gemini"`
	OpenAI     *OpenAIConfig `mapstructure:"openai"`
}

type GeminiConfig struct {
	APIKey         string `mapstructure:"api-key" json:"-"`
	APIKeyFile     string `mapstructure:"api-key-file"`
	Model          string `mapstructure:"model"`
	EmbeddingModel string `mapstructure:"embedding-model"`
	MaxRetries     int    `mapstructure:"max-retries"`
	MaxLogLength   int    `mapstructure:"max-log-length"`
}

type OpenAIConfig struct {
	openai.Config `mapstructure:",squash"`
	APIKey        string `mapstructure:"api-key" json:"-"`
	APIKeyFile    string `mapstructure:"api-key-file"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "mentor-matcher scores mentees against mentors and proposes capacity-aware assignments",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is mentor-matcher.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	setDefaults(viper.GetViper())
}

// setDefaults registers every key that may come only from the environment.
func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "batch")
	v.SetDefault("output", "")
	v.SetDefault("metrics-file", "")
	v.SetDefault("rematch", false)
	v.SetDefault("cohort.id", "")
	v.SetDefault("cohort.api-url", "")
	v.SetDefault("cohort.token", "")
	v.SetDefault("cohort.token-file", "")
	v.SetDefault("similarity.timeout", similarity.DefaultTimeout)
	v.SetDefault("explain.workers", explain.DefaultWorkers)
	v.SetDefault("explain.timeout", explain.DefaultTimeout)
	v.SetDefault("store.backend", "memory")
	v.SetDefault("store.redis.address", "")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.postgres.dsn", "")
	v.SetDefault("ai.enabled", false)
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.embeddings", "none")
	v.SetDefault("ai.gemini.api-key", "")
	v.SetDefault("ai.gemini.api-key-file", "")
	v.SetDefault("ai.gemini.model", "")
	v.SetDefault("ai.gemini.embedding-model", "")
	v.SetDefault("ai.gemini.max-retries", 3)
	v.SetDefault("ai.openai.api-key", "")
	v.SetDefault("ai.openai.api-key-file", "")
	v.SetDefault("ai.openai.model", openai.DefaultModel)
	v.SetDefault("ai.openai.base-url", "")
}

func initConfig() {
	// Only matching commands need a config. Version works without one.
	if matchCmd.CalledAs() == "" && explainCmd.CalledAs() == "" {
		return
	}

	// .env is optional, real environment variables take precedence.
	_ = godotenv.Load()

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// An explicit config must exist. The default one is optional.
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config.Cohort == nil {
		config.Cohort = &CohortConfig{}
	}
	if config.Similarity == nil {
		config.Similarity = &SimilarityConfig{}
	}
	if config.Explain == nil {
		config.Explain = &ExplainConfig{}
	}
	if config.AI == nil {
		config.AI = &AIConfig{}
	}
	if config.AI.Gemini == nil {
		config.AI.Gemini = &GeminiConfig{}
	}
	if config.AI.OpenAI == nil {
		config.AI.OpenAI = &OpenAIConfig{}
	}

	return config, nil
}
