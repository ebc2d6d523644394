package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/anuragparashar26/skillscreen/internal/logger"
	"github.com/anuragparashar26/skillscreen/internal/pipeline"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	app = "skillscreen"
)

type Config struct {
	AI        AIConfig         `mapstructure:"ai"`
	Embedding EmbeddingConfig  `mapstructure:"embedding"`
	Index     IndexConfig      `mapstructure:"index"`
	Scoring   pipeline.Weights `mapstructure:"scoring"`
	Pipeline  PipelineConfig   `mapstructure:"pipeline"`
	Store     StoreConfig      `mapstructure:"store"`
	Server    ServerConfig     `mapstructure:"server"`
}

type AIConfig struct {
	Provider     string         `mapstructure:"provider" validate:"oneof=gemini openai"`
	Temperature  float64        `mapstructure:"temperature" validate:"gte=0,lte=2"`
	MaxLogLength int            `mapstructure:"max-log-length" validate:"gte=0"`
	Gemini       ProviderConfig `mapstructure:"gemini"`
	OpenAI       ProviderConfig `mapstructure:"openai"`
}

type ProviderConfig struct {
	APIKey     string `mapstructure:"api-key" json:"-"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
	BaseURL    string `mapstructure:"base-url" validate:"omitempty,url"`
}

type EmbeddingConfig struct {
	Provider   string      `mapstructure:"provider" validate:"oneof=gemini openai"`
	Model      string      `mapstructure:"model"`
	Dimensions int         `mapstructure:"dimensions" validate:"gte=0"`
	MaxTokens  int         `mapstructure:"max-tokens" validate:"gte=0"`
	Cache      CacheConfig `mapstructure:"cache"`
}

type CacheConfig struct {
	Backend           string        `mapstructure:"backend" validate:"oneof=none memory redis"`
	RedisAddr         string        `mapstructure:"redis-addr" validate:"required_if=Backend redis"`
	RedisPassword     string        `mapstructure:"redis-password" json:"-"`
	RedisPasswordFile string        `mapstructure:"redis-password-file"`
	TTL               time.Duration `mapstructure:"ttl" validate:"gte=0"`
}

type IndexConfig struct {
	Backend         string `mapstructure:"backend" validate:"oneof=memory sqlite pgvector"`
	Metric          string `mapstructure:"metric" validate:"oneof=cosine l2"`
	SQLitePath      string `mapstructure:"sqlite-path" validate:"required_if=Backend sqlite"`
	DatabaseURL     string `mapstructure:"database-url" json:"-"`
	DatabaseURLFile string `mapstructure:"database-url-file"`
	Collection      string `mapstructure:"collection" validate:"required"`
	Retain          bool   `mapstructure:"retain"`
	TopK            int    `mapstructure:"top-k" validate:"gte=1"`
}

type PipelineConfig struct {
	Concurrency     int           `mapstructure:"concurrency" validate:"gte=1,lte=64"`
	CallTimeout     time.Duration `mapstructure:"call-timeout" validate:"gt=0"`
	MaxResumeTokens int           `mapstructure:"max-resume-tokens" validate:"gte=0"`
	TokenEncoding   string        `mapstructure:"token-encoding"`
}

type StoreConfig struct {
	Backend         string `mapstructure:"backend" validate:"oneof=none memory sqlite postgres"`
	SQLitePath      string `mapstructure:"sqlite-path" validate:"required_if=Backend sqlite"`
	DatabaseURL     string `mapstructure:"database-url" json:"-"`
	DatabaseURLFile string `mapstructure:"database-url-file"`
}

type ServerConfig struct {
	Addr           string `mapstructure:"addr" validate:"required"`
	MaxUploadBytes int64  `mapstructure:"max-upload-bytes" validate:"gt=0"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "skillscreen ranks resumes against a job description with embeddings and an LLM judge",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	envs := map[string]string{
		"ai.gemini.api-key":              "GEMINI_API_KEY",
		"ai.gemini.api-key-file":         "GEMINI_API_KEY_FILE",
		"ai.openai.api-key":              "OPENAI_API_KEY",
		"ai.openai.api-key-file":         "OPENAI_API_KEY_FILE",
		"ai.openai.base-url":             "OPENAI_BASE_URL",
		"store.database-url":             "DATABASE_URL",
		"index.database-url":             "DATABASE_URL",
		"embedding.cache.redis-addr":     "REDIS_ADDR",
		"embedding.cache.redis-password": "REDIS_PASSWORD",
	}
	for key, env := range envs {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	setDefaults(viper.GetViper())

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is skillscreen.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("log-file", "", "write logs to this file instead of stderr")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("log-file", rootCmd.PersistentFlags().Lookup("log-file"))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.temperature", 0.3)
	v.SetDefault("ai.max-log-length", 200)
	v.SetDefault("ai.gemini.model", "gemini-2.5-flash")
	v.SetDefault("ai.openai.model", "gpt-4o-mini")

	v.SetDefault("embedding.provider", "gemini")
	v.SetDefault("embedding.max-tokens", 2048)
	v.SetDefault("embedding.cache.backend", "none")
	v.SetDefault("embedding.cache.ttl", 24*time.Hour)

	v.SetDefault("index.backend", "memory")
	v.SetDefault("index.metric", "cosine")
	v.SetDefault("index.sqlite-path", ".skillscreen/vectors.db")
	v.SetDefault("index.collection", "resumes")
	v.SetDefault("index.top-k", 10)

	v.SetDefault("scoring.llm-weight", pipeline.DefaultWeights.LLM)
	v.SetDefault("scoring.similarity-weight", pipeline.DefaultWeights.Similarity)

	v.SetDefault("pipeline.concurrency", 4)
	v.SetDefault("pipeline.call-timeout", 60*time.Second)
	v.SetDefault("pipeline.max-resume-tokens", 0)

	v.SetDefault("store.backend", "sqlite")
	v.SetDefault("store.sqlite-path", ".skillscreen/history.db")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.max-upload-bytes", 5<<20)
}

func initConfig() {
	// A missing .env is normal; the environment may already be populated.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("loading .env: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	// Defaults and environment are enough to run; only a broken file is fatal.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := validateConfig(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

func validateConfig(config *Config) error {
	if err := validator.New().Struct(config); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %v", fields)
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := config.Scoring.Validate(); err != nil {
		return fmt.Errorf("invalid config: scoring: %w", err)
	}
	return nil
}

// setup builds the logger and configuration shared by every command.
func setup() (*zap.Logger, *Config, error) {
	log, err := logger.New(logger.Options{
		JSON:   viper.GetBool("json"),
		Debug:  viper.GetBool("debug"),
		Output: viper.GetString("log-file"),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating a logger: %w", err)
	}

	config, err := getConfig()
	if err != nil {
		return log, nil, fmt.Errorf("getting a config: %w", err)
	}

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	log.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	return log, config, nil
}
