package main

import (
	"log/slog"
	"os"

	"github.com/case-framework/survey-engine/pkg/apihelpers"
	"github.com/case-framework/survey-engine/pkg/cache"
	"github.com/case-framework/survey-engine/pkg/db"
	"github.com/case-framework/survey-engine/pkg/db/documents"
	"github.com/case-framework/survey-engine/pkg/docstore"
	"github.com/case-framework/survey-engine/pkg/i18n"
	"github.com/case-framework/survey-engine/pkg/survey"
	"github.com/case-framework/survey-engine/pkg/survey/session"
	"github.com/case-framework/survey-engine/pkg/survey/stats"
	"github.com/case-framework/survey-engine/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Environment variables
const (
	ENV_CONFIG_FILE_PATH = "CONFIG_FILE_PATH"
	ENV_DOTENV_PATH      = "DOTENV_PATH"

	// Variables to override "secrets" in the config file
	ENV_SURVEY_DB_USERNAME = "SURVEY_DB_USERNAME"
	ENV_SURVEY_DB_PASSWORD = "SURVEY_DB_PASSWORD"
	ENV_REDIS_PASSWORD     = "REDIS_PASSWORD"
	ENV_STATS_API_KEY      = "STATS_API_KEY"
)

type SurveyApiConfig struct {
	// Logging configs
	Logging utils.LoggerConfig `json:"logging" yaml:"logging"`

	// Gin configs
	GinConfig struct {
		DebugMode    bool     `json:"debug_mode" yaml:"debug_mode"`
		AllowOrigins []string `json:"allow_origins" yaml:"allow_origins"`
		Port         string   `json:"port" yaml:"port"`

		// Mutual TLS configs
		MTLS struct {
			Use              bool                        `json:"use" yaml:"use"`
			CertificatePaths apihelpers.CertificatePaths `json:"certificate_paths" yaml:"certificate_paths"`
		} `json:"mtls" yaml:"mtls"`
	} `json:"gin_config" yaml:"gin_config"`

	// DB configs
	DBConfigs struct {
		SurveyDB db.DBConfigYaml `json:"survey_db" yaml:"survey_db"`
	} `json:"db_configs" yaml:"db_configs"`

	CacheConfig struct {
		Redis *cache.RedisConfig `json:"redis" yaml:"redis"`
	} `json:"cache_config" yaml:"cache_config"`

	SurveyConfig struct {
		AutoSaveDelay      string   `json:"auto_save_delay" yaml:"auto_save_delay"`
		SaveTimeout        string   `json:"save_timeout" yaml:"save_timeout"`
		SessionIdleTimeout string   `json:"session_idle_timeout" yaml:"session_idle_timeout"`
		EvictionInterval   string   `json:"eviction_interval" yaml:"eviction_interval"`
		DefaultLanguage    string   `json:"default_language" yaml:"default_language"`
		UseInMemoryStore   bool     `json:"use_in_memory_store" yaml:"use_in_memory_store"`
		StatsAPIKeys       []string `json:"stats_api_keys" yaml:"stats_api_keys"`
		// keys of named stats clients are read from STATS_API_KEY_FOR_{NAME}
		StatsClients       []string `json:"stats_clients" yaml:"stats_clients"`
	} `json:"survey_config" yaml:"survey_config"`
}

var (
	conf SurveyApiConfig

	documentDBService *documents.DocumentDBService
	definitionCache   *cache.SurveyDefinitionCache
	gateway           *docstore.Gateway
	repository        *survey.Repository
	statsAggregator   *stats.Aggregator
	registry          *session.Registry
)

func init() {
	loadDotEnv()

	// Read config from file
	yamlFile, err := os.ReadFile(os.Getenv(ENV_CONFIG_FILE_PATH))
	if err != nil {
		panic(err)
	}

	err = yaml.UnmarshalStrict(yamlFile, &conf)
	if err != nil {
		panic(err)
	}

	// Init logger:
	utils.InitLogger(conf.Logging)

	// Override secrets from environment variables
	secretsOverride()

	if !conf.GinConfig.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	initStore()
	initCache()
	initSurveyEngine()
}

// loadDotEnv reads a .env file when present. Variables already set in the
// environment win.
func loadDotEnv() {
	path := os.Getenv(ENV_DOTENV_PATH)
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := godotenv.Load(path); err != nil {
		panic(err)
	}
}

func secretsOverride() {
	if dbUsername := os.Getenv(ENV_SURVEY_DB_USERNAME); dbUsername != "" {
		conf.DBConfigs.SurveyDB.Username = dbUsername
	}

	if dbPassword := os.Getenv(ENV_SURVEY_DB_PASSWORD); dbPassword != "" {
		conf.DBConfigs.SurveyDB.Password = dbPassword
	}

	if redisPassword := os.Getenv(ENV_REDIS_PASSWORD); redisPassword != "" && conf.CacheConfig.Redis != nil {
		conf.CacheConfig.Redis.Password = redisPassword
	}

	if apiKey := os.Getenv(ENV_STATS_API_KEY); apiKey != "" {
		conf.SurveyConfig.StatsAPIKeys = append(conf.SurveyConfig.StatsAPIKeys, apiKey)
	}

	for _, client := range conf.SurveyConfig.StatsClients {
		envName := utils.GenerateStatsAPIKeyEnvVarName(client)
		apiKey := os.Getenv(envName)
		if apiKey == "" {
			slog.Warn("no API key set for stats client", slog.String("client", client), slog.String("envVar", envName))
			continue
		}
		conf.SurveyConfig.StatsAPIKeys = append(conf.SurveyConfig.StatsAPIKeys, apiKey)
	}
}

func initStore() {
	if conf.SurveyConfig.UseInMemoryStore {
		slog.Warn("using in-memory document store, data is lost on restart")
		gateway = docstore.NewGateway(docstore.NewMemoryStore())
		return
	}

	var err error
	documentDBService, err = documents.NewDocumentDBService(db.DBConfigFromYamlObj(conf.DBConfigs.SurveyDB))
	if err != nil {
		slog.Error("Error connecting to Survey DB", slog.String("error", err.Error()))
		panic(err)
	}
	gateway = docstore.NewGateway(documentDBService)
}

func initCache() {
	if conf.CacheConfig.Redis == nil || conf.CacheConfig.Redis.Address == "" {
		return
	}

	var err error
	definitionCache, err = cache.NewSurveyDefinitionCache(
		*conf.CacheConfig.Redis,
		cache.WithTTL(utils.ParseDurationOrDefault(conf.CacheConfig.Redis.TTL, cache.DEFAULT_TTL)),
	)
	if err != nil {
		// surveys are then read from the document store only
		slog.Error("Error connecting to Redis, survey cache disabled", slog.String("error", err.Error()))
		definitionCache = nil
	}
}

func initSurveyEngine() {
	repoOpts := []survey.RepositoryOption{}
	if definitionCache != nil {
		repoOpts = append(repoOpts, survey.WithDefinitionCache(definitionCache))
	}
	repository = survey.NewRepository(gateway, repoOpts...)
	statsAggregator = stats.NewAggregator(gateway)

	autoSaveDelay := utils.ParseDurationOrDefault(conf.SurveyConfig.AutoSaveDelay, session.DEFAULT_AUTO_SAVE_DELAY)
	saveTimeout := utils.ParseDurationOrDefault(conf.SurveyConfig.SaveTimeout, session.DEFAULT_SAVE_TIMEOUT)
	idleTimeout := utils.ParseDurationOrDefault(conf.SurveyConfig.SessionIdleTimeout, session.DEFAULT_IDLE_TIMEOUT)

	registry = session.NewRegistry(func() *session.Engine {
		return session.NewEngine(
			repository,
			statsAggregator,
			session.WithAutoSaveDelay(autoSaveDelay),
			session.WithSaveTimeout(saveTimeout),
		)
	}, idleTimeout)

	if conf.SurveyConfig.DefaultLanguage != "" && !i18n.IsSupported(conf.SurveyConfig.DefaultLanguage) {
		slog.Warn("unsupported default language, using "+i18n.DEFAULT_LANGUAGE, slog.String("language", conf.SurveyConfig.DefaultLanguage))
		conf.SurveyConfig.DefaultLanguage = i18n.DEFAULT_LANGUAGE
	}

	slog.Info("survey engine ready",
		slog.String("autoSaveDelay", autoSaveDelay.String()),
		slog.String("sessionIdleTimeout", idleTimeout.String()),
		slog.Bool("definitionCache", definitionCache != nil),
	)
}
