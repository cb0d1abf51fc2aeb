package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/case-framework/survey-engine/pkg/cache"
	"github.com/case-framework/survey-engine/pkg/db"
	"github.com/case-framework/survey-engine/pkg/db/documents"
	"github.com/case-framework/survey-engine/pkg/docstore"
	"github.com/case-framework/survey-engine/pkg/survey"
	"github.com/case-framework/survey-engine/pkg/utils"
	"gopkg.in/yaml.v2"
)

// Environment variables
const (
	ENV_CONFIG_FILE_PATH = "CONFIG_FILE_PATH"

	// Variables to override "secrets" in the config file
	ENV_SURVEY_DB_USERNAME = "SURVEY_DB_USERNAME"
	ENV_SURVEY_DB_PASSWORD = "SURVEY_DB_PASSWORD"
	ENV_REDIS_PASSWORD     = "REDIS_PASSWORD"
)

type config struct {
	// Logging configs
	Logging utils.LoggerConfig `json:"logging" yaml:"logging"`

	// DB configs
	DBConfigs struct {
		SurveyDB db.DBConfigYaml `json:"survey_db" yaml:"survey_db"`
	} `json:"db_configs" yaml:"db_configs"`

	CacheConfig struct {
		Redis *cache.RedisConfig `json:"redis" yaml:"redis"`
	} `json:"cache_config" yaml:"cache_config"`

	// Task configurations
	TaskConfigs TaskConfigs `json:"task_configs" yaml:"task_configs"`
}

type TaskConfigs struct {
	DropIndexes   DropIndexesMode `json:"drop_indexes" yaml:"drop_indexes"`
	CreateIndexes bool            `json:"create_indexes" yaml:"create_indexes"`
	GetIndexes    bool            `json:"get_indexes" yaml:"get_indexes"`

	// JSON survey definitions written to the survey DB
	ImportSurveys []string `json:"import_surveys" yaml:"import_surveys"`
}

type DropIndexesMode string

const (
	DropIndexesModeAll      DropIndexesMode = "all"
	DropIndexesModeDefaults DropIndexesMode = "defaults"
	DropIndexesModeNone     DropIndexesMode = "none"
)

func (mode DropIndexesMode) IsValid() bool {
	switch mode {
	case DropIndexesModeAll, DropIndexesModeDefaults, DropIndexesModeNone, "":
		return true
	default:
		return false
	}
}

func validateConfig() {
	if !conf.TaskConfigs.DropIndexes.IsValid() {
		panic(fmt.Sprintf("invalid drop indexes mode for task_configs.drop_indexes: %q. Use one of: %v", conf.TaskConfigs.DropIndexes, []DropIndexesMode{DropIndexesModeAll, DropIndexesModeDefaults, DropIndexesModeNone}))
	}
}

var conf config

var (
	documentDBService *documents.DocumentDBService
	definitionCache   *cache.SurveyDefinitionCache
	repository        *survey.Repository
)

func init() {
	// Read config from file
	yamlFile, err := os.ReadFile(os.Getenv(ENV_CONFIG_FILE_PATH))
	if err != nil {
		panic(err)
	}

	err = yaml.UnmarshalStrict(yamlFile, &conf)
	if err != nil {
		panic(err)
	}

	validateConfig()

	// Init logger:
	utils.InitLogger(conf.Logging)

	// Override secrets from environment variables
	secretsOverride()

	initDBs()
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
}

func initDBs() {
	dbConf := db.DBConfigFromYamlObj(conf.DBConfigs.SurveyDB)
	// index handling is this job's task, not a side effect of connecting
	dbConf.RunIndexCreation = false

	var err error
	documentDBService, err = documents.NewDocumentDBService(dbConf)
	if err != nil {
		slog.Error("Error connecting to Survey DB", slog.String("error", err.Error()))
		panic(err)
	}

	repoOpts := []survey.RepositoryOption{}
	if conf.CacheConfig.Redis != nil && conf.CacheConfig.Redis.Address != "" && len(conf.TaskConfigs.ImportSurveys) > 0 {
		definitionCache, err = cache.NewSurveyDefinitionCache(
			*conf.CacheConfig.Redis,
			cache.WithTTL(utils.ParseDurationOrDefault(conf.CacheConfig.Redis.TTL, cache.DEFAULT_TTL)),
		)
		if err != nil {
			slog.Error("Error connecting to Redis, cached surveys are not refreshed", slog.String("error", err.Error()))
		} else {
			repoOpts = append(repoOpts, survey.WithDefinitionCache(definitionCache))
		}
	}
	repository = survey.NewRepository(docstore.NewGateway(documentDBService), repoOpts...)
}
