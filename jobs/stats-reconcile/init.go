package main

import (
	"log/slog"
	"os"

	"github.com/case-framework/survey-engine/pkg/db"
	"github.com/case-framework/survey-engine/pkg/db/documents"
	"github.com/case-framework/survey-engine/pkg/docstore"
	"github.com/case-framework/survey-engine/pkg/survey/stats"
	"github.com/case-framework/survey-engine/pkg/utils"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Environment variables
const (
	ENV_CONFIG_FILE_PATH = "CONFIG_FILE_PATH"

	// Variables to override "secrets" in the config file
	ENV_SURVEY_DB_USERNAME = "SURVEY_DB_USERNAME"
	ENV_SURVEY_DB_PASSWORD = "SURVEY_DB_PASSWORD"
)

type config struct {
	// Logging configs
	Logging utils.LoggerConfig `json:"logging" yaml:"logging"`

	// DB configs
	DBConfigs struct {
		SurveyDB db.DBConfigYaml `json:"survey_db" yaml:"survey_db"`
	} `json:"db_configs" yaml:"db_configs"`

	SurveyIDs []string `json:"survey_ids" yaml:"survey_ids"`

	ReconcileConfig struct {
		// Dates are reconciled as given; without them the last DaysBack days,
		// today included, are.
		Dates    []string `json:"dates" yaml:"dates"`
		DaysBack int      `json:"days_back" yaml:"days_back"`
		Timeout  string   `json:"timeout" yaml:"timeout"`
	} `json:"reconcile_config" yaml:"reconcile_config"`
}

var conf config

var (
	documentDBService *documents.DocumentDBService
	statsAggregator   *stats.Aggregator
)

func init() {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			panic(err)
		}
	}

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

	// init db
	initDBs()
}

func secretsOverride() {
	if dbUsername := os.Getenv(ENV_SURVEY_DB_USERNAME); dbUsername != "" {
		conf.DBConfigs.SurveyDB.Username = dbUsername
	}

	if dbPassword := os.Getenv(ENV_SURVEY_DB_PASSWORD); dbPassword != "" {
		conf.DBConfigs.SurveyDB.Password = dbPassword
	}
}

func initDBs() {
	var err error
	documentDBService, err = documents.NewDocumentDBService(db.DBConfigFromYamlObj(conf.DBConfigs.SurveyDB))
	if err != nil {
		slog.Error("Error connecting to Survey DB", slog.String("error", err.Error()))
		panic(err)
	}
	statsAggregator = stats.NewAggregator(docstore.NewGateway(documentDBService))
}
