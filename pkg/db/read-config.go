package db

import (
	"fmt"
	"log/slog"
)

const (
	DEFAULT_TIMEOUT           = 30
	DEFAULT_IDLE_CONN_TIMEOUT = 45
	DEFAULT_MAX_POOL_SIZE     = 8

	SURVEY_DB_NAME = "surveyDB"
)

// DBConfig is the resolved connection config of a document database.
type DBConfig struct {
	URI              string
	DBName           string
	Timeout          int
	NoCursorTimeout  bool
	MaxPoolSize      uint64
	IdleConnTimeout  int
	RunIndexCreation bool
}

// DBConfigYaml is the db section of a service config file. Credentials are
// usually injected from the environment.
type DBConfigYaml struct {
	ConnectionStr      string `yaml:"connection_str"`
	Username           string `yaml:"username"`
	Password           string `yaml:"password"`
	ConnectionPrefix   string `yaml:"connection_prefix"`
	Timeout            int    `yaml:"timeout"`
	IdleConnTimeout    int    `yaml:"idle_conn_timeout"`
	MaxPoolSize        int    `yaml:"max_pool_size"`
	UseNoCursorTimeout bool   `yaml:"use_no_cursor_timeout"`
	DBName             string `yaml:"db_name"`
	DBNamePrefix       string `yaml:"db_name_prefix"`
	RunIndexCreation   bool   `yaml:"run_index_creation"`
}

// DBConfigFromYamlObj builds the connection config for the survey database.
// Missing numeric settings fall back to defaults.
func DBConfigFromYamlObj(yamlObj DBConfigYaml) DBConfig {
	if yamlObj.ConnectionStr == "" {
		slog.Error("couldn't read DB connection string")
		panic("couldn't read DB connection string")
	}

	credentials := ""
	if yamlObj.Username != "" {
		credentials = fmt.Sprintf("%s:%s@", yamlObj.Username, yamlObj.Password)
	}
	URI := fmt.Sprintf(`mongodb%s://%s%s`, yamlObj.ConnectionPrefix, credentials, yamlObj.ConnectionStr)

	timeout := yamlObj.Timeout
	if timeout <= 0 {
		timeout = DEFAULT_TIMEOUT
	}
	idleConnTimeout := yamlObj.IdleConnTimeout
	if idleConnTimeout <= 0 {
		idleConnTimeout = DEFAULT_IDLE_CONN_TIMEOUT
	}
	maxPoolSize := yamlObj.MaxPoolSize
	if maxPoolSize <= 0 {
		maxPoolSize = DEFAULT_MAX_POOL_SIZE
	}

	dbName := yamlObj.DBName
	if dbName == "" {
		dbName = SURVEY_DB_NAME
	}

	return DBConfig{
		URI:              URI,
		DBName:           yamlObj.DBNamePrefix + dbName,
		Timeout:          timeout,
		IdleConnTimeout:  idleConnTimeout,
		MaxPoolSize:      uint64(maxPoolSize),
		NoCursorTimeout:  yamlObj.UseNoCursorTimeout,
		RunIndexCreation: yamlObj.RunIndexCreation,
	}
}
