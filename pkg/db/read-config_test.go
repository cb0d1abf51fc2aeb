package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDBConfigFromYamlObj(t *testing.T) {
	t.Run("with credentials", func(t *testing.T) {
		conf := DBConfigFromYamlObj(DBConfigYaml{
			ConnectionStr:    "localhost:27017",
			Username:         "user",
			Password:         "pw",
			ConnectionPrefix: "+srv",
			Timeout:          10,
			DBNamePrefix:     "test_",
			RunIndexCreation: true,
		})
		assert.Equal(t, "mongodb+srv://user:pw@localhost:27017", conf.URI)
		assert.Equal(t, "test_surveyDB", conf.DBName)
		assert.Equal(t, 10, conf.Timeout)
		assert.Equal(t, DEFAULT_IDLE_CONN_TIMEOUT, conf.IdleConnTimeout)
		assert.Equal(t, uint64(DEFAULT_MAX_POOL_SIZE), conf.MaxPoolSize)
		assert.True(t, conf.RunIndexCreation)
	})

	t.Run("without credentials", func(t *testing.T) {
		conf := DBConfigFromYamlObj(DBConfigYaml{ConnectionStr: "db:27017"})
		assert.Equal(t, "mongodb://db:27017", conf.URI)
		assert.Equal(t, DEFAULT_TIMEOUT, conf.Timeout)
		assert.Equal(t, SURVEY_DB_NAME, conf.DBName)
	})

	t.Run("custom db name", func(t *testing.T) {
		conf := DBConfigFromYamlObj(DBConfigYaml{ConnectionStr: "db:27017", DBName: "feedback", DBNamePrefix: "dev_"})
		assert.Equal(t, "dev_feedback", conf.DBName)
	})

	t.Run("missing connection string", func(t *testing.T) {
		assert.Panics(t, func() { DBConfigFromYamlObj(DBConfigYaml{}) })
	})
}
