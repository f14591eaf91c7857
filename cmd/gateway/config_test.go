package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("defaults without a file", func(t *testing.T) {
		c, err := loadConfig("")
		require.Nil(t, err)
		assert.Equal(t, "0.0.0.0:6000", c.Address)
		assert.Equal(t, "disk", c.Storage.Type)
		assert.Equal(t, "/dhruv_PV_dir", c.Storage.Root)
		assert.Equal(t, "http://container2-service:90/sum", c.Calculator.URL)
		assert.Equal(t, 10, c.Calculator.TimeoutSeconds)
		assert.EqualValues(t, 0, c.Calculator.RateLimit)
	})
	t.Run("file values", func(t *testing.T) {
		// rjson allows unquoted keys, comments and trailing commas.
		path := writeConfig(t, `{
			address: "127.0.0.1:7000",
			debug: true,
			storage: {type: "bolt", bolt_path: "/tmp/files.db"},
			calculator: {url: "http://localhost:90/sum", timeout_seconds: 3, rate_limit: 5,},
		}`)
		c, err := loadConfig(path)
		require.Nil(t, err)
		assert.Equal(t, "127.0.0.1:7000", c.Address)
		assert.True(t, c.Debug)
		assert.Equal(t, "bolt", c.Storage.Type)
		assert.Equal(t, "/tmp/files.db", c.Storage.BoltPath)
		assert.Equal(t, "/dhruv_PV_dir", c.Storage.Root)
		assert.Equal(t, "http://localhost:90/sum", c.Calculator.URL)
		assert.Equal(t, 3, c.Calculator.TimeoutSeconds)
		assert.EqualValues(t, 5, c.Calculator.RateLimit)
	})
	t.Run("environment overrides the file", func(t *testing.T) {
		path := writeConfig(t, `{storage: {root: "/from/file"}}`)
		t.Setenv("GATEWAY_STORAGE_ROOT", "/from/env")
		t.Setenv("GATEWAY_CALCULATOR_URL", "http://calc:90/sum")
		c, err := loadConfig(path)
		require.Nil(t, err)
		assert.Equal(t, "/from/env", c.Storage.Root)
		assert.Equal(t, "http://calc:90/sum", c.Calculator.URL)
	})
	t.Run("bad environment value", func(t *testing.T) {
		t.Setenv("GATEWAY_CALCULATOR_TIMEOUT_SECONDS", "ten")
		_, err := loadConfig("")
		require.NotNil(t, err)
		assert.True(t, strings.HasPrefix(err.Error(), "parse env:"), err.Error())
	})
	t.Run("missing file", func(t *testing.T) {
		_, err := loadConfig(filepath.Join(t.TempDir(), "nope.config"))
		assert.NotNil(t, err)
	})
	t.Run("s3 requires a bucket", func(t *testing.T) {
		t.Setenv("GATEWAY_STORAGE_TYPE", "s3")
		_, err := loadConfig("")
		assert.NotNil(t, err)
	})
	t.Run("unknown storage type", func(t *testing.T) {
		t.Setenv("GATEWAY_STORAGE_TYPE", "tape")
		_, err := loadConfig("")
		assert.NotNil(t, err)
	})
}

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "gateway.config")
	require.Nil(t, os.WriteFile(path, []byte(content), 0600))
	return path
}
