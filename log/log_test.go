package log

import (
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/squareup/winagg/errors"
	"github.com/stretchr/testify/require"
)

func TestConfigure(t *testing.T) {
	defer func() {
		log.SetLevel(log.InfoLevel)
		log.SetFormatter(&log.TextFormatter{})
	}()
	cfg := Config{Format: "json", Level: "debug", File: "-"}
	require.NoError(t, cfg.Configure())
	require.Equal(t, log.DebugLevel, log.GetLevel())
	_, ok := log.StandardLogger().Formatter.(*log.JSONFormatter)
	require.True(t, ok)
}

func TestConfigureInvalid(t *testing.T) {
	cfg := Config{Format: "xml"}
	err := cfg.Configure()
	require.True(t, errors.HasCode(err, errors.InvalidConfiguration))

	cfg = Config{Format: "text", Level: "loud"}
	err = cfg.Configure()
	require.True(t, errors.HasCode(err, errors.InvalidConfiguration))
}

func TestConfigureFile(t *testing.T) {
	out := log.StandardLogger().Out
	defer log.SetOutput(out)
	cfg := Config{File: filepath.Join(t.TempDir(), "winagg.log")}
	require.NoError(t, cfg.Configure())
}
