package logger

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGlobalLogger(t *testing.T) {
	custom, err := NewZapLogger(Config{Level: "debug"})
	require.NoError(t, err)

	SetGlobalLogger(custom)
	assert.Same(t, custom, GetGlobalLogger())
}

func TestGetGlobalLoggerInstallsFallback(t *testing.T) {
	SetGlobalLogger(nil)

	assert.NotNil(t, GetGlobalLogger())
}

func TestGetGlobalLoggerConcurrentInit(t *testing.T) {
	SetGlobalLogger(nil)

	loggers := make([]*ZapLogger, 16)
	var wg sync.WaitGroup
	for i := range loggers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			loggers[i] = GetGlobalLogger()
		}(i)
	}
	wg.Wait()

	for _, l := range loggers {
		assert.Same(t, loggers[0], l)
	}
}
