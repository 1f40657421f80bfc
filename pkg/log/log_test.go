package log

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoggingBeforeInitDoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		Debugf("debug %d", 1)
		Info("info")
		Infof("info %s", "x")
		Infow("infow", "key", "value")
		Warnf("warn %v", true)
		Error("error", errors.New("boom"))
		Errorf("error %d", 2)
		Sync()
	})
}

func TestInitReplacesLogger(t *testing.T) {
	Init("debug", "console", "")
	assert.NotNil(t, sugar)
	assert.NotPanics(t, func() {
		Infof("after init %d", 1)
	})
}
