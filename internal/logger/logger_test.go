package logger

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type LoggerTestSuite struct {
	suite.Suite
}

func TestLoggerSuite(t *testing.T) {
	suite.Run(t, new(LoggerTestSuite))
}

func (suite *LoggerTestSuite) TestNewLogger() {
	logger, err := NewLogger("debug")
	suite.NoError(err)
	suite.NotNil(logger.Logger)
	suite.True(logger.Core().Enabled(-1)) // debug
}

func (suite *LoggerTestSuite) TestUnknownLevelFallsBackToInfo() {
	logger, err := NewLogger("loud")
	suite.NoError(err)
	suite.False(logger.Core().Enabled(-1))
	suite.True(logger.Core().Enabled(0))
}

func (suite *LoggerTestSuite) TestSyncNilLogger() {
	logger := &Logger{Logger: nil}
	suite.NoError(logger.Sync())
	suite.NotNil(logger.Component("engine"))
}

func (suite *LoggerTestSuite) TestComponent() {
	logger := NewNop()
	suite.NotPanics(func() {
		logger.Component("engine").Info("hello")
	})
}
