package libevents

import (
	"fmt"

	"github.com/rs/zerolog"
)

type zerologLogger struct {
	logger zerolog.Logger
}

// NewZerologLogger adapts a zerolog.Logger. Fields become zerolog context fields.
func NewZerologLogger(l zerolog.Logger) Logger {
	return zerologLogger{logger: l}
}

func (l zerologLogger) WithField(key string, value any) Logger {
	return zerologLogger{logger: l.logger.With().Interface(key, value).Logger()}
}

func (l zerologLogger) Debug(args ...any) { l.logger.Debug().Msg(fmt.Sprint(args...)) }

func (l zerologLogger) Debugf(format string, args ...any) { l.logger.Debug().Msgf(format, args...) }

func (l zerologLogger) Info(args ...any) { l.logger.Info().Msg(fmt.Sprint(args...)) }

func (l zerologLogger) Infof(format string, args ...any) { l.logger.Info().Msgf(format, args...) }

func (l zerologLogger) Warn(args ...any) { l.logger.Warn().Msg(fmt.Sprint(args...)) }

func (l zerologLogger) Warnf(format string, args ...any) { l.logger.Warn().Msgf(format, args...) }

func (l zerologLogger) Error(args ...any) { l.logger.Error().Msg(fmt.Sprint(args...)) }

func (l zerologLogger) Errorf(format string, args ...any) { l.logger.Error().Msgf(format, args...) }
