package sinks

import (
	"context"

	"github.com/rs/zerolog"

	"bridgesim/server/logging"
)

// Zerolog writes events through a zerolog logger at the matching level.
type Zerolog struct {
	logger zerolog.Logger
}

func NewZerolog(logger zerolog.Logger) *Zerolog {
	return &Zerolog{logger: logger.With().Str("component", "events").Logger()}
}

func (s *Zerolog) Write(event logging.Event) error {
	entry := s.logger.WithLevel(level(event.Severity)).
		Time("at", event.Time).
		Uint64("tick", event.Tick).
		Str("category", event.Category).
		Str("actor", event.Actor.ID).
		Str("actorKind", string(event.Actor.Kind))
	if len(event.Targets) > 0 {
		targets := zerolog.Arr()
		for _, target := range event.Targets {
			targets.Str(target.ID)
		}
		entry = entry.Array("targets", targets)
	}
	if event.Payload != nil {
		entry = entry.Interface("payload", event.Payload)
	}
	if len(event.Extra) > 0 {
		entry = entry.Fields(event.Extra)
	}
	entry.Msg(string(event.Type))
	return nil
}

func (s *Zerolog) Close(context.Context) error { return nil }

func level(severity logging.Severity) zerolog.Level {
	switch severity {
	case logging.SeverityDebug:
		return zerolog.DebugLevel
	case logging.SeverityWarn:
		return zerolog.WarnLevel
	case logging.SeverityError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
