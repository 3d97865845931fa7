// Package sinks holds the event destinations a Router can fan out to.
package sinks

import (
	"fmt"

	"github.com/rs/zerolog"

	"bridgesim/server/logging"
)

// FromConfig builds the sinks named in cfg.EnabledSinks.
func FromConfig(cfg logging.Config, logger zerolog.Logger) ([]logging.NamedSink, error) {
	named := make([]logging.NamedSink, 0, len(cfg.EnabledSinks))
	for _, name := range cfg.EnabledSinks {
		switch name {
		case "zerolog":
			named = append(named, logging.NamedSink{Name: name, Sink: NewZerolog(logger)})
		case "json":
			sink, err := OpenJSON(cfg.JSON.FilePath, cfg.JSON.FlushInterval)
			if err != nil {
				return nil, err
			}
			named = append(named, logging.NamedSink{Name: name, Sink: sink})
		case "memory":
			named = append(named, logging.NamedSink{Name: name, Sink: NewMemorySink()})
		default:
			return nil, fmt.Errorf("unknown log sink %q", name)
		}
	}
	return named, nil
}
