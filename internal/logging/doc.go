// Package logging provides structured logging for the tagforge engines.
//
// It wraps Zap with a small koanf-friendly config surface so the CLI and
// both engines share one logger setup. Handlers receive child loggers via
// Named, keeping rule/handler names attached to every skip and drop they
// report.
//
// Create a logger from config:
//
//	cfg := logging.NewDefaultConfig()
//	logger, err := logging.NewLogger(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
// Tests use logging.NewNop() to silence output.
package logging
