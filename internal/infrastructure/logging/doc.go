// Package logging provides structured logging using uber/zap.
//
// Two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Components get a named child logger so relay, transport and page logs can
// be told apart:
//
//	logger := logging.NewFromSettings(cfg.Logging.Level, cfg.Logging.Development)
//	relayLog := logger.Component("relay")
//	relayLog.Debug("ignoring envelope", zap.String("endpoint", epID))
package logging
