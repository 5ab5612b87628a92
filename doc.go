// Package edgelog provides structured logging for web applications running
// on serverless and edge platforms. Events are shipped to a hosted ingestion
// endpoint when credentials are configured and printed to the console
// otherwise.
//
// Key features
//   - Hierarchical loggers: With/WithArgs/WithRequest derive children that
//     copy and extend their parent's configuration
//   - Typed call-site arguments: Fields, Err(err) and Raw(v)
//   - Platform metadata (Vercel, Netlify, AWS Lambda) attached to events
//   - Best-effort delivery: logging never blocks on the network and never
//     returns errors or panics into the caller
//   - Console fallback in plain, ANSI or browser (CSS) form, optionally
//     copied, without colors, to a rotating file
//
// Typical usage
//
//	cfg, err := edgelog.LoadConfig(nil)
//	if err != nil { panic(err) }
//	lc, err := edgelog.NewConfigurator(cfg)
//	if err != nil { panic(err) }
//	defer lc.Close()
//
//	log := lc.Logger(edgelog.LoggerConfig{Source: "edge"})
//	log.Info("processed", edgelog.Fields{"user_id": id})
//	req := log.WithArgs(edgelog.Fields{"request_id": rid})
//	req.Error("failed", edgelog.Err(err))
//	req.Flush(ctx)
package edgelog
