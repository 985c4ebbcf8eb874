// Package service wires configuration, the qBittorrent transports, the sync
// loop and the named filters into one runnable unit.
//
// Example:
//
//	cfg, err := config.Load("")
//	if err != nil {
//		return err
//	}
//	logger := config.NewLogger(cfg.Logging)
//
//	svc, err := service.New(ctx, cfg, logger)
//	if err != nil {
//		return err
//	}
//	go svc.Run(ctx)
//
//	hashes, err := svc.Matches(ctx, "stale")
package service
