// Package syncer keeps a maindata mirror in step with a qBittorrent server.
//
// A Syncer polls its Source with the cursor of the last applied snapshot,
// merges each payload through a maindata.Merger and publishes the result.
// Observers registered with Subscribe receive every applied change set.
//
// Example:
//
//	fetcher := qbittorrent.NewSyncFetcher(cfg.Qbittorrent.URL, logger)
//	if err := fetcher.Login(ctx, cfg.Qbittorrent.Username, cfg.Qbittorrent.Password); err != nil {
//		return err
//	}
//
//	s := syncer.New(fetcher, logger, syncer.WithInterval(2*time.Second))
//	s.Subscribe(syncer.ObserverFunc(func(ctx context.Context, u *syncer.Update) error {
//		log.Printf("rid %d: %d torrents added", u.Changes.ResponseID, len(u.Changes.Torrents.Added))
//		return nil
//	}))
//
//	go s.Run(ctx)
package syncer
