// Package qbittorrent provides the transport side of qbitsync: fetching sync
// payloads and querying the qBittorrent Web API.
//
// Two clients live here. SyncFetcher issues raw /api/v2/sync/maindata requests
// with go-resty and hands back the undecoded body, so the maindata package can
// detect which categories encoding the server used. Client wraps the
// autobrr/go-qbittorrent library for typed calls such as listing torrents or
// reading the Web API version.
//
// # Features
//
//   - Raw maindata polling keyed by response id
//   - One-shot cookie login (no session refresh, no retries)
//   - Web API version detection and the categories encoding it implies
//   - Conversion of mirrored torrents into TorrentInfo values
//
// # Usage
//
//	fetcher := qbittorrent.NewSyncFetcher(url, logger, qbittorrent.WithTimeout(10*time.Second))
//	if err := fetcher.Login(ctx, username, password); err != nil {
//	    log.Fatal(err)
//	}
//
//	body, err := fetcher.Fetch(ctx, 0) // full state
//	snap, err := maindata.DecodeSnapshot(body)
package qbittorrent
