package qbittorrent

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/autobrr/go-qbittorrent"

	"github.com/s0up4200/qbitsync/maindata"
)

// TorrentInfo contains information about a torrent
type TorrentInfo struct {
	Hash           string
	Name           string
	SavePath       string
	ContentPath    string
	State          string
	Size           int64
	Progress       float64
	DownloadedSize int64
	UploadedSize   int64
	Ratio          float64
	AddedOn        time.Time
	CompletionOn   time.Time
	Category       string
	Tags           []string
	IsSeeding      bool
}

// NewTorrentInfo converts an API torrent record
func NewTorrentInfo(t qbittorrent.Torrent) *TorrentInfo {
	info := &TorrentInfo{
		Hash:           t.Hash,
		Name:           t.Name,
		SavePath:       t.SavePath,
		ContentPath:    t.ContentPath,
		State:          string(t.State),
		Size:           t.Size,
		Progress:       t.Progress,
		DownloadedSize: t.Downloaded,
		UploadedSize:   t.Uploaded,
		Ratio:          t.Ratio,
		AddedOn:        unixTime(t.AddedOn),
		CompletionOn:   unixTime(t.CompletionOn),
		Category:       t.Category,
		Tags:           splitTags(t.Tags),
	}
	info.IsSeeding = info.IsActivelySeeding()
	return info
}

// TorrentsFromMirror converts every mirrored torrent, sorted by hash
func TorrentsFromMirror(m *maindata.Mirror) ([]*TorrentInfo, error) {
	if m == nil {
		return nil, nil
	}

	torrents, err := m.TypedTorrents()
	if err != nil {
		return nil, fmt.Errorf("failed to decode mirrored torrents: %w", err)
	}

	results := make([]*TorrentInfo, 0, len(torrents))
	for _, t := range torrents {
		results = append(results, NewTorrentInfo(t))
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Hash < results[j].Hash
	})
	return results, nil
}

// IsActivelySeeding checks if the torrent is actively seeding
func (t *TorrentInfo) IsActivelySeeding() bool {
	return t.State == "uploading" || t.State == "stalledUP" || t.State == "queuedUP" || t.State == "forcedUP"
}

// IsComplete reports whether every wanted piece has been downloaded
func (t *TorrentInfo) IsComplete() bool {
	return t.Progress >= 1
}

// HasTag checks for a tag, ignoring case
func (t *TorrentInfo) HasTag(tag string) bool {
	for _, candidate := range t.Tags {
		if strings.EqualFold(candidate, tag) {
			return true
		}
	}
	return false
}

// GetFullPath returns the full path to the torrent content
func (t *TorrentInfo) GetFullPath() string {
	if t.ContentPath != "" {
		return t.ContentPath
	}
	return path.Join(t.SavePath, t.Name)
}

// splitTags splits qBittorrent's comma separated tag list ("a, b")
func splitTags(raw string) []string {
	var tags []string
	for _, tag := range strings.Split(raw, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

func unixTime(sec int64) time.Time {
	if sec <= 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}
