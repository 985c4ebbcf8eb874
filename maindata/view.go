package maindata

import (
	"encoding/json"
	"fmt"

	"github.com/autobrr/go-qbittorrent"
)

// Decode unmarshals the fields into v, which is usually one of the
// go-qbittorrent response types. Keys v does not declare are ignored.
func (f Fields) Decode(v any) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to encode fields: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode fields: %w", err)
	}
	return nil
}

// Torrent returns the mirrored torrent as a typed record. The sync payload
// keys torrents by hash and omits the hash from the record, so it is filled
// in from the key.
func (m *Mirror) Torrent(hash string) (qbittorrent.Torrent, bool, error) {
	fields, ok := m.Torrents[hash]
	if !ok {
		return qbittorrent.Torrent{}, false, nil
	}

	var t qbittorrent.Torrent
	if err := fields.Decode(&t); err != nil {
		return qbittorrent.Torrent{}, true, fmt.Errorf("torrent %s: %w", hash, err)
	}
	t.Hash = hash
	return t, true, nil
}

// TypedTorrents decodes every mirrored torrent. The result is keyed by hash.
func (m *Mirror) TypedTorrents() (map[string]qbittorrent.Torrent, error) {
	out := make(map[string]qbittorrent.Torrent, len(m.Torrents))
	for hash := range m.Torrents {
		t, _, err := m.Torrent(hash)
		if err != nil {
			return nil, err
		}
		out[hash] = t
	}
	return out, nil
}

// TypedServerState decodes the accumulated server metrics.
func (m *Mirror) TypedServerState() (qbittorrent.ServerState, error) {
	var state qbittorrent.ServerState
	if err := m.ServerState.Decode(&state); err != nil {
		return qbittorrent.ServerState{}, fmt.Errorf("server state: %w", err)
	}
	return state, nil
}
