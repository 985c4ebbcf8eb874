// Package hardlink inspects link counts of torrent content on disk, so
// filters can tell content still linked into a media library from content
// only the torrent client references.
package hardlink
