// Package sshfiles lists remote directories over SFTP. Each call opens its
// own SSH connection with the caller's credentials and closes it before
// returning.
package sshfiles

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/pkg/sftp"

	"github.com/Leizi-the-Thunderbringer/Leizi-Terminal/internal/logutil"
	"github.com/Leizi-the-Thunderbringer/Leizi-Terminal/internal/transport"
)

// DefaultPath is listed when the request names no path.
const DefaultPath = "."

// FileEntry describes one directory entry.
type FileEntry struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Mode     string    `json:"mode"`
	IsDir    bool      `json:"is_dir"`
	Modified time.Time `json:"modified"`
}

// ListDirectory returns the entries of path on the SSH host in p, sorted by
// name.
func ListDirectory(ctx context.Context, p *transport.SSHParams, path string, opts transport.Options) ([]FileEntry, error) {
	if path == "" {
		path = DefaultPath
	}
	start := time.Now()

	client, err := transport.DialSSHClient(ctx, p, opts)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	sc, err := sftp.NewClient(client)
	if err != nil {
		return nil, fmt.Errorf("start sftp: %w", err)
	}
	defer sc.Close()

	infos, err := sc.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("list directory %s: %w", path, err)
	}

	entries := make([]FileEntry, 0, len(infos))
	for _, fi := range infos {
		entries = append(entries, FileEntry{
			Name:     fi.Name(),
			Size:     fi.Size(),
			Mode:     fi.Mode().String(),
			IsDir:    fi.IsDir(),
			Modified: fi.ModTime(),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	log.Printf("[sshfiles] ListDirectory %s on %s: %d entries in %s",
		logutil.SanitizeForLog(path), logutil.SanitizeForLog(p.Target()), len(entries), time.Since(start))
	return entries, nil
}

// Names returns the entry names in order.
func Names(entries []FileEntry) []string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}
