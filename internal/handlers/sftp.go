package handlers

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/Leizi-the-Thunderbringer/Leizi-Terminal/internal/logutil"
	"github.com/Leizi-the-Thunderbringer/Leizi-Terminal/internal/sshfiles"
	"github.com/Leizi-the-Thunderbringer/Leizi-Terminal/internal/transport"
)

type sftpListResponse struct {
	Files   []string             `json:"files"`
	Entries []sshfiles.FileEntry `json:"entries"`
}

// ListSFTPDirectory lists a remote directory. The body is the SSH connection
// parameters plus an optional "path". Every failure is reported as a 500
// with {"error": message}.
func ListSFTPDirectory(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDocumentBytes))
	if err != nil {
		writeListError(w, err)
		return
	}

	params, err := transport.ParseParams(transport.KindSSH, body)
	if err != nil {
		writeListError(w, err)
		return
	}
	var req struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeListError(w, err)
		return
	}

	entries, err := sshfiles.ListDirectory(r.Context(), params.(*transport.SSHParams), req.Path, dialOptions())
	if err != nil {
		log.Printf("[sshfiles] list %s on %s failed: %s",
			logutil.SanitizeForLog(req.Path), logutil.SanitizeForLog(params.Target()),
			logutil.Truncate(logutil.SanitizeForLog(err.Error()), 200))
		writeListError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sftpListResponse{
		Files:   sshfiles.Names(entries),
		Entries: entries,
	})
}
