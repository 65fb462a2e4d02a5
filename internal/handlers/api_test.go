package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/Leizi-the-Thunderbringer/Leizi-Terminal/internal/config"
	"github.com/Leizi-the-Thunderbringer/Leizi-Terminal/internal/logging"
	"github.com/Leizi-the-Thunderbringer/Leizi-Terminal/internal/sshtest"
	"github.com/Leizi-the-Thunderbringer/Leizi-Terminal/internal/store"
)

func setupStore(t *testing.T) *store.FileStore {
	t.Helper()
	fs, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	orig := Store
	Store = fs
	t.Cleanup(func() { Store = orig })
	return fs
}

func newAPIRouter() chi.Router {
	r := chi.NewRouter()
	r.Get("/health", HealthCheck)
	r.Get("/api/config", GetDocument(store.DocConfig))
	r.Post("/api/config", PutDocument(store.DocConfig))
	r.Get("/api/shortcut", GetDocument(store.DocShortcut))
	r.Post("/api/shortcut", PutDocument(store.DocShortcut))
	r.Put("/api/shortcut", PutDocument(store.DocShortcut))
	r.Get("/api/serial/ports", ListSerialPorts)
	r.Post("/api/sftp/list", ListSFTPDirectory)
	r.Get("/api/sessions", ListSessions)
	r.Get("/api/server-logs", GetServerLogs)
	r.Delete("/api/server-logs", ClearServerLogs)
	return r
}

func do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	w := httptest.NewRecorder()
	newAPIRouter().ServeHTTP(w, req)
	return w
}

func TestDocuments_AbsentIsEmptyObject(t *testing.T) {
	setupStore(t)
	for _, path := range []string{"/api/config", "/api/shortcut"} {
		w := do(t, http.MethodGet, path, "")
		if w.Code != http.StatusOK {
			t.Fatalf("%s: status %d", path, w.Code)
		}
		if got := strings.TrimSpace(w.Body.String()); got != "{}" {
			t.Errorf("%s: body %q, want {}", path, got)
		}
	}
}

func TestDocuments_ShortcutRoundTrip(t *testing.T) {
	setupStore(t)

	w := do(t, http.MethodPost, "/api/shortcut", `{"a": "ssh://host1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("POST status %d: %s", w.Code, w.Body.String())
	}
	var ack map[string]string
	json.NewDecoder(w.Body).Decode(&ack)
	if ack["status"] != "ok" {
		t.Errorf("unexpected ack %v", ack)
	}

	w = do(t, http.MethodGet, "/api/shortcut", "")
	if got := strings.TrimSpace(w.Body.String()); got != `{"a":"ssh://host1"}` {
		t.Errorf("GET body %q", got)
	}

	// PUT replaces the whole document.
	do(t, http.MethodPut, "/api/shortcut", `{"b":"telnet://host2"}`)
	w = do(t, http.MethodGet, "/api/shortcut", "")
	if got := strings.TrimSpace(w.Body.String()); got != `{"b":"telnet://host2"}` {
		t.Errorf("GET after PUT %q", got)
	}
}

func TestDocuments_RejectsNonObject(t *testing.T) {
	fs := setupStore(t)
	w := do(t, http.MethodPost, "/api/config", `["not","an","object"]`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", w.Code)
	}
	var body map[string]string
	json.NewDecoder(w.Body).Decode(&body)
	if body["detail"] == "" {
		t.Error("missing detail")
	}
	if _, err := os.Stat(fs.Path(store.DocConfig)); !os.IsNotExist(err) {
		t.Error("invalid document was stored")
	}
}

func TestSerialPorts(t *testing.T) {
	orig := ListPorts
	t.Cleanup(func() { ListPorts = orig })

	ListPorts = func() ([]string, error) { return []string{}, nil }
	w := do(t, http.MethodGet, "/api/serial/ports", "")
	if got := strings.TrimSpace(w.Body.String()); w.Code != http.StatusOK || got != `{"ports":[]}` {
		t.Errorf("no devices: %d %q", w.Code, got)
	}

	ListPorts = func() ([]string, error) { return []string{"/dev/ttyUSB0"}, nil }
	w = do(t, http.MethodGet, "/api/serial/ports", "")
	if got := strings.TrimSpace(w.Body.String()); got != `{"ports":["/dev/ttyUSB0"]}` {
		t.Errorf("one device: %q", got)
	}

	ListPorts = func() ([]string, error) { return nil, errors.New("boom") }
	w = do(t, http.MethodGet, "/api/serial/ports", "")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("error status %d", w.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	setupStore(t)
	w := do(t, http.MethodGet, "/health", "")
	var body map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "healthy" || body["store"] != "file" {
		t.Errorf("unexpected health %v", body)
	}
	if _, ok := body["sessions"].(float64); !ok {
		t.Errorf("sessions count missing: %v", body)
	}
}

func TestListSFTPDirectory(t *testing.T) {
	sshSrv := sshtest.NewServer(t, "u", "pw")
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644)
	os.Mkdir(filepath.Join(dir, "logs"), 0o755)

	reqBody, _ := json.Marshal(map[string]interface{}{
		"host": sshSrv.Host, "port": sshSrv.Port, "username": "u", "password": "pw", "path": dir,
	})
	w := do(t, http.MethodPost, "/api/sftp/list", string(reqBody))
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Files   []string `json:"files"`
		Entries []struct {
			Name  string `json:"name"`
			IsDir bool   `json:"is_dir"`
		} `json:"entries"`
	}
	json.NewDecoder(w.Body).Decode(&resp)
	if strings.Join(resp.Files, ",") != "logs,notes.txt" {
		t.Errorf("files = %v", resp.Files)
	}
	if len(resp.Entries) != 2 || !resp.Entries[0].IsDir {
		t.Errorf("entries = %+v", resp.Entries)
	}
}

func TestListSFTPDirectory_Errors(t *testing.T) {
	sshSrv := sshtest.NewServer(t, "u", "pw")
	cases := map[string]string{
		"bad body":     `nope`,
		"missing host": `{"username":"u","password":"pw"}`,
		"bad password": `{"host":"` + sshSrv.Host + `","port":` + strconv.Itoa(sshSrv.Port) + `,"username":"u","password":"wrong"}`,
	}
	for name, body := range cases {
		w := do(t, http.MethodPost, "/api/sftp/list", body)
		if w.Code != http.StatusInternalServerError {
			t.Errorf("%s: status %d, want 500", name, w.Code)
			continue
		}
		var resp map[string]string
		json.NewDecoder(w.Body).Decode(&resp)
		if resp["error"] == "" {
			t.Errorf("%s: missing error message", name)
		}
	}
}

func TestServerLogs(t *testing.T) {
	orig := config.Cfg
	t.Cleanup(func() {
		logging.Close()
		config.Cfg = orig
	})
	config.Cfg.LogPath = filepath.Join(t.TempDir(), "leizi.log")
	if err := os.WriteFile(config.Cfg.LogPath, []byte("one\ntwo\nthree\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w := do(t, http.MethodGet, "/api/server-logs?lines=2", "")
	var body map[string]string
	json.NewDecoder(w.Body).Decode(&body)
	if body["logs"] != "two\nthree" {
		t.Errorf("logs = %q", body["logs"])
	}

	w = do(t, http.MethodDelete, "/api/server-logs", "")
	if w.Code != http.StatusNoContent {
		t.Errorf("clear status %d", w.Code)
	}
	w = do(t, http.MethodGet, "/api/server-logs", "")
	body = nil
	json.NewDecoder(w.Body).Decode(&body)
	if body["logs"] != "" {
		t.Errorf("logs after clear = %q", body["logs"])
	}
}
