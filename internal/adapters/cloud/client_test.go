package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"
	"time"

	"classtrack/internal/domain/attendance"
)

// kvServer is an in-memory key-value endpoint.
type kvServer struct {
	mu     sync.Mutex
	data   map[string][]byte
	status int
}

func (s *kvServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != 0 {
		w.WriteHeader(s.status)
		return
	}
	key := r.URL.Path[1:]
	switch r.Method {
	case http.MethodGet:
		body, ok := s.data[key]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write(body)
	case http.MethodPost:
		if r.Header.Get("Content-Type") != "application/json" {
			w.WriteHeader(http.StatusUnsupportedMediaType)
			return
		}
		body, _ := io.ReadAll(r.Body)
		s.data[key] = body
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newKV(t *testing.T) (*kvServer, *HTTPClient) {
	t.Helper()
	kv := &kvServer{data: map[string][]byte{}}
	srv := httptest.NewServer(kv)
	t.Cleanup(srv.Close)
	return kv, NewHTTPClient(srv.URL, nil, 5*time.Second)
}

func TestPutThenFetch(t *testing.T) {
	_, client := newKV(t)
	ctx := context.Background()
	want := attendance.Ledger{
		"2024-01-15": {Hours: map[string][]int{"s1": {1, 2}}},
		"2024-01-16": {Hours: map[string][]int{}, IsNoClass: true},
	}

	if err := client.Put(ctx, "IFET-IT-ABC123", want); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := client.Fetch(ctx, "IFET-IT-ABC123")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Fetch = %#v, want %#v", got, want)
	}
}

func TestPut_WireFormat(t *testing.T) {
	kv, client := newKV(t)
	l := attendance.Ledger{"2024-01-15": {Hours: map[string][]int{"s1": {3}}}}
	if err := client.Put(context.Background(), "CODE", l); err != nil {
		t.Fatalf("Put: %v", err)
	}

	var raw map[string]map[string]any
	if err := json.Unmarshal(kv.data["CODE"], &raw); err != nil {
		t.Fatalf("stored body is not JSON: %v", err)
	}
	day := raw["2024-01-15"]
	if _, ok := day["hours"]; !ok {
		t.Errorf("missing hours key: %v", day)
	}
	if _, ok := day["isNoClass"]; ok {
		t.Errorf("isNoClass should be omitted when false: %v", day)
	}
}

func TestFetch_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, ""},
		{"not found", 0, ""},
		{"garbage body", 0, "{not json"},
		{"invalid hour", 0, `{"2024-01-15":{"hours":{"s1":[9]}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv, client := newKV(t)
			kv.status = tt.status
			if tt.body != "" {
				kv.data["CODE"] = []byte(tt.body)
			}
			_, err := client.Fetch(context.Background(), "CODE")
			if !errors.Is(err, ErrRemote) {
				t.Errorf("err = %v, want ErrRemote", err)
			}
		})
	}
}

func TestFetch_EmptyBodyIsEmptyLedger(t *testing.T) {
	kv, client := newKV(t)
	kv.data["CODE"] = []byte("  ")
	got, err := client.Fetch(context.Background(), "CODE")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Fetch = %#v, want empty", got)
	}
}

func TestFetch_MissingHoursDefaultsToEmptyMap(t *testing.T) {
	kv, client := newKV(t)
	kv.data["CODE"] = []byte(`{"2024-01-16":{"isNoClass":true}}`)
	got, err := client.Fetch(context.Background(), "CODE")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got["2024-01-16"].Hours == nil || !got["2024-01-16"].IsNoClass {
		t.Errorf("day = %#v", got["2024-01-16"])
	}
}

func TestPut_NonSuccessStatus(t *testing.T) {
	kv, client := newKV(t)
	kv.status = http.StatusBadGateway
	err := client.Put(context.Background(), "CODE", attendance.Ledger{})
	if !errors.Is(err, ErrRemote) {
		t.Errorf("err = %v, want ErrRemote", err)
	}
}

func TestUnreachableHost(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewHTTPClient(url, nil, time.Second)
	if _, err := client.Fetch(context.Background(), "CODE"); !errors.Is(err, ErrRemote) {
		t.Errorf("Fetch err = %v, want ErrRemote", err)
	}
	if err := client.Put(context.Background(), "CODE", nil); !errors.Is(err, ErrRemote) {
		t.Errorf("Put err = %v, want ErrRemote", err)
	}
}

func TestEmptyCode(t *testing.T) {
	_, client := newKV(t)
	if _, err := client.Fetch(context.Background(), ""); !errors.Is(err, ErrNoSyncCode) {
		t.Errorf("Fetch err = %v, want ErrNoSyncCode", err)
	}
	if err := client.Put(context.Background(), "", nil); !errors.Is(err, ErrNoSyncCode) {
		t.Errorf("Put err = %v, want ErrNoSyncCode", err)
	}
}
