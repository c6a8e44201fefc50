package upload

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/labportal/portal/shared/domain"
)

const target domain.ObjectID = "65a1b2c3d4e5f60718293a4b"

type mockPortal struct {
	StartDirectUploadFunc    func(ctx context.Context, targetID domain.ObjectID, filename, mimeType string, size int64) (*domain.UploadSession, error)
	CompleteDirectUploadFunc func(ctx context.Context, targetID domain.ObjectID, filename, objectID string, size int64) (domain.Attachment, error)
	UploadMultipartFunc      func(ctx context.Context, targetID domain.ObjectID, filename, mimeType string, content io.Reader, onSent func(int64)) (domain.Attachment, error)

	mu            sync.Mutex
	startCalls    int
	completeCalls int
	fallbackCalls int
}

func (m *mockPortal) StartDirectUpload(ctx context.Context, targetID domain.ObjectID, filename, mimeType string, size int64) (*domain.UploadSession, error) {
	m.mu.Lock()
	m.startCalls++
	m.mu.Unlock()
	return m.StartDirectUploadFunc(ctx, targetID, filename, mimeType, size)
}

func (m *mockPortal) CompleteDirectUpload(ctx context.Context, targetID domain.ObjectID, filename, objectID string, size int64) (domain.Attachment, error) {
	m.mu.Lock()
	m.completeCalls++
	m.mu.Unlock()
	if m.CompleteDirectUploadFunc == nil {
		return domain.Attachment{Id: domain.ObjectID(objectID), OriginalFilename: filename, FileSize: size}, nil
	}
	return m.CompleteDirectUploadFunc(ctx, targetID, filename, objectID, size)
}

func (m *mockPortal) UploadMultipart(ctx context.Context, targetID domain.ObjectID, filename, mimeType string, content io.Reader, onSent func(int64)) (domain.Attachment, error) {
	m.mu.Lock()
	m.fallbackCalls++
	m.mu.Unlock()
	if m.UploadMultipartFunc == nil {
		n, err := io.Copy(io.Discard, content)
		if err != nil {
			return domain.Attachment{}, err
		}
		onSent(n)
		return domain.Attachment{Id: "fallbackfallbackfallback", OriginalFilename: filename, FileSize: n}, nil
	}
	return m.UploadMultipartFunc(ctx, targetID, filename, mimeType, content, onSent)
}

// fakeStorage is a storage endpoint that answers chunk PUTs through respond.
type fakeStorage struct {
	*httptest.Server
	mu      sync.Mutex
	ranges  []string
	auth    []string
	sizes   []int64
	respond func(n int, w http.ResponseWriter, r *http.Request)
}

func newFakeStorage(t *testing.T, respond func(n int, w http.ResponseWriter, r *http.Request)) *fakeStorage {
	t.Helper()
	fs := &fakeStorage{respond: respond}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		fs.mu.Lock()
		fs.ranges = append(fs.ranges, r.Header.Get("Content-Range"))
		fs.auth = append(fs.auth, r.Header.Get("Authorization"))
		fs.sizes = append(fs.sizes, int64(len(body)))
		n, respond := len(fs.ranges), fs.respond
		fs.mu.Unlock()
		respond(n, w, r)
	}))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fakeStorage) setRespond(respond func(int, http.ResponseWriter, *http.Request)) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.respond = respond
}

func (fs *fakeStorage) puts() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return len(fs.ranges)
}

// sent returns the total body bytes received.
func (fs *fakeStorage) sent() int64 {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	var n int64
	for _, s := range fs.sizes {
		n += s
	}
	return n
}

func (fs *fakeStorage) authHeaders() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]string(nil), fs.auth...)
}

func (fs *fakeStorage) Ranges() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]string(nil), fs.ranges...)
}

// lastChunkDone answers 308 until the PUT whose range ends at size-1.
func lastChunkDone(size int64) func(int, http.ResponseWriter, *http.Request) {
	return func(_ int, w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Range") == fmt.Sprintf("bytes */%d", size) ||
			endsAt(r.Header.Get("Content-Range"), size-1) {
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"id":"storage-object-1"}`))
			return
		}
		w.WriteHeader(http.StatusPermanentRedirect)
	}
}

func endsAt(contentRange string, end int64) bool {
	var s, e, total int64
	if _, err := fmt.Sscanf(contentRange, "bytes %d-%d/%d", &s, &e, &total); err != nil {
		return false
	}
	return e == end
}

func sessionFor(fs *fakeStorage, chunk int64) func(context.Context, domain.ObjectID, string, string, int64) (*domain.UploadSession, error) {
	return func(context.Context, domain.ObjectID, string, string, int64) (*domain.UploadSession, error) {
		return &domain.UploadSession{UploadURL: fs.URL + "/upload/1", AccessToken: "upload-token", ChunkSize: chunk}, nil
	}
}

// memCheckpoints is an in-memory CheckpointStore.
type memCheckpoints struct {
	mu  sync.Mutex
	cps map[string]domain.UploadCheckpoint
}

func newMemCheckpoints() *memCheckpoints {
	return &memCheckpoints{cps: map[string]domain.UploadCheckpoint{}}
}

func (m *memCheckpoints) LoadCheckpoint(_ context.Context, hash string, targetID domain.ObjectID) (*domain.UploadCheckpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp, ok := m.cps[hash+"/"+targetID.String()]
	if !ok {
		return nil, nil
	}
	return &cp, nil
}

func (m *memCheckpoints) SaveCheckpoint(_ context.Context, cp domain.UploadCheckpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cps[cp.FileHash+"/"+cp.TargetId.String()] = cp
	return nil
}

func (m *memCheckpoints) DeleteCheckpoint(_ context.Context, hash string, targetID domain.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cps, hash+"/"+targetID.String())
	return nil
}

func (m *memCheckpoints) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.cps)
}

// dropConnection closes the connection without writing a response.
func dropConnection(w http.ResponseWriter) {
	if conn, _, err := w.(http.Hijacker).Hijack(); err == nil {
		conn.Close()
	}
}
