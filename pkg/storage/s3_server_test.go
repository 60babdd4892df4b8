package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/KeremKalyoncu/objstore/internal/errors"
)

type recordedRequest struct {
	method string
	path   string
	body   string
}

// fakeS3Server answers path-style object requests; a non-zero failStatus
// makes every request fail with an S3 XML error
type fakeS3Server struct {
	mu         sync.Mutex
	requests   []recordedRequest
	failStatus int
	failCode   string
}

func (f *fakeS3Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{method: r.Method, path: r.URL.Path, body: string(body)})
	failStatus, failCode := f.failStatus, f.failCode
	f.mu.Unlock()

	w.Header().Set("x-amz-request-id", "req-42")

	if failStatus != 0 {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(failStatus)
		_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?>`+
			`<Error><Code>`+failCode+`</Code><Message>nope</Message><RequestId>req-42</RequestId></Error>`)
		return
	}

	switch r.Method {
	case http.MethodPut:
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeS3Server) recorded() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

func newServerBackedS3(t *testing.T, fake *fakeS3Server) (*S3Storage, string) {
	t.Helper()
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")

	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	store, err := NewS3Storage(context.Background(), Config{
		Endpoint:     srv.URL,
		Bucket:       "docs",
		UsePathStyle: true,
	})
	require.NoError(t, err)

	return store, srv.URL
}

func TestS3Storage_AgainstServer_StoreAndDelete(t *testing.T) {
	fake := &fakeS3Server{}
	store, base := newServerBackedS3(t, fake)
	ctx := context.Background()

	obj, err := store.Store(ctx, strings.NewReader("hello"), "report.pdf")
	require.NoError(t, err)

	assert.Regexp(t, `^[0-9a-f-]{36}-report\.pdf$`, obj.Key)
	assert.Equal(t, base+"/docs/"+obj.Key, obj.URL)
	assert.Equal(t, int64(5), obj.Size)

	require.NoError(t, store.Delete(ctx, obj.Key))

	reqs := fake.recorded()
	require.Len(t, reqs, 2)
	assert.Equal(t, http.MethodPut, reqs[0].method)
	assert.Equal(t, "/docs/"+obj.Key, reqs[0].path)
	assert.Contains(t, reqs[0].body, "hello")
	assert.Equal(t, http.MethodDelete, reqs[1].method)
	assert.Equal(t, "/docs/"+obj.Key, reqs[1].path)
}

func TestS3Storage_AgainstServer_ServiceErrorDetails(t *testing.T) {
	fake := &fakeS3Server{failStatus: http.StatusNotFound, failCode: "NoSuchBucket"}
	store, _ := newServerBackedS3(t, fake)
	ctx := context.Background()

	_, err := store.Store(ctx, strings.NewReader("hello"), "report.pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUploadFailed)

	details, ok := apperrors.GetDetails(err).(map[string]interface{})
	require.True(t, ok, "details should carry the service error")
	assert.Equal(t, "NoSuchBucket", details["code"])
	assert.Equal(t, "nope", details["message"])
	assert.Equal(t, http.StatusNotFound, details["status"])

	err = store.Delete(ctx, "abc-report.pdf")
	assert.ErrorIs(t, err, apperrors.ErrDeleteFailed)

	assert.False(t, TryDelete(ctx, store, "abc-report.pdf"))
	assert.False(t, IsRetryable(err))
}
