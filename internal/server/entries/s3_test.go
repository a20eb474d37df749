package entries

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	mu     sync.Mutex
	method string
	path   string
	body   []byte
	ctype  string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.method, f.path, f.body, f.ctype = r.Method, r.URL.Path, body, r.Header.Get("Content-Type")
	f.mu.Unlock()
	w.Header().Set("ETag", `"abc"`)
	w.WriteHeader(http.StatusOK)
}

func newS3(t *testing.T, endpoint string) *S3Store {
	t.Helper()
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
	st, err := NewS3Store(context.Background(), S3Config{
		Bucket:    "images",
		Region:    "us-east-1",
		Endpoint:  endpoint,
		AccessKey: "key",
		SecretKey: "secret",
	})
	require.NoError(t, err)
	return st
}

func TestS3Store_Put(t *testing.T) {
	fake := &fakeS3{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	st := newS3(t, srv.URL)
	data := []byte("jpeg-bytes")
	require.NoError(t, st.Put(context.Background(), "entries/2024/05/01/x.jpg", "image/jpeg", data))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, http.MethodPut, fake.method)
	assert.Equal(t, "/images/entries/2024/05/01/x.jpg", fake.path)
	assert.True(t, bytes.Contains(fake.body, data))
	assert.Equal(t, "image/jpeg", fake.ctype)
}

func TestS3Store_URL(t *testing.T) {
	st := newS3(t, "http://minio.local:9000")
	url, err := st.URL(context.Background(), "entries/x.jpg")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://minio.local:9000/images/entries/x.jpg?"), url)
	assert.Contains(t, url, "X-Amz-Signature=")
	assert.Contains(t, url, "X-Amz-Expires=900")
}
