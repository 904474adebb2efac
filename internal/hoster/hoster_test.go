package hoster

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abduss/imgbed/internal/config"
)

func TestFormatSize(t *testing.T) {
	cases := map[int64]string{
		0:                  "0 B",
		1023:               "1023 B",
		1024:               "1 KB",
		1536:               "1.5 KB",
		1 << 20:            "1 MB",
		5*1<<20 + 1<<19:    "5.5 MB",
		3 * 1 << 30:        "3 GB",
		1<<20 - 1:          "1024 KB",
		10*1024 + 10*1024/3: "13.33 KB",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatSize(in), "FormatSize(%d)", in)
	}
}

func newRemote(t *testing.T, handler http.HandlerFunc) *RemoteUploader {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewRemoteUploader(config.HosterConfig{
		RemoteURL:   srv.URL + "/upload",
		RemoteQuery: "appkey=test",
		Cookie:      "secret",
		UserAgent:   "imgbed-test",
		Timeout:     5 * time.Second,
	})
}

func TestRemoteUploadParsesSuccess(t *testing.T) {
	var gotQuery, gotCookie, gotUA, gotName, gotType string
	var gotBody []byte

	up := newRemote(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotCookie = r.Header.Get("Cookie")
		gotUA = r.Header.Get("User-Agent")

		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		gotName = header.Filename
		gotType = header.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(file)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"success":true,"object":{"url":"https://img.example/a.png","fileName":"a","size":2048,"pix":"10x20","fileId":123,"quality":90}}`)
	})

	res, err := up.Upload(context.Background(), File{Name: "a.png", MIMEType: "image/png", Data: []byte("pngdata")})
	require.NoError(t, err)

	assert.Equal(t, "appkey=test", gotQuery)
	assert.Equal(t, "cookie2=secret", gotCookie)
	assert.Equal(t, "imgbed-test", gotUA)
	assert.Equal(t, "a.png", gotName)
	assert.Equal(t, "image/png", gotType)
	assert.Equal(t, []byte("pngdata"), gotBody)

	assert.Equal(t, Result{
		URL:      "https://img.example/a.png",
		FileName: "a",
		Size:     "2 KB",
		Pix:      "10x20",
		FileID:   "123",
		Quality:  90,
	}, res)
}

func TestRemoteUploadFillsDefaults(t *testing.T) {
	up := newRemote(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":true,"object":{"url":"https://img.example/b.jpg"}}`)
	})

	res, err := up.Upload(context.Background(), File{Name: "holiday.photo.jpg", MIMEType: "image/jpeg", Data: make([]byte, 100)})
	require.NoError(t, err)
	assert.Equal(t, "holiday.photo", res.FileName)
	assert.Equal(t, "100 B", res.Size)
	assert.Equal(t, "unknown", res.Pix)
	assert.Equal(t, 100, res.Quality)
}

func TestRemoteUploadErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		kind   ErrorKind
	}{
		{name: "http status", status: http.StatusBadGateway, body: "upstream down", kind: KindStatus},
		{name: "invalid json", status: http.StatusOK, body: "<html>", kind: KindParse},
		{name: "api failure", status: http.StatusOK, body: `{"success":false}`, kind: KindAPI},
		{name: "missing url", status: http.StatusOK, body: `{"success":true,"object":{"fileName":"x"}}`, kind: KindFormat},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			up := newRemote(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			})

			_, err := up.Upload(context.Background(), File{Name: "x.png", MIMEType: "image/png", Data: []byte("x")})
			hostErr, ok := AsError(err)
			require.True(t, ok, "unexpected error %v", err)
			assert.Equal(t, tc.kind, hostErr.Kind)
			assert.Equal(t, tc.status, hostErr.Status)
			assert.Equal(t, tc.body, hostErr.Response)
		})
	}
}

func TestRemoteUploadTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	up := NewRemoteUploader(config.HosterConfig{RemoteURL: srv.URL, Timeout: time.Second})
	_, err := up.Upload(context.Background(), File{Name: "x.png", Data: []byte("x")})
	hostErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindTransport, hostErr.Kind)
}

type fakeObjectStore struct {
	bucket      string
	object      string
	contentType string
	payload     []byte
	putErr      error
	presignTTL  time.Duration
}

func (s *fakeObjectStore) PutObject(_ context.Context, bucketName, objectName string, reader *bytes.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if s.putErr != nil {
		return minio.UploadInfo{}, s.putErr
	}
	s.bucket = bucketName
	s.object = objectName
	s.contentType = opts.ContentType
	s.payload, _ = io.ReadAll(reader)
	return minio.UploadInfo{Bucket: bucketName, Key: objectName, Size: objectSize}, nil
}

func (s *fakeObjectStore) PresignedGetObject(_ context.Context, bucketName, objectName string, expires time.Duration, _ url.Values) (*url.URL, error) {
	s.presignTTL = expires
	return url.Parse("https://minio.local/" + bucketName + "/" + objectName + "?X-Amz-Signature=abc")
}

func pngPayload(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 12, 7))))
	return buf.Bytes()
}

func TestMinIOUploadUsesDatedKeyAndPresignedURL(t *testing.T) {
	store := &fakeObjectStore{}
	up := NewMinIOUploader(store, config.MinIOConfig{Bucket: "imgbed", PresignTTL: 30 * 24 * time.Hour})
	up.now = func() time.Time { return time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC) }

	data := pngPayload(t)
	res, err := up.Upload(context.Background(), File{Name: "1700000000_ab12cd34.png", MIMEType: "image/png", Data: data})
	require.NoError(t, err)

	assert.Equal(t, "imgbed", store.bucket)
	assert.Equal(t, "2024/03/09/1700000000_ab12cd34.png", store.object)
	assert.Equal(t, "image/png", store.contentType)
	assert.Equal(t, data, store.payload)
	assert.Equal(t, maxPresignTTL, store.presignTTL)

	assert.Equal(t, "https://minio.local/imgbed/2024/03/09/1700000000_ab12cd34.png?X-Amz-Signature=abc", res.URL)
	assert.Equal(t, "1700000000_ab12cd34", res.FileName)
	assert.Equal(t, "12x7", res.Pix)
	assert.Equal(t, "2024/03/09/1700000000_ab12cd34.png", res.FileID)
	assert.Equal(t, 100, res.Quality)
}

func TestMinIOUploadPrefersPublicBaseURL(t *testing.T) {
	store := &fakeObjectStore{}
	up := NewMinIOUploader(store, config.MinIOConfig{Bucket: "imgbed", PublicBaseURL: "https://cdn.example/imgbed/"})
	up.now = func() time.Time { return time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC) }

	res, err := up.Upload(context.Background(), File{Name: "x.gif", MIMEType: "image/gif", Data: []byte("not really a gif")})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/imgbed/2025/12/31/x.gif", res.URL)
	assert.Equal(t, "unknown", res.Pix)
	assert.Zero(t, store.presignTTL)
}

func TestMinIOUploadWrapsPutFailure(t *testing.T) {
	store := &fakeObjectStore{putErr: errors.New("connection refused")}
	up := NewMinIOUploader(store, config.MinIOConfig{Bucket: "imgbed"})

	_, err := up.Upload(context.Background(), File{Name: "x.png", Data: []byte("x")})
	hostErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindTransport, hostErr.Kind)
	assert.ErrorContains(t, err, "connection refused")
}

func TestNewSelectsBackend(t *testing.T) {
	u, err := New(config.HosterConfig{Backend: config.BackendRemote, RemoteURL: "http://example.invalid/upload"}, config.MinIOConfig{}, nil)
	if err != nil {
		t.Fatalf("remote backend: %v", err)
	}
	if _, ok := u.(*RemoteUploader); !ok {
		t.Fatalf("expected *RemoteUploader, got %T", u)
	}

	if _, err := New(config.HosterConfig{Backend: config.BackendMinIO}, config.MinIOConfig{}, nil); !errors.Is(err, ErrObjectStoreRequired) {
		t.Fatalf("expected ErrObjectStoreRequired, got %v", err)
	}
	if _, err := New(config.HosterConfig{Backend: "ftp"}, config.MinIOConfig{}, nil); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}
