package s3

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/measureiq/internal/docstore"
)

// fakeS3 answers path-style GetObject and PutObject from memory.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	// path-style: /bucket/key
	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 2)
	key := ""
	if len(parts) == 2 {
		key = parts[1]
	}

	switch req.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(req.Body)
		if dec, ok := decodeChunked(body); ok {
			body = dec
		}
		f.objects[key] = body
		return response(http.StatusOK, nil, http.Header{"ETag": {`"etag"`}}), nil
	case http.MethodGet:
		if body, ok := f.objects[key]; ok {
			return response(http.StatusOK, body, http.Header{"Content-Type": {contentType}}), nil
		}
		errBody := []byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message></Error>`)
		return response(http.StatusNotFound, errBody, http.Header{"Content-Type": {"application/xml"}}), nil
	}
	return response(http.StatusNotImplemented, nil, http.Header{}), nil
}

func response(status int, body []byte, h http.Header) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewReader(body)), Header: h}
}

// decodeChunked unwraps a single-chunk aws-chunked payload.
func decodeChunked(b []byte) ([]byte, bool) {
	parts := strings.Split(string(b), "\r\n")
	if len(parts) < 3 || parts[2] != "0" && !strings.HasPrefix(parts[2], "0;") {
		return nil, false
	}
	size := strings.SplitN(parts[0], ";", 2)[0]
	var n int
	for _, c := range size {
		switch {
		case c >= '0' && c <= '9':
			n = n*16 + int(c-'0')
		case c >= 'a' && c <= 'f':
			n = n*16 + int(c-'a') + 10
		default:
			return nil, false
		}
	}
	if n != len(parts[1]) {
		return nil, false
	}
	return []byte(parts[1]), true
}

func newFakeStore(t *testing.T) *Store {
	t.Helper()
	cfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion("us-east-1"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("AKIA", "SECRET", "")),
	)
	require.NoError(t, err)
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.HTTPClient = &http.Client{Transport: &fakeS3{objects: map[string][]byte{}}}
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String("https://s3.test.local")
	})
	return NewWithClient(client, "docs")
}

func TestS3PutAndGet(t *testing.T) {
	s := newFakeStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "user-1", []byte(`{"customers":[]}`)))
	doc, err := s.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"customers":[]}`, string(doc))
}

func TestS3GetMissing(t *testing.T) {
	s := newFakeStore(t)
	_, err := s.Get(context.Background(), "nobody")
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.Error(t, err)
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "documents/abc.json", objectKey("abc"))
}
