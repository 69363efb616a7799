package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"s3labels/config"
	"s3labels/service"
	"s3labels/storage"
	"s3labels/storage/storagetest"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

var day = time.Date(2026, 1, 16, 9, 0, 0, 0, time.Local)

func newServer(t *testing.T) (http.Handler, *storagetest.Memory) {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 3, 7))))

	m := storagetest.NewMemory()
	m.Put("pat-labels", "2026/01/16/Returns/r1.png", buf.Bytes(), day)
	m.Put("pat-labels", "2026/01/16/Returns/r2.png", buf.Bytes(), day.Add(time.Hour))
	m.Put("pat-labels", "2026/01/16/Returns/broken.png", []byte("???"), day)
	m.Put("pat-labels", "2026/01/19/NewSales/Shop/n1.png", buf.Bytes(), day)

	cfg := &config.Config{AllowedProfiles: []string{"bad"}}
	provide := func(ctx context.Context, profile, region string) (*service.Service, error) {
		if err := cfg.CheckProfile(profile); err != nil {
			return nil, err
		}
		if profile == "bad" {
			return nil, &storage.ConnectionError{Op: "load AWS config", Err: errors.New("failed to get shared config profile, bad")}
		}
		return service.New(m), nil
	}
	h := NewHandler(provide, "")
	h.now = func() time.Time { return day }
	return NewRouter(h), m
}

func get(t *testing.T, srv http.Handler, url string) (int, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func TestHealth(t *testing.T) {
	srv, _ := newServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestList(t *testing.T) {
	srv, _ := newServer(t)

	code, env := get(t, srv, "/api/s3-downloader/list?bucket=pat-labels&prefix=2026/01/")
	require.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)
	assert.JSONEq(t, `{"folders":["16","19"],"files":[]}`, string(env.Data))

	code, env = get(t, srv, "/api/s3-downloader/list?order=size")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, env.Success)
}

func TestSearch(t *testing.T) {
	srv, _ := newServer(t)

	code, env := get(t, srv, "/api/s3-downloader/search?prefix=2026/01/16/&term=R")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"key":"2026/01/16/Returns/r2.png"}`, string(env.Data))

	code, env = get(t, srv, "/api/s3-downloader/search?prefix=2026/&term=zzz")
	require.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)
	assert.Empty(t, env.Data)

	code, _ = get(t, srv, "/api/s3-downloader/search?prefix=2026/")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestImage(t *testing.T) {
	srv, _ := newServer(t)

	code, env := get(t, srv, "/api/s3-downloader/image?key=2026/01/16/Returns/r1.png")
	require.Equal(t, http.StatusOK, code)

	var img service.ImageResult
	require.NoError(t, json.Unmarshal(env.Data, &img))
	assert.True(t, strings.HasPrefix(img.ImageData, "data:image/png;base64,"))
	assert.Equal(t, 3, img.Width)
	assert.Equal(t, 7, img.Height)
}

func TestImage_Errors(t *testing.T) {
	srv, _ := newServer(t)

	tests := []struct {
		name   string
		url    string
		status int
		prefix string
	}{
		{"missing key", "/api/s3-downloader/image", http.StatusBadRequest, "key is required"},
		{"undecodable", "/api/s3-downloader/image?key=2026/01/16/Returns/broken.png", http.StatusUnprocessableEntity, "DecodeError: "},
		{"missing object", "/api/s3-downloader/image?key=nope.png", http.StatusBadGateway, "ListError: "},
		{"unknown bucket", "/api/s3-downloader/image?bucket=other&key=a.png", http.StatusBadGateway, "ListError: "},
		{"bad profile", "/api/s3-downloader/image?profile=bad&key=a.png", http.StatusBadGateway, "ConnectionError: "},
		{"profile not allowed", "/api/s3-downloader/image?profile=prod-admin&key=a.png", http.StatusForbidden, "Error: profile is not allowed: prod-admin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := get(t, srv, tt.url)
			assert.Equal(t, tt.status, code)
			assert.False(t, env.Success)
			assert.True(t, strings.HasPrefix(env.Error, tt.prefix), env.Error)
		})
	}
}

func TestBucketSummary(t *testing.T) {
	srv, m := newServer(t)
	m.BucketErrors["locked"] = &storage.ListError{Op: "S3 List Error", Code: "AccessDenied", Message: "Access Denied"}

	code, env := get(t, srv, "/api/s3-summary")
	require.Equal(t, http.StatusOK, code)

	var list BucketList
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list.Buckets, 2)
	assert.Equal(t, service.BucketSummary{Name: "locked", Error: list.Buckets[0].Error}, list.Buckets[0])
	assert.Contains(t, list.Buckets[0].Error, "AccessDenied")
	assert.Equal(t, 4, list.Buckets[1].ObjectCount)
}

func TestLabelSummary(t *testing.T) {
	srv, _ := newServer(t)

	code, env := get(t, srv, "/api/label-summary")
	require.Equal(t, http.StatusOK, code)

	var pair ReportPair
	require.NoError(t, json.Unmarshal(env.Data, &pair))
	assert.True(t, strings.HasPrefix(pair.TodayReport, "Label Summary for 2026/01/16:"))
	assert.Contains(t, pair.TodayReport, "Returns                  : 2")
	assert.True(t, strings.HasPrefix(pair.NextDayReport, "Label Summary for 2026/01/19:"))
	assert.Contains(t, pair.NextDayReport, "  - Shop                  : 1")

	code, _ = get(t, srv, "/api/label-summary?date=2026-01-19")
	assert.Equal(t, http.StatusOK, code)

	code, _ = get(t, srv, "/api/label-summary?date=yesterday")
	assert.Equal(t, http.StatusBadRequest, code)
}
