package objectstore

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketing-attachments/pkg/config"
)

func TestRewritePresignedURL_SwitchesHostKeepsQuery(t *testing.T) {
	internal := "http://minio:9000/bucket/key?X-Amz-Algorithm=AWS4-HMAC-SHA256&X-Amz-Signature=ABC123"

	out, err := RewritePresignedURL(internal, "http://localhost:9000")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "http://localhost:9000/bucket/key"))
	// query string обязана сохраниться байт-в-байт
	assert.Equal(t, strings.SplitN(internal, "?", 2)[1], strings.SplitN(out, "?", 2)[1])
}

func TestRewritePresignedURL_EmptyPublicBaseIsNoop(t *testing.T) {
	internal := "http://minio:9000/bucket/key?X-Amz-Signature=ABC"

	out, err := RewritePresignedURL(internal, "")
	require.NoError(t, err)
	assert.Equal(t, internal, out)
}

func TestRewritePresignedURL_PreservesEncodedPath(t *testing.T) {
	internal := "http://minio:9000/bucket/tickets/7/0b9e7a1c_na%20me.pdf?X-Amz-Signature=Q"

	out, err := RewritePresignedURL(internal, "https://files.example.org")
	require.NoError(t, err)
	assert.Equal(t, "https://files.example.org/bucket/tickets/7/0b9e7a1c_na%20me.pdf?X-Amz-Signature=Q", out)
}

func TestRewritePresignedURL_RejectsBadPublicBase(t *testing.T) {
	_, err := RewritePresignedURL("http://minio:9000/b/k?x=1", "not-a-url")
	assert.Error(t, err)
}

// Тело, возвращенное Get, должно оставаться читаемым после возврата метода:
// сканер стримит объект в clamd уже за пределами вызова Get.
func TestS3Storage_GetBodyReadableAfterReturn(t *testing.T) {
	payload := bytes.Repeat([]byte("a"), 256*1024)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		w.WriteHeader(http.StatusOK)
		// первая часть уходит сразу, остальное — после паузы,
		// когда Get уже вернул управление
		w.Write(payload[:1024])
		w.(http.Flusher).Flush()
		time.Sleep(100 * time.Millisecond)
		w.Write(payload[1024:])
	}))
	defer srv.Close()

	storage, err := NewS3Storage(config.S3Config{
		Endpoint:  srv.URL,
		AccessKey: "test",
		SecretKey: "test",
		Region:    "us-east-1",
		Bucket:    "bucket",
		Timeout:   5 * time.Second,
	})
	require.NoError(t, err)

	body, err := storage.Get(context.Background(), "tickets/1/key.bin")
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Len(t, data, len(payload))
}

func TestS3Storage_GetTimeoutBoundsWholeRead(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "4096")
		w.WriteHeader(http.StatusOK)
		w.Write(make([]byte, 1024))
		w.(http.Flusher).Flush()
		// сервер замолкает, клиент обязан отвалиться по таймауту
		time.Sleep(2 * time.Second)
	}))
	defer srv.Close()

	storage, err := NewS3Storage(config.S3Config{
		Endpoint:  srv.URL,
		AccessKey: "test",
		SecretKey: "test",
		Region:    "us-east-1",
		Bucket:    "bucket",
		Timeout:   300 * time.Millisecond,
	})
	require.NoError(t, err)

	body, err := storage.Get(context.Background(), "tickets/1/key.bin")
	require.NoError(t, err)
	defer body.Close()

	_, err = io.ReadAll(body)
	assert.Error(t, err)
}
