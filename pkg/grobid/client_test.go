package grobid

import (
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTEI = `<?xml version="1.0" encoding="UTF-8"?><TEI xmlns="http://www.tei-c.org/ns/1.0"></TEI>`

func TestProcessFulltext_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/processFulltextDocument", r.URL.Path)

		mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		require.NoError(t, err)
		require.Equal(t, "multipart/form-data", mediaType)

		mr := multipart.NewReader(r.Body, params["boundary"])
		var coords []string
		var gotPDF []byte
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			require.NoError(t, err)
			data, err := io.ReadAll(part)
			require.NoError(t, err)
			switch part.FormName() {
			case "input":
				gotPDF = data
			case "teiCoordinates":
				coords = append(coords, string(data))
			}
		}
		assert.Equal(t, []byte("%PDF-1.4 fake"), gotPDF)
		assert.ElementsMatch(t, CoordinateTypes, coords)

		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(sampleTEI))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	got, err := client.ProcessFulltext(context.Background(), []byte("%PDF-1.4 fake"))

	require.NoError(t, err)
	assert.Equal(t, sampleTEI, string(got))
}

func TestProcessFulltext_RetriesTransientStatus(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(sampleTEI))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, WithTimeout(30*time.Second))
	got, err := client.ProcessFulltext(context.Background(), []byte("%PDF"))

	require.NoError(t, err)
	assert.Equal(t, sampleTEI, string(got))
	assert.Equal(t, int32(2), calls.Load())
}

func TestProcessFulltext_PermanentStatusNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte("no fulltext found"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.ProcessFulltext(context.Background(), []byte("%PDF"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
	assert.Equal(t, int32(1), calls.Load())
}

func TestProcessFulltext_Unreachable(t *testing.T) {
	t.Parallel()

	client := NewClient("http://127.0.0.1:1", WithTimeout(2*time.Second))
	_, err := client.ProcessFulltext(context.Background(), []byte("%PDF"))

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrServiceUnavailable))
}

func TestIsAlive(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/isalive", r.URL.Path)
		w.Write([]byte("true"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	require.NoError(t, client.IsAlive(context.Background()))
}

func TestIsAlive_Down(t *testing.T) {
	t.Parallel()

	client := NewClient("http://127.0.0.1:1", WithTimeout(2*time.Second))
	err := client.IsAlive(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrServiceUnavailable))
}
