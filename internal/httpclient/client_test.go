package httpclient

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newWrapper(t *testing.T, srv *httptest.Server) HttpClientWrapper {
	t.Helper()
	base, err := url.Parse(srv.URL)
	require.NoError(t, err)
	wrapper, err := NewHttpClientWrapper(srv.Client(), *base, testLogger())
	require.NoError(t, err)
	return wrapper
}

func TestDoPUT(t *testing.T) {
	var gotBody string
	var gotIfMatch string
	var gotContentType string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		gotIfMatch = r.Header.Get("If-Match")
		gotContentType = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"v2"`)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	wrapper := newWrapper(t, srv)
	etag, err := wrapper.DoPUT(context.Background(), "/cal/obj.ics", `"v1"`, []byte("BEGIN:VCALENDAR\r\n"))
	require.NoError(t, err)

	assert.Equal(t, `"v2"`, etag)
	assert.Equal(t, "BEGIN:VCALENDAR\r\n", gotBody)
	assert.Equal(t, `"v1"`, gotIfMatch)
	assert.Equal(t, "text/calendar; charset=utf-8", gotContentType)
}

func TestDoPUTNoIfMatchOnCreate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present := r.Header["If-Match"]
		assert.False(t, present, "empty etag must not emit an If-Match header")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	wrapper := newWrapper(t, srv)
	_, err := wrapper.DoPUT(context.Background(), "/cal/obj.ics", "", []byte("x"))
	require.NoError(t, err)
}

func TestDoPUTStatusErrors(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		wantTemporary bool
	}{
		{"precondition failed is permanent", http.StatusPreconditionFailed, false},
		{"forbidden is permanent", http.StatusForbidden, false},
		{"bad gateway is temporary", http.StatusBadGateway, true},
		{"internal error is temporary", http.StatusInternalServerError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			wrapper := newWrapper(t, srv)
			_, err := wrapper.DoPUT(context.Background(), "/cal/obj.ics", "", []byte("x"))
			require.Error(t, err)

			var statusErr *StatusError
			require.ErrorAs(t, err, &statusErr)
			assert.Equal(t, tt.status, statusErr.StatusCode)
			assert.Equal(t, tt.wantTemporary, statusErr.Temporary())
		})
	}
}

func TestDoDELETE(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, `"v1"`, r.Header.Get("If-Match"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	wrapper := newWrapper(t, srv)
	assert.NoError(t, wrapper.DoDELETE(context.Background(), "/cal/obj.ics", `"v1"`))
}

func TestDoDELETETreatsGoneAsDeleted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	wrapper := newWrapper(t, srv)
	assert.NoError(t, wrapper.DoDELETE(context.Background(), "/cal/obj.ics", ""))
}

func TestDoGetEtag(t *testing.T) {
	const multistatus = `<?xml version="1.0" encoding="UTF-8"?>
<D:multistatus xmlns:D="DAV:">
  <D:response>
    <D:href>/cal/obj.ics</D:href>
    <D:propstat>
      <D:prop><D:getetag>"abc123"</D:getetag></D:prop>
      <D:status>HTTP/1.1 200 OK</D:status>
    </D:propstat>
  </D:response>
</D:multistatus>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "PROPFIND", r.Method)
		assert.Equal(t, "0", r.Header.Get("Depth"))
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), "getetag")
		w.WriteHeader(http.StatusMultiStatus)
		_, _ = w.Write([]byte(multistatus))
	}))
	defer srv.Close()

	wrapper := newWrapper(t, srv)
	etag, err := wrapper.DoGetEtag(context.Background(), "/cal/obj.ics")
	require.NoError(t, err)
	assert.Equal(t, `"abc123"`, etag)
}

func TestParseEtagResponseNamespacePrefixes(t *testing.T) {
	// sabredav-style prefixing
	body := `<?xml version="1.0"?>
<d:multistatus xmlns:d="DAV:"><d:response><d:href>/x.ics</d:href>
<d:propstat><d:prop><d:getetag>"zzz"</d:getetag></d:prop></d:propstat>
</d:response></d:multistatus>`

	etag, err := parseEtagResponse([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, `"zzz"`, etag)
}

func TestParseEtagResponseMissing(t *testing.T) {
	_, err := parseEtagResponse([]byte(`<?xml version="1.0"?><d:multistatus xmlns:d="DAV:"/>`))
	assert.Error(t, err)
}

func TestNewObjectURL(t *testing.T) {
	objectURL, err := NewObjectURL("https://dav.example.com/cal/")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(objectURL, "https://dav.example.com/cal/"))
	assert.True(t, strings.HasSuffix(objectURL, ".ics"))

	other, err := NewObjectURL("https://dav.example.com/cal/")
	require.NoError(t, err)
	assert.NotEqual(t, objectURL, other)
}

func TestBasicAuthTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "alice", user)
		assert.Equal(t, "secret", pass)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := &http.Client{Transport: NewBasicAuthTransport("alice", "secret", nil, testLogger())}
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestBasicAuthTransportRequiresCredentials(t *testing.T) {
	client := &http.Client{Transport: NewBasicAuthTransport("", "", nil, testLogger())}
	_, err := client.Get("http://example.invalid/")
	assert.Error(t, err)
}
