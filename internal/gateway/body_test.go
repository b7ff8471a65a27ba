package gateway

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMaxMemory = 10 << 20

func TestParseBodyURLEncoded(t *testing.T) {
	req := httptest.NewRequest("POST", "/submit", strings.NewReader("a=1&b=two"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	fields, files := parseBody(req, testMaxMemory)

	assert.Equal(t, map[string]string{"a": "1", "b": "two"}, fields)
	assert.Empty(t, files)
}

func TestParseBodyMultipart(t *testing.T) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("title", "Hello"))
	fw, err := w.CreateFormFile("upload", "notes.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("file contents"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/submit", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())

	fields, files := parseBody(req, testMaxMemory)

	assert.Equal(t, "Hello", fields["title"])
	require.Contains(t, files, "upload")
	assert.Equal(t, "notes.txt", files["upload"].Name)
	assert.Equal(t, int64(len("file contents")), files["upload"].Size)
	assert.Equal(t, []byte("file contents"), files["upload"].Data)
	assert.NotEmpty(t, files["upload"].Type)
}

func TestParseBodyJSONObject(t *testing.T) {
	body := `{"title":"Hello","count":3,"draft":true,"tags":["a","b"],"note":null}`
	req := httptest.NewRequest("POST", "/submit", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	fields, files := parseBody(req, testMaxMemory)

	assert.Equal(t, "Hello", fields["title"])
	assert.Equal(t, "3", fields["count"])
	assert.Equal(t, "true", fields["draft"])
	assert.Equal(t, `["a","b"]`, fields["tags"])
	assert.Equal(t, "", fields["note"])
	assert.Empty(t, files)
}

func TestParseBodyFallsBackToJSONOnBrokenForm(t *testing.T) {
	// Claims multipart but carries a JSON object; the form strategy
	// fails and the JSON one recovers it.
	req := httptest.NewRequest("POST", "/submit", strings.NewReader(`{"a":"1"}`))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=missing")

	fields, _ := parseBody(req, testMaxMemory)
	assert.Equal(t, map[string]string{"a": "1"}, fields)
}

func TestParseBodyUnparseableIsEmpty(t *testing.T) {
	req := httptest.NewRequest("POST", "/submit", strings.NewReader("\x00\x01 not structured"))
	req.Header.Set("Content-Type", "application/octet-stream")

	fields, files := parseBody(req, testMaxMemory)

	assert.Empty(t, fields)
	assert.Empty(t, files)
}

func TestParseBodyEmptyRequest(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)

	fields, files := parseBody(req, testMaxMemory)

	assert.Empty(t, fields)
	assert.Empty(t, files)
}

func TestCollectHeaders(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Accept", "text/html")
	req.Header.Add("Accept-Encoding", "gzip")
	req.Header.Add("Accept-Encoding", "br")

	headers := collectHeaders(req.Header)

	assert.Equal(t, "text/html", headers["Accept"])
	assert.Equal(t, "gzip, br", headers["Accept-Encoding"])
}

func TestRequestTarget(t *testing.T) {
	req := httptest.NewRequest("GET", "/scope:abc/index.php?p=1", nil)
	assert.Equal(t, "/index.php?p=1", requestTarget(req.URL, "/index.php"))

	plain := httptest.NewRequest("GET", "/index.php", nil)
	assert.Equal(t, "/index.php", requestTarget(plain.URL, "/index.php"))
}
