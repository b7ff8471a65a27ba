package gateway

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/gabriel-vasile/mimetype"

	"github.com/ahmadawais/wordpress-playground/internal/protocol"
)

// parseBody extracts structured fields and uploaded files from a
// request body. Strategies are tried in order: multipart or urlencoded
// form, then a flat JSON object, terminating in an empty-body
// interpretation. Parse failures are recovered, never propagated: the
// worst case is a forward with empty fields.
func parseBody(r *http.Request, maxMemory int64) (map[string]string, map[string]protocol.File) {
	fields := map[string]string{}
	files := map[string]protocol.File{}

	if r.Body == nil || r.ContentLength == 0 {
		return fields, files
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxMemory))
	if err != nil {
		return fields, files
	}

	ctype := r.Header.Get("Content-Type")
	mediaType, params, _ := mime.ParseMediaType(ctype)

	switch {
	case mediaType == "multipart/form-data":
		if parseMultipart(raw, params["boundary"], maxMemory, fields, files) {
			return fields, files
		}
	case mediaType == "application/x-www-form-urlencoded":
		if parseURLEncoded(raw, fields) {
			return fields, files
		}
	}

	if parseJSONObject(raw, fields) {
		return fields, files
	}

	// Unparseable bodies are treated as empty.
	return map[string]string{}, map[string]protocol.File{}
}

func parseMultipart(raw []byte, boundary string, maxMemory int64, fields map[string]string, files map[string]protocol.File) bool {
	if boundary == "" {
		return false
	}

	form, err := multipart.NewReader(bytes.NewReader(raw), boundary).ReadForm(maxMemory)
	if err != nil {
		return false
	}
	defer form.RemoveAll()

	for name, values := range form.Value {
		if len(values) > 0 {
			fields[name] = values[0]
		}
	}
	for name, headers := range form.File {
		if len(headers) == 0 {
			continue
		}
		file, err := readUpload(headers[0])
		if err != nil {
			continue
		}
		files[name] = file
	}
	return true
}

func readUpload(header *multipart.FileHeader) (protocol.File, error) {
	f, err := header.Open()
	if err != nil {
		return protocol.File{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return protocol.File{}, err
	}

	ctype := header.Header.Get("Content-Type")
	if ctype == "" {
		ctype = mimetype.Detect(data).String()
	}

	return protocol.File{
		Name: header.Filename,
		Type: ctype,
		Size: int64(len(data)),
		Data: data,
	}, nil
}

func parseURLEncoded(raw []byte, fields map[string]string) bool {
	values, err := url.ParseQuery(string(raw))
	if err != nil {
		return false
	}
	for name, vs := range values {
		if len(vs) > 0 {
			fields[name] = vs[0]
		}
	}
	return true
}

// parseJSONObject flattens a top-level JSON object into string fields.
// Scalars keep their literal form; nested values are re-encoded.
func parseJSONObject(raw []byte, fields map[string]string) bool {
	var obj map[string]interface{}
	if err := sonic.Unmarshal(raw, &obj); err != nil {
		return false
	}

	for name, value := range obj {
		switch v := value.(type) {
		case string:
			fields[name] = v
		case float64:
			fields[name] = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			fields[name] = strconv.FormatBool(v)
		case nil:
			fields[name] = ""
		default:
			encoded, err := sonic.Marshal(v)
			if err != nil {
				continue
			}
			fields[name] = string(encoded)
		}
	}
	return true
}

// collectHeaders flattens request headers into a plain map. Go's HTTP
// stack canonicalizes key casing on parse, so the canonical form is
// what gets forwarded; multi-valued headers are joined the way proxies
// do.
func collectHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		out[name] = strings.Join(values, ", ")
	}
	return out
}

// requestTarget rebuilds path plus query for the forwarded message.
func requestTarget(u *url.URL, unscopedPath string) string {
	target := unscopedPath
	if u.RawQuery != "" {
		target = fmt.Sprintf("%s?%s", target, u.RawQuery)
	}
	if u.Fragment != "" {
		target = fmt.Sprintf("%s#%s", target, u.Fragment)
	}
	return target
}
