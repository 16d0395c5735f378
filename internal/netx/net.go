// Package netx holds HTTP helpers shared by the REST transport and the
// server's outbound clients.
package netx

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"strings"
)

// Field is a plain multipart form value.
type Field struct {
	Name  string
	Value string
}

// File is a multipart file part.
type File struct {
	Field       string
	FileName    string
	ContentType string
	Data        []byte
}

// Multipart encodes fields followed by files into a multipart/form-data body.
// Fields keep their order.
func Multipart(fields []Field, files ...File) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, f := range fields {
		if err := w.WriteField(f.Name, f.Value); err != nil {
			return nil, "", fmt.Errorf("field %s: %w", f.Name, err)
		}
	}

	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name=%q; filename=%q`, f.Field, f.FileName))
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)

		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("file %s: %w", f.Field, err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", fmt.Errorf("file %s: %w", f.Field, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// ResolveURL makes ref absolute against base. Absolute refs and blob handles
// are returned unchanged; an unparseable ref is returned as is.
func ResolveURL(base, ref string) string {
	if ref == "" || strings.HasPrefix(ref, "blob:") {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil || r.IsAbs() {
		return ref
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

// ReadBody reads at most limit bytes of r.
func ReadBody(r io.Reader, limit int64) []byte {
	b, _ := io.ReadAll(io.LimitReader(r, limit))
	return b
}
