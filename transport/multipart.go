package transport

import (
	"bytes"
	"io"
	"mime/multipart"
)

// Multipart is a request body the caller has already encoded. The client
// sends Body as is with ContentType.
type Multipart struct {
	ContentType string
	Body        io.Reader
}

// File is one file part of a multipart form.
type File struct {
	Field    string
	Name     string
	Contents io.Reader
}

// NewMultipart encodes fields and files as multipart/form-data.
func NewMultipart(fields map[string]string, files ...File) (*Multipart, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, err
		}
	}
	for _, f := range files {
		part, err := w.CreateFormFile(f.Field, f.Name)
		if err != nil {
			return nil, err
		}
		if _, err := io.Copy(part, f.Contents); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return &Multipart{ContentType: w.FormDataContentType(), Body: &buf}, nil
}
