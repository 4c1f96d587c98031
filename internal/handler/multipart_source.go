package handler

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
)

// multipartSource adapts an uploaded file header to domain.FileSource. The
// body is read lazily so queue items that never reach detection cost nothing.
type multipartSource struct {
	header *multipart.FileHeader
}

func (m *multipartSource) Name() string {
	return m.header.Filename
}

func (m *multipartSource) ContentType() string {
	return m.header.Header.Get("Content-Type")
}

func (m *multipartSource) Bytes(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := m.header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", m.header.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", m.header.Filename, err)
	}
	return data, nil
}
