package service

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/setforge/setforge/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFile struct {
	name        string
	contentType string
	data        []byte
}

func (f fakeFile) Name() string                            { return f.name }
func (f fakeFile) ContentType() string                     { return f.contentType }
func (f fakeFile) Bytes(ctx context.Context) ([]byte, error) { return f.data, nil }

func TestAddURLsSplitsAndTrims(t *testing.T) {
	q := NewImportQueue(nil)

	added := q.AddURLs("https://a.example/wod\n\n  https://b.example/day2 ,\n")

	require.Len(t, added, 2)
	assert.Equal(t, "https://a.example/wod", added[0].URL)
	assert.Equal(t, "https://b.example/day2", added[1].URL)
	assert.Equal(t, domain.SourceURL, added[0].Kind)
	assert.Equal(t, "a.example/wod", added[0].Label)
}

func TestAddURLsEmptyInput(t *testing.T) {
	q := NewImportQueue(nil)
	assert.Empty(t, q.AddURLs(" \n , \n"))
	assert.Empty(t, q.Items())
}

func TestAddFilesFiltersByMIME(t *testing.T) {
	q := NewImportQueue(nil)

	added := q.AddFiles([]domain.FileSource{
		fakeFile{name: "a.png", contentType: "image/png"},
		fakeFile{name: "b.pdf", contentType: "application/pdf"},
		fakeFile{name: "c.txt", contentType: "text/plain"},
	})

	require.Len(t, added, 2)
	assert.Equal(t, domain.SourceImage, added[0].Kind)
	assert.Equal(t, domain.SourcePDF, added[1].Kind)
}

func TestRemoveItemAndClearAreIdempotent(t *testing.T) {
	q := NewImportQueue(nil)
	added := q.AddURLs("https://a.example")

	q.RemoveItem(added[0].ID)
	q.RemoveItem(added[0].ID)
	q.RemoveItem("no-such-id")
	assert.Empty(t, q.Items())

	q.Clear()
	assert.Empty(t, q.Items())
}

func TestToDetectPayloadPreservesOrderAndCachesBase64(t *testing.T) {
	q := NewImportQueue(nil)
	urls := q.AddURLs("https://a.example\nhttps://b.example")
	files := q.AddFiles([]domain.FileSource{
		fakeFile{name: "one.png", contentType: "image/png", data: []byte("one")},
		fakeFile{name: "two.png", contentType: "image/png", data: []byte("two")},
	})

	payload, err := q.ToDetectPayload(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"https://a.example", "https://b.example"}, payload.URLs)
	assert.Equal(t, []string{urls[0].ID, urls[1].ID}, payload.URLQueueIDs)

	require.Len(t, payload.Base64Items, 2)
	assert.Equal(t, []string{files[0].ID, files[1].ID}, payload.Base64QueueIDs)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("one")), payload.Base64Items[0].Base64)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("two")), payload.Base64Items[1].Base64)

	// Conversion result lands back on the queue item for retries.
	assert.NotEmpty(t, q.Get(files[0].ID).Base64)
	assert.NotEmpty(t, q.Get(files[1].ID).Base64)
}

func TestURLLabelTruncatesOnRuneBoundary(t *testing.T) {
	raw := strings.Repeat("ü", maxURLLabelLen+10)

	label := urlLabel(raw)

	assert.True(t, utf8.ValidString(label), "label must not split a rune")
	assert.Equal(t, maxURLLabelLen+1, utf8.RuneCountInString(label), "capped runes plus ellipsis")
}

func TestStripDataURLPrefix(t *testing.T) {
	assert.Equal(t, "aGVsbG8=", StripDataURLPrefix("data:image/png;base64,aGVsbG8="))
	assert.Equal(t, "aGVsbG8=", StripDataURLPrefix("aGVsbG8="))
}
