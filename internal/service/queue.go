package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/setforge/setforge/internal/domain"
	"golang.org/x/sync/errgroup"
)

const maxURLLabelLen = 48

// ImportQueue holds not-yet-processed import sources and converts them into a
// detection request payload.
type ImportQueue struct {
	mu    sync.Mutex
	items []*domain.QueueItem
	conv  domain.Base64Converter
}

// NewImportQueue creates an empty queue. conv may be nil, in which case the
// default byte-reading converter is used.
func NewImportQueue(conv domain.Base64Converter) *ImportQueue {
	if conv == nil {
		conv = ByteConverter{}
	}
	return &ImportQueue{conv: conv}
}

// AddURLs splits raw input on newlines and/or commas, trims each token, drops
// empties, and appends one url item per surviving token. Returns the added
// items.
func (q *ImportQueue) AddURLs(raw string) []*domain.QueueItem {
	tokens := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '\n' || r == ','
	})

	q.mu.Lock()
	defer q.mu.Unlock()

	var added []*domain.QueueItem
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		item := &domain.QueueItem{
			ID:    domain.NewULID(),
			Kind:  domain.SourceURL,
			Label: urlLabel(tok),
			URL:   tok,
		}
		q.items = append(q.items, item)
		added = append(added, item)
	}
	return added
}

// AddFiles classifies each file by MIME type: image/* becomes an image item,
// application/pdf a pdf item. Files of any other type are silently dropped.
func (q *ImportQueue) AddFiles(files []domain.FileSource) []*domain.QueueItem {
	q.mu.Lock()
	defer q.mu.Unlock()

	var added []*domain.QueueItem
	for _, f := range files {
		ct := f.ContentType()
		var kind domain.SourceKind
		switch {
		case strings.HasPrefix(ct, "image/"):
			kind = domain.SourceImage
		case ct == "application/pdf":
			kind = domain.SourcePDF
		default:
			continue
		}
		item := &domain.QueueItem{
			ID:       domain.NewULID(),
			Kind:     kind,
			Label:    f.Name(),
			File:     f,
			MIMEType: ct,
		}
		q.items = append(q.items, item)
		added = append(added, item)
	}
	return added
}

// RemoveItem removes by id. Removing an unknown id is a no-op.
func (q *ImportQueue) RemoveItem(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, item := range q.items {
		if item.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return
		}
	}
}

// Clear empties the queue.
func (q *ImportQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
}

// Items returns a snapshot of the queue in insertion order.
func (q *ImportQueue) Items() []*domain.QueueItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*domain.QueueItem, len(q.items))
	copy(out, q.items)
	return out
}

// Get returns the item with the given id, or nil.
func (q *ImportQueue) Get(id string) *domain.QueueItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, item := range q.items {
		if item.ID == id {
			return item
		}
	}
	return nil
}

// ToDetectPayload converts every image/pdf item's binary payload to base64
// (one conversion per item, concurrent, order preserved by index) and returns
// the url tokens and converted items, each sub-array in queue-insertion order
// alongside the matching queue ids. The computed base64 is kept on the queue
// item so a later retry does not need to touch the file again.
//
// File reads happen here and nowhere else: call this from a handler, not from
// anything re-evaluated on unrelated state changes.
func (q *ImportQueue) ToDetectPayload(ctx context.Context) (*domain.DetectPayload, error) {
	q.mu.Lock()
	var urlItems, mediaItems []*domain.QueueItem
	for _, item := range q.items {
		if item.Kind == domain.SourceURL {
			urlItems = append(urlItems, item)
		} else {
			mediaItems = append(mediaItems, item)
		}
	}
	q.mu.Unlock()

	payload := &domain.DetectPayload{
		URLs:           make([]string, len(urlItems)),
		URLQueueIDs:    make([]string, len(urlItems)),
		Base64Items:    make([]domain.Base64Item, len(mediaItems)),
		Base64QueueIDs: make([]string, len(mediaItems)),
	}
	for i, item := range urlItems {
		payload.URLs[i] = item.URL
		payload.URLQueueIDs[i] = item.ID
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, item := range mediaItems {
		i, item := i, item
		payload.Base64QueueIDs[i] = item.ID
		g.Go(func() error {
			b64 := item.Base64
			if b64 == "" {
				var err error
				b64, err = q.conv.FileToBase64(gctx, item.File)
				if err != nil {
					return fmt.Errorf("failed to convert %s: %w", item.Label, err)
				}
			}
			payload.Base64Items[i] = domain.Base64Item{Base64: b64, Type: item.MIMEType}
			q.mu.Lock()
			item.Base64 = b64
			q.mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return payload, nil
}

// urlLabel builds a display label: hostname plus truncated path for a valid
// URL, otherwise the truncated raw token.
func urlLabel(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return truncate(raw, maxURLLabelLen)
	}
	label := u.Host
	if u.Path != "" && u.Path != "/" {
		label += truncate(u.Path, maxURLLabelLen-len(u.Host))
	}
	return label
}

// truncate caps s at n runes, never splitting a multi-byte sequence.
func truncate(s string, n int) string {
	if n < 1 {
		n = 1
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

// ByteConverter is the default Base64Converter: it reads the file bytes and
// standard-base64 encodes them, stripping any data-URL prefix.
type ByteConverter struct{}

func (ByteConverter) FileToBase64(ctx context.Context, file domain.FileSource) (string, error) {
	data, err := file.Bytes(ctx)
	if err != nil {
		return "", err
	}
	return StripDataURLPrefix(base64.StdEncoding.EncodeToString(data)), nil
}

// StripDataURLPrefix removes a "data:<mime>;base64," prefix if present.
func StripDataURLPrefix(s string) string {
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, "base64,"); i >= 0 {
			return s[i+len("base64,"):]
		}
	}
	return s
}
