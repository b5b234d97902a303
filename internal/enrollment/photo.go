package enrollment

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
}

// Photo is a student photo as supplied in a descriptor: either a link kept
// verbatim or decoded image bytes waiting to be stored.
type Photo struct {
	URL  string
	Data []byte
	Ext  string
}

func (p Photo) Empty() bool {
	return p.URL == "" && len(p.Data) == 0
}

// DecodePhoto accepts an http(s) URL, a data URI or bare base64. Embedded
// payloads must decode, sniff as a supported image and fit in maxBytes.
func DecodePhoto(raw string, maxBytes int64) (Photo, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Photo{}, nil
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return Photo{URL: raw}, nil
	}

	payload := raw
	if strings.HasPrefix(payload, "data:") {
		comma := strings.IndexByte(payload, ',')
		if comma < 0 || !strings.HasSuffix(payload[:comma], ";base64") {
			return Photo{}, fmt.Errorf("photo data URI must be base64 encoded")
		}
		payload = payload[comma+1:]
	}

	if int64(base64.StdEncoding.DecodedLen(len(payload))) > maxBytes+2 {
		return Photo{}, fmt.Errorf("photo exceeds the %d byte limit", maxBytes)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(payload)
	}
	if err != nil {
		return Photo{}, fmt.Errorf("photo is not valid base64: %w", err)
	}
	if len(data) == 0 {
		return Photo{}, fmt.Errorf("photo payload is empty")
	}
	if int64(len(data)) > maxBytes {
		return Photo{}, fmt.Errorf("photo exceeds the %d byte limit", maxBytes)
	}

	contentType := http.DetectContentType(data)
	ext, ok := imageExtensions[contentType]
	if !ok {
		return Photo{}, fmt.Errorf("photo is not a supported image (detected %s)", contentType)
	}
	return Photo{Data: data, Ext: ext}, nil
}

// PhotoStore persists decoded photos and returns the reference saved on the
// student row.
type PhotoStore interface {
	Save(ctx context.Context, data []byte, ext string) (string, error)
	Remove(ctx context.Context, ref string) error
}

// FSPhotoStore writes photos under a directory with random names.
type FSPhotoStore struct {
	dir string
}

func NewFSPhotoStore(dir string) *FSPhotoStore {
	return &FSPhotoStore{dir: dir}
}

func (s *FSPhotoStore) Save(ctx context.Context, data []byte, ext string) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create photo directory: %w", err)
	}
	path := filepath.Join(s.dir, uuid.NewString()+ext)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write photo: %w", err)
	}
	return path, nil
}

func (s *FSPhotoStore) Remove(ctx context.Context, ref string) error {
	if err := os.Remove(ref); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
