// Package imagesource supplies the images under review from a flat
// folder: identity (content hash), the dimensions the coordinate
// mapper needs, raw bytes for serving and scaled thumbnails for the
// render layer.
package imagesource

import (
	"context"
	"crypto/sha256"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"github.com/lewtec/revisor/internal/domain"
)

// Source scans a flat folder of images and serves their metadata.
type Source struct {
	dir string

	mu     sync.RWMutex
	images []*domain.Image
	byID   map[string]*domain.Image
}

// New creates a Source for a folder. Call Scan before using it.
func New(dir string) *Source {
	return &Source{dir: dir, byID: map[string]*domain.Image{}}
}

// Scan walks the folder and rebuilds the image list. Files that do not
// decode as images are skipped with a log line; datasets must be
// organized in a flat folder structure.
func (s *Source) Scan(ctx context.Context) error {
	var images []*domain.Image
	byID := map[string]*domain.Image{}

	err := filepath.WalkDir(s.dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == s.dir {
			return nil
		}
		if entry.IsDir() {
			return fmt.Errorf("while scanning '%s': datasets must be organized in a flat folder structure", path)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		width, height, err := decodeDimensions(path)
		if err != nil {
			log.Printf("imagesource: skipping %s: %s", path, err)
			return nil
		}
		id, err := HashFile(path)
		if err != nil {
			return fmt.Errorf("while hashing '%s': %w", path, err)
		}
		img := &domain.Image{
			ID:         id,
			Path:       path,
			Filename:   entry.Name(),
			Width:      width,
			Height:     height,
			IngestedAt: time.Now(),
		}
		images = append(images, img)
		byID[id] = img
		return nil
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.images = images
	s.byID = byID
	s.mu.Unlock()
	log.Printf("imagesource: scanned %d images in %s", len(images), s.dir)
	return nil
}

// List returns the scanned images in folder order.
func (s *Source) List() []*domain.Image {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Image, len(s.images))
	copy(out, s.images)
	return out
}

// Get looks an image up by its content hash.
func (s *Source) Get(id string) (*domain.Image, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	img, ok := s.byID[id]
	return img, ok
}

// Open returns the raw bytes of an image for serving.
func (s *Source) Open(id string) (io.ReadCloser, error) {
	img, ok := s.Get(id)
	if !ok {
		return nil, fmt.Errorf("imagesource: no image with id %s", id)
	}
	return os.Open(img.Path)
}

// Thumbnail returns the image scaled to fit within maxW x maxH,
// preserving aspect ratio.
func (s *Source) Thumbnail(id string, maxW, maxH int) (image.Image, error) {
	img, ok := s.Get(id)
	if !ok {
		return nil, fmt.Errorf("imagesource: no image with id %s", id)
	}
	decoded, err := imaging.Open(img.Path)
	if err != nil {
		return nil, fmt.Errorf("while decoding %s: %w", img.Path, err)
	}
	return imaging.Fit(decoded, maxW, maxH, imaging.Lanczos), nil
}

// HashFile returns the hex SHA256 of a file's contents.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	hasher := sha256.New()
	if _, err = io.Copy(hasher, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", hasher.Sum(nil)), nil
}

func decodeDimensions(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}
