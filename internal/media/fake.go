package media

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// MemoryStore keeps uploads in memory. Used in tests and local runs without Cloudinary.
type MemoryStore struct {
	mu      sync.Mutex
	Objects map[string][]byte
	Err     error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{Objects: make(map[string][]byte)}
}

func (s *MemoryStore) UploadScreenshot(_ context.Context, file io.Reader, purchaseID string) (string, error) {
	return s.put(fmt.Sprintf("%s/%s", ScreenshotFolder, purchaseID), file)
}

func (s *MemoryStore) UploadPaymentQR(_ context.Context, file io.Reader) (string, error) {
	return s.put(fmt.Sprintf("%s/%s", ConfigFolder, PaymentQRID), file)
}

func (s *MemoryStore) put(key string, file io.Reader) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	body, err := io.ReadAll(file)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.Objects[key] = body
	s.mu.Unlock()
	return "https://media.local/" + key, nil
}

func (s *MemoryStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Objects)
}
