package media

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockStore implements ObjectStore for testing.
type MockStore struct {
	objects map[string][]byte
	deleted []string
}

func NewMockStore() *MockStore {
	return &MockStore{objects: make(map[string][]byte)}
}

func (m *MockStore) Put(_ context.Context, key, _ string, body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.objects[key] = data
	return m.PublicURL(key), nil
}

func (m *MockStore) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func (m *MockStore) PublicURL(key string) string {
	return "https://cdn.example.com/" + key
}

func TestUploadImage(t *testing.T) {
	store := NewMockStore()
	svc := NewService(store, zap.NewNop())

	ownerID := uuid.New()
	upload, err := svc.UploadImage(context.Background(), ownerID, KindServicePhoto, "image/jpeg", bytes.NewReader([]byte("fake-jpeg")))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(upload.Key, "service_photo/"+ownerID.String()+"/"))
	assert.True(t, strings.HasSuffix(upload.Key, ".jpg"))
	assert.Equal(t, "https://cdn.example.com/"+upload.Key, upload.URL)
	assert.Equal(t, []byte("fake-jpeg"), store.objects[upload.Key])
}

func TestUploadImage_RejectsUnsupportedType(t *testing.T) {
	svc := NewService(NewMockStore(), zap.NewNop())

	_, err := svc.UploadImage(context.Background(), uuid.New(), KindAvatar, "application/pdf", bytes.NewReader(nil))
	require.ErrorIs(t, err, ErrUnsupportedType)
}

func TestDeleteImage(t *testing.T) {
	store := NewMockStore()
	svc := NewService(store, zap.NewNop())

	ownerID := uuid.New()
	upload, err := svc.UploadImage(context.Background(), ownerID, KindChatAttachment, "image/png", bytes.NewReader([]byte("png")))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteImage(context.Background(), upload.Key))
	assert.Contains(t, store.deleted, upload.Key)
	assert.NotContains(t, store.objects, upload.Key)
}
