package media

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Kind classifies an upload by where it is shown.
type Kind string

const (
	KindServicePhoto   Kind = "service_photo"
	KindAvatar         Kind = "avatar"
	KindChatAttachment Kind = "chat_attachment"
)

var allowedContentTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// MaxUploadSize caps uploads at 10 MiB.
const MaxUploadSize = 10 << 20

// ErrUnsupportedType is returned for content types other than jpeg/png/webp.
var ErrUnsupportedType = fmt.Errorf("unsupported content type")

// Upload describes a stored media object.
type Upload struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// ObjectStore is the storage surface the media service depends on.
// Satisfied by *Storage.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
}

// Service implements image upload operations.
type Service struct {
	store  ObjectStore
	logger *zap.Logger
}

// NewService creates a new media service.
func NewService(store ObjectStore, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// UploadImage stores an image and returns its key and public URL. Keys are
// sharded by kind, owner and month so buckets stay browsable.
func (s *Service) UploadImage(ctx context.Context, ownerID uuid.UUID, kind Kind, contentType string, body io.Reader) (*Upload, error) {
	ext, ok := allowedContentTypes[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}

	key := path.Join(
		string(kind),
		ownerID.String(),
		time.Now().UTC().Format("2006-01"),
		uuid.New().String()+ext,
	)

	url, err := s.store.Put(ctx, key, contentType, io.LimitReader(body, MaxUploadSize))
	if err != nil {
		return nil, err
	}

	s.logger.Info("media uploaded",
		zap.String("owner_id", ownerID.String()),
		zap.String("key", key))
	return &Upload{Key: key, URL: url}, nil
}

// DeleteImage removes a stored image.
func (s *Service) DeleteImage(ctx context.Context, key string) error {
	return s.store.Delete(ctx, key)
}
