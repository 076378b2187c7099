package upload

import (
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/broadcast-ops/fault-tracker/internal/config"
	apperrors "github.com/broadcast-ops/fault-tracker/pkg/util"
)

var allowedAvatarTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

// AvatarStore saves uploaded profile images on local disk and hands back the
// public URL recorded on the user record.
type AvatarStore struct {
	dir     string
	baseURL string
	maxSize int64
}

// NewAvatarStore ensures the upload directory exists.
func NewAvatarStore(cfg config.UploadConfig) (*AvatarStore, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &AvatarStore{dir: cfg.Dir, baseURL: strings.TrimRight(cfg.BaseURL, "/"), maxSize: cfg.MaxSizeBytes}, nil
}

// Save validates and persists an avatar file, returning its URL.
func (s *AvatarStore) Save(c *fiber.Ctx, file *multipart.FileHeader) (string, error) {
	if file.Size > s.maxSize {
		return "", apperrors.NewValidationError("avatar exceeds the maximum allowed size", nil)
	}
	contentType := file.Header.Get("Content-Type")
	ext, ok := allowedAvatarTypes[strings.ToLower(contentType)]
	if !ok {
		return "", apperrors.NewValidationError("avatar must be a jpeg, png or gif image", nil)
	}

	name := uuid.New().String() + ext
	if err := c.SaveFile(file, filepath.Join(s.dir, name)); err != nil {
		return "", fmt.Errorf("save avatar: %w", err)
	}
	return s.baseURL + "/" + name, nil
}
