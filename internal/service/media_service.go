package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"chat-api/internal/apperr"
	"chat-api/internal/storage"
)

// MaxImageSize is the largest accepted image upload.
const MaxImageSize = 5 << 20

var (
	ErrStorageDisabled = apperr.New(apperr.KindUnavailable, "image uploads are not configured")
	ErrImageTooLarge   = apperr.Validation("image must be 5MB or smaller")
	ErrNotAnImage      = apperr.Validation("only image uploads are allowed")
)

// MediaService stores images that can be referenced from messages and
// profiles.
type MediaService interface {
	UploadImage(ctx context.Context, userID string, body io.Reader) (string, error)
	ListImages(ctx context.Context, userID string) ([]storage.ObjectInfo, error)
}

type mediaService struct {
	store     storage.Service
	keyPrefix string
	newID     func() string
}

// NewMediaService returns a MediaService backed by store. A nil store yields
// a service whose operations fail with ErrStorageDisabled.
func NewMediaService(store storage.Service, keyPrefix string) MediaService {
	return &mediaService{
		store:     store,
		keyPrefix: strings.Trim(strings.TrimSpace(keyPrefix), "/"),
		newID:     uuid.NewString,
	}
}

func (s *mediaService) UploadImage(ctx context.Context, userID string, body io.Reader) (string, error) {
	if s.store == nil {
		return "", ErrStorageDisabled
	}

	data, err := io.ReadAll(io.LimitReader(body, MaxImageSize+1))
	if err != nil {
		return "", apperr.Validation("could not read upload").Wrap(err)
	}
	if len(data) == 0 {
		return "", apperr.Validation("image is empty")
	}
	if len(data) > MaxImageSize {
		return "", ErrImageTooLarge
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return "", ErrNotAnImage
	}

	key := path.Join(s.userPrefix(userID), s.newID()+mtype.Extension())
	url, err := s.store.Upload(ctx, key, bytes.NewReader(data), mtype.String())
	if err != nil {
		return "", apperr.Internal(fmt.Errorf("store image: %w", err))
	}
	return url, nil
}

// ListImages returns the caller's uploads, newest first.
func (s *mediaService) ListImages(ctx context.Context, userID string) ([]storage.ObjectInfo, error) {
	if s.store == nil {
		return nil, ErrStorageDisabled
	}
	objects, err := s.store.ListObjects(ctx, s.userPrefix(userID)+"/")
	if err != nil {
		return nil, apperr.Internal(err)
	}
	sort.SliceStable(objects, func(i, j int) bool {
		a, b := objects[i].LastModified, objects[j].LastModified
		if a == nil || b == nil {
			return b == nil && a != nil
		}
		return a.After(*b)
	})
	return objects, nil
}

func (s *mediaService) userPrefix(userID string) string {
	if s.keyPrefix == "" {
		return userID
	}
	return s.keyPrefix + "/" + userID
}
