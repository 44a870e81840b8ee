package settings

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/caroduarte/lumina-backend/pkg/errors"
	"github.com/caroduarte/lumina-backend/pkg/logger"
)

// defaultBackgrounds are the stock images shown until an override is set.
var defaultBackgrounds = map[string]string{
	"hero":     "https://images.unsplash.com/photo-1768611264978-92918fa8e8c3?fm=jpg&q=85",
	"login":    "https://images.unsplash.com/photo-1763539818420-165e69b7489b?fm=jpg&q=85",
	"register": "https://images.unsplash.com/photo-1769050351773-925862f14c38?fm=jpg&q=85",
	"gallery1": "https://images.unsplash.com/photo-1589144044802-567f743dd649?fm=jpg&q=85",
	"gallery2": "https://images.unsplash.com/photo-1763539818703-309e93c5e394?fm=jpg&q=85",
	"gallery3": "https://images.unsplash.com/photo-1768611261082-3aa003bd4d29?fm=jpg&q=85",
	"gallery4": "https://images.pexels.com/photos/20743407/pexels-photo-20743407.jpeg",
}

// Service manages the site background settings: a defaults map that admin
// overrides shadow key by key.
type Service interface {
	Backgrounds(ctx context.Context) (map[string]string, error)
	UpdateBackgrounds(ctx context.Context, updates map[string]string) (map[string]string, error)
	UploadBackground(ctx context.Context, key string, content []byte) (string, error)
	ResetBackground(ctx context.Context, key string) (string, error)
}

type settingsRepository interface {
	All(ctx context.Context) (map[string]string, error)
	Upsert(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) (bool, error)
}

type backgroundUploader interface {
	Upload(ctx context.Context, publicID string, content []byte) (string, error)
}

type service struct {
	repo     settingsRepository
	uploader backgroundUploader
	logger   *logger.Logger
}

// ServiceParams bundles the dependencies required to build the settings
// service. Uploader is optional; without it background uploads fail with
// a dependency error.
type ServiceParams struct {
	Repo     settingsRepository
	Uploader backgroundUploader
	Logger   *logger.Logger
}

// NewService builds the settings service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("settings repository is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{repo: params.Repo, uploader: params.Uploader, logger: params.Logger}, nil
}

// Backgrounds merges stored overrides over the defaults so every known
// key always resolves to some URL.
func (s *service) Backgrounds(ctx context.Context) (map[string]string, error) {
	overrides, err := s.repo.All(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load settings")
	}

	merged := make(map[string]string, len(defaultBackgrounds))
	for key, value := range defaultBackgrounds {
		merged[key] = value
	}
	for key, value := range overrides {
		if _, known := defaultBackgrounds[key]; known {
			merged[key] = value
		}
	}
	return merged, nil
}

func (s *service) UpdateBackgrounds(ctx context.Context, updates map[string]string) (map[string]string, error) {
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no settings provided")
	}
	for key := range updates {
		if err := validateKey(key); err != nil {
			return nil, err
		}
	}

	for key, value := range updates {
		value = strings.TrimSpace(value)
		if value == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("setting %q requires a value", key))
		}
		if err := s.repo.Upsert(ctx, key, value); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store setting")
		}
	}
	return s.Backgrounds(ctx)
}

// UploadBackground pushes a custom image to the CDN and stores its URL as
// the override for the key.
func (s *service) UploadBackground(ctx context.Context, key string, content []byte) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	if len(content) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "image content is required")
	}
	if s.uploader == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "image storage is not configured")
	}

	publicID := fmt.Sprintf("backgrounds/%s_%s", key, uuid.NewString()[:12])
	url, err := s.uploader.Upload(ctx, publicID, content)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upload background image")
	}
	if err := s.repo.Upsert(ctx, key, url); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store setting")
	}
	return url, nil
}

// ResetBackground drops the override and reports the default that takes
// effect again.
func (s *service) ResetBackground(ctx context.Context, key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	if _, err := s.repo.Delete(ctx, key); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete setting")
	}
	return defaultBackgrounds[key], nil
}

func validateKey(key string) error {
	if _, ok := defaultBackgrounds[key]; !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid setting key %q, must be one of: %s", key, strings.Join(knownKeys(), ", ")))
	}
	return nil
}

func knownKeys() []string {
	keys := make([]string, 0, len(defaultBackgrounds))
	for key := range defaultBackgrounds {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
