package facesearch

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/caroduarte/lumina-backend/pkg/config"
	"github.com/caroduarte/lumina-backend/pkg/db/models"
	"github.com/caroduarte/lumina-backend/pkg/enums"
	pkgerrors "github.com/caroduarte/lumina-backend/pkg/errors"
	"github.com/caroduarte/lumina-backend/pkg/logger"
	"github.com/caroduarte/lumina-backend/pkg/types"
	"github.com/caroduarte/lumina-backend/pkg/vision"
)

const (
	fallbackMinConfidence = 50
	fallbackMaxResults    = 50
)

// Service finds the photos a person appears in by running the reference
// image through the vision model against each candidate's watermarked
// rendition. Confidence is display-only; the matches act as filters over
// otherwise-normal photo listings.
type Service interface {
	Search(ctx context.Context, viewer types.Viewer, input SearchInput) (*SearchResult, error)
}

type faceMatcher interface {
	DescribeFace(ctx context.Context, imageBase64 string) (string, error)
	MatchFace(ctx context.Context, faceDescription, imageBase64 string) (vision.MatchResult, error)
}

type eventSource interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	List(ctx context.Context, publicOnly bool) ([]models.Event, error)
}

type photoSource interface {
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Photo, error)
}

type renditionFetcher interface {
	Fetch(ctx context.Context, publicID string, rendition enums.Rendition) ([]byte, error)
}

type urlBuilder interface {
	RenditionURL(publicID string, rendition enums.Rendition) string
}

type service struct {
	vision        faceMatcher
	events        eventSource
	photos        photoSource
	assets        renditionFetcher
	urls          urlBuilder
	logger        *logger.Logger
	minConfidence int
	maxResults    int
}

// ServiceParams bundles the dependencies required to build the face
// search service.
type ServiceParams struct {
	Vision faceMatcher
	Events eventSource
	Photos photoSource
	Assets renditionFetcher
	URLs   urlBuilder
	Logger *logger.Logger
	Config config.VisionConfig
}

// NewService builds the face search service.
func NewService(params ServiceParams) (Service, error) {
	if params.Vision == nil {
		return nil, fmt.Errorf("vision client is required")
	}
	if params.Events == nil {
		return nil, fmt.Errorf("event source is required")
	}
	if params.Photos == nil {
		return nil, fmt.Errorf("photo source is required")
	}
	if params.Assets == nil {
		return nil, fmt.Errorf("rendition fetcher is required")
	}
	if params.URLs == nil {
		return nil, fmt.Errorf("url builder is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	minConfidence := params.Config.MinConfidence
	if minConfidence <= 0 {
		minConfidence = fallbackMinConfidence
	}
	maxResults := params.Config.MaxResults
	if maxResults <= 0 {
		maxResults = fallbackMaxResults
	}
	return &service{
		vision:        params.Vision,
		events:        params.Events,
		photos:        params.Photos,
		assets:        params.Assets,
		urls:          params.URLs,
		logger:        params.Logger,
		minConfidence: minConfidence,
		maxResults:    maxResults,
	}, nil
}

func (s *service) Search(ctx context.Context, viewer types.Viewer, input SearchInput) (*SearchResult, error) {
	reference := normalizeReferenceImage(input.ReferenceImage)
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference image is required")
	}

	description, err := s.vision.DescribeFace(ctx, reference)
	if err != nil {
		return nil, err
	}

	candidates, err := s.collectCandidates(ctx, viewer, input.EventID)
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0)
	for _, photo := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		content, err := s.assets.Fetch(ctx, photo.StorageKey, enums.RenditionWatermarked)
		if err != nil {
			s.logger.Warn(ctx, fmt.Sprintf("face search: skipping photo %s: fetch failed: %v", photo.ID, err))
			continue
		}
		result, err := s.vision.MatchFace(ctx, description, base64.StdEncoding.EncodeToString(content))
		if err != nil {
			s.logger.Warn(ctx, fmt.Sprintf("face search: skipping photo %s: match failed: %v", photo.ID, err))
			continue
		}
		if !result.Matched || result.Confidence < s.minConfidence {
			continue
		}
		matches = append(matches, Match{
			PhotoID:        photo.ID,
			EventID:        photo.EventID,
			Filename:       photo.Filename,
			ThumbnailURL:   s.urls.RenditionURL(photo.StorageKey, enums.RenditionThumbnail),
			WatermarkedURL: s.urls.RenditionURL(photo.StorageKey, enums.RenditionWatermarked),
			Confidence:     result.Confidence,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})
	if len(matches) > s.maxResults {
		matches = matches[:s.maxResults]
	}

	return &SearchResult{
		Description: description,
		Matches:     matches,
		Scanned:     len(candidates),
	}, nil
}

// collectCandidates resolves the photo set to scan: a single event when a
// filter is given, otherwise every event the viewer may browse.
func (s *service) collectCandidates(ctx context.Context, viewer types.Viewer, eventID *uuid.UUID) ([]models.Photo, error) {
	if eventID != nil {
		event, err := s.events.FindByID(ctx, *eventID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load event")
		}
		if !event.IsPublic && !viewer.Authenticated() {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "event is not accessible")
		}
		photos, err := s.photos.ListByEvent(ctx, event.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list event photos")
		}
		return photos, nil
	}

	events, err := s.events.List(ctx, !viewer.Authenticated())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list events")
	}
	var all []models.Photo
	for _, event := range events {
		photos, err := s.photos.ListByEvent(ctx, event.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list event photos")
		}
		all = append(all, photos...)
	}
	return all, nil
}

func normalizeReferenceImage(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if idx := strings.Index(trimmed, ";base64,"); idx >= 0 && strings.HasPrefix(trimmed, "data:") {
		trimmed = trimmed[idx+len(";base64,"):]
	}
	return trimmed
}
