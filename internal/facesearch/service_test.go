package facesearch

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/caroduarte/lumina-backend/pkg/config"
	"github.com/caroduarte/lumina-backend/pkg/db/models"
	"github.com/caroduarte/lumina-backend/pkg/enums"
	pkgerrors "github.com/caroduarte/lumina-backend/pkg/errors"
	"github.com/caroduarte/lumina-backend/pkg/logger"
	"github.com/caroduarte/lumina-backend/pkg/types"
	"github.com/caroduarte/lumina-backend/pkg/vision"
)

type fakeFaceMatcher struct {
	description   string
	describeInput string
	results       map[string]vision.MatchResult
	matchErr      map[string]error
}

func (f *fakeFaceMatcher) DescribeFace(ctx context.Context, imageBase64 string) (string, error) {
	f.describeInput = imageBase64
	return f.description, nil
}

func (f *fakeFaceMatcher) MatchFace(ctx context.Context, faceDescription, imageBase64 string) (vision.MatchResult, error) {
	if err := f.matchErr[imageBase64]; err != nil {
		return vision.MatchResult{}, err
	}
	return f.results[imageBase64], nil
}

type fakeEventSource struct {
	events map[uuid.UUID]*models.Event
}

func (f *fakeEventSource) FindByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	event, ok := f.events[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return event, nil
}

func (f *fakeEventSource) List(ctx context.Context, publicOnly bool) ([]models.Event, error) {
	var result []models.Event
	for _, event := range f.events {
		if publicOnly && !event.IsPublic {
			continue
		}
		result = append(result, *event)
	}
	return result, nil
}

type fakePhotoSource struct {
	byEvent map[uuid.UUID][]models.Photo
}

func (f *fakePhotoSource) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Photo, error) {
	return f.byEvent[eventID], nil
}

type fakeFetcher struct {
	failKeys map[string]bool
}

func (f *fakeFetcher) Fetch(ctx context.Context, publicID string, rendition enums.Rendition) ([]byte, error) {
	if f.failKeys[publicID] {
		return nil, errors.New("cdn unreachable")
	}
	return []byte(publicID), nil
}

type fakeURLs struct{}

func (fakeURLs) RenditionURL(publicID string, rendition enums.Rendition) string {
	return "https://cdn.test/" + rendition.String() + "/" + publicID
}

// candidateKey mirrors what the service hands the matcher for a photo.
func candidateKey(storageKey string) string {
	return base64.StdEncoding.EncodeToString([]byte(storageKey))
}

type searchFixture struct {
	service Service
	matcher *fakeFaceMatcher
	events  *fakeEventSource
	photos  *fakePhotoSource
	fetcher *fakeFetcher
}

func newSearchFixture(t *testing.T, cfg config.VisionConfig) *searchFixture {
	t.Helper()

	matcher := &fakeFaceMatcher{
		description: "brown hair, glasses",
		results:     make(map[string]vision.MatchResult),
		matchErr:    make(map[string]error),
	}
	eventsSrc := &fakeEventSource{events: make(map[uuid.UUID]*models.Event)}
	photosSrc := &fakePhotoSource{byEvent: make(map[uuid.UUID][]models.Photo)}
	fetcher := &fakeFetcher{failKeys: make(map[string]bool)}
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled})

	svc, err := NewService(ServiceParams{
		Vision: matcher,
		Events: eventsSrc,
		Photos: photosSrc,
		Assets: fetcher,
		URLs:   fakeURLs{},
		Logger: logg,
		Config: cfg,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &searchFixture{service: svc, matcher: matcher, events: eventsSrc, photos: photosSrc, fetcher: fetcher}
}

func (fx *searchFixture) addEvent(isPublic bool, photoKeys ...string) uuid.UUID {
	eventID := uuid.New()
	fx.events.events[eventID] = &models.Event{ID: eventID, Name: "Shoot", IsPublic: isPublic}
	for _, key := range photoKeys {
		fx.photos.byEvent[eventID] = append(fx.photos.byEvent[eventID], models.Photo{
			ID:         uuid.New(),
			EventID:    eventID,
			Filename:   key + ".jpg",
			StorageKey: key,
		})
	}
	return eventID
}

func anonymousViewer() types.Viewer {
	return types.Viewer{}
}

func authedViewer() types.Viewer {
	return types.Viewer{UserID: uuid.New(), Role: enums.UserRoleClient}
}

func TestSearch_SortsByConfidenceAndDropsWeakMatches(t *testing.T) {
	fx := newSearchFixture(t, config.VisionConfig{MinConfidence: 50, MaxResults: 50})
	fx.addEvent(true, "alpha", "beta", "gamma", "delta")

	fx.matcher.results[candidateKey("alpha")] = vision.MatchResult{Matched: true, Confidence: 55}
	fx.matcher.results[candidateKey("beta")] = vision.MatchResult{Matched: true, Confidence: 90}
	fx.matcher.results[candidateKey("gamma")] = vision.MatchResult{Matched: true, Confidence: 40}
	fx.matcher.results[candidateKey("delta")] = vision.MatchResult{Matched: false, Confidence: 95}

	result, err := fx.service.Search(context.Background(), anonymousViewer(), SearchInput{ReferenceImage: "c2VsZmll"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Scanned != 4 {
		t.Fatalf("expected 4 candidates scanned, got %d", result.Scanned)
	}
	if len(result.Matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(result.Matches))
	}
	if result.Matches[0].Filename != "beta.jpg" || result.Matches[0].Confidence != 90 {
		t.Fatalf("expected beta.jpg at 90 first, got %+v", result.Matches[0])
	}
	if result.Matches[1].Filename != "alpha.jpg" {
		t.Fatalf("expected alpha.jpg second, got %+v", result.Matches[1])
	}
	if result.Matches[0].WatermarkedURL != "https://cdn.test/watermarked/beta" {
		t.Fatalf("unexpected watermarked URL %q", result.Matches[0].WatermarkedURL)
	}
}

func TestSearch_RequiresReferenceImage(t *testing.T) {
	fx := newSearchFixture(t, config.VisionConfig{})

	_, err := fx.service.Search(context.Background(), anonymousViewer(), SearchInput{ReferenceImage: "   "})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected VALIDATION, got %v", err)
	}
}

func TestSearch_StripsDataURLPrefix(t *testing.T) {
	fx := newSearchFixture(t, config.VisionConfig{})
	fx.addEvent(true)

	_, err := fx.service.Search(context.Background(), anonymousViewer(), SearchInput{
		ReferenceImage: "data:image/jpeg;base64,c2VsZmll",
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if fx.matcher.describeInput != "c2VsZmll" {
		t.Fatalf("expected raw payload, got %q", fx.matcher.describeInput)
	}
}

func TestSearch_EventFilterRespectsVisibility(t *testing.T) {
	fx := newSearchFixture(t, config.VisionConfig{})
	eventID := fx.addEvent(false, "alpha")
	fx.matcher.results[candidateKey("alpha")] = vision.MatchResult{Matched: true, Confidence: 80}

	_, err := fx.service.Search(context.Background(), anonymousViewer(), SearchInput{ReferenceImage: "c2VsZmll", EventID: &eventID})
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN for anonymous viewer, got %v", err)
	}

	result, err := fx.service.Search(context.Background(), authedViewer(), SearchInput{ReferenceImage: "c2VsZmll", EventID: &eventID})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(result.Matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(result.Matches))
	}

	missing := uuid.New()
	_, err = fx.service.Search(context.Background(), authedViewer(), SearchInput{ReferenceImage: "c2VsZmll", EventID: &missing})
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestSearch_AnonymousScanSkipsPrivateEvents(t *testing.T) {
	fx := newSearchFixture(t, config.VisionConfig{})
	fx.addEvent(true, "alpha")
	fx.addEvent(false, "beta")
	fx.matcher.results[candidateKey("alpha")] = vision.MatchResult{Matched: true, Confidence: 80}
	fx.matcher.results[candidateKey("beta")] = vision.MatchResult{Matched: true, Confidence: 80}

	result, err := fx.service.Search(context.Background(), anonymousViewer(), SearchInput{ReferenceImage: "c2VsZmll"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Scanned != 1 {
		t.Fatalf("anonymous scan should only cover public events, scanned %d", result.Scanned)
	}

	result, err = fx.service.Search(context.Background(), authedViewer(), SearchInput{ReferenceImage: "c2VsZmll"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if result.Scanned != 2 {
		t.Fatalf("authenticated scan should cover all events, scanned %d", result.Scanned)
	}
}

func TestSearch_SkipsFailingCandidates(t *testing.T) {
	fx := newSearchFixture(t, config.VisionConfig{})
	fx.addEvent(true, "alpha", "beta", "gamma")
	fx.fetcher.failKeys["alpha"] = true
	fx.matcher.matchErr[candidateKey("beta")] = errors.New("model timeout")
	fx.matcher.results[candidateKey("gamma")] = vision.MatchResult{Matched: true, Confidence: 75}

	result, err := fx.service.Search(context.Background(), anonymousViewer(), SearchInput{ReferenceImage: "c2VsZmll"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(result.Matches) != 1 || result.Matches[0].Filename != "gamma.jpg" {
		t.Fatalf("expected only gamma.jpg to survive, got %+v", result.Matches)
	}
}

func TestSearch_CapsResultCount(t *testing.T) {
	fx := newSearchFixture(t, config.VisionConfig{MinConfidence: 50, MaxResults: 2})
	fx.addEvent(true, "alpha", "beta", "gamma")
	fx.matcher.results[candidateKey("alpha")] = vision.MatchResult{Matched: true, Confidence: 70}
	fx.matcher.results[candidateKey("beta")] = vision.MatchResult{Matched: true, Confidence: 90}
	fx.matcher.results[candidateKey("gamma")] = vision.MatchResult{Matched: true, Confidence: 80}

	result, err := fx.service.Search(context.Background(), anonymousViewer(), SearchInput{ReferenceImage: "c2VsZmll"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(result.Matches) != 2 {
		t.Fatalf("expected the result cap to apply, got %d matches", len(result.Matches))
	}
	if result.Matches[0].Confidence != 90 || result.Matches[1].Confidence != 80 {
		t.Fatalf("expected the strongest two matches, got %+v", result.Matches)
	}
}
