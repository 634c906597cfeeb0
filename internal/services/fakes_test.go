package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"ausflug-backend/internal/catalog"
	"ausflug-backend/internal/models"
	"ausflug-backend/internal/repository"
)

type fakeUsers struct {
	mu    sync.Mutex
	byID  map[string]*models.User
	calls int
}

func newFakeUsers(users ...*models.User) *fakeUsers {
	f := &fakeUsers{byID: make(map[string]*models.User)}
	for _, u := range users {
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUsers) Create(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if strings.EqualFold(u.Email, user.Email) {
			return fmt.Errorf("user: %w", repository.ErrDuplicate)
		}
	}
	cp := *user
	f.byID[user.ID] = &cp
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) UpdatePushToken(_ context.Context, userID string, pushToken *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	u, ok := f.byID[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.PushToken = pushToken
	return nil
}

type fakeSessions struct {
	mu   sync.Mutex
	byID map[string]*models.Session
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{byID: make(map[string]*models.Session)}
}

func (f *fakeSessions) Create(_ context.Context, s *models.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *s
	f.byID[s.ID] = &cp
	return nil
}

func (f *fakeSessions) GetByID(_ context.Context, id string) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessions) DeleteByUserID(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, s := range f.byID {
		if s.UserID == userID {
			delete(f.byID, id)
		}
	}
	return nil
}

func (f *fakeSessions) DeleteExpired(context.Context) (int64, error) {
	return 0, nil
}

func (f *fakeSessions) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID)
}

// fakeCatalog backs both the excursion and photo record stores
type fakeCatalog struct {
	mu         sync.Mutex
	excursions []*models.Excursion
	photos     []models.Photo
	failPhoto  bool
	reviews    *fakeReviews
}

func (f *fakeCatalog) Create(_ context.Context, e *models.Excursion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *e
	cp.Photos = nil
	// newest first
	f.excursions = append([]*models.Excursion{&cp}, f.excursions...)
	return nil
}

func (f *fakeCatalog) withPhotos(e models.Excursion) *models.Excursion {
	e.Photos = []string{}
	for _, p := range f.photos {
		if p.ExcursionID == e.ID {
			e.Photos = append(e.Photos, p.Name)
		}
	}
	return &e
}

func (f *fakeCatalog) GetByID(_ context.Context, id string) (*models.Excursion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.excursions {
		if e.ID == id {
			return f.withPhotos(*e), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeCatalog) List(context.Context) ([]models.Excursion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Excursion, 0, len(f.excursions))
	for _, e := range f.excursions {
		out = append(out, *f.withPhotos(*e))
	}
	return out, nil
}

func (f *fakeCatalog) Update(_ context.Context, id string, in models.ExcursionInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.excursions {
		if e.ID == id {
			e.ExcursionInput = in
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeCatalog) RefreshRating(ctx context.Context, id string) (float64, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.excursions {
		if e.ID == id {
			var reviews []models.Review
			if f.reviews != nil {
				reviews, _ = f.reviews.ListByExcursion(ctx, id)
			}
			catalog.Aggregate(reviews).Apply(e)
			return e.AverageRating, e.ReviewCount, nil
		}
	}
	return 0, 0, repository.ErrNotFound
}

func (f *fakeCatalog) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, e := range f.excursions {
		if e.ID == id {
			f.excursions = append(f.excursions[:i], f.excursions[i+1:]...)
			kept := f.photos[:0]
			for _, p := range f.photos {
				if p.ExcursionID != id {
					kept = append(kept, p)
				}
			}
			f.photos = kept
			return nil
		}
	}
	return repository.ErrNotFound
}

// fakePhotoRecords adapts fakeCatalog to PhotoRecordStore
type fakePhotoRecords struct{ *fakeCatalog }

func (f fakePhotoRecords) Create(_ context.Context, p *models.Photo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPhoto {
		return errors.New("insert failed")
	}
	f.photos = append(f.photos, *p)
	return nil
}

func (f fakePhotoRecords) GetByName(_ context.Context, name string) (*models.Photo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.photos {
		if p.Name == name {
			cp := p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f fakePhotoRecords) ListNames(_ context.Context, excursionID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := []string{}
	for _, p := range f.photos {
		if p.ExcursionID == excursionID {
			names = append(names, p.Name)
		}
	}
	return names, nil
}

func (f fakePhotoRecords) Delete(_ context.Context, excursionID, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, p := range f.photos {
		if p.ExcursionID == excursionID && p.Name == name {
			f.photos = append(f.photos[:i], f.photos[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	failPut map[int]bool
	puts    int
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string][]byte{}, types: map[string]string{}, failPut: map[int]bool{}}
}

func (f *fakeObjects) Put(_ context.Context, key, contentType string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.puts
	f.puts++
	if f.failPut[n] {
		return errors.New("bucket unavailable")
	}
	f.objects[key] = data
	f.types[key] = contentType
	return nil
}

func (f *fakeObjects) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *fakeObjects) PresignGet(_ context.Context, key string) (string, error) {
	return "https://bucket.example/" + key + "?sig=1", nil
}

func (f *fakeObjects) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type fakeReviews struct {
	mu      sync.Mutex
	reviews []models.Review
}

func (f *fakeReviews) Create(_ context.Context, r *models.Review) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.reviews {
		if existing.ExcursionID == r.ExcursionID && existing.UserID == r.UserID {
			return fmt.Errorf("review: %w", repository.ErrDuplicate)
		}
	}
	f.reviews = append([]models.Review{*r}, f.reviews...)
	return nil
}

func (f *fakeReviews) Exists(_ context.Context, excursionID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.reviews {
		if r.ExcursionID == excursionID && r.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeReviews) ListByExcursion(_ context.Context, excursionID string) ([]models.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Review{}
	for _, r := range f.reviews {
		if r.ExcursionID == excursionID {
			out = append(out, r)
		}
	}
	return out, nil
}

type recordingListener struct {
	mu     sync.Mutex
	events []RatingEvent
}

func (l *recordingListener) RatingChanged(_ context.Context, e RatingEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

// pngHeader is enough for content sniffing to report image/png
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func validExcursionInput() models.ExcursionInput {
	return models.ExcursionInput{
		Title:            "Uetliberg Wanderung",
		Description:      "Aussichtsreiche Wanderung auf den Zürcher Hausberg.",
		Address:          "Uetliberg, 8143 Stallikon",
		Region:           "ZH",
		Category:         "HIKING",
		IsOutdoor:        true,
		IsFree:           true,
		ParkingSituation: "GOOD",
	}
}
