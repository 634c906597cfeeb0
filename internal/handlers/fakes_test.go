package handlers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"ausflug-backend/internal/catalog"
	"ausflug-backend/internal/middleware"
	"ausflug-backend/internal/models"
	"ausflug-backend/internal/repository"
	"ausflug-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
)

const (
	testCookie = "session_token"
	testOrigin = "https://app.example"
)

// memStore is one in-memory database behind every store interface
type memStore struct {
	mu         sync.Mutex
	users      map[string]*models.User
	sessions   map[string]*models.Session
	excursions []*models.Excursion
	photos     []models.Photo
	reviews    []models.Review
	objects    map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[string]*models.User{},
		sessions: map[string]*models.Session{},
		objects:  map[string][]byte{},
	}
}

type memUsers struct{ *memStore }

func (m memUsers) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return repository.ErrDuplicate
		}
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (m memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m memUsers) UpdatePushToken(_ context.Context, userID string, token *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.PushToken = token
	return nil
}

type memSessions struct{ *memStore }

func (m memSessions) Create(_ context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m memSessions) GetByID(_ context.Context, id string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (m memSessions) DeleteByUserID(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		if s.UserID == userID {
			delete(m.sessions, id)
		}
	}
	return nil
}

func (m memSessions) DeleteExpired(context.Context) (int64, error) { return 0, nil }

type memExcursions struct{ *memStore }

func (m memExcursions) find(id string) *models.Excursion {
	for _, e := range m.excursions {
		if e.ID == id {
			return e
		}
	}
	return nil
}

func (m memExcursions) withPhotos(e models.Excursion) models.Excursion {
	e.Photos = []string{}
	for _, p := range m.photos {
		if p.ExcursionID == e.ID {
			e.Photos = append(e.Photos, p.Name)
		}
	}
	return e
}

func (m memExcursions) Create(_ context.Context, e *models.Excursion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.excursions = append([]*models.Excursion{&cp}, m.excursions...)
	return nil
}

func (m memExcursions) GetByID(_ context.Context, id string) (*models.Excursion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.find(id)
	if e == nil {
		return nil, repository.ErrNotFound
	}
	out := m.withPhotos(*e)
	return &out, nil
}

func (m memExcursions) List(context.Context) ([]models.Excursion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Excursion, 0, len(m.excursions))
	for _, e := range m.excursions {
		out = append(out, m.withPhotos(*e))
	}
	return out, nil
}

func (m memExcursions) Update(_ context.Context, id string, in models.ExcursionInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.find(id)
	if e == nil {
		return repository.ErrNotFound
	}
	e.ExcursionInput = in
	return nil
}

func (m memExcursions) RefreshRating(_ context.Context, id string) (float64, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.find(id)
	if e == nil {
		return 0, 0, repository.ErrNotFound
	}
	var reviews []models.Review
	for _, r := range m.reviews {
		if r.ExcursionID == id {
			reviews = append(reviews, r)
		}
	}
	catalog.Aggregate(reviews).Apply(e)
	return e.AverageRating, e.ReviewCount, nil
}

func (m memExcursions) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.excursions {
		if e.ID == id {
			m.excursions = append(m.excursions[:i], m.excursions[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

type memPhotos struct{ *memStore }

func (m memPhotos) Create(_ context.Context, p *models.Photo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.photos = append(m.photos, *p)
	return nil
}

func (m memPhotos) GetByName(_ context.Context, name string) (*models.Photo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.photos {
		if p.Name == name {
			cp := p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m memPhotos) ListNames(_ context.Context, excursionID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var names []string
	for _, p := range m.photos {
		if p.ExcursionID == excursionID {
			names = append(names, p.Name)
		}
	}
	return names, nil
}

func (m memPhotos) Delete(_ context.Context, excursionID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.photos {
		if p.ExcursionID == excursionID && p.Name == name {
			m.photos = append(m.photos[:i], m.photos[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

type memObjects struct{ *memStore }

func (m memObjects) Put(_ context.Context, key, _ string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m memObjects) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m memObjects) PresignGet(_ context.Context, key string) (string, error) {
	return "https://bucket.example/" + key + "?sig=1", nil
}

type memReviews struct{ *memStore }

func (m memReviews) Create(_ context.Context, r *models.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.reviews {
		if existing.ExcursionID == r.ExcursionID && existing.UserID == r.UserID {
			return repository.ErrDuplicate
		}
	}
	m.reviews = append([]models.Review{*r}, m.reviews...)
	return nil
}

func (m memReviews) Exists(_ context.Context, excursionID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.reviews {
		if r.ExcursionID == excursionID && r.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m memReviews) ListByExcursion(_ context.Context, excursionID string) ([]models.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Review{}
	for _, r := range m.reviews {
		if r.ExcursionID == excursionID {
			out = append(out, r)
		}
	}
	return out, nil
}

// testApp wires real services over memStore behind a router shaped like
// the production one
type testApp struct {
	store  *memStore
	users  *services.UserService
	hub    *services.RatingHub
	server *httptest.Server
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	store := newMemStore()
	users := services.NewUserService(memUsers{store}, memSessions{store}, nil, services.UserServiceConfig{
		JWTSecret:  "test-secret-with-at-least-32-characters",
		JWTIssuer:  "ausflug-test",
		SessionTTL: time.Hour,
	})
	excursions := services.NewExcursionService(memExcursions{store}, memPhotos{store}, memObjects{store}, "photos/")
	hub := services.NewRatingHub()
	reviews := services.NewReviewService(memReviews{store}, memExcursions{store}, hub)

	userHandler := NewUserHandler(users, CookieSettings{Name: testCookie}, []string{testOrigin})
	excursionHandler := NewExcursionHandler(excursions, 1<<20)
	photoHandler := NewPhotoHandler(excursions, 1<<20)
	reviewHandler := NewReviewHandler(reviews)
	optionsHandler := NewOptionsHandler(services.NewRegionDirectory(services.StaticRegions{}))
	placesHandler := NewPlacesHandler(services.DisabledPlaces{})
	wsHandler := NewWebSocketHandler(hub, excursions, []string{"*"})

	r := chi.NewRouter()
	r.Use(middleware.Identify(users, testCookie))
	r.Route("/api", func(r chi.Router) {
		r.Get("/excursions", excursionHandler.List)
		r.Get("/excursions/featured", excursionHandler.Featured)
		r.Get("/excursions/{id}", excursionHandler.Get)
		r.Get("/excursions/{id}/reviews", reviewHandler.List)
		r.Get("/excursions/{id}/rating", reviewHandler.Rating)
		r.Get("/uploads/photos/{name}", photoHandler.Serve)
		r.Get("/cantons", optionsHandler.Cantons)
		r.Get("/regions/{country}", optionsHandler.Regions)
		r.Get("/categories", optionsHandler.Categories)
		r.Get("/places/search", placesHandler.Search)
		r.Post("/auth/register", userHandler.Register)
		r.Post("/auth/login", userHandler.Login)
		r.Post("/auth/logout", userHandler.Logout)
		r.Get("/auth/oauth", userHandler.OAuthRedirect)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Get("/auth/me", userHandler.Me)
			r.Post("/auth/push-token", userHandler.PushToken)
			r.Post("/excursions", excursionHandler.Create)
			r.Put("/excursions/{id}", excursionHandler.Update)
			r.Delete("/excursions/{id}", excursionHandler.Delete)
			r.Post("/excursions/{id}/photos", photoHandler.Upload)
			r.Delete("/excursions/{id}/photos/{name}", photoHandler.Delete)
			r.Post("/excursions/{id}/reviews", reviewHandler.Create)
		})
	})
	r.Get("/ws", wsHandler.HandleWebSocket)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testApp{store: store, users: users, hub: hub, server: srv}
}

// register creates an account and returns its bearer token
func (a *testApp) register(t *testing.T, name, email string) string {
	t.Helper()
	res, err := a.users.Register(context.Background(), services.RegisterRequest{
		Name:     name,
		Email:    email,
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("Register(%s) error = %v", email, err)
	}
	return res.Token
}

func (a *testApp) do(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, a.server.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return a.send(t, req, token)
}

func (a *testApp) send(t *testing.T, req *http.Request, token string) *http.Response {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (a *testApp) upload(t *testing.T, path, token string, files map[string][]byte, excursion interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if excursion != nil {
		data, err := json.Marshal(excursion)
		if err != nil {
			t.Fatalf("marshal excursion: %v", err)
		}
		if err := mw.WriteField("excursion", string(data)); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for name, data := range files {
		part, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		part.Write(data)
	}
	mw.Close()

	req, err := http.NewRequest(http.MethodPost, a.server.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return a.send(t, req, token)
}

func decodeBody(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode %s response: %v", resp.Request.URL.Path, err)
	}
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		var body ErrorResponse
		json.NewDecoder(resp.Body).Decode(&body)
		t.Fatalf("%s %s status = %d (%q), want %d",
			resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, body.Detail, want)
	}
}

func expectDetail(t *testing.T, resp *http.Response, status int, contains string) {
	t.Helper()
	if resp.StatusCode != status {
		t.Fatalf("%s %s status = %d, want %d", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, status)
	}
	var body ErrorResponse
	decodeBody(t, resp, &body)
	if !strings.Contains(body.Detail, contains) {
		t.Errorf("detail = %q, want it to contain %q", body.Detail, contains)
	}
}

// pngHeader is enough for content sniffing to report image/png
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func excursionBody() models.ExcursionInput {
	return models.ExcursionInput{
		Title:            "Rheinfall Schaffhausen",
		Description:      "Der grösste Wasserfall Europas, ideal für Familien.",
		Address:          "Rheinfallquai, 8212 Neuhausen",
		Region:           "SH",
		Category:         "VIEWPOINT",
		IsOutdoor:        true,
		IsFree:           true,
		ParkingSituation: "LIMITED",
	}
}
