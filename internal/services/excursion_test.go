package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ausflug-backend/internal/catalog"
	"ausflug-backend/internal/models"
)

var (
	alice = &models.User{ID: "u-alice", Name: "Alice", Email: "alice@example.ch"}
	bob   = &models.User{ID: "u-bob", Name: "Bob", Email: "bob@example.ch"}
)

func newTestExcursionService() (*ExcursionService, *fakeCatalog, *fakeObjects) {
	cat := &fakeCatalog{}
	objects := newFakeObjects()
	return NewExcursionService(cat, fakePhotoRecords{cat}, objects, "photos/"), cat, objects
}

func TestExcursionService_Create(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestExcursionService()

	e, err := svc.Create(ctx, alice, validExcursionInput())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if e.ID == "" || e.AuthorID != alice.ID || e.AuthorName != "Alice" {
		t.Errorf("created = %+v", e)
	}
	if e.Country != models.DefaultCountry {
		t.Errorf("country = %q, want default %q", e.Country, models.DefaultCountry)
	}
	if e.ReviewCount != 0 || e.AverageRating != 0 {
		t.Error("new excursion must start without reviews")
	}
	if catalog.Of(*e).Display() != catalog.NoReviewsLabel {
		t.Errorf("display = %q", catalog.Of(*e).Display())
	}

	got, err := svc.Get(ctx, e.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Title != e.Title {
		t.Errorf("Get() title = %q", got.Title)
	}
}

func TestExcursionService_CreateValidation(t *testing.T) {
	ctx := context.Background()
	svc, cat, _ := newTestExcursionService()

	tests := []struct {
		name   string
		mutate func(*models.ExcursionInput)
	}{
		{"short title", func(in *models.ExcursionInput) { in.Title = "ab" }},
		{"short description", func(in *models.ExcursionInput) { in.Description = "kurz" }},
		{"unknown category", func(in *models.ExcursionInput) { in.Category = "BUNGEE" }},
		{"unknown parking", func(in *models.ExcursionInput) { in.ParkingSituation = "VALET" }},
		{"region of other country", func(in *models.ExcursionInput) { in.Country = "DE"; in.Region = "ZH" }},
		{"bad website", func(in *models.ExcursionInput) { u := "not a url"; in.WebsiteURL = &u }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validExcursionInput()
			tt.mutate(&in)
			if _, err := svc.Create(ctx, alice, in); !errors.Is(err, ErrValidation) {
				t.Errorf("Create() error = %v, want ErrValidation", err)
			}
		})
	}
	if len(cat.excursions) != 0 {
		t.Errorf("invalid input stored %d excursions", len(cat.excursions))
	}

	if _, err := svc.Create(ctx, nil, validExcursionInput()); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("anonymous Create() error = %v, want ErrUnauthorized", err)
	}
}

func TestExcursionService_OwnerOnly(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestExcursionService()
	e, err := svc.Create(ctx, alice, validExcursionInput())
	if err != nil {
		t.Fatal(err)
	}

	edit := validExcursionInput()
	edit.Title = "Geänderter Titel"

	if _, err := svc.Update(ctx, bob, e.ID, edit); !errors.Is(err, ErrForbidden) {
		t.Errorf("Update() by non-author error = %v, want ErrForbidden", err)
	}
	if err := svc.Delete(ctx, bob, e.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("Delete() by non-author error = %v, want ErrForbidden", err)
	}
	if _, err := svc.Update(ctx, nil, e.ID, edit); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("anonymous Update() error = %v, want ErrUnauthorized", err)
	}

	unchanged, _ := svc.Get(ctx, e.ID)
	if unchanged.Title != e.Title {
		t.Error("record changed after rejected update")
	}

	updated, err := svc.Update(ctx, alice, e.ID, edit)
	if err != nil {
		t.Fatalf("Update() by author error = %v", err)
	}
	if updated.Title != "Geänderter Titel" {
		t.Errorf("title = %q", updated.Title)
	}

	if err := svc.Delete(ctx, alice, e.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := svc.Get(ctx, e.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(ctx, alice, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete(missing) error = %v, want ErrNotFound", err)
	}
}

func TestExcursionService_ListAndFeatured(t *testing.T) {
	ctx := context.Background()
	svc, cat, _ := newTestExcursionService()

	titles := []string{"Zoo Zürich Besuch", "Rheinfall Ausflug", "Uetliberg Wanderung"}
	for _, title := range titles {
		in := validExcursionInput()
		in.Title = title
		if strings.HasPrefix(title, "Zoo") {
			in.Category = "ZOO"
			in.IsFree = false
		}
		if _, err := svc.Create(ctx, alice, in); err != nil {
			t.Fatal(err)
		}
	}
	// newest first: Uetliberg, Rheinfall, Zoo
	cat.excursions[1].AverageRating = 4.5
	cat.excursions[2].AverageRating = 4.8

	free := true
	list, err := svc.List(ctx, catalog.Criteria{IsFree: &free})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Title != "Uetliberg Wanderung" || list[1].Title != "Rheinfall Ausflug" {
		t.Errorf("List(is_free) = %v", list)
	}

	list, _ = svc.List(ctx, catalog.Criteria{Query: "rheinFALL"})
	if len(list) != 1 {
		t.Errorf("List(q) returned %d, want 1", len(list))
	}

	featured, err := svc.Featured(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(featured.Excursions) != 2 || featured.Excursions[0].Title != "Zoo Zürich Besuch" {
		t.Errorf("Featured() = %v", featured.Excursions)
	}
	if featured.Stats.Total != 3 || featured.Stats.Categories != 2 || featured.Stats.Authors != 1 {
		t.Errorf("Stats = %+v", featured.Stats)
	}
}

func TestExcursionService_AddPhotos(t *testing.T) {
	ctx := context.Background()
	svc, _, objects := newTestExcursionService()
	e, err := svc.Create(ctx, alice, validExcursionInput())
	if err != nil {
		t.Fatal(err)
	}

	res, err := svc.AddPhotos(ctx, alice, e.ID, []PhotoUpload{
		{Filename: "a.png", Data: pngHeader},
		{Filename: "b.png", Data: pngHeader},
	})
	if err != nil {
		t.Fatalf("AddPhotos() error = %v", err)
	}
	if len(res.Uploaded) != 2 {
		t.Fatalf("uploaded = %v", res.Uploaded)
	}
	for _, name := range res.Uploaded {
		if !strings.HasSuffix(name, ".png") {
			t.Errorf("name %q should carry the sniffed extension", name)
		}
		if objects.types["photos/"+name] != "image/png" {
			t.Errorf("content type = %q", objects.types["photos/"+name])
		}
	}

	got, _ := svc.Get(ctx, e.ID)
	if len(got.Photos) != 2 || got.Photos[0] != res.Uploaded[0] || got.Photos[1] != res.Uploaded[1] {
		t.Errorf("photos = %v, want upload order %v", got.Photos, res.Uploaded)
	}

	url, err := svc.PhotoURL(ctx, res.Uploaded[0])
	if err != nil || !strings.Contains(url, res.Uploaded[0]) {
		t.Errorf("PhotoURL() = %q, %v", url, err)
	}
	if _, err := svc.PhotoURL(ctx, "../etc/passwd"); !errors.Is(err, ErrNotFound) {
		t.Errorf("PhotoURL(traversal) error = %v", err)
	}

	if err := svc.DeletePhoto(ctx, bob, e.ID, res.Uploaded[0]); !errors.Is(err, ErrForbidden) {
		t.Errorf("DeletePhoto() by non-author error = %v", err)
	}
	if err := svc.DeletePhoto(ctx, alice, e.ID, res.Uploaded[0]); err != nil {
		t.Fatalf("DeletePhoto() error = %v", err)
	}
	if len(objects.keys()) != 1 {
		t.Errorf("objects = %v, want 1 left", objects.keys())
	}
	if err := svc.DeletePhoto(ctx, alice, e.ID, res.Uploaded[0]); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeletePhoto() error = %v, want ErrNotFound", err)
	}

	if err := svc.Delete(ctx, alice, e.ID); err != nil {
		t.Fatal(err)
	}
	if len(objects.keys()) != 0 {
		t.Errorf("objects after excursion delete = %v", objects.keys())
	}
}

func TestExcursionService_AddPhotosRejects(t *testing.T) {
	ctx := context.Background()
	svc, _, objects := newTestExcursionService()
	e, err := svc.Create(ctx, alice, validExcursionInput())
	if err != nil {
		t.Fatal(err)
	}

	_, err = svc.AddPhotos(ctx, alice, e.ID, []PhotoUpload{
		{Filename: "a.png", Data: pngHeader},
		{Filename: "notes.txt", Data: []byte("just some text")},
	})
	if !errors.Is(err, ErrInvalidImage) {
		t.Errorf("error = %v, want ErrInvalidImage", err)
	}
	if len(objects.keys()) != 0 {
		t.Error("nothing may be stored when any file is not an image")
	}

	if _, err := svc.AddPhotos(ctx, alice, e.ID, nil); !errors.Is(err, ErrValidation) {
		t.Errorf("empty upload error = %v, want ErrValidation", err)
	}
	if _, err := svc.AddPhotos(ctx, bob, e.ID, []PhotoUpload{{Filename: "a.png", Data: pngHeader}}); !errors.Is(err, ErrForbidden) {
		t.Errorf("non-author error = %v, want ErrForbidden", err)
	}
}

func TestExcursionService_CreateWithPhotosPartialFailure(t *testing.T) {
	ctx := context.Background()
	svc, cat, objects := newTestExcursionService()

	t.Run("some photos fail", func(t *testing.T) {
		objects.failPut[0] = true
		res, err := svc.CreateWithPhotos(ctx, alice, validExcursionInput(), []PhotoUpload{
			{Filename: "a.png", Data: pngHeader},
			{Filename: "b.png", Data: pngHeader},
		})
		if err != nil {
			t.Fatalf("CreateWithPhotos() error = %v", err)
		}
		if res.Warning == "" || len(res.Photos.Failed) != 1 {
			t.Errorf("result = %+v", res)
		}
		if len(res.Excursion.Photos) != 1 {
			t.Errorf("photos = %v, want the one stored", res.Excursion.Photos)
		}
	})

	t.Run("all photos fail keeps the record", func(t *testing.T) {
		cat.failPhoto = true
		defer func() { cat.failPhoto = false }()
		before := len(cat.excursions)
		res, err := svc.CreateWithPhotos(ctx, alice, validExcursionInput(), []PhotoUpload{{Filename: "a.png", Data: pngHeader}})
		if err != nil {
			t.Fatalf("CreateWithPhotos() error = %v", err)
		}
		if res.Warning == "" {
			t.Error("expected a warning")
		}
		if len(cat.excursions) != before+1 {
			t.Error("excursion must not be rolled back")
		}
	})

	t.Run("invalid input stores nothing", func(t *testing.T) {
		in := validExcursionInput()
		in.Title = ""
		if _, err := svc.CreateWithPhotos(ctx, alice, in, nil); !errors.Is(err, ErrValidation) {
			t.Errorf("error = %v, want ErrValidation", err)
		}
	})
}
