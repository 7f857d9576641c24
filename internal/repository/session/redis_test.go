package session

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/tutordex/internal/db"
	"github.com/kailas-cloud/tutordex/internal/domain"
)

// fakeJSONStore emulates the JSON document subset of the db facade.
type fakeJSONStore struct {
	docs    map[string]sessionDoc
	ttls    map[string]time.Duration
	appends int
}

func newFakeJSONStore() *fakeJSONStore {
	return &fakeJSONStore{
		docs: make(map[string]sessionDoc),
		ttls: make(map[string]time.Duration),
	}
}

func (f *fakeJSONStore) JSONSet(_ context.Context, key, path string, data []byte) error {
	switch path {
	case "$":
		var doc sessionDoc
		if err := json.Unmarshal(data, &doc); err != nil {
			return err
		}
		f.docs[key] = doc
	case "$.updated_at", "$.expires_at":
		doc, ok := f.docs[key]
		if !ok {
			return errors.New("no such key")
		}
		var ts time.Time
		if err := json.Unmarshal(data, &ts); err != nil {
			return err
		}
		if path == "$.updated_at" {
			doc.UpdatedAt = ts
		} else {
			doc.ExpiresAt = ts
		}
		f.docs[key] = doc
	default:
		return errors.New("unsupported path " + path)
	}
	return nil
}

func (f *fakeJSONStore) JSONGet(_ context.Context, key string, _ ...string) ([]byte, error) {
	doc, ok := f.docs[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return json.Marshal(doc)
}

func (f *fakeJSONStore) JSONArrAppend(_ context.Context, key, path string, items ...[]byte) error {
	if path != "$.turns" {
		return errors.New("unsupported path " + path)
	}
	doc, ok := f.docs[key]
	if !ok {
		return errors.New("no such key")
	}
	for _, item := range items {
		var turn turnDoc
		if err := json.Unmarshal(item, &turn); err != nil {
			return err
		}
		doc.Turns = append(doc.Turns, turn)
	}
	f.docs[key] = doc
	f.appends++
	return nil
}

func (f *fakeJSONStore) Del(_ context.Context, key string) error {
	delete(f.docs, key)
	return nil
}

func (f *fakeJSONStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	f.ttls[key] = ttl
	return nil
}

func TestRedis_CreateGetRoundTrip(t *testing.T) {
	fake := newFakeJSONStore()
	r := NewRedis(fake, "tutordex:sessions:", time.Hour)

	s, err := r.Create(context.Background(), map[string]string{"initial_chapter_id": "ch-1"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if fake.ttls["tutordex:sessions:"+s.ID] != time.Hour {
		t.Error("Create did not set the key TTL")
	}

	got, err := r.Get(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != s.ID || got.Metadata["initial_chapter_id"] != "ch-1" {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestRedis_GetUnknown(t *testing.T) {
	r := NewRedis(newFakeJSONStore(), "tutordex:sessions:", time.Hour)

	if _, err := r.Get(context.Background(), "sess-missing"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestRedis_AppendTurnsSlidesTTL(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	fake := newFakeJSONStore()
	r := NewRedis(fake, "tutordex:sessions:", time.Hour).WithClock(func() time.Time { return now })

	s, err := r.Create(context.Background(), nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	now = base.Add(45 * time.Minute)
	turns := []domain.Turn{
		{ID: "msg-1", Role: domain.RoleUser, Content: "what is a topic?", ChapterID: "ch-3"},
		{ID: "msg-2", Role: domain.RoleAssistant, Content: "A topic is...", Sources: []domain.RetrievalResult{
			{ChunkID: "cb-1", Score: 0.91, Excerpt: "Topics are...", Unit: domain.ContentUnit{
				HeadingPath: []string{"Communication", "Topics"},
				DocumentID:  "ch-3",
			}},
		}},
	}
	if err := r.AppendTurns(context.Background(), s.ID, turns...); err != nil {
		t.Fatalf("AppendTurns: %v", err)
	}
	if fake.appends != 1 {
		t.Errorf("appends = %d, want 1 (turns must append in one command)", fake.appends)
	}

	got, err := r.Get(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Turns) != 2 {
		t.Fatalf("got %d turns, want 2", len(got.Turns))
	}
	if got.Turns[1].Sources[0].Unit.Section() != "Communication > Topics" {
		t.Errorf("source section = %q", got.Turns[1].Sources[0].Unit.Section())
	}
	if want := now.Add(time.Hour); !got.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, want)
	}
}

func TestRedis_ExpiredBeforeEviction(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	fake := newFakeJSONStore()
	r := NewRedis(fake, "tutordex:sessions:", time.Hour).WithClock(func() time.Time { return now })

	s, err := r.Create(context.Background(), nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Key still present but logically expired.
	now = base.Add(2 * time.Hour)
	if _, err := r.Get(context.Background(), s.ID); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}
	if _, ok := fake.docs["tutordex:sessions:"+s.ID]; ok {
		t.Error("expired session was not deleted on read")
	}
}

func TestRedis_TouchSlidesTTL(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	fake := newFakeJSONStore()
	r := NewRedis(fake, "tutordex:sessions:", time.Hour).WithClock(func() time.Time { return now })

	s, err := r.Create(context.Background(), nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	now = base.Add(30 * time.Minute)
	if err := r.Touch(context.Background(), s.ID); err != nil {
		t.Fatalf("Touch: %v", err)
	}

	got, err := r.Get(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if want := now.Add(time.Hour); !got.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, want)
	}
	if len(got.Turns) != 0 {
		t.Errorf("touch appended %d turns", len(got.Turns))
	}
	if fake.appends != 0 {
		t.Errorf("appends = %d, want 0", fake.appends)
	}
	if fake.ttls["tutordex:sessions:"+s.ID] != time.Hour {
		t.Errorf("key ttl = %v, want %v", fake.ttls["tutordex:sessions:"+s.ID], time.Hour)
	}
}

func TestRedis_TouchUnknown(t *testing.T) {
	r := NewRedis(newFakeJSONStore(), "tutordex:sessions:", time.Hour)

	if err := r.Touch(context.Background(), "sess-missing"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}
