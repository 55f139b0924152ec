package questionset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"quiz-engine/internal/models"
	"quiz-engine/pkg/cache"
	"quiz-engine/pkg/database"
)

const capitalsJSON = `{
  "id": "capitals",
  "title": "Capitals",
  "questions": [
    {"id": "c1", "prompt": "Capital of France?", "options": ["Paris", "Lyon"], "correct_answer": "Paris"},
    {"id": "c2", "prompt": "Capital of Italy?", "options": ["Milan", "Rome"], "correct_answer": "Rome"}
  ]
}`

func sampleSet(t *testing.T, id string) *models.QuestionSet {
	t.Helper()

	set, err := models.NewQuestionSet(id, "Sample", "two questions", []models.Question{
		{ID: "s1", Prompt: "2 + 2?", Options: []string{"3", "4"}, CorrectAnswer: "4"},
		{ID: "s2", Prompt: "Largest ocean?", Options: []string{"Atlantic", "Pacific", "Indian"}, CorrectAnswer: "Pacific"},
	})
	if err != nil {
		t.Fatalf("NewQuestionSet failed: %v", err)
	}
	return set
}

func TestBuiltinProvider(t *testing.T) {
	p, err := NewBuiltinProvider()
	if err != nil {
		t.Fatalf("NewBuiltinProvider failed: %v", err)
	}

	set, err := p.GetSet(context.Background(), "general-knowledge")
	if err != nil {
		t.Fatalf("GetSet failed: %v", err)
	}
	if set.Len() != 10 {
		t.Fatalf("Len() = %d, want 10", set.Len())
	}
	if q := set.Question(0); q.CorrectAnswer != "Mars" {
		t.Fatalf("first correct answer = %q, want Mars", q.CorrectAnswer)
	}

	if _, err := p.GetSet(context.Background(), "missing"); !errors.Is(err, ErrSetNotFound) {
		t.Fatalf("GetSet(missing) error = %v, want ErrSetNotFound", err)
	}
}

func TestDecodeSetRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"bad json":      `{"id": `,
		"no questions":  `{"id": "x", "title": "X", "questions": []}`,
		"one option":    `{"id": "x", "questions": [{"prompt": "?", "options": ["a"], "correct_answer": "a"}]}`,
		"wrong correct": `{"id": "x", "questions": [{"prompt": "?", "options": ["a", "b"], "correct_answer": "c"}]}`,
	}

	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := DecodeSet([]byte(data)); !errors.Is(err, models.ErrMalformedQuestionSet) {
				t.Fatalf("DecodeSet error = %v, want ErrMalformedQuestionSet", err)
			}
		})
	}
}

func TestFileProvider(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "capitals.json"), []byte(capitalsJSON), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{"id": "broken", "questions": []}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	p := NewFileProvider(dir)
	ctx := context.Background()

	set, err := p.GetSet(ctx, "capitals")
	if err != nil {
		t.Fatalf("GetSet failed: %v", err)
	}
	if set.Len() != 2 || set.Title() != "Capitals" {
		t.Fatalf("unexpected set %+v", set.Info())
	}

	if _, err := p.GetSet(ctx, "broken"); !errors.Is(err, models.ErrMalformedQuestionSet) {
		t.Fatalf("GetSet(broken) error = %v, want ErrMalformedQuestionSet", err)
	}
	if _, err := p.GetSet(ctx, "nope"); !errors.Is(err, ErrSetNotFound) {
		t.Fatalf("GetSet(nope) error = %v, want ErrSetNotFound", err)
	}
	if _, err := p.GetSet(ctx, "../capitals"); !errors.Is(err, ErrSetNotFound) {
		t.Fatalf("GetSet(traversal) error = %v, want ErrSetNotFound", err)
	}

	infos, err := p.ListSets(ctx)
	if err != nil {
		t.Fatalf("ListSets failed: %v", err)
	}
	if len(infos) != 1 || infos[0].ID != "capitals" || infos[0].QuestionCount != 2 {
		t.Fatalf("ListSets = %+v, want only capitals", infos)
	}
}

func TestChainProviderOrder(t *testing.T) {
	first := NewStaticProvider(sampleSet(t, "shared"))
	second := NewStaticProvider(sampleSet(t, "shared"), sampleSet(t, "extra"))
	chain := NewChainProvider(first, second)
	ctx := context.Background()

	set, err := chain.GetSet(ctx, "extra")
	if err != nil || set.ID() != "extra" {
		t.Fatalf("GetSet(extra) = %v, %v", set, err)
	}
	if _, err := chain.GetSet(ctx, "none"); !errors.Is(err, ErrSetNotFound) {
		t.Fatalf("GetSet(none) error = %v, want ErrSetNotFound", err)
	}

	infos, err := chain.ListSets(ctx)
	if err != nil {
		t.Fatalf("ListSets failed: %v", err)
	}
	if len(infos) != 2 || infos[0].ID != "extra" || infos[1].ID != "shared" {
		t.Fatalf("ListSets = %+v", infos)
	}
}

type failingProvider struct{ err error }

func (f failingProvider) GetSet(context.Context, string) (*models.QuestionSet, error) {
	return nil, f.err
}

func (f failingProvider) ListSets(context.Context) ([]models.SetInfo, error) {
	return nil, f.err
}

func TestChainProviderStopsOnHardError(t *testing.T) {
	boom := errors.New("boom")
	chain := NewChainProvider(failingProvider{err: boom}, NewStaticProvider(sampleSet(t, "a")))

	if _, err := chain.GetSet(context.Background(), "a"); !errors.Is(err, boom) {
		t.Fatalf("GetSet error = %v, want boom", err)
	}

	infos, err := chain.ListSets(context.Background())
	if err != nil || len(infos) != 1 {
		t.Fatalf("ListSets = %+v, %v; want the healthy provider's set", infos, err)
	}
}

type memoryCache struct {
	data map[string]string
	sets int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string]string)}
}

func (m *memoryCache) Get(_ context.Context, key string) (string, error) {
	v, ok := m.data[key]
	if !ok {
		return "", cache.ErrCacheMiss
	}
	return v, nil
}

func (m *memoryCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.sets++
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	case string:
		m.data[key] = v
	}
	return nil
}

type countingProvider struct {
	Provider
	calls int
}

func (c *countingProvider) GetSet(ctx context.Context, id string) (*models.QuestionSet, error) {
	c.calls++
	return c.Provider.GetSet(ctx, id)
}

func TestCachedProvider(t *testing.T) {
	inner := &countingProvider{Provider: NewStaticProvider(sampleSet(t, "cached"))}
	mc := newMemoryCache()
	p := NewCachedProvider(inner, mc, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		set, err := p.GetSet(ctx, "cached")
		if err != nil {
			t.Fatalf("GetSet #%d failed: %v", i, err)
		}
		if set.Len() != 2 || set.Question(1).CorrectAnswer != "Pacific" {
			t.Fatalf("GetSet #%d returned %+v", i, set.Document())
		}
	}
	if inner.calls != 1 {
		t.Fatalf("inner provider called %d times, want 1", inner.calls)
	}
	if _, ok := mc.data["questionset:cached:data"]; !ok {
		t.Fatalf("cache key not written: %v", mc.data)
	}

	mc.data["questionset:cached:data"] = `{"id": "cached", "questions": []}`
	if _, err := p.GetSet(ctx, "cached"); err != nil {
		t.Fatalf("GetSet with poisoned cache failed: %v", err)
	}
	if inner.calls != 2 {
		t.Fatalf("invalid cache entry not bypassed, inner calls = %d", inner.calls)
	}

	if _, err := p.GetSet(ctx, "missing"); !errors.Is(err, ErrSetNotFound) {
		t.Fatalf("GetSet(missing) error = %v, want ErrSetNotFound", err)
	}
}

type fakeObjectStore struct {
	objects map[string][]byte
}

var errNoSuchKey = errors.New("no such key")

func (f *fakeObjectStore) ReadObject(_ context.Context, _ string, objectName string) ([]byte, error) {
	data, ok := f.objects[objectName]
	if !ok {
		return nil, errNoSuchKey
	}
	return data, nil
}

func (f *fakeObjectStore) ListObjects(_ context.Context, _ string, prefix string) ([]string, error) {
	var keys []string
	for key := range f.objects {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func TestObjectProvider(t *testing.T) {
	store := &fakeObjectStore{objects: map[string][]byte{
		"sets/capitals.json": []byte(capitalsJSON),
		"sets/readme.txt":    []byte("ignored"),
	}}
	p := NewObjectProvider(store, "quiz", "sets/", func(err error) bool {
		return errors.Is(err, errNoSuchKey)
	})
	ctx := context.Background()

	set, err := p.GetSet(ctx, "capitals")
	if err != nil {
		t.Fatalf("GetSet failed: %v", err)
	}
	if set.Question(1).CorrectAnswer != "Rome" {
		t.Fatalf("unexpected question %+v", set.Question(1))
	}
	if _, err := p.GetSet(ctx, "other"); !errors.Is(err, ErrSetNotFound) {
		t.Fatalf("GetSet(other) error = %v, want ErrSetNotFound", err)
	}

	infos, err := p.ListSets(ctx)
	if err != nil {
		t.Fatalf("ListSets failed: %v", err)
	}
	if len(infos) != 1 || infos[0].ID != "capitals" {
		t.Fatalf("ListSets = %+v", infos)
	}
}

func TestSQLProviderRoundTrip(t *testing.T) {
	client, err := database.NewSQLiteClient(filepath.Join(t.TempDir(), "sets.db"))
	if err != nil {
		t.Fatalf("NewSQLiteClient failed: %v", err)
	}
	defer client.Close()

	ctx := context.Background()
	if err := client.InitSchema(ctx); err != nil {
		t.Fatalf("InitSchema failed: %v", err)
	}

	p := NewSQLProvider(client)
	if _, err := p.GetSet(ctx, "sample"); !errors.Is(err, ErrSetNotFound) {
		t.Fatalf("GetSet before save error = %v, want ErrSetNotFound", err)
	}

	want := sampleSet(t, "sample")
	if err := p.SaveSet(ctx, want); err != nil {
		t.Fatalf("SaveSet failed: %v", err)
	}
	// saving twice replaces rather than duplicates
	if err := p.SaveSet(ctx, want); err != nil {
		t.Fatalf("second SaveSet failed: %v", err)
	}

	got, err := p.GetSet(ctx, "sample")
	if err != nil {
		t.Fatalf("GetSet failed: %v", err)
	}
	if got.Len() != want.Len() {
		t.Fatalf("Len() = %d, want %d", got.Len(), want.Len())
	}
	for i := 0; i < want.Len(); i++ {
		g, w := got.Question(i), want.Question(i)
		if g.ID != w.ID || g.Prompt != w.Prompt || g.CorrectAnswer != w.CorrectAnswer || len(g.Options) != len(w.Options) {
			t.Fatalf("question %d = %+v, want %+v", i, g, w)
		}
	}

	infos, err := p.ListSets(ctx)
	if err != nil {
		t.Fatalf("ListSets failed: %v", err)
	}
	if len(infos) != 1 || infos[0].QuestionCount != 2 || infos[0].Description != "two questions" {
		t.Fatalf("ListSets = %+v", infos)
	}
}
