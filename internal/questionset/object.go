package questionset

import (
	"context"
	"fmt"
	"log"
	"strings"

	"quiz-engine/internal/models"
)

type ObjectStore interface {
	ReadObject(ctx context.Context, bucketName, objectName string) ([]byte, error)
	ListObjects(ctx context.Context, bucketName, prefix string) ([]string, error)
}

// ObjectProvider loads <prefix><id>.json from an S3 bucket.
type ObjectProvider struct {
	store      ObjectStore
	bucket     string
	prefix     string
	isNotFound func(error) bool
}

func NewObjectProvider(store ObjectStore, bucket, prefix string, isNotFound func(error) bool) *ObjectProvider {
	return &ObjectProvider{
		store:      store,
		bucket:     bucket,
		prefix:     prefix,
		isNotFound: isNotFound,
	}
}

func (p *ObjectProvider) GetSet(ctx context.Context, id string) (*models.QuestionSet, error) {
	if !validSetID(id) {
		return nil, ErrSetNotFound
	}

	data, err := p.store.ReadObject(ctx, p.bucket, p.prefix+id+".json")
	if err != nil {
		if p.isNotFound != nil && p.isNotFound(err) {
			return nil, ErrSetNotFound
		}
		return nil, fmt.Errorf("failed to load question set %s: %w", id, err)
	}

	set, err := DecodeSet(data)
	if err != nil {
		return nil, err
	}
	if set.ID() != id {
		return nil, fmt.Errorf("%w: object %s.json declares id %q", models.ErrMalformedQuestionSet, id, set.ID())
	}
	return set, nil
}

func (p *ObjectProvider) ListSets(ctx context.Context) ([]models.SetInfo, error) {
	keys, err := p.store.ListObjects(ctx, p.bucket, p.prefix)
	if err != nil {
		return nil, err
	}

	infos := make([]models.SetInfo, 0, len(keys))
	for _, key := range keys {
		if !strings.HasSuffix(key, ".json") {
			continue
		}
		id := strings.TrimSuffix(strings.TrimPrefix(key, p.prefix), ".json")
		set, err := p.GetSet(ctx, id)
		if err != nil {
			log.Printf("Skipping question set object %s: %v", key, err)
			continue
		}
		infos = append(infos, set.Info())
	}
	sortInfos(infos)
	return infos, nil
}
