package questionset

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"quiz-engine/internal/models"
)

// FileProvider reads <dir>/<id>.json on every lookup. Wrap it in a
// CachedProvider when reads should be shared.
type FileProvider struct {
	dir string
}

func NewFileProvider(dir string) *FileProvider {
	return &FileProvider{dir: dir}
}

func (p *FileProvider) GetSet(_ context.Context, id string) (*models.QuestionSet, error) {
	if !validSetID(id) {
		return nil, ErrSetNotFound
	}

	data, err := os.ReadFile(filepath.Join(p.dir, id+".json"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrSetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read question set %s: %w", id, err)
	}

	set, err := DecodeSet(data)
	if err != nil {
		return nil, err
	}
	if set.ID() != id {
		return nil, fmt.Errorf("%w: file %s.json declares id %q", models.ErrMalformedQuestionSet, id, set.ID())
	}
	return set, nil
}

func (p *FileProvider) ListSets(ctx context.Context) ([]models.SetInfo, error) {
	matches, err := filepath.Glob(filepath.Join(p.dir, "*.json"))
	if err != nil {
		return nil, err
	}

	infos := make([]models.SetInfo, 0, len(matches))
	for _, match := range matches {
		id := strings.TrimSuffix(filepath.Base(match), ".json")
		set, err := p.GetSet(ctx, id)
		if err != nil {
			log.Printf("Skipping question set file %s: %v", match, err)
			continue
		}
		infos = append(infos, set.Info())
	}
	sortInfos(infos)
	return infos, nil
}

// validSetID keeps ids usable as file and object names.
func validSetID(id string) bool {
	if id == "" || len(id) > 128 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
