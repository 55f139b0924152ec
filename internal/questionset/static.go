package questionset

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"

	"quiz-engine/internal/models"
)

//go:embed data/*.json
var builtinSets embed.FS

// StaticProvider serves sets that are fully loaded and validated up front.
type StaticProvider struct {
	sets map[string]*models.QuestionSet
}

func NewStaticProvider(sets ...*models.QuestionSet) *StaticProvider {
	p := &StaticProvider{sets: make(map[string]*models.QuestionSet, len(sets))}
	for _, set := range sets {
		p.sets[set.ID()] = set
	}
	return p
}

// NewBuiltinProvider loads the sets embedded in the binary.
func NewBuiltinProvider() (*StaticProvider, error) {
	entries, err := fs.ReadDir(builtinSets, "data")
	if err != nil {
		return nil, fmt.Errorf("failed to read builtin sets: %w", err)
	}

	var sets []*models.QuestionSet
	for _, entry := range entries {
		data, err := builtinSets.ReadFile(path.Join("data", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read builtin set %s: %w", entry.Name(), err)
		}
		set, err := DecodeSet(data)
		if err != nil {
			return nil, fmt.Errorf("builtin set %s: %w", entry.Name(), err)
		}
		sets = append(sets, set)
	}
	return NewStaticProvider(sets...), nil
}

func (p *StaticProvider) GetSet(_ context.Context, id string) (*models.QuestionSet, error) {
	set, ok := p.sets[id]
	if !ok {
		return nil, ErrSetNotFound
	}
	return set, nil
}

func (p *StaticProvider) ListSets(_ context.Context) ([]models.SetInfo, error) {
	infos := make([]models.SetInfo, 0, len(p.sets))
	for _, set := range p.sets {
		infos = append(infos, set.Info())
	}
	sortInfos(infos)
	return infos, nil
}

// DecodeSet parses a JSON set document and validates it.
func DecodeSet(data []byte) (*models.QuestionSet, error) {
	var doc models.SetDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedQuestionSet, err)
	}
	return models.NewQuestionSetFromDocument(doc)
}
