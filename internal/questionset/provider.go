// Package questionset supplies immutable, validated question sets to quiz
// sessions. Providers only read; a set never changes once handed out.
package questionset

import (
	"context"
	"errors"
	"log"
	"sort"

	"quiz-engine/internal/models"
)

var ErrSetNotFound = errors.New("question set not found")

type Provider interface {
	GetSet(ctx context.Context, id string) (*models.QuestionSet, error)
	ListSets(ctx context.Context) ([]models.SetInfo, error)
}

// ChainProvider asks each provider in order and returns the first set found.
type ChainProvider struct {
	providers []Provider
}

func NewChainProvider(providers ...Provider) *ChainProvider {
	return &ChainProvider{providers: providers}
}

func (c *ChainProvider) GetSet(ctx context.Context, id string) (*models.QuestionSet, error) {
	for _, p := range c.providers {
		set, err := p.GetSet(ctx, id)
		if err == nil {
			return set, nil
		}
		if !errors.Is(err, ErrSetNotFound) {
			return nil, err
		}
	}
	return nil, ErrSetNotFound
}

// ListSets merges all providers; earlier providers shadow later ones with the
// same id. A failing provider is logged and skipped.
func (c *ChainProvider) ListSets(ctx context.Context) ([]models.SetInfo, error) {
	seen := make(map[string]bool)
	var infos []models.SetInfo
	for _, p := range c.providers {
		items, err := p.ListSets(ctx)
		if err != nil {
			log.Printf("Failed to list question sets: %v", err)
			continue
		}
		for _, item := range items {
			if seen[item.ID] {
				continue
			}
			seen[item.ID] = true
			infos = append(infos, item)
		}
	}
	sortInfos(infos)
	return infos, nil
}

func sortInfos(infos []models.SetInfo) {
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].ID < infos[j].ID
	})
}
