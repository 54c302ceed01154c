// Package character holds the static registry of personas and the pure
// helpers that derive expressions from reply text.
package character

import (
	"roleplay-chat/backend/internal/models"
	apperrors "roleplay-chat/backend/pkg/errors"
)

// Repository is the read-only view of the catalog used by the orchestrator
type Repository interface {
	Get(id string) (*models.Character, bool)
	List() []models.Character
}

// Catalog is an immutable, ordered set of characters
type Catalog struct {
	order []string
	byID  map[string]models.Character
}

// NewCatalog builds a catalog from chars. Later entries replace earlier ones
// with the same id while keeping the first position.
func NewCatalog(chars ...models.Character) *Catalog {
	c := &Catalog{byID: make(map[string]models.Character, len(chars))}
	for _, ch := range chars {
		if ch.ID == "" {
			continue
		}
		if _, exists := c.byID[ch.ID]; !exists {
			c.order = append(c.order, ch.ID)
		}
		c.byID[ch.ID] = ch
	}
	return c
}

// Default returns the catalog of built-in characters
func Default() *Catalog {
	return NewCatalog(builtins()...)
}

// Get looks a character up by id. The returned value is a copy.
func (c *Catalog) Get(id string) (*models.Character, bool) {
	ch, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	ch.Expressions = cloneMap(ch.Expressions)
	return &ch, true
}

// Lookup is Get returning an AppError for unknown ids
func (c *Catalog) Lookup(id string) (*models.Character, error) {
	ch, ok := c.Get(id)
	if !ok {
		return nil, apperrors.ErrCharacterNotFound.WithDetails(map[string]any{"id": id})
	}
	return ch, nil
}

// List returns all characters in catalog order
func (c *Catalog) List() []models.Character {
	out := make([]models.Character, 0, len(c.order))
	for _, id := range c.order {
		ch := c.byID[id]
		ch.Expressions = cloneMap(ch.Expressions)
		out = append(out, ch)
	}
	return out
}

// Len is the number of characters
func (c *Catalog) Len() int { return len(c.order) }

func cloneMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
