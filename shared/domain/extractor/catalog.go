package extractor

import (
	"context"
	"io"
	"strings"

	"mavencrawler/shared/domain/entity"
)

type catalogElement int

const (
	catalogNone catalogElement = iota
	catalogArchetype
	catalogGroupID
	catalogArtifactID
	catalogVersion
	catalogRepository
	catalogDescription
)

var catalogElements = map[string]catalogElement{
	"archetype":   catalogArchetype,
	"groupId":     catalogGroupID,
	"artifactId":  catalogArtifactID,
	"version":     catalogVersion,
	"repository":  catalogRepository,
	"description": catalogDescription,
}

type catalogMachine struct {
	current    catalogElement
	record     *entity.Archetype
	archetypes []*entity.Archetype
}

func (m *catalogMachine) start(name string) {
	m.current = catalogElements[name]
	if m.current == catalogArchetype {
		m.record = &entity.Archetype{}
		m.archetypes = append(m.archetypes, m.record)
	}
}

func (m *catalogMachine) end(string) {
	m.current = catalogNone
}

func (m *catalogMachine) text(value string) {
	value = strings.TrimSpace(value)
	if value == "" || m.record == nil {
		return
	}

	switch m.current {
	case catalogGroupID:
		m.record.GroupID = value
	case catalogArtifactID:
		m.record.ArtifactID = value
	case catalogVersion:
		m.record.Version = value
	case catalogRepository:
		m.record.Repository = value
	case catalogDescription:
		m.record.Description = value
	}
}

// ExtractCatalog reads an archetype-catalog.xml document. Entries keep their
// document order. Repository stays empty unless the entry overrides it; the
// caller fills in the catalog's own root.
func ExtractCatalog(ctx context.Context, r io.Reader) ([]entity.Archetype, error) {
	m := &catalogMachine{}
	err := walk(ctx, r, m)

	out := make([]entity.Archetype, 0, len(m.archetypes))
	for _, a := range m.archetypes {
		out = append(out, *a)
	}
	return out, err
}
