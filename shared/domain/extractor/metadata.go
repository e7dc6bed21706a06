package extractor

import (
	"context"
	"io"
	"strings"
	"time"

	"mavencrawler/shared/domain/entity"
)

// LastUpdatedLayout is the compact yyyyMMddHHmmss stamp used by
// maven-metadata.xml.
const LastUpdatedLayout = "20060102150405"

type metadataElement int

const (
	metadataNone metadataElement = iota
	metadataGroupID
	metadataArtifactID
	metadataLatest
	metadataRelease
	metadataVersion
	metadataLastUpdated
)

var metadataElements = map[string]metadataElement{
	"groupId":     metadataGroupID,
	"artifactId":  metadataArtifactID,
	"latest":      metadataLatest,
	"release":     metadataRelease,
	"version":     metadataVersion,
	"lastUpdated": metadataLastUpdated,
}

type metadataMachine struct {
	current metadataElement
	record  entity.Metadata
}

func (m *metadataMachine) start(name string) {
	m.current = metadataElements[name]
}

func (m *metadataMachine) end(string) {
	m.current = metadataNone
}

func (m *metadataMachine) text(value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}

	switch m.current {
	case metadataGroupID:
		m.record.GroupID = value
	case metadataArtifactID:
		m.record.ArtifactID = value
	case metadataLatest:
		m.record.Latest = value
	case metadataRelease:
		m.record.Release = value
	case metadataVersion:
		m.record.Versions = append(m.record.Versions, value)
	case metadataLastUpdated:
		m.record.LastUpdated = parseLastUpdated(value)
	}
}

// parseLastUpdated returns nil for anything that is not a valid stamp, so a
// bad value never leaves a stale timestamp behind.
func parseLastUpdated(value string) *time.Time {
	t, err := time.ParseInLocation(LastUpdatedLayout, value, time.UTC)
	if err != nil {
		return nil
	}
	return &t
}

// ExtractMetadata reads a maven-metadata.xml document. Every version element
// is appended in document order. Repository is left for the caller.
func ExtractMetadata(ctx context.Context, r io.Reader) (*entity.Metadata, error) {
	m := &metadataMachine{}
	err := walk(ctx, r, m)
	return &m.record, err
}
