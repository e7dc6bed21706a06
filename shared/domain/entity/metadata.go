package entity

import (
	"sort"
	"time"
)

// Metadata is the per-coordinate version listing published by a repository.
// LastUpdated acts as the record's clock: nil means the publisher did not
// provide one (or it could not be parsed).
type Metadata struct {
	GroupID     string     `db:"group_id" bson:"groupId"`
	ArtifactID  string     `db:"artifact_id" bson:"artifactId"`
	Repository  string     `db:"repository" bson:"repository"`
	Latest      string     `db:"latest" bson:"latest"`
	Release     string     `db:"release" bson:"release"`
	Versions    []string   `db:"versions" bson:"versions"`
	LastUpdated *time.Time `db:"last_updated" bson:"lastUpdated,omitempty"`
}

func (m *Metadata) Coordinate() Coordinate {
	return Coordinate{GroupID: m.GroupID, ArtifactID: m.ArtifactID}
}

// Jobs expands the record into one download job per listed version.
func (m *Metadata) Jobs() []DownloadJob {
	jobs := make([]DownloadJob, 0, len(m.Versions))
	for _, v := range m.Versions {
		jobs = append(jobs, DownloadJob{
			GroupID:    m.GroupID,
			ArtifactID: m.ArtifactID,
			Repository: m.Repository,
			Version:    v,
		})
	}
	return jobs
}

// IsNewerThan reports whether a candidate carrying m's timestamp may replace
// stored. A stored record without a timestamp accepts anything; a stored
// record with one only accepts strictly later timestamps.
func (m *Metadata) IsNewerThan(stored *Metadata) bool {
	if stored == nil || stored.LastUpdated == nil {
		return true
	}
	if m.LastUpdated == nil {
		return false
	}
	return stored.LastUpdated.Before(*m.LastUpdated)
}

// MergeMetadata decides how candidate is written over stored. It returns the
// document to upsert and whether the write should happen at all. Rejections
// leave stored untouched and are not errors.
func MergeMetadata(stored, candidate *Metadata) (*Metadata, bool) {
	if candidate == nil {
		return nil, false
	}
	if !candidate.IsNewerThan(stored) {
		return nil, false
	}

	merged := *candidate
	merged.Versions = append([]string(nil), candidate.Versions...)
	if stored != nil && len(stored.Versions) > 0 {
		merged.Versions = UnionVersions(stored.Versions, candidate.Versions)
	}
	return &merged, true
}

// UnionVersions returns the de-duplicated union of both lists sorted by byte
// order.
func UnionVersions(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, v := range list {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
