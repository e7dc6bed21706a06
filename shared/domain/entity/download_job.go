package entity

import (
	"errors"
	"fmt"
)

// DownloadJob is the queue message asking for one artifact version.
type DownloadJob struct {
	GroupID    string `json:"groupId"`
	ArtifactID string `json:"artifactId"`
	Repository string `json:"repository"`
	Version    string `json:"version"`
}

var ErrIncompleteJob = errors.New("incomplete download job")

// Validate checks that every field of the triple is present.
func (j DownloadJob) Validate() error {
	var missing []string
	if j.GroupID == "" {
		missing = append(missing, "groupId")
	}
	if j.ArtifactID == "" {
		missing = append(missing, "artifactId")
	}
	if j.Repository == "" {
		missing = append(missing, "repository")
	}
	if j.Version == "" {
		missing = append(missing, "version")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %v", ErrIncompleteJob, missing)
	}
	return nil
}

func (j DownloadJob) Coordinate() Coordinate {
	return Coordinate{GroupID: j.GroupID, ArtifactID: j.ArtifactID}
}

// Key is a stable identifier for the triple, used for in-flight markers.
func (j DownloadJob) Key() string {
	return fmt.Sprintf("%s:%s:%s:%s", j.GroupID, j.ArtifactID, j.Version, j.Repository)
}

func (j DownloadJob) String() string {
	return fmt.Sprintf("%s:%s:%s@%s", j.GroupID, j.ArtifactID, j.Version, j.Repository)
}
