package entity

import "time"

// Downloaded is a completion ledger entry. It exists only for versions whose
// payload was fetched and stored successfully.
type Downloaded struct {
	GroupID      string    `db:"group_id" bson:"groupId"`
	ArtifactID   string    `db:"artifact_id" bson:"artifactId"`
	Repository   string    `db:"repository" bson:"repository"`
	Version      string    `db:"version" bson:"version"`
	DownloadedAt time.Time `db:"downloaded_at" bson:"downloadedAt"`
	StoragePath  string    `db:"storage_path" bson:"storagePath"`
}

// Triple returns the ledger key without the completion payload.
func (d *Downloaded) Triple() DownloadJob {
	return DownloadJob{
		GroupID:    d.GroupID,
		ArtifactID: d.ArtifactID,
		Repository: d.Repository,
		Version:    d.Version,
	}
}
