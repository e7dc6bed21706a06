package entity

// VersionPom holds the descriptive fields of a single version's project file.
type VersionPom struct {
	GroupID       string `db:"group_id" bson:"groupId"`
	ArtifactID    string `db:"artifact_id" bson:"artifactId"`
	Version       string `db:"version" bson:"version"`
	Name          string `db:"name" bson:"name"`
	Description   string `db:"description" bson:"description"`
	ProjectURL    string `db:"project_url" bson:"url"`
	Repository    string `db:"repository" bson:"repository"`
	SCMConnection string `db:"scm_connection" bson:"scmConnection"`
	SCMURL        string `db:"scm_url" bson:"scmUrl"`
}
