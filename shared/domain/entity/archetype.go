package entity

// Archetype is one (coordinate, version) entry observed in a repository catalog.
type Archetype struct {
	GroupID     string `db:"group_id" bson:"groupId"`
	ArtifactID  string `db:"artifact_id" bson:"artifactId"`
	Version     string `db:"version" bson:"version"`
	Repository  string `db:"repository" bson:"repository"`
	Description string `db:"description" bson:"description"`
}

func (a *Archetype) Coordinate() Coordinate {
	return Coordinate{GroupID: a.GroupID, ArtifactID: a.ArtifactID}
}
