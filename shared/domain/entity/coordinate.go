package entity

import "fmt"

// Coordinate identifies a library family independent of version.
type Coordinate struct {
	GroupID    string `db:"group_id" bson:"groupId" json:"groupId"`
	ArtifactID string `db:"artifact_id" bson:"artifactId" json:"artifactId"`
}

// String returns the "groupId:artifactId" form.
func (c Coordinate) String() string {
	return fmt.Sprintf("%s:%s", c.GroupID, c.ArtifactID)
}

// IsZero reports whether either half of the coordinate is missing.
func (c Coordinate) IsZero() bool {
	return c.GroupID == "" || c.ArtifactID == ""
}
