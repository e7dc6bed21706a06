// Package maven knows how a Maven 2 repository lays out its files, both
// remotely and in the local download folder.
package maven

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

const (
	ExtJAR = "jar"
	ExtAAR = "aar"

	CatalogFile  = "archetype-catalog.xml"
	MetadataFile = "maven-metadata.xml"
)

// GroupPath turns a dotted groupId into its directory form.
func GroupPath(groupID string) string {
	return strings.ReplaceAll(groupID, ".", "/")
}

// FileName is the artifact file name for a version and packaging extension.
func FileName(artifactID, version, ext string) string {
	return fmt.Sprintf("%s-%s.%s", artifactID, version, ext)
}

// ArtifactURL resolves the payload URL of one version:
// {root}/{group/as/path}/{artifactId}/{version}/{artifactId}-{version}.{ext}
func ArtifactURL(root, groupID, artifactID, version, ext string) (string, error) {
	return join(root, GroupPath(groupID), artifactID, version, FileName(artifactID, version, ext))
}

// MetadataURL resolves the maven-metadata.xml location of a coordinate.
func MetadataURL(root, groupID, artifactID string) (string, error) {
	return join(root, GroupPath(groupID), artifactID, MetadataFile)
}

// CatalogURL resolves the archetype catalog at a repository root.
func CatalogURL(root string) (string, error) {
	return join(root, CatalogFile)
}

// StorageKey is the object key of a downloaded artifact. The first segment
// groups every version of a coordinate in one folder.
func StorageKey(groupID, artifactID, version, ext string) string {
	return CoordinateFolder(groupID, artifactID) + "/" + FileName(artifactID, version, ext)
}

func CoordinateFolder(groupID, artifactID string) string {
	return groupID + "." + artifactID
}

// NormalizeURL rewrites the "/:" sequences some directory listings emit in
// their links.
func NormalizeURL(raw string) string {
	return strings.ReplaceAll(raw, "/:", "/")
}

// join appends segments to an absolute http(s) root, collapsing duplicate
// slashes in the path but never touching the scheme separator.
func join(root string, segments ...string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(root))
	if err != nil {
		return "", fmt.Errorf("parse repository url %q: %w", root, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("repository url %q: unsupported scheme %q", root, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("repository url %q: missing host", root)
	}

	parts := append([]string{"/", u.Path}, segments...)
	u.Path = path.Join(parts...)
	u.RawPath = ""
	return u.String(), nil
}
