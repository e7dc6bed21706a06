package maven

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArtifactURL(t *testing.T) {
	tests := []struct {
		name     string
		root     string
		ext      string
		expected string
	}{
		{
			name:     "plain root",
			root:     "https://repo1.maven.org/maven2",
			ext:      ExtJAR,
			expected: "https://repo1.maven.org/maven2/org/apache/logging/log4j-core/2.1/log4j-core-2.1.jar",
		},
		{
			name:     "trailing slash on root",
			root:     "https://repo1.maven.org/maven2/",
			ext:      ExtAAR,
			expected: "https://repo1.maven.org/maven2/org/apache/logging/log4j-core/2.1/log4j-core-2.1.aar",
		},
		{
			name:     "double slashes collapse",
			root:     "http://example.com//repo//",
			ext:      ExtJAR,
			expected: "http://example.com/repo/org/apache/logging/log4j-core/2.1/log4j-core-2.1.jar",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ArtifactURL(tt.root, "org.apache.logging", "log4j-core", "2.1", tt.ext)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestArtifactURL_InvalidRoot(t *testing.T) {
	for _, root := range []string{"", "ftp://example.com/repo", "not a url", "http://"} {
		_, err := ArtifactURL(root, "g", "a", "1", ExtJAR)
		assert.Error(t, err, root)
	}
}

func TestMetadataAndCatalogURL(t *testing.T) {
	u, err := MetadataURL("https://maven.google.com", "com.android.support", "appcompat-v7")
	require.NoError(t, err)
	assert.Equal(t, "https://maven.google.com/com/android/support/appcompat-v7/maven-metadata.xml", u)

	u, err = CatalogURL("https://repo1.maven.org/maven2")
	require.NoError(t, err)
	assert.Equal(t, "https://repo1.maven.org/maven2/archetype-catalog.xml", u)
}

func TestStorageKey(t *testing.T) {
	assert.Equal(t, "log4j.log4j/log4j-1.2.17.jar", StorageKey("log4j", "log4j", "1.2.17", ExtJAR))
}

func TestNormalizeURL(t *testing.T) {
	assert.Equal(t, "https://repo.example.com/org/x/", NormalizeURL("https://repo.example.com/:org/x/"))
}
