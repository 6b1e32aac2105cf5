package artifact

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/leonmak/strongbox/internal/errdefs"
)

// Repository files that never carry coordinates.
var skippedExts = map[string]bool{
	".sha1":        true,
	".md5":         true,
	".sha256":      true,
	".sha512":      true,
	".asc":         true,
	".lastUpdated": true,
}

// FromRepositoryPath derives artifact coordinates from a file path inside
// a Maven-layout repository rooted at baseDir:
//
//	<group path...>/<artifactId>/<version>/<artifactId>-<version>[-<classifier>].<packaging>
//
// It returns errdefs.ErrNotAnArtifact for files that are part of a
// repository tree but carry no coordinates (checksums, signatures,
// maven-metadata.xml, hidden files, paths too shallow to hold a group).
// Files that look like artifacts but do not follow the layout produce an
// extraction error naming the problem.
func FromRepositoryPath(baseDir, path string) (*ArtifactInfo, error) {
	rel, err := filepath.Rel(baseDir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return nil, errdefs.ErrNotAnArtifact
	}

	parts := strings.Split(filepath.ToSlash(rel), "/")
	name := parts[len(parts)-1]

	if strings.HasPrefix(name, ".") {
		return nil, errdefs.ErrNotAnArtifact
	}
	if name == "maven-metadata.xml" || strings.HasPrefix(name, "maven-metadata.xml.") {
		return nil, errdefs.ErrNotAnArtifact
	}

	ext := filepath.Ext(name)
	if ext == "" || skippedExts[ext] {
		return nil, errdefs.ErrNotAnArtifact
	}

	// Need at least group/artifact/version/file.
	if len(parts) < 4 {
		return nil, errdefs.ErrNotAnArtifact
	}

	version := parts[len(parts)-2]
	artifactID := parts[len(parts)-3]
	groupID := strings.Join(parts[:len(parts)-3], ".")

	if groupID == "" || artifactID == "" || version == "" {
		return nil, extractionError(rel, "empty coordinate component")
	}

	stem := strings.TrimSuffix(name, ext)
	prefix := artifactID + "-"
	if !strings.HasPrefix(stem, prefix) {
		return nil, extractionError(rel, fmt.Sprintf("file name does not begin with artifact id %q", artifactID))
	}

	rest := stem[len(prefix):]
	info := &ArtifactInfo{
		GroupID:    groupID,
		ArtifactID: artifactID,
		Version:    version,
		Packaging:  strings.TrimPrefix(ext, "."),
	}

	switch {
	case rest == version:
		// no classifier
	case strings.HasPrefix(rest, version+"-"):
		info.Classifier = rest[len(version)+1:]
		if info.Classifier == "" {
			return nil, extractionError(rel, "dangling classifier separator")
		}
	default:
		return nil, extractionError(rel, fmt.Sprintf("file name version does not match directory version %q", version))
	}

	return info, nil
}

func extractionError(rel, reason string) error {
	return errdefs.NewCustomError(errdefs.ErrTypeExtraction,
		fmt.Sprintf("malformed artifact %s: %s", rel, reason), nil)
}
