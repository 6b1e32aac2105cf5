package artifact

import "strings"

// ArtifactInfo holds the coordinates of one artifact in a repository.
// GroupID, ArtifactID and Version are required for indexed artifacts.
// Classifier is optional; an absent classifier is a distinct, queryable
// state rather than an empty value. Delete requests may leave any field
// empty to mean "match any".
type ArtifactInfo struct {
	GroupID    string `json:"groupId,omitempty"`
	ArtifactID string `json:"artifactId,omitempty"`
	Version    string `json:"version,omitempty"`
	Packaging  string `json:"packaging,omitempty"`
	Classifier string `json:"classifier,omitempty"`
}

// GAVCP returns the canonical coordinate string. It doubles as the index
// document ID, so re-adding the same coordinates overwrites the prior
// document instead of duplicating it.
func (a ArtifactInfo) GAVCP() string {
	return strings.Join([]string{a.GroupID, a.ArtifactID, a.Version, a.Classifier, a.Packaging}, ":")
}

func (a ArtifactInfo) String() string {
	if a.Classifier != "" {
		return a.GroupID + ":" + a.ArtifactID + ":" + a.Version + ":" + a.Classifier + ":" + a.Packaging
	}
	return a.GroupID + ":" + a.ArtifactID + ":" + a.Version + ":" + a.Packaging
}

// Equal compares identity tuples.
func (a ArtifactInfo) Equal(other ArtifactInfo) bool {
	return a == other
}

// Complete reports whether the required coordinates are present, i.e.
// whether the descriptor can be indexed.
func (a ArtifactInfo) Complete() bool {
	return a.GroupID != "" && a.ArtifactID != "" && a.Version != ""
}

// Empty reports whether no coordinate field is set at all.
func (a ArtifactInfo) Empty() bool {
	return a == ArtifactInfo{}
}
