package index

import (
	bleve "github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/leonmak/strongbox/internal/artifact"
)

// Coordinate field names as they appear in the index.
const (
	FieldGroupID    = "groupId"
	FieldArtifactID = "artifactId"
	FieldVersion    = "version"
	FieldPackaging  = "packaging"
	FieldClassifier = "classifier"
)

// Every coordinate field is additionally indexed untokenized under
// <field>_exact so structured queries can match whole values.
const exactSuffix = "_exact"

// Schema is the immutable field configuration shared by the Indexer and
// the Searcher. Both sides must agree on it for queries to line up with
// indexed documents.
type Schema struct {
	Fields []string
}

func DefaultSchema() Schema {
	return Schema{
		Fields: []string{
			FieldGroupID,
			FieldArtifactID,
			FieldVersion,
			FieldPackaging,
			FieldClassifier,
		},
	}
}

func exactField(field string) string {
	return field + exactSuffix
}

// document converts a descriptor into the indexed form. The classifier
// key is omitted entirely when absent, so field-presence queries can
// tell "no classifier" apart from any classifier value.
func document(a artifact.ArtifactInfo) map[string]interface{} {
	doc := map[string]interface{}{
		FieldGroupID:    a.GroupID,
		FieldArtifactID: a.ArtifactID,
		FieldVersion:    a.Version,
		FieldPackaging:  a.Packaging,
	}
	if a.Classifier != "" {
		doc[FieldClassifier] = a.Classifier
	}
	return doc
}

func fromFields(fields map[string]interface{}) artifact.ArtifactInfo {
	str := func(field string) string {
		if v, ok := fields[field].(string); ok {
			return v
		}
		return ""
	}
	return artifact.ArtifactInfo{
		GroupID:    str(FieldGroupID),
		ArtifactID: str(FieldArtifactID),
		Version:    str(FieldVersion),
		Packaging:  str(FieldPackaging),
		Classifier: str(FieldClassifier),
	}
}

func buildIndexMapping(schema Schema) mapping.IndexMapping {
	m := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()

	for _, field := range schema.Fields {
		analyzed := bleve.NewTextFieldMapping()
		analyzed.Store = true
		analyzed.IncludeTermVectors = false

		exact := bleve.NewTextFieldMapping()
		exact.Name = exactField(field)
		exact.Analyzer = "keyword"
		exact.Store = false
		exact.IncludeTermVectors = false

		docMapping.AddFieldMappingsAt(field, analyzed, exact)
	}

	m.DefaultMapping = docMapping
	return m
}
