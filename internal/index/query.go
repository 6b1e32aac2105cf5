package index

import (
	"fmt"
	"strings"
	"unicode"

	bleve "github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/leonmak/strongbox/internal/artifact"
	"github.com/leonmak/strongbox/internal/errdefs"
	"github.com/leonmak/strongbox/internal/log"
)

// Searcher executes structured and free-text queries against an index
// context. The schema it is constructed with must match the one the
// documents were indexed under.
type Searcher struct {
	schema Schema
}

func NewSearcher(schema Schema) *Searcher {
	return &Searcher{schema: schema}
}

// Result is a de-duplicated set of artifacts. Total is the number of
// distinct artifacts returned, not the backend's raw hit count.
type Result struct {
	Artifacts []artifact.ArtifactInfo `json:"artifacts"`
	Total     uint64                  `json:"total"`
}

// SearchCoordinates resolves release artifacts by exact coordinates:
// groupId and artifactId must match, packaging must be "jar", and the
// classifier must be absent so that sources/javadoc variants stay out of
// the result. An empty version matches every version.
func (s *Searcher) SearchCoordinates(ctx *Context, groupID, artifactID, version string) (*Result, error) {
	if groupID == "" || artifactID == "" {
		return nil, errdefs.NewCustomError(errdefs.ErrTypeQueryParse,
			"coordinate search requires groupId and artifactId", nil)
	}

	boolean := bleve.NewBooleanQuery()
	boolean.AddMust(exactTermQuery(FieldGroupID, groupID))
	boolean.AddMust(exactTermQuery(FieldArtifactID, artifactID))
	boolean.AddMust(exactTermQuery(FieldPackaging, "jar"))
	boolean.AddMustNot(fieldPresentQuery(FieldClassifier))

	if version != "" {
		boolean.AddMust(exactTermQuery(FieldVersion, version))
	}

	log.Debugf("running coordinate query: %s:%s:%s; ctx id: %s; idx dir: %s",
		groupID, artifactID, version, ctx.id, ctx.indexDir)
	return s.execute(ctx, boolean)
}

// SearchText matches the query tokens against every coordinate field.
// Text that yields no tokens is a parse error, never an empty result.
func (s *Searcher) SearchText(ctx *Context, queryText string) (*Result, error) {
	if err := ValidateQueryText(queryText); err != nil {
		return nil, err
	}

	disj := bleve.NewDisjunctionQuery()
	for _, field := range s.schema.Fields {
		mq := bleve.NewMatchQuery(queryText)
		mq.SetField(field)
		disj.AddQuery(mq)
	}

	log.Debugf("running text query: %q; ctx id: %s; idx dir: %s", queryText, ctx.id, ctx.indexDir)
	result, err := s.execute(ctx, disj)
	if err != nil {
		return nil, err
	}
	log.Debugf("hit count: %d", result.Total)
	return result, nil
}

func (s *Searcher) execute(ctx *Context, q query.Query) (*Result, error) {
	ctx.mu.RLock()
	defer ctx.mu.RUnlock()

	if ctx.closed {
		return nil, errdefs.ErrContextClosed
	}

	countReq := bleve.NewSearchRequest(q)
	countReq.Size = 0
	countRes, err := ctx.index.Search(countReq)
	if err != nil {
		return nil, errdefs.NewCustomError(errdefs.ErrTypeSearch, "query failed on index "+ctx.id, err)
	}

	result := &Result{}
	if countRes.Total == 0 {
		return result, nil
	}

	req := bleve.NewSearchRequest(q)
	req.Size = int(countRes.Total)
	req.Fields = s.schema.Fields

	res, err := ctx.index.Search(req)
	if err != nil {
		return nil, errdefs.NewCustomError(errdefs.ErrTypeSearch, "query failed on index "+ctx.id, err)
	}

	seen := make(map[string]bool, len(res.Hits))
	for _, hit := range res.Hits {
		if seen[hit.ID] {
			continue
		}
		seen[hit.ID] = true
		result.Artifacts = append(result.Artifacts, fromFields(hit.Fields))
	}
	result.Total = uint64(len(result.Artifacts))

	return result, nil
}

func exactTermQuery(field, value string) query.Query {
	tq := bleve.NewTermQuery(value)
	tq.SetField(exactField(field))
	return tq
}

// fieldPresentQuery matches any document carrying a value for field.
func fieldPresentQuery(field string) query.Query {
	wq := bleve.NewWildcardQuery("*")
	wq.SetField(exactField(field))
	return wq
}

// ValidateQueryText rejects text the analyzer would reduce to nothing.
func ValidateQueryText(queryText string) error {
	tokens := strings.FieldsFunc(queryText, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(tokens) == 0 {
		return errdefs.NewCustomError(errdefs.ErrTypeQueryParse,
			fmt.Sprintf("cannot parse query text %q", queryText), nil)
	}
	return nil
}
