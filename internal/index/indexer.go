package index

import (
	bleve "github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/leonmak/strongbox/internal/artifact"
	"github.com/leonmak/strongbox/internal/errdefs"
	"github.com/leonmak/strongbox/internal/log"
)

// Indexer adds and removes artifact documents against an index context.
type Indexer struct {
	schema Schema
}

func NewIndexer(schema Schema) *Indexer {
	return &Indexer{schema: schema}
}

// Add inserts or updates one document per descriptor. The coordinate
// tuple is the document ID, so adding the same coordinates twice keeps a
// single document with the latest field values.
func (ix *Indexer) Add(ctx *Context, artifacts []artifact.ArtifactInfo) error {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()

	if ctx.closed {
		return errdefs.ErrContextClosed
	}

	batch := ctx.index.NewBatch()
	for _, a := range artifacts {
		if !a.Complete() {
			return errdefs.NewCustomError(errdefs.ErrTypeIndexWrite,
				"cannot index artifact with missing coordinates: "+a.String(), nil)
		}
		if err := batch.Index(a.GAVCP(), document(a)); err != nil {
			return errdefs.NewCustomError(errdefs.ErrTypeIndexWrite, "failed to stage "+a.String(), err)
		}
	}

	if err := ctx.index.Batch(batch); err != nil {
		return errdefs.NewCustomError(errdefs.ErrTypeIndexWrite, "failed to write batch to index "+ctx.id, err)
	}

	log.Debugf("indexed %d artifact(s) in %s", len(artifacts), ctx.id)
	return nil
}

// Delete removes every indexed document matching each descriptor. Empty
// fields are wildcards: a descriptor with only group and artifact set
// removes all versions, classified or not.
func (ix *Indexer) Delete(ctx *Context, artifacts []artifact.ArtifactInfo) error {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()

	if ctx.closed {
		return errdefs.ErrContextClosed
	}

	batch := ctx.index.NewBatch()
	staged := 0
	for _, a := range artifacts {
		if a.Empty() {
			return errdefs.NewCustomError(errdefs.ErrTypeIndexWrite,
				"refusing to delete with an empty artifact descriptor", nil)
		}

		ids, err := matchingDocIDs(ctx, deleteQuery(a))
		if err != nil {
			return err
		}
		for _, id := range ids {
			batch.Delete(id)
			staged++
		}
		log.Infof("deleting artifact: %s; ctx id: %s; matched: %d", a.String(), ctx.id, len(ids))
	}

	if staged == 0 {
		return nil
	}

	if err := ctx.index.Batch(batch); err != nil {
		return errdefs.NewCustomError(errdefs.ErrTypeIndexWrite, "failed to delete from index "+ctx.id, err)
	}
	return nil
}

// deleteQuery builds a conjunction of exact matches over the fields the
// descriptor specifies.
func deleteQuery(a artifact.ArtifactInfo) query.Query {
	conj := bleve.NewConjunctionQuery()
	for field, value := range map[string]string{
		FieldGroupID:    a.GroupID,
		FieldArtifactID: a.ArtifactID,
		FieldVersion:    a.Version,
		FieldPackaging:  a.Packaging,
		FieldClassifier: a.Classifier,
	} {
		if value == "" {
			continue
		}
		tq := bleve.NewTermQuery(value)
		tq.SetField(exactField(field))
		conj.AddQuery(tq)
	}
	return conj
}

// matchingDocIDs runs q and returns the IDs of every hit. Callers must
// hold the context lock.
func matchingDocIDs(ctx *Context, q query.Query) ([]string, error) {
	countReq := bleve.NewSearchRequest(q)
	countReq.Size = 0
	countRes, err := ctx.index.Search(countReq)
	if err != nil {
		return nil, errdefs.NewCustomError(errdefs.ErrTypeSearch, "failed to resolve matching documents", err)
	}
	if countRes.Total == 0 {
		return nil, nil
	}

	req := bleve.NewSearchRequest(q)
	req.Size = int(countRes.Total)
	res, err := ctx.index.Search(req)
	if err != nil {
		return nil, errdefs.NewCustomError(errdefs.ErrTypeSearch, "failed to resolve matching documents", err)
	}

	ids := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}
