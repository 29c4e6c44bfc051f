package chunkstore

import (
	"sort"

	"github.com/blevesearch/bleve/v2"

	atlaserrors "github.com/inherent-design/atlas-sub010/internal/errors"
)

// fullTextDoc is the document shape indexed in bleve; only
// original_text is analyzed, id is stored for lookup.
type fullTextDoc struct {
	Text string `json:"text"`
}

// fullTextIndex wraps an in-memory bleve index of the original_text of
// every chunk upserted through the owning store, used as the
// keyword-ranked side of hybrid RRF fusion. Superseded and soft-deleted
// chunks stay indexed; callers check visibility after lookup. The index
// starts empty in each process.
type fullTextIndex struct {
	index bleve.Index
}

func newFullTextIndex() (*fullTextIndex, error) {
	mapping := bleve.NewIndexMapping()
	idx, err := bleve.NewMemOnly(mapping)
	if err != nil {
		return nil, err
	}
	return &fullTextIndex{index: idx}, nil
}

func (f *fullTextIndex) Index(id, text string) {
	_ = f.index.Index(id, fullTextDoc{Text: text})
}

func (f *fullTextIndex) Remove(id string) {
	_ = f.index.Delete(id)
}

func (f *fullTextIndex) Clear() {
	mapping := bleve.NewIndexMapping()
	idx, err := bleve.NewMemOnly(mapping)
	if err != nil {
		return
	}
	f.index = idx
}

func (f *fullTextIndex) Search(query string, limit int) ([]FullTextResult, error) {
	q := bleve.NewMatchQuery(query)
	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	result, err := f.index.Search(req)
	if err != nil {
		return nil, atlaserrors.Transient(err)
	}

	out := make([]FullTextResult, 0, len(result.Hits))
	for _, hit := range result.Hits {
		out = append(out, FullTextResult{ChunkID: hit.ID, Score: hit.Score})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}
