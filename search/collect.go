package search

import (
	"strconv"

	"github.com/stratadb/strata/space"
	"github.com/stratadb/strata/store"
	"github.com/stratadb/strata/value"
	"github.com/stratadb/strata/vector"
)

// vectorDoc pairs a document ordinal with its stored embedding so the vector
// pass can score it without a second store walk.
type vectorDoc struct {
	doc        int
	collection string
	embedding  []float32
}

type corpus struct {
	docs    []Document
	vectors []vectorDoc
}

func (c *corpus) add(d Document) int {
	d.Tokens = Tokenize(d.Text)
	c.docs = append(c.docs, d)
	return len(c.docs) - 1
}

// collect walks the branch's spaces and materializes the searchable corpus
// honoring the space, primitive, collection, and time-range restrictions.
func collect(spaces []*space.Space, opts Options) *corpus {
	c := &corpus{}
	for _, sp := range spaces {
		if !opts.wantSpace(sp.Name) {
			continue
		}
		if opts.wantPrimitive(PrimitiveKV) {
			collectValues(c, sp.Name, PrimitiveKV, sp.KV, opts)
		}
		if opts.wantPrimitive(PrimitiveState) {
			collectValues(c, sp.Name, PrimitiveState, sp.State, opts)
		}
		if opts.wantPrimitive(PrimitiveJSON) {
			collectValues(c, sp.Name, PrimitiveJSON, sp.JSON, opts)
		}
		if opts.wantPrimitive(PrimitiveEvent) {
			for _, ev := range sp.Events.All() {
				if !opts.inTimeRange(ev.Timestamp) {
					continue
				}
				c.add(Document{
					ID:        DocID{sp.Name, PrimitiveEvent, strconv.FormatUint(ev.Sequence, 10)},
					Text:      ev.Type + " " + ev.Payload.Text(),
					Payload:   ev.Payload,
					Version:   ev.Version,
					Timestamp: ev.Timestamp,
				})
			}
		}
		if opts.wantPrimitive(PrimitiveVector) {
			spaceName := sp.Name
			sp.Vector.ForEachCurrent(func(collection string, rec vector.Record) bool {
				if !opts.wantCollection(collection) || !opts.inTimeRange(rec.Timestamp) {
					return true
				}
				doc := c.add(Document{
					ID:        DocID{spaceName, PrimitiveVector, collection + "/" + rec.Key},
					Text:      rec.Key + " " + rec.Metadata.Text(),
					Payload:   rec.Metadata,
					Version:   rec.Version,
					Timestamp: rec.Timestamp,
				})
				c.vectors = append(c.vectors, vectorDoc{doc: doc, collection: collection, embedding: rec.Embedding})
				return true
			})
		}
	}
	return c
}

func collectValues(c *corpus, spaceName, primitive string, s *store.Store[value.Value], opts Options) {
	s.Range(func(key string, recs []store.Record[value.Value]) bool {
		if len(recs) == 0 {
			return true
		}
		last := recs[len(recs)-1]
		if last.Tombstone || !opts.inTimeRange(last.Timestamp) {
			return true
		}
		c.add(Document{
			ID:        DocID{spaceName, primitive, key},
			Text:      key + " " + last.Value.Text(),
			Payload:   last.Value,
			Version:   last.Version,
			Timestamp: last.Timestamp,
		})
		return true
	})
}
