package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/couchcryptid/ca-cities-import/internal/domain"
)

// cityDocument is the stored shape of a domain.CityRecord. The document ID
// carries DocID, so it is not repeated in the body.
type cityDocument struct {
	Name        string     `firestore:"name"`
	Status      string     `firestore:"status"`
	LastScanned *time.Time `firestore:"last_scanned"`
}

func toDocument(rec domain.CityRecord) cityDocument {
	return cityDocument{
		Name:        rec.Name,
		Status:      rec.Status,
		LastScanned: rec.LastScanned,
	}
}

// Store writes city records into one Firestore collection.
// It implements domain.CityStore.
type Store struct {
	client     *firestore.Client
	collection *firestore.CollectionRef
}

// NewStore binds a store to the named collection.
func NewStore(client *firestore.Client, collection string) *Store {
	return &Store{
		client:     client,
		collection: client.Collection(collection),
	}
}

// NewBatch opens an empty write batch.
func (s *Store) NewBatch() domain.CityBatch {
	//nolint:staticcheck // WriteBatch gives the all-or-nothing commit the writer counts on; BulkWriter does not.
	return &batch{collection: s.collection, wb: s.client.Batch()}
}

// Get reads one city document back.
func (s *Store) Get(ctx context.Context, docID string) (domain.CityRecord, error) {
	snap, err := s.collection.Doc(docID).Get(ctx)
	if err != nil {
		return domain.CityRecord{}, fmt.Errorf("get city %s: %w", docID, err)
	}
	var doc cityDocument
	if err := snap.DataTo(&doc); err != nil {
		return domain.CityRecord{}, fmt.Errorf("decode city %s: %w", docID, err)
	}
	return domain.CityRecord{
		DocID:       docID,
		Name:        doc.Name,
		Status:      doc.Status,
		LastScanned: doc.LastScanned,
	}, nil
}

type batch struct {
	collection *firestore.CollectionRef
	wb         *firestore.WriteBatch
	size       int
}

// Set enqueues a full overwrite; no merge option, so prior fields are dropped.
func (b *batch) Set(rec domain.CityRecord) {
	b.wb.Set(b.collection.Doc(rec.DocID), toDocument(rec))
	b.size++
}

func (b *batch) Commit(ctx context.Context) error {
	if b.size == 0 {
		return nil
	}
	if _, err := b.wb.Commit(ctx); err != nil {
		return fmt.Errorf("commit %d city writes: %w", b.size, err)
	}
	return nil
}
