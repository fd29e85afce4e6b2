package firestoredb

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"github.com/pkg/errors"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Collections
const (
	studentsCollection      = "students"
	marksCollection         = "marks" // sub-collection of a student
	loginAttemptsCollection = "login_attempts"
	internalCollection      = "internal"
	connectionTestDoc       = "connection-test"

	// maximum number of writes in a single batch
	maxBatchSize = 500
)

// DB wraps a Firestore client.
type DB struct {
	client *firestore.Client
}

func Open(ctx context.Context, app *firebase.App) (*DB, error) {
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "creating Firestore client")
	}
	return &DB{client: client}, nil
}

// Ping writes then reads back the connection test document.
func (db *DB) Ping(ctx context.Context) error {
	ref := db.client.Collection(internalCollection).Doc(connectionTestDoc)
	if _, err := ref.Set(ctx, map[string]interface{}{"timestamp": time.Now().UTC()}); err != nil {
		return errors.Wrap(err, "writing connection test")
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		return errors.Wrap(err, "reading connection test")
	}
	if !snap.Exists() {
		return errors.New("test document not found after writing")
	}
	return nil
}

func (db *DB) Close(context.Context) error {
	return db.client.Close()
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func isAlreadyExists(err error) bool {
	return status.Code(err) == codes.AlreadyExists
}

// deleteAll deletes every document returned by `iter` in batches and returns how many were deleted.
func (db *DB) deleteAll(ctx context.Context, iter *firestore.DocumentIterator) (int, error) {
	defer iter.Stop()

	var refs []*firestore.DocumentRef
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return 0, errors.Wrap(err, "iterating documents")
		}
		refs = append(refs, doc.Ref)
	}

	for start := 0; start < len(refs); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(refs) {
			end = len(refs)
		}
		batch := db.client.Batch()
		for _, ref := range refs[start:end] {
			batch.Delete(ref)
		}
		if _, err := batch.Commit(ctx); err != nil {
			return start, errors.Wrap(err, "committing batch delete")
		}
	}
	return len(refs), nil
}
