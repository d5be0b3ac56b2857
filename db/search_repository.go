package db

import (
	"context"
	"errors"

	"github.com/SaiNageswarS/go-api-boot/odm"
	"github.com/SaiNageswarS/go-collection-boot/async"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// ErrNotFound reports that no search document exists for the given id. Any
// other error from the repository is an infrastructure failure.
var ErrNotFound = errors.New("search not found")

// SearchRepository adapts the odm collection to the synchronous surface the
// session store works against.
type SearchRepository struct {
	collection odm.OdmCollectionInterface[SearchModel]
}

func NewSearchRepository(mongo odm.MongoClient, tenant string) *SearchRepository {
	return &SearchRepository{
		collection: odm.CollectionOf[SearchModel](mongo, tenant),
	}
}

func (r *SearchRepository) FindOneByID(ctx context.Context, id string) (*SearchModel, error) {
	model, err := async.Await(r.collection.FindOneByID(ctx, id))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if model == nil {
		return nil, ErrNotFound
	}
	return model, nil
}

func (r *SearchRepository) Save(ctx context.Context, model SearchModel) error {
	_, err := async.Await(r.collection.Save(ctx, model))
	return err
}

func (r *SearchRepository) FindRecentSuccessful(ctx context.Context, limit int64) ([]SearchModel, error) {
	filter := bson.M{"status": StatusSuccess}
	sort := bson.D{{Key: "createdOn", Value: -1}}
	return async.Await(r.collection.Find(ctx, filter, sort, limit, 0))
}
