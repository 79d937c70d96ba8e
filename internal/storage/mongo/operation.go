package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lugondev/go-cpamm/internal/storage"
)

type mongoOperationRepository struct {
	collection *mongo.Collection
}

func (r *mongoOperationRepository) Save(ctx context.Context, op *storage.OperationModel) error {
	_, err := r.collection.InsertOne(ctx, op)
	return err
}

func (r *mongoOperationRepository) FindByID(ctx context.Context, id string) (*storage.OperationModel, error) {
	var op storage.OperationModel
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&op)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &op, nil
}

func (r *mongoOperationRepository) FindByPool(ctx context.Context, pool string, limit int, offset int) ([]*storage.OperationModel, error) {
	opts := options.Find().SetLimit(int64(limit)).SetSkip(int64(offset)).SetSort(bson.D{{Key: "created_at", Value: -1}})
	return r.find(ctx, bson.M{"pool": pool}, opts)
}

func (r *mongoOperationRepository) FindRecent(ctx context.Context, limit int) ([]*storage.OperationModel, error) {
	opts := options.Find().SetLimit(int64(limit)).SetSort(bson.D{{Key: "created_at", Value: -1}})
	return r.find(ctx, bson.M{}, opts)
}

func (r *mongoOperationRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*storage.OperationModel, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var ops []*storage.OperationModel
	if err := cursor.All(ctx, &ops); err != nil {
		return nil, err
	}
	return ops, nil
}
