package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const profileCollection = "patient_profiles"

type profileDocument struct {
	PatientID string    `bson:"_id"`
	ProfileID string    `bson:"profile_id"`
	Blob      string    `bson:"blob"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoStore keeps one document per patient, replaced on every save.
type MongoStore struct {
	coll  *mongo.Collection
	codec blobCodec
}

func NewMongoStore(db *mongo.Database, sealer Sealer) *MongoStore {
	return &MongoStore{coll: db.Collection(profileCollection), codec: blobCodec{sealer: sealer}}
}

func (s *MongoStore) Save(ctx context.Context, patientID string, p *PatientProfile) error {
	blob, err := s.codec.encode(p)
	if err != nil {
		return err
	}

	doc := profileDocument{
		PatientID: patientID,
		ProfileID: p.ID,
		Blob:      blob,
		CreatedAt: p.CreatedAt,
		UpdatedAt: time.Now(),
	}
	_, err = s.coll.ReplaceOne(ctx, bson.M{"_id": patientID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

func (s *MongoStore) Load(ctx context.Context, patientID string) (*PatientProfile, error) {
	var doc profileDocument
	err := s.coll.FindOne(ctx, bson.M{"_id": patientID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return s.codec.decode(doc.Blob)
}

func (s *MongoStore) Clear(ctx context.Context, patientID string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": patientID}); err != nil {
		return fmt.Errorf("failed to clear profile: %w", err)
	}
	return nil
}
