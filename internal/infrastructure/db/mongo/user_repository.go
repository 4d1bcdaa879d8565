package mongo

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

const usersCollection = "auth_users"

// insertionOrder sorts by seq, with _id breaking ties between equal seqs.
var insertionOrder = bson.D{{Key: "seq", Value: 1}, {Key: "_id", Value: 1}}

// UserRepository implements ports.UserRepository on a MongoDB collection.
type UserRepository struct {
	coll    *mongo.Collection
	lastSeq atomic.Int64
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(usersCollection)}
}

type mongoUser struct {
	ID             string    `bson:"_id"`
	Email          string    `bson:"email"`
	HashedPassword string    `bson:"hashed_password"`
	SessionID      *string   `bson:"session_id,omitempty"`
	ResetToken     *string   `bson:"reset_token,omitempty"`
	CreatedAt      time.Time `bson:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at"`
	Seq            int64     `bson:"seq"`
}

// EnsureIndexes creates the unique email index and the lookup indexes.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "session_id", Value: 1}}, Options: options.Index().SetSparse(true)},
		{Keys: bson.D{{Key: "reset_token", Value: 1}}, Options: options.Index().SetSparse(true)},
		{Keys: insertionOrder},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	return nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	doc := toMongoUser(user)
	doc.Seq = r.nextSeq(time.Now())

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrUserExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// Find returns the earliest inserted document matching q.
func (r *UserRepository) Find(ctx context.Context, q domain.Query) (*domain.User, error) {
	opts := options.FindOne().SetSort(insertionOrder)

	var mu mongoUser
	if err := r.coll.FindOne(ctx, queryFilter(q), opts).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return mu.toDomain(), nil
}

func (r *UserRepository) Update(ctx context.Context, userID string, changes domain.Changes) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": userID}, updateDocument(changes, time.Now().UTC()))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrUserExists
		}
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func queryFilter(q domain.Query) bson.M {
	filter := bson.M{}
	for f, v := range q {
		filter[bsonKey(f)] = v
	}
	return filter
}

func updateDocument(changes domain.Changes, now time.Time) bson.M {
	set := bson.M{"updated_at": now}
	unset := bson.M{}
	for f, v := range changes {
		if v == nil {
			unset[bsonKey(f)] = ""
			continue
		}
		set[bsonKey(f)] = *v
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}
	return update
}

func bsonKey(f domain.Field) string {
	if f == domain.FieldID {
		return "_id"
	}
	return string(f)
}

func toMongoUser(u *domain.User) mongoUser {
	return mongoUser{
		ID:             u.ID,
		Email:          u.Email,
		HashedPassword: u.HashedPassword,
		SessionID:      u.SessionID,
		ResetToken:     u.ResetToken,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

func (mu mongoUser) toDomain() *domain.User {
	return &domain.User{
		ID:             mu.ID,
		Email:          mu.Email,
		HashedPassword: mu.HashedPassword,
		SessionID:      mu.SessionID,
		ResetToken:     mu.ResetToken,
		CreatedAt:      mu.CreatedAt.UTC(),
		UpdatedAt:      mu.UpdatedAt.UTC(),
	}
}

// nextSeq returns now in nanoseconds, bumped past the previous value so
// inserts from this process get strictly increasing seqs.
func (r *UserRepository) nextSeq(now time.Time) int64 {
	for {
		prev := r.lastSeq.Load()
		next := now.UnixNano()
		if next <= prev {
			next = prev + 1
		}
		if r.lastSeq.CompareAndSwap(prev, next) {
			return next
		}
	}
}

var _ ports.UserRepository = (*UserRepository)(nil)
