package repository

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ShoaibFarooka/MERN-Boilerplate/internal/model"
)

// UserRepo is the MongoDB implementation of UserStore.
type UserRepo struct {
	col *mongo.Collection
}

// NewUserRepo wraps the users collection.
func NewUserRepo(col *mongo.Collection) *UserRepo { return &UserRepo{col: col} }

var _ UserStore = (*UserRepo)(nil)

// Create inserts the user.  A duplicate-key error from the unique
// indexes is mapped to ErrEmailExists/ErrNumberExists by index name.
func (r *UserRepo) Create(ctx context.Context, u *model.User) (string, error) {
	now := time.Now().UTC()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.CreatedAt = now
	u.UpdatedAt = now
	res, err := r.col.InsertOne(ctx, u)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			if strings.Contains(err.Error(), "number") {
				return "", ErrNumberExists
			}
			return "", ErrEmailExists
		}
		return "", err
	}
	oid, _ := res.InsertedID.(primitive.ObjectID)
	return oid.Hex(), nil
}

func (r *UserRepo) ByID(ctx context.Context, id string) (*model.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *UserRepo) ByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepo) ByNumber(ctx context.Context, number string) (*model.User, error) {
	return r.findOne(ctx, bson.M{"number": strings.TrimSpace(number)})
}

// RotateRefreshToken performs a compare-and-swap on the stored refresh
// token.  The old token is part of the filter, so the database's
// per-document write atomicity guarantees at most one concurrent
// rotation can match.
func (r *UserRepo) RotateRefreshToken(ctx context.Context, id, oldToken, newToken string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res := r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "refresh_token": oldToken},
		bson.M{"$set": bson.M{"refresh_token": newToken, "updated_at": time.Now().UTC()}},
	)
	if err := res.Err(); err != nil {
		if err == mongo.ErrNoDocuments {
			// Either the user is gone or the stored token was already
			// replaced or nulled.
			if _, lookupErr := r.ByID(ctx, id); lookupErr != nil {
				return lookupErr
			}
			return ErrTokenMismatch
		}
		return err
	}
	return nil
}

func (r *UserRepo) SetRefreshToken(ctx context.Context, id, tok string) error {
	return r.setByID(ctx, id, bson.M{"refresh_token": tok})
}

func (r *UserRepo) ClearRefreshToken(ctx context.Context, id string) error {
	return r.setByID(ctx, id, bson.M{"refresh_token": nil})
}

func (r *UserRepo) SetResetToken(ctx context.Context, id, tok string, expiry time.Time) error {
	return r.setByID(ctx, id, bson.M{"reset_token": tok, "reset_token_expiry": expiry.UTC()})
}

func (r *UserRepo) ByValidResetToken(ctx context.Context, tok string, now time.Time) (*model.User, error) {
	return r.findOne(ctx, bson.M{
		"reset_token":        tok,
		"reset_token_expiry": bson.M{"$gt": now.UTC()},
	})
}

func (r *UserRepo) UpdatePassword(ctx context.Context, id, digest string, clearReset bool) error {
	set := bson.M{"password": digest}
	if clearReset {
		set["reset_token"] = nil
		set["reset_token_expiry"] = nil
	}
	return r.setByID(ctx, id, set)
}

func (r *UserRepo) UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) error {
	set := bson.M{}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Email != nil {
		set["email"] = strings.ToLower(strings.TrimSpace(*upd.Email))
	}
	if upd.Number != nil {
		set["number"] = strings.TrimSpace(*upd.Number)
	}
	if upd.DateOfBirth != nil {
		set["date_of_birth"] = *upd.DateOfBirth
	}
	if upd.Address != nil {
		set["address"] = *upd.Address
	}
	if upd.City != nil {
		set["city"] = *upd.City
	}
	if upd.Zip != nil {
		set["zip"] = *upd.Zip
	}
	if len(set) == 0 {
		return nil
	}
	return r.setByID(ctx, id, set)
}

// Search pages users matching the query.  The query is matched
// case-insensitively against name, email and number, mirroring the
// admin listing of the original boilerplate.
func (r *UserRepo) Search(ctx context.Context, p SearchParams) ([]model.User, int64, error) {
	filter := bson.M{}
	if q := strings.TrimSpace(p.Query); q != "" {
		rx := primitive.Regex{Pattern: q, Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"name": rx},
			bson.M{"email": rx},
			bson.M{"number": rx},
		}
	}
	if p.Role != "" {
		filter["role"] = p.Role
	}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	if p.Limit <= 0 {
		p.Limit = 20
	}
	if p.Page <= 0 {
		p.Page = 1
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip((p.Page - 1) * p.Limit).
		SetLimit(p.Limit)

	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var users []model.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *UserRepo) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepo) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	var u model.User
	if err := r.col.FindOne(ctx, filter).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) setByID(ctx context.Context, id string, set bson.M) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	set["updated_at"] = time.Now().UTC()
	res, err := r.col.UpdateByID(ctx, oid, bson.M{"$set": set})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			if strings.Contains(err.Error(), "number") {
				return ErrNumberExists
			}
			return ErrEmailExists
		}
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
