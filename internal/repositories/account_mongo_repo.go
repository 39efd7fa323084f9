package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/gamegate/internal/database"
	"github.com/BradenHooton/gamegate/internal/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const accountCollection = "accounts"

// accountDocument is the stored shape of an account. Unset optional fields
// are omitted so the TTL index only sees expire_at on pending registrations.
type accountDocument struct {
	ID         string    `bson:"_id"`
	FirstName  string    `bson:"first_name"`
	LastName   string    `bson:"last_name"`
	Username   string    `bson:"username"`
	Email      string    `bson:"email"`
	Role       string    `bson:"role"`
	IsVerified bool      `bson:"is_verified"`
	CreatedAt  time.Time `bson:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at"`

	PasswordHash        string     `bson:"password_hash,omitempty"`
	PasswordChangedAt   *time.Time `bson:"password_changed_at,omitempty"`
	ExpireAt            *time.Time `bson:"expire_at,omitempty"`
	OTPHash             string     `bson:"otp_hash,omitempty"`
	OTPExpiry           *time.Time `bson:"otp_expiry,omitempty"`
	LoginOTPHash        string     `bson:"login_otp_hash,omitempty"`
	LoginOTPExpiry      *time.Time `bson:"login_otp_expiry,omitempty"`
	LoginOTPAttempts    int        `bson:"login_otp_attempts"`
	LoginOTPVerified    bool       `bson:"login_otp_verified"`
	LoginAttempts       int        `bson:"login_attempts"`
	LockUntil           *time.Time `bson:"lock_until,omitempty"`
	LastLogin           *time.Time `bson:"last_login,omitempty"`
	ResetPasswordToken  string     `bson:"reset_password_token,omitempty"`
	ResetPasswordExpire *time.Time `bson:"reset_password_expire,omitempty"`
}

// publicAccountProjection keeps credential material on the server.
var publicAccountProjection = bson.D{
	{Key: "first_name", Value: 1}, {Key: "last_name", Value: 1}, {Key: "username", Value: 1},
	{Key: "email", Value: 1}, {Key: "role", Value: 1}, {Key: "is_verified", Value: 1},
	{Key: "created_at", Value: 1}, {Key: "updated_at", Value: 1},
}

func (d *accountDocument) toAccount() *models.Account {
	return &models.Account{
		ID:         d.ID,
		FirstName:  d.FirstName,
		LastName:   d.LastName,
		Username:   d.Username,
		Email:      d.Email,
		Role:       d.Role,
		IsVerified: d.IsVerified,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

func (d *accountDocument) toSecurity() *models.AccountSecurity {
	return &models.AccountSecurity{
		Account:             *d.toAccount(),
		PasswordHash:        d.PasswordHash,
		PasswordChangedAt:   d.PasswordChangedAt,
		ExpireAt:            d.ExpireAt,
		OTPHash:             d.OTPHash,
		OTPExpiry:           d.OTPExpiry,
		LoginOTPHash:        d.LoginOTPHash,
		LoginOTPExpiry:      d.LoginOTPExpiry,
		LoginOTPAttempts:    d.LoginOTPAttempts,
		LoginOTPVerified:    d.LoginOTPVerified,
		LoginAttempts:       d.LoginAttempts,
		LockUntil:           d.LockUntil,
		LastLogin:           d.LastLogin,
		ResetPasswordToken:  d.ResetPasswordToken,
		ResetPasswordExpire: d.ResetPasswordExpire,
	}
}

// AccountMongoRepository stores accounts in MongoDB. A TTL index on
// expire_at deletes unverified registrations once their window passes.
type AccountMongoRepository struct {
	coll *mongo.Collection
}

func NewAccountMongoRepository(ctx context.Context, db *database.MongoDB) (*AccountMongoRepository, error) {
	coll := db.Database.Collection(accountCollection)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "expire_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0), // TTL index
		},
		{
			Keys:    bson.D{{Key: "reset_password_token", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	}

	if _, err := coll.Indexes().CreateMany(ctx, indexes); err != nil {
		return nil, fmt.Errorf("failed to create account indexes: %w", err)
	}

	return &AccountMongoRepository{coll: coll}, nil
}

// visible narrows filter to accounts that are verified or still inside their
// registration window. The TTL monitor runs about once a minute, so reads
// cannot rely on it alone.
func visible(filter bson.M) bson.M {
	filter["$or"] = bson.A{
		bson.M{"is_verified": true},
		bson.M{"expire_at": nil},
		bson.M{"expire_at": bson.M{"$gt": time.Now().UTC()}},
	}
	return filter
}

func (r *AccountMongoRepository) Create(ctx context.Context, acct *models.AccountSecurity) (*models.Account, error) {
	if acct.ID == "" {
		acct.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	acct.CreatedAt = now
	acct.UpdatedAt = now
	if acct.Role == "" {
		acct.Role = models.RoleAdmin
	}

	// The TTL monitor may not have reached an expired registration yet.
	_, err := r.coll.DeleteMany(ctx, bson.M{
		"$or":         bson.A{bson.M{"email": acct.Email}, bson.M{"username": acct.Username}},
		"is_verified": false,
		"expire_at":   bson.M{"$lte": now},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to clear expired registration: %w", err)
	}

	doc := accountDocument{
		ID:                acct.ID,
		FirstName:         acct.FirstName,
		LastName:          acct.LastName,
		Username:          acct.Username,
		Email:             acct.Email,
		Role:              acct.Role,
		IsVerified:        acct.IsVerified,
		CreatedAt:         acct.CreatedAt,
		UpdatedAt:         acct.UpdatedAt,
		PasswordHash:      acct.PasswordHash,
		PasswordChangedAt: acct.PasswordChangedAt,
		ExpireAt:          acct.ExpireAt,
		OTPHash:           acct.OTPHash,
		OTPExpiry:         acct.OTPExpiry,
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return nil, database.MapMongoError(err)
	}
	return doc.toAccount(), nil
}

func (r *AccountMongoRepository) findOne(ctx context.Context, filter bson.M, opts ...options.Lister[options.FindOneOptions]) (*accountDocument, error) {
	var doc accountDocument
	if err := r.coll.FindOne(ctx, filter, opts...).Decode(&doc); err != nil {
		return nil, database.MapMongoError(err)
	}
	return &doc, nil
}

func (r *AccountMongoRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	doc, err := r.findOne(ctx, visible(bson.M{"_id": id}),
		options.FindOne().SetProjection(publicAccountProjection))
	if err != nil {
		return nil, err
	}
	return doc.toAccount(), nil
}

func (r *AccountMongoRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, bson.M{"email": email})
}

func (r *AccountMongoRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, bson.M{"username": username})
}

func (r *AccountMongoRepository) AdminExists(ctx context.Context) (bool, error) {
	return r.exists(ctx, bson.M{"role": models.RoleAdmin, "is_verified": true})
}

func (r *AccountMongoRepository) exists(ctx context.Context, filter bson.M) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, visible(filter), options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check account existence: %w", err)
	}
	return n > 0, nil
}

func (r *AccountMongoRepository) GetSecurityByID(ctx context.Context, id string) (*models.AccountSecurity, error) {
	doc, err := r.findOne(ctx, visible(bson.M{"_id": id}))
	if err != nil {
		return nil, err
	}
	return doc.toSecurity(), nil
}

func (r *AccountMongoRepository) GetSecurityByEmail(ctx context.Context, email string) (*models.AccountSecurity, error) {
	doc, err := r.findOne(ctx, visible(bson.M{"email": email}))
	if err != nil {
		return nil, err
	}
	return doc.toSecurity(), nil
}

func (r *AccountMongoRepository) GetSecurityByIdentifier(ctx context.Context, identifier string) (*models.AccountSecurity, error) {
	filter := bson.M{"$and": bson.A{
		bson.M{"$or": bson.A{bson.M{"email": identifier}, bson.M{"username": identifier}}},
		visible(bson.M{}),
	}}
	doc, err := r.findOne(ctx, filter)
	if err != nil {
		return nil, err
	}
	return doc.toSecurity(), nil
}

func (r *AccountMongoRepository) GetSecurityByResetDigest(ctx context.Context, digest string, now time.Time) (*models.AccountSecurity, error) {
	doc, err := r.findOne(ctx, bson.M{
		"reset_password_token":  digest,
		"reset_password_expire": bson.M{"$gt": now},
	})
	if err != nil {
		return nil, err
	}
	return doc.toSecurity(), nil
}

func (r *AccountMongoRepository) MarkVerified(ctx context.Context, id, otpHash string) error {
	return r.updateOne(ctx,
		bson.M{"_id": id, "is_verified": false, "otp_hash": otpHash},
		bson.M{
			"$set":   bson.M{"is_verified": true, "updated_at": time.Now().UTC()},
			"$unset": bson.M{"otp_hash": "", "otp_expiry": "", "expire_at": ""},
		})
}

func (r *AccountMongoRepository) SetLoginOTP(ctx context.Context, id, hash string, expiresAt time.Time) error {
	return r.updateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"login_otp_hash":     hash,
		"login_otp_expiry":   expiresAt,
		"login_otp_attempts": 0,
		"login_otp_verified": false,
		"updated_at":         time.Now().UTC(),
	}})
}

func (r *AccountMongoRepository) IncrementLoginOTPAttempts(ctx context.Context, id string) (int, error) {
	var doc accountDocument
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{
			"$inc": bson.M{"login_otp_attempts": 1},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, database.MapMongoError(err)
	}
	return doc.LoginOTPAttempts, nil
}

func (r *AccountMongoRepository) ConsumeLoginOTP(ctx context.Context, id, hash string, maxAttempts int, now time.Time) error {
	return r.updateOne(ctx,
		bson.M{
			"_id":                id,
			"login_otp_hash":     hash,
			"login_otp_attempts": bson.M{"$lt": maxAttempts},
			"login_otp_expiry":   bson.M{"$gt": now},
		},
		bson.M{
			"$set":   bson.M{"login_otp_verified": true, "login_otp_attempts": 0, "updated_at": now},
			"$unset": bson.M{"login_otp_hash": "", "login_otp_expiry": ""},
		})
}

// IncrementLoginAttempts uses a pipeline update so the expired-lock reset,
// the increment and the threshold check happen in one document write.
func (r *AccountMongoRepository) IncrementLoginAttempts(ctx context.Context, id string, threshold int, lockUntil, now time.Time) (*models.LockoutState, error) {
	hasLock := bson.M{"$gt": bson.A{"$lock_until", nil}}
	lockExpired := bson.M{"$and": bson.A{hasLock, bson.M{"$lt": bson.A{"$lock_until", now}}}}
	next := bson.M{"$add": bson.A{bson.M{"$ifNull": bson.A{"$login_attempts", 0}}, 1}}

	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"login_attempts": bson.M{"$cond": bson.A{lockExpired, 1, next}},
			"lock_until": bson.M{"$switch": bson.M{
				"branches": bson.A{
					bson.M{"case": lockExpired, "then": "$$REMOVE"},
					bson.M{
						"case": bson.M{"$and": bson.A{bson.M{"$not": bson.A{hasLock}}, bson.M{"$gte": bson.A{next, threshold}}}},
						"then": lockUntil,
					},
				},
				"default": "$lock_until",
			}},
			"updated_at": now,
		}}},
	}

	var doc accountDocument
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, pipeline,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return nil, database.MapMongoError(err)
	}
	return &models.LockoutState{LoginAttempts: doc.LoginAttempts, LockUntil: doc.LockUntil}, nil
}

func (r *AccountMongoRepository) CompleteLogin(ctx context.Context, id string, now time.Time) error {
	return r.updateOne(ctx,
		bson.M{"_id": id, "login_otp_verified": true},
		bson.M{
			"$set": bson.M{
				"login_otp_verified": false,
				"login_attempts":     0,
				"last_login":         now,
				"updated_at":         now,
			},
			"$unset": bson.M{"lock_until": "", "expire_at": ""},
		})
}

func (r *AccountMongoRepository) SetResetToken(ctx context.Context, id, digest string, expiresAt time.Time) error {
	return r.updateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"reset_password_token":  digest,
		"reset_password_expire": expiresAt,
		"updated_at":            time.Now().UTC(),
	}})
}

func (r *AccountMongoRepository) ConsumeResetToken(ctx context.Context, id, digest, passwordHash string, changedAt, now time.Time) error {
	return r.updateOne(ctx,
		bson.M{
			"_id":                   id,
			"reset_password_token":  digest,
			"reset_password_expire": bson.M{"$gt": now},
		},
		bson.M{
			"$set": bson.M{
				"password_hash":       passwordHash,
				"password_changed_at": changedAt,
				"updated_at":          now,
			},
			"$unset": bson.M{"reset_password_token": "", "reset_password_expire": ""},
		})
}

func (r *AccountMongoRepository) UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error {
	return r.updateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"password_hash":       passwordHash,
		"password_changed_at": changedAt,
		"updated_at":          time.Now().UTC(),
	}})
}

// PurgeExpiredUnverified duplicates the TTL monitor's work on demand.
func (r *AccountMongoRepository) PurgeExpiredUnverified(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{
		"is_verified": false,
		"expire_at":   bson.M{"$lte": now},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired accounts: %w", err)
	}
	return res.DeletedCount, nil
}

func (r *AccountMongoRepository) updateOne(ctx context.Context, filter, update bson.M) error {
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return database.MapMongoError(err)
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}
