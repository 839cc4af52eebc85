package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cppla/quitmate/models"
)

const (
	collProfiles     = "user_profiles"
	collCheckins     = "checkins"
	collBadges       = "badge_unlocks"
	collCertificates = "certificates"
	collCigarettes   = "cigarette_days"
	collShares       = "share_days"
)

var cigaretteFields = map[string]string{
	models.PuffKindPuff:  "puffCount",
	models.PuffKindShake: "shakeCount",
	models.PuffKindNew:   "newCount",
}

// MongoStore implements Store on a MongoDB database.
type MongoStore struct {
	db *mongo.Database
}

// NewMongoStore wraps a database handle. Call EnsureIndexes once at startup.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

// EnsureIndexes creates the natural-key unique indexes. It is idempotent.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	unique := func(keys bson.D) mongo.IndexModel {
		return mongo.IndexModel{Keys: keys, Options: options.Index().SetUnique(true)}
	}
	indexes := map[string][]mongo.IndexModel{
		collProfiles:     {unique(bson.D{{Key: "userId", Value: 1}})},
		collCheckins:     {unique(bson.D{{Key: "userId", Value: 1}, {Key: "date", Value: 1}})},
		collBadges:       {unique(bson.D{{Key: "userId", Value: 1}, {Key: "badgeType", Value: 1}})},
		collCertificates: {unique(bson.D{{Key: "userId", Value: 1}, {Key: "tier", Value: 1}}), unique(bson.D{{Key: "serial", Value: 1}})},
		collCigarettes:   {unique(bson.D{{Key: "userId", Value: 1}, {Key: "date", Value: 1}})},
		collShares:       {unique(bson.D{{Key: "userId", Value: 1}, {Key: "date", Value: 1}})},
	}
	for coll, idx := range indexes {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, idx); err != nil {
			return err
		}
	}
	return nil
}

func translateMongo(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicate
	default:
		return err
	}
}

func (s *MongoStore) findOne(ctx context.Context, coll string, filter bson.M, out interface{}) error {
	return translateMongo(s.db.Collection(coll).FindOne(ctx, filter).Decode(out))
}

func (s *MongoStore) count(ctx context.Context, coll string, filter bson.M) (int, error) {
	n, err := s.db.Collection(coll).CountDocuments(ctx, filter)
	return int(n), translateMongo(err)
}

func (s *MongoStore) insert(ctx context.Context, coll string, doc interface{}) error {
	_, err := s.db.Collection(coll).InsertOne(ctx, doc)
	return translateMongo(err)
}

func (s *MongoStore) GetOrCreateProfile(ctx context.Context, defaults *models.UserProfile) (*models.UserProfile, bool, error) {
	existing, err := s.GetProfile(ctx, defaults.UserID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}
	profile := *defaults
	now := time.Now()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now
	if err := s.insert(ctx, collProfiles, &profile); err != nil {
		if errors.Is(err, ErrDuplicate) {
			existing, err := s.GetProfile(ctx, defaults.UserID)
			return existing, false, err
		}
		return nil, false, err
	}
	return &profile, true, nil
}

func (s *MongoStore) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	var profile models.UserProfile
	if err := s.findOne(ctx, collProfiles, bson.M{"userId": userID}, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (s *MongoStore) updateProfile(ctx context.Context, userID string, set bson.M) (*models.UserProfile, error) {
	set["updatedAt"] = time.Now()
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var profile models.UserProfile
	err := s.db.Collection(collProfiles).
		FindOneAndUpdate(ctx, bson.M{"userId": userID}, bson.M{"$set": set}, opts).
		Decode(&profile)
	if err != nil {
		return nil, translateMongo(err)
	}
	return &profile, nil
}

func (s *MongoStore) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*models.UserProfile, error) {
	set := bson.M{}
	if update.NickName != nil {
		set["nickName"] = *update.NickName
	}
	if update.AvatarURL != nil {
		set["avatarUrl"] = *update.AvatarURL
	}
	if update.DailyCigarettes != nil {
		set["dailyCigarettes"] = *update.DailyCigarettes
	}
	if update.CigarettePrice != nil {
		set["cigarettePrice"] = *update.CigarettePrice
	}
	if update.CigarettesPerPack != nil {
		set["cigarettesPerPack"] = *update.CigarettesPerPack
	}
	if update.Settings != nil {
		set["settings"] = *update.Settings
	}
	return s.updateProfile(ctx, userID, set)
}

func (s *MongoStore) SetQuitDate(ctx context.Context, userID, date string) (*models.UserProfile, error) {
	return s.updateProfile(ctx, userID, bson.M{"quitDate": date})
}

func (s *MongoStore) ReserveMakeUpCredit(ctx context.Context, userID, month string, quota int) (int, error) {
	if quota <= 0 {
		return 0, ErrNoCredit
	}
	filter := bson.M{
		"userId": userID,
		"$or": bson.A{
			bson.M{"lastResetMonth": bson.M{"$ne": month}},
			bson.M{"makeUpCreditsUsed": bson.M{"$lt": quota}},
		},
	}
	// Pipeline update: every expression in the stage reads the pre-update document.
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"makeUpCreditsUsed": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$lastResetMonth", month}},
				bson.M{"$add": bson.A{"$makeUpCreditsUsed", 1}},
				1,
			}},
			"lastResetMonth": month,
			"updatedAt":      time.Now(),
		}}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var profile models.UserProfile
	err := s.db.Collection(collProfiles).FindOneAndUpdate(ctx, filter, update, opts).Decode(&profile)
	if err != nil {
		err = translateMongo(err)
		if errors.Is(err, ErrNotFound) {
			if _, perr := s.GetProfile(ctx, userID); perr != nil {
				return 0, perr
			}
			return 0, ErrNoCredit
		}
		return 0, err
	}
	return profile.MakeUpCreditsUsed, nil
}

func (s *MongoStore) RefundMakeUpCredit(ctx context.Context, userID, month string) error {
	_, err := s.db.Collection(collProfiles).UpdateOne(ctx,
		bson.M{"userId": userID, "lastResetMonth": month, "makeUpCreditsUsed": bson.M{"$gt": 0}},
		bson.M{"$inc": bson.M{"makeUpCreditsUsed": -1}},
	)
	return translateMongo(err)
}

func (s *MongoStore) GetCheckin(ctx context.Context, userID, date string) (*models.CheckinRecord, error) {
	var rec models.CheckinRecord
	if err := s.findOne(ctx, collCheckins, bson.M{"userId": userID, "date": date}, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *MongoStore) InsertCheckin(ctx context.Context, rec *models.CheckinRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	return s.insert(ctx, collCheckins, rec)
}

func (s *MongoStore) CountCheckins(ctx context.Context, userID string) (int, error) {
	return s.count(ctx, collCheckins, bson.M{"userId": userID})
}

func (s *MongoStore) CountCheckinsBefore(ctx context.Context, userID, date string) (int, error) {
	return s.count(ctx, collCheckins, bson.M{"userId": userID, "date": bson.M{"$lt": date}})
}

func (s *MongoStore) ListCheckins(ctx context.Context, userID, from, to string) ([]models.CheckinRecord, error) {
	filter := bson.M{"userId": userID, "date": bson.M{"$gte": from, "$lte": to}}
	cur, err := s.db.Collection(collCheckins).Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return nil, translateMongo(err)
	}
	var recs []models.CheckinRecord
	if err := cur.All(ctx, &recs); err != nil {
		return nil, translateMongo(err)
	}
	return recs, nil
}

func (s *MongoStore) LatestForwardCheckin(ctx context.Context, userID string) (*models.CheckinRecord, error) {
	var rec models.CheckinRecord
	opts := options.FindOne().SetSort(bson.D{{Key: "date", Value: -1}})
	err := s.db.Collection(collCheckins).FindOne(ctx, bson.M{"userId": userID, "isMakeUp": false}, opts).Decode(&rec)
	if err != nil {
		return nil, translateMongo(err)
	}
	return &rec, nil
}

func (s *MongoStore) HasBadge(ctx context.Context, userID, badgeType string) (bool, error) {
	n, err := s.count(ctx, collBadges, bson.M{"userId": userID, "badgeType": badgeType})
	return n > 0, err
}

func (s *MongoStore) InsertBadge(ctx context.Context, badge *models.BadgeUnlock) error {
	return s.insert(ctx, collBadges, badge)
}

func (s *MongoStore) ListBadges(ctx context.Context, userID string) ([]models.BadgeUnlock, error) {
	opts := options.Find().SetSort(bson.D{{Key: "unlockedAt", Value: -1}, {Key: "days", Value: -1}})
	cur, err := s.db.Collection(collBadges).Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, translateMongo(err)
	}
	var badges []models.BadgeUnlock
	if err := cur.All(ctx, &badges); err != nil {
		return nil, translateMongo(err)
	}
	return badges, nil
}

func (s *MongoStore) CountBadges(ctx context.Context, userID string) (int, error) {
	return s.count(ctx, collBadges, bson.M{"userId": userID})
}

func (s *MongoStore) GetCertificate(ctx context.Context, userID, tier string) (*models.CertificateRecord, error) {
	var cert models.CertificateRecord
	if err := s.findOne(ctx, collCertificates, bson.M{"userId": userID, "tier": tier}, &cert); err != nil {
		return nil, err
	}
	return &cert, nil
}

func (s *MongoStore) InsertCertificate(ctx context.Context, cert *models.CertificateRecord) error {
	if cert.CreatedAt.IsZero() {
		cert.CreatedAt = time.Now()
	}
	return s.insert(ctx, collCertificates, cert)
}

func (s *MongoStore) ListCertificates(ctx context.Context, userID string) ([]models.CertificateRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "quitDays", Value: -1}})
	cur, err := s.db.Collection(collCertificates).Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, translateMongo(err)
	}
	var certs []models.CertificateRecord
	if err := cur.All(ctx, &certs); err != nil {
		return nil, translateMongo(err)
	}
	return certs, nil
}

// upsertCounter increments a per-day counter document, creating it on first use.
// Two concurrent upserts can race on the unique index; the loser retries once as a plain update.
func (s *MongoStore) upsertCounter(ctx context.Context, coll string, filter, update bson.M, out interface{}) error {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		err = translateMongo(s.db.Collection(coll).FindOneAndUpdate(ctx, filter, update, opts).Decode(out))
		if !errors.Is(err, ErrDuplicate) {
			return err
		}
	}
	return err
}

func (s *MongoStore) IncrementCigarette(ctx context.Context, userID, date, kind string, n int) (*models.CigaretteDay, error) {
	field, ok := cigaretteFields[kind]
	if !ok {
		return nil, ErrUnknownKind
	}
	now := time.Now()
	update := bson.M{
		"$inc":         bson.M{field: n},
		"$set":         bson.M{"updatedAt": now},
		"$setOnInsert": bson.M{"createdAt": now},
	}
	var day models.CigaretteDay
	if err := s.upsertCounter(ctx, collCigarettes, bson.M{"userId": userID, "date": date}, update, &day); err != nil {
		return nil, err
	}
	return &day, nil
}

func (s *MongoStore) GetCigaretteDay(ctx context.Context, userID, date string) (*models.CigaretteDay, error) {
	var day models.CigaretteDay
	if err := s.findOne(ctx, collCigarettes, bson.M{"userId": userID, "date": date}, &day); err != nil {
		return nil, err
	}
	return &day, nil
}

func (s *MongoStore) SumCigarettes(ctx context.Context, userID string) (models.CigaretteCounts, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"userId": userID}}},
		{{Key: "$group", Value: bson.M{
			"_id":        nil,
			"puffCount":  bson.M{"$sum": "$puffCount"},
			"shakeCount": bson.M{"$sum": "$shakeCount"},
			"newCount":   bson.M{"$sum": "$newCount"},
		}}},
	}
	var counts models.CigaretteCounts
	cur, err := s.db.Collection(collCigarettes).Aggregate(ctx, pipeline)
	if err != nil {
		return counts, translateMongo(err)
	}
	defer cur.Close(ctx)
	if cur.Next(ctx) {
		if err := cur.Decode(&counts); err != nil {
			return counts, err
		}
	}
	return counts, translateMongo(cur.Err())
}

func (s *MongoStore) IncrementShare(ctx context.Context, userID, date, shareType string) (*models.ShareDay, error) {
	now := time.Now()
	update := bson.M{
		"$inc":         bson.M{"shareCount": 1},
		"$set":         bson.M{"updatedAt": now, "shareType": shareType},
		"$setOnInsert": bson.M{"createdAt": now},
	}
	var day models.ShareDay
	if err := s.upsertCounter(ctx, collShares, bson.M{"userId": userID, "date": date}, update, &day); err != nil {
		return nil, err
	}
	return &day, nil
}

func (s *MongoStore) SumShares(ctx context.Context, userID string) (int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"userId": userID}}},
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$shareCount"}}}},
	}
	cur, err := s.db.Collection(collShares).Aggregate(ctx, pipeline)
	if err != nil {
		return 0, translateMongo(err)
	}
	defer cur.Close(ctx)
	var row struct {
		Total int `bson:"total"`
	}
	if cur.Next(ctx) {
		if err := cur.Decode(&row); err != nil {
			return 0, err
		}
	}
	return row.Total, translateMongo(cur.Err())
}

var _ Store = (*MongoStore)(nil)
