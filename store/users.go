package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cppla/yapper/cache"
	"github.com/cppla/yapper/models"
)

const (
	userCachePrefix = "cache:user:"
	userCacheTTL    = 10 * time.Minute
	// userGenerationKey names the current cache generation. It sits outside
	// userCachePrefix so prefix invalidation never removes it.
	userGenerationKey = "cache:generation:user"
	userGenerationTTL = 24 * time.Hour

	columnHashedExternalID = "hashedExternalId"
)

// UserStore persists users behind a read-through cache.
// Entries are keyed by a generation that every write replaces, so a reader
// that loaded a row before the write can only fill a key nobody reads again.
type UserStore struct {
	db    *gorm.DB
	cache cache.Cache
}

// NewUserStore returns a UserStore. A nil cache disables caching.
func NewUserStore(db *gorm.DB, c cache.Cache) *UserStore {
	return &UserStore{db: db, cache: c}
}

// Create inserts a user. Username and HashedExternalID must both be unused.
func (s *UserStore) Create(ctx context.Context, u *models.User) error {
	if u.MemberSince.IsZero() {
		u.MemberSince = now()
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).
		Where(eq("username", u.Username)).Or(eq(columnHashedExternalID, u.HashedExternalID)).
		Count(&count).Error; err != nil {
		return fmt.Errorf("check user uniqueness: %w", err)
	}
	if count > 0 {
		return ErrDuplicateKey
	}
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		return translate(err)
	}
	s.invalidate(ctx)
	return nil
}

func (s *UserStore) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getCached(ctx, fmt.Sprintf("id:%d", id), "id", id)
}

func (s *UserStore) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getCached(ctx, "name:"+username, "username", username)
}

func (s *UserStore) GetByHashedExternalID(ctx context.Context, hashed string) (*models.User, error) {
	return s.getCached(ctx, "ext:"+hashed, columnHashedExternalID, hashed)
}

// List returns all users ordered by id.
func (s *UserStore) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateAvatar sets the avatar URL of the user.
func (s *UserStore) UpdateAvatar(ctx context.Context, id uint, url string) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("avatar_url", url)
	if res.Error != nil {
		return res.Error
	}
	s.invalidate(ctx)
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the user row. Posts and replies keep their username.
func (s *UserStore) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.User{}, id)
	if res.Error != nil {
		return res.Error
	}
	s.invalidate(ctx)
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *UserStore) getCached(ctx context.Context, suffix, column string, arg interface{}) (*models.User, error) {
	// the generation must be read before the row is loaded
	key := ""
	if s.cache != nil {
		if gen := s.generation(ctx); gen != "" {
			key = userCachePrefix + gen + ":" + suffix
		}
	}
	var rec userRecord
	if key != "" && cache.GetJSON(ctx, s.cache, key, &rec) {
		return rec.user(), nil
	}
	var u models.User
	if err := s.db.WithContext(ctx).Where(eq(column, arg)).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	if key != "" {
		cache.SetJSON(ctx, s.cache, key, newUserRecord(u), userCacheTTL)
	}
	return &u, nil
}

// generation returns the current cache generation, starting one when none
// exists. An empty result means the lookup should bypass the cache.
func (s *UserStore) generation(ctx context.Context) string {
	if b, ok := s.cache.Get(ctx, userGenerationKey); ok {
		return string(b)
	}
	gen := uuid.NewString()
	if s.cache.Add(ctx, userGenerationKey, []byte(gen), userGenerationTTL) {
		return gen
	}
	if b, ok := s.cache.Get(ctx, userGenerationKey); ok {
		return string(b)
	}
	return ""
}

// invalidate runs after the write commits: a new generation orphans anything a
// concurrent reader is about to cache, then the old entries are dropped.
func (s *UserStore) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	s.cache.Set(ctx, userGenerationKey, []byte(uuid.NewString()), userGenerationTTL)
	s.cache.InvalidateByPrefix(ctx, userCachePrefix)
}

// userRecord is the cached form of a user; models.User hides the hashed id from JSON.
type userRecord struct {
	ID               uint      `json:"id"`
	Username         string    `json:"username"`
	HashedExternalID string    `json:"hashed_external_id"`
	AvatarURL        string    `json:"avatar_url"`
	MemberSince      time.Time `json:"member_since"`
}

func newUserRecord(u models.User) userRecord {
	return userRecord{
		ID:               u.ID,
		Username:         u.Username,
		HashedExternalID: u.HashedExternalID,
		AvatarURL:        u.AvatarURL,
		MemberSince:      u.MemberSince,
	}
}

func (r userRecord) user() *models.User {
	return &models.User{
		ID:               r.ID,
		Username:         r.Username,
		HashedExternalID: r.HashedExternalID,
		AvatarURL:        r.AvatarURL,
		MemberSince:      r.MemberSince,
	}
}
