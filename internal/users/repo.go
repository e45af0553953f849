package users

import (
	"context"
	"time"

	"github.com/angelmondragon/gemvault-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists admin-managed accounts.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, dto CreateUserDTO) (*models.User, error) {
	user := dto.ToModel()
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// List orders by name, then email for users sharing a name.
func (r *Repository) List(ctx context.Context) ([]models.User, error) {
	var out []models.User
	err := r.db.WithContext(ctx).Order("name ASC, email ASC").Find(&out).Error
	return out, err
}

// FindByEmail expects an already normalized address.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, columns map[string]any) error {
	return r.byID(ctx, id).Updates(columns).Error
}

// UpdateLastLogin skips hooks so updated_at reflects profile edits only.
func (r *Repository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.byID(ctx, id).UpdateColumn("last_login_at", at).Error
}

func (r *Repository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return r.byID(ctx, id).UpdateColumn("password_hash", hash).Error
}

// Delete removes the account and clears it as author of the ledger rows and
// groups it recorded, in one transaction.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, authored := range []any{&models.InventoryTransaction{}, &models.InventoryTransactionGroup{}} {
			if err := tx.Model(authored).Where("user_id = ?", id).UpdateColumn("user_id", nil).Error; err != nil {
				return err
			}
		}
		res := tx.Delete(&models.User{}, "id = ?", id)
		switch {
		case res.Error != nil:
			return res.Error
		case res.RowsAffected == 0:
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *Repository) first(ctx context.Context, query string, arg any) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where(query, arg).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *Repository) byID(ctx context.Context, id uuid.UUID) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id)
}
