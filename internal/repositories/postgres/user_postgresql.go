package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/medscan/radiology-service/internal/cache"
	"github.com/medscan/radiology-service/internal/models"
	"github.com/medscan/radiology-service/internal/repositories"
)

type UserPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewUserPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.UserRepository {
	return &UserPostgreSQL{db: db, cacheManager: cacheManager}
}

func (u *UserPostgreSQL) Create(ctx context.Context, user *models.User) error {
	if err := u.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID with caching; auth middleware calls
// this on every request.
func (u *UserPostgreSQL) GetByID(ctx context.Context, id string) (*models.User, error) {
	cacheKey := fmt.Sprintf("id:%s", id)
	var user models.User

	err := u.cacheManager.User.CacheOrExecute(ctx, cacheKey, &user, cache.UserCacheConfig.TTL, func() (interface{}, error) {
		var dbUser models.User
		if err := u.db.WithContext(ctx).First(&dbUser, "id = ?", id).Error; err != nil {
			return nil, err
		}
		return &dbUser, nil
	})
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (u *UserPostgreSQL) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := u.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (u *UserPostgreSQL) Update(ctx context.Context, user *models.User) error {
	if err := u.db.WithContext(ctx).Save(user).Error; err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	cache.SafeDelete(ctx, u.cacheManager.User, fmt.Sprintf("id:%s", user.ID))
	return nil
}

func (u *UserPostgreSQL) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	if err := u.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}
	return count > 0, nil
}

type PatientPostgreSQL struct {
	db *gorm.DB
}

func NewPatientPostgreSQL(db *gorm.DB) repositories.PatientRepository {
	return &PatientPostgreSQL{db: db}
}

func (p *PatientPostgreSQL) Create(ctx context.Context, patient *models.Patient) error {
	if err := p.db.WithContext(ctx).Create(patient).Error; err != nil {
		return fmt.Errorf("failed to create patient profile: %w", err)
	}
	return nil
}

func (p *PatientPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Patient, error) {
	var patient models.Patient
	if err := p.db.WithContext(ctx).Preload("User").First(&patient, id).Error; err != nil {
		return nil, err
	}
	return &patient, nil
}

func (p *PatientPostgreSQL) GetByUserID(ctx context.Context, userID string) (*models.Patient, error) {
	var patient models.Patient
	if err := p.db.WithContext(ctx).Preload("User").First(&patient, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &patient, nil
}

func (p *PatientPostgreSQL) GetOrCreateByUserID(ctx context.Context, userID string) (*models.Patient, error) {
	var patient models.Patient
	err := p.db.WithContext(ctx).
		Where(models.Patient{UserID: userID}).
		Attrs(models.Patient{Symptoms: models.SymptomOthers, Lifestyle: models.LifestyleOthers}).
		FirstOrCreate(&patient).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get or create patient profile: %w", err)
	}
	return &patient, nil
}

func (p *PatientPostgreSQL) Update(ctx context.Context, patient *models.Patient) error {
	if err := p.db.WithContext(ctx).Save(patient).Error; err != nil {
		return fmt.Errorf("failed to update patient profile: %w", err)
	}
	return nil
}

// Delete removes the patient profile; the database cascades to the
// patient's scans and, through them, to their reports.
func (p *PatientPostgreSQL) Delete(ctx context.Context, id uint) error {
	if err := p.db.WithContext(ctx).Delete(&models.Patient{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete patient profile: %w", err)
	}
	return nil
}

type RadiologistPostgreSQL struct {
	db *gorm.DB
}

func NewRadiologistPostgreSQL(db *gorm.DB) repositories.RadiologistRepository {
	return &RadiologistPostgreSQL{db: db}
}

func (r *RadiologistPostgreSQL) Create(ctx context.Context, radiologist *models.Radiologist) error {
	if err := r.db.WithContext(ctx).Create(radiologist).Error; err != nil {
		return fmt.Errorf("failed to create radiologist profile: %w", err)
	}
	return nil
}

func (r *RadiologistPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Radiologist, error) {
	var radiologist models.Radiologist
	if err := r.db.WithContext(ctx).Preload("User").First(&radiologist, id).Error; err != nil {
		return nil, err
	}
	return &radiologist, nil
}

func (r *RadiologistPostgreSQL) GetByUserID(ctx context.Context, userID string) (*models.Radiologist, error) {
	var radiologist models.Radiologist
	if err := r.db.WithContext(ctx).Preload("User").First(&radiologist, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &radiologist, nil
}

// Delete removes the radiologist profile; report authorship is set to
// NULL by the foreign key, reports themselves survive.
func (r *RadiologistPostgreSQL) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.Radiologist{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete radiologist profile: %w", err)
	}
	return nil
}
