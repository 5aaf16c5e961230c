package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/medscan/radiology-service/internal/models"
	"github.com/medscan/radiology-service/internal/repositories"
	"github.com/medscan/radiology-service/internal/utils"
	"github.com/medscan/radiology-service/internal/validator"
)

type userService struct {
	repo      repositories.Repository
	logger    utils.Logger
	validator *validator.Validator
}

func NewUserService(repo repositories.Repository, logger utils.Logger, validator *validator.Validator) UserService {
	return &userService{
		repo:      repo,
		logger:    logger,
		validator: validator,
	}
}

// Register creates the user row and the role profile inside one
// transaction, so a user can never exist without the profile their
// role implies.
func (s *userService) Register(ctx context.Context, userID string, req *RegisterRequest) (*UserResponse, error) {
	s.logger.Info("registering user", "email", req.Email, "role", req.Role)

	if errs := s.validator.GetBusinessValidator().ValidateRegister(req); len(errs) > 0 {
		return nil, errs
	}

	exists, err := s.repo.User().ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if exists {
		return nil, ErrUserAlreadyExists
	}

	if userID == "" {
		userID = uuid.New().String()
	}

	user := &models.User{
		ID:       userID,
		FullName: req.FullName,
		Email:    req.Email,
		Role:     req.Role,
		Age:      req.Age,
		IsActive: true,
		IsStaff:  req.Role == models.RoleAdmin,
	}
	if req.Gender != nil {
		user.Gender = *req.Gender
	}

	err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		if err := txRepo.User().Create(ctx, user); err != nil {
			return err
		}

		switch req.Role {
		case models.RolePatient:
			return txRepo.Patient().Create(ctx, s.buildPatientProfile(userID, req))
		case models.RoleRadiologist:
			return txRepo.Radiologist().Create(ctx, &models.Radiologist{
				UserID:    userID,
				LicenseID: *req.LicenseID,
				Hospital:  stringValue(req.Hospital),
			})
		case models.RoleAdmin:
			return nil
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	s.logger.Info("user registered", "user_id", userID, "role", req.Role)

	return s.GetProfile(ctx, userID)
}

func (s *userService) GetProfile(ctx context.Context, userID string) (*UserResponse, error) {
	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	resp := &UserResponse{User: user}

	switch user.Role {
	case models.RolePatient:
		// Idempotent: older PATIENT rows without a profile get one here.
		patient, err := s.repo.Patient().GetOrCreateByUserID(ctx, userID)
		if err != nil {
			return nil, err
		}
		resp.Patient = patient
	case models.RoleRadiologist:
		radiologist, err := s.repo.Radiologist().GetByUserID(ctx, userID)
		if err != nil && !repositories.IsNotFoundError(err) {
			return nil, err
		}
		resp.Radiologist = radiologist
	}

	return resp, nil
}

func (s *userService) buildPatientProfile(userID string, req *RegisterRequest) *models.Patient {
	patient := &models.Patient{
		UserID:    userID,
		Symptoms:  models.SymptomOthers,
		Lifestyle: models.LifestyleOthers,
	}

	patient.PreviousBreastDisease = stringValue(req.PreviousBreastDisease)
	patient.FamilyBreastCancer = stringValue(req.FamilyBreastCancer)
	patient.HormonalTherapy = stringValue(req.HormonalTherapy)
	if req.Symptoms != nil {
		patient.Symptoms = *req.Symptoms
	}
	if req.Lifestyle != nil {
		patient.Lifestyle = *req.Lifestyle
	}

	return patient
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
