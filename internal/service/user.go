package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"clipfeed/internal/logger"
	"clipfeed/internal/media"
	"clipfeed/internal/model"
	"clipfeed/internal/repository"
	"clipfeed/internal/validation"
)

// UserService handles business logic for user operations
type UserService struct {
	repo  repository.UserRepository
	files media.Store
	log   *zap.Logger
	now   func() time.Time
}

func NewUserService(repo repository.UserRepository, files media.Store) *UserService {
	return &UserService{
		repo:  repo,
		files: files,
		log:   logger.Named("users"),
		now:   time.Now,
	}
}

// Signup creates a new account. Usernames are unique regardless of case.
func (s *UserService) Signup(ctx context.Context, req *model.SignupRequest) (*model.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if exists {
		return nil, model.ErrUsernameExists
	}

	exists, err = s.repo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, model.ErrEmailExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:            primitive.NewObjectID(),
		Username:      req.Username,
		Name:          req.Name,
		Email:         req.Email,
		Password:      string(hashedPassword),
		Bio:           model.DefaultBio,
		ProfilePhoto:  model.NoProfilePhoto,
		Following:     []primitive.ObjectID{},
		Followers:     []primitive.ObjectID{},
		Videos:        model.UserVideos{Uploaded: []primitive.ObjectID{}, Liked: []primitive.ObjectID{}},
		InterestedIn:  []string{},
		Notifications: []model.Notification{},
		CreatedAt:     s.now(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info("user signed up", logger.WithUserID(user.ID.Hex()), zap.String("username", user.Username))
	return user, nil
}

// Login authenticates a user with username and password.
func (s *UserService) Login(ctx context.Context, req *model.LoginRequest) (*model.User, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	user, err := s.repo.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		// Don't reveal whether username exists or not
		return nil, model.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, model.ErrInvalidCredentials
	}

	return user, nil
}

// GetByID retrieves a user by ID.
func (s *UserService) GetByID(ctx context.Context, id primitive.ObjectID) (*model.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.repo.GetByUsername(ctx, username)
}

// Summary is the compact display form of a user.
func (s *UserService) Summary(user *model.User) *model.UserSummary {
	summary := toSummary(user, s.files)
	return &summary
}

// GetProfile loads the public profile of username. IsFollowing is set only
// for a signed-in viewer looking at someone else.
func (s *UserService) GetProfile(ctx context.Context, username string, viewerID *primitive.ObjectID) (*model.Profile, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	profile := &model.Profile{
		UserSummary:    toSummary(user, s.files),
		Bio:            user.Bio,
		FollowingCount: len(user.Following),
		UploadCount:    len(user.Videos.Uploaded),
		LikedCount:     len(user.Videos.Liked),
		CreatedAt:      user.CreatedAt,
	}

	if viewerID != nil && *viewerID != user.ID {
		profile.IsFollowing = containsID(user.Followers, *viewerID)
	}
	return profile, nil
}

// UpdateProfile edits the caller's own profile. A new photo is stored
// before the document changes; if the update then fails the new file is
// removed, and once it succeeds the previous photo is removed.
func (s *UserService) UpdateProfile(ctx context.Context, actorID primitive.ObjectID, username string, update model.ProfileUpdate, photo *media.Upload) (*model.Profile, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user.ID != actorID {
		return nil, model.ErrNotProfileOwner
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		update.Name = &name
	}
	if err := validation.Struct(update); err != nil {
		return nil, err
	}

	var newKey string
	if photo != nil {
		newKey, err = s.files.StorePhoto(ctx, photo)
		if err != nil {
			s.log.Error("store profile photo failed", logger.WithUserID(actorID.Hex()), zap.Error(err))
			return nil, model.ErrPhotoUpload
		}
		update.ProfilePhoto = &newKey
	}

	if update.IsEmpty() {
		return s.GetProfile(ctx, username, &actorID)
	}

	if err := s.repo.UpdateProfile(ctx, actorID, update); err != nil {
		if newKey != "" {
			s.discardFile(ctx, newKey)
		}
		return nil, err
	}

	if newKey != "" && user.HasProfilePhoto() {
		s.discardFile(ctx, user.ProfilePhoto)
	}

	return s.GetProfile(ctx, username, &actorID)
}

func (s *UserService) discardFile(ctx context.Context, key string) {
	if err := s.files.Delete(ctx, key); err != nil {
		s.log.Warn("delete media failed", zap.String("key", key), zap.Error(err))
	}
}
