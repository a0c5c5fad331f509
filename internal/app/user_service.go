package app

import (
	"context"
	"errors"
	"time"

	"company-quiz-service/internal/auth"
	"company-quiz-service/internal/domain"
)

// UserService owns accounts, token login and the notification inbox.
type UserService struct {
	store  Store
	tokens *auth.Tokens
	now    func() time.Time
}

func NewUserService(store Store, tokens *auth.Tokens) *UserService {
	return &UserService{store: store, tokens: tokens, now: time.Now}
}

func (s *UserService) Create(ctx context.Context, in UserInput) (domain.User, error) {
	if in.Password == "" {
		return domain.User{}, &domain.ValidationError{Fields: map[string]string{"password": "this field is required"}}
	}
	if _, err := s.store.Users().GetByUsername(ctx, in.Username); err == nil {
		return domain.User{}, domain.ErrUsernameTaken
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return domain.User{}, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return domain.User{}, err
	}
	now := s.now()
	user := domain.User{
		Username:     in.Username,
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Users().Create(ctx, &user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (s *UserService) Get(ctx context.Context, id int64) (domain.User, error) {
	return s.store.Users().Get(ctx, id)
}

func (s *UserService) List(ctx context.Context, page domain.Page) ([]domain.User, int, error) {
	return s.store.Users().List(ctx, page)
}

// Update rewrites the profile of the acting user. An empty password keeps the old one.
func (s *UserService) Update(ctx context.Context, actorID, id int64, in UserInput) (domain.User, error) {
	if actorID != id {
		return domain.User{}, domain.ErrForbidden
	}
	user, err := s.store.Users().Get(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	if in.Username != user.Username {
		if _, err := s.store.Users().GetByUsername(ctx, in.Username); err == nil {
			return domain.User{}, domain.ErrUsernameTaken
		} else if !errors.Is(err, domain.ErrUserNotFound) {
			return domain.User{}, err
		}
	}
	user.Username = in.Username
	user.Email = in.Email
	user.FirstName = in.FirstName
	user.LastName = in.LastName
	if in.Password != "" {
		if user.PasswordHash, err = auth.HashPassword(in.Password); err != nil {
			return domain.User{}, err
		}
	}
	user.UpdatedAt = s.now()
	if err := s.store.Users().Update(ctx, &user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

func (s *UserService) Delete(ctx context.Context, actorID, id int64) error {
	if actorID != id {
		return domain.ErrForbidden
	}
	if _, err := s.store.Users().Get(ctx, id); err != nil {
		return err
	}
	return s.store.Users().Delete(ctx, id)
}

// Login exchanges credentials for a bearer token.
func (s *UserService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.store.Users().GetByUsername(ctx, username)
	if errors.Is(err, domain.ErrUserNotFound) {
		return "", domain.ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return "", domain.ErrInvalidCredentials
	}
	return s.tokens.Issue(user.ID)
}

// Notifications returns the user's inbox, newest first, and marks it read.
// The returned items keep the status they had before the call.
func (s *UserService) Notifications(ctx context.Context, actorID, id int64) ([]domain.Notification, error) {
	if actorID != id {
		return nil, domain.ErrForbidden
	}
	items, err := s.store.Notifications().ListByUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.store.Notifications().MarkAllRead(ctx, id); err != nil {
		return nil, err
	}
	return items, nil
}
