package auth

import (
	"context"
	"regexp"
	"time"
	"unicode/utf8"
)

// Argon2id input is salted and unbounded inputs invite abuse, so cap
// the password well below anything a human would type.
const maxPasswordRunes = 128

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

type service struct {
	userRepo       UserRepo
	passwordHasher PasswordHasher
	tokenManager   TokenManager
	now            func() time.Time
}

func NewService(userRepo UserRepo, passwordHasher PasswordHasher, tokenManager TokenManager) *service {
	return &service{
		userRepo:       userRepo,
		passwordHasher: passwordHasher,
		tokenManager:   tokenManager,
		now:            time.Now,
	}
}

func (as *service) Signup(ctx context.Context, email, password string) (string, error) {
	if !emailPattern.MatchString(email) {
		return "", ErrInvalidEmailFormat
	}

	length := utf8.RuneCountInString(password)
	if length < 8 {
		return "", ErrWeakPassword
	}
	if length > maxPasswordRunes {
		return "", ErrPasswordTooLong
	}

	passwordHash, err := as.passwordHasher.Hash(password)
	if err != nil {
		return "", err
	}

	id, err := as.userRepo.CreateUser(ctx, email, passwordHash)
	if err != nil {
		return "", err
	}

	return as.tokenManager.Generate(id, as.now())
}

func (as *service) Login(ctx context.Context, email, password string) (string, error) {
	user, err := as.userRepo.GetUserByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	match, err := as.passwordHasher.Compare(user.PasswordHash, password)
	if err != nil {
		return "", err
	}
	if !match {
		return "", ErrIncorrectPassword
	}

	return as.tokenManager.Generate(user.Id, as.now())
}

// VerifyToken returns the user id carried by a valid token.
func (as *service) VerifyToken(token string) (string, error) {
	return as.tokenManager.Verify(token)
}

func (as *service) GenerateToken(id string) (string, error) {
	return as.tokenManager.Generate(id, as.now())
}
