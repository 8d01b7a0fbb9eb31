package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

const minPasswordLength = 6

// User is an account holder. PasswordHash never leaves the service boundary.
type User struct {
	ID             string
	Username       string
	Email          string
	PasswordHash   string
	FirstName      string
	LastName       string
	ProfilePicture string
	DateOfBirth    *time.Time
	Gender         string
	HeightCm       *float64
	WeightKg       *float64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// UserRepository captures persistence operations for users.
// CreateUser and UpdateUser report ErrDuplicateUser or ErrUsernameTaken on unique violations.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, userID string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UsernameTaken(ctx context.Context, username, exceptUserID string) (bool, error)
	UpdateUser(ctx context.Context, user User) error
}

// TokenIssuer signs identity tokens for a user id.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

// RegisterInput is the registration payload.
type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Session is an authenticated user with a freshly issued token.
type Session struct {
	User  User
	Token string
}

// IdentityService registers and authenticates users.
type IdentityService struct {
	users  UserRepository
	tokens TokenIssuer
	hasher PasswordHasher
	now    func() time.Time
}

// NewIdentityService constructs an IdentityService.
func NewIdentityService(users UserRepository, tokens TokenIssuer, hasher PasswordHasher) *IdentityService {
	return &IdentityService{users: users, tokens: tokens, hasher: hasher, now: time.Now}
}

// WithClock overrides the IdentityService's notion of now.
func (s *IdentityService) WithClock(now func() time.Time) *IdentityService {
	s.now = now
	return s
}

// Register creates a user and returns a session. Email or username reuse fails validation.
func (s *IdentityService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	username := strings.TrimSpace(in.Username)
	email := normaliseEmail(in.Email)
	switch {
	case username == "":
		return nil, invalidf("username is required")
	case email == "":
		return nil, invalidf("email is required")
	case !strings.Contains(email, "@"):
		return nil, invalidf("email is invalid")
	case len(in.Password) < minPasswordLength:
		return nil, invalidf("password must be at least %d characters", minPasswordLength)
	}

	existing, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateUser
	}
	taken, err := s.users.UsernameTaken(ctx, username, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrDuplicateUser
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	user := User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return s.session(user)
}

// Login authenticates by email and password.
func (s *IdentityService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.GetUserByEmail(ctx, normaliseEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil || !s.hasher.Compare(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return s.session(*user)
}

// Me returns the authenticated user.
func (s *IdentityService) Me(ctx context.Context, userID string) (*User, error) {
	return getUser(ctx, s.users, userID)
}

func (s *IdentityService) session(user User) (*Session, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &Session{User: user, Token: token}, nil
}

// ProfileFields are the user-editable profile attributes; nil means unchanged.
type ProfileFields struct {
	Username       *string
	FirstName      *string
	LastName       *string
	ProfilePicture *string
	DateOfBirth    *string
	Gender         *string
	HeightCm       *float64
	WeightKg       *float64
}

// ProfileService reads and edits the caller's own profile.
type ProfileService struct {
	users UserRepository
	loc   *time.Location
	now   func() time.Time
}

// NewProfileService constructs a ProfileService.
func NewProfileService(users UserRepository, loc *time.Location) *ProfileService {
	if loc == nil {
		loc = time.Local
	}
	return &ProfileService{users: users, loc: loc, now: time.Now}
}

// WithClock overrides the ProfileService's notion of now.
func (s *ProfileService) WithClock(now func() time.Time) *ProfileService {
	s.now = now
	return s
}

func (s *ProfileService) Get(ctx context.Context, userID string) (*User, error) {
	return getUser(ctx, s.users, userID)
}

// Update applies the allowed profile fields. A username held by another user fails validation.
func (s *ProfileService) Update(ctx context.Context, userID string, f ProfileFields) (*User, error) {
	user, err := getUser(ctx, s.users, userID)
	if err != nil {
		return nil, err
	}

	if f.Username != nil {
		username := strings.TrimSpace(*f.Username)
		if username == "" {
			return nil, invalidf("username cannot be empty")
		}
		taken, err := s.users.UsernameTaken(ctx, username, userID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrUsernameTaken
		}
		user.Username = username
	}
	if f.DateOfBirth != nil {
		if strings.TrimSpace(*f.DateOfBirth) == "" {
			user.DateOfBirth = nil
		} else {
			dob, err := parseTimestamp(*f.DateOfBirth, s.loc)
			if err != nil {
				return nil, invalidf("dateOfBirth must be a valid date")
			}
			dob = dob.UTC()
			user.DateOfBirth = &dob
		}
	}
	if f.HeightCm != nil {
		if *f.HeightCm < 0 {
			return nil, invalidf("heightCm must be non-negative")
		}
		user.HeightCm = f.HeightCm
	}
	if f.WeightKg != nil {
		if *f.WeightKg < 0 {
			return nil, invalidf("weightKg must be non-negative")
		}
		user.WeightKg = f.WeightKg
	}
	setTrimmed(&user.FirstName, f.FirstName)
	setTrimmed(&user.LastName, f.LastName)
	setTrimmed(&user.ProfilePicture, f.ProfilePicture)
	setTrimmed(&user.Gender, f.Gender)
	user.UpdatedAt = s.now().UTC()

	if err := s.users.UpdateUser(ctx, *user); err != nil {
		return nil, err
	}
	return user, nil
}

func getUser(ctx context.Context, users UserRepository, userID string) (*User, error) {
	user, err := users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func setTrimmed(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
