package domain_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/healthtracker/internal/domain"
	"example.com/healthtracker/internal/persistence/memory"
)

type stubIssuer struct{}

func (stubIssuer) Issue(userID string) (string, error) { return "token-" + userID, nil }

type failingIssuer struct{}

func (failingIssuer) Issue(string) (string, error) { return "", errors.New("signer offline") }

// plainHasher stands in for bcrypt so the tests stay fast.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }
func (plainHasher) Compare(hash, password string) bool   { return hash == "hashed:"+password }

func TestRegisterAndLogin(t *testing.T) {
	identity := domain.NewIdentityService(memory.NewStore(), stubIssuer{}, plainHasher{})
	ctx := context.Background()

	session, err := identity.Register(ctx, domain.RegisterInput{
		Username: "ada", Email: " Ada@Example.com ", Password: "s3cret!", FirstName: "Ada",
	})
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", session.User.Email)
	assert.Equal(t, "token-"+session.User.ID, session.Token)
	assert.Equal(t, "hashed:s3cret!", session.User.PasswordHash)

	login, err := identity.Login(ctx, "ADA@example.com", "s3cret!")
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, login.User.ID)

	_, err = identity.Login(ctx, "ada@example.com", "wrong")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = identity.Login(ctx, "nobody@example.com", "s3cret!")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	me, err := identity.Me(ctx, session.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada", me.Username)

	_, err = identity.Me(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestRegisterRejectsDuplicatesAndBadInput(t *testing.T) {
	identity := domain.NewIdentityService(memory.NewStore(), stubIssuer{}, plainHasher{})
	ctx := context.Background()

	_, err := identity.Register(ctx, domain.RegisterInput{Username: "ada", Email: "ada@example.com", Password: "s3cret!"})
	require.NoError(t, err)

	_, err = identity.Register(ctx, domain.RegisterInput{Username: "other", Email: "ada@example.com", Password: "s3cret!"})
	assert.ErrorIs(t, err, domain.ErrDuplicateUser)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = identity.Register(ctx, domain.RegisterInput{Username: "ada", Email: "other@example.com", Password: "s3cret!"})
	assert.ErrorIs(t, err, domain.ErrDuplicateUser)

	for name, in := range map[string]domain.RegisterInput{
		"no username":    {Email: "x@example.com", Password: "s3cret!"},
		"no email":       {Username: "x", Password: "s3cret!"},
		"bad email":      {Username: "x", Email: "nope", Password: "s3cret!"},
		"short password": {Username: "x", Email: "x@example.com", Password: "123"},
	} {
		_, err := identity.Register(ctx, in)
		assert.ErrorIs(t, err, domain.ErrValidation, name)
	}
}

func TestRegisterSurfacesSignerFailure(t *testing.T) {
	identity := domain.NewIdentityService(memory.NewStore(), failingIssuer{}, plainHasher{})
	_, err := identity.Register(context.Background(), domain.RegisterInput{Username: "ada", Email: "ada@example.com", Password: "s3cret!"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrValidation))
}

func TestProfileUpdate(t *testing.T) {
	store := memory.NewStore()
	identity := domain.NewIdentityService(store, stubIssuer{}, plainHasher{})
	profiles := domain.NewProfileService(store, nil)
	ctx := context.Background()

	ada, err := identity.Register(ctx, domain.RegisterInput{Username: "ada", Email: "ada@example.com", Password: "s3cret!"})
	require.NoError(t, err)
	_, err = identity.Register(ctx, domain.RegisterInput{Username: "grace", Email: "grace@example.com", Password: "s3cret!"})
	require.NoError(t, err)

	updated, err := profiles.Update(ctx, ada.User.ID, domain.ProfileFields{
		FirstName:   ptr("Ada"),
		LastName:    ptr("Lovelace"),
		DateOfBirth: ptr("1815-12-10"),
		HeightCm:    ptr(165.0),
		WeightKg:    ptr(55.5),
		Gender:      ptr("female"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Lovelace", updated.LastName)
	require.NotNil(t, updated.DateOfBirth)
	assert.Equal(t, 1815, updated.DateOfBirth.Year())
	assert.Equal(t, "ada@example.com", updated.Email, "email is not editable")

	_, err = profiles.Update(ctx, ada.User.ID, domain.ProfileFields{Username: ptr("grace")})
	assert.ErrorIs(t, err, domain.ErrUsernameTaken)
	assert.ErrorIs(t, err, domain.ErrValidation)

	renamed, err := profiles.Update(ctx, ada.User.ID, domain.ProfileFields{Username: ptr("ada")})
	require.NoError(t, err, "keeping your own username is fine")
	assert.Equal(t, "ada", renamed.Username)

	_, err = profiles.Update(ctx, ada.User.ID, domain.ProfileFields{DateOfBirth: ptr("someday")})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = profiles.Update(ctx, ada.User.ID, domain.ProfileFields{HeightCm: ptr(-1.0)})
	assert.ErrorIs(t, err, domain.ErrValidation)

	got, err := profiles.Get(ctx, ada.User.ID)
	require.NoError(t, err)
	assert.Equal(t, 165.0, *got.HeightCm)

	_, err = profiles.Get(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
