package auth

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bgfactura/invoicing/internal/app/storage/memory"
	"github.com/bgfactura/invoicing/internal/cache"
	apperrors "github.com/bgfactura/invoicing/internal/errors"
	"github.com/bgfactura/invoicing/internal/logging"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	svc := New(store, store, cache.NewMemory(time.Minute), Config{Secret: testSecret, BcryptCost: 4}, logging.NewDiscard())
	return svc, store
}

func register(t *testing.T, svc *Service) Session {
	t.Helper()
	sess, err := svc.Register(context.Background(), RegisterInput{
		Email:     "Ivan@Example.BG ",
		Password:  "secret1",
		FirstName: "Ivan",
		LastName:  "Petrov",
		Company:   &CompanyInput{Name: "Alfa OOD", EIK: "831641791", Address: "ul. Vitosha 1", City: "Sofia"},
	})
	require.NoError(t, err)
	return sess
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newService(t)
	sess := register(t, svc)

	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, "ivan@example.bg", sess.User.Email)
	require.NotNil(t, sess.Company)
	assert.Equal(t, sess.User.ID, sess.Company.UserID)
	assert.NotEqual(t, "secret1", sess.User.PasswordHash)

	login, err := svc.Login(context.Background(), LoginInput{Email: "ivan@example.bg", Password: "secret1"})
	require.NoError(t, err)
	require.NotNil(t, login.Company)
	assert.Equal(t, sess.Company.ID, login.Company.ID)

	claims, err := svc.ParseToken(login.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, claims.UserID)
	assert.Equal(t, issuer, claims.Issuer)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newService(t)
	register(t, svc)

	_, err := svc.Register(context.Background(), RegisterInput{
		Email: "ivan@example.bg", Password: "secret1", FirstName: "I", LastName: "P",
	})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, apperrors.HTTPStatus(err))
	assert.Equal(t, "User with this email already exists", err.Error())
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Register(context.Background(), RegisterInput{
		Email: "not-an-email", Password: "123", FirstName: "I",
		Company: &CompanyInput{Name: "X", EIK: "123"},
	})
	se := apperrors.GetServiceError(err)
	require.NotNil(t, se)
	assert.Equal(t, apperrors.CodeValidation, se.Code)
	assert.Contains(t, se.Details, "email")
	assert.Contains(t, se.Details, "password")
	assert.Contains(t, se.Details, "lastName")
	assert.Contains(t, se.Details, "company.eik")
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, store := newService(t)
	sess := register(t, svc)
	ctx := context.Background()

	_, err := svc.Login(ctx, LoginInput{Email: "ivan@example.bg", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, apperrors.HTTPStatus(err))

	_, err = svc.Login(ctx, LoginInput{Email: "nobody@example.bg", Password: "secret1"})
	assert.Equal(t, http.StatusUnauthorized, apperrors.HTTPStatus(err))

	usr := sess.User
	usr.IsActive = false
	_, err = store.UpdateUser(ctx, usr)
	require.NoError(t, err)
	_, err = svc.Login(ctx, LoginInput{Email: "ivan@example.bg", Password: "secret1"})
	assert.Equal(t, http.StatusUnauthorized, apperrors.HTTPStatus(err))
}

func TestAuthenticateUsesCache(t *testing.T) {
	svc, store := newService(t)
	sess := register(t, svc)
	ctx := context.Background()

	scope, err := svc.Authenticate(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, scope.UserID)
	assert.Equal(t, sess.Company.ID, scope.CompanyID)

	// Deactivation is not seen until the cached scope is dropped.
	usr := sess.User
	usr.IsActive = false
	_, err = store.UpdateUser(ctx, usr)
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, sess.Token)
	require.NoError(t, err)

	// A profile update drops the cached scope.
	first := "Petar"
	_, err = svc.UpdateProfile(ctx, usr.ID, UpdateProfileInput{FirstName: &first})
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, sess.Token)
	assert.Equal(t, http.StatusUnauthorized, apperrors.HTTPStatus(err))
}

func TestParseTokenRejectsExpiredAndForeignTokens(t *testing.T) {
	svc, _ := newService(t)
	sess := register(t, svc)

	svc.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
	_, err := svc.ParseToken(sess.Token)
	se := apperrors.GetServiceError(err)
	require.NotNil(t, se)
	assert.Equal(t, apperrors.CodeInvalidToken, se.Code)
	svc.now = time.Now

	other := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: sess.User.ID})
	forged, err := other.SignedString([]byte("another-secret-another-secret!!"))
	require.NoError(t, err)
	_, err = svc.ParseToken(forged)
	assert.Error(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: sess.User.ID})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.ParseToken(unsigned)
	assert.Error(t, err)
}

func TestUpdateProfile(t *testing.T) {
	svc, _ := newService(t)
	sess := register(t, svc)
	ctx := context.Background()

	first := "Georgi"
	city := "Plovdiv"
	profile, err := svc.UpdateProfile(ctx, sess.User.ID, UpdateProfileInput{
		FirstName: &first,
		Company:   &CompanyPatch{City: &city},
	})
	require.NoError(t, err)
	assert.Equal(t, "Georgi", profile.User.FirstName)
	assert.Equal(t, "Petrov", profile.User.LastName)
	require.NotNil(t, profile.Company)
	assert.Equal(t, "Plovdiv", profile.Company.City)
	assert.Equal(t, "Alfa OOD", profile.Company.Name)

	// The password still works after the update.
	_, err = svc.Login(ctx, LoginInput{Email: "ivan@example.bg", Password: "secret1"})
	require.NoError(t, err)

	empty := ""
	_, err = svc.UpdateProfile(ctx, sess.User.ID, UpdateProfileInput{LastName: &empty})
	assert.Equal(t, http.StatusBadRequest, apperrors.HTTPStatus(err))

	badEIK := "12"
	_, err = svc.UpdateProfile(ctx, sess.User.ID, UpdateProfileInput{Company: &CompanyPatch{EIK: &badEIK}})
	se := apperrors.GetServiceError(err)
	require.NotNil(t, se)
	assert.Contains(t, se.Details, "company.eik")
}
