package auth

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"log/slog"
	"prism/entity"
	"prism/internal/database/memstore"
	"testing"
	"time"
)

func newService(t *testing.T) (*Service, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	s := NewAuthService(slog.New(slog.NewTextHandler(io.Discard, nil)), "test-secret", time.Hour)
	s.SetRepository(store)
	return s, store
}

func TestIssueAndAuthenticate(t *testing.T) {
	s, _ := newService(t)
	user := entity.UserAuth{UserID: "user-1", Role: entity.RoleClient, AgencyID: "agency-1", ClientID: "client-1"}

	token, expires, err := s.IssueToken(user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, time.Minute)

	got, err := s.AuthenticateByToken(token)
	require.NoError(t, err)
	assert.Equal(t, user, *got)
}

func TestAuthenticate_Rejects(t *testing.T) {
	s, _ := newService(t)
	token, _, err := s.IssueToken(entity.UserAuth{UserID: "aopr-1", Role: entity.RoleAopr, AgencyID: "agency-1"})
	require.NoError(t, err)

	other := NewAuthService(slog.New(slog.NewTextHandler(io.Discard, nil)), "other-secret", time.Hour)
	_, err = other.AuthenticateByToken(token)
	assert.Error(t, err, "signature from another secret")

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = s.AuthenticateByToken(token)
	assert.Error(t, err, "expired")

	_, err = s.AuthenticateByToken("")
	assert.Error(t, err)
	_, err = s.AuthenticateByToken("unknown-key")
	assert.Error(t, err)
}

func TestIssueToken_ChecksIdentity(t *testing.T) {
	s, _ := newService(t)
	cases := []entity.UserAuth{
		{Role: entity.RoleAopr, AgencyID: "agency-1"},
		{UserID: "u", Role: entity.RoleClient, AgencyID: "agency-1"},
		{UserID: "u", Role: entity.RoleAdmin},
		{UserID: "u", Role: "owner", AgencyID: "agency-1"},
	}
	for _, user := range cases {
		_, _, err := s.IssueToken(user)
		assert.ErrorIs(t, err, entity.ErrInvalidInput, "%+v", user)
	}
}

func TestAuthenticate_Keys(t *testing.T) {
	s, store := newService(t)
	s.SetMasterKey("master-key-123456")

	got, err := s.AuthenticateByToken("master-key-123456")
	require.NoError(t, err)
	assert.Equal(t, entity.RoleService, got.Role)

	key, err := store.GenerateApiKey("crm-sync")
	require.NoError(t, err)
	got, err = s.ValidateToken(key)
	require.NoError(t, err)
	assert.Equal(t, "crm-sync", got.Username)
	assert.Equal(t, entity.RoleService, got.Role)
	assert.True(t, got.CanSeeAgency("any-agency"))
}
