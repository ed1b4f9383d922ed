package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"notesapi/internal/auth"
	"notesapi/internal/db"
	apperrors "notesapi/internal/errors"
	"notesapi/internal/events"
	"notesapi/internal/logging"
	"notesapi/internal/model"
	"notesapi/internal/repository"
)

type noteFixture struct {
	db       *gorm.DB
	users    UserService
	auth     AuthService
	notes    NoteService
	verifier *auth.Verifier
	events   *events.Recorder
}

func newNoteFixture(t *testing.T) *noteFixture {
	t.Helper()
	gormDB, err := db.NewSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gormDB))

	passwords := testPasswords(t)
	recorder := &events.Recorder{}
	logger := logging.Discard()
	jwtService := auth.NewJWTService("test-secret", time.Hour)
	userRepo := repository.NewUserRepository(gormDB)

	return &noteFixture{
		db:       gormDB,
		users:    NewUserService(userRepo, passwords, nil, recorder, logger),
		auth:     NewAuthService(userRepo, passwords, jwtService, auth.NewTokenStore(nil), logger),
		notes:    NewNoteService(repository.NewNoteRepository(gormDB), nil, recorder, logger, DefaultNoteMinLength),
		verifier: auth.NewVerifier(jwtService, nil),
		events:   recorder,
	}
}

// identityFor registers and logs in a user, returning the verified identity.
func (f *noteFixture) identityFor(t *testing.T, username string) *auth.Identity {
	t.Helper()
	ctx := context.Background()
	_, err := f.users.Register(ctx, username, strings.ToUpper(username), "password123")
	require.NoError(t, err)
	result, err := f.auth.Login(ctx, username, "password123")
	require.NoError(t, err)
	identity, err := f.verifier.Verify(ctx, result.Token)
	require.NoError(t, err)
	return identity
}

func TestNoteService_CreateAndList(t *testing.T) {
	ctx := context.Background()
	f := newNoteFixture(t)
	alice := f.identityFor(t, "alice")

	created, err := f.notes.Create(ctx, alice, "HTML is easy", true)
	require.NoError(t, err)
	assert.Equal(t, alice.UserID, created.UserID)
	require.NotNil(t, created.User)
	assert.Equal(t, "alice", created.User.Username)

	all, err := f.notes.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "HTML is easy", all[0].Content)
	assert.True(t, all[0].Important)

	owner, err := f.users.GetUser(ctx, alice.UserID)
	require.NoError(t, err)
	require.Len(t, owner.Notes, 1)
	assert.Equal(t, created.ID, owner.Notes[0].ID)

	assert.Equal(t, []string{events.TypeUserRegistered, events.TypeNoteCreated}, f.events.Types())
}

func TestNoteService_CreateValidation(t *testing.T) {
	ctx := context.Background()
	f := newNoteFixture(t)
	alice := f.identityFor(t, "alice")

	for _, content := range []string{"", "    ", "abcd"} {
		_, err := f.notes.Create(ctx, alice, content, false)
		assert.ErrorIs(t, err, apperrors.ErrValidation, "content %q", content)
	}

	all, err := f.notes.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	_, err = f.notes.Create(ctx, alice, "abcde", false)
	assert.NoError(t, err)
}

func TestNoteService_CreateForVanishedUser(t *testing.T) {
	f := newNoteFixture(t)
	ghost := &auth.Identity{UserID: uuid.New(), Username: "ghost"}

	_, err := f.notes.Create(context.Background(), ghost, "nobody owns this", false)
	assert.ErrorIs(t, err, apperrors.ErrTokenInvalid)
}

func TestNoteService_OwnershipEnforced(t *testing.T) {
	ctx := context.Background()
	f := newNoteFixture(t)
	alice := f.identityFor(t, "alice")
	bob := f.identityFor(t, "bobby")

	note, err := f.notes.Create(ctx, alice, "alice wrote this", false)
	require.NoError(t, err)

	_, err = f.notes.Update(ctx, bob, note.ID, NoteUpdate{Content: "bob was here", Important: true})
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	err = f.notes.Delete(ctx, bob, note.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	unchanged, err := f.notes.Get(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice wrote this", unchanged.Content)
	assert.False(t, unchanged.Important)
}

func TestNoteService_Update(t *testing.T) {
	ctx := context.Background()
	f := newNoteFixture(t)
	alice := f.identityFor(t, "alice")

	note, err := f.notes.Create(ctx, alice, "first draft", true)
	require.NoError(t, err)

	updated, err := f.notes.Update(ctx, alice, note.ID, NoteUpdate{Content: "second draft", Important: false})
	require.NoError(t, err)
	assert.Equal(t, "second draft", updated.Content)
	assert.False(t, updated.Important)

	reloaded, err := f.notes.Get(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, "second draft", reloaded.Content)
	assert.False(t, reloaded.Important)

	_, err = f.notes.Update(ctx, alice, note.ID, NoteUpdate{Content: "no"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.notes.Update(ctx, alice, uuid.New(), NoteUpdate{Content: "does not matter"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestNoteService_DeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newNoteFixture(t)
	alice := f.identityFor(t, "alice")

	note, err := f.notes.Create(ctx, alice, "short lived note", false)
	require.NoError(t, err)

	require.NoError(t, f.notes.Delete(ctx, alice, note.ID))
	require.NoError(t, f.notes.Delete(ctx, alice, note.ID))
	require.NoError(t, f.notes.Delete(ctx, alice, uuid.New()))

	_, err = f.notes.Get(ctx, note.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	deletes := 0
	for _, typ := range f.events.Types() {
		if typ == events.TypeNoteDeleted {
			deletes++
		}
	}
	assert.Equal(t, 1, deletes)
}

func TestNoteService_RequiresIdentity(t *testing.T) {
	ctx := context.Background()
	f := newNoteFixture(t)

	_, err := f.notes.Create(ctx, nil, "anonymous note", false)
	assert.ErrorIs(t, err, apperrors.ErrTokenMissing)
	_, err = f.notes.Update(ctx, nil, uuid.New(), NoteUpdate{Content: "anonymous"})
	assert.ErrorIs(t, err, apperrors.ErrTokenMissing)
	assert.ErrorIs(t, f.notes.Delete(ctx, nil, uuid.New()), apperrors.ErrTokenMissing)
}

func TestRegisterThenLogin(t *testing.T) {
	ctx := context.Background()
	f := newNoteFixture(t)

	for _, username := range []string{"kcmaxwell", "mluukkai", "root", "hellas"} {
		_, err := f.users.Register(ctx, username, "Some Name", "password123")
		require.NoError(t, err)

		result, err := f.auth.Login(ctx, username, "password123")
		require.NoError(t, err)

		identity, err := f.verifier.Verify(ctx, result.Token)
		require.NoError(t, err)
		assert.Equal(t, username, identity.Username)

		_, err = f.users.Register(ctx, username, "Other Name", "different")
		assert.ErrorIs(t, err, apperrors.ErrDuplicateUsername)

		_, err = f.auth.Login(ctx, username, "wrong-password")
		assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	}

	_, err := f.auth.Login(ctx, "never-registered", "password123")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	var count int64
	require.NoError(t, f.db.Model(&model.User{}).Count(&count).Error)
	assert.EqualValues(t, 4, count)
}
