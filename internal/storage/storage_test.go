package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"

	"github.com/lifecompass/backend/pkg/types"
)

func newMockDatabase(t *testing.T, cfg *types.DatabaseConfig) (*Database, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := Open(postgres.New(postgres.Config{Conn: sqlDB}), cfg, nil)
	require.NoError(t, err)
	return db, mock
}

func TestStringList(t *testing.T) {
	value, err := StringList{"Go", "SQL"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `["Go","SQL"]`, value)

	value, err = StringList(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", value)

	var list StringList
	require.NoError(t, list.Scan([]byte(`["a","b"]`)))
	assert.Equal(t, StringList{"a", "b"}, list)

	require.NoError(t, list.Scan(nil))
	assert.Error(t, list.Scan(42))
}

func TestStringMap(t *testing.T) {
	value, err := StringMap{"why": "growth"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `{"why":"growth"}`, value)

	var m StringMap
	require.NoError(t, m.Scan(`{"q":"a"}`))
	assert.Equal(t, "a", m["q"])
}

func TestBeforeCreateAssignsID(t *testing.T) {
	job := &JobPosting{}
	require.NoError(t, job.BeforeCreate(nil))
	assert.Len(t, job.ID, 36)

	kept := &User{ID: "fixed"}
	require.NoError(t, kept.BeforeCreate(nil))
	assert.Equal(t, "fixed", kept.ID)
}

func TestUserInfo(t *testing.T) {
	u := &User{ID: "u1", Email: "a@b.c", FullName: "Ada", Role: types.RoleRecruiter, CompanyName: "Acme"}
	info := u.Info()
	assert.Equal(t, "u1", info.ID)
	assert.Equal(t, types.RoleRecruiter, info.Role)
	assert.Equal(t, "Acme", info.CompanyName)
}

func TestUserRepoNotFound(t *testing.T) {
	db, mock := newMockDatabase(t, nil)

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}))

	_, err := db.UserRepo().GetByEmail(context.Background(), "Missing@Example.com")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepoGetByID(t *testing.T) {
	db, mock := newMockDatabase(t, nil)

	rows := sqlmock.NewRows([]string{"id", "email", "full_name", "role", "skills"}).
		AddRow("u1", "ada@example.com", "Ada", "recruiter", `["go"]`)
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE id = \$1`).WillReturnRows(rows)

	user, err := db.UserRepo().GetByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.FullName)
	assert.Equal(t, types.RoleRecruiter, user.Role)
	assert.Equal(t, StringList{"go"}, user.Skills)
}

func TestUpdateRoleMissingUser(t *testing.T) {
	db, mock := newMockDatabase(t, nil)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "users" SET "role"=\$1`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := db.UserRepo().UpdateRole(context.Background(), "ghost", types.RoleAdmin)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSeedAdminSkippedWithoutCredentials(t *testing.T) {
	db, mock := newMockDatabase(t, &types.DatabaseConfig{AdminEmail: "admin@example.com"})

	require.NoError(t, db.SeedAdmin(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeedAdminExisting(t *testing.T) {
	db, mock := newMockDatabase(t, &types.DatabaseConfig{AdminEmail: "admin@example.com", AdminPassword: "secret-pass"})

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE email = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "role"}).AddRow("a1", "admin@example.com", "admin"))

	require.NoError(t, db.SeedAdmin(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWindowMemberUniqueWithinNanosecond(t *testing.T) {
	const now = int64(1700000000000000000)
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		m := windowMember(now)
		assert.True(t, strings.HasPrefix(m, "1700000000000000000-"), m)
		assert.False(t, seen[m], "duplicate member %s", m)
		seen[m] = true
	}
}

func TestUniqueViolationIsDuplicate(t *testing.T) {
	db, mock := newMockDatabase(t, nil)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "users"`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "idx_users_email"})
	mock.ExpectRollback()

	err := db.UserRepo().Create(context.Background(), &User{Email: "ada@example.com", Role: types.RoleJobSeeker})
	assert.True(t, IsDuplicate(err), "%v", err)
	assert.False(t, IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
