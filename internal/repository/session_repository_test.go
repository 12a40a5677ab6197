package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"constitution-gpt/internal/model"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestDeleteByTokenReportsRemoval(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRefreshSessionRepository(db)

	q := regexp.QuoteMeta("DELETE FROM `refresh_sessions` WHERE token = ?")
	mock.ExpectExec(q).WithArgs("tok-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("tok-1").WillReturnResult(sqlmock.NewResult(0, 0))

	removed, err := repo.DeleteByToken(context.Background(), "tok-1")
	require.NoError(t, err)
	require.True(t, removed)

	removed, err = repo.DeleteByToken(context.Background(), "tok-1")
	require.NoError(t, err)
	require.False(t, removed)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteByTokenWrapsDriverError(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRefreshSessionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `refresh_sessions`")).
		WillReturnError(errors.New("db down"))

	removed, err := repo.DeleteByToken(context.Background(), "tok-1")
	require.False(t, removed)
	require.Error(t, err)
	require.Contains(t, err.Error(), "delete refresh session failed")
	require.Contains(t, err.Error(), "db down")
}

func TestDeleteExpiredReturnsCount(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewRefreshSessionRepository(db)
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM `refresh_sessions` WHERE expires_at <= ?")).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteExpired(context.Background(), now)
	require.NoError(t, err)
	require.EqualValues(t, 3, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentTransitionIsConditional(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAppointmentRepository(db)

	q := "UPDATE `appointments` SET `status`=\\?,`updated_at`=\\? WHERE \\(?id = \\? AND status = \\?\\)?"
	mock.ExpectExec(q).
		WithArgs("confirmed", sqlmock.AnyArg(), 7, "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).
		WithArgs("confirmed", sqlmock.AnyArg(), 7, "pending").
		WillReturnResult(sqlmock.NewResult(0, 0))

	changed, err := repo.TransitionStatus(context.Background(), 7, "pending", "confirmed")
	require.NoError(t, err)
	require.True(t, changed)

	changed, err = repo.TransitionStatus(context.Background(), 7, "pending", "confirmed")
	require.NoError(t, err)
	require.False(t, changed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetVerifiedFallsBackToLookup(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	update := "UPDATE `users` SET `is_verified`=\\?,`updated_at`=\\? WHERE \\(?id = \\? AND role = \\?\\)?"
	count := "SELECT count\\(\\*\\) FROM `users` WHERE \\(?id = \\? AND role = \\?\\)?"

	mock.ExpectExec(update).WithArgs(true, sqlmock.AnyArg(), 4, "lawyer").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(update).WithArgs(true, sqlmock.AnyArg(), 4, "lawyer").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(count).WithArgs(4, "lawyer").WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(1))
	mock.ExpectExec(update).WithArgs(true, sqlmock.AnyArg(), 99, "lawyer").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(count).WithArgs(99, "lawyer").WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(0))

	ok, err := repo.SetVerified(context.Background(), 4, true)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.SetVerified(context.Background(), 4, true)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.SetVerified(context.Background(), 99, true)
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByUsernameOrEmailBindsBothColumns(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	query := "SELECT \\* FROM `users` WHERE \\(?username = \\? OR email = \\?\\)? ORDER BY `users`.`id` LIMIT \\?"
	mock.ExpectQuery(query).
		WithArgs("Priya@example.com", "priya@example.com", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email"}).AddRow(3, "priya", "priya@example.com"))

	user, err := repo.GetByUsernameOrEmail(context.Background(), "Priya@example.com", "priya@example.com")
	require.NoError(t, err)
	require.NotNil(t, user)
	require.Equal(t, uint(3), user.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserMapsDuplicateKey(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `users`")).WillReturnError(gorm.ErrDuplicatedKey)

	err := repo.Create(context.Background(), &model.User{Username: "dup", Email: "dup@example.com"})
	require.ErrorIs(t, err, ErrDuplicate)
}
