package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userCols = []string{"id", "email", "password", "reset_password_token", "reset_password_expires", "created_at", "updated_at"}

func TestCreateUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	mock.ExpectQuery("INSERT INTO users").
		WithArgs("ana@example.com", "hash").
		WillReturnRows(pgxmock.NewRows(userCols).AddRow(int64(7), "ana@example.com", "hash", nil, nil, now, now))

	u, err := NewUserStore(mock).CreateUser(context.Background(), "ana@example.com", "hash")
	require.NoError(t, err)
	assert.Equal(t, int64(7), u.ID)
	assert.Equal(t, "ana@example.com", u.Email)
	assert.Nil(t, u.ResetPasswordToken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("ana@example.com", "hash").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	_, err = NewUserStore(mock).CreateUser(context.Background(), "ana@example.com", "hash")
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestGetByEmailNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM users").
		WithArgs("nobody@example.com").
		WillReturnError(pgx.ErrNoRows)

	_, err = NewUserStore(mock).GetByEmail(context.Background(), "nobody@example.com")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetByResetToken(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	now := time.Now()
	token := "tok"
	expires := now.Add(time.Hour)
	mock.ExpectQuery("WHERE reset_password_token").
		WithArgs("tok", now).
		WillReturnRows(pgxmock.NewRows(userCols).AddRow(int64(3), "bo@example.com", "hash", &token, &expires, now, now))

	u, err := NewUserStore(mock).GetByResetToken(context.Background(), "tok", now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), u.ID)
	require.NotNil(t, u.ResetPasswordToken)
	assert.Equal(t, "tok", *u.ResetPasswordToken)
}

func TestSetResetTokenMissingUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	expires := time.Now().Add(time.Hour)
	mock.ExpectExec("UPDATE users").
		WithArgs(int64(99), "tok", expires).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err = NewUserStore(mock).SetResetToken(context.Background(), 99, "tok", expires)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdatePassword(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("UPDATE users").
		WithArgs(int64(3), "newhash").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, NewUserStore(mock).UpdatePassword(context.Background(), 3, "newhash"))
	require.NoError(t, mock.ExpectationsWereMet())
}
