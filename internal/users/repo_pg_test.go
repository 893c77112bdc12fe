package users

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockRepo(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PGRepo{DB: db}, mock
}

var userColumns = []string{"id", "email", "name", "picture", "role", "created_at", "updated_at"}

func TestPGRepoUpsertReturnsStoredRole(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("google:1", "a@example.com", "A", "https://img", DefaultRole).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow("google:1", "a@example.com", "A", "https://img", "admin", now, now))

	user, err := repo.Upsert(context.Background(), User{ID: "google:1", Email: "a@example.com", Name: "A", PictureURL: "https://img"})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if user.Role != "admin" {
		t.Fatalf("expected stored role, got %q", user.Role)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoGetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT id, email, name, picture, role").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoSetRole(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE users SET role").
		WithArgs("admin", "google:1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE users SET role").
		WithArgs("admin", "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.SetRole(context.Background(), "google:1", "admin"); err != nil {
		t.Fatalf("SetRole: %v", err)
	}
	if err := repo.SetRole(context.Background(), "missing", "admin"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
