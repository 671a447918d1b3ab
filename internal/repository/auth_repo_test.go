package repository

import (
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"testing"

	"deposition_dashboard/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
)

func newOperatorRepo(t *testing.T) (*OperatorRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet sqlmock expectations: %v", err)
		}
		_ = db.Close()
	})
	return NewOperatorRepository(db), mock
}

func TestOperatorRepository_Create(t *testing.T) {
	cases := map[string]struct {
		expect  func(sqlmock.Sqlmock)
		wantID  int
		wantErr string
		wantIs  error
	}{
		"inserted": {
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectExec(regexp.QuoteMeta(insertOperatorSQL)).
					WithArgs("operator1", "hash").
					WillReturnResult(sqlmock.NewResult(3, 1))
			},
			wantID: 3,
		},
		"duplicate username": {
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectExec(regexp.QuoteMeta(insertOperatorSQL)).
					WithArgs("operator1", "hash").
					WillReturnError(errors.New("constraint failed: UNIQUE constraint failed: operators.username (2067)"))
			},
			wantErr: "insert operator",
			wantIs:  ErrOperatorExists,
		},
		"exec error": {
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectExec(regexp.QuoteMeta(insertOperatorSQL)).
					WithArgs("operator1", "hash").
					WillReturnError(errors.New("disk I/O error"))
			},
			wantErr: "disk I/O error",
		},
		"last insert id unavailable": {
			expect: func(m sqlmock.Sqlmock) {
				m.ExpectExec(regexp.QuoteMeta(insertOperatorSQL)).
					WithArgs("operator1", "hash").
					WillReturnResult(sqlmock.NewErrorResult(errors.New("no last id")))
			},
			wantErr: "get last insert id",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			repo, mock := newOperatorRepo(t)
			tc.expect(mock)

			id, err := repo.Create("operator1", "hash")
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if id != tc.wantID {
					t.Fatalf("id: want %d, got %d", tc.wantID, id)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
			if tc.wantIs != nil && !errors.Is(err, tc.wantIs) {
				t.Fatalf("expected errors.Is(%v), got %v", tc.wantIs, err)
			}
			if id != 0 {
				t.Fatalf("expected id=0 on error, got %d", id)
			}
		})
	}
}

func TestOperatorRepository_GetByUsername(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		repo, mock := newOperatorRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectOperatorByUsernameSQL)).
			WithArgs("operator1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash"}).AddRow(7, "operator1", "h"))

		op, err := repo.GetByUsername("operator1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := models.Operator{ID: 7, Username: "operator1", PasswordHash: "h"}
		if op == nil || *op != want {
			t.Fatalf("want %+v, got %+v", want, op)
		}
	})

	t.Run("missing is not an error", func(t *testing.T) {
		repo, mock := newOperatorRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectOperatorByUsernameSQL)).
			WithArgs("ghost").
			WillReturnError(sql.ErrNoRows)

		op, err := repo.GetByUsername("ghost")
		if err != nil || op != nil {
			t.Fatalf("want (nil, nil), got (%+v, %v)", op, err)
		}
	})

	t.Run("query error", func(t *testing.T) {
		repo, mock := newOperatorRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectOperatorByUsernameSQL)).
			WithArgs("operator1").
			WillReturnError(errors.New("database is locked"))

		op, err := repo.GetByUsername("operator1")
		if err == nil || !strings.Contains(err.Error(), "select operator") {
			t.Fatalf("expected wrapped error, got %v", err)
		}
		if op != nil {
			t.Fatalf("expected nil operator, got %+v", op)
		}
	})
}
