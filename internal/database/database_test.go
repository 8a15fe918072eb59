package database

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"agenda/internal/domain"
	"agenda/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.New(io.Discard)
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testCatalog() *models.Catalog {
	return &models.Catalog{
		Professionals: []models.Professional{
			{ID: 1, Name: "Dra. Ana Silva", Specialty: "Dermatologia", IsActive: true},
			{ID: 2, Name: "Carlos Mendes", Specialty: "Fisioterapia", IsActive: true},
			{ID: 3, Name: "Beatriz Rocha", Specialty: "Nutrição", IsActive: false},
		},
		Services: []models.Service{
			{ID: 10, ProfessionalID: 1, Name: "Limpeza de pele", DurationMinutes: 60, PriceCents: 4500, IsActive: true},
			{ID: 11, ProfessionalID: 1, Name: "Consulta", DurationMinutes: 30, PriceCents: 20000, IsActive: true},
			{ID: 12, ProfessionalID: 1, Name: "Peeling", DurationMinutes: 45, PriceCents: 30000, IsActive: false},
			{ID: 20, ProfessionalID: 2, Name: "Sessão", DurationMinutes: 50, PriceCents: 15000, IsActive: true},
		},
	}
}

func seededDB(t *testing.T) *DB {
	t.Helper()
	db := setupTestDB(t)
	require.NoError(t, db.SyncCatalog(context.Background(), testCatalog()))
	return db
}

func TestNewDB_DirectoryCreation(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "test.db")
	logger := zerolog.Nop()

	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	assert.FileExists(t, dbPath)
	assert.NoError(t, db.Ping(context.Background()))
}

func TestCatalog(t *testing.T) {
	ctx := context.Background()
	db := seededDB(t)

	pros, err := db.ListActiveProfessionals(ctx)
	require.NoError(t, err)
	require.Len(t, pros, 2)
	assert.Equal(t, "Carlos Mendes", pros[0].Name, "ordered by name")
	assert.Equal(t, "Dra. Ana Silva", pros[1].Name)
	assert.True(t, pros[0].IsActive)

	svcs, err := db.ListActiveServices(ctx, 1)
	require.NoError(t, err)
	require.Len(t, svcs, 2)
	assert.Equal(t, "Consulta", svcs[0].Name)
	assert.Equal(t, "Limpeza de pele", svcs[1].Name)
	assert.Equal(t, int64(4500), svcs[1].PriceCents)
	assert.Equal(t, 60, svcs[1].DurationMinutes)

	none, err := db.ListActiveServices(ctx, 99)
	require.NoError(t, err)
	assert.Empty(t, none)

	t.Run("ResyncUpdates", func(t *testing.T) {
		catalog := testCatalog()
		catalog.Professionals[1].IsActive = false
		catalog.Services[0].PriceCents = 5000
		require.NoError(t, db.SyncCatalog(ctx, catalog))

		pros, err := db.ListActiveProfessionals(ctx)
		require.NoError(t, err)
		assert.Len(t, pros, 1)

		svcs, err := db.ListActiveServices(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(5000), svcs[1].PriceCents)
	})
}

func TestUpsertProfile(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	_, err := db.GetProfileByUserID(ctx, "user-1")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	created, err := db.UpsertProfile(ctx, &models.ClientProfile{UserID: "user-1", Name: "Ana", Email: "ana@example.com"})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "Ana", created.Name)
	assert.False(t, created.CreatedAt.IsZero())

	again, err := db.UpsertProfile(ctx, &models.ClientProfile{UserID: "user-1", Name: "Outro Nome"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)
	assert.Equal(t, "Ana", again.Name, "existing profile is returned unchanged")

	fetched, err := db.GetProfileByUserID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, fetched.ID)
}

func TestUpsertProfileConcurrent(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	ids := make(chan int64, 10)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := db.UpsertProfile(ctx, &models.ClientProfile{UserID: "same-user", Name: "Ana"})
			if assert.NoError(t, err) {
				ids <- p.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	var first int64
	for id := range ids {
		if first == 0 {
			first = id
		}
		assert.Equal(t, first, id)
	}

	var count int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestAppointments(t *testing.T) {
	ctx := context.Background()
	db := seededDB(t)

	profile, err := db.UpsertProfile(ctx, &models.ClientProfile{UserID: "user-1", Name: "Ana"})
	require.NoError(t, err)

	notes := "primeira consulta"
	first := &models.Appointment{
		ClientID: profile.ID, ProfessionalID: 1, ServiceID: 10,
		Date: models.Date{Year: 2025, Month: time.March, Day: 10}, TimeSlot: "09:00",
	}
	second := &models.Appointment{
		ClientID: profile.ID, ProfessionalID: 2, ServiceID: 20,
		Date: models.Date{Year: 2025, Month: time.April, Day: 2}, TimeSlot: "14:30", Notes: &notes,
	}
	require.NoError(t, db.CreateAppointment(ctx, first))
	require.NoError(t, db.CreateAppointment(ctx, second))
	assert.NotZero(t, first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	var storedNotes *string
	require.NoError(t, db.QueryRowContext(ctx, `SELECT notes FROM appointments WHERE id = ?`, first.ID).Scan(&storedNotes))
	assert.Nil(t, storedNotes, "absent notes are stored as NULL")

	list, err := db.ListAppointmentsByClient(ctx, profile.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest date first")
	assert.Equal(t, "2025-04-02", list[0].Date.String())
	require.NotNil(t, list[0].Notes)
	assert.Equal(t, notes, *list[0].Notes)
	assert.Nil(t, list[1].Notes)
	assert.Equal(t, "09:00", list[1].TimeSlot)

	t.Run("UnknownServiceRejected", func(t *testing.T) {
		err := db.CreateAppointment(ctx, &models.Appointment{
			ClientID: profile.ID, ProfessionalID: 1, ServiceID: 999,
			Date: models.Date{Year: 2025, Month: time.March, Day: 11}, TimeSlot: "10:00",
		})
		assert.Error(t, err)
	})
}

func TestCredentials(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	cred := &models.Credential{
		UserID: "u-1", Email: "ana@example.com", PasswordHash: "hash",
		Name: "Ana", Phone: "119", CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, db.CreateCredential(ctx, cred))

	err := db.CreateCredential(ctx, &models.Credential{UserID: "u-2", Email: "ana@example.com", PasswordHash: "x", CreatedAt: time.Now()})
	assert.True(t, errors.Is(err, domain.ErrConflict))

	got, err := db.GetCredentialByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.UserID)
	assert.Equal(t, "hash", got.PasswordHash)

	_, err = db.GetCredentialByEmail(ctx, "nobody@example.com")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestDB_ErrorPaths(t *testing.T) {
	logger := zerolog.New(io.Discard)
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	db.Close() // Close the DB to trigger errors

	ctx := context.Background()

	_, err = db.ListActiveProfessionals(ctx)
	assert.Error(t, err)
	_, err = db.ListActiveServices(ctx, 1)
	assert.Error(t, err)
	_, err = db.UpsertProfile(ctx, &models.ClientProfile{UserID: "x"})
	assert.Error(t, err)
	_, err = db.GetProfileByUserID(ctx, "x")
	assert.Error(t, err)
	assert.Error(t, db.CreateAppointment(ctx, &models.Appointment{}))
	_, err = db.ListAppointmentsByClient(ctx, 1)
	assert.Error(t, err)
	assert.Error(t, db.SyncCatalog(ctx, testCatalog()))
	assert.Error(t, db.Ping(ctx))
}

func TestSyncCatalogRollsBack(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	logger := zerolog.Nop()
	db := &DB{DB: sqlDB, path: "mock", logger: &logger}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO professionals").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO professionals").WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectExec("INSERT INTO professionals").WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectExec("INSERT INTO services").WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	err = db.SyncCatalog(context.Background(), testCatalog())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "service 10")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertProfileCommitFailure(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	logger := zerolog.Nop()
	db := &DB{DB: sqlDB, path: "mock", logger: &logger}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO profiles").
		WithArgs("user-1", "Ana", "", "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT id, user_id, name, email, phone, created_at").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "email", "phone", "created_at"}).
			AddRow(int64(5), "user-1", "Ana", "", "", time.Now()))
	mock.ExpectCommit().WillReturnError(errors.New("database is locked"))

	_, err = db.UpsertProfile(context.Background(), &models.ClientProfile{UserID: "user-1", Name: "Ana"})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
