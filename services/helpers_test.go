package services

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"acrevista-api/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testPassword = "password123"

var dbSeq atomic.Int64

var (
	pdfSample = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")
	pngSample = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, models.AutoMigrate(db))
	return db
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []Notice
	fail    error
}

func (r *recordingNotifier) Notify(_ context.Context, notice Notice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.notices = append(r.notices, notice)
	return nil
}

func (r *recordingNotifier) events(event Event) []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Notice
	for _, n := range r.notices {
		if n.Event == event {
			out = append(out, n)
		}
	}
	return out
}

type fixture struct {
	db       *gorm.DB
	svc      *Services
	notifier *recordingNotifier
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	storage, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	f := &fixture{
		db:       db,
		notifier: &recordingNotifier{},
		now:      time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc = New(Deps{
		DB:             db,
		Storage:        storage,
		Notifier:       f.notifier,
		SiteName:       "AC Revista",
		BaseURL:        "http://testserver",
		MaxUploadBytes: 1 << 20,
		LoginTokenDays: DefaultLoginTokenDays,
		Now:            func() time.Time { return f.now },
	})
	return f
}

func (f *fixture) user(t *testing.T, email string) *models.User {
	t.Helper()
	user, err := f.svc.Accounts.Register(context.Background(), RegisterInput{
		Email:     email,
		Password:  testPassword,
		FirstName: "Test",
		LastName:  "User",
	})
	require.NoError(t, err)
	return user
}

func (f *fixture) staff(t *testing.T, email string) *models.User {
	t.Helper()
	user, err := f.svc.Accounts.CreateStaff(context.Background(), RegisterInput{
		Email:     email,
		Password:  testPassword,
		FirstName: "Staff",
		LastName:  "Member",
	})
	require.NoError(t, err)
	return user
}

func (f *fixture) paper(t *testing.T, author *models.User) *models.Paper {
	t.Helper()
	paper, err := f.svc.Papers.Submit(context.Background(), author, SubmitInput{
		Title:       "On graphs",
		Description: "A study of graphs.",
		Authors:     "Test User <author@example.com>",
		Manuscript:  fileHeader(t, "manuscript", "paper.pdf", pdfSample),
		CoverLetter: fileHeader(t, "cover_letter", "letter.pdf", pdfSample),
	})
	require.NoError(t, err)
	return paper
}

func fileHeader(t *testing.T, field, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File[field][0]
}

func fieldsOf(t *testing.T, err error) map[string][]string {
	t.Helper()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	return verr.Fields
}
