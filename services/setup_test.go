package services

import (
	"context"
	"strings"
	"sync"
	"testing"

	"salonportal-backend/models"
	"salonportal-backend/utils"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	utils.BcryptCost = bcrypt.MinCost
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

type invocation struct {
	Name    string
	Payload interface{}
}

// fakeFunctions records calls and optionally fails them.
type fakeFunctions struct {
	mu    sync.Mutex
	calls []invocation
	err   error
	reply func(name string, out interface{})
}

func (f *fakeFunctions) Invoke(_ context.Context, name string, payload interface{}, out interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, invocation{Name: name, Payload: payload})
	if f.err != nil {
		return f.err
	}
	if f.reply != nil && out != nil {
		f.reply(name, out)
	}
	return nil
}

func (f *fakeFunctions) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Name == name {
			n++
		}
	}
	return n
}

type published struct {
	Subject string
	Value   interface{}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *fakePublisher) Publish(subject string, v interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{subject, v})
	return nil
}

func (p *fakePublisher) Close() {}

func mustCreate(t *testing.T, db *gorm.DB, v interface{}) {
	t.Helper()
	if err := db.Create(v).Error; err != nil {
		t.Fatalf("create %T: %v", v, err)
	}
}
