// Package apitest runs an in-process property-management backend for tests.
// It serves the same routes, envelopes and error bodies as the real server,
// backed by an in-memory SQLite database.
package apitest

import (
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/propdesk/cli/internal/api"
	"github.com/propdesk/cli/pkg/logger"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Shape selects how collection endpoints wrap their items.
type Shape int

const (
	// ShapeEnvelope is {success, data, pagination}.
	ShapeEnvelope Shape = iota
	// ShapeItems is {items, total}.
	ShapeItems
	// ShapeArray is a bare JSON array.
	ShapeArray
)

// Default credentials accepted by the fake.
const (
	Token    = "test-token"
	Email    = "ada@example.com"
	Password = "correct horse"
)

// Request is one request the server received.
type Request struct {
	Method string
	Path   string
	Query  string
}

type failure struct {
	status int
	body   string
}

// Server is a running fake backend.
type Server struct {
	URL  string
	DB   *gorm.DB
	User api.User

	app *fiber.App

	mu       sync.Mutex
	shape    Shape
	token    string
	failures []failure
	requests []Request
	seq      time.Time
}

// New starts a server on a loopback port and stops it when t finishes.
func New(t testing.TB) *Server {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&ActivityRecord{},
		&MessageRecord{},
		&PropertyRecord{},
		&PhotoRecord{},
		&TaskRecord{},
	); err != nil {
		t.Fatalf("failed automigrating models: %v", err)
	}

	s := &Server{
		DB: db,
		User: api.User{
			ID:        "u-1",
			Email:     Email,
			FirstName: "Ada",
			LastName:  "Owner",
			Role:      string(api.RoleOwner),
			CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		token: Token,
		seq:   time.Now().UTC().Add(-time.Hour).Truncate(time.Second),
	}

	s.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             16 * 1024 * 1024,
	})
	s.app.Use(recover.New())
	s.app.Use(s.record)
	s.routes()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed listening: %v", err)
	}
	go func() { _ = s.app.Listener(ln) }()
	s.URL = "http://" + ln.Addr().String()

	t.Cleanup(func() {
		_ = s.app.Shutdown()
		_ = sqlDB.Close()
	})
	return s
}

// SetShape changes how collections are wrapped from the next request on.
func (s *Server) SetShape(shape Shape) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shape = shape
}

// SetToken changes the bearer token the server accepts.
func (s *Server) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// FailNext makes the next request fail with status and a raw body. Calls
// queue up; each failure is used once.
func (s *Server) FailNext(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure{status: status, body: body})
}

// Requests returns the requests received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// RequestsTo returns the received requests whose path starts with prefix.
func (s *Server) RequestsTo(prefix string) []Request {
	var out []Request
	for _, r := range s.Requests() {
		if strings.HasPrefix(r.Path, prefix) {
			out = append(out, r)
		}
	}
	return out
}

// AddActivity stores an activity row. Rows without a timestamp get one later
// than every row added before, so insertion order is newest-last.
func (s *Server) AddActivity(rec ActivityRecord) ActivityRecord {
	if rec.Role == "" {
		rec.Role = string(api.RoleAdmin)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.next()
	}
	if err := s.DB.Create(&rec).Error; err != nil {
		panic(err)
	}
	return rec
}

// AddMessage stores a message in its thread.
func (s *Server) AddMessage(rec MessageRecord) MessageRecord {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.next()
	}
	if err := s.DB.Create(&rec).Error; err != nil {
		panic(err)
	}
	return rec
}

// AddProperty stores a property.
func (s *Server) AddProperty(rec PropertyRecord) PropertyRecord {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.next()
	}
	if err := s.DB.Create(&rec).Error; err != nil {
		panic(err)
	}
	return rec
}

// AddTask stores a task under its role.
func (s *Server) AddTask(rec TaskRecord) TaskRecord {
	if rec.Role == "" {
		rec.Role = string(api.RoleOwner)
	}
	if rec.Status == "" {
		rec.Status = api.TaskOpen
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = s.next()
	}
	if err := s.DB.Create(&rec).Error; err != nil {
		panic(err)
	}
	return rec
}

// Photos returns the photos stored for a property.
func (s *Server) Photos(propertyID string) []PhotoRecord {
	var out []PhotoRecord
	s.DB.Where("property_id = ?", propertyID).Order("created_at ASC").Find(&out)
	return out
}

func (s *Server) next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq = s.seq.Add(time.Second)
	return s.seq
}

func (s *Server) currentShape() Shape {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shape
}

// record logs the request and serves a queued failure if one is pending.
func (s *Server) record(c *fiber.Ctx) error {
	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Method: c.Method(),
		Path:   c.Path(),
		Query:  string(c.Request().URI().QueryString()),
	})
	var fail *failure
	if len(s.failures) > 0 {
		f := s.failures[0]
		s.failures = s.failures[1:]
		fail = &f
	}
	s.mu.Unlock()

	logger.Debug("fake_backend_request", map[string]interface{}{
		"method":     c.Method(),
		"path":       c.Path(),
		"request_id": c.Get("X-Request-ID"),
	})

	if fail != nil {
		return c.Status(fail.status).SendString(fail.body)
	}
	return c.Next()
}

func (s *Server) requireAuth(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return errorJSON(c, fiber.StatusUnauthorized, "missing authorization header")
	}
	tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
	if tokenString == authHeader || tokenString == "" {
		return errorJSON(c, fiber.StatusUnauthorized, "invalid authorization format")
	}

	s.mu.Lock()
	want := s.token
	s.mu.Unlock()
	if tokenString != want {
		return errorJSON(c, fiber.StatusUnauthorized, "invalid or expired token")
	}
	return c.Next()
}

func success(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

func errorJSON(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

// collection writes items in the configured shape.
func (s *Server) collection(c *fiber.Ctx, items interface{}, limit, offset int, total int64) error {
	switch s.currentShape() {
	case ShapeArray:
		return c.Status(fiber.StatusOK).JSON(items)
	case ShapeItems:
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"items": items, "total": total})
	default:
		if limit <= 0 {
			limit = 1
		}
		totalPages := int((total + int64(limit) - 1) / int64(limit))
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"success": true,
			"data":    items,
			"pagination": fiber.Map{
				"page":       offset/limit + 1,
				"limit":      limit,
				"total":      total,
				"totalPages": totalPages,
			},
		})
	}
}
