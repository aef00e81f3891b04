// Package historytest provides an in-memory implementation of the history
// HTTP contract for tests.
//
// # Usage
//
//	srv := historytest.NewServer()
//	defer srv.Close()
//	srv.Seed("abc", "loc-5", 3)
//	gw := gateway.New(srv.URL())
package historytest

import (
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/gin-gonic/gin"
)

// Request is a request the server received.
type Request struct {
	Method     string
	DocumentID string
	Data       string
	Version    *int64
}

type record struct {
	data    string
	version int64
}

type failure struct {
	status  int
	message string
}

// Server is a fake history server with optimistic concurrency on version.
type Server struct {
	srv    *httptest.Server
	router *gin.Engine

	mu       sync.Mutex
	records  map[string]record
	requests []Request
	failGet  []failure
	failSet  []failure
}

// NewServer starts a fake server.
func NewServer() *Server {
	gin.SetMode(gin.TestMode)

	s := &Server{
		router:  gin.New(),
		records: make(map[string]record),
	}
	s.router.GET("/history/get/:id", s.handleGet)
	s.router.POST("/history/set/:id", s.handleSet)
	s.srv = httptest.NewServer(s.router)
	return s
}

// URL returns the server's base URL.
func (s *Server) URL() string {
	return s.srv.URL
}

// Close shuts the server down.
func (s *Server) Close() {
	s.srv.Close()
}

// Seed stores a position for id.
func (s *Server) Seed(id, data string, version int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[id] = record{data: data, version: version}
}

// Position returns the stored position and version for id.
func (s *Server) Position(id string) (string, int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	return r.data, r.version, ok
}

// FailGets makes the next n GET requests answer status with message.
func (s *Server) FailGets(n, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		s.failGet = append(s.failGet, failure{status: status, message: message})
	}
}

// FailSets makes the next n POST requests answer status with message.
func (s *Server) FailSets(n, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		s.failSet = append(s.failSet, failure{status: status, message: message})
	}
}

// Requests returns every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Sets returns the POST requests received so far.
func (s *Server) Sets() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sets []Request
	for _, r := range s.requests {
		if r.Method == http.MethodPost {
			sets = append(sets, r)
		}
	}
	return sets
}

// GET /history/get/:id
func (s *Server) handleGet(c *gin.Context) {
	id := c.Param("id")

	s.mu.Lock()
	s.requests = append(s.requests, Request{Method: http.MethodGet, DocumentID: id})
	if len(s.failGet) > 0 {
		f := s.failGet[0]
		s.failGet = s.failGet[1:]
		s.mu.Unlock()
		c.String(f.status, f.message)
		return
	}
	r := s.records[id]
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"data": r.data, "version": r.version})
}

// POST /history/set/:id
func (s *Server) handleSet(c *gin.Context) {
	id := c.Param("id")

	var body struct {
		Data    string `json:"data"`
		Version *int64 `json:"version"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.String(http.StatusBadRequest, "invalid request")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, Request{
		Method:     http.MethodPost,
		DocumentID: id,
		Data:       body.Data,
		Version:    body.Version,
	})

	if len(s.failSet) > 0 {
		f := s.failSet[0]
		s.failSet = s.failSet[1:]
		c.String(f.status, f.message)
		return
	}

	if body.Data == "" {
		c.String(http.StatusInternalServerError, "error handling request. reason: invalid request")
		return
	}

	current, exists := s.records[id]
	submitted := int64(0)
	if body.Version != nil {
		submitted = *body.Version
	}
	if exists && submitted != current.version {
		c.String(http.StatusConflict, "version conflict")
		return
	}

	next := record{data: body.Data, version: current.version + 1}
	s.records[id] = next
	c.JSON(http.StatusCreated, gin.H{"version": next.version})
}
