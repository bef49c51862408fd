// Package telegraphtest provides an in-memory Telegraph API for tests.
package telegraphtest

import (
	"net/http/httptest"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Call is a recorded API method invocation
type Call struct {
	Method string
	Body   map[string]interface{}
}

// UploadedPart is a recorded part of an upload form
type UploadedPart struct {
	Name        string
	Filename    string
	ContentType string
	Data        []byte
}

// Server is a fake Telegraph API backed by memory. The API methods are served
// under URL and uploads under URL+"/upload".
type Server struct {
	*httptest.Server

	router *gin.Engine
	now    func() time.Time

	mu          sync.Mutex
	accounts    map[string]*account
	pages       map[string]*page
	calls       []Call
	uploads     [][]UploadedPart
	uploadError string
}

// NewServer starts a fake Telegraph API. Callers must Close it.
func NewServer() *Server {
	s := &Server{
		now:      time.Now,
		accounts: make(map[string]*account),
		pages:    make(map[string]*page),
	}

	router := gin.New()
	router.Use(gin.Recovery())

	router.POST("/createAccount", s.createAccount)
	router.POST("/editAccountInfo", s.editAccountInfo)
	router.POST("/getAccountInfo", s.getAccountInfo)
	router.POST("/revokeAccessToken", s.revokeAccessToken)
	router.POST("/createPage", s.createPage)
	router.POST("/editPage", s.editPage)
	router.POST("/getPage", s.getPage)
	router.POST("/getPageList", s.getPageList)
	router.POST("/getViews", s.getViews)
	router.POST("/upload", s.upload)

	s.router = router
	s.Server = httptest.NewServer(router)
	return s
}

// UploadURL returns the upload endpoint.
func (s *Server) UploadURL() string {
	return s.URL + "/upload"
}

// Calls returns the API calls received so far, in order.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// LastCall returns the most recent API call.
func (s *Server) LastCall() (Call, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) == 0 {
		return Call{}, false
	}
	return s.calls[len(s.calls)-1], true
}

// Uploads returns the parts of every upload received so far.
func (s *Server) Uploads() [][]UploadedPart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]UploadedPart(nil), s.uploads...)
}

// FailUploads makes subsequent uploads answer with {"error": msg}. An empty
// msg restores normal behavior.
func (s *Server) FailUploads(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploadError = msg
}

// AddViews records n views on the page at path.
func (s *Server) AddViews(path string, n int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pages[path]
	if !ok {
		return false
	}
	p.views += n
	return true
}
