package telegraphtest

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type account struct {
	token      string
	shortName  string
	authorName string
	authorURL  string
	paths      []string
}

type page struct {
	path       string
	title      string
	authorName string
	authorURL  string
	content    json.RawMessage
	owner      *account
	views      int
	created    time.Time
}

type createAccountRequest struct {
	ShortName  string `json:"short_name"`
	AuthorName string `json:"author_name"`
	AuthorURL  string `json:"author_url"`
}

type editAccountRequest struct {
	AccessToken string  `json:"access_token"`
	ShortName   *string `json:"short_name"`
	AuthorName  *string `json:"author_name"`
	AuthorURL   *string `json:"author_url"`
}

type getAccountRequest struct {
	AccessToken string   `json:"access_token"`
	Fields      []string `json:"fields"`
}

type tokenRequest struct {
	AccessToken string `json:"access_token"`
}

type pageRequest struct {
	AccessToken   string          `json:"access_token"`
	Path          string          `json:"path"`
	Title         string          `json:"title"`
	AuthorName    string          `json:"author_name"`
	AuthorURL     string          `json:"author_url"`
	Content       json.RawMessage `json:"content"`
	ReturnContent bool            `json:"return_content"`
}

type getPageRequest struct {
	Path          string `json:"path"`
	ReturnContent bool   `json:"return_content"`
}

type pageListRequest struct {
	AccessToken string `json:"access_token"`
	Offset      int    `json:"offset"`
	Limit       *int   `json:"limit"`
}

type viewsRequest struct {
	Path  string `json:"path"`
	Year  *int   `json:"year"`
	Month *int   `json:"month"`
	Day   *int   `json:"day"`
	Hour  *int   `json:"hour"`
}

func ok(c *gin.Context, result interface{}) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "result": result})
}

func fail(c *gin.Context, msg string) {
	c.JSON(http.StatusOK, gin.H{"ok": false, "error": msg})
}

// bind records the call and decodes its JSON body into req.
func (s *Server) bind(c *gin.Context, req interface{}) bool {
	method := strings.TrimPrefix(c.FullPath(), "/")

	raw, err := c.GetRawData()
	if err != nil {
		fail(c, "REQUEST_READ_FAILED")
		return false
	}

	var body map[string]interface{}
	if err := json.Unmarshal(raw, &body); err != nil {
		fail(c, "INVALID_JSON")
		return false
	}

	s.mu.Lock()
	s.calls = append(s.calls, Call{Method: method, Body: body})
	s.mu.Unlock()

	if err := json.Unmarshal(raw, req); err != nil {
		fail(c, "INVALID_PARAMETERS")
		return false
	}
	return true
}

func newToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "") + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

func (a *account) fields(names []string) gin.H {
	all := gin.H{
		"short_name":  a.shortName,
		"author_name": a.authorName,
		"author_url":  a.authorURL,
		"auth_url":    "https://edit.telegra.ph/auth/" + uuid.NewString(),
		"page_count":  len(a.paths),
	}

	out := gin.H{}
	for _, n := range names {
		if v, ok := all[n]; ok {
			out[n] = v
		}
	}
	return out
}

func (s *Server) lookup(token string) (*account, bool) {
	a, ok := s.accounts[token]
	return a, ok
}

func (s *Server) createAccount(c *gin.Context) {
	var req createAccountRequest
	if !s.bind(c, &req) {
		return
	}
	if req.ShortName == "" {
		fail(c, "SHORT_NAME_REQUIRED")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a := &account{
		token:      newToken(),
		shortName:  req.ShortName,
		authorName: req.AuthorName,
		authorURL:  req.AuthorURL,
	}
	s.accounts[a.token] = a

	result := a.fields([]string{"short_name", "author_name", "author_url", "auth_url"})
	result["access_token"] = a.token
	ok(c, result)
}

func (s *Server) editAccountInfo(c *gin.Context) {
	var req editAccountRequest
	if !s.bind(c, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, found := s.lookup(req.AccessToken)
	if !found {
		fail(c, "ACCESS_TOKEN_INVALID")
		return
	}
	if req.ShortName != nil {
		a.shortName = *req.ShortName
	}
	if req.AuthorName != nil {
		a.authorName = *req.AuthorName
	}
	if req.AuthorURL != nil {
		a.authorURL = *req.AuthorURL
	}

	ok(c, a.fields([]string{"short_name", "author_name", "author_url"}))
}

func (s *Server) getAccountInfo(c *gin.Context) {
	var req getAccountRequest
	if !s.bind(c, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, found := s.lookup(req.AccessToken)
	if !found {
		fail(c, "ACCESS_TOKEN_INVALID")
		return
	}

	fields := req.Fields
	if len(fields) == 0 {
		fields = []string{"short_name", "author_name", "author_url"}
	}
	ok(c, a.fields(fields))
}

func (s *Server) revokeAccessToken(c *gin.Context) {
	var req tokenRequest
	if !s.bind(c, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, found := s.lookup(req.AccessToken)
	if !found {
		fail(c, "ACCESS_TOKEN_INVALID")
		return
	}

	delete(s.accounts, a.token)
	a.token = newToken()
	s.accounts[a.token] = a

	ok(c, gin.H{"access_token": a.token, "auth_url": a.fields([]string{"auth_url"})["auth_url"]})
}

func (s *Server) createPage(c *gin.Context) {
	var req pageRequest
	if !s.bind(c, &req) {
		return
	}
	if req.Title == "" {
		fail(c, "TITLE_REQUIRED")
		return
	}
	if len(req.Content) == 0 || string(req.Content) == "null" {
		fail(c, "CONTENT_REQUIRED")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, found := s.lookup(req.AccessToken)
	if !found {
		fail(c, "ACCESS_TOKEN_INVALID")
		return
	}

	created := s.now()
	p := &page{
		path:       s.newPath(req.Title, created),
		title:      req.Title,
		authorName: req.AuthorName,
		authorURL:  req.AuthorURL,
		content:    req.Content,
		owner:      a,
		created:    created,
	}
	if p.authorName == "" {
		p.authorName = a.authorName
	}
	if p.authorURL == "" {
		p.authorURL = a.authorURL
	}
	s.pages[p.path] = p
	a.paths = append(a.paths, p.path)

	ok(c, p.render(req.ReturnContent, true))
}

func (s *Server) editPage(c *gin.Context) {
	var req pageRequest
	if !s.bind(c, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, found := s.lookup(req.AccessToken)
	if !found {
		fail(c, "ACCESS_TOKEN_INVALID")
		return
	}
	p, found := s.pages[req.Path]
	if !found {
		fail(c, "PAGE_NOT_FOUND")
		return
	}
	if p.owner != a {
		fail(c, "PAGE_ACCESS_DENIED")
		return
	}

	p.title = req.Title
	p.content = req.Content
	p.authorName = req.AuthorName
	p.authorURL = req.AuthorURL

	ok(c, p.render(req.ReturnContent, true))
}

func (s *Server) getPage(c *gin.Context) {
	var req getPageRequest
	if !s.bind(c, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, found := s.pages[req.Path]
	if !found {
		fail(c, "PAGE_NOT_FOUND")
		return
	}

	ok(c, p.render(req.ReturnContent, false))
}

func (s *Server) getPageList(c *gin.Context) {
	var req pageListRequest
	if !s.bind(c, &req) {
		return
	}

	limit := 50
	if req.Limit != nil {
		limit = *req.Limit
	}
	if req.Offset < 0 || limit < 0 || limit > 200 {
		fail(c, "INVALID_PARAMETERS")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, found := s.lookup(req.AccessToken)
	if !found {
		fail(c, "ACCESS_TOKEN_INVALID")
		return
	}

	pages := []gin.H{}
	for i := len(a.paths) - 1 - req.Offset; i >= 0 && len(pages) < limit; i-- {
		pages = append(pages, s.pages[a.paths[i]].render(false, true))
	}

	ok(c, gin.H{"total_count": len(a.paths), "pages": pages})
}

func (s *Server) getViews(c *gin.Context) {
	var req viewsRequest
	if !s.bind(c, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, found := s.pages[req.Path]
	if !found {
		fail(c, "PAGE_NOT_FOUND")
		return
	}

	// All views are attributed to the hour the page was created.
	views := p.views
	filters := []struct {
		want *int
		got  int
	}{
		{req.Year, p.created.Year()},
		{req.Month, int(p.created.Month())},
		{req.Day, p.created.Day()},
		{req.Hour, p.created.Hour()},
	}
	for _, f := range filters {
		if f.want != nil && *f.want != f.got {
			views = 0
		}
	}

	ok(c, gin.H{"views": views})
}

func (s *Server) upload(c *gin.Context) {
	reader, err := c.Request.MultipartReader()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var parts []UploadedPart
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		data, err := io.ReadAll(part)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		parts = append(parts, UploadedPart{
			Name:        part.FormName(),
			Filename:    part.FileName(),
			ContentType: part.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.uploads = append(s.uploads, parts)

	if s.uploadError != "" {
		c.JSON(http.StatusOK, gin.H{"error": s.uploadError})
		return
	}
	if len(parts) == 0 {
		c.JSON(http.StatusOK, gin.H{"error": "No files passed"})
		return
	}

	files := make([]gin.H, 0, len(parts))
	for _, p := range parts {
		files = append(files, gin.H{"src": "/file/" + strings.ReplaceAll(uuid.NewString(), "-", "")[:21] + extension(p)})
	}
	c.JSON(http.StatusOK, files)
}

func extension(p UploadedPart) string {
	if ext := filepath.Ext(p.Filename); ext != "" {
		return ext
	}
	if p.ContentType != "" {
		if exts, err := mime.ExtensionsByType(p.ContentType); err == nil && len(exts) > 0 {
			return exts[0]
		}
	}
	return ""
}

// newPath derives a unique page path from the title and creation date, the
// way telegra.ph does: Title-MM-DD, then Title-MM-DD-2 and so on.
func (s *Server) newPath(title string, created time.Time) string {
	var b strings.Builder
	dash := false
	for _, r := range title {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
		} else if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimRight(b.String(), "-")
	if slug == "" {
		slug = "Page"
	}

	base := fmt.Sprintf("%s-%02d-%02d", slug, int(created.Month()), created.Day())
	path := base
	for n := 2; ; n++ {
		if _, taken := s.pages[path]; !taken {
			return path
		}
		path = fmt.Sprintf("%s-%d", base, n)
	}
}

func (p *page) render(withContent, canEdit bool) gin.H {
	out := gin.H{
		"path":        p.path,
		"url":         "https://telegra.ph/" + p.path,
		"title":       p.title,
		"description": description(p.content),
		"views":       p.views,
	}
	if p.authorName != "" {
		out["author_name"] = p.authorName
	}
	if p.authorURL != "" {
		out["author_url"] = p.authorURL
	}
	if canEdit {
		out["can_edit"] = true
	}
	if withContent {
		out["content"] = p.content
	}
	return out
}

// description is the leading text of the content, cut to 150 characters.
func description(content json.RawMessage) string {
	var nodes []interface{}
	if err := json.Unmarshal(content, &nodes); err != nil {
		return ""
	}

	var b strings.Builder
	var walk func([]interface{})
	walk = func(nodes []interface{}) {
		for _, n := range nodes {
			switch v := n.(type) {
			case string:
				b.WriteString(v)
			case map[string]interface{}:
				if children, ok := v["children"].([]interface{}); ok {
					walk(children)
				}
			}
		}
	}
	walk(nodes)

	text := []rune(strings.Join(strings.Fields(b.String()), " "))
	if len(text) > 150 {
		text = text[:150]
	}
	return string(text)
}
