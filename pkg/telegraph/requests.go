package telegraph

import (
	"fmt"
	"unicode/utf8"
)

const (
	DefaultPageListOffset = 0
	DefaultPageListLimit  = 50
	MaxPageListLimit      = 200
)

// DefaultAccountFields are requested by GetAccountInfo when Fields is nil.
var DefaultAccountFields = []string{FieldShortName, FieldAuthorName, FieldAuthorURL}

// CreateAccountRequest holds the parameters of createAccount
type CreateAccountRequest struct {
	ShortName  string `json:"short_name"`
	AuthorName string `json:"author_name,omitempty"`
	AuthorURL  string `json:"author_url,omitempty"`
}

// EditAccountInfoRequest holds the parameters of editAccountInfo.
// A nil field is left unchanged; String("") clears the author name or URL.
type EditAccountInfoRequest struct {
	AccessToken string  `json:"access_token"`
	ShortName   *string `json:"short_name,omitempty"`
	AuthorName  *string `json:"author_name,omitempty"`
	AuthorURL   *string `json:"author_url,omitempty"`
}

// GetAccountInfoRequest holds the parameters of getAccountInfo
type GetAccountInfoRequest struct {
	AccessToken string   `json:"access_token"`
	Fields      []string `json:"fields"`
}

// RevokeAccessTokenRequest holds the parameters of revokeAccessToken
type RevokeAccessTokenRequest struct {
	AccessToken string `json:"access_token"`
}

// CreatePageRequest holds the parameters of createPage
type CreatePageRequest struct {
	AccessToken   string `json:"access_token"`
	Title         string `json:"title"`
	AuthorName    string `json:"author_name,omitempty"`
	AuthorURL     string `json:"author_url,omitempty"`
	Content       []Node `json:"content"`
	ReturnContent *bool  `json:"return_content"`
}

// EditPageRequest holds the parameters of editPage
type EditPageRequest struct {
	AccessToken   string `json:"access_token"`
	Path          string `json:"path"`
	Title         string `json:"title"`
	Content       []Node `json:"content"`
	AuthorName    string `json:"author_name,omitempty"`
	AuthorURL     string `json:"author_url,omitempty"`
	ReturnContent *bool  `json:"return_content"`
}

// GetPageRequest holds the parameters of getPage
type GetPageRequest struct {
	Path          string `json:"path"`
	ReturnContent *bool  `json:"return_content"`
}

// GetPageListRequest holds the parameters of getPageList
type GetPageListRequest struct {
	AccessToken string `json:"access_token"`
	Offset      *int   `json:"offset"`
	Limit       *int   `json:"limit"`
}

// GetViewsRequest holds the parameters of getViews. Without a date the total
// number of views is returned.
type GetViewsRequest struct {
	Path  string `json:"path"`
	Year  *int   `json:"year,omitempty"`
	Month *int   `json:"month,omitempty"`
	Day   *int   `json:"day,omitempty"`
	Hour  *int   `json:"hour,omitempty"`
}

func (r GetAccountInfoRequest) withDefaults() GetAccountInfoRequest {
	if r.Fields == nil {
		r.Fields = append([]string(nil), DefaultAccountFields...)
	}
	return r
}

func (r CreatePageRequest) withDefaults() CreatePageRequest {
	if r.ReturnContent == nil {
		r.ReturnContent = Bool(false)
	}
	return r
}

func (r EditPageRequest) withDefaults() EditPageRequest {
	if r.ReturnContent == nil {
		r.ReturnContent = Bool(false)
	}
	return r
}

func (r GetPageRequest) withDefaults() GetPageRequest {
	if r.ReturnContent == nil {
		r.ReturnContent = Bool(false)
	}
	return r
}

func (r GetPageListRequest) withDefaults() GetPageListRequest {
	if r.Offset == nil {
		r.Offset = Int(DefaultPageListOffset)
	}
	if r.Limit == nil {
		r.Limit = Int(DefaultPageListLimit)
	}
	return r
}

func (r CreateAccountRequest) validate() error {
	if err := checkLength("short_name", r.ShortName, 1, 32); err != nil {
		return err
	}
	return checkAuthor(r.AuthorName, r.AuthorURL)
}

func (r EditAccountInfoRequest) validate() error {
	if r.AccessToken == "" {
		return required("access_token")
	}
	if r.ShortName != nil {
		if err := checkLength("short_name", *r.ShortName, 1, 32); err != nil {
			return err
		}
	}
	return checkAuthor(deref(r.AuthorName), deref(r.AuthorURL))
}

func (r GetAccountInfoRequest) validate() error {
	if r.AccessToken == "" {
		return required("access_token")
	}
	for _, f := range r.Fields {
		if !accountFields[f] {
			return &ValidationError{Field: "fields", Reason: fmt.Sprintf("unknown field %q", f)}
		}
	}
	return nil
}

func (r RevokeAccessTokenRequest) validate() error {
	if r.AccessToken == "" {
		return required("access_token")
	}
	return nil
}

func (r CreatePageRequest) validate() error {
	if r.AccessToken == "" {
		return required("access_token")
	}
	return checkPage(r.Title, r.AuthorName, r.AuthorURL, r.Content)
}

func (r EditPageRequest) validate() error {
	if r.AccessToken == "" {
		return required("access_token")
	}
	if r.Path == "" {
		return required("path")
	}
	return checkPage(r.Title, r.AuthorName, r.AuthorURL, r.Content)
}

func (r GetPageRequest) validate() error {
	if r.Path == "" {
		return required("path")
	}
	return nil
}

func (r GetPageListRequest) validate() error {
	if r.AccessToken == "" {
		return required("access_token")
	}
	if r.Offset != nil && *r.Offset < 0 {
		return &ValidationError{Field: "offset", Reason: "must not be negative"}
	}
	if r.Limit != nil && (*r.Limit < 0 || *r.Limit > MaxPageListLimit) {
		return &ValidationError{Field: "limit", Reason: fmt.Sprintf("must be between 0 and %d", MaxPageListLimit)}
	}
	return nil
}

func (r GetViewsRequest) validate() error {
	if r.Path == "" {
		return required("path")
	}

	checks := []struct {
		name     string
		value    *int
		min, max int
		parent   *int
		needs    string
	}{
		{"year", r.Year, 2000, 2100, nil, ""},
		{"month", r.Month, 1, 12, r.Year, "year"},
		{"day", r.Day, 1, 31, r.Month, "month"},
		{"hour", r.Hour, 0, 24, r.Day, "day"},
	}
	for i, c := range checks {
		if c.value == nil {
			continue
		}
		if *c.value < c.min || *c.value > c.max {
			return &ValidationError{Field: c.name, Reason: fmt.Sprintf("must be between %d and %d", c.min, c.max)}
		}
		if i > 0 && c.parent == nil {
			return &ValidationError{Field: c.name, Reason: c.needs + " is required when " + c.name + " is passed"}
		}
	}
	return nil
}

func checkPage(title, authorName, authorURL string, content []Node) error {
	if err := checkLength("title", title, 1, 256); err != nil {
		return err
	}
	if err := checkAuthor(authorName, authorURL); err != nil {
		return err
	}
	if len(content) == 0 {
		return required("content")
	}
	return checkNodes(content)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func checkAuthor(name, url string) error {
	if err := checkLength("author_name", name, 0, 128); err != nil {
		return err
	}
	return checkLength("author_url", url, 0, 512)
}

func checkNodes(nodes []Node) error {
	for _, n := range nodes {
		if n.Element == nil {
			continue
		}
		if !IsAllowedTag(n.Element.Tag) {
			return &ValidationError{Field: "content", Reason: fmt.Sprintf("tag %q is not allowed", n.Element.Tag)}
		}
		for attr := range n.Element.Attrs {
			if attr != "href" && attr != "src" {
				return &ValidationError{Field: "content", Reason: fmt.Sprintf("attribute %q is not allowed", attr)}
			}
		}
		if err := checkNodes(n.Element.Children); err != nil {
			return err
		}
	}
	return nil
}

func checkLength(field, value string, min, max int) error {
	n := utf8.RuneCountInString(value)
	if n < min || n > max {
		if min > 0 && n == 0 {
			return required(field)
		}
		return &ValidationError{Field: field, Reason: fmt.Sprintf("must be %d-%d characters", min, max)}
	}
	return nil
}

func required(field string) error {
	return &ValidationError{Field: field, Reason: "is required"}
}
