package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"taskhub/internal/logging"
	"taskhub/internal/middleware"
	"taskhub/internal/models"
	"taskhub/internal/repositories"
	"taskhub/internal/services"
)

const maxPageSize = 100

// Page is the list envelope: {count, next, previous, results}.
type Page struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  any     `json:"results"`
}

// paging is the parsed page/page_size pair.
type paging struct {
	page int
	size int
}

func (p paging) offset() int { return (p.page - 1) * p.size }

func parsePaging(c *gin.Context, defaultSize int) (paging, error) {
	p := paging{page: 1, size: defaultSize}
	if v := c.Query("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return p, fmt.Errorf("invalid page %q", v)
		}
		p.page = n
	}
	if v := c.Query("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return p, fmt.Errorf("invalid page_size %q", v)
		}
		p.size = n
	}
	if p.size > maxPageSize {
		p.size = maxPageSize
	}
	return p, nil
}

// writePage answers 404 for a page past the end, like any paginated collection.
func writePage(c *gin.Context, p paging, count int, results any) {
	if p.page > 1 && p.offset() >= count {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invalid page."})
		return
	}
	body := Page{Count: count, Results: results}
	if p.offset()+p.size < count {
		next := pageURL(c, p.page+1)
		body.Next = &next
	}
	if p.page > 1 {
		prev := pageURL(c, p.page-1)
		body.Previous = &prev
	}
	c.JSON(http.StatusOK, body)
}

// pageURL rebuilds the absolute request URL with the page parameter replaced.
func pageURL(c *gin.Context, page int) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if fwd := c.GetHeader("X-Forwarded-Proto"); fwd != "" {
		scheme = fwd
	}
	q := c.Request.URL.Query()
	if page == 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}
	u := url.URL{Scheme: scheme, Host: c.Request.Host, Path: c.Request.URL.Path, RawQuery: q.Encode()}
	return u.String()
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found."})
		return 0, false
	}
	return id, true
}

func queryInt64(c *gin.Context, key string) (*int64, error) {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: enter a whole number", key)
	}
	return &n, nil
}

func queryDate(c *gin.Context, key string) (*models.Date, error) {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return nil, nil
	}
	d, err := models.ParseDate(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", key, err)
	}
	return &d, nil
}

// queryTime accepts RFC3339 or a bare date (midnight UTC).
func queryTime(c *gin.Context, key string) (*time.Time, error) {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	d, err := models.ParseDate(v)
	if err != nil {
		return nil, fmt.Errorf("%s: enter a valid date/time", key)
	}
	return &d.Time, nil
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// respondError maps service errors to HTTP answers; tags prefix the log line.
func respondError(c *gin.Context, err error, tags ...string) {
	op := "[" + strings.Join(tags, "][") + "]"
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		body := gin.H{"error": verr.Message}
		if verr.Field != "" {
			body["field"] = verr.Field
		}
		c.JSON(http.StatusBadRequest, body)
	case errors.Is(err, repositories.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found."})
	case errors.Is(err, services.ErrNotificationFailed):
		logging.Logger.Errorf("%s[err] %v", op, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "notification failed"})
	default:
		logging.Logger.Errorf("%s[err] %v", op, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func currentUser(c *gin.Context) int64 {
	return middleware.UserID(c)
}

// optionalID tells an absent key from an explicit null.
type optionalID struct {
	Set   bool
	Value *int64
}

func (o *optionalID) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	var v int64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}
