package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	domain "github.com/brp-commerce/api/internal/domain"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

var (
	errEmptyBody    = errors.New("request body is empty")
	errBodyTooLarge = errors.New("request body too large")
)

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errEmptyBody
	}
	if limit <= 0 {
		limit = 64 * 1024
	}
	reader := io.LimitReader(r.Body, limit+1)
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errEmptyBody
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

func parsePagination(query map[string][]string) (domain.Pagination, error) {
	pager := domain.Pagination{PageSize: defaultPageSize}
	if values, ok := query["page_token"]; ok && len(values) > 0 {
		pager.PageToken = strings.TrimSpace(values[0])
	}
	values, ok := query["page_size"]
	if !ok || len(values) == 0 || strings.TrimSpace(values[0]) == "" {
		return pager, nil
	}
	size, err := strconv.Atoi(strings.TrimSpace(values[0]))
	if err != nil {
		return pager, errors.New("page_size must be an integer")
	}
	switch {
	case size <= 0:
		pager.PageSize = defaultPageSize
	case size > maxPageSize:
		pager.PageSize = maxPageSize
	default:
		pager.PageSize = size
	}
	return pager, nil
}

func parseFilterValues(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{})
	filters := make([]string, 0, len(values))
	for _, raw := range values {
		for _, part := range strings.Split(raw, ",") {
			trimmed := strings.ToUpper(strings.TrimSpace(part))
			if trimmed == "" {
				continue
			}
			if _, exists := seen[trimmed]; exists {
				continue
			}
			seen[trimmed] = struct{}{}
			filters = append(filters, trimmed)
		}
	}
	return filters
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func stringFromPtr(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}
