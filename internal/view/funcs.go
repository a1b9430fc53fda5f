package view

import (
	"crypto/md5"
	"encoding/hex"
	"html/template"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	firstLastAmount   = 2
	beforeAfterAmount = 4
)

// Funcs returns the helpers available to every template.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"gravatar":  Gravatar,
		"pages":     PageNumbers,
		"pageURL":   PageURL,
		"orderURL":  OrderURL,
		"timesince": TimeSince,
		"date":      func(t time.Time) string { return t.Format("2006-01-02 15:04") },
		"add":       func(a, b int) int { return a + b },
		"deref":     func(p *int64) int64 { return deref(p) },
	}
}

// Gravatar returns the gravatar URL of an email address.
func Gravatar(email string, size int) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	q := url.Values{}
	q.Set("d", "identicon")
	q.Set("s", strconv.Itoa(size))
	return "https://www.gravatar.com/avatar/" + hex.EncodeToString(sum[:]) + "?" + q.Encode()
}

// PageNumbers lists the page links around current. A zero marks a gap.
// The first and last two pages are always shown, plus four pages on each
// side of the current one.
func PageNumbers(current, numPages int) []int {
	var pages []int

	if current > firstLastAmount+beforeAfterAmount {
		for i := 1; i <= firstLastAmount; i++ {
			pages = append(pages, i)
		}
		if firstLastAmount+beforeAfterAmount+1 != numPages {
			pages = append(pages, 0)
		}
		for i := current - beforeAfterAmount; i < current; i++ {
			pages = append(pages, i)
		}
	} else {
		for i := 1; i < current; i++ {
			pages = append(pages, i)
		}
	}

	if current+firstLastAmount+beforeAfterAmount < numPages {
		for i := current; i <= current+beforeAfterAmount; i++ {
			pages = append(pages, i)
		}
		pages = append(pages, 0)
		for i := numPages - firstLastAmount + 1; i <= numPages; i++ {
			pages = append(pages, i)
		}
	} else {
		for i := current; i <= numPages; i++ {
			pages = append(pages, i)
		}
	}
	return pages
}

// PageURL returns u with its page query parameter set. Page 1 drops the parameter.
func PageURL(u *url.URL, page int) string {
	if page <= 1 {
		return withQuery(u, "page", "")
	}
	return withQuery(u, "page", strconv.Itoa(page))
}

// OrderURL returns u ordered by ordering, back on the first page.
func OrderURL(u *url.URL, ordering string) string {
	return withQuery(withQueryURL(u, "page", ""), "order", ordering)
}

// TimeSince renders a coarse relative time such as "3 hours ago".
func TimeSince(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d/time.Minute), "minute")
	case d < 24*time.Hour:
		return plural(int(d/time.Hour), "hour")
	case d < 30*24*time.Hour:
		return plural(int(d/(24*time.Hour)), "day")
	default:
		return t.Format("2006-01-02")
	}
}

func plural(n int, unit string) string {
	if n != 1 {
		unit += "s"
	}
	return strconv.Itoa(n) + " " + unit + " ago"
}

func withQueryURL(u *url.URL, key, value string) *url.URL {
	c := *u
	q := c.Query()
	if value == "" {
		q.Del(key)
	} else {
		q.Set(key, value)
	}
	c.RawQuery = q.Encode()
	return &c
}

func withQuery(u *url.URL, key, value string) string {
	c := withQueryURL(u, key, value)
	if c.RawQuery == "" {
		return c.Path
	}
	return c.Path + "?" + c.RawQuery
}

func deref(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}
