package handler

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"

	"go-forum-app/internal/data"
)

// SitemapSource lists the topics a sitemap advertises.
type SitemapSource interface {
	ListVisible(ctx context.Context, f data.TopicFilter) ([]*data.Topic, error)
}

const sitemapLimit = 1000

// SeoHandler holds dependencies for SEO-related handlers.
type SeoHandler struct {
	topics  SitemapSource
	baseURL string
}

// NewSeoHandler creates a new SeoHandler.
func NewSeoHandler(topics SitemapSource, baseURL string) *SeoHandler {
	return &SeoHandler{topics: topics, baseURL: strings.TrimRight(baseURL, "/")}
}

// robotsHandler serves robots.txt. Member-only pages are disallowed.
func (h *SeoHandler) robotsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "User-agent: *")
	fmt.Fprintln(w, "Allow: /")
	fmt.Fprintln(w, "Disallow: /t/create")
	fmt.Fprintln(w, "Disallow: /notifications")
	fmt.Fprintln(w, "Disallow: /auth/")
	fmt.Fprintln(w, "Disallow: /api/")
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Sitemap: %s/sitemap.xml\n", h.baseURL)
}

const sitemapDateFormat = "2006-01-02"

type sitemapURL struct {
	XMLName xml.Name `xml:"url"`
	Loc     string   `xml:"loc"`
	LastMod string   `xml:"lastmod"`
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

// sitemapHandler generates a sitemap of the most recently active visible topics.
func (h *SeoHandler) sitemapHandler(w http.ResponseWriter, r *http.Request) {
	topics, err := h.topics.ListVisible(r.Context(), data.TopicFilter{
		Ordering:    data.OrderLastRepliedDesc,
		IgnoreOrder: true,
		Limit:       sitemapLimit,
	})
	if err != nil {
		http.Error(w, "Failed to retrieve topics for sitemap", http.StatusInternalServerError)
		return
	}

	sitemap := urlSet{
		Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  make([]sitemapURL, len(topics)),
	}
	for i, t := range topics {
		sitemap.URLs[i] = sitemapURL{
			Loc:     fmt.Sprintf("%s/t/%d", h.baseURL, t.ID),
			LastMod: t.LastReplied.Format(sitemapDateFormat),
		}
	}

	out, err := xml.MarshalIndent(sitemap, "", "  ")
	if err != nil {
		http.Error(w, "Failed to generate sitemap XML", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.Write([]byte(xml.Header))
	w.Write(out)
}
