package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/majordomo-ai/majordomo/pkg/logger"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var (
	ddgLinkRe    = regexp.MustCompile(`<a[^>]*class="[^"]*result__a[^"]*"[^>]*href="([^"]+)"[^>]*>([\s\S]*?)</a>`)
	ddgSnippetRe = regexp.MustCompile(`<a class="result__snippet[^"]*".*?>([\s\S]*?)</a>`)
	tagRe        = regexp.MustCompile(`<[^>]+>`)
	scriptRe     = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleRe      = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
)

// SearchTool queries the DuckDuckGo HTML endpoint and extracts the top
// results with a regex pass, no headless browser involved.
type SearchTool struct {
	searchURL  string
	maxResults int
	httpClient *http.Client
}

func NewSearchTool(maxResults int) *SearchTool {
	if maxResults <= 0 {
		maxResults = 3
	}
	return &SearchTool{
		searchURL:  "https://html.duckduckgo.com/html/",
		maxResults: maxResults,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *SearchTool) Name() string {
	return "search_internet"
}

func (t *SearchTool) Description() string {
	return "Useful for searching the internet to find information on any topic. Input is the search query."
}

func (t *SearchTool) Invoke(ctx context.Context, input string) string {
	query := trimInput(input)
	if query == "" {
		return "Necesito un texto de búsqueda."
	}

	endpoint := fmt.Sprintf("%s?q=%s", t.searchURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Sprintf("Error realizando la búsqueda en Internet: %v", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		logger.ErrorCF("web", "Search request failed", map[string]interface{}{"error": err.Error()})
		return fmt.Sprintf("Error realizando la búsqueda en Internet: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Sprintf("Error realizando la búsqueda en Internet: %v", err)
	}

	return t.extractResults(string(body), query)
}

func (t *SearchTool) extractResults(html, query string) string {
	matches := ddgLinkRe.FindAllStringSubmatch(html, t.maxResults+5)
	if len(matches) == 0 {
		return fmt.Sprintf("No se encontraron resultados para la búsqueda: '%s'", query)
	}

	snippets := ddgSnippetRe.FindAllStringSubmatch(html, t.maxResults+5)

	lines := []string{fmt.Sprintf("Resultados de búsqueda para '%s':", query)}
	limit := min(len(matches), t.maxResults)
	for i := 0; i < limit; i++ {
		href := matches[i][1]
		title := strings.TrimSpace(tagRe.ReplaceAllString(matches[i][2], ""))

		// DuckDuckGo wraps targets in a redirect with the real URL in uddg=.
		if strings.Contains(href, "uddg=") {
			if u, err := url.QueryUnescape(href); err == nil {
				if idx := strings.Index(u, "uddg="); idx != -1 {
					href = u[idx+5:]
				}
			}
		}

		entry := fmt.Sprintf("%d. %s\n   %s", i+1, title, href)
		if i < len(snippets) {
			if snippet := strings.TrimSpace(tagRe.ReplaceAllString(snippets[i][1], "")); snippet != "" {
				entry += "\n   " + snippet
			}
		}
		lines = append(lines, entry)
	}

	return strings.Join(lines, "\n")
}

// FetchTool downloads a page and reduces it to readable text: script and
// style elements removed, remaining markup stripped, whitespace collapsed,
// output truncated with a marker.
type FetchTool struct {
	maxChars   int
	httpClient *http.Client
}

func NewFetchTool(maxChars int) *FetchTool {
	if maxChars <= 0 {
		maxChars = 1000
	}
	return &FetchTool{
		maxChars:   maxChars,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *FetchTool) Name() string {
	return "get_webpage_content"
}

func (t *FetchTool) Description() string {
	return "Useful for fetching the content of a specific webpage. Input is the URL of the webpage."
}

func (t *FetchTool) Invoke(ctx context.Context, input string) string {
	rawURL := trimInput(input)
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Sprintf("Error obteniendo el contenido de la página web: URL no válida: %s", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Sprintf("Error obteniendo el contenido de la página web: %v", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		logger.ErrorCF("web", "Page fetch failed", map[string]interface{}{
			"url":   rawURL,
			"error": err.Error(),
		})
		return fmt.Sprintf("Error obteniendo el contenido de la página web: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Sprintf("Error obteniendo el contenido de la página web: estado HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return fmt.Sprintf("Error obteniendo el contenido de la página web: %v", err)
	}

	text := extractText(string(body))
	if len(text) > t.maxChars {
		cut := t.maxChars
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut] + "... (contenido truncado)"
	}

	return fmt.Sprintf("Contenido de %s:\n\n%s", rawURL, text)
}

func extractText(html string) string {
	html = scriptRe.ReplaceAllString(html, "")
	html = styleRe.ReplaceAllString(html, "")
	html = tagRe.ReplaceAllString(html, "\n")

	var lines []string
	for _, line := range strings.Split(html, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
