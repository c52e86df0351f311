package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/majordomo-ai/majordomo/pkg/logger"
)

const newsUnavailable = "Lo siento, el servicio de noticias no está disponible en este momento."

const maxNewsArticles = 5

// NewsTool queries NewsAPI. Plain topics go through the free-text search
// endpoint; when a category or country is present in the input the query
// switches to the curated top-headlines endpoint.
type NewsTool struct {
	apiKey        string
	everythingURL string
	headlinesURL  string
	httpClient    *http.Client
}

func NewNewsTool(apiKey string) *NewsTool {
	return &NewsTool{
		apiKey:        strings.TrimSpace(apiKey),
		everythingURL: "https://newsapi.org/v2/everything",
		headlinesURL:  "https://newsapi.org/v2/top-headlines",
		httpClient:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *NewsTool) Name() string {
	return "get_news"
}

func (t *NewsTool) Description() string {
	return "Useful for getting the latest news on a specific topic, category, or from a specific country. " +
		"Input is the topic, optionally followed by '; category=<business|entertainment|general|health|science|sports|technology>' " +
		"and/or '; country=<2-letter code>', e.g. 'inteligencia artificial; category=technology; country=es'."
}

type newsQuery struct {
	Topic    string
	Category string
	Country  string
}

// parseNewsInput splits "topic; category=x; country=y" into its parts.
// Unknown key=value segments are ignored rather than rejected.
func parseNewsInput(input string) newsQuery {
	q := newsQuery{}
	for i, segment := range strings.Split(trimInput(input), ";") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		key, value, isKV := strings.Cut(segment, "=")
		if isKV {
			switch strings.ToLower(strings.TrimSpace(key)) {
			case "category":
				q.Category = strings.ToLower(strings.TrimSpace(value))
			case "country":
				q.Country = strings.ToLower(strings.TrimSpace(value))
			}
			continue
		}
		if i == 0 {
			q.Topic = segment
		}
	}
	return q
}

func (t *NewsTool) Invoke(ctx context.Context, input string) string {
	q := parseNewsInput(input)
	if t.apiKey == "" {
		logger.WarnC("news", "NewsAPI key not configured")
		return newsUnavailable
	}
	if q.Topic == "" && q.Category == "" && q.Country == "" {
		return "Necesito un tema para buscar noticias."
	}

	endpoint := t.everythingURL
	params := url.Values{}
	params.Set("apiKey", t.apiKey)
	params.Set("pageSize", fmt.Sprintf("%d", maxNewsArticles))
	params.Set("language", "es")
	if q.Topic != "" {
		params.Set("q", q.Topic)
	}
	if q.Category != "" || q.Country != "" {
		endpoint = t.headlinesURL
		if q.Category != "" {
			params.Set("category", q.Category)
		}
		if q.Country != "" {
			params.Set("country", q.Country)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "Error obteniendo noticias. No se pudo conectar al servicio de noticias."
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		logger.ErrorCF("news", "News request failed", map[string]interface{}{"error": err.Error()})
		return "Error obteniendo noticias. No se pudo conectar al servicio de noticias."
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil || resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		logger.ErrorCF("news", "News request returned error", map[string]interface{}{
			"status": resp.StatusCode,
		})
		return "Error obteniendo noticias. No se pudo conectar al servicio de noticias."
	}

	var data struct {
		TotalResults int `json:"totalResults"`
		Articles     []struct {
			Title  string `json:"title"`
			Source struct {
				Name string `json:"name"`
			} `json:"source"`
			Description string `json:"description"`
			URL         string `json:"url"`
		} `json:"articles"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return "Error obteniendo noticias. Respuesta inesperada del servicio de noticias."
	}

	if data.TotalResults == 0 || len(data.Articles) == 0 {
		return fmt.Sprintf("No se encontraron noticias para '%s'", q.Topic)
	}

	lines := []string{"Últimas noticias:"}
	for idx, article := range data.Articles {
		if idx >= maxNewsArticles {
			break
		}
		title := article.Title
		if title == "" {
			title = "Sin título"
		}
		source := article.Source.Name
		if source == "" {
			source = "Fuente desconocida"
		}
		description := article.Description
		if description == "" {
			description = "Sin descripción"
		}
		lines = append(lines, fmt.Sprintf("%d. %s (%s)\n   %s\n   %s", idx+1, title, source, description, article.URL))
	}
	return strings.Join(lines, "\n")
}
