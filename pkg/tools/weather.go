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
	"unicode/utf8"

	"github.com/majordomo-ai/majordomo/pkg/logger"
)

const weatherUnavailable = "Lo siento, el servicio meteorológico no está disponible en este momento."

// WeatherTool resolves a free-text location through the OpenWeatherMap
// geocoding API and then fetches current conditions.
type WeatherTool struct {
	apiKey     string
	geocodeURL string
	weatherURL string
	httpClient *http.Client
}

func NewWeatherTool(apiKey string) *WeatherTool {
	return &WeatherTool{
		apiKey:     strings.TrimSpace(apiKey),
		geocodeURL: "https://api.openweathermap.org/geo/1.0/direct",
		weatherURL: "https://api.openweathermap.org/data/2.5/weather",
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *WeatherTool) Name() string {
	return "get_weather"
}

func (t *WeatherTool) Description() string {
	return "Useful for when you need to get the current weather in a specific location. Input is the location name, e.g. Madrid."
}

func (t *WeatherTool) Invoke(ctx context.Context, input string) string {
	if t.apiKey == "" {
		logger.WarnC("weather", "OpenWeatherMap API key not configured")
		return weatherUnavailable
	}
	location := trimInput(input)
	if location == "" {
		return "Necesito el nombre de una ubicación para consultar el tiempo."
	}

	lat, lon, found, err := t.geocode(ctx, location)
	if err != nil {
		logger.ErrorCF("weather", "Geocoding failed", map[string]interface{}{
			"location": location,
			"error":    err.Error(),
		})
		return fmt.Sprintf("Error al obtener el tiempo en %s. No se pudo conectar al servicio meteorológico.", location)
	}
	if !found {
		return fmt.Sprintf("No se pudo encontrar la ubicación: %s", location)
	}

	report, err := t.currentConditions(ctx, location, lat, lon)
	if err != nil {
		logger.ErrorCF("weather", "Weather lookup failed", map[string]interface{}{
			"location": location,
			"error":    err.Error(),
		})
		return fmt.Sprintf("Error al obtener el tiempo en %s. No se pudo conectar al servicio meteorológico.", location)
	}
	return report
}

func (t *WeatherTool) geocode(ctx context.Context, location string) (lat, lon float64, found bool, err error) {
	endpoint := fmt.Sprintf("%s?q=%s&limit=1&appid=%s", t.geocodeURL, url.QueryEscape(location), t.apiKey)
	body, err := t.get(ctx, endpoint)
	if err != nil {
		return 0, 0, false, err
	}

	var places []struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	}
	if err := json.Unmarshal(body, &places); err != nil {
		return 0, 0, false, fmt.Errorf("parse geocoding response: %w", err)
	}
	if len(places) == 0 {
		return 0, 0, false, nil
	}
	return places[0].Lat, places[0].Lon, true, nil
}

func (t *WeatherTool) currentConditions(ctx context.Context, location string, lat, lon float64) (string, error) {
	endpoint := fmt.Sprintf("%s?lat=%f&lon=%f&appid=%s&units=metric&lang=es", t.weatherURL, lat, lon, t.apiKey)
	body, err := t.get(ctx, endpoint)
	if err != nil {
		return "", err
	}

	var data struct {
		Name string `json:"name"`
		Sys  struct {
			Country string `json:"country"`
		} `json:"sys"`
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
		Main struct {
			Temp      *float64 `json:"temp"`
			FeelsLike *float64 `json:"feels_like"`
			Humidity  *float64 `json:"humidity"`
		} `json:"main"`
		Wind struct {
			Speed *float64 `json:"speed"`
		} `json:"wind"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return "", fmt.Errorf("parse weather response: %w", err)
	}

	city := data.Name
	if city == "" {
		city = location
	}

	var b strings.Builder
	b.WriteString("El tiempo en " + city)
	if data.Sys.Country != "" {
		b.WriteString(", " + data.Sys.Country)
	}
	b.WriteString(":\n")

	condition := ""
	if len(data.Weather) > 0 {
		condition = data.Weather[0].Description
	}
	b.WriteString(fmt.Sprintf("• Condición: %s\n", capitalize(condition)))

	// Fields absent from the provider response are simply omitted.
	if data.Main.Temp != nil {
		b.WriteString(fmt.Sprintf("• Temperatura: %.1f°C\n", *data.Main.Temp))
	}
	if data.Main.FeelsLike != nil {
		b.WriteString(fmt.Sprintf("• Sensación térmica: %.1f°C\n", *data.Main.FeelsLike))
	}
	if data.Main.Humidity != nil {
		b.WriteString(fmt.Sprintf("• Humedad: %.0f%%\n", *data.Main.Humidity))
	}
	if data.Wind.Speed != nil {
		b.WriteString(fmt.Sprintf("• Viento: %.1f m/s", *data.Wind.Speed))
	}

	return strings.TrimRight(b.String(), "\n"), nil
}

func (t *WeatherTool) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return body, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return strings.ToUpper(string(r)) + s[size:]
}
