package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

const ddgSampleHTML = `
<div class="result">
  <a class="result__a" href="https://example.com/uno">Primer <b>resultado</b></a>
  <a class="result__snippet" href="#">Un fragmento sobre el tema.</a>
</div>
<div class="result">
  <a class="result__a" href="https://example.com/dos">Segundo resultado</a>
  <a class="result__snippet" href="#">Otro fragmento.</a>
</div>
`

func TestSearchTool_ExtractsResults(t *testing.T) {
	tool := NewSearchTool(3)
	got := tool.extractResults(ddgSampleHTML, "tema")

	assert.Contains(t, got, "Resultados de búsqueda para 'tema':")
	assert.Contains(t, got, "1. Primer resultado\n   https://example.com/uno")
	assert.Contains(t, got, "Un fragmento sobre el tema.")
	assert.Contains(t, got, "2. Segundo resultado")
}

func TestSearchTool_NoResults(t *testing.T) {
	tool := NewSearchTool(3)
	got := tool.extractResults("<html><body>nothing here</body></html>", "tema")
	assert.Equal(t, "No se encontraron resultados para la búsqueda: 'tema'", got)
}

func TestSearchTool_RespectsMaxResults(t *testing.T) {
	tool := NewSearchTool(1)
	got := tool.extractResults(ddgSampleHTML, "tema")
	assert.Contains(t, got, "1. Primer resultado")
	assert.NotContains(t, got, "2. Segundo resultado")
}

func TestFetchTool_StripsMarkupAndTruncates(t *testing.T) {
	page := `<html><head>
	<script>var ignored = true;</script>
	<style>body { color: red; }</style>
	</head><body>
	<h1>Título</h1>
	<p>Primer   párrafo    con espacios.</p>
	<p>` + strings.Repeat("relleno ", 200) + `</p>
	</body></html>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	}))
	defer srv.Close()

	tool := NewFetchTool(200)
	got := tool.Invoke(context.Background(), srv.URL)

	assert.Contains(t, got, "Contenido de "+srv.URL)
	assert.Contains(t, got, "Título")
	assert.Contains(t, got, "Primer párrafo con espacios.")
	assert.NotContains(t, got, "ignored")
	assert.NotContains(t, got, "color: red")
	assert.Contains(t, got, "... (contenido truncado)")
}

func TestFetchTool_TruncatesAtRuneBoundary(t *testing.T) {
	// 2 bytes into "año" lands mid-ñ; the cut must back up to the "a".
	page := "<html><body>" + strings.Repeat("año", 50) + "</body></html>"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	}))
	defer srv.Close()

	tool := NewFetchTool(2)
	got := tool.Invoke(context.Background(), srv.URL)

	assert.True(t, utf8.ValidString(got))
	assert.Contains(t, got, "a... (contenido truncado)")
	assert.NotContains(t, got, "�")
}

func TestFetchTool_RejectsNonHTTPURL(t *testing.T) {
	tool := NewFetchTool(1000)
	got := tool.Invoke(context.Background(), "ftp://example.com/x")
	assert.Contains(t, got, "URL no válida")
}

func TestFetchTool_HTTPErrorBecomesText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	tool := NewFetchTool(1000)
	got := tool.Invoke(context.Background(), srv.URL)
	assert.Contains(t, got, "estado HTTP 404")
}

func TestRegistry_InvokeAndCatalog(t *testing.T) {
	reg := NewRegistry()
	reg.Register(NewWeatherTool(""))
	reg.Register(NewNewsTool(""))

	assert.Equal(t, []string{"get_news", "get_weather"}, reg.Names())
	lines := reg.CatalogLines()
	assert.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "get_news: "))

	obs, ok := reg.Invoke(context.Background(), "get_weather", "Madrid")
	assert.True(t, ok)
	assert.Equal(t, weatherUnavailable, obs)

	_, ok = reg.Invoke(context.Background(), "paint_the_house", "blue")
	assert.False(t, ok, "unknown tool names are reported, not invented")
}
