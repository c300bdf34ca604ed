package knowledge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<html>
<head><title>粗大ごみの申込方法</title><style>body { color: red }</style></head>
<body>
<nav>メニュー</nav>
<script>console.log("tracking")</script>
<h1>粗大ごみの申込方法</h1>
<p>粗大ごみは   事前申込制です。</p>
<footer>市役所</footer>
</body>
</html>`

func TestFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(samplePage))
	}))
	defer server.Close()

	fetcher := NewFetcher(5 * time.Second)
	title, content, err := fetcher.Fetch(context.Background(), server.URL)
	require.NoError(t, err)

	assert.Equal(t, "粗大ごみの申込方法", title)
	assert.Contains(t, content, "粗大ごみは 事前申込制です。")
	assert.NotContains(t, content, "メニュー")
	assert.NotContains(t, content, "tracking")
	assert.NotContains(t, content, "市役所")
}

func TestFetchNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := NewFetcher(5 * time.Second)
	_, _, err := fetcher.Fetch(context.Background(), server.URL)
	assert.Error(t, err)
}

func TestCleanHTMLCollapsesWhitespace(t *testing.T) {
	text := cleanHTML("<html><body><p>一行目</p>\n\n<p>二行目</p></body></html>")
	assert.Equal(t, "一行目 二行目", text)
}

func TestExtractTitleFallsBackToH1(t *testing.T) {
	title := extractTitle("<html><body><h1>見出しのみ</h1></body></html>")
	assert.Equal(t, "見出しのみ", title)
}
