package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"github.com/voocel/agentcore/schema"
)

// FetchTool fetches web content and converts it to text or markdown.
// Read-only: it performs network I/O but has no observable side effect
// on the workspace.
type FetchTool struct {
	client      *http.Client
	maxBodySize int64
}

type fetchArgs struct {
	URL    string `json:"url"`
	Format string `json:"format"`
}

func NewFetch(maxBodySize int64) *FetchTool {
	if maxBodySize <= 0 {
		maxBodySize = 5 * 1024 * 1024 // Default: 5MB.
	}
	return &FetchTool{
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		maxBodySize: maxBodySize,
	}
}

func (t *FetchTool) Name() string  { return "fetch" }
func (t *FetchTool) Label() string { return "Fetch URL" }
func (t *FetchTool) Description() string {
	return "Fetch content from a URL. Converts HTML pages to plain text or markdown."
}
func (t *FetchTool) Schema() map[string]any {
	return schema.Object(
		schema.Property("url", schema.String("The URL to fetch content from")).Required(),
		schema.Property("format", schema.Enum("Output format", "text", "markdown", "html")).Required(),
	)
}

func (t *FetchTool) Execute(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
	var a fetchArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, fmt.Errorf("invalid args: %w", err)
	}

	if !strings.HasPrefix(a.URL, "http://") && !strings.HasPrefix(a.URL, "https://") {
		return nil, fmt.Errorf("url must start with http:// or https://")
	}
	format := strings.ToLower(a.Format)
	if format != "text" && format != "markdown" && format != "html" {
		return nil, fmt.Errorf("format must be one of: text, markdown, html")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, a.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("User-Agent", "agentcore-fetch/1.0")

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", a.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", a.URL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, t.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	content := string(body)
	if !utf8.ValidString(content) {
		return nil, fmt.Errorf("response content is not valid UTF-8")
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "text/html") {
		switch format {
		case "text":
			content, err = extractTextFromHTML(content)
		case "markdown":
			content, err = convertHTMLToMarkdown(content)
		case "html":
			content, err = extractBodyHTML(content)
		}
		if err != nil {
			return nil, fmt.Errorf("convert to %s: %w", format, err)
		}
	}

	out, _, outputLines, wasTruncated := TruncateHead(content, defaultMaxLines, defaultMaxBytes)
	if wasTruncated {
		out += fmt.Sprintf("\n\n[Content truncated: showing %d lines.]", outputLines)
	}
	return json.Marshal(out)
}

func extractTextFromHTML(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript").Remove()
	return strings.TrimSpace(doc.Text()), nil
}

func convertHTMLToMarkdown(html string) (string, error) {
	converter := md.NewConverter("", true, nil)
	return converter.ConvertString(html)
}

func extractBodyHTML(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	body, err := doc.Find("body").Html()
	if err != nil {
		return "", err
	}
	if body == "" {
		return "", fmt.Errorf("no body content found")
	}
	return "<html>\n<body>\n" + body + "\n</body>\n</html>", nil
}
