package controllers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cppla/yapper/cache"
	"github.com/cppla/yapper/utils"
)

const (
	emojiCachePrefix = "cache:emoji:"
	emojiCacheTTL    = time.Hour
	emojiMaxBody     = 1 << 20
)

// Emoji is one search result returned to the page script.
type Emoji struct {
	Slug        string `json:"slug"`
	Character   string `json:"character"`
	UnicodeName string `json:"unicodeName"`
	Group       string `json:"group"`
}

// EmojiController proxies the third-party emoji lookup so the API key stays server side.
type EmojiController struct {
	apiKey string
	base   string
	client *http.Client
	cache  cache.Cache
}

func NewEmojiController(apiKey, base string, client *http.Client, c cache.Cache) *EmojiController {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &EmojiController{apiKey: apiKey, base: strings.TrimRight(base, "/"), client: client, cache: c}
}

// Enabled reports whether an API key is configured.
func (e *EmojiController) Enabled() bool { return e.apiKey != "" }

// Search returns the emojis matching the search query param as a JSON array.
func (e *EmojiController) Search(ctx *gin.Context) {
	if !e.Enabled() {
		utils.JSONError(ctx, http.StatusNotFound, "emoji lookup disabled")
		return
	}
	term := strings.ToLower(strings.TrimSpace(ctx.Query("search")))
	if term == "" {
		ctx.JSON(http.StatusOK, []Emoji{})
		return
	}

	key := emojiCachePrefix + term
	if b, ok := e.cache.Get(ctx.Request.Context(), key); ok {
		ctx.Data(http.StatusOK, "application/json; charset=utf-8", b)
		return
	}

	results, err := e.fetch(ctx, term)
	if err != nil {
		utils.Sugar.Warnw("emoji lookup failed", "term", term, "error", err)
		utils.JSONError(ctx, http.StatusBadGateway, "emoji lookup failed")
		return
	}
	cache.SetJSON(ctx.Request.Context(), e.cache, key, results, emojiCacheTTL)
	ctx.JSON(http.StatusOK, results)
}

func (e *EmojiController) fetch(ctx *gin.Context, term string) ([]Emoji, error) {
	q := url.Values{"search": {term}, "access_key": {e.apiKey}}
	req, err := http.NewRequestWithContext(ctx.Request.Context(), http.MethodGet, e.base+"/emojis?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upstream status %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, emojiMaxBody))
	if err != nil {
		return nil, err
	}
	// no matches come back as an object or null instead of an array
	results := []Emoji{}
	if trimmed := strings.TrimSpace(string(body)); strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(body, &results); err != nil {
			return nil, fmt.Errorf("decode emojis: %w", err)
		}
	}
	return results, nil
}
