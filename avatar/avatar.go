// Package avatar generates and stores the initial-letter profile tiles.
package avatar

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cppla/yapper/utils"
)

// DefaultSize is the edge length of a tile in pixels.
const DefaultSize = 200

// ErrInvalidName is returned for usernames that cannot name an avatar file.
var ErrInvalidName = errors.New("invalid avatar name")

var avatarsGenerated = promauto.NewCounter(prometheus.CounterOpts{
	Name: "avatars_generated_total",
	Help: "Number of avatar images rendered and stored",
})

// Store keeps one image per username. Put never overwrites.
type Store interface {
	Exists(ctx context.Context, name string) (bool, error)
	// Put stores data under name unless something is there already; it reports whether it wrote.
	Put(ctx context.Context, name string, data []byte) (bool, error)
	URL(name string) string
}

// Generator renders avatars on demand.
type Generator struct {
	store Store
	size  int
	pick  func(n int) int
}

// NewGenerator returns a Generator drawing tiles of the given size into store.
func NewGenerator(store Store, size int) *Generator {
	if size <= 0 {
		size = DefaultSize
	}
	return &Generator{store: store, size: size, pick: rand.IntN}
}

// EnsureAvatar makes sure username has an avatar and returns its URL.
// An existing image is kept as is; the URL is the same either way.
func (g *Generator) EnsureAvatar(ctx context.Context, username string) (string, error) {
	if !utils.ValidUsername(username) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, username)
	}
	name := username + ".png"

	exists, err := g.store.Exists(ctx, name)
	if err != nil {
		return "", fmt.Errorf("check avatar: %w", err)
	}
	if exists {
		return g.store.URL(name), nil
	}

	bg := Palette[g.pick(len(Palette))]
	data, err := Render(Initial(username), bg, g.size)
	if err != nil {
		return "", err
	}
	wrote, err := g.store.Put(ctx, name, data)
	if err != nil {
		return "", fmt.Errorf("store avatar: %w", err)
	}
	if wrote {
		avatarsGenerated.Inc()
		utils.Sugar.Debugw("avatar generated", "username", username)
	}
	return g.store.URL(name), nil
}

// Initial returns the upper-cased first character of name.
func Initial(name string) string {
	r, _ := utf8.DecodeRuneInString(strings.TrimSpace(name))
	if r == utf8.RuneError {
		return "?"
	}
	return string(unicode.ToUpper(r))
}
