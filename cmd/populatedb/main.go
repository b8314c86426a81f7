// Command populatedb creates the schema and inserts sample users and posts.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/cppla/yapper/avatar"
	"github.com/cppla/yapper/config"
	"github.com/cppla/yapper/models"
	"github.com/cppla/yapper/store"
	"github.com/cppla/yapper/utils"
)

type sampleUser struct {
	username    string
	hashedID    string
	memberSince time.Time
}

type samplePost struct {
	title     string
	content   string
	username  string
	timestamp time.Time
}

var (
	sampleUsers = []sampleUser{
		{"SampleUser", "hashedGoogleId1", time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)},
		{"AnotherUser", "hashedGoogleId2", time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)},
	}
	samplePosts = []samplePost{
		{"Sample Post", "This is a sample post.", "SampleUser", time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)},
		{"Another Post", "This is another sample post.", "AnotherUser", time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)},
	}
)

func main() {
	configPath := flag.String("config", filepath.Join("config", "config.json"), "optional JSON config file")
	flag.Parse()

	cfg, err := config.Read(*configPath)
	if err != nil {
		log.Fatalf("read config: %v", err)
	}
	cfg.LogPath = ""
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db := config.InitDatabase(cfg, &models.User{}, &models.Post{}, &models.Reply{})
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	gen := avatar.NewGenerator(avatar.NewLocalStore(cfg.AvatarDir, cfg.AvatarURLPrefix), cfg.AvatarSize)
	if err := seed(context.Background(), store.NewUserStore(db, nil), store.NewPostStore(db), gen); err != nil {
		utils.Sugar.Fatalf("populate database: %v", err)
	}
	utils.Sugar.Info("Database populated with initial data.")
}

type avatarGenerator interface {
	EnsureAvatar(ctx context.Context, username string) (string, error)
}

// seed inserts the sample rows. Users that already exist are left alone and
// their posts are not inserted again, so running it twice is harmless.
func seed(ctx context.Context, users *store.UserStore, posts *store.PostStore, avatars avatarGenerator) error {
	created := map[string]bool{}
	for _, su := range sampleUsers {
		url, err := avatars.EnsureAvatar(ctx, su.username)
		if err != nil {
			return fmt.Errorf("avatar for %s: %w", su.username, err)
		}
		err = users.Create(ctx, &models.User{
			Username:         su.username,
			HashedExternalID: su.hashedID,
			AvatarURL:        url,
			MemberSince:      su.memberSince,
		})
		if errors.Is(err, store.ErrDuplicateKey) {
			continue
		}
		if err != nil {
			return fmt.Errorf("create user %s: %w", su.username, err)
		}
		created[su.username] = true
	}

	for _, sp := range samplePosts {
		if !created[sp.username] {
			continue
		}
		if err := posts.Create(ctx, &models.Post{
			Title:     sp.title,
			Content:   sp.content,
			Username:  sp.username,
			Timestamp: sp.timestamp,
		}); err != nil {
			return fmt.Errorf("create post %q: %w", sp.title, err)
		}
	}
	return nil
}
