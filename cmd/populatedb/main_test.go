package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/yapper/avatar"
	"github.com/cppla/yapper/config"
	"github.com/cppla/yapper/models"
	"github.com/cppla/yapper/store"
)

func TestSeedIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	db, err := config.OpenSQLite(filepath.Join(dir, "seed.db"), nil)
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db, &models.User{}, &models.Post{}, &models.Reply{}))

	users := store.NewUserStore(db, nil)
	posts := store.NewPostStore(db)
	gen := avatar.NewGenerator(avatar.NewLocalStore(filepath.Join(dir, "avatars"), "images/avatar"), 32)
	ctx := context.Background()

	require.NoError(t, seed(ctx, users, posts, gen))
	require.NoError(t, seed(ctx, users, posts, gen))

	all, err := users.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "SampleUser", all[0].Username)
	assert.Equal(t, "images/avatar/SampleUser.png", all[0].AvatarURL)

	list, err := posts.List(ctx, store.SortByDate)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Another Post", list[0].Title)
}
