package avatar

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextColor(t *testing.T) {
	white := color.RGBA{255, 255, 255, 255}
	black := color.RGBA{0, 0, 0, 255}
	assert.Equal(t, white, TextColor(color.RGBA{37, 61, 36, 255}))
	assert.Equal(t, white, TextColor(color.RGBA{125, 52, 92, 255}))
	assert.Equal(t, black, TextColor(color.RGBA{255, 230, 181, 255}))
	assert.Equal(t, black, TextColor(color.RGBA{186, 168, 76, 255}))
}

func TestInitial(t *testing.T) {
	assert.Equal(t, "S", Initial("sam"))
	assert.Equal(t, "É", Initial("élodie"))
	assert.Equal(t, "张", Initial("张三"))
	assert.Equal(t, "?", Initial(""))
}

func TestRenderProducesSquarePNG(t *testing.T) {
	bg := Palette[0]
	data, err := Render("S", bg, DefaultSize)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, DefaultSize, img.Bounds().Dx())
	assert.Equal(t, DefaultSize, img.Bounds().Dy())

	r, g, b, _ := img.At(0, 0).RGBA()
	assert.Equal(t, bg.R, uint8(r>>8))
	assert.Equal(t, bg.G, uint8(g>>8))
	assert.Equal(t, bg.B, uint8(b>>8))

	// the glyph lands inside the middle half of the tile
	inked := 0
	for y := DefaultSize / 4; y < 3*DefaultSize/4; y++ {
		for x := DefaultSize / 4; x < 3*DefaultSize/4; x++ {
			pr, pg, pb, _ := img.At(x, y).RGBA()
			if uint8(pr>>8) != bg.R || uint8(pg>>8) != bg.G || uint8(pb>>8) != bg.B {
				inked++
			}
		}
	}
	assert.Greater(t, inked, 100)
}

func TestEnsureAvatarIsWriteOnce(t *testing.T) {
	dir := t.TempDir()
	g := NewGenerator(NewLocalStore(dir, "images/avatar"), 0)
	ctx := context.Background()

	url, err := g.EnsureAvatar(ctx, "Sam")
	require.NoError(t, err)
	assert.Equal(t, "images/avatar/Sam.png", url)

	path := filepath.Join(dir, "Sam.png")
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	// a different colour would change the bytes if the file were rewritten
	g.pick = func(n int) int { return n - 1 }
	url, err = g.EnsureAvatar(ctx, "Sam")
	require.NoError(t, err)
	assert.Equal(t, "images/avatar/Sam.png", url)

	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEnsureAvatarRejectsUnsafeNames(t *testing.T) {
	g := NewGenerator(NewLocalStore(t.TempDir(), "images/avatar"), 0)
	for _, name := range []string{"", "../etc", "a/b", "has space"} {
		_, err := g.EnsureAvatar(context.Background(), name)
		assert.ErrorIs(t, err, ErrInvalidName, name)
	}
}

func TestLocalStoreConcurrentPutWritesOnce(t *testing.T) {
	s := NewLocalStore(t.TempDir(), "images/avatar")
	var wg sync.WaitGroup
	var mu sync.Mutex
	writes := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wrote, err := s.Put(context.Background(), "x.png", []byte("data"))
			assert.NoError(t, err)
			if wrote {
				mu.Lock()
				writes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, writes)
}

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := aws.ToString(in.Key)
	if _, ok := f.objects[key]; ok && aws.ToString(in.IfNoneMatch) == "*" {
		return nil, &smithy.GenericAPIError{Code: "PreconditionFailed", Message: "At least one of the pre-conditions you specified did not hold"}
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(in.Body); err != nil {
		return nil, err
	}
	f.objects[key] = buf.Bytes()
	return &s3.PutObjectOutput{}, nil
}

func TestS3Store(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}}
	s := NewS3Store(fake, "bucket", "avatars/", "https://cdn.example.com/")
	ctx := context.Background()

	ok, err := s.Exists(ctx, "Sam.png")
	require.NoError(t, err)
	assert.False(t, ok)

	wrote, err := s.Put(ctx, "Sam.png", []byte("one"))
	require.NoError(t, err)
	assert.True(t, wrote)

	wrote, err = s.Put(ctx, "Sam.png", []byte("two"))
	require.NoError(t, err)
	assert.False(t, wrote)
	assert.Equal(t, []byte("one"), fake.objects["avatars/Sam.png"])

	ok, err = s.Exists(ctx, "Sam.png")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "https://cdn.example.com/avatars/Sam.png", s.URL("Sam.png"))

	g := NewGenerator(s, 0)
	url, err := g.EnsureAvatar(ctx, "Ann")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/avatars/Ann.png", url)
	assert.Contains(t, fake.objects, "avatars/Ann.png")
}

type failingStore struct{ *LocalStore }

func (failingStore) Exists(context.Context, string) (bool, error) {
	return false, errors.New("disk on fire")
}

func TestEnsureAvatarPropagatesStoreErrors(t *testing.T) {
	g := NewGenerator(failingStore{NewLocalStore(t.TempDir(), "")}, 0)
	_, err := g.EnsureAvatar(context.Background(), "Sam")
	assert.Error(t, err)
}
