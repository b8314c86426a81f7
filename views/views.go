// Package views holds the HTML templates and the pure builders that turn
// stored records into the data the templates render.
package views

import (
	"embed"
	"html/template"
	"time"

	"github.com/cppla/yapper/models"
	"github.com/cppla/yapper/utils"
)

//go:embed templates/*.html
var templateFS embed.FS

// Template names.
const (
	HomeTemplate             = "home.html"
	LoginRegisterTemplate    = "loginRegister.html"
	RegisterUsernameTemplate = "registerUsername.html"
	ProfileTemplate          = "profile.html"
	ErrorTemplate            = "error.html"
	ProviderLogoutTemplate   = "googleLogout.html"
)

// Load parses every embedded template.
func Load() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"markdown": utils.RenderMarkdown,
		"datetime": func(t time.Time) string { return t.Local().Format("Jan 2, 2006 15:04") },
	}).ParseFS(templateFS, "templates/*.html")
}

// UserView is the user as pages see it. The zero value stands for an anonymous visitor.
type UserView struct {
	ID          uint
	Username    string
	AvatarURL   string
	MemberSince time.Time
}

type ReplyView struct {
	ReplyID        uint
	OriginalPostID uint
	Content        string
	Username       string
	Timestamp      time.Time
	Likes          int
	Mine           bool
}

type PostView struct {
	ID        uint
	Title     string
	Content   string
	Username  string
	Timestamp time.Time
	Likes     int
	Edited    bool
	Mine      bool
	Replies   []ReplyView
}

type HomePage struct {
	User         UserView
	Posts        []PostView
	Sort         string
	EmojiEnabled bool
}

type ProfilePage struct {
	User  UserView
	Posts []PostView
}

// NewUserView converts a user record; nil yields the anonymous view.
func NewUserView(u *models.User) UserView {
	if u == nil {
		return UserView{}
	}
	return UserView{ID: u.ID, Username: u.Username, AvatarURL: u.AvatarURL, MemberSince: u.MemberSince}
}

// NewHomePage attaches each reply to its post. Replies whose post is gone are dropped.
func NewHomePage(user *models.User, posts []models.Post, replies []models.Reply, sort string, emojiEnabled bool) HomePage {
	viewer := NewUserView(user)
	return HomePage{
		User:         viewer,
		Posts:        buildPosts(viewer.Username, posts, replies),
		Sort:         sort,
		EmojiEnabled: emojiEnabled,
	}
}

// NewProfilePage lists the user's own posts with their replies.
func NewProfilePage(user models.User, posts []models.Post, replies []models.Reply) ProfilePage {
	return ProfilePage{
		User:  NewUserView(&user),
		Posts: buildPosts(user.Username, posts, replies),
	}
}

func buildPosts(viewer string, posts []models.Post, replies []models.Reply) []PostView {
	byPost := make(map[uint][]ReplyView, len(posts))
	for _, r := range replies {
		byPost[r.OriginalPostID] = append(byPost[r.OriginalPostID], ReplyView{
			ReplyID:        r.ReplyID,
			OriginalPostID: r.OriginalPostID,
			Content:        utils.NormalizeContent(r.Content),
			Username:       r.Username,
			Timestamp:      r.Timestamp,
			Likes:          r.Likes,
			Mine:           viewer != "" && r.Username == viewer,
		})
	}

	out := make([]PostView, 0, len(posts))
	for _, p := range posts {
		out = append(out, PostView{
			ID:        p.ID,
			Title:     p.Title,
			Content:   utils.NormalizeContent(p.Content),
			Username:  p.Username,
			Timestamp: p.Timestamp,
			Likes:     p.Likes,
			Edited:    p.Edited,
			Mine:      viewer != "" && p.Username == viewer,
			Replies:   byPost[p.ID],
		})
	}
	return out
}
