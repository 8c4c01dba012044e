package main

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/rs/zerolog/log"

	"github.com/Brace1000/forum-client-go/forum/rest"
)

// feedView renders the post feed with like toggling and filter cycling.
type feedView struct {
	app    *App
	layout tview.Primitive
	header *tview.TextView
	list   *tview.List

	posts   []rest.Post
	filters rest.PostFilters
	cats    []rest.Category
	catIdx  int

	// mu guards the request generation so a slow response for an old
	// filter cannot overwrite a newer one.
	mu     sync.Mutex
	gen    int
	cancel context.CancelFunc
}

func newFeedView(a *App) *feedView {
	f := &feedView{app: a, catIdx: -1}
	f.header = tview.NewTextView().SetDynamicColors(true)
	f.list = tview.NewList().ShowSecondaryText(true)
	f.list.SetBorder(true)
	f.list.SetTitle(" Posts ")
	f.list.SetSelectedFunc(func(index int, _, _ string, _ rune) { f.toggleLike(index) })
	f.list.SetInputCapture(f.handleKeys)
	f.layout = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(f.header, 1, 0, false).
		AddItem(f.list, 0, 1, true)
	return f
}

func (f *feedView) handleKeys(event *tcell.EventKey) *tcell.EventKey {
	switch event.Rune() {
	case 'r':
		f.reload()
		return nil
	case 'f':
		f.cycleOwnFilter()
		return nil
	case 'c':
		f.cycleCategory()
		return nil
	}
	return event
}

// reload fetches posts for the current filters. Each call supersedes any
// in-flight request.
func (f *feedView) reload() {
	f.mu.Lock()
	f.gen++
	gen := f.gen
	if f.cancel != nil {
		f.cancel()
	}
	ctx, cancel := context.WithCancel(f.app.ctx)
	f.cancel = cancel
	f.mu.Unlock()

	filters := f.filters
	f.header.SetText("loading posts...")

	go func() {
		defer cancel()
		posts, err := f.app.api.Posts(ctx, filters)
		f.app.ui.QueueUpdateDraw(func() {
			f.mu.Lock()
			stale := gen != f.gen
			f.mu.Unlock()
			if stale {
				return
			}
			if err != nil {
				f.header.SetText("[red]Failed to load posts.[-] Press r to retry.")
				log.Warn().Err(err).Msg("load posts failed")
				return
			}
			f.posts = posts
			f.render()
		})
	}()
}

func (f *feedView) render() {
	current := f.list.GetCurrentItem()
	f.list.Clear()
	for _, p := range f.posts {
		liked := " "
		if p.UserLiked {
			liked = "[red]*[-]"
		}
		main := fmt.Sprintf("%s %s  [gray]by %s  %d likes, %d comments[-]",
			liked, escapeContent(p.Title), escapeContent(p.AuthorName()), p.LikeCount, p.CommentCount)
		secondary := "  " + escapeContent(truncate(p.Content, 100))
		if p.Categories != "" {
			secondary += "  [blue][" + escapeContent(p.Categories) + "][-]"
		}
		f.list.AddItem(main, secondary, 0, nil)
	}
	if current >= 0 && current < f.list.GetItemCount() {
		f.list.SetCurrentItem(current)
	}
	f.header.SetText(f.headerText())
}

func (f *feedView) headerText() string {
	scope := "all posts"
	switch {
	case f.filters.MyPostsOnly:
		scope = "my posts"
	case f.filters.LikedPostsOnly:
		scope = "liked posts"
	}
	if f.catIdx >= 0 && f.catIdx < len(f.cats) {
		scope += " / " + f.cats[f.catIdx].Name
	}
	return fmt.Sprintf("%d posts (%s)  Enter like  f filter  c category  r reload", len(f.posts), scope)
}

func (f *feedView) cycleOwnFilter() {
	if !f.app.ctrl.Session().Authenticated {
		f.header.SetText("Login to filter by your posts or likes")
		return
	}
	switch {
	case f.filters.MyPostsOnly:
		f.filters.MyPostsOnly = false
		f.filters.LikedPostsOnly = true
	case f.filters.LikedPostsOnly:
		f.filters.LikedPostsOnly = false
	default:
		f.filters.MyPostsOnly = true
	}
	f.reload()
}

func (f *feedView) cycleCategory() {
	if f.cats == nil {
		go func() {
			cats, err := f.app.api.Categories(f.app.ctx)
			f.app.ui.QueueUpdateDraw(func() {
				if err != nil {
					f.header.SetText("[red]Failed to load categories.[-] Press c to retry.")
					return
				}
				f.cats = cats
				f.advanceCategory()
			})
		}()
		return
	}
	f.advanceCategory()
}

func (f *feedView) advanceCategory() {
	f.catIdx++
	if f.catIdx >= len(f.cats) {
		f.catIdx = -1
	}
	if f.catIdx < 0 {
		f.filters.Category = ""
	} else {
		f.filters.Category = strconv.Itoa(f.cats[f.catIdx].ID)
	}
	f.reload()
}

func (f *feedView) toggleLike(index int) {
	if index < 0 || index >= len(f.posts) {
		return
	}
	if !f.app.ctrl.Session().Authenticated {
		f.header.SetText("Login to like posts")
		return
	}
	post := f.posts[index]
	go func() {
		resp, err := f.app.api.ToggleLike(f.app.ctx, post.PostID)
		f.app.ui.QueueUpdateDraw(func() {
			if err != nil {
				f.header.SetText("[red]" + tview.Escape(err.Error()) + "[-]")
				return
			}
			if index < len(f.posts) && f.posts[index].PostID == post.PostID {
				f.posts[index].UserLiked = resp.Liked
				f.posts[index].LikeCount = resp.LikeCount
				f.render()
			}
		})
	}()
}
