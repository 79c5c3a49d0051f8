package feed

import (
	"context"
	"log/slog"
	"sync"

	"wendle/internal/changefeed"
	"wendle/internal/models"
	"wendle/internal/observability"
)

// CommentNode is one rendered comment. Replies are only ever one level
// deep; a reply's Replies slice is always empty and ViewerCanReply false.
type CommentNode struct {
	Comment        models.Comment `json:"comment"`
	IsOwn          bool           `json:"is_own"`
	ViewerCanReply bool           `json:"viewer_can_reply"`
	Expanded       bool           `json:"expanded"`
	Replies        []CommentNode  `json:"replies"`
}

// BuildTree folds a flat, oldest-first comment list into a two-level tree.
// Top-level comments keep their input order, as do each comment's replies.
// Replies whose parent is missing from the input are dropped.
func BuildTree(comments []models.Comment, viewerID uint) []CommentNode {
	nodes := make([]CommentNode, 0, len(comments))
	index := make(map[uint]int, len(comments))

	for _, c := range comments {
		if c.ParentID == nil {
			nodes = append(nodes, CommentNode{
				Comment:        c,
				IsOwn:          viewerID != 0 && c.UserID == viewerID,
				ViewerCanReply: true,
			})
			index[c.ID] = len(nodes) - 1
		}
	}
	for _, c := range comments {
		if c.ParentID == nil {
			continue
		}
		i, ok := index[*c.ParentID]
		if !ok {
			continue
		}
		nodes[i].Replies = append(nodes[i].Replies, CommentNode{
			Comment: c,
			IsOwn:   viewerID != 0 && c.UserID == viewerID,
		})
	}
	return nodes
}

// CommentFetchFunc loads a post's comments, oldest first.
type CommentFetchFunc func(ctx context.Context) ([]models.Comment, error)

// Thread keeps one post's comment tree current. Expansion of reply lists is
// purely view state: it survives refreshes and never touches the store.
type Thread struct {
	mu       sync.Mutex
	state    State
	nodes    []CommentNode
	expanded map[uint]bool
	seq      uint64
	applied  uint64

	postID   uint
	viewerID uint
	fetch    CommentFetchFunc
	broker   *changefeed.Broker
	sub      *changefeed.Subscription
	logger   *slog.Logger
}

// NewThread creates an unmounted Thread for one post. viewerID 0 means an
// anonymous viewer.
func NewThread(postID, viewerID uint, fetch CommentFetchFunc, broker *changefeed.Broker, logger *slog.Logger) *Thread {
	if logger == nil {
		logger = slog.Default()
	}
	return &Thread{
		state:    StateIdle,
		expanded: make(map[uint]bool),
		postID:   postID,
		viewerID: viewerID,
		fetch:    fetch,
		broker:   broker,
		logger:   logger,
	}
}

// Mount subscribes to this post's comment changes and loads the thread.
func (t *Thread) Mount(ctx context.Context) {
	t.mu.Lock()
	if t.sub == nil && t.broker != nil {
		t.sub = t.broker.Subscribe(changefeed.TableComments,
			changefeed.Filter{PostID: t.postID},
			func(changefeed.Change) { go t.Refresh(context.Background()) },
		)
	}
	t.mu.Unlock()

	t.Refresh(ctx)
}

// Unmount drops the change subscription.
func (t *Thread) Unmount() {
	t.mu.Lock()
	sub := t.sub
	t.sub = nil
	t.mu.Unlock()

	if sub != nil {
		t.broker.Unsubscribe(sub)
	}
}

// Refresh re-pulls the comment rows and rebuilds the tree,
// last-issued-wins like FeedView.
func (t *Thread) Refresh(ctx context.Context) {
	t.mu.Lock()
	t.seq++
	mine := t.seq
	if t.state == StateIdle {
		t.state = StateLoading
	}
	t.mu.Unlock()

	comments, err := t.fetch(ctx)

	t.mu.Lock()
	defer t.mu.Unlock()

	if mine <= t.applied {
		observability.FeedRefreshes.WithLabelValues("thread", observability.RefreshDiscarded).Inc()
		return
	}
	t.applied = mine

	if err != nil {
		t.logger.Error("thread refresh failed", "post_id", t.postID, "error", err)
		observability.FeedRefreshes.WithLabelValues("thread", observability.RefreshFailed).Inc()
		if t.state == StateLoading {
			t.state = StateIdle
		}
		return
	}

	t.nodes = BuildTree(comments, t.viewerID)
	t.state = StateReady
	observability.FeedRefreshes.WithLabelValues("thread", observability.RefreshApplied).Inc()
}

// ToggleExpanded flips whether a top-level comment shows its replies.
func (t *Thread) ToggleExpanded(commentID uint) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.expanded[commentID] = !t.expanded[commentID]
}

// Snapshot returns the current state and a copy of the tree with the
// viewer's expansion flags applied. Collapsed nodes still report their
// reply count through the Replies slice.
func (t *Thread) Snapshot() (State, []CommentNode) {
	t.mu.Lock()
	defer t.mu.Unlock()

	nodes := make([]CommentNode, len(t.nodes))
	copy(nodes, t.nodes)
	for i := range nodes {
		nodes[i].Expanded = t.expanded[nodes[i].Comment.ID]
	}
	return t.state, nodes
}
