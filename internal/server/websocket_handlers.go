package server

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"wendle/internal/changefeed"
	"wendle/internal/feed"
	"wendle/internal/observability"
	"wendle/internal/realtime"
)

// WebsocketChangesHandler upgrades the connection and serves the change
// stream. Every client receives table-level change events; a client can
// additionally watch one post to get full thread snapshots on every comment
// change.
func (s *Server) WebsocketChangesHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals("userID").(uint)

		client, err := s.hub.Register(userID, conn)
		if err != nil {
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "connection limit reached"))
			_ = conn.Close()
			return
		}

		watcher := &postWatcher{server: s, client: client, userID: userID}
		client.IncomingHandler = watcher.handleMessage
		defer watcher.stop()

		go client.WritePump()
		client.ReadPump()
	})
}

// postWatcher holds one connection's thread subscription. Watching a new
// post replaces the previous watch.
type postWatcher struct {
	server *Server
	client *realtime.Client
	userID uint

	mu     sync.Mutex
	postID uint
	thread *feed.Thread
	sub    *changefeed.Subscription
}

type watcherCommand struct {
	Type      string `json:"type"`
	PostID    uint   `json:"post_id"`
	CommentID uint   `json:"comment_id"`
}

type threadEvent struct {
	Type     string             `json:"type"`
	PostID   uint               `json:"post_id"`
	State    feed.State         `json:"state"`
	Comments []feed.CommentNode `json:"comments"`
}

func (w *postWatcher) handleMessage(_ *realtime.Client, data []byte) {
	var cmd watcherCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		return
	}

	switch cmd.Type {
	case "watch_post":
		w.watch(cmd.PostID)
	case "unwatch_post":
		w.stop()
	case "toggle_replies":
		w.toggleReplies(cmd.CommentID)
	}
}

func (w *postWatcher) watch(postID uint) {
	if postID == 0 {
		return
	}
	w.stop()

	// The thread gets no broker of its own; this watcher owns the
	// subscription so a refresh and its snapshot push stay paired.
	th := feed.NewThread(postID, w.userID,
		w.server.commentService.ThreadFetch(postID),
		nil, observability.GlobalLogger.Logger)

	sub := w.server.broker.Subscribe(changefeed.TableComments,
		changefeed.Filter{PostID: postID},
		func(changefeed.Change) {
			go func() {
				th.Refresh(context.Background())
				w.push(postID, th)
			}()
		})

	w.mu.Lock()
	w.postID = postID
	w.thread = th
	w.sub = sub
	w.mu.Unlock()

	th.Refresh(context.Background())
	w.push(postID, th)
}

func (w *postWatcher) toggleReplies(commentID uint) {
	w.mu.Lock()
	th := w.thread
	postID := w.postID
	w.mu.Unlock()

	if th == nil || commentID == 0 {
		return
	}
	th.ToggleExpanded(commentID)
	w.push(postID, th)
}

func (w *postWatcher) push(postID uint, th *feed.Thread) {
	state, nodes := th.Snapshot()
	data, err := json.Marshal(threadEvent{
		Type:     "thread",
		PostID:   postID,
		State:    state,
		Comments: nodes,
	})
	if err != nil {
		return
	}
	w.client.TrySend(data)
}

func (w *postWatcher) stop() {
	w.mu.Lock()
	sub := w.sub
	w.postID = 0
	w.thread = nil
	w.sub = nil
	w.mu.Unlock()

	if sub != nil {
		w.server.broker.Unsubscribe(sub)
	}
}
