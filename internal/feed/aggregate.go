// Package feed assembles post rows, like rows, and comment rows into the
// views the API serves, and keeps those views fresh as changes arrive.
package feed

import (
	"wendle/internal/models"
)

// PostView is one feed entry: the post plus the counts and viewer flags the
// client renders.
type PostView struct {
	Post           models.Post `json:"post"`
	LikeCount      int         `json:"like_count"`
	CommentCount   int         `json:"comment_count"`
	ViewerHasLiked bool        `json:"viewer_has_liked"`
}

// Aggregate joins likes and comments onto posts. Likes and comments whose
// post is not in the input are ignored. A viewerID of 0 means anonymous and
// never sets ViewerHasLiked. Output order follows the input post order.
func Aggregate(posts []models.Post, likes []models.Like, comments []models.Comment, viewerID uint) []PostView {
	likeCounts := make(map[uint]int, len(posts))
	viewerLiked := make(map[uint]bool)
	for _, l := range likes {
		likeCounts[l.PostID]++
		if viewerID != 0 && l.UserID == viewerID {
			viewerLiked[l.PostID] = true
		}
	}

	commentCounts := make(map[uint]int, len(posts))
	for _, c := range comments {
		commentCounts[c.PostID]++
	}

	views := make([]PostView, 0, len(posts))
	for _, p := range posts {
		views = append(views, PostView{
			Post:           p,
			LikeCount:      likeCounts[p.ID],
			CommentCount:   commentCounts[p.ID],
			ViewerHasLiked: viewerLiked[p.ID],
		})
	}
	return views
}
