package server

import (
	"net/http"
	"time"

	"takkeh/internal/domain"
	"takkeh/internal/service"

	"github.com/gin-gonic/gin"
)

func (s *Server) followHandler(c *gin.Context) {
	id, err := idParam(c, "shopId")
	if err != nil {
		s.respondError(c, err)
		return
	}
	if err := s.social.Follow(c.Request.Context(), principal(c), id); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "following"})
}

func (s *Server) unfollowHandler(c *gin.Context) {
	id, err := idParam(c, "shopId")
	if err != nil {
		s.respondError(c, err)
		return
	}
	if err := s.social.Unfollow(c.Request.Context(), principal(c), id); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "unfollowed"})
}

type followerJSON struct {
	UserID     int64     `json:"user_id"`
	Name       string    `json:"name"`
	FollowedAt time.Time `json:"followed_at"`
}

func (s *Server) listFollowersHandler(c *gin.Context) {
	id, err := idParam(c, "shopId")
	if err != nil {
		s.respondError(c, err)
		return
	}
	followers, err := s.social.ListFollowers(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"followers": mapSlice(followers, func(f domain.Follower) followerJSON {
		return followerJSON{UserID: f.UserID, Name: f.Name, FollowedAt: f.FollowedAt}
	})})
}

type createPostRequest struct {
	Title      string `json:"title" binding:"required"`
	Content    string `json:"content"`
	PhotoURL   string `json:"photo_url" binding:"omitempty,url"`
	CategoryID *int64 `json:"category_id"`
}

func (s *Server) createPostHandler(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBindError(c, err)
		return
	}
	post, err := s.social.CreatePost(c.Request.Context(), principal(c), service.PostInput{
		Title: req.Title, Content: req.Content, PhotoURL: req.PhotoURL, CategoryID: req.CategoryID,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toPostJSON(*post))
}

func (s *Server) listShopPostsHandler(c *gin.Context) {
	id, err := idParam(c, "shopId")
	if err != nil {
		s.respondError(c, err)
		return
	}
	limit, err := intQuery(c, "limit", 0)
	if err != nil {
		s.respondError(c, err)
		return
	}
	posts, err := s.social.ListPosts(c.Request.Context(), id, limit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": mapSlice(posts, toPostJSON)})
}

func (s *Server) listRecentPostsHandler(c *gin.Context) {
	limit, err := intQuery(c, "limit", 0)
	if err != nil {
		s.respondError(c, err)
		return
	}
	posts, err := s.social.ListRecentPosts(c.Request.Context(), limit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": mapSlice(posts, toPostJSON)})
}

type addCommentRequest struct {
	Content string `json:"content" binding:"required"`
}

func (s *Server) addCommentHandler(c *gin.Context) {
	postID, err := idParam(c, "postId")
	if err != nil {
		s.respondError(c, err)
		return
	}
	var req addCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBindError(c, err)
		return
	}
	comment, err := s.social.AddComment(c.Request.Context(), principal(c), postID, req.Content)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toCommentJSON(*comment))
}

func (s *Server) deleteCommentHandler(c *gin.Context) {
	postID, err := idParam(c, "postId")
	if err != nil {
		s.respondError(c, err)
		return
	}
	commentID, err := idParam(c, "commentId")
	if err != nil {
		s.respondError(c, err)
		return
	}
	if err := s.social.DeleteComment(c.Request.Context(), principal(c), postID, commentID); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "comment deleted"})
}

func (s *Server) listCommentsHandler(c *gin.Context) {
	postID, err := idParam(c, "postId")
	if err != nil {
		s.respondError(c, err)
		return
	}
	comments, err := s.social.ListComments(c.Request.Context(), postID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": mapSlice(comments, toCommentJSON)})
}

func (s *Server) likeHandler(c *gin.Context) {
	postID, err := idParam(c, "postId")
	if err != nil {
		s.respondError(c, err)
		return
	}
	if err := s.social.Like(c.Request.Context(), principal(c), postID); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "liked"})
}

func (s *Server) unlikeHandler(c *gin.Context) {
	postID, err := idParam(c, "postId")
	if err != nil {
		s.respondError(c, err)
		return
	}
	if err := s.social.Unlike(c.Request.Context(), principal(c), postID); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "unliked"})
}

func (s *Server) likeCountHandler(c *gin.Context) {
	postID, err := idParam(c, "postId")
	if err != nil {
		s.respondError(c, err)
		return
	}
	n, err := s.social.LikeCount(c.Request.Context(), postID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"post_id": postID, "likes": n})
}

type likerJSON struct {
	UserID  int64     `json:"user_id"`
	Name    string    `json:"name"`
	LikedAt time.Time `json:"liked_at"`
}

func (s *Server) listLikersHandler(c *gin.Context) {
	postID, err := idParam(c, "postId")
	if err != nil {
		s.respondError(c, err)
		return
	}
	likers, err := s.social.ListLikers(c.Request.Context(), postID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": mapSlice(likers, func(l domain.Liker) likerJSON {
		return likerJSON{UserID: l.UserID, Name: l.Name, LikedAt: l.LikedAt}
	})})
}

func (s *Server) commentCountHandler(c *gin.Context) {
	postID, err := idParam(c, "postId")
	if err != nil {
		s.respondError(c, err)
		return
	}
	n, err := s.social.CommentCount(c.Request.Context(), postID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"post_id": postID, "comments": n})
}

type createCategoryRequest struct {
	Name string `json:"name" binding:"required"`
}

func (s *Server) createCategoryHandler(c *gin.Context) {
	var req createCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondBindError(c, err)
		return
	}
	category, err := s.social.CreateCategory(c.Request.Context(), principal(c), req.Name)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toCategoryJSON(*category))
}

func (s *Server) listCategoriesHandler(c *gin.Context) {
	cats, err := s.social.ListCategories(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": mapSlice(cats, toCategoryJSON)})
}
