package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"takkeh/internal/database"
	"takkeh/internal/domain"
	"takkeh/internal/repo"
)

const (
	maxCommentLen      = 1000
	maxCategoryNameLen = 100
)

type PostInput struct {
	Title    string
	Content  string
	PhotoURL string
	// CategoryID is optional.
	CategoryID *int64
}

type SocialService interface {
	Follow(ctx context.Context, p domain.Principal, shopID int64) error
	Unfollow(ctx context.Context, p domain.Principal, shopID int64) error
	ListFollowers(ctx context.Context, shopID int64) ([]domain.Follower, error)

	CreatePost(ctx context.Context, p domain.Principal, in PostInput) (*domain.Post, error)
	ListPosts(ctx context.Context, shopID int64, limit int) ([]domain.Post, error)
	ListRecentPosts(ctx context.Context, limit int) ([]domain.Post, error)

	AddComment(ctx context.Context, p domain.Principal, postID int64, content string) (*domain.Comment, error)
	DeleteComment(ctx context.Context, p domain.Principal, postID, commentID int64) error
	ListComments(ctx context.Context, postID int64) ([]domain.Comment, error)

	Like(ctx context.Context, p domain.Principal, postID int64) error
	Unlike(ctx context.Context, p domain.Principal, postID int64) error
	LikeCount(ctx context.Context, postID int64) (int64, error)
	ListLikers(ctx context.Context, postID int64) ([]domain.Liker, error)
	CommentCount(ctx context.Context, postID int64) (int64, error)

	CreateCategory(ctx context.Context, p domain.Principal, name string) (*domain.Category, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
}

type socialService struct {
	tx     database.Transactor
	social repo.SocialRepo
	shops  repo.ShopRepo
	logger *slog.Logger
}

func NewSocialService(tx database.Transactor, social repo.SocialRepo, shops repo.ShopRepo, logger *slog.Logger) SocialService {
	return &socialService{tx: tx, social: social, shops: shops, logger: logger.With("component", "social_service")}
}

// Follow records the follow and bumps the shop's follower counter together.
func (s *socialService) Follow(ctx context.Context, p domain.Principal, shopID int64) error {
	if err := p.Require(domain.KindUser); err != nil {
		return err
	}
	err := s.tx.WithTx(ctx, func(tx *sql.Tx) error {
		inserted, err := s.social.Follow(ctx, tx, p.ID, shopID)
		if err != nil {
			return storageErr("follow shop", err)
		}
		if !inserted {
			return conflict("already following shop %d", shopID)
		}
		ok, err := s.shops.AdjustFollowers(ctx, tx, shopID, 1)
		if err != nil {
			return storageErr("increment followers", err)
		}
		if !ok {
			return notFound("shop %d", shopID)
		}
		return nil
	})
	if errors.Is(err, domain.ErrNotFound) {
		return notFound("shop %d", shopID)
	}
	if err != nil {
		return storageErr("follow shop", err)
	}
	return nil
}

func (s *socialService) Unfollow(ctx context.Context, p domain.Principal, shopID int64) error {
	if err := p.Require(domain.KindUser); err != nil {
		return err
	}
	err := s.tx.WithTx(ctx, func(tx *sql.Tx) error {
		deleted, err := s.social.Unfollow(ctx, tx, p.ID, shopID)
		if err != nil {
			return storageErr("unfollow shop", err)
		}
		if !deleted {
			return invalid("not following shop %d", shopID)
		}
		if _, err := s.shops.AdjustFollowers(ctx, tx, shopID, -1); err != nil {
			return storageErr("decrement followers", err)
		}
		return nil
	})
	if err != nil {
		return storageErr("unfollow shop", err)
	}
	return nil
}

func (s *socialService) requireShop(ctx context.Context, shopID int64) error {
	shop, err := s.shops.FindById(ctx, shopID)
	if err != nil {
		return storageErr("find shop", err)
	}
	if shop == nil {
		return notFound("shop %d", shopID)
	}
	return nil
}

func (s *socialService) ListFollowers(ctx context.Context, shopID int64) ([]domain.Follower, error) {
	if err := s.requireShop(ctx, shopID); err != nil {
		return nil, err
	}
	out, err := s.social.ListFollowers(ctx, shopID)
	if err != nil {
		return nil, storageErr("list followers", err)
	}
	return out, nil
}

func (s *socialService) CreatePost(ctx context.Context, p domain.Principal, in PostInput) (*domain.Post, error) {
	if err := p.Require(domain.KindShop); err != nil {
		return nil, err
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, invalid("post title is required")
	}

	if in.CategoryID != nil && *in.CategoryID <= 0 {
		return nil, invalid("category_id must be positive")
	}

	post := &domain.Post{ShopID: p.ID, Title: in.Title, Content: in.Content, PhotoURL: in.PhotoURL, CategoryID: in.CategoryID}
	err := s.tx.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.social.CreatePost(ctx, tx, post); err != nil {
			return storageErr("create post", err)
		}
		if in.CategoryID == nil {
			return nil
		}
		err := s.social.SetPostCategory(ctx, tx, post.ID, *in.CategoryID)
		if errors.Is(err, domain.ErrNotFound) {
			return notFound("category %d", *in.CategoryID)
		}
		if err != nil {
			return storageErr("set post category", err)
		}
		return nil
	})
	if err != nil {
		return nil, storageErr("create post", err)
	}
	return post, nil
}

func (s *socialService) ListPosts(ctx context.Context, shopID int64, limit int) ([]domain.Post, error) {
	posts, err := s.social.ListPosts(ctx, shopID, clampLimit(limit))
	if err != nil {
		return nil, storageErr("list posts", err)
	}
	return posts, nil
}

func (s *socialService) ListRecentPosts(ctx context.Context, limit int) ([]domain.Post, error) {
	posts, err := s.social.ListRecentPosts(ctx, clampLimit(limit))
	if err != nil {
		return nil, storageErr("list recent posts", err)
	}
	return posts, nil
}

func (s *socialService) requirePost(ctx context.Context, postID int64) error {
	post, err := s.social.FindPost(ctx, postID)
	if err != nil {
		return storageErr("find post", err)
	}
	if post == nil {
		return notFound("post %d", postID)
	}
	return nil
}

func (s *socialService) AddComment(ctx context.Context, p domain.Principal, postID int64, content string) (*domain.Comment, error) {
	if err := p.Require(domain.KindUser); err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, invalid("comment content is required")
	}
	if len(content) > maxCommentLen {
		return nil, invalid("comment longer than %d bytes", maxCommentLen)
	}
	if err := s.requirePost(ctx, postID); err != nil {
		return nil, err
	}

	c := &domain.Comment{PostID: postID, UserID: p.ID, Content: content}
	if _, err := s.social.AddComment(ctx, c); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, notFound("post %d", postID)
		}
		return nil, storageErr("add comment", err)
	}
	return c, nil
}

// DeleteComment lets a user remove only their own comment.
func (s *socialService) DeleteComment(ctx context.Context, p domain.Principal, postID, commentID int64) error {
	if err := p.Require(domain.KindUser); err != nil {
		return err
	}
	if err := s.requirePost(ctx, postID); err != nil {
		return err
	}
	c, err := s.social.FindComment(ctx, commentID)
	if err != nil {
		return storageErr("find comment", err)
	}
	if c == nil || c.PostID != postID {
		return notFound("comment %d", commentID)
	}
	if c.UserID != p.ID {
		return forbidden("comment %d belongs to another user", commentID)
	}

	ok, err := s.social.DeleteComment(ctx, commentID)
	if err != nil {
		return storageErr("delete comment", err)
	}
	if !ok {
		return notFound("comment %d", commentID)
	}
	return nil
}

func (s *socialService) ListComments(ctx context.Context, postID int64) ([]domain.Comment, error) {
	if err := s.requirePost(ctx, postID); err != nil {
		return nil, err
	}
	out, err := s.social.ListComments(ctx, postID)
	if err != nil {
		return nil, storageErr("list comments", err)
	}
	return out, nil
}

func (s *socialService) Like(ctx context.Context, p domain.Principal, postID int64) error {
	if err := p.Require(domain.KindUser); err != nil {
		return err
	}
	if err := s.requirePost(ctx, postID); err != nil {
		return err
	}
	inserted, err := s.social.Like(ctx, postID, p.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return notFound("post %d", postID)
		}
		return storageErr("like post", err)
	}
	if !inserted {
		return conflict("post %d already liked", postID)
	}
	return nil
}

func (s *socialService) Unlike(ctx context.Context, p domain.Principal, postID int64) error {
	if err := p.Require(domain.KindUser); err != nil {
		return err
	}
	deleted, err := s.social.Unlike(ctx, postID, p.ID)
	if err != nil {
		return storageErr("unlike post", err)
	}
	if !deleted {
		return invalid("post %d is not liked", postID)
	}
	return nil
}

func (s *socialService) LikeCount(ctx context.Context, postID int64) (int64, error) {
	if err := s.requirePost(ctx, postID); err != nil {
		return 0, err
	}
	n, err := s.social.LikeCount(ctx, postID)
	if err != nil {
		return 0, storageErr("count likes", err)
	}
	return n, nil
}

func (s *socialService) ListLikers(ctx context.Context, postID int64) ([]domain.Liker, error) {
	if err := s.requirePost(ctx, postID); err != nil {
		return nil, err
	}
	out, err := s.social.ListLikers(ctx, postID)
	if err != nil {
		return nil, storageErr("list likers", err)
	}
	return out, nil
}

func (s *socialService) CommentCount(ctx context.Context, postID int64) (int64, error) {
	if err := s.requirePost(ctx, postID); err != nil {
		return 0, err
	}
	n, err := s.social.CommentCount(ctx, postID)
	if err != nil {
		return 0, storageErr("count comments", err)
	}
	return n, nil
}

// CreateCategory adds a post category. Any shop may add one; names are
// unique regardless of case.
func (s *socialService) CreateCategory(ctx context.Context, p domain.Principal, name string) (*domain.Category, error) {
	if err := p.Require(domain.KindShop); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("category name is required")
	}
	if len(name) > maxCategoryNameLen {
		return nil, invalid("category name longer than %d bytes", maxCategoryNameLen)
	}

	c := &domain.Category{Name: name}
	if _, err := s.social.CreateCategory(ctx, c); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, conflict("category %q already exists", name)
		}
		return nil, storageErr("create category", err)
	}
	s.logger.InfoContext(ctx, "category created", "category_id", c.ID, "shop_id", p.ID)
	return c, nil
}

func (s *socialService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	out, err := s.social.ListCategories(ctx)
	if err != nil {
		return nil, storageErr("list categories", err)
	}
	return out, nil
}
