package repo

import (
	"context"
	"database/sql"
	"errors"

	"takkeh/internal/domain"
)

type SocialRepo interface {
	// Follow reports false when the user already follows the shop.
	Follow(ctx context.Context, tx *sql.Tx, userId, shopId int64) (bool, error)
	Unfollow(ctx context.Context, tx *sql.Tx, userId, shopId int64) (bool, error)
	ListFollowers(ctx context.Context, shopId int64) ([]domain.Follower, error)

	CreatePost(ctx context.Context, tx *sql.Tx, post *domain.Post) (int64, error)
	// SetPostCategory files a post under a category; an unknown category
	// yields domain.ErrNotFound.
	SetPostCategory(ctx context.Context, tx *sql.Tx, postId, categoryId int64) error
	FindPost(ctx context.Context, id int64) (*domain.Post, error)
	ListPosts(ctx context.Context, shopId int64, limit int) ([]domain.Post, error)
	ListRecentPosts(ctx context.Context, limit int) ([]domain.Post, error)

	AddComment(ctx context.Context, c *domain.Comment) (int64, error)
	FindComment(ctx context.Context, id int64) (*domain.Comment, error)
	DeleteComment(ctx context.Context, id int64) (bool, error)
	ListComments(ctx context.Context, postId int64) ([]domain.Comment, error)

	// Like reports false when the user already liked the post.
	Like(ctx context.Context, postId, userId int64) (bool, error)
	Unlike(ctx context.Context, postId, userId int64) (bool, error)
	LikeCount(ctx context.Context, postId int64) (int64, error)
	ListLikers(ctx context.Context, postId int64) ([]domain.Liker, error)
	CommentCount(ctx context.Context, postId int64) (int64, error)

	// CreateCategory returns domain.ErrConflict when the name is taken,
	// ignoring case.
	CreateCategory(ctx context.Context, c *domain.Category) (int64, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
}

type socialRepo struct {
	db *sql.DB
}

func NewSocialRepo(db *sql.DB) SocialRepo {
	return &socialRepo{db: db}
}

func (r *socialRepo) Follow(ctx context.Context, tx *sql.Tx, userId, shopId int64) (bool, error) {
	res, err := conn(r.db, tx).ExecContext(ctx,
		"INSERT INTO user_shop_follows (user_id, shop_id) VALUES ($1, $2) ON CONFLICT DO NOTHING", userId, shopId)
	if IsForeignKeyViolation(err) {
		return false, domain.ErrNotFound
	}
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (r *socialRepo) Unfollow(ctx context.Context, tx *sql.Tx, userId, shopId int64) (bool, error) {
	res, err := conn(r.db, tx).ExecContext(ctx,
		"DELETE FROM user_shop_follows WHERE user_id = $1 AND shop_id = $2", userId, shopId)
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (r *socialRepo) ListFollowers(ctx context.Context, shopId int64) ([]domain.Follower, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT u.user_id, u.name, f.created_at
		FROM user_shop_follows f JOIN users u ON u.user_id = f.user_id
		WHERE f.shop_id = $1
		ORDER BY f.created_at DESC`, shopId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Follower
	for rows.Next() {
		var f domain.Follower
		if err := rows.Scan(&f.UserID, &f.Name, &f.FollowedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *socialRepo) CreatePost(ctx context.Context, tx *sql.Tx, post *domain.Post) (int64, error) {
	err := conn(r.db, tx).QueryRowContext(ctx,
		"INSERT INTO posts (shop_id, title, content, photo_url) VALUES ($1, $2, $3, $4) RETURNING post_id, created_at",
		post.ShopID, post.Title, post.Content, post.PhotoURL,
	).Scan(&post.ID, &post.CreatedAt)
	if err != nil {
		return 0, err
	}
	return post.ID, nil
}

func (r *socialRepo) SetPostCategory(ctx context.Context, tx *sql.Tx, postId, categoryId int64) error {
	_, err := conn(r.db, tx).ExecContext(ctx, `
		INSERT INTO post_categories (post_id, category_id) VALUES ($1, $2)
		ON CONFLICT (post_id) DO UPDATE SET category_id = EXCLUDED.category_id`,
		postId, categoryId)
	if IsForeignKeyViolation(err) {
		return domain.ErrNotFound
	}
	return err
}

const postSelect = `
	SELECT p.post_id, p.shop_id, p.title, p.content, p.photo_url, p.created_at, pc.category_id,
		(SELECT COUNT(*) FROM likes l WHERE l.post_id = p.post_id),
		(SELECT COUNT(*) FROM comments c WHERE c.post_id = p.post_id)
	FROM posts p LEFT JOIN post_categories pc ON pc.post_id = p.post_id`

func scanPost(row rowScanner) (*domain.Post, error) {
	var (
		p        domain.Post
		category sql.NullInt64
	)
	err := row.Scan(&p.ID, &p.ShopID, &p.Title, &p.Content, &p.PhotoURL, &p.CreatedAt, &category, &p.Likes, &p.Comments)
	if err != nil {
		return nil, err
	}
	p.CategoryID = int64Ptr(category)
	return &p, nil
}

func (r *socialRepo) FindPost(ctx context.Context, id int64) (*domain.Post, error) {
	p, err := scanPost(r.db.QueryRowContext(ctx, postSelect+" WHERE p.post_id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (r *socialRepo) listPosts(ctx context.Context, query string, args ...any) ([]domain.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []domain.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}

func (r *socialRepo) ListPosts(ctx context.Context, shopId int64, limit int) ([]domain.Post, error) {
	return r.listPosts(ctx, postSelect+" WHERE p.shop_id = $1 ORDER BY p.created_at DESC, p.post_id DESC LIMIT $2", shopId, limit)
}

func (r *socialRepo) ListRecentPosts(ctx context.Context, limit int) ([]domain.Post, error) {
	return r.listPosts(ctx, postSelect+" ORDER BY p.created_at DESC, p.post_id DESC LIMIT $1", limit)
}

func (r *socialRepo) AddComment(ctx context.Context, c *domain.Comment) (int64, error) {
	err := r.db.QueryRowContext(ctx,
		"INSERT INTO comments (post_id, user_id, content) VALUES ($1, $2, $3) RETURNING comment_id, created_at",
		c.PostID, c.UserID, c.Content,
	).Scan(&c.ID, &c.CreatedAt)
	if IsForeignKeyViolation(err) {
		return 0, domain.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return c.ID, nil
}

func (r *socialRepo) FindComment(ctx context.Context, id int64) (*domain.Comment, error) {
	var c domain.Comment
	err := r.db.QueryRowContext(ctx,
		"SELECT comment_id, post_id, user_id, content, created_at FROM comments WHERE comment_id = $1", id,
	).Scan(&c.ID, &c.PostID, &c.UserID, &c.Content, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *socialRepo) DeleteComment(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM comments WHERE comment_id = $1", id)
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (r *socialRepo) ListComments(ctx context.Context, postId int64) ([]domain.Comment, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT comment_id, post_id, user_id, content, created_at FROM comments WHERE post_id = $1 ORDER BY created_at, comment_id",
		postId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Comment
	for rows.Next() {
		var c domain.Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.UserID, &c.Content, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *socialRepo) Like(ctx context.Context, postId, userId int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO likes (post_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING", postId, userId)
	if IsForeignKeyViolation(err) {
		return false, domain.ErrNotFound
	}
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (r *socialRepo) Unlike(ctx context.Context, postId, userId int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM likes WHERE post_id = $1 AND user_id = $2", postId, userId)
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (r *socialRepo) LikeCount(ctx context.Context, postId int64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM likes WHERE post_id = $1", postId).Scan(&n)
	return n, err
}

func (r *socialRepo) ListLikers(ctx context.Context, postId int64) ([]domain.Liker, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT u.user_id, u.name, l.created_at
		FROM likes l JOIN users u ON u.user_id = l.user_id
		WHERE l.post_id = $1
		ORDER BY l.created_at, u.user_id`, postId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Liker
	for rows.Next() {
		var l domain.Liker
		if err := rows.Scan(&l.UserID, &l.Name, &l.LikedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *socialRepo) CommentCount(ctx context.Context, postId int64) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM comments WHERE post_id = $1", postId).Scan(&n)
	return n, err
}

func (r *socialRepo) CreateCategory(ctx context.Context, c *domain.Category) (int64, error) {
	err := r.db.QueryRowContext(ctx,
		"INSERT INTO categories (name) VALUES ($1) RETURNING category_id, created_at", c.Name,
	).Scan(&c.ID, &c.CreatedAt)
	if IsUniqueViolation(err) {
		return 0, domain.ErrConflict
	}
	if err != nil {
		return 0, err
	}
	return c.ID, nil
}

func (r *socialRepo) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT category_id, name, created_at FROM categories ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
