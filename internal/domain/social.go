package domain

import "time"

type Post struct {
	ID       int64
	ShopID   int64
	Title    string
	Content  string
	PhotoURL string
	// CategoryID is nil for posts filed under no category.
	CategoryID *int64
	Likes      int64
	Comments   int64
	CreatedAt  time.Time
}

type Comment struct {
	ID        int64
	PostID    int64
	UserID    int64
	Content   string
	CreatedAt time.Time
}

type Follower struct {
	UserID     int64
	Name       string
	FollowedAt time.Time
}

type Category struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// Liker is a user who liked a post.
type Liker struct {
	UserID  int64
	Name    string
	LikedAt time.Time
}
