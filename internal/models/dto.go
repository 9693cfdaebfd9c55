package models

import "time"

// AuthorSummary is the public view of a poem's owner.
type AuthorSummary struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// PoemResponse is the API representation of a poem as seen by one viewer.
type PoemResponse struct {
	ID                   uint          `json:"id"`
	Title                string        `json:"title"`
	Content              string        `json:"content"`
	CreatedAt            time.Time     `json:"createdAt"`
	UpdatedAt            *time.Time    `json:"updatedAt"`
	IsPublished          bool          `json:"isPublished"`
	Author               AuthorSummary `json:"author"`
	LikeCount            int64         `json:"likeCount"`
	IsLikedByCurrentUser bool          `json:"isLikedByCurrentUser"`
}

// PoemListResponse is one page of poems.
type PoemListResponse struct {
	Items      []PoemResponse `json:"items"`
	TotalCount int64          `json:"totalCount"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
}

// UserProfileResponse is a user's public profile with their most liked poems.
type UserProfileResponse struct {
	ID             string         `json:"id"`
	DisplayName    string         `json:"displayName"`
	CreatedAt      time.Time      `json:"createdAt"`
	TotalPoemCount int64          `json:"totalPoemCount"`
	TopPoems       []PoemResponse `json:"topPoems"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token       string `json:"token"`
	UserID      string `json:"userId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

// CreatePoemRequest is the body of POST /api/poems.
// IsPublished defaults to true when omitted.
type CreatePoemRequest struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	IsPublished *bool  `json:"isPublished"`
}

// UpdatePoemRequest is the body of PUT /api/poems/{id}. Nil fields are left unchanged.
type UpdatePoemRequest struct {
	Title       *string `json:"title"`
	Content     *string `json:"content"`
	IsPublished *bool   `json:"isPublished"`
}

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// NewPoemResponse maps a loaded poem into its API shape.
func NewPoemResponse(p *Poem) PoemResponse {
	return PoemResponse{
		ID:                   p.ID,
		Title:                p.Title,
		Content:              p.Content,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
		IsPublished:          p.IsPublished,
		Author:               AuthorSummary{ID: p.UserID, DisplayName: p.User.DisplayName},
		LikeCount:            p.LikeCount,
		IsLikedByCurrentUser: p.IsLikedByCurrentUser,
	}
}

// NewPoemResponses maps a slice of poems, never returning nil.
func NewPoemResponses(poems []Poem) []PoemResponse {
	out := make([]PoemResponse, 0, len(poems))
	for i := range poems {
		out = append(out, NewPoemResponse(&poems[i]))
	}
	return out
}
