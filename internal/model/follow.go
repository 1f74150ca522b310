package model

// FollowListResponse is the followers or following list of one user,
// newest first.
type FollowListResponse struct {
	Users []UserSummary `json:"users"`
	Total int           `json:"total"`
}

// FollowResponse reports the relationship after a toggle.
type FollowResponse struct {
	Followed bool `json:"followed"`
}

// LikeResponse reports the like state after a toggle.
type LikeResponse struct {
	Liked bool `json:"liked"`
}
