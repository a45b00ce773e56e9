package model

// Dashboard is the payload served by GET /api/dashboard.
// The json tags are the wire contract consumed by the frontend.
type Dashboard struct {
	User       DashboardUser  `json:"user"`
	Stats      DashboardStats `json:"stats"`
	PRs        []PullRequest  `json:"prs"`
	Issues     []Issue        `json:"issues"`
	Meetings   []Meeting      `json:"meetings"`
	FocusTasks []FocusTask    `json:"focus_tasks"`
}

type DashboardUser struct {
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

type DashboardStats struct {
	PRsToReview   int    `json:"prs_to_review"`
	OpenIssues    int    `json:"open_issues"`
	MeetingsToday int    `json:"meetings_today"`
	FocusTime     string `json:"focus_time"` // e.g. "4.5h"
}

type PullRequest struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	Author  string `json:"author"`
	Created string `json:"created"` // relative, e.g. "2h ago"
	Repo    string `json:"repo"`
}

type Issue struct {
	Number   int      `json:"number"`
	Title    string   `json:"title"`
	Priority string   `json:"priority"`
	Labels   []string `json:"labels"`
}

type Meeting struct {
	Title    string `json:"title"`
	Time     string `json:"time"`
	Duration string `json:"duration"`
}

type FocusTask struct {
	Title    string `json:"title"`
	Status   string `json:"status"`
	Priority string `json:"priority"`
}
