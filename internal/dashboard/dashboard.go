// Package dashboard supplies the payload behind GET /api/dashboard.
package dashboard

import (
	"context"

	"github.com/sakif/devdash/internal/model"
)

// Provider returns the dashboard for the current request.
type Provider interface {
	Dashboard(ctx context.Context) (*model.Dashboard, error)
}

// Static serves a fixed sample dashboard. It ignores the caller entirely:
// every request gets the same body.
type Static struct{}

var _ Provider = Static{}

// Dashboard returns a fresh copy of the sample payload on each call, so
// callers may modify it freely.
func (Static) Dashboard(ctx context.Context) (*model.Dashboard, error) {
	return &model.Dashboard{
		User: model.DashboardUser{
			Username: "developer",
			Avatar:   "https://github.com/github.png",
		},
		Stats: model.DashboardStats{
			PRsToReview:   3,
			OpenIssues:    7,
			MeetingsToday: 2,
			FocusTime:     "4.5h",
		},
		PRs: []model.PullRequest{
			{Number: 42, Title: "Add user authentication", Author: "teammate1", Created: "2h ago", Repo: "myproject"},
			{Number: 41, Title: "Fix dashboard layout on mobile", Author: "teammate2", Created: "5h ago", Repo: "myproject"},
			{Number: 40, Title: "Update dependencies", Author: "dependabot", Created: "1d ago", Repo: "myproject"},
		},
		Issues: []model.Issue{
			{Number: 38, Title: "API timeout on large repositories", Priority: "high", Labels: []string{"bug"}},
			{Number: 37, Title: "Mobile view broken on iOS", Priority: "medium", Labels: []string{"bug", "mobile"}},
			{Number: 36, Title: "Dark mode toggle", Priority: "low", Labels: []string{"feature"}},
		},
		Meetings: []model.Meeting{
			{Title: "Daily Standup", Time: "9:00 AM", Duration: "15 min"},
			{Title: "Sprint Planning", Time: "2:00 PM", Duration: "1 hour"},
		},
		FocusTasks: []model.FocusTask{
			{Title: "Ship HN Radar MVP", Status: "in_progress", Priority: "high"},
			{Title: "Review open PRs", Status: "pending", Priority: "high"},
			{Title: "Write documentation", Status: "pending", Priority: "medium"},
		},
	}, nil
}
