package skills

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

const headlinesURL = "https://newsapi.org/v2/top-headlines"

type headlinesResponse struct {
	Status   string `json:"status"`
	Articles []struct {
		Title string `json:"title"`
	} `json:"articles"`
}

// news reads out the top headlines. Without an API key it declines
// rather than failing the turn.
func (r *Runner) news(ctx context.Context) string {
	if r.newsKey == "" {
		return "Sorry, the news service isn't configured right now."
	}

	q := url.Values{}
	q.Set("country", "us")
	q.Set("pageSize", "3")
	q.Set("apiKey", r.newsKey)

	var hr headlinesResponse
	if err := r.getJSON(ctx, headlinesURL+"?"+q.Encode(), &hr); err != nil {
		r.logger.Warnf("news lookup failed: %v", err)
		return "Sorry, I couldn't fetch the news right now."
	}
	if hr.Status != "ok" || len(hr.Articles) == 0 {
		return "Sorry, there are no headlines available right now."
	}

	titles := make([]string, 0, len(hr.Articles))
	for i, a := range hr.Articles {
		if a.Title == "" {
			continue
		}
		titles = append(titles, fmt.Sprintf("%d. %s", i+1, a.Title))
	}
	return "Here are the top headlines. " + strings.Join(titles, " ")
}
