package workflow

import (
	"net/url"
	"strings"

	"github.com/aviary-sh/aviary/pkg/models"
)

const baseURL = "https://x.com"

// TargetURL derives the page an action navigates to from a task's target
// descriptor. Keyword and hashtag targets land on a live search, timeline
// on the home feed, user_list on the profile page.
func TargetURL(target models.Target) string {
	switch target.Type {
	case models.TargetTypeKeyword:
		return searchURL(target.Value)
	case models.TargetTypeHashtag:
		return hashtagURL(target.Value)
	case models.TargetTypeTimeline:
		return baseURL + "/home"
	case models.TargetTypeUserList:
		return baseURL + "/" + strings.TrimPrefix(target.Value, "@")
	default:
		return baseURL + "/home"
	}
}

// actionTarget derives an action step's target from its config: an
// explicit URL wins, then hashtag, then keyword.
func actionTarget(cfg models.ActionStepConfig) string {
	switch {
	case cfg.URL != "":
		return cfg.URL
	case cfg.Hashtag != "":
		return hashtagURL(cfg.Hashtag)
	case cfg.Keyword != "":
		return searchURL(cfg.Keyword)
	default:
		return ""
	}
}

func searchURL(query string) string {
	return baseURL + "/search?q=" + url.QueryEscape(query) + "&f=live"
}

func hashtagURL(tag string) string {
	return searchURL("#" + strings.TrimPrefix(tag, "#"))
}
