// Package validate checks user-supplied game input before it reaches the
// store: game names, image URL lists, and player display names. It returns
// apperr validation errors so callers can surface them without classifying.
package validate

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/namethat/namethat/apperr"
)

const (
	// ReservedDisplayName can never be claimed by a player; it identifies
	// the game owner in client UIs.
	ReservedDisplayName = "Game Master"

	maxGameNameLen    = 100
	maxDisplayNameLen = 32
	maxImageURLs      = 50
	maxAnswerLen      = 500
)

// GameName validates the display name of a game.
func GameName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apperr.Validation("game name must not be empty")
	}
	if utf8.RuneCountInString(name) > maxGameNameLen {
		return apperr.Validation("game name must be at most %d characters", maxGameNameLen)
	}
	return nil
}

// ImageURLs validates the ordered image list a game is created with.
// Every entry must be an absolute http or https URL.
func ImageURLs(urls []string) error {
	if len(urls) == 0 {
		return apperr.Validation("a game needs at least one image")
	}
	if len(urls) > maxImageURLs {
		return apperr.Validation("a game can have at most %d images", maxImageURLs)
	}

	for i, raw := range urls {
		u, err := url.Parse(raw)
		if err != nil {
			return apperr.Validation("image %d is not a valid URL", i+1)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return apperr.Validation("image %d must use http or https", i+1)
		}
		if u.Host == "" {
			return apperr.Validation("image %d is missing a host", i+1)
		}
	}
	return nil
}

// DisplayName validates a display name claimed during the join protocol.
// Uniqueness within a game is checked separately against a fresh aggregate.
func DisplayName(name string) error {
	if strings.TrimSpace(name) == "" {
		return apperr.Validation("display name must not be empty")
	}
	if utf8.RuneCountInString(name) > maxDisplayNameLen {
		return apperr.Validation("display name must be at most %d characters", maxDisplayNameLen)
	}
	if name == ReservedDisplayName {
		return apperr.Validation("display name %q is reserved", ReservedDisplayName)
	}
	return nil
}

// AnswerText validates a submitted round answer.
func AnswerText(answer string) error {
	if strings.TrimSpace(answer) == "" {
		return apperr.Validation("answer must not be empty")
	}
	if utf8.RuneCountInString(answer) > maxAnswerLen {
		return apperr.Validation("answer must be at most %d characters", maxAnswerLen)
	}
	return nil
}
