package presenter

import (
	"strconv"
	"strings"
)

// Callback data carried by inline buttons.
const (
	PrefixCategory       = "category_"
	PrefixYear           = "year_"
	PrefixUploadCategory = "cat_"

	TokenPrevPage       = "prev_page"
	TokenNextPage       = "next_page"
	TokenBackYears      = "back_years"
	TokenBackCategories = "back_categories"
	TokenBrowseCancel   = "browse_cancel"
	TokenMoreSame       = "more_same"
	TokenChangeSettings = "change_settings"
	TokenStopUpload     = "stop_upload"
)

type Action string

const (
	ActionUnknown        Action = ""
	ActionCategory       Action = "category"
	ActionYear           Action = "year"
	ActionPrevPage       Action = "prev_page"
	ActionNextPage       Action = "next_page"
	ActionBackYears      Action = "back_years"
	ActionBackCategories Action = "back_categories"
	ActionBrowseCancel   Action = "browse_cancel"
	ActionUploadCategory Action = "upload_category"
	ActionMoreSame       Action = "more_same"
	ActionChangeSettings Action = "change_settings"
	ActionStopUpload     Action = "stop_upload"
)

type Callback struct {
	Action     Action
	CategoryID string
	Year       int
}

var fixedTokens = map[string]Action{
	TokenPrevPage:       ActionPrevPage,
	TokenNextPage:       ActionNextPage,
	TokenBackYears:      ActionBackYears,
	TokenBackCategories: ActionBackCategories,
	TokenBrowseCancel:   ActionBrowseCancel,
	TokenMoreSame:       ActionMoreSame,
	TokenChangeSettings: ActionChangeSettings,
	TokenStopUpload:     ActionStopUpload,
}

// ParseCallback decodes button data. Malformed data yields ActionUnknown.
func ParseCallback(data string) Callback {
	if action, ok := fixedTokens[data]; ok {
		return Callback{Action: action}
	}
	switch {
	case strings.HasPrefix(data, PrefixCategory):
		if id := strings.TrimPrefix(data, PrefixCategory); id != "" {
			return Callback{Action: ActionCategory, CategoryID: id}
		}
	case strings.HasPrefix(data, PrefixUploadCategory):
		if id := strings.TrimPrefix(data, PrefixUploadCategory); id != "" {
			return Callback{Action: ActionUploadCategory, CategoryID: id}
		}
	case strings.HasPrefix(data, PrefixYear):
		if year, err := strconv.Atoi(strings.TrimPrefix(data, PrefixYear)); err == nil {
			return Callback{Action: ActionYear, Year: year}
		}
	}
	return Callback{Action: ActionUnknown}
}
