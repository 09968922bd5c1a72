package admin

import (
	"errors"
	"fmt"
)

var ErrNotAdmin = errors.New("user is not authorized to upload")

// Policy is the upload allow-list. It is fixed once built.
type Policy struct {
	ids map[int64]struct{}
}

func NewPolicy(ids ...int64) *Policy {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return &Policy{ids: set}
}

func (p *Policy) IsAdmin(userID int64) bool {
	if p == nil {
		return false
	}
	_, ok := p.ids[userID]
	return ok
}

// Authorize returns ErrNotAdmin unless userID is on the allow-list.
func (p *Policy) Authorize(userID int64) error {
	if !p.IsAdmin(userID) {
		return fmt.Errorf("user %d: %w", userID, ErrNotAdmin)
	}
	return nil
}
