// Package user holds the user profile read model consumed by matching.
package user

import (
	"fmt"
	"time"

	"nearhelp/pkg/domain"
)

// User is a profile as matching sees it. PhysicalDescription is what a
// requester uses to recognize an arriving supporter.
type User struct {
	ID                  domain.UserID
	Nickname            string
	IconURL             string
	PhysicalDescription string
	AvailableForHelp    bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// New validates and builds a user.
func New(id domain.UserID, nickname, iconURL, physicalDescription string, available bool, now time.Time) (User, error) {
	if id.IsZero() {
		return User{}, fmt.Errorf("user requires an id")
	}
	if nickname == "" {
		return User{}, fmt.Errorf("user requires a nickname")
	}
	return User{
		ID:                  id,
		Nickname:            nickname,
		IconURL:             iconURL,
		PhysicalDescription: physicalDescription,
		AvailableForHelp:    available,
		CreatedAt:           now,
		UpdatedAt:           now,
	}, nil
}
