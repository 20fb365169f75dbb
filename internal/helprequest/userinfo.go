// Package helprequest holds the help-request matching core: the Candidate
// lifecycle, the deduplicated candidate collection, and the HelpRequest
// aggregate with its state machine. Everything here is a value; transitions
// derive new snapshots instead of mutating in place, so a retry-on-conflict
// loop in the service layer can re-load, re-apply and re-save safely.
package helprequest

import (
	"fmt"

	"nearhelp/pkg/domain"
)

// UserInfo is a supporter's matching-relevant profile snapshot, captured at
// candidate-selection time so matching is decoupled from live profile edits.
type UserInfo struct {
	ID                  domain.UserID
	Nickname            string
	IconURL             string
	PhysicalDescription string
	DeviceID            domain.DeviceID
}

// NewUserInfo validates the identifying fields of a snapshot.
func NewUserInfo(id domain.UserID, nickname, iconURL, physicalDescription string, deviceID domain.DeviceID) (UserInfo, error) {
	if id.IsZero() {
		return UserInfo{}, fmt.Errorf("user info requires a user id")
	}
	if deviceID.IsZero() {
		return UserInfo{}, fmt.Errorf("user info requires a device id")
	}
	return UserInfo{
		ID:                  id,
		Nickname:            nickname,
		IconURL:             iconURL,
		PhysicalDescription: physicalDescription,
		DeviceID:            deviceID,
	}, nil
}
