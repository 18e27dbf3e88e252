package domain

import (
	"strings"
	"time"
)

type AccountStatus string

const (
	StatusActive AccountStatus = "ACTIVE"
	StatusBanned AccountStatus = "BANNED"
)

func StatusOf(active bool) AccountStatus {
	if active {
		return StatusActive
	}
	return StatusBanned
}

// BanAction is the closed set of account status transitions.
type BanAction string

const (
	ActionBan   BanAction = "BAN"
	ActionUnban BanAction = "UNBAN"
)

func ParseBanAction(s string) (BanAction, bool) {
	switch a := BanAction(strings.ToUpper(strings.TrimSpace(s))); a {
	case ActionBan, ActionUnban:
		return a, true
	default:
		return "", false
	}
}

// Target is the status every transition of this action ends in,
// whatever the starting status.
func (a BanAction) Target() AccountStatus {
	if a == ActionBan {
		return StatusBanned
	}
	return StatusActive
}

func (a BanAction) String() string { return string(a) }

const MaxMotiveLength = 500

// StatusChange is a requested transition.
type StatusChange struct {
	Action BanAction
	Motive string
}

func (c *StatusChange) Validate() error {
	c.Motive = strings.TrimSpace(c.Motive)
	switch c.Action {
	case ActionBan:
		if c.Motive == "" {
			return ErrResourceViolation(map[string]string{"motive": "required when banning"})
		}
	case ActionUnban:
	default:
		return ErrInvalidBanAction(string(c.Action))
	}
	if len(c.Motive) > MaxMotiveLength {
		return ErrResourceViolation(map[string]string{"motive": "too long"})
	}
	return nil
}

// StatusTransition is the record persisted with every status write.
type StatusTransition struct {
	UserID  int64
	ActorID int64
	Action  BanAction
	Motive  string
	At      time.Time
}

func (t StatusTransition) Active() bool { return t.Action.Target() == StatusActive }
