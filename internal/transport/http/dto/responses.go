package dto

import (
	"time"

	"github.com/icritic/users-service/internal/application/auth"
	"github.com/icritic/users-service/internal/domain"
)

type CountryView struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// UserView never carries the password hash.
type UserView struct {
	ID          int64        `json:"id"`
	Email       string       `json:"email"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Role        string       `json:"role"`
	Active      bool         `json:"active"`
	Status      string       `json:"status"`
	Country     *CountryView `json:"country,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
}

func NewUserView(u domain.User) UserView {
	v := UserView{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Description: u.Description,
		Role:        u.Role.String(),
		Active:      u.Active,
		Status:      string(u.Status()),
		CreatedAt:   u.CreatedAt,
	}
	if u.Country != nil {
		v.Country = &CountryView{ID: u.Country.ID, Name: u.Country.Name}
	}
	return v
}

func NewUserViews(users []domain.User) []UserView {
	out := make([]UserView, 0, len(users))
	for _, u := range users {
		out = append(out, NewUserView(u))
	}
	return out
}

type TokensView struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"` // seconds
}

func NewTokensView(p auth.TokenPair) TokensView {
	return TokensView{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		TokenType:    p.TokenType,
		ExpiresIn:    p.ExpiresIn,
	}
}

type SignInData struct {
	User   UserView   `json:"user"`
	Tokens TokensView `json:"tokens"`
}

type RefreshData struct {
	Tokens TokensView `json:"tokens"`
}

type TransitionView struct {
	UserID  int64     `json:"userId"`
	ActorID int64     `json:"actorId,omitempty"`
	Action  string    `json:"action"`
	Status  string    `json:"status"`
	Motive  string    `json:"motive,omitempty"`
	At      time.Time `json:"at"`
}

func NewTransitionView(t domain.StatusTransition) TransitionView {
	return TransitionView{
		UserID:  t.UserID,
		ActorID: t.ActorID,
		Action:  t.Action.String(),
		Status:  string(domain.StatusOf(t.Active())),
		Motive:  t.Motive,
		At:      t.At,
	}
}

func NewTransitionViews(ts []domain.StatusTransition) []TransitionView {
	out := make([]TransitionView, 0, len(ts))
	for _, t := range ts {
		out = append(out, NewTransitionView(t))
	}
	return out
}
