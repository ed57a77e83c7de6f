package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// LotteryStatus is the lifecycle state of a prize drawing.
type LotteryStatus string

const (
	LotteryActive     LotteryStatus = "active"
	LotteryCompleted  LotteryStatus = "completed"
	LotteryRelaunched LotteryStatus = "relaunched"
	LotteryCancelled  LotteryStatus = "cancelled"
)

// Lottery is a prize drawing. Buying a linked product grants participation.
type Lottery struct {
	ID                  int64           `json:"id"`
	Title               string          `json:"title" validate:"required"`
	Description         string          `json:"description"`
	Value               decimal.Decimal `json:"value"`
	TargetParticipants  int             `json:"targetParticipants" validate:"gte=0"`
	CurrentParticipants int             `json:"currentParticipants" validate:"gte=0"`
	Status              LotteryStatus   `json:"status" validate:"oneof=active completed relaunched cancelled"`
	Image               string          `json:"image"`
	LinkedProducts      []int64         `json:"linkedProducts"`
	Participants        []Participant   `json:"participants"`
	Winner              *Winner         `json:"winner,omitempty"`
	DrawDate            *time.Time      `json:"drawDate,omitempty"`
	EndDate             *time.Time      `json:"endDate,omitempty"`
	Featured            bool            `json:"featured"`
}

// Participant is one ticket holder of a lottery.
type Participant struct {
	ID        int64  `json:"id"`
	LotteryID int64  `json:"lotteryId"`
	Name      string `json:"name" validate:"required"`
	Email     string `json:"email" validate:"omitempty,email"`
	Avatar    string `json:"avatar"`
	OrderID   *int64 `json:"orderId,omitempty"`
}

// Winner records the drawn participant of a completed lottery.
type Winner struct {
	ID            int64     `json:"id"`
	LotteryID     int64     `json:"lotteryId"`
	ParticipantID int64     `json:"participantId"`
	Name          string    `json:"name" validate:"required"`
	Email         string    `json:"email"`
	Avatar        string    `json:"avatar"`
	DrawnAt       time.Time `json:"drawnAt"`
}

// ReadyForDraw reports whether an active lottery reached its target or passed its end date.
func (l *Lottery) ReadyForDraw(now time.Time) bool {
	if l.Status != LotteryActive {
		return false
	}
	if l.CurrentParticipants >= l.TargetParticipants {
		return true
	}
	return l.EndDate != nil && l.EndDate.Before(now)
}

// Progress returns the fill ratio in [0, 1].
func (l *Lottery) Progress() float64 {
	if l.TargetParticipants <= 0 {
		return 1
	}
	p := float64(l.CurrentParticipants) / float64(l.TargetParticipants)
	if p > 1 {
		return 1
	}
	return p
}

// WinnerFrom builds a winner record out of a participant.
func WinnerFrom(p Participant, drawnAt time.Time) Winner {
	return Winner{
		LotteryID:     p.LotteryID,
		ParticipantID: p.ID,
		Name:          p.Name,
		Email:         p.Email,
		Avatar:        p.Avatar,
		DrawnAt:       drawnAt,
	}
}
