package handler

import (
	"net/http"
	"time"

	"winshirt-sync/internal/model"
	"winshirt-sync/internal/service"
	"winshirt-sync/pkg/response"
)

// LotteryHandler serves the lottery routes beyond plain CRUD.
type LotteryHandler struct {
	*Resource[model.Lottery]
	lotteries *service.LotteryAdapter
	now       func() time.Time
}

// NewLotteryHandler creates a lottery handler.
func NewLotteryHandler(lotteries *service.LotteryAdapter) *LotteryHandler {
	return &LotteryHandler{
		Resource:  NewResource[model.Lottery](lotteries, func(l *model.Lottery, id int64) { l.ID = id }),
		lotteries: lotteries,
		now:       time.Now,
	}
}

// LotteryReadyResponse is the draw readiness of a lottery.
type LotteryReadyResponse struct {
	ID                  int64               `json:"id"`
	Status              model.LotteryStatus `json:"status"`
	Ready               bool                `json:"ready"`
	Progress            float64             `json:"progress"`
	CurrentParticipants int                 `json:"currentParticipants"`
	TargetParticipants  int                 `json:"targetParticipants"`
}

// Ready handles GET /lotteries/{id}/ready
func (h *LotteryHandler) Ready(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	l, err := h.lotteries.FetchByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, LotteryReadyResponse{
		ID:                  l.ID,
		Status:              l.Status,
		Ready:               service.IsReadyForDraw(&l, h.now()),
		Progress:            l.Progress(),
		CurrentParticipants: l.CurrentParticipants,
		TargetParticipants:  l.TargetParticipants,
	})
}

// AddParticipant handles POST /lotteries/{id}/participants
func (h *LotteryHandler) AddParticipant(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var p model.Participant
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, r, err)
		return
	}
	l, err := h.lotteries.AddParticipant(r.Context(), id, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.Created(w, l)
}

// SelectWinner handles POST /lotteries/{id}/winner
func (h *LotteryHandler) SelectWinner(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var winner model.Winner
	if err := decodeJSON(w, r, &winner); err != nil {
		writeError(w, r, err)
		return
	}
	l, err := h.lotteries.SelectWinner(r.Context(), id, winner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, l)
}

// Draw handles POST /lotteries/{id}/draw
func (h *LotteryHandler) Draw(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	l, err := h.lotteries.DrawWinner(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, l)
}

// Featured handles POST /lotteries/{id}/featured
func (h *LotteryHandler) Featured(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req featuredRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}

	current := false
	if req.Featured == nil {
		l, err := h.lotteries.FetchByID(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		current = l.Featured
	}

	l, err := h.lotteries.ToggleFeatured(r.Context(), id, req.resolve(current))
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.OK(w, l)
}

// Relaunch handles POST /lotteries/{id}/relaunch
func (h *LotteryHandler) Relaunch(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	l, err := h.lotteries.Relaunch(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	response.Created(w, l)
}
