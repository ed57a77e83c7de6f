package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sort"
	"time"

	"winshirt-sync/internal/model"
	"winshirt-sync/internal/naming"
	"winshirt-sync/internal/notify"
	"winshirt-sync/internal/repository"
)

// LotteryAdapter mirrors lotteries together with their participants and winner.
type LotteryAdapter struct {
	*Adapter[model.Lottery]
}

// NewLotteryAdapter creates the lottery adapter.
func NewLotteryAdapter(deps Deps) *LotteryAdapter {
	return &LotteryAdapter{Adapter: newAdapter(deps, entitySpec[model.Lottery]{
		table:  model.TableLotteries,
		entity: "lottery",
		schema: naming.Lotteries,
		idOf:   func(l *model.Lottery) int64 { return l.ID },
		setID: func(l *model.Lottery, id int64) {
			l.ID = id
			for i := range l.Participants {
				l.Participants[i].LotteryID = id
			}
			if l.Winner != nil {
				l.Winner.LotteryID = id
			}
		},
		prepare: func(l *model.Lottery) {
			if l.Status == "" {
				l.Status = model.LotteryActive
			}
		},
		children: []string{model.TableLotteryParticipants, model.TableLotteryWinners},
		fk:       "lottery_id",
		assemble: assembleLottery,
		preserve: func(fresh, prior *model.Lottery) {
			fresh.Participants = prior.Participants
			fresh.Winner = prior.Winner
		},
		childRows: func(l *model.Lottery) map[string][]any {
			rows := map[string][]any{}
			for _, p := range l.Participants {
				rows[model.TableLotteryParticipants] = append(rows[model.TableLotteryParticipants], p)
			}
			if l.Winner != nil {
				rows[model.TableLotteryWinners] = []any{*l.Winner}
			}
			return rows
		},
		localChildIDs: func(l *model.Lottery, existing []model.Lottery) {
			next := nextParticipantID(existing)
			for i := range l.Participants {
				if l.Participants[i].ID == 0 {
					l.Participants[i].ID = next
					next++
				}
			}
			if l.Winner != nil && l.Winner.ID == 0 {
				l.Winner.ID = nextWinnerID(existing)
			}
		},
	})}
}

func nextParticipantID(all []model.Lottery) int64 {
	var maxID int64
	for i := range all {
		for _, p := range all[i].Participants {
			if p.ID > maxID {
				maxID = p.ID
			}
		}
	}
	return maxID + 1
}

func nextWinnerID(all []model.Lottery) int64 {
	var maxID int64
	for i := range all {
		if w := all[i].Winner; w != nil && w.ID > maxID {
			maxID = w.ID
		}
	}
	return maxID + 1
}

func assembleLottery(l *model.Lottery, children map[string][]repository.Row) {
	l.Participants = make([]model.Participant, 0, len(children[model.TableLotteryParticipants]))
	for _, row := range children[model.TableLotteryParticipants] {
		p, err := naming.DecodeLoose[model.Participant](naming.Participants, row)
		if err != nil {
			continue
		}
		l.Participants = append(l.Participants, p)
	}
	sort.Slice(l.Participants, func(i, j int) bool { return l.Participants[i].ID < l.Participants[j].ID })

	l.Winner = nil
	if l.Status == model.LotteryActive {
		return
	}
	for _, row := range children[model.TableLotteryWinners] {
		w, err := naming.DecodeLoose[model.Winner](naming.Winners, row)
		if err != nil {
			continue
		}
		if l.Winner == nil || w.DrawnAt.After(l.Winner.DrawnAt) {
			l.Winner = &w
		}
	}
}

// IsReadyForDraw reports whether l is active and full or past its end date.
func IsReadyForDraw(l *model.Lottery, now time.Time) bool {
	return l.ReadyForDraw(now)
}

// current reads one lottery from the remote without touching the mirror.
func (a *LotteryAdapter) current(ctx context.Context, id int64) (model.Lottery, error) {
	rows, err := a.deps.Remote.Select(ctx, a.spec.table, repository.Eq("id", id))
	if err != nil {
		return model.Lottery{}, err
	}
	if len(rows) == 0 {
		return model.Lottery{}, fmt.Errorf("lottery %d: %w", id, repository.ErrNotFound)
	}
	return naming.DecodeLoose[model.Lottery](a.spec.schema, rows[0])
}

// AddParticipant registers a ticket holder and bumps the participant counter.
// The remote counter is incremented server-side so concurrent calls never under-count.
func (a *LotteryAdapter) AddParticipant(ctx context.Context, lotteryID int64, p model.Participant) (model.Lottery, error) {
	p.LotteryID = lotteryID
	if err := newValidationError("participant", naming.Validate(&p)); err != nil {
		a.deps.notify(ctx, notify.Error, a.spec.table, err.Error())
		return model.Lottery{}, err
	}

	if !a.connected(ctx) {
		return a.mutateLocalAll(ctx, lotteryID, func(all []model.Lottery, l *model.Lottery) error {
			if l.Status != model.LotteryActive {
				return fmt.Errorf("lottery %d: %w", lotteryID, ErrLotteryNotActive)
			}
			p.ID = nextParticipantID(all)
			l.Participants = append(l.Participants, p)
			l.CurrentParticipants++
			return nil
		})
	}

	lottery, err := a.current(ctx, lotteryID)
	if err != nil {
		return model.Lottery{}, a.failed(ctx, "select", lotteryID, err)
	}
	if lottery.Status != model.LotteryActive {
		return model.Lottery{}, fmt.Errorf("lottery %d: %w", lotteryID, ErrLotteryNotActive)
	}

	row, err := naming.Encode(naming.Participants, p)
	if err != nil {
		return model.Lottery{}, err
	}
	inserted, err := a.deps.Remote.Insert(ctx, model.TableLotteryParticipants, row)
	if err != nil {
		a.deps.notify(ctx, notify.Error, a.spec.table, "Failed to add participant")
		return model.Lottery{}, remoteErr("insert", model.TableLotteryParticipants, err)
	}
	added, err := naming.DecodeLoose[model.Participant](naming.Participants, inserted)
	if err != nil {
		return model.Lottery{}, fmt.Errorf("failed to decode participant: %w", err)
	}

	updated, err := a.deps.Remote.Increment(ctx, a.spec.table, lotteryID, "current_participants", 1)
	if err != nil {
		return model.Lottery{}, a.failed(ctx, "increment", lotteryID, err)
	}

	return a.storeRemote(ctx, updated, func(fresh, _ *model.Lottery) {
		fresh.Participants = append(fresh.Participants, added)
	})
}

// Update replaces the editable fields of a lottery. Participants and the winner
// change only through AddParticipant and SelectWinner; completion and relaunch
// only through SelectWinner and Relaunch.
func (a *LotteryAdapter) Update(ctx context.Context, l model.Lottery) (model.Lottery, error) {
	prior, err := a.FetchByID(ctx, l.ID)
	if err != nil {
		return model.Lottery{}, err
	}
	if l.Status == "" {
		l.Status = prior.Status
	}
	if err := checkLotteryEdit(&prior, &l); err != nil {
		a.deps.notify(ctx, notify.Error, a.spec.table, err.Error())
		return model.Lottery{}, err
	}
	l.Participants = prior.Participants
	l.Winner = prior.Winner
	return a.Adapter.Update(ctx, l)
}

func checkLotteryEdit(prior, next *model.Lottery) error {
	ve := &ValidationError{Entity: "lottery"}
	if prior.Status == model.LotteryActive && next.CurrentParticipants < prior.CurrentParticipants {
		ve.Add("currentParticipants", "cannot decrease while active")
	}
	if next.Status != prior.Status {
		switch {
		case next.Status == model.LotteryCompleted || next.Status == model.LotteryRelaunched:
			ve.Add("status", "set by draw or relaunch")
		case prior.Status == model.LotteryCompleted || prior.Status == model.LotteryRelaunched:
			ve.Add("status", "lottery already drawn")
		}
	}
	return ve.orNil()
}

// SelectWinner records the winner and completes the lottery in one step. The
// lottery must be ready for draw.
func (a *LotteryAdapter) SelectWinner(ctx context.Context, lotteryID int64, winner model.Winner) (model.Lottery, error) {
	now := a.deps.now()
	winner.LotteryID = lotteryID
	if winner.DrawnAt.IsZero() {
		winner.DrawnAt = now
	}
	if err := newValidationError("winner", naming.Validate(&winner)); err != nil {
		a.deps.notify(ctx, notify.Error, a.spec.table, err.Error())
		return model.Lottery{}, err
	}

	ready := func(l *model.Lottery) error {
		if !l.ReadyForDraw(now) {
			a.deps.notify(ctx, notify.Warning, a.spec.table, fmt.Sprintf("Lottery %d is not ready for draw", lotteryID))
			return fmt.Errorf("lottery %d: %w", lotteryID, ErrNotReadyForDraw)
		}
		return nil
	}

	if !a.connected(ctx) {
		return a.mutateLocalAll(ctx, lotteryID, func(all []model.Lottery, l *model.Lottery) error {
			if err := ready(l); err != nil {
				return err
			}
			w := winner
			w.ID = nextWinnerID(all)
			l.Winner = &w
			l.Status = model.LotteryCompleted
			l.DrawDate = &now
			return nil
		})
	}

	lottery, err := a.current(ctx, lotteryID)
	if err != nil {
		return model.Lottery{}, a.failed(ctx, "select", lotteryID, err)
	}
	if err := ready(&lottery); err != nil {
		return model.Lottery{}, err
	}

	row, err := naming.Encode(naming.Winners, winner)
	if err != nil {
		return model.Lottery{}, err
	}
	inserted, err := a.deps.Remote.Insert(ctx, model.TableLotteryWinners, row)
	if err != nil {
		a.deps.notify(ctx, notify.Error, a.spec.table, "Failed to record winner")
		return model.Lottery{}, remoteErr("insert", model.TableLotteryWinners, err)
	}
	recorded, err := naming.DecodeLoose[model.Winner](naming.Winners, inserted)
	if err != nil {
		return model.Lottery{}, fmt.Errorf("failed to decode winner: %w", err)
	}

	updated, err := a.deps.Remote.Update(ctx, a.spec.table, lotteryID, repository.Row{
		"status":    string(model.LotteryCompleted),
		"draw_date": now.Format(time.RFC3339Nano),
	})
	if err != nil {
		if _, delErr := a.deps.Remote.Delete(ctx, model.TableLotteryWinners, repository.Eq("id", recorded.ID)); delErr != nil {
			a.log.Error().Err(delErr).Int64("winner_id", recorded.ID).Msg("failed to roll back winner")
		}
		return model.Lottery{}, a.failed(ctx, "update", lotteryID, err)
	}

	out, err := a.storeRemote(ctx, updated, func(fresh, _ *model.Lottery) {
		fresh.Winner = &recorded
	})
	if err != nil {
		return model.Lottery{}, err
	}
	a.deps.notify(ctx, notify.Success, a.spec.table, fmt.Sprintf("%s won lottery %d", recorded.Name, lotteryID))
	return out, nil
}

// DrawWinner picks a participant uniformly at random and selects them as winner.
func (a *LotteryAdapter) DrawWinner(ctx context.Context, lotteryID int64) (model.Lottery, error) {
	lottery, err := a.FetchByID(ctx, lotteryID)
	if err != nil {
		return model.Lottery{}, err
	}
	if len(lottery.Participants) == 0 {
		return model.Lottery{}, fmt.Errorf("lottery %d: %w", lotteryID, ErrNoParticipants)
	}

	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(lottery.Participants))))
	if err != nil {
		return model.Lottery{}, fmt.Errorf("failed to draw: %w", err)
	}
	picked := lottery.Participants[n.Int64()]
	return a.SelectWinner(ctx, lotteryID, model.WinnerFrom(picked, a.deps.now()))
}

// ToggleFeatured sets the featured flag.
func (a *LotteryAdapter) ToggleFeatured(ctx context.Context, id int64, featured bool) (model.Lottery, error) {
	return a.patch(ctx, id, repository.Row{"featured": featured}, func(l *model.Lottery) error {
		l.Featured = featured
		return nil
	})
}

// Relaunch marks a completed lottery as relaunched and creates a fresh active copy.
func (a *LotteryAdapter) Relaunch(ctx context.Context, id int64) (model.Lottery, error) {
	old, err := a.FetchByID(ctx, id)
	if err != nil {
		return model.Lottery{}, err
	}
	if old.Status != model.LotteryCompleted {
		return model.Lottery{}, fmt.Errorf("lottery %d is %s: %w", id, old.Status, ErrLotteryNotCompleted)
	}

	if _, err := a.patch(ctx, id, repository.Row{"status": string(model.LotteryRelaunched)}, func(l *model.Lottery) error {
		l.Status = model.LotteryRelaunched
		return nil
	}); err != nil {
		return model.Lottery{}, err
	}

	fresh := old
	fresh.ID = 0
	fresh.Status = model.LotteryActive
	fresh.CurrentParticipants = 0
	fresh.Participants = nil
	fresh.Winner = nil
	fresh.DrawDate = nil
	fresh.EndDate = nil
	return a.Create(ctx, fresh)
}
