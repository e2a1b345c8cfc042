package orchestrator

import (
	"errors"
	"fmt"

	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/channel"
	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/notify"
	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/status"
)

var ErrUnknownAction = errors.New("unknown action")

// HandleMessage applies one inbound backend message to this session.
func (o *Orchestrator) HandleMessage(env channel.Envelope) error {
	switch env.Action {
	case channel.ActionUpdateStatus:
		var u channel.StatusUpdate
		if err := env.Decode(&u); err != nil {
			return err
		}
		o.deps.Board.Set(status.Entry{
			CaseNumber: u.CaseNumber,
			DocumentID: u.DocumentID,
			Status:     u.Status,
			S3Key:      u.S3Key,
			Error:      u.Error,
		})
		if u.Status == status.StatusFailed {
			msg := fmt.Sprintf("Upload failed for %s", u.CaseNumber)
			if u.Error != "" {
				msg += ": " + u.Error
			}
			o.notify(notify.LevelError, msg, false)
		}

	case channel.ActionUpdateProgress:
		var p channel.ProgressUpdate
		if err := env.Decode(&p); err != nil {
			return err
		}
		o.deps.Board.SetProgress(p.CaseNumber, p.DocumentID, p.Progress)

	case channel.ActionUpdateSyncProgress:
		var p channel.SyncProgress
		if err := env.Decode(&p); err != nil {
			return err
		}
		o.deps.Board.SetSyncProgress(p.ProcessedCases, p.TotalCases)
		if p.TotalCases > 0 && p.ProcessedCases >= p.TotalCases {
			o.notify(notify.LevelSuccess, fmt.Sprintf("All %d cases synced", p.TotalCases), false)
		} else {
			o.notify(notify.LevelProgress, fmt.Sprintf("Synced %d of %d cases", p.ProcessedCases, p.TotalCases), false)
		}

	case channel.ActionSyncSelectedCase:
		var sel channel.SelectedCase
		if err := env.Decode(&sel); err != nil {
			return err
		}
		o.goSync(Request{Trigger: TriggerSelected, Selected: sel.SelectedText})

	case channel.ActionShowError:
		var m channel.ErrorMessage
		if err := env.Decode(&m); err != nil {
			return err
		}
		o.notify(notify.LevelError, m.Message, false)

	case channel.ActionTriggerAutoSync:
		o.ScheduleAutoSync()

	default:
		return fmt.Errorf("%w: %s", ErrUnknownAction, env.Action)
	}
	return nil
}
