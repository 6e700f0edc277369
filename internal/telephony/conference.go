package telephony

import (
	"context"
	"errors"

	"hangup-attribution/internal/hangupby"
)

// ParticipantLister is the slice of Provider needed for live membership checks.
type ParticipantLister interface {
	ListConferenceParticipants(ctx context.Context, conferenceSID string) ([]ConferenceParticipant, error)
}

// ConferenceQuery answers hangupby's membership questions.
//
// HasAnotherWorkerJoined only reads the snapshot sent by the desktop.
// HasCustomerJoined asks the provider for the conference's live participants.
type ConferenceQuery struct {
	Participants ParticipantLister
}

func NewConferenceQuery(p ParticipantLister) ConferenceQuery {
	return ConferenceQuery{Participants: p}
}

// HasAnotherWorkerJoined counts any worker other than the task's own, including ones that have left.
func (q ConferenceQuery) HasAnotherWorkerJoined(task hangupby.Task) bool {
	var ownCall string
	if task.Attributes.Conference != nil {
		ownCall = task.Attributes.Conference.Participants.Worker
	}
	for _, p := range task.Participants {
		if p.Type != hangupby.ParticipantWorker {
			continue
		}
		if task.WorkerSID != "" && p.WorkerSID == task.WorkerSID {
			continue
		}
		if ownCall != "" && p.CallSID == ownCall {
			continue
		}
		return true
	}
	return false
}

func (q ConferenceQuery) HasCustomerJoined(ctx context.Context, task hangupby.Task) (bool, error) {
	conf := task.Attributes.Conference
	if conf == nil || conf.SID == "" || conf.Participants.Customer == "" {
		return false, nil
	}
	if q.Participants == nil {
		return false, errors.New("telephony: participant lister not configured")
	}

	live, err := q.Participants.ListConferenceParticipants(ctx, conf.SID)
	if errors.Is(err, ErrNotFound) {
		// The conference has already ended.
		return false, nil
	}
	if err != nil {
		return false, err
	}
	for _, p := range live {
		if p.CallSID == conf.Participants.Customer {
			return true, nil
		}
	}
	return false, nil
}
