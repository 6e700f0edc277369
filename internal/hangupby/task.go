package hangupby

// Task is the wrap-up snapshot of one worker's view of a voice task.
//
// SID keys the attribution store (the reservation as seen by the worker);
// TaskSID keys the permanent task record. TaskSID falls back to SID.
type Task struct {
	SID          string `json:"sid"`
	TaskSID      string `json:"task_sid,omitempty"`
	WorkspaceSID string `json:"workspace_sid,omitempty"`
	WorkerSID    string `json:"worker_sid,omitempty"`

	Attributes Attributes `json:"attributes"`

	// IncomingTransfer is non-nil iff this task was created as the target of a transfer.
	IncomingTransfer *TransferContext `json:"incoming_transfer,omitempty"`

	// Participants is the cached conference membership known to the desktop.
	Participants []Participant `json:"participants,omitempty"`
}

type Attributes struct {
	Conference *ConferenceRef `json:"conference,omitempty"`

	// Destination is set once a transfer to an external number has been dialed.
	Destination string `json:"destination,omitempty"`

	CallSID string `json:"call_sid,omitempty"`
}

type ConferenceRef struct {
	SID          string         `json:"sid,omitempty"`
	Participants ConferenceLegs `json:"participants"`
}

// ConferenceLegs holds the call sids of the original legs.
type ConferenceLegs struct {
	Customer string `json:"customer,omitempty"`
	Worker   string `json:"worker,omitempty"`
}

type TransferType string

const (
	TransferTypeCold TransferType = "COLD"
	TransferTypeWarm TransferType = "WARM"
)

type TransferContext struct {
	Type          TransferType `json:"type"`
	Mode          string       `json:"mode,omitempty"`
	TransferredBy string       `json:"transferred_by,omitempty"`
}

type ParticipantType string

const (
	ParticipantCustomer   ParticipantType = "customer"
	ParticipantWorker     ParticipantType = "worker"
	ParticipantExternal   ParticipantType = "external"
	ParticipantSupervisor ParticipantType = "supervisor"
)

type Participant struct {
	Type      ParticipantType `json:"participant_type"`
	WorkerSID string          `json:"worker_sid,omitempty"`
	CallSID   string          `json:"call_sid,omitempty"`
	Status    string          `json:"status,omitempty"`
}

// IsCall reports whether the task has a conference; attribution only applies to calls.
func (t Task) IsCall() bool {
	return t.Attributes.Conference != nil
}

// RecordSID is the identifier used for the permanent task record.
func (t Task) RecordSID() string {
	if t.TaskSID != "" {
		return t.TaskSID
	}
	return t.SID
}
