package telephony

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"hangup-attribution/internal/hangupby"
)

// TaskRouterEventForm captures the subset of workspace event callback fields we care about.
// TaskRouter posts application/x-www-form-urlencoded.
//
// Keep it adapter-only: attribution decisions are made in internal/hangupby.
type TaskRouterEventForm struct {
	EventType      string
	AccountSid     string
	WorkspaceSid   string
	ResourceSid    string
	ResourceType   string
	TaskSid        string
	TaskAttributes string
	WorkerSid      string
	Timestamp      string
}

const EventReservationWrapup = "reservation.wrapup"

func ParseTaskRouterEvent(r *http.Request) (TaskRouterEventForm, error) {
	if err := r.ParseForm(); err != nil {
		return TaskRouterEventForm{}, err
	}
	return TaskRouterEventForm{
		EventType:      strings.TrimSpace(r.PostFormValue("EventType")),
		AccountSid:     r.PostFormValue("AccountSid"),
		WorkspaceSid:   r.PostFormValue("WorkspaceSid"),
		ResourceSid:    r.PostFormValue("ResourceSid"),
		ResourceType:   r.PostFormValue("ResourceType"),
		TaskSid:        r.PostFormValue("TaskSid"),
		TaskAttributes: r.PostFormValue("TaskAttributes"),
		WorkerSid:      r.PostFormValue("WorkerSid"),
		Timestamp:      r.PostFormValue("Timestamp"),
	}, nil
}

// taskAttributes is the part of the task attribute object read at wrap-up.
type taskAttributes struct {
	hangupby.Attributes
	TransferMeta *struct {
		Mode              string `json:"mode"`
		TransferredBy     string `json:"initiatingWorkerSid"`
		InitiatingTaskSid string `json:"initiatingReservationSid"`
	} `json:"transferMeta,omitempty"`
}

// ToTask converts a reservation wrap-up event into the engine's snapshot.
// Event callbacks carry no participant history, so a consult in progress is only
// detected when the desktop reports the wrap-up itself.
func (f TaskRouterEventForm) ToTask() (hangupby.Task, error) {
	t := hangupby.Task{
		SID:          f.ResourceSid,
		TaskSID:      f.TaskSid,
		WorkspaceSID: f.WorkspaceSid,
		WorkerSID:    f.WorkerSid,
	}
	if f.TaskAttributes == "" {
		return t, nil
	}
	var attrs taskAttributes
	if err := json.Unmarshal([]byte(f.TaskAttributes), &attrs); err != nil {
		return hangupby.Task{}, fmt.Errorf("telephony: task attributes: %w", err)
	}
	t.Attributes = attrs.Attributes
	if attrs.TransferMeta != nil {
		t.IncomingTransfer = &hangupby.TransferContext{
			Type:          hangupby.TransferType(strings.ToUpper(attrs.TransferMeta.Mode)),
			Mode:          attrs.TransferMeta.Mode,
			TransferredBy: attrs.TransferMeta.TransferredBy,
		}
	}
	return t, nil
}

// ValidateSignature checks X-Twilio-Signature: base64(HMAC-SHA1(authToken, url + sorted k+v pairs)).
func ValidateSignature(authToken, fullURL string, params url.Values, signature string) bool {
	if authToken == "" || signature == "" {
		return false
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(fullURL)
	for _, k := range keys {
		for _, v := range params[k] {
			b.WriteString(k)
			b.WriteString(v)
		}
	}
	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(b.String()))
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
