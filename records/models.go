package records

import "time"

// TimeLayout is the ISO-8601 form used wherever a timestamp becomes text.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

var statusPriority = map[Status]int{
	StatusInProgress: 0,
	StatusOpen:       1,
	StatusCompleted:  2,
	StatusCancelled:  3,
}

// Priority orders statuses by operational urgency. Unknown values sort last.
func (s Status) Priority() int {
	p, ok := statusPriority[s]
	if !ok {
		return len(statusPriority)
	}

	return p
}

func (s Status) Valid() bool {
	_, ok := statusPriority[s]
	return ok
}

type Job struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	Title        string    `json:"title"`
	Customer     string    `json:"customer"`
	Location     string    `json:"location"`
	MachineModel string    `json:"machineModel"`
	SerialNo     string    `json:"serialNo"`
	ErrorCode    string    `json:"errorCode"`
	Symptoms     string    `json:"symptoms"`
	Fix          string    `json:"fix"`
	Status       Status    `json:"status"`
}

type Attachment struct {
	ID        string    `json:"id"`
	JobID     string    `json:"jobId"`
	Filename  string    `json:"filename"`
	MimeType  string    `json:"mimeType"`
	Data      string    `json:"data"`
	CreatedAt time.Time `json:"createdAt"`
}

type Document struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Filename  string    `json:"filename"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type Kind string

const (
	KindJob      Kind = "job"
	KindDocument Kind = "document"
)

type SearchResult struct {
	Kind    Kind   `json:"kind"`
	ID      string `json:"id"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// State is a snapshot of every stored collection except templates.
type State struct {
	Jobs        []Job        `json:"jobs"`
	Documents   []Document   `json:"documents"`
	Attachments []Attachment `json:"attachments"`
}

func (s State) Job(id string) (Job, bool) {
	for _, j := range s.Jobs {
		if j.ID == id {
			return j, true
		}
	}

	return Job{}, false
}

func (s State) AttachmentsOf(jobID string) []Attachment {
	res := make([]Attachment, 0)
	for _, a := range s.Attachments {
		if a.JobID == jobID {
			res = append(res, a)
		}
	}

	return res
}
