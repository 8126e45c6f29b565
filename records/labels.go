package records

// Labels are the display names a locale uses for record fields and statuses.
// Exports are keyed by them and imports fall back to them.
type Labels struct {
	Locale       string
	Title        string
	Customer     string
	Location     string
	MachineModel string
	SerialNo     string
	ErrorCode    string
	Symptoms     string
	Fix          string
	Status       string
	CreatedAt    string
	UpdatedAt    string
	Document     string
	Attachments  string

	Open       string
	InProgress string
	Completed  string
	Cancelled  string
}

var English = Labels{
	Locale:       "en",
	Title:        "Title",
	Customer:     "Customer",
	Location:     "Location",
	MachineModel: "Machine Model",
	SerialNo:     "Serial Number",
	ErrorCode:    "Error Code",
	Symptoms:     "Symptoms",
	Fix:          "Fix / Resolution",
	Status:       "Status",
	CreatedAt:    "Created",
	UpdatedAt:    "Updated",
	Document:     "Document",
	Attachments:  "Attachments",
	Open:         "Open",
	InProgress:   "In Progress",
	Completed:    "Completed",
	Cancelled:    "Cancelled",
}

var German = Labels{
	Locale:       "de",
	Title:        "Titel",
	Customer:     "Kunde",
	Location:     "Standort",
	MachineModel: "Maschinenmodell",
	SerialNo:     "Seriennummer",
	ErrorCode:    "Fehlercode",
	Symptoms:     "Symptome",
	Fix:          "Lösung / Behebung",
	Status:       "Status",
	CreatedAt:    "Erstellt",
	UpdatedAt:    "Aktualisiert",
	Document:     "Dokument",
	Attachments:  "Anhänge",
	Open:         "Offen",
	InProgress:   "In Bearbeitung",
	Completed:    "Abgeschlossen",
	Cancelled:    "Abgebrochen",
}

// Locales lists every known label set, English first.
var Locales = []Labels{English, German}

func LabelsFor(locale string) (Labels, bool) {
	for _, l := range Locales {
		if l.Locale == locale {
			return l, true
		}
	}

	return Labels{}, false
}

func (l Labels) StatusLabel(s Status) string {
	switch s {
	case StatusOpen:
		return l.Open
	case StatusInProgress:
		return l.InProgress
	case StatusCompleted:
		return l.Completed
	case StatusCancelled:
		return l.Cancelled
	default:
		return string(s)
	}
}
