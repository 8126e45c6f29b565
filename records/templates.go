package records

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TemplateData is the subset of job fields a template prefills.
type TemplateData struct {
	Title        string `json:"title,omitempty"`
	Customer     string `json:"customer,omitempty"`
	Location     string `json:"location,omitempty"`
	MachineModel string `json:"machineModel,omitempty"`
	SerialNo     string `json:"serialNo,omitempty"`
	ErrorCode    string `json:"errorCode,omitempty"`
	Symptoms     string `json:"symptoms,omitempty"`
	Fix          string `json:"fix,omitempty"`
	Status       Status `json:"status,omitempty"`
}

type JobTemplate struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Category    string       `json:"category"`
	Icon        string       `json:"icon"`
	Data        TemplateData `json:"data"`
	IsCustom    bool         `json:"isCustom,omitempty"`
	CreatedAt   time.Time    `json:"createdAt,omitzero"`
}

const (
	CategoryAll    = "All"
	CategoryCustom = "Custom"
)

var TemplateCategories = []string{
	CategoryAll,
	"Hydraulic",
	"Electrical",
	"Mechanical",
	"Pneumatic",
	"Control",
	"Maintenance",
	CategoryCustom,
}

var BuiltinTemplates = []JobTemplate{
	{
		ID: "hydraulic-leak", Name: "Hydraulic System Leak", Description: "Repair hydraulic fluid leak",
		Category: "Hydraulic", Icon: "Drop",
		Data: TemplateData{
			Title:     "Hydraulic System Leak Repair",
			ErrorCode: "H-304",
			Symptoms:  "Visible hydraulic fluid leak, reduced pressure, sluggish movement",
			Fix:       "Inspected hydraulic lines and fittings. Replaced damaged O-ring on cylinder connection. Pressure tested system. Refilled hydraulic fluid to specification.",
			Status:    StatusOpen,
		},
	},
	{
		ID: "motor-overheat", Name: "Motor Overheating", Description: "Motor running hot",
		Category: "Electrical", Icon: "ThermometerSimple",
		Data: TemplateData{
			Title:     "Motor Overheating Issue",
			ErrorCode: "E-208",
			Symptoms:  "Motor running hot, thermal protection triggering, unusual noise",
			Fix:       "Cleaned cooling vents and fan assembly. Checked bearing lubrication. Verified motor current draw is within specification. Replaced thermal sensor.",
			Status:    StatusOpen,
		},
	},
	{
		ID: "sensor-fault", Name: "Sensor Fault", Description: "Faulty or disconnected sensor",
		Category: "Electrical", Icon: "GitBranch",
		Data: TemplateData{
			Title:     "Sensor Malfunction",
			ErrorCode: "S-105",
			Symptoms:  "Erratic readings, sensor error on display, system not responding correctly",
			Fix:       "Tested sensor output voltage. Found wiring harness damaged. Repaired connector and secured wiring. Calibrated sensor and verified readings.",
			Status:    StatusOpen,
		},
	},
	{
		ID: "belt-replacement", Name: "Drive Belt Replacement", Description: "Worn or broken drive belt",
		Category: "Mechanical", Icon: "ArrowsHorizontal",
		Data: TemplateData{
			Title:     "Drive Belt Replacement",
			ErrorCode: "M-411",
			Symptoms:  "Belt squealing, slipping, visible wear/cracks, reduced power transmission",
			Fix:       "Removed old belt and inspected pulleys for wear. Installed new belt with correct tension. Verified alignment and test ran system.",
			Status:    StatusOpen,
		},
	},
	{
		ID: "plc-error", Name: "PLC Communication Error", Description: "Controller communication failure",
		Category: "Control", Icon: "Cpu",
		Data: TemplateData{
			Title:     "PLC Communication Fault",
			ErrorCode: "C-602",
			Symptoms:  "PLC not responding, communication timeout, I/O modules offline",
			Fix:       "Checked network cable connections. Reset communication module. Updated PLC firmware. Restored program from backup. Verified all I/O modules responding.",
			Status:    StatusOpen,
		},
	},
	{
		ID: "bearing-noise", Name: "Bearing Failure", Description: "Noisy or damaged bearing",
		Category: "Mechanical", Icon: "Circle",
		Data: TemplateData{
			Title:     "Bearing Replacement",
			ErrorCode: "M-502",
			Symptoms:  "Grinding noise, vibration, excessive heat at bearing location",
			Fix:       "Disassembled unit and inspected bearings. Found worn ball bearing with pitting. Replaced with OEM bearing. Relubricated and reassembled. Vibration levels normal.",
			Status:    StatusOpen,
		},
	},
	{
		ID: "pneumatic-leak", Name: "Pneumatic Air Leak", Description: "Air pressure loss",
		Category: "Pneumatic", Icon: "Wind",
		Data: TemplateData{
			Title:     "Pneumatic System Air Leak",
			ErrorCode: "P-220",
			Symptoms:  "Hissing sound, pressure drop, cylinder not holding position",
			Fix:       "Performed soap bubble test to locate leak. Found damaged air line fitting. Replaced fitting and secured connections. Pressure tested system at 90 PSI.",
			Status:    StatusOpen,
		},
	},
	{
		ID: "valve-stuck", Name: "Stuck Control Valve", Description: "Valve not actuating",
		Category: "Hydraulic", Icon: "Valve",
		Data: TemplateData{
			Title:     "Control Valve Stuck",
			ErrorCode: "H-408",
			Symptoms:  "Valve not responding to control signal, system not moving, manual override difficult",
			Fix:       "Removed valve and disassembled. Found contamination in spool. Cleaned thoroughly and replaced seals. Reinstalled and cycled valve. Response normal.",
			Status:    StatusOpen,
		},
	},
	{
		ID: "power-supply", Name: "Power Supply Failure", Description: "No power or voltage issues",
		Category: "Electrical", Icon: "Lightning",
		Data: TemplateData{
			Title:     "Power Supply Fault",
			ErrorCode: "E-101",
			Symptoms:  "No power to control panel, erratic behavior, voltage fluctuations",
			Fix:       "Tested incoming voltage and found brownout condition. Checked power supply output - capacitor failure. Replaced power supply unit. Verified all voltages within spec.",
			Status:    StatusOpen,
		},
	},
	{
		ID: "limit-switch", Name: "Limit Switch Failure", Description: "Position switch not working",
		Category: "Control", Icon: "CornersOut",
		Data: TemplateData{
			Title:     "Limit Switch Replacement",
			ErrorCode: "C-315",
			Symptoms:  "Machine not stopping at end position, safety interlock not working",
			Fix:       "Tested switch continuity - found open circuit. Replaced limit switch. Adjusted actuator position. Tested safety interlock cycle.",
			Status:    StatusOpen,
		},
	},
	{
		ID: "software-update", Name: "Software Update", Description: "Firmware or software upgrade",
		Category: "Control", Icon: "Upload",
		Data: TemplateData{
			Title:    "System Software Update",
			Symptoms: "Customer requested update, addressing known bugs, adding new features",
			Fix:      "Backed up current configuration. Uploaded new firmware version. Verified all parameters retained. Tested all functions. Documented version change.",
			Status:   StatusOpen,
		},
	},
	{
		ID: "preventive-maintenance", Name: "Preventive Maintenance", Description: "Scheduled maintenance service",
		Category: "Maintenance", Icon: "Wrench",
		Data: TemplateData{
			Title:    "Scheduled Preventive Maintenance",
			Symptoms: "Routine maintenance - no issues reported",
			Fix:      "Performed full inspection per maintenance schedule. Lubricated all points. Checked fluid levels. Inspected belts and hoses. Cleaned filters. Verified all safety systems.",
			Status:   StatusOpen,
		},
	},
	{
		ID: "emergency-stop", Name: "E-Stop Not Resetting", Description: "Emergency stop circuit fault",
		Category: "Control", Icon: "Warning",
		Data: TemplateData{
			Title:     "Emergency Stop Circuit Fault",
			ErrorCode: "C-999",
			Symptoms:  "E-stop button will not reset, safety circuit fault indication",
			Fix:       "Checked all E-stop buttons and safety interlocks. Found damaged cable at robot cell. Replaced cable and connectors. Reset safety circuit. Tested all E-stops.",
			Status:    StatusOpen,
		},
	},
	{
		ID: "encoder-failure", Name: "Encoder Not Reading", Description: "Position feedback lost",
		Category: "Control", Icon: "Barcode",
		Data: TemplateData{
			Title:     "Position Encoder Failure",
			ErrorCode: "C-550",
			Symptoms:  "Position feedback error, erratic movement, encoder signal lost",
			Fix:       "Inspected encoder wiring and found loose connection. Cleaned encoder disk and sensor head. Secured all connections. Recalibrated home position.",
			Status:    StatusOpen,
		},
	},
	{
		ID: "filter-clogged", Name: "Clogged Filter", Description: "Filter replacement needed",
		Category: "Maintenance", Icon: "Funnel",
		Data: TemplateData{
			Title:     "Filter Replacement",
			ErrorCode: "M-710",
			Symptoms:  "Reduced flow, pressure drop across filter, bypass indicator active",
			Fix:       "Shut down system and isolated filter. Replaced filter element. Checked for contamination source. Verified flow and pressure normal.",
			Status:    StatusOpen,
		},
	},
}

// TemplateFromJob captures the reusable part of a job. Customer specific fields are cleared.
func TemplateFromJob(job Job, name, description, category string, now time.Time) JobTemplate {
	if category == "" {
		category = CategoryCustom
	}

	return JobTemplate{
		ID:          "custom-" + uuid.NewString(),
		Name:        name,
		Description: description,
		Category:    category,
		Icon:        "Star",
		IsCustom:    true,
		CreatedAt:   now,
		Data: TemplateData{
			Title:        job.Title,
			MachineModel: job.MachineModel,
			ErrorCode:    job.ErrorCode,
			Symptoms:     job.Symptoms,
			Fix:          job.Fix,
			Status:       StatusOpen,
		},
	}
}

// ApplyTemplate returns a job prefilled from the template. Identity and timestamps are
// left for the caller.
func ApplyTemplate(t JobTemplate) Job {
	status := t.Data.Status
	if !status.Valid() {
		status = StatusOpen
	}

	return Job{
		Title:        t.Data.Title,
		Customer:     t.Data.Customer,
		Location:     t.Data.Location,
		MachineModel: t.Data.MachineModel,
		SerialNo:     t.Data.SerialNo,
		ErrorCode:    t.Data.ErrorCode,
		Symptoms:     t.Data.Symptoms,
		Fix:          t.Data.Fix,
		Status:       status,
	}
}

// TemplateCatalog lists custom templates ahead of the built-in ones.
func TemplateCatalog(custom []JobTemplate) []JobTemplate {
	return slices.Concat(custom, BuiltinTemplates)
}

func FindTemplate(templates []JobTemplate, id string) (JobTemplate, bool) {
	i := slices.IndexFunc(templates, func(t JobTemplate) bool { return t.ID == id })
	if i < 0 {
		return JobTemplate{}, false
	}

	return templates[i], true
}

// FilterTemplates matches a category (empty or CategoryAll for any) and a case-insensitive
// query against name, description and category.
func FilterTemplates(templates []JobTemplate, category, query string) []JobTemplate {
	q := strings.ToLower(query)
	res := make([]JobTemplate, 0, len(templates))
	for _, t := range templates {
		if category != "" && category != CategoryAll && t.Category != category {
			continue
		}

		if q != "" &&
			!strings.Contains(strings.ToLower(t.Name), q) &&
			!strings.Contains(strings.ToLower(t.Description), q) &&
			!strings.Contains(strings.ToLower(t.Category), q) {
			continue
		}

		res = append(res, t)
	}

	return res
}
