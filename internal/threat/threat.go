package threat

import "strings"

// Label is the closed set of detection classes the classifier understands.
// Anything else parses to LabelOther and is ignored.
type Label string

const (
	LabelPerson   Label = "person"
	LabelFire     Label = "fire"
	LabelSmoke    Label = "smoke"
	LabelBackpack Label = "backpack"
	LabelHandbag  Label = "handbag"
	LabelSuitcase Label = "suitcase"
	LabelOther    Label = "other"
)

// ParseLabel normalizes a raw detector class name to a known label.
func ParseLabel(raw string) Label {
	switch Label(strings.ToLower(strings.TrimSpace(raw))) {
	case LabelPerson:
		return LabelPerson
	case LabelFire:
		return LabelFire
	case LabelSmoke:
		return LabelSmoke
	case LabelBackpack:
		return LabelBackpack
	case LabelHandbag:
		return LabelHandbag
	case LabelSuitcase:
		return LabelSuitcase
	default:
		return LabelOther
	}
}

// Priority is the severity tier attached to a verdict.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	default:
		return "low"
	}
}

// Verdict is the classification of a single detection.
type Verdict struct {
	Label    Label
	IsThreat bool
	Priority Priority
}

// Classify maps a label plus the after-hours flag to a verdict.
//
//	fire, smoke                ->  threat, high (any time)
//	person                     ->  threat, high after hours; otherwise clear
//	backpack/handbag/suitcase  ->  threat, medium after hours; otherwise clear
//	anything else              ->  clear, low
//
// Pure function: no clock reads, no state, never fails.
func Classify(label Label, afterHours bool) Verdict {
	switch label {
	case LabelFire, LabelSmoke:
		return Verdict{Label: label, IsThreat: true, Priority: PriorityHigh}
	case LabelPerson:
		if afterHours {
			return Verdict{Label: label, IsThreat: true, Priority: PriorityHigh}
		}
		return Verdict{Label: label, IsThreat: false, Priority: PriorityLow}
	case LabelBackpack, LabelHandbag, LabelSuitcase:
		if afterHours {
			return Verdict{Label: label, IsThreat: true, Priority: PriorityMedium}
		}
		return Verdict{Label: label, IsThreat: false, Priority: PriorityLow}
	default:
		return Verdict{Label: LabelOther, IsThreat: false, Priority: PriorityLow}
	}
}
