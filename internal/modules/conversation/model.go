// README: Conversation steps, in-flight state, and command/answer parsing.
package conversation

import (
	"strings"

	"carpool/internal/modules/profile"
	"carpool/internal/types"
)

// Step is the current position of a requester's multi-turn input collection.
// Idle is represented by the absence of a stored State.
type Step string

const (
	StepName        Step = "awaiting_name"
	StepGender      Step = "awaiting_gender"
	StepPetPref     Step = "awaiting_pet_pref"
	StepSmokePref   Step = "awaiting_smoke_pref"
	StepOrigin      Step = "awaiting_origin"
	StepDestination Step = "awaiting_destination"
	StepTime        Step = "awaiting_time"
)

// State is the partially collected booking, exclusively owned by one
// requester's session.
type State struct {
	RequesterID types.ID `json:"requester_id"`
	Step        Step     `json:"step"`

	// Profile setup chain, only populated on a requester's first booking.
	SetupProfile  bool   `json:"setup_profile,omitempty"`
	DisplayName   string `json:"display_name,omitempty"`
	Gender        string `json:"gender,omitempty"`
	PetTolerant   bool   `json:"pet_tolerant,omitempty"`
	HasPet        bool   `json:"has_pet,omitempty"`
	SmokeTolerant bool   `json:"smoke_tolerant,omitempty"`
	Smokes        bool   `json:"smokes,omitempty"`

	Origin           *types.Point `json:"origin,omitempty"`
	OriginLabel      string       `json:"origin_label,omitempty"`
	Destination      *types.Point `json:"destination,omitempty"`
	DestinationLabel string       `json:"destination_label,omitempty"`
}

// Command is a control command recognized from any step.
type Command int

const (
	CmdNone Command = iota
	CmdStart
	CmdQuery
	CmdCancel
)

// Closed synonym sets, matched case-insensitively after trimming.
var commandSynonyms = map[string]Command{
	"預約":     CmdStart,
	"我要搭車":   CmdStart,
	"book":   CmdStart,
	"查詢":     CmdQuery,
	"查詢預約":   CmdQuery,
	"status": CmdQuery,
	"取消":     CmdCancel,
	"取消預約":   CmdCancel,
	"cancel": CmdCancel,
}

func ParseCommand(text string) Command {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if cmd, ok := commandSynonyms[normalized]; ok {
		return cmd
	}
	return CmdNone
}

func parseGender(text string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "男", "male":
		return profile.GenderMale, true
	case "女", "female":
		return profile.GenderFemale, true
	case "其他", "other":
		return profile.GenderOther, true
	}
	return "", false
}

// habitAnswer covers the pet and smoking questions. Each is a three-option
// closed enumeration filling both the declared status and the tolerance in a
// single step.
type habitAnswer int

const (
	answerHave habitAnswer = iota
	answerAccept
	answerRefuse
)

func parsePetAnswer(text string) (habitAnswer, bool) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "我有寵物", "有寵物", "have pet":
		return answerHave, true
	case "接受寵物", "接受", "accept":
		return answerAccept, true
	case "不接受寵物", "不接受", "refuse":
		return answerRefuse, true
	}
	return 0, false
}

func parseSmokeAnswer(text string) (habitAnswer, bool) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "我會吸菸", "吸菸", "smoker":
		return answerHave, true
	case "接受吸菸", "接受", "accept":
		return answerAccept, true
	case "不接受吸菸", "不接受", "refuse":
		return answerRefuse, true
	}
	return 0, false
}
