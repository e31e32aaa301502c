package quest

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Quest text is a five-field block:
//
//	Title: <single line>
//	Backstory: <one or more lines, up to the next Objective: line>
//	Objective: <single line>
//	Reward: <integer> XP
//	Icon: <single line>        (optional)
//
// Labels are case-insensitive. Two independent gates apply: CheckFormat
// validates the block shape, Validate validates the extracted fields.

// FormatError reports why a block of quest text does not match the grammar.
type FormatError struct {
	Line   int // 1-based line of the offending text, 0 when not line specific
	Reason string
}

func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("invalid quest format: line %d: %s", e.Line, e.Reason)
	}
	return "invalid quest format: " + e.Reason
}

var (
	ErrMissingField = errors.New("required field is empty")
	ErrZeroReward   = errors.New("reward must be greater than zero")
)

// FieldError reports a quest field rejected by the acceptance gate.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string { return e.Field + ": " + e.Err.Error() }
func (e *FieldError) Unwrap() error { return e.Err }

// Parsed is the outcome of reading a block of quest text. Quest always holds
// the best-effort extracted fields; Format holds the format-gate verdict.
type Parsed struct {
	Quest  Quest
	Format error
}

// Valid reports whether the text passed the format gate.
func (p Parsed) Valid() bool { return p.Format == nil }

// Parse extracts fields from text and checks its format. The two results are
// independent: a malformed block still yields whatever fields were found.
func Parse(text string) Parsed {
	return Parsed{
		Quest:  Extract(text),
		Format: CheckFormat(text),
	}
}

// Accept runs both gates and returns the quest ready to be added, with
// status Pending.
func Accept(text string) (Quest, error) {
	p := Parse(text)
	if p.Format != nil {
		return Quest{}, p.Format
	}
	if err := Validate(p.Quest); err != nil {
		return Quest{}, err
	}
	return p.Quest, nil
}

// Validate is the field-level acceptance gate: title, backstory and objective
// must be non-empty and the reward positive.
func Validate(q Quest) error {
	var errs []error
	for _, f := range []struct {
		name, value string
	}{
		{"title", q.Title},
		{"backstory", q.Backstory},
		{"objective", q.Objective},
	} {
		if strings.TrimSpace(f.value) == "" {
			errs = append(errs, &FieldError{Field: f.name, Err: ErrMissingField})
		}
	}
	if q.Reward <= 0 {
		errs = append(errs, &FieldError{Field: "reward", Err: ErrZeroReward})
	}
	return errors.Join(errs...)
}

var (
	titlePattern     = regexp.MustCompile(`(?i)Title:\s*(.+)`)
	backstoryPattern = regexp.MustCompile(`(?is)Backstory:\s*(.*?)\nObjective:`)
	objectivePattern = regexp.MustCompile(`(?i)Objective:\s*(.+)`)
	rewardPattern    = regexp.MustCompile(`(?i)Reward:\s*(\d+)\s*XP?`)
	iconPattern      = regexp.MustCompile(`(?i)Icon:\s*(.+)`)
)

// Extract pulls each field out of text with its own pattern. Fields that are
// not found are left empty (reward 0, icon DefaultIcon).
func Extract(text string) Quest {
	text = normalizeNewlines(text)
	q := Quest{
		Title:     firstGroup(titlePattern, text),
		Backstory: firstGroup(backstoryPattern, text),
		Objective: firstGroup(objectivePattern, text),
		Icon:      firstGroup(iconPattern, text),
		Status:    StatusPending,
	}
	if n, err := strconv.Atoi(firstGroup(rewardPattern, text)); err == nil {
		q.Reward = n
	}
	if q.Icon == "" {
		q.Icon = DefaultIcon
	}
	return q
}

func firstGroup(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// CheckFormat scans text line by line against the five-field grammar. The
// whole trimmed text must be consumed.
func CheckFormat(text string) error {
	lines := strings.Split(strings.TrimSpace(normalizeNewlines(text)), "\n")

	title, ok := labelled(lines[0], "title")
	if !ok {
		return &FormatError{Line: 1, Reason: `expected "Title:"`}
	}
	if title == "" {
		return &FormatError{Line: 1, Reason: "title is empty"}
	}
	if len(lines) < 2 {
		return &FormatError{Reason: `missing "Backstory:"`}
	}
	if _, ok := labelled(lines[1], "backstory"); !ok {
		return &FormatError{Line: 2, Reason: `expected "Backstory:"`}
	}

	// The backstory ends at the first Objective: line that lets the rest of
	// the block parse.
	var lastErr error = &FormatError{Reason: `missing "Objective:"`}
	for i := 2; i < len(lines); i++ {
		if _, ok := labelled(lines[i], "objective"); !ok {
			continue
		}
		err := checkTail(lines, i)
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return lastErr
}

// checkTail validates the Objective, Reward and optional Icon lines starting
// at index i.
func checkTail(lines []string, i int) error {
	if v, _ := labelled(lines[i], "objective"); v == "" {
		return &FormatError{Line: i + 1, Reason: "objective is empty"}
	}
	i++
	if i >= len(lines) {
		return &FormatError{Reason: `missing "Reward:"`}
	}
	v, ok := labelled(lines[i], "reward")
	if !ok {
		return &FormatError{Line: i + 1, Reason: `expected "Reward:"`}
	}
	if !rewardValue(v) {
		return &FormatError{Line: i + 1, Reason: `reward must look like "<number> XP"`}
	}
	i++
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	if i == len(lines) {
		return nil
	}
	icon, ok := labelled(lines[i], "icon")
	if !ok {
		return &FormatError{Line: i + 1, Reason: "unexpected text after reward"}
	}
	if icon == "" {
		return &FormatError{Line: i + 1, Reason: "icon is empty"}
	}
	if i != len(lines)-1 {
		return &FormatError{Line: i + 2, Reason: "unexpected text after icon"}
	}
	return nil
}

// labelled reports whether line starts with "<label>:" (any case) and returns
// the remainder with surrounding whitespace removed.
func labelled(line, label string) (string, bool) {
	prefix := label + ":"
	if len(line) < len(prefix) || !strings.EqualFold(line[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(line[len(prefix):]), true
}

// rewardValue accepts "<digits> XP" with optional spaces around the unit.
func rewardValue(v string) bool {
	digits := strings.TrimRightFunc(v, func(r rune) bool { return !isDigit(r) })
	unit := strings.TrimSpace(v[len(digits):])
	digits = strings.TrimSpace(digits)
	if digits == "" || !strings.EqualFold(unit, "xp") {
		return false
	}
	for _, r := range digits {
		if !isDigit(r) {
			return false
		}
	}
	return true
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func normalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

// Generated holds the fields returned by a generation provider.
type Generated struct {
	Title     string `json:"title"`
	Backstory string `json:"backstory"`
	Objective string `json:"objective"`
	Reward    int    `json:"reward"`
	Icon      string `json:"icon"`
}

// Format assembles generated fields into a quest text block. The Icon line is
// omitted when no icon was generated.
func Format(g Generated) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Title: %s\nBackstory: %s\nObjective: %s\nReward: %d XP",
		g.Title, g.Backstory, g.Objective, g.Reward)
	if icon := strings.TrimSpace(g.Icon); icon != "" {
		fmt.Fprintf(&sb, "\nIcon: %s", icon)
	}
	return sb.String()
}

// Text renders q back into the five-field block.
func Text(q Quest) string {
	return Format(Generated{
		Title:     q.Title,
		Backstory: q.Backstory,
		Objective: q.Objective,
		Reward:    q.Reward,
		Icon:      q.Icon,
	})
}
