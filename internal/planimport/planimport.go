// Package planimport parses the constrained markdown plan format:
//
//	# Plan Title
//	## Day 1 – First Day Title
//	- [ ] Task text (20 XP)
//	- [ ] Task without explicit XP
//
// Day headings must be numbered sequentially from 1 and every day needs at
// least one checklist item. Tasks without an "(NN XP)" suffix default to
// 10 XP. Any other non-blank content is rejected.
package planimport

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DefaultSubtaskXP is used when a checklist item carries no XP suffix.
const DefaultSubtaskXP = 10

var (
	// Accepts en dash, em dash, or plain hyphen between number and title.
	dayHeadingPattern = regexp.MustCompile(`^##\s+Day\s+(\d+)\s+[\x{2013}\x{2014}-]\s+(.+)$`)
	taskPattern       = regexp.MustCompile(`^[*-]\s+\[\s?\]\s*(.+)$`)
	xpSuffixPattern   = regexp.MustCompile(`(?i)\((\d+)\s*XP\)$`)
)

// ParseError describes why a markdown document was rejected.
type ParseError struct {
	Message string
}

func (e *ParseError) Error() string { return e.Message }

func parseErrorf(format string, args ...interface{}) error {
	return &ParseError{Message: fmt.Sprintf(format, args...)}
}

// Subtask is one parsed checklist item.
type Subtask struct {
	Text string
	XP   int
}

// Day is one parsed day section.
type Day struct {
	HeadingNumber int
	Title         string
	Subtasks      []Subtask
}

// Plan is the parsed document, ready for import.
type Plan struct {
	Title string
	Days  []Day
}

// TotalXP returns the sum of all subtask XP values in the parsed plan.
func (p *Plan) TotalXP() int {
	total := 0
	for _, day := range p.Days {
		for _, st := range day.Subtasks {
			total += st.XP
		}
	}
	return total
}

// Parse parses markdown into a Plan or returns a *ParseError.
func Parse(markdown string) (*Plan, error) {
	lines := strings.Split(strings.ReplaceAll(markdown, "\r\n", "\n"), "\n")

	var (
		title      string
		titleSet   bool
		days       []Day
		currentDay *Day
	)

	for _, rawLine := range lines {
		line := strings.TrimSpace(strings.ReplaceAll(rawLine, "\r", ""))
		if line == "" {
			continue
		}

		if !titleSet {
			if strings.HasPrefix(line, "# ") {
				title = strings.TrimSpace(line[2:])
				if title == "" {
					return nil, parseErrorf("markdown plan must start with a '# ' title heading")
				}
				titleSet = true
				continue
			}
			return nil, parseErrorf("markdown plan must start with a '# ' title heading")
		}

		// Additional top-level headings are ignored.
		if strings.HasPrefix(line, "# ") {
			continue
		}

		if match := dayHeadingPattern.FindStringSubmatch(line); match != nil {
			dayNumber, _ := strconv.Atoi(match[1])

			expected := 1
			if currentDay != nil {
				if len(currentDay.Subtasks) == 0 {
					return nil, parseErrorf("day %d has no checklist items", currentDay.HeadingNumber)
				}
				expected = currentDay.HeadingNumber + 1
				days = append(days, *currentDay)
			}

			if dayNumber != expected {
				return nil, parseErrorf("day headings must be sequential starting at 1; expected Day %d, found Day %d", expected, dayNumber)
			}

			dayTitle := strings.TrimSpace(match[2])
			if dayTitle == "" {
				return nil, parseErrorf("day title cannot be empty")
			}

			currentDay = &Day{HeadingNumber: dayNumber, Title: dayTitle}
			continue
		}

		if match := taskPattern.FindStringSubmatch(line); match != nil {
			if currentDay == nil {
				return nil, parseErrorf("checklist items must appear under a day heading")
			}
			text, xpValue, err := extractXPValue(strings.TrimSpace(match[1]))
			if err != nil {
				return nil, err
			}
			currentDay.Subtasks = append(currentDay.Subtasks, Subtask{Text: text, XP: xpValue})
			continue
		}

		return nil, parseErrorf("unrecognized markdown content: %q", line)
	}

	if !titleSet {
		return nil, parseErrorf("markdown plan is empty; no title heading found")
	}
	if currentDay == nil {
		return nil, parseErrorf("no day sections found in markdown plan")
	}
	if len(currentDay.Subtasks) == 0 {
		return nil, parseErrorf("day %d has no checklist items", currentDay.HeadingNumber)
	}
	days = append(days, *currentDay)

	return &Plan{Title: title, Days: days}, nil
}

func extractXPValue(text string) (string, int, error) {
	if match := xpSuffixPattern.FindStringSubmatch(text); match != nil {
		xpValue, _ := strconv.Atoi(match[1])
		cleaned := strings.TrimRight(text[:len(text)-len(match[0])], " \t")
		if cleaned == "" {
			return "", 0, parseErrorf("task description cannot be empty")
		}
		return cleaned, xpValue, nil
	}
	if text == "" {
		return "", 0, parseErrorf("task description cannot be empty")
	}
	return text, DefaultSubtaskXP, nil
}
