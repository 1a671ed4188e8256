package planimport

import (
	"strings"
	"testing"
)

const sampleMarkdown = `# Clean the Garage

## Day 1 – Sorting
- [ ] Sort tools into bins (20 XP)
- [ ] Sweep the floor

## Day 2 — Shelves
- [ ] Assemble the shelf unit (30 XP)

## Day 3 - Finish
- [ ] Label every bin (5 XP)
`

func TestParse(t *testing.T) {
	plan, err := Parse(sampleMarkdown)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if plan.Title != "Clean the Garage" {
		t.Fatalf("title = %q", plan.Title)
	}
	if len(plan.Days) != 3 {
		t.Fatalf("days = %d, want 3", len(plan.Days))
	}

	day1 := plan.Days[0]
	if day1.Title != "Sorting" || day1.HeadingNumber != 1 {
		t.Fatalf("day 1 = %+v", day1)
	}
	if len(day1.Subtasks) != 2 {
		t.Fatalf("day 1 subtasks = %d", len(day1.Subtasks))
	}
	if day1.Subtasks[0].Text != "Sort tools into bins" || day1.Subtasks[0].XP != 20 {
		t.Fatalf("subtask = %+v", day1.Subtasks[0])
	}
	// No XP suffix falls back to the default.
	if day1.Subtasks[1].XP != DefaultSubtaskXP {
		t.Fatalf("default xp = %d", day1.Subtasks[1].XP)
	}

	if plan.Days[1].Title != "Shelves" || plan.Days[2].Title != "Finish" {
		t.Fatalf("dash variants: %+v", plan.Days)
	}

	if got := plan.TotalXP(); got != 65 {
		t.Fatalf("TotalXP = %d, want 65", got)
	}
}

func TestParseXPSuffixCaseInsensitive(t *testing.T) {
	plan, err := Parse("# P\n## Day 1 – D\n- [ ] Task (15 xp)\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if plan.Days[0].Subtasks[0].XP != 15 {
		t.Fatalf("xp = %d", plan.Days[0].Subtasks[0].XP)
	}
}

func TestParseStarBullets(t *testing.T) {
	plan, err := Parse("# P\n## Day 1 – D\n* [ ] Starred task\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if plan.Days[0].Subtasks[0].Text != "Starred task" {
		t.Fatalf("text = %q", plan.Days[0].Subtasks[0].Text)
	}
}

func TestParseRejectsMissingTitle(t *testing.T) {
	_, err := Parse("## Day 1 – D\n- [ ] Task\n")
	if err == nil || !strings.Contains(err.Error(), "title") {
		t.Fatalf("err = %v", err)
	}

	if _, err := Parse("   \n\n"); err == nil {
		t.Fatal("empty document parsed")
	}
}

func TestParseRejectsNonSequentialDays(t *testing.T) {
	_, err := Parse("# P\n## Day 2 – D\n- [ ] Task\n")
	if err == nil {
		t.Fatal("Day 2 first parsed")
	}

	_, err = Parse("# P\n## Day 1 – A\n- [ ] Task\n## Day 3 – B\n- [ ] Task\n")
	if err == nil {
		t.Fatal("skipped day parsed")
	}

	_, err = Parse("# P\n## Day 1 – A\n- [ ] Task\n## Day 1 – B\n- [ ] Task\n")
	if err == nil {
		t.Fatal("duplicate day parsed")
	}
}

func TestParseRejectsEmptyDay(t *testing.T) {
	_, err := Parse("# P\n## Day 1 – A\n## Day 2 – B\n- [ ] Task\n")
	if err == nil {
		t.Fatal("empty middle day parsed")
	}

	_, err = Parse("# P\n## Day 1 – A\n- [ ] Task\n## Day 2 – B\n")
	if err == nil {
		t.Fatal("empty trailing day parsed")
	}
}

func TestParseRejectsUnrecognizedContent(t *testing.T) {
	_, err := Parse("# P\n## Day 1 – A\n- [ ] Task\nJust some prose.\n")
	if err == nil {
		t.Fatal("prose line parsed")
	}

	_, err = Parse("# P\nOrphan line\n## Day 1 – A\n- [ ] Task\n")
	if err == nil {
		t.Fatal("content before first day parsed")
	}
}

func TestParseRejectsTaskOutsideDay(t *testing.T) {
	_, err := Parse("# P\n- [ ] Task\n## Day 1 – A\n- [ ] Task\n")
	if err == nil {
		t.Fatal("task before any day heading parsed")
	}
}

func TestParseRejectsEmptyTaskText(t *testing.T) {
	_, err := Parse("# P\n## Day 1 – A\n- [ ] (20 XP)\n")
	if err == nil {
		t.Fatal("task with only an XP suffix parsed")
	}
}

func TestParseSkipsExtraTopLevelHeadings(t *testing.T) {
	plan, err := Parse("# P\n# Ignored\n## Day 1 – A\n- [ ] Task\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if plan.Title != "P" || len(plan.Days) != 1 {
		t.Fatalf("plan = %+v", plan)
	}
}

func TestParseNoDays(t *testing.T) {
	if _, err := Parse("# P\n"); err == nil {
		t.Fatal("plan with no day sections parsed")
	}
}

func TestParseWindowsLineEndings(t *testing.T) {
	plan, err := Parse("# P\r\n## Day 1 – A\r\n- [ ] Task (5 XP)\r\n")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if plan.Days[0].Subtasks[0].XP != 5 {
		t.Fatalf("subtask = %+v", plan.Days[0].Subtasks[0])
	}
}
