package db

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/scalecode-solutions/famboard/internal/models"
	"github.com/scalecode-solutions/famboard/internal/planimport"
	"github.com/scalecode-solutions/famboard/internal/review"
)

// Integration tests run against a real Postgres instance and are skipped
// unless TEST_DATABASE_URL is set.

func testDB(t *testing.T) *DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	d, err := New(url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := d.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func mustDevice(t *testing.T, d *DB, ctx context.Context) *models.Device {
	t.Helper()
	device, _, err := d.EnsureDevice(ctx, uuid.NewString())
	if err != nil {
		t.Fatalf("EnsureDevice: %v", err)
	}
	return device
}

func mustParse(t *testing.T, markdown string) *planimport.Plan {
	t.Helper()
	parsed, err := planimport.Parse(markdown)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return parsed
}

const flowMarkdown = `# Tidy the Yard
## Day 1 – Rake
- [ ] Rake the leaves (10 XP)
## Day 2 – Bag
- [ ] Bag the leaves (20 XP)
`

func TestEnsureDeviceIdempotent(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()

	id := uuid.NewString()
	first, created, err := d.EnsureDevice(ctx, id)
	if err != nil || !created {
		t.Fatalf("first EnsureDevice: created=%v err=%v", created, err)
	}
	second, created, err := d.EnsureDevice(ctx, id)
	if err != nil {
		t.Fatalf("second EnsureDevice: %v", err)
	}
	if created {
		t.Fatal("second call reported created")
	}
	if second.ID != first.ID {
		t.Fatalf("ids differ: %s vs %s", first.ID, second.ID)
	}
}

func TestImportPlanLayout(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()

	device := mustDevice(t, d, ctx)
	assignee, err := d.CreateUser(ctx, "Kid", models.UserRoleUser, nil)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	plan, err := d.ImportPlan(ctx, mustParse(t, flowMarkdown), assignee.ID, nil, device.ID)
	if err != nil {
		t.Fatalf("ImportPlan: %v", err)
	}
	if plan.Status != models.PlanStatusInProgress {
		t.Fatalf("status = %s", plan.Status)
	}
	if plan.TotalXP != 30 {
		t.Fatalf("total_xp = %d, want 30", plan.TotalXP)
	}
	if len(plan.Days) != 2 {
		t.Fatalf("days = %d", len(plan.Days))
	}
	if plan.Days[0].Locked || !plan.Days[1].Locked {
		t.Fatalf("locks = [%v %v], want [false true]", plan.Days[0].Locked, plan.Days[1].Locked)
	}
	for _, day := range plan.Days {
		for _, st := range day.Subtasks {
			if st.Status != models.SubtaskStatusPending {
				t.Fatalf("subtask status = %s", st.Status)
			}
		}
	}

	if _, err := d.ImportPlan(ctx, mustParse(t, flowMarkdown), -1, nil, device.ID); err != ErrNotFound {
		t.Fatalf("missing assignee err = %v, want ErrNotFound", err)
	}
}

func TestReviewFlow(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()

	submitterDevice := mustDevice(t, d, ctx)
	reviewerDevice := mustDevice(t, d, ctx)
	assignee, err := d.CreateUser(ctx, "Kid", models.UserRoleUser, nil)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := d.LinkDevice(ctx, submitterDevice.ID, &assignee.ID); err != nil {
		t.Fatalf("LinkDevice: %v", err)
	}
	submitterDevice, err = d.GetDevice(ctx, submitterDevice.ID)
	if err != nil {
		t.Fatalf("GetDevice: %v", err)
	}

	plan, err := d.ImportPlan(ctx, mustParse(t, flowMarkdown), assignee.ID, nil, reviewerDevice.ID)
	if err != nil {
		t.Fatalf("ImportPlan: %v", err)
	}
	day1Task := plan.Days[0].Subtasks[0]
	day2Task := plan.Days[1].Subtasks[0]

	// Day 2 is locked; submissions there are rejected.
	if _, err := d.CreateSubmission(ctx, day2Task.ID, submitterDevice.ID, &assignee.ID, nil, nil, nil); !errors.Is(err, ErrConflict) {
		t.Fatalf("locked-day submission err = %v, want ErrConflict", err)
	}

	comment := "done!"
	submission, err := d.CreateSubmission(ctx, day1Task.ID, submitterDevice.ID, &assignee.ID, nil, nil, &comment)
	if err != nil {
		t.Fatalf("CreateSubmission: %v", err)
	}

	// Double submission while under review is a conflict.
	if _, err := d.CreateSubmission(ctx, day1Task.ID, submitterDevice.ID, &assignee.ID, nil, nil, &comment); !errors.Is(err, ErrConflict) {
		t.Fatalf("double submission err = %v, want ErrConflict", err)
	}

	queue, err := d.ListReviewQueue(ctx)
	if err != nil {
		t.Fatalf("ListReviewQueue: %v", err)
	}
	found := false
	for _, row := range queue {
		if row.ID == day1Task.ID {
			found = true
			if row.Submission == nil || row.Submission.ID != submission.ID {
				t.Fatalf("queue submission = %+v", row.Submission)
			}
		}
	}
	if !found {
		t.Fatal("submitted subtask missing from queue")
	}

	req := models.ReviewDecisionRequest{Mood: models.MoodHappy, SubmissionID: submission.ID}

	// The assignee's linked device may not approve.
	_, err = d.ApproveSubtask(ctx, day1Task.ID, review.Actor{Device: submitterDevice}, req)
	var forbidden *review.ForbiddenError
	if !errors.As(err, &forbidden) {
		t.Fatalf("linked device approve err = %v, want ForbiddenError", err)
	}

	result, err := d.ApproveSubtask(ctx, day1Task.ID, review.Actor{Device: reviewerDevice}, req)
	if err != nil {
		t.Fatalf("ApproveSubtask: %v", err)
	}
	if result.Subtask.Status != models.SubtaskStatusApproved {
		t.Fatalf("status = %s", result.Subtask.Status)
	}
	if result.XPEvent == nil || result.XPEvent.Delta != 10 {
		t.Fatalf("xp event = %+v", result.XPEvent)
	}
	if !result.Sync.Changed {
		t.Fatal("approving the only day-1 subtask should unlock day 2")
	}

	refreshed, _, err := d.RefreshPlan(ctx, plan.ID)
	if err != nil {
		t.Fatalf("RefreshPlan: %v", err)
	}
	if refreshed.Days[1].Locked {
		t.Fatal("day 2 still locked after day 1 completion")
	}

	// Approving again is a precondition failure.
	if _, err := d.ApproveSubtask(ctx, day1Task.ID, review.Actor{Device: reviewerDevice}, req); !errors.Is(err, review.ErrNotAwaitingReview) {
		t.Fatalf("double approve err = %v, want ErrNotAwaitingReview", err)
	}

	// Day 2: submit, deny, resubmit, approve.
	sub2, err := d.CreateSubmission(ctx, day2Task.ID, submitterDevice.ID, &assignee.ID, nil, nil, &comment)
	if err != nil {
		t.Fatalf("day 2 submission: %v", err)
	}
	denyReq := models.ReviewDecisionRequest{Mood: models.MoodSad, SubmissionID: sub2.ID}
	if _, err := d.DenySubtask(ctx, day2Task.ID, review.Actor{Device: reviewerDevice}, denyReq); !errors.Is(err, review.ErrReasonRequired) {
		t.Fatalf("deny without reason err = %v", err)
	}
	denyReq.Reason = "leaves still everywhere"
	denyResult, err := d.DenySubtask(ctx, day2Task.ID, review.Actor{Device: reviewerDevice}, denyReq)
	if err != nil {
		t.Fatalf("DenySubtask: %v", err)
	}
	if denyResult.Subtask.Status != models.SubtaskStatusDenied {
		t.Fatalf("status = %s", denyResult.Subtask.Status)
	}
	if denyResult.XPEvent != nil {
		t.Fatal("deny must not write a ledger event")
	}

	sub3, err := d.CreateSubmission(ctx, day2Task.ID, submitterDevice.ID, &assignee.ID, nil, nil, &comment)
	if err != nil {
		t.Fatalf("resubmission: %v", err)
	}

	// Echoing the superseded submission is a stale-submission conflict.
	staleReq := models.ReviewDecisionRequest{Mood: models.MoodHappy, SubmissionID: sub2.ID}
	if _, err := d.ApproveSubtask(ctx, day2Task.ID, review.Actor{Device: reviewerDevice}, staleReq); !errors.Is(err, review.ErrStaleSubmission) {
		t.Fatalf("stale approve err = %v, want ErrStaleSubmission", err)
	}

	finalReq := models.ReviewDecisionRequest{Mood: models.MoodHappy, SubmissionID: sub3.ID}
	finalResult, err := d.ApproveSubtask(ctx, day2Task.ID, review.Actor{Device: reviewerDevice}, finalReq)
	if err != nil {
		t.Fatalf("final approve: %v", err)
	}
	if finalResult.Plan.Status != models.PlanStatusComplete {
		t.Fatalf("plan status = %s, want complete", finalResult.Plan.Status)
	}

	// The ledger holds exactly the two approval deltas.
	total, err := d.UserTotalXP(ctx, assignee.ID)
	if err != nil {
		t.Fatalf("UserTotalXP: %v", err)
	}
	if total != 30 {
		t.Fatalf("total xp = %d, want 30", total)
	}

	events, err := d.ListXPEvents(ctx, assignee.ID, 10)
	if err != nil {
		t.Fatalf("ListXPEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	for _, e := range events {
		if e.Reason != "subtask.approved" {
			t.Fatalf("reason = %q", e.Reason)
		}
	}
}

func TestActivityLogPaging(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()

	device := mustDevice(t, d, ctx)
	for i := 0; i < 3; i++ {
		if err := d.InsertActivity(ctx, "test.action", "test", int64(i), nil, device.ID, nil); err != nil {
			t.Fatalf("InsertActivity: %v", err)
		}
	}

	entries, err := d.ListActivity(ctx, 2, 0)
	if err != nil {
		t.Fatalf("ListActivity: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
}
