package access

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/jmwangaza/elimisha/core/course"
	"github.com/jmwangaza/elimisha/core/invite"
)

var errDBDown = errors.New("connection refused")

type (
	courseReaderStub struct {
		visibilities map[string]course.VisibilityInfo
		err          error
	}
	enrollmentReaderStub struct {
		enrolled map[[2]string]bool
		err      error
	}
	inviteReaderStub struct {
		links map[string]invite.Link
		err   error
	}
)

func (s courseReaderStub) GetCourseVisibility(_ context.Context, id string) (course.VisibilityInfo, error) {
	if s.err != nil {
		return course.VisibilityInfo{}, s.err
	}
	vis, ok := s.visibilities[id]
	if !ok {
		return course.VisibilityInfo{}, course.ErrNotFound
	}
	return vis, nil
}

func (s enrollmentReaderStub) EnrollmentExists(_ context.Context, userID, courseID string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.enrolled[[2]string{userID, courseID}], nil
}

func (s inviteReaderStub) GetLinkByToken(_ context.Context, token string) (invite.Link, error) {
	if s.err != nil {
		return invite.Link{}, s.err
	}
	link, ok := s.links[token]
	if !ok {
		return invite.Link{}, invite.ErrNotFound
	}
	return link, nil
}

func intPtr(i int) *int              { return &i }
func timePtr(t time.Time) *time.Time { return &t }
func claimsPtr(c Claims) *Claims     { return &c }
func now() time.Time                 { return time.Date(2021, time.May, 10, 12, 0, 0, 0, time.UTC) }
func future() *time.Time             { return timePtr(now().Add(24 * time.Hour)) }
func past() *time.Time               { return timePtr(now().Add(-24 * time.Hour)) }

func newTestEngine(courses courseReaderStub, enrollments enrollmentReaderStub, invites inviteReaderStub) *Engine {
	eng := NewEngine(courses, enrollments, invites)
	eng.nowFunc = now
	return eng
}

func TestEngine_Decide(t *testing.T) {
	courses := courseReaderStub{visibilities: map[string]course.VisibilityInfo{
		"pub1": {Visibility: course.VisibilityPublic, CreatorID: "t1"},
		"c1":   {Visibility: course.VisibilityHidden, CreatorID: "t1"},
		"c2":   {Visibility: course.VisibilityHidden, CreatorID: "t2"},
	}}
	enrollments := enrollmentReaderStub{enrolled: map[[2]string]bool{
		{"u2", "c1"}: true,
	}}
	invites := inviteReaderStub{links: map[string]invite.Link{
		"tok1":      {ID: "l1", Token: "tok1", CourseID: "c1", ExpiresAt: future(), MaxUsages: intPtr(5), UsageCount: 4},
		"tokFull":   {ID: "l2", Token: "tokFull", CourseID: "c1", ExpiresAt: future(), MaxUsages: intPtr(5), UsageCount: 5},
		"tokLate":   {ID: "l3", Token: "tokLate", CourseID: "c1", ExpiresAt: past(), MaxUsages: intPtr(5), UsageCount: 0},
		"tokOther":  {ID: "l4", Token: "tokOther", CourseID: "c2"},
		"tokNoTerm": {ID: "l5", Token: "tokNoTerm", CourseID: "c1"}, // no expiry, no limit
	}}
	eng := newTestEngine(courses, enrollments, invites)

	student := claimsPtr(Claims{SubjectID: "u1"})
	enrolled := claimsPtr(Claims{SubjectID: "u2"})
	creator := claimsPtr(Claims{SubjectID: "t1"})
	admin := claimsPtr(Claims{SubjectID: "a1", Admin: true})

	tests := []struct {
		name     string
		courseID string
		claims   *Claims
		token    string
		want     Verdict
	}{
		{name: "public course, no session", courseID: "pub1", want: VerdictAllow},
		{name: "public course, any session", courseID: "pub1", claims: student, want: VerdictAllow},
		{name: "public course, invite ignored", courseID: "pub1", token: "tokLate", want: VerdictAllow},
		{name: "hidden course, creator", courseID: "c1", claims: creator, want: VerdictAllow},
		{name: "hidden course, admin", courseID: "c1", claims: admin, want: VerdictAllow},
		{name: "hidden course, enrolled", courseID: "c1", claims: enrolled, want: VerdictAllow},
		{name: "hidden course, not enrolled", courseID: "c2", claims: student, want: VerdictDeny},
		{name: "hidden course, no session", courseID: "c1", want: VerdictDeny},
		{name: "unknown course", courseID: "nope", claims: admin, want: VerdictIndeterminate},
		{name: "unknown course, no session", courseID: "nope", want: VerdictIndeterminate},
		{name: "invite, one usage left", courseID: "c1", token: "tok1", want: VerdictAllow},
		{name: "invite, at usage limit", courseID: "c1", token: "tokFull", want: VerdictDeny},
		{name: "invite, expired", courseID: "c1", token: "tokLate", want: VerdictDeny},
		{name: "invite, no expiry no limit", courseID: "c1", token: "tokNoTerm", want: VerdictAllow},
		{name: "invite, wrong course", courseID: "c1", token: "tokOther", want: VerdictDeny},
		{name: "invite, unknown token", courseID: "c1", token: "lolnope", want: VerdictDeny},
		{name: "invite beats missing session", courseID: "c1", claims: nil, token: "tok1", want: VerdictAllow},
		{name: "invite for unenrolled session", courseID: "c1", claims: student, token: "tok1", want: VerdictAllow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := eng.Decide(context.Background(), tt.courseID, tt.claims, tt.token)
			if err != nil {
				t.Fatalf("Decide() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Decide() = %v; want %v", got, tt.want)
			}
		})
	}
}

// Removing the enrollment row flips the verdict back to deny.
func TestEngine_Decide_enrollmentRevoked(t *testing.T) {
	courses := courseReaderStub{visibilities: map[string]course.VisibilityInfo{
		"c1": {Visibility: course.VisibilityHidden, CreatorID: "t1"},
	}}
	enrollments := enrollmentReaderStub{enrolled: map[[2]string]bool{{"u1", "c1"}: true}}
	eng := newTestEngine(courses, enrollments, inviteReaderStub{})

	claims := claimsPtr(Claims{SubjectID: "u1"})

	got, err := eng.Decide(context.Background(), "c1", claims, "")
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if got != VerdictAllow {
		t.Fatalf("Decide() = %v; want %v", got, VerdictAllow)
	}

	delete(enrollments.enrolled, [2]string{"u1", "c1"})
	got, err = eng.Decide(context.Background(), "c1", claims, "")
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if got != VerdictDeny {
		t.Errorf("Decide() = %v; want %v", got, VerdictDeny)
	}
}

// Storage failures surface as errors, never as silent allow/deny.
func TestEngine_Decide_storageErrors(t *testing.T) {
	visibilities := map[string]course.VisibilityInfo{
		"c1": {Visibility: course.VisibilityHidden, CreatorID: "t1"},
	}

	tests := []struct {
		name        string
		courses     courseReaderStub
		enrollments enrollmentReaderStub
		invites     inviteReaderStub
		claims      *Claims
		token       string
	}{
		{
			name:    "course read fails",
			courses: courseReaderStub{err: errDBDown},
		},
		{
			name:        "enrollment read fails",
			courses:     courseReaderStub{visibilities: visibilities},
			enrollments: enrollmentReaderStub{err: errDBDown},
			claims:      claimsPtr(Claims{SubjectID: "u1"}),
		},
		{
			name:    "invite read fails",
			courses: courseReaderStub{visibilities: visibilities},
			invites: inviteReaderStub{err: errDBDown},
			token:   "tok1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := newTestEngine(tt.courses, tt.enrollments, tt.invites)
			if _, err := eng.Decide(context.Background(), "c1", tt.claims, tt.token); errors.Cause(err) != errDBDown {
				t.Errorf("Decide() error = %v; want %v", err, errDBDown)
			}
		})
	}
}
