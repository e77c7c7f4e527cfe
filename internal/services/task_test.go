package services

import (
	"errors"
	"testing"
	"time"

	apperrors "github.com/yungbote/dayplan-backend/internal/pkg/errors"
	"github.com/yungbote/dayplan-backend/internal/types"
)

func TestInferKind(t *testing.T) {
	cases := []struct {
		title string
		want  string
	}{
		{"Gym session", types.TaskKindWorkout},
		{"Morning run", types.TaskKindWorkout},
		{"Cook dinner", types.TaskKindMeal},
		{"Eat something", types.TaskKindMeal},
		{"Wake-up stretch", types.TaskKindMorning},
		{"Project review meeting", types.TaskKindWork},
		{"Study for exam", types.TaskKindWork},
		{"Call mom", types.TaskKindOther},
		{"", types.TaskKindOther},
	}
	for _, tc := range cases {
		if got := inferKind(tc.title); got != tc.want {
			t.Errorf("inferKind(%q) = %q, want %q", tc.title, got, tc.want)
		}
	}
}

func TestValidatePlannedPair(t *testing.T) {
	start := testDay.Add(10 * time.Hour)
	end := testDay.Add(11 * time.Hour)

	cases := []struct {
		name    string
		start   *time.Time
		end     *time.Time
		wantErr bool
	}{
		{name: "both_nil", start: nil, end: nil, wantErr: false},
		{name: "valid_pair", start: &start, end: &end, wantErr: false},
		{name: "start_only", start: &start, end: nil, wantErr: true},
		{name: "end_only", start: nil, end: &end, wantErr: true},
		{name: "inverted", start: &end, end: &start, wantErr: true},
		{name: "zero_length", start: &start, end: &start, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validatePlannedPair(tc.start, tc.end)
			if tc.wantErr && !errors.Is(err, apperrors.ErrInvalidArgument) {
				t.Fatalf("want ErrInvalidArgument, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateTaskCreate(t *testing.T) {
	intp := func(v int) *int { return &v }

	cases := []struct {
		name    string
		in      TaskCreate
		wantErr bool
		check   func(t *testing.T, out TaskCreate)
	}{
		{
			name:    "empty_title",
			in:      TaskCreate{Title: "   "},
			wantErr: true,
		},
		{
			name: "kind_inferred_from_title",
			in:   TaskCreate{Title: "Leg day at the gym"},
			check: func(t *testing.T, out TaskCreate) {
				if out.Kind != types.TaskKindWorkout {
					t.Errorf("kind = %q, want workout", out.Kind)
				}
			},
		},
		{
			name: "explicit_kind_normalized",
			in:   TaskCreate{Title: "Whatever", Kind: " Work "},
			check: func(t *testing.T, out TaskCreate) {
				if out.Kind != types.TaskKindWork {
					t.Errorf("kind = %q, want work", out.Kind)
				}
			},
		},
		{
			name:    "unknown_kind",
			in:      TaskCreate{Title: "Whatever", Kind: "leisure"},
			wantErr: true,
		},
		{
			name:    "priority_out_of_range",
			in:      TaskCreate{Title: "Whatever", Priority: intp(0)},
			wantErr: true,
		},
		{
			name:    "estimate_zero",
			in:      TaskCreate{Title: "Whatever", EstimateMinutes: intp(0)},
			wantErr: true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := validateTaskCreate(tc.in)
			if tc.wantErr {
				if !errors.Is(err, apperrors.ErrInvalidArgument) {
					t.Fatalf("want ErrInvalidArgument, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.check != nil {
				tc.check(t, out)
			}
		})
	}
}

func TestTaskPatchFields(t *testing.T) {
	start := testDay.Add(10 * time.Hour)
	end := testDay.Add(11 * time.Hour)
	boolp := func(v bool) *bool { return &v }
	strp := func(v string) *string { return &v }

	t.Run("planned_pair_sets_manual_source", func(t *testing.T) {
		fields, err := taskPatchFields(TaskPatch{PlannedStart: &start, PlannedEnd: &end})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if fields["schedule_source"] != types.ScheduleSourceManual {
			t.Errorf("schedule_source = %v, want manual", fields["schedule_source"])
		}
		if fields["planned_start"] != start || fields["planned_end"] != end {
			t.Errorf("planned pair not carried through: %v", fields)
		}
	})

	t.Run("one_sided_pair_rejected", func(t *testing.T) {
		_, err := taskPatchFields(TaskPatch{PlannedStart: &start})
		if !errors.Is(err, apperrors.ErrInvalidArgument) {
			t.Fatalf("want ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("clear_planned", func(t *testing.T) {
		fields, err := taskPatchFields(TaskPatch{ClearPlanned: true})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v, ok := fields["planned_start"]; !ok || v != nil {
			t.Errorf("planned_start = %v, want explicit nil", v)
		}
		if v, ok := fields["planned_end"]; !ok || v != nil {
			t.Errorf("planned_end = %v, want explicit nil", v)
		}
	})

	t.Run("clear_planned_with_pair_rejected", func(t *testing.T) {
		_, err := taskPatchFields(TaskPatch{ClearPlanned: true, PlannedStart: &start, PlannedEnd: &end})
		if !errors.Is(err, apperrors.ErrInvalidArgument) {
			t.Fatalf("want ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("empty_title_rejected", func(t *testing.T) {
		_, err := taskPatchFields(TaskPatch{Title: strp("  ")})
		if !errors.Is(err, apperrors.ErrInvalidArgument) {
			t.Fatalf("want ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("done_flag", func(t *testing.T) {
		fields, err := taskPatchFields(TaskPatch{IsDone: boolp(true)})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if fields["is_done"] != true {
			t.Errorf("is_done = %v, want true", fields["is_done"])
		}
	})
}

func TestRoutinePatchFields(t *testing.T) {
	intp := func(v int) *int { return &v }
	strp := func(v string) *string { return &v }

	t.Run("valid_clock", func(t *testing.T) {
		fields, err := routinePatchFields(RoutinePatch{Wakeup: strp("06:30")})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if fields["wakeup"] != "06:30" {
			t.Errorf("wakeup = %v", fields["wakeup"])
		}
	})

	t.Run("bad_clock", func(t *testing.T) {
		_, err := routinePatchFields(RoutinePatch{Bedtime: strp("25:00")})
		if !errors.Is(err, apperrors.ErrInvalidArgument) {
			t.Fatalf("want ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("negative_buffer", func(t *testing.T) {
		_, err := routinePatchFields(RoutinePatch{PostWakeBufferMin: intp(-1)})
		if !errors.Is(err, apperrors.ErrInvalidArgument) {
			t.Fatalf("want ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("empty_patch", func(t *testing.T) {
		fields, err := routinePatchFields(RoutinePatch{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(fields) != 0 {
			t.Errorf("fields = %v, want empty", fields)
		}
	})
}
