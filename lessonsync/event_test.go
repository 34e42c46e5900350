package lessonsync

import "testing"

func TestDecodeEvent(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    ContentEvent
		wantErr bool
	}{
		{
			name: "move_to_step",
			raw:  `{"type":"move_to_step","step_id":"s1"}`,
			want: MoveToStep{StepID: "s1"},
		},
		{
			name: "move_to_step without step id still decodes",
			raw:  `{"type":"move_to_step"}`,
			want: MoveToStep{},
		},
		{
			name: "show_content",
			raw:  `{"type":"show_content","content_id":"c1"}`,
			want: ShowContent{ContentID: "c1"},
		},
		{
			name: "complete_step",
			raw:  `{"type":"complete_step","step_id":"s2"}`,
			want: CompleteStep{StepID: "s2"},
		},
		{
			name: "lesson_complete",
			raw:  `{"type":"lesson_complete"}`,
			want: LessonComplete{},
		},
		{
			name:    "unknown type",
			raw:     `{"type":"rewind_lesson"}`,
			wantErr: true,
		},
		{
			name:    "upsert_content without block",
			raw:     `{"type":"upsert_content","auto_show":true}`,
			wantErr: true,
		},
		{
			name:    "not json",
			raw:     `move_to_step s1`,
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeEvent([]byte(tc.raw))
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %#v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("expected %#v, got %#v", tc.want, got)
			}
		})
	}
}

func TestDecodeEventUpsertContent(t *testing.T) {
	raw := `{"type":"upsert_content","block":{"id":"c5","step_id":"s1","type":"definition","data":{"term":"numerator","definition":"top of a fraction"}},"auto_show":true}`

	got, err := DecodeEvent([]byte(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	upsert, ok := got.(UpsertContent)
	if !ok {
		t.Fatalf("expected UpsertContent, got %#v", got)
	}
	if upsert.Block.ID != "c5" || upsert.Block.StepID != "s1" {
		t.Errorf("block not decoded: %+v", upsert.Block)
	}
	if !upsert.AutoShow {
		t.Error("expected auto_show true")
	}
}
