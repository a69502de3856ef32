package models_test

import (
	"testing"

	"github.com/garnizeh/careerprep/pkg/models"
)

func TestParseSection(t *testing.T) {
	tests := []struct {
		key     string
		want    models.Section
		wantErr bool
	}{
		{key: "summary", want: models.Section{Summary: true}},
		{key: "experience-0", want: models.Section{ExperienceIndex: 0}},
		{key: "experience-12", want: models.Section{ExperienceIndex: 12}},
		{key: "experience--1", wantErr: true},
		{key: "experience-01", wantErr: true},
		{key: "experience-", wantErr: true},
		{key: "experience-x", wantErr: true},
		{key: "skills", wantErr: true},
		{key: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := models.ParseSection(tt.key)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSection(%q) err = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Fatalf("ParseSection(%q) = %+v, want %+v", tt.key, got, tt.want)
			}
			if err == nil && got.String() != tt.key {
				t.Fatalf("String() = %q, want %q", got.String(), tt.key)
			}
		})
	}
}

func TestSectionFits(t *testing.T) {
	c := models.ResumeContent{
		Basics:     models.Basics{Summary: "sum"},
		Experience: []models.Experience{{Description: "d0"}},
	}
	if !(models.Section{Summary: true}).Fits(c) {
		t.Fatalf("summary always fits")
	}
	if !(models.Section{ExperienceIndex: 0}).Fits(c) {
		t.Fatalf("experience-0 should fit")
	}
	if (models.Section{ExperienceIndex: 1}).Fits(c) {
		t.Fatalf("experience-1 should not fit")
	}
	if got := (models.Section{ExperienceIndex: 0}).Text(c); got != "d0" {
		t.Fatalf("Text() = %q", got)
	}
}

func TestSessionStatusRank(t *testing.T) {
	if !(models.StatusSetup.Rank() < models.StatusInProgress.Rank() && models.StatusInProgress.Rank() < models.StatusCompleted.Rank()) {
		t.Fatalf("statuses must be ordered setup < in_progress < completed")
	}
	if models.SessionStatus("paused").Rank() != -1 {
		t.Fatalf("unknown status must rank -1")
	}
}

func TestQuestionTypeValid(t *testing.T) {
	for _, v := range []models.QuestionType{"technical", "behavioral", "hr", "mixed"} {
		if !v.Valid() {
			t.Fatalf("%q should be valid", v)
		}
	}
	if models.QuestionType("trivia").Valid() {
		t.Fatalf("trivia should be invalid")
	}
}
