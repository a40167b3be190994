package services

import (
	"testing"

	"sata_school_go/models"
)

func intp(v int) *int { return &v }

func TestNormalizeSessionInput(t *testing.T) {
	tests := []struct {
		name        string
		in          SessionInput
		wantErr     bool
		wantMonth   *int
		wantQuarter *int
	}{
		{
			name:      "monthly keeps month drops quarter",
			in:        SessionInput{Type: models.ExamMonthly, Year: 2024, Month: intp(3), Quarter: intp(1)},
			wantMonth: intp(3),
		},
		{
			name:    "monthly without month",
			in:      SessionInput{Type: models.ExamMonthly, Year: 2024},
			wantErr: true,
		},
		{
			name:    "month out of range",
			in:      SessionInput{Type: models.ExamMonthly, Year: 2024, Month: intp(13)},
			wantErr: true,
		},
		{
			name:        "quarterly keeps quarter drops month",
			in:          SessionInput{Type: models.ExamQuarterly, Year: 2024, Month: intp(3), Quarter: intp(2)},
			wantQuarter: intp(2),
		},
		{
			name:    "quarter out of range",
			in:      SessionInput{Type: models.ExamQuarterly, Year: 2024, Quarter: intp(5)},
			wantErr: true,
		},
		{
			name: "yearly clears both",
			in:   SessionInput{Type: models.ExamYearly, Year: 2024, Month: intp(1), Quarter: intp(1)},
		},
		{
			name:    "unknown type",
			in:      SessionInput{Type: "weekly", Year: 2024},
			wantErr: true,
		},
		{
			name:    "implausible year",
			in:      SessionInput{Type: models.ExamYearly, Year: 1899},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := normalizeSessionInput(&tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if (tt.in.Month == nil) != (tt.wantMonth == nil) ||
				(tt.in.Month != nil && *tt.in.Month != *tt.wantMonth) {
				t.Errorf("month = %v, want %v", tt.in.Month, tt.wantMonth)
			}
			if (tt.in.Quarter == nil) != (tt.wantQuarter == nil) ||
				(tt.in.Quarter != nil && *tt.in.Quarter != *tt.wantQuarter) {
				t.Errorf("quarter = %v, want %v", tt.in.Quarter, tt.wantQuarter)
			}
		})
	}
}

func TestNormalizeSessionInputDefaultsMaxScore(t *testing.T) {
	in := SessionInput{Type: models.ExamYearly, Year: 2024}
	if err := normalizeSessionInput(&in); err != nil {
		t.Fatal(err)
	}
	if in.MaxScore != 100 {
		t.Errorf("MaxScore = %d, want default 100", in.MaxScore)
	}
}

func TestValidateScores(t *testing.T) {
	tests := []struct {
		name     string
		maxScore int
		results  []ResultInput
		wantErr  bool
	}{
		{
			name:     "valid sheet",
			maxScore: 100,
			results:  []ResultInput{{StudentID: 1, Score: 0}, {StudentID: 2, Score: 100}},
		},
		{
			name:     "empty sheet",
			maxScore: 100,
			wantErr:  true,
		},
		{
			name:     "score above ceiling",
			maxScore: 50,
			results:  []ResultInput{{StudentID: 1, Score: 51}},
			wantErr:  true,
		},
		{
			name:     "negative score",
			maxScore: 100,
			results:  []ResultInput{{StudentID: 1, Score: -1}},
			wantErr:  true,
		},
		{
			name:     "duplicate student",
			maxScore: 100,
			results:  []ResultInput{{StudentID: 1, Score: 10}, {StudentID: 1, Score: 20}},
			wantErr:  true,
		},
		{
			name:     "missing student id",
			maxScore: 100,
			results:  []ResultInput{{Score: 10}},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateScores(tt.maxScore, tt.results)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateScores error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
