package model

import "testing"

func TestValidContextType(t *testing.T) {
	valid := []ContextType{
		ContextGeneral, ContextResume, ContextCoverLetter,
		ContextJobSearch, ContextInterviewPrep, ContextCareerAdvice,
	}
	for _, ct := range valid {
		if !ValidContextType(ct) {
			t.Errorf("ValidContextType(%q) = false, want true", ct)
		}
	}

	for _, ct := range []ContextType{"", "astrology", "Resume_Building"} {
		if ValidContextType(ct) {
			t.Errorf("ValidContextType(%q) = true, want false", ct)
		}
	}
}

func TestValidStatusTransition(t *testing.T) {
	tests := []struct {
		from string
		to   string
		want bool
	}{
		{SessionStatusActive, SessionStatusArchived, true},
		{SessionStatusActive, SessionStatusDeleted, true},
		{SessionStatusArchived, SessionStatusActive, true},
		{SessionStatusArchived, SessionStatusDeleted, true},
		// deleted 为终态
		{SessionStatusDeleted, SessionStatusActive, false},
		{SessionStatusDeleted, SessionStatusArchived, false},
		{SessionStatusDeleted, SessionStatusDeleted, false},
		// 自迁移与未知状态
		{SessionStatusActive, SessionStatusActive, false},
		{"", SessionStatusActive, false},
		{SessionStatusActive, "frozen", false},
	}

	for _, tt := range tests {
		if got := ValidStatusTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("ValidStatusTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}
