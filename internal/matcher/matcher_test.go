package matcher

import (
	"testing"

	"github.com/khrees2412/applytrack/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestCoverage(t *testing.T) {
	tests := []struct {
		name        string
		keySkills   []string
		profile     []string
		wantMatched []string
		wantMissing []string
	}{
		{
			name:        "case insensitive",
			keySkills:   []string{"Go", "PostgreSQL", "Kubernetes"},
			profile:     []string{"go", "postgresql"},
			wantMatched: []string{"Go", "PostgreSQL"},
			wantMissing: []string{"Kubernetes"},
		},
		{
			name:        "whole words only",
			keySkills:   []string{"Go 1.22", "Google Cloud"},
			profile:     []string{"Go"},
			wantMatched: []string{"Go 1.22"},
			wantMissing: []string{"Google Cloud"},
		},
		{
			name:        "empty profile",
			keySkills:   []string{"Go", ""},
			profile:     nil,
			wantMatched: []string{},
			wantMissing: []string{"Go"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matched, missing := Coverage(tt.keySkills, tt.profile)
			assert.Equal(t, tt.wantMatched, matched)
			assert.Equal(t, tt.wantMissing, missing)
		})
	}
}

func TestMatch(t *testing.T) {
	posting := Posting{
		Position:  "Senior Backend Engineer",
		Location:  "Berlin, Germany",
		KeySkills: []string{"Go", "PostgreSQL", "Kafka", "Kubernetes"},
	}

	strong := models.MasterProfile{
		InputMode:    models.InputModeForm,
		PersonalInfo: models.PersonalInfo{Location: "Berlin"},
		Skills:       []string{"Go", "PostgreSQL", "Kafka", "Kubernetes"},
		Experience:   "Senior backend engineer at Acme",
	}
	weak := models.MasterProfile{
		InputMode:    models.InputModeForm,
		PersonalInfo: models.PersonalInfo{Location: "Lisbon"},
		Skills:       []string{"Excel"},
		Experience:   "Accountant",
	}

	s := Match(posting, strong)
	w := Match(posting, weak)

	assert.InDelta(t, 1.0, s.Score, 1e-9)
	assert.Empty(t, s.Missing)
	assert.Less(t, w.Score, 0.2)
	assert.Len(t, w.Missing, 4)
	assert.GreaterOrEqual(t, w.Score, 0.0)
}

func TestMatchTextProfile(t *testing.T) {
	posting := Posting{KeySkills: []string{"Go", "Terraform"}}
	profile := models.MasterProfile{
		InputMode: models.InputModeText,
		RawText:   "Ten years writing Go services, some terraform.",
	}

	r := Match(posting, profile)
	assert.Equal(t, []string{"Go", "Terraform"}, r.Matched)
	assert.InDelta(t, 1.0, r.Score, 1e-9)
}

func TestMatchLocation(t *testing.T) {
	tests := []struct {
		job, user string
		want      float64
		ok        bool
	}{
		{"Berlin, Germany", "berlin", 1.0, true},
		{"Remote (EU)", "Lisbon", 0.8, true},
		{"Munich, Germany", "Hamburg, Germany", 0.6, true},
		{"Tokyo", "Lisbon", 0.3, true},
		{"", "Lisbon", 0, false},
	}
	for _, tt := range tests {
		got, ok := matchLocation(tt.job, tt.user)
		assert.Equal(t, tt.ok, ok, tt.job)
		assert.Equal(t, tt.want, got, tt.job)
	}
}
