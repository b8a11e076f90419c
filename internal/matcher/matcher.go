package matcher

import (
	"sort"
	"strings"

	"github.com/khrees2412/applytrack/pkg/models"
)

// Posting is the part of an analyzed job the matcher looks at
type Posting struct {
	Position  string
	Location  string
	KeySkills []string
}

// Report describes how well a profile covers a posting
type Report struct {
	Matched []string
	Missing []string
	// Score is between 0.0 and 1.0
	Score float64
}

// Coverage splits keySkills into those the profile lists and those it lacks.
// Comparison ignores case; a profile skill also covers a key skill it is
// contained in ("Go" covers "Go 1.22").
func Coverage(keySkills, profileSkills []string) ([]string, []string) {
	have := make([]string, 0, len(profileSkills))
	for _, s := range profileSkills {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			have = append(have, s)
		}
	}

	matched, missing := []string{}, []string{}
	for _, k := range keySkills {
		kl := strings.ToLower(strings.TrimSpace(k))
		if kl == "" {
			continue
		}
		if covered(kl, have) {
			matched = append(matched, k)
		} else {
			missing = append(missing, k)
		}
	}
	sort.Strings(matched)
	sort.Strings(missing)
	return matched, missing
}

func covered(skill string, have []string) bool {
	for _, h := range have {
		if h == skill || containsWord(skill, h) || containsWord(h, skill) {
			return true
		}
	}
	return false
}

var separators = strings.NewReplacer("/", " ", ",", " ", "(", " ", ")", " ")

// containsWord reports whether phrase appears in s on word boundaries
func containsWord(s, phrase string) bool {
	return strings.Contains(" "+separators.Replace(s)+" ", " "+separators.Replace(phrase)+" ")
}

// Match scores a master profile against a posting
func Match(p Posting, profile models.MasterProfile) Report {
	skills := profile.Skills
	if profile.InputMode == models.InputModeText {
		skills = skillsInText(p.KeySkills, profile.RawText)
	}
	matched, missing := Coverage(p.KeySkills, skills)

	score := 0.0
	factors := 0.0

	// Factor 1: Skills coverage (60% weight)
	if len(matched)+len(missing) > 0 {
		score += float64(len(matched)) / float64(len(matched)+len(missing)) * 0.6
		factors += 0.6
	}

	// Factor 2: Position keywords in experience (25% weight)
	experience := profile.Experience + " " + profile.Summary
	if profile.InputMode == models.InputModeText {
		experience = profile.RawText
	}
	if s, ok := matchTitle(p.Position, experience); ok {
		score += s * 0.25
		factors += 0.25
	}

	// Factor 3: Location (15% weight)
	if s, ok := matchLocation(p.Location, profile.PersonalInfo.Location); ok {
		score += s * 0.15
		factors += 0.15
	}

	// Normalize over the factors we could evaluate
	if factors > 0 {
		score = score / factors
	}

	return Report{Matched: matched, Missing: missing, Score: score}
}

// skillsInText picks the key skills a free-text profile mentions
func skillsInText(keySkills []string, text string) []string {
	lower := strings.ToLower(text)
	found := []string{}
	for _, k := range keySkills {
		if k != "" && strings.Contains(lower, strings.ToLower(k)) {
			found = append(found, k)
		}
	}
	return found
}

// matchTitle checks how many position keywords appear in the experience text
func matchTitle(position, experience string) (float64, bool) {
	keywords := extractKeywords(strings.ToLower(position))
	if len(keywords) == 0 || strings.TrimSpace(experience) == "" {
		return 0, false
	}

	expLower := strings.ToLower(experience)
	matched := 0
	for _, keyword := range keywords {
		if strings.Contains(expLower, keyword) {
			matched++
		}
	}
	return float64(matched) / float64(len(keywords)), true
}

// matchLocation compares the posting location with the candidate's
func matchLocation(jobLoc, userLoc string) (float64, bool) {
	if jobLoc == "" || userLoc == "" {
		return 0, false
	}

	jobLocLower := strings.ToLower(jobLoc)
	userLocLower := strings.ToLower(userLoc)

	if strings.Contains(jobLocLower, userLocLower) || strings.Contains(userLocLower, jobLocLower) {
		return 1.0, true
	}

	if strings.Contains(jobLocLower, "remote") {
		return 0.8, true
	}

	// Partial match (same city/state)
	for _, jobPart := range strings.Fields(jobLocLower) {
		jobPart = strings.Trim(jobPart, ".,")
		for _, userPart := range strings.Fields(userLocLower) {
			userPart = strings.Trim(userPart, ".,")
			if len(jobPart) > 3 && len(userPart) > 3 && jobPart == userPart {
				return 0.6, true
			}
		}
	}

	return 0.3, true
}

// extractKeywords extracts meaningful keywords from a job title
func extractKeywords(title string) []string {
	stopWords := map[string]bool{
		"the": true, "a": true, "an": true, "and": true, "or": true,
		"but": true, "in": true, "on": true, "at": true, "to": true,
		"for": true, "of": true, "with": true, "by": true,
	}

	keywords := []string{}
	for _, word := range strings.Fields(title) {
		word = strings.Trim(word, ".,!?;:()")
		if len(word) > 3 && !stopWords[word] {
			keywords = append(keywords, word)
		}
	}
	return keywords
}
