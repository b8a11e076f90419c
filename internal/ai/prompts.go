package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// AnalyzePrompt asks for the fixed JobAnalysis shape
func AnalyzePrompt(jobText string) string {
	return fmt.Sprintf(`Analyze this job description and extract key information in JSON format:

Job Description:
%s

Please provide a JSON response with the following structure:
{
  "company": "company name if mentioned",
  "position": "job title",
  "keySkills": ["skill1", "skill2", ...],
  "requirements": ["requirement1", "requirement2", ...],
  "responsibilities": ["responsibility1", "responsibility2", ...],
  "summary": "brief summary of the role"
}`, jobText)
}

// CoverLetterPrompt embeds the job text and an indented JSON snapshot of the
// selected profile or CV
func CoverLetterPrompt(jobText string, source any) (string, error) {
	if source == nil {
		source = map[string]any{}
	}
	snapshot, err := json.MarshalIndent(source, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode profile: %w", err)
	}

	return fmt.Sprintf(`Generate a professional cover letter based on the following information:

Job Description:
%s

CV/Resume Information:
%s

Please write a compelling, personalized cover letter that:
1. Addresses the specific requirements in the job description
2. Highlights relevant experience and skills from the CV
3. Shows enthusiasm for the role
4. Is professional but personable
5. Is approximately 300-400 words
6. Does not include placeholders like [Your Name] or [Date]

Format the letter with proper paragraphs. Return only the cover letter text, no additional commentary.`, jobText, snapshot), nil
}

// ImprovementPrompt asks for a review of a CV against a posting
func ImprovementPrompt(cvText, jobText string) string {
	return fmt.Sprintf(`Review this CV/Resume against the job description and provide specific improvement suggestions:

Job Description:
%s

CV/Resume:
%s

Please provide:
1. Key skills from the job description that should be emphasized
2. Specific sections or bullet points that should be modified
3. Keywords that should be added
4. Overall suggestions for better alignment with the role

Do not suggest fabricating experience or skills.
Format your response as a structured list of actionable recommendations.`, jobText, cvText)
}

// ChatPrompt grounds one conversation turn in the supplied context
func ChatPrompt(context string, transcript []Message, message string) string {
	var sb strings.Builder
	sb.WriteString("You are a career assistant helping the user with their job application documents.\n")
	if strings.TrimSpace(context) != "" {
		sb.WriteString("\nCurrent document:\n")
		sb.WriteString(context)
		sb.WriteString("\n")
	}
	if len(transcript) > 0 {
		sb.WriteString("\nConversation so far:\n")
		for _, m := range transcript {
			fmt.Fprintf(&sb, "%s: %s\n", m.Role.label(), m.Content)
		}
	}
	fmt.Fprintf(&sb, "\nUser: %s\nAssistant:", message)
	return sb.String()
}
