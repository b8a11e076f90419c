package models

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Collection names in the document store
const (
	CollectionApplications   = "applications"
	CollectionCVs            = "cvs"
	CollectionMasterProfiles = "masterProfiles"
	CollectionCoverLetters   = "coverLetters"
	CollectionAIOutputs      = "aiOutputs"
)

// DateLayout is the layout of every user-facing date field
const DateLayout = "2006-01-02"

// Meta holds the fields assigned by the document store. Every entity embeds it.
type Meta struct {
	ID        string     `json:"id,omitempty"`
	UserID    string     `json:"userId,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// Status is the lifecycle state of an application
type Status string

const (
	StatusDraft     Status = "Draft"
	StatusApplied   Status = "Applied"
	StatusInterview Status = "Interview"
	StatusOffer     Status = "Offer"
	StatusRejected  Status = "Rejected"
)

// Statuses lists every valid status in pipeline order
var Statuses = []Status{StatusDraft, StatusApplied, StatusInterview, StatusOffer, StatusRejected}

// Valid reports whether s is one of the five statuses
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// ParseStatus accepts any casing ("applied", "APPLIED") and returns the canonical status
func ParseStatus(s string) (Status, bool) {
	st := Status(cases.Title(language.English).String(strings.ToLower(strings.TrimSpace(s))))
	return st, st.Valid()
}

// HistoryEntry records one status transition
type HistoryEntry struct {
	Status Status `json:"status"`
	Date   string `json:"date"`
	Note   string `json:"note,omitempty"`
}

// Task is a sub-task attached to an application
type Task struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// Attachment is a custom document attached to an application
type Attachment struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type"`
	Date string `json:"date"`
}

// Application represents a job application
type Application struct {
	Meta
	Company        string         `json:"company"`
	Position       string         `json:"position"`
	Status         Status         `json:"status"`
	Location       string         `json:"location,omitempty"`
	Salary         string         `json:"salary,omitempty"`
	URL            string         `json:"url,omitempty"`
	Notes          string         `json:"notes,omitempty"`
	JobDescription string         `json:"jobDescription,omitempty"`
	ProfileID      string         `json:"profileId,omitempty"`
	Date           string         `json:"date,omitempty"`
	History        []HistoryEntry `json:"history,omitempty"`
	Tasks          []Task         `json:"tasks,omitempty"`
	Documents      []Attachment   `json:"documents,omitempty"`
}

// CV represents an uploaded CV file
type CV struct {
	Meta
	Name        string `json:"name"`
	Role        string `json:"role"`
	Lang        string `json:"lang"`
	BaseName    string `json:"baseName"`
	Version     int    `json:"version,omitempty"`
	DownloadURL string `json:"downloadURL"`
	Date        string `json:"date"`
}

// CVBaseName groups CVs that share a role and language
func CVBaseName(role, lang string) string {
	return role + "_" + lang
}

// InputMode discriminates structured and free-text profiles
type InputMode string

const (
	InputModeForm InputMode = "form"
	InputModeText InputMode = "text"
)

// PersonalInfo is the contact block of a structured profile
type PersonalInfo struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
}

// MasterProfile is a reusable candidate profile
type MasterProfile struct {
	Meta
	Name           string       `json:"name"`
	InputMode      InputMode    `json:"inputMode"`
	PersonalInfo   PersonalInfo `json:"personalInfo"`
	Summary        string       `json:"summary,omitempty"`
	Skills         []string     `json:"skills,omitempty"`
	Experience     string       `json:"experience,omitempty"`
	Education      string       `json:"education,omitempty"`
	Languages      []string     `json:"languages,omitempty"`
	Certifications []string     `json:"certifications,omitempty"`
	RawText        string       `json:"rawText,omitempty"`
	UpdatedAt      string       `json:"updatedAt,omitempty"`
}

// CoverLetter is a saved cover letter draft
type CoverLetter struct {
	Meta
	Title          string `json:"title"`
	Company        string `json:"company,omitempty"`
	Position       string `json:"position,omitempty"`
	Content        string `json:"content"`
	JobDescription string `json:"jobDescription,omitempty"`
	ProfileID      string `json:"profileId,omitempty"`
	ApplicationID  string `json:"applicationId,omitempty"`
	UpdatedAt      string `json:"updatedAt,omitempty"`
}

// OutputType classifies a persisted AI result
type OutputType string

const (
	OutputAnalysis       OutputType = "analysis"
	OutputCoverLetter    OutputType = "coverLetter"
	OutputCVOptimization OutputType = "cvOptimization"
)

// AIOutput links a language-model result to an application
type AIOutput struct {
	Meta
	ApplicationID  string     `json:"applicationId"`
	Type           OutputType `json:"type"`
	Content        string     `json:"content"`
	OriginalPrompt string     `json:"originalPrompt"`
	UpdatedAt      string     `json:"updatedAt"`
}
