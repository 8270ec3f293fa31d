package answers

import "time"

// AnswerID identifier type
type AnswerID string

// EvidenceFile is a document attached to an answer
type EvidenceFile struct {
	Filename    string    `json:"filename"`
	FileType    string    `json:"file_type"`
	Description string    `json:"description,omitempty"`
	FilePath    string    `json:"file_path,omitempty"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// Answer is a company's response to one question. One per (organization, question); last write wins.
type Answer struct {
	ID             AnswerID       `json:"id"`
	OrganizationID string         `json:"organization_id"`
	QuestionID     string         `json:"question_id"`
	Answer         string         `json:"answer"`
	EvidenceFiles  []EvidenceFile `json:"evidence_files"`
	SubmittedAt    time.Time      `json:"submitted_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Filter narrows a listing; empty fields are ignored.
type Filter struct {
	OrganizationID string
	QuestionID     string
	ProvisionID    string
	Contains       string
}
