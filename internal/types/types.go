package types

import (
	"time"
)

type User struct {
	Id           int       `json:"id"`
	Username     string    `json:"username"`
	EmailAddress string    `json:"email_address,omitempty"`
	Password     string    `json:"-"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

type Project struct {
	Id               int       `json:"id"`
	ExternalId       string    `json:"external_id"`
	Name             string    `json:"name"`
	ProblemStatement string    `json:"problem_statement"`
	SolutionProposal string    `json:"solution_proposal"`
	OwnerId          int       `json:"owner_id"`
	Members          []Member  `json:"members,omitempty"`
	CreatedAt        time.Time `json:"created_at,omitempty"`
	UpdatedAt        time.Time `json:"updated_at,omitempty"`
}

type Member struct {
	UserId       int    `json:"user_id"`
	Username     string `json:"username"`
	EmailAddress string `json:"email_address,omitempty"`
}

// Session is one connected tab's live membership in one project. The
// session id is client generated and stable across reconnects, so a rejoin
// with the same id replaces the prior entry.
type Session struct {
	SessionId string `json:"sessionId"`
	UserId    string `json:"userId"`
	Username  string `json:"username"`
	ProjectId string `json:"-"`
}

// Message is the canonical chat payload broadcast to a project room.
// Timestamp is an ISO-8601 string; the hub clock is authoritative when the
// sender omitted one.
type Message struct {
	Role       string `json:"role"`
	Content    string `json:"content"`
	Timestamp  string `json:"timestamp"`
	SenderName string `json:"senderName"`
}
