package database

import "time"

type User struct {
	Id           int
	Username     string
	EmailAddress string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Project struct {
	Id               int
	ExternalId       string
	Name             string
	ProblemStatement string
	SolutionProposal string
	OwnerId          int
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Members          []Member
}

type Member struct {
	Id           int
	ProjectId    int
	AccountId    int
	Username     string
	EmailAddress string
	CreatedAt    time.Time
}

type CreateAccountParams struct {
	Username     string
	EmailAddress string
	PasswordHash string
}

type UpdateAccountParams struct {
	UserId       int
	Username     string
	PasswordHash string
}

type CreateProjectParams struct {
	Name             string
	ProblemStatement string
	OwnerId          int
	ExternalId       string
}

type UpdateProjectContentParams struct {
	ProjectId   int
	ContentType string
	Content     string
}
