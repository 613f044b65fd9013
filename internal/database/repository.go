package database

type ProjectRepository interface {
	Ping() error
	CreateAccount(params CreateAccountParams) (User, error)
	UpdateAccount(params UpdateAccountParams) (User, error)
	GetAccountById(accountId int) (User, error)
	GetAccountByEmail(email string) (User, error)
	CreateProject(params CreateProjectParams) (Project, error)
	GetProjectByExternalId(externalId string) (Project, error)
	GetProjectWithMembers(projectId int) (*Project, error)
	ListProjectsForAccount(accountId int) ([]Project, error)
	UpdateProjectContent(params UpdateProjectContentParams) (Project, error)
	DeleteProject(id int) error
	CreateMember(projectId, accountId int) (Member, error)
	MemberExists(projectId, accountId int) bool
	DeleteMember(projectId, accountId int) error
}
