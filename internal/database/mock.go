package database

import (
	"github.com/stretchr/testify/mock"
)

type MockProjectRepository struct {
	mock.Mock
}

func (m *MockProjectRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockProjectRepository) CreateAccount(params CreateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockProjectRepository) UpdateAccount(params UpdateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockProjectRepository) GetAccountById(accountId int) (User, error) {
	args := m.Called(accountId)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockProjectRepository) GetAccountByEmail(email string) (User, error) {
	args := m.Called(email)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockProjectRepository) CreateProject(params CreateProjectParams) (Project, error) {
	args := m.Called(params)
	return args.Get(0).(Project), args.Error(1)
}
func (m *MockProjectRepository) GetProjectByExternalId(externalId string) (Project, error) {
	args := m.Called(externalId)
	return args.Get(0).(Project), args.Error(1)
}
func (m *MockProjectRepository) GetProjectWithMembers(projectId int) (*Project, error) {
	args := m.Called(projectId)
	if project, ok := args.Get(0).(*Project); ok {
		return project, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockProjectRepository) ListProjectsForAccount(accountId int) ([]Project, error) {
	args := m.Called(accountId)
	if projects, ok := args.Get(0).([]Project); ok {
		return projects, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockProjectRepository) UpdateProjectContent(params UpdateProjectContentParams) (Project, error) {
	args := m.Called(params)
	return args.Get(0).(Project), args.Error(1)
}
func (m *MockProjectRepository) DeleteProject(id int) error {
	args := m.Called(id)
	return args.Error(0)
}
func (m *MockProjectRepository) CreateMember(projectId, accountId int) (Member, error) {
	args := m.Called(projectId, accountId)
	return args.Get(0).(Member), args.Error(1)
}
func (m *MockProjectRepository) MemberExists(projectId, accountId int) bool {
	args := m.Called(projectId, accountId)
	return args.Bool(0)
}
func (m *MockProjectRepository) DeleteMember(projectId, accountId int) error {
	args := m.Called(projectId, accountId)
	return args.Error(0)
}
