package database

import (
	"database/sql"
	"fmt"
	"time"
)

// Content types a project document accepts. These match the contentType tags
// carried by content-generation events.
const (
	ContentTypeProblemStatement = "problem-statement"
	ContentTypeSolutionProposal = "solution-proposal"
)

const createMemberQuery = "INSERT INTO members (project_id, account_id, created_at) " +
	"VALUES ($1, $2, $3) RETURNING id, project_id, account_id"

type PgProjectRepository struct {
	conn *sql.DB
}

func NewPgProjectRepository(dsn string) (*PgProjectRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &PgProjectRepository{conn: db}, nil
}

func (db *PgProjectRepository) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

func (db *PgProjectRepository) Ping() error {
	return db.conn.Ping()
}

func (db *PgProjectRepository) CreateAccount(params CreateAccountParams) (User, error) {
	res := db.conn.QueryRow(
		"INSERT INTO accounts (username, email, password_hash, created_at) "+
			"VALUES ($1, $2, $3, $4) RETURNING id, username, email",
		params.Username,
		params.EmailAddress,
		params.PasswordHash,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Username,
		&u.EmailAddress,
	)

	return u, err
}

func (db *PgProjectRepository) UpdateAccount(params UpdateAccountParams) (User, error) {
	res := db.conn.QueryRow(
		"UPDATE accounts SET username = $2, password_hash = $3, updated_at = $4 "+
			"WHERE id = $1 RETURNING id, username, email",
		params.UserId,
		params.Username,
		params.PasswordHash,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Username,
		&u.EmailAddress,
	)

	return u, err
}

func (db *PgProjectRepository) GetAccountById(accountId int) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email FROM accounts "+
			"WHERE id = $1 LIMIT 1",
		accountId,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.EmailAddress,
	)

	return user, err
}

func (db *PgProjectRepository) GetAccountByEmail(email string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, password_hash FROM accounts "+
			"WHERE email = $1 LIMIT 1",
		email,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.EmailAddress,
		&user.PasswordHash,
	)

	return user, err
}

func (db *PgProjectRepository) CreateProject(params CreateProjectParams) (Project, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Project{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res := tx.QueryRow(
		"INSERT INTO projects (external_id, name, problem_statement, solution_proposal, owner_id, created_at) "+
			"VALUES ($1, $2, $3, '', $4, $5) RETURNING id, external_id, name, problem_statement, owner_id",
		params.ExternalId,
		params.Name,
		params.ProblemStatement,
		params.OwnerId,
		time.Now().UTC(),
	)

	var p Project
	err = res.Scan(
		&p.Id,
		&p.ExternalId,
		&p.Name,
		&p.ProblemStatement,
		&p.OwnerId,
	)
	if err != nil {
		return Project{}, err
	}

	// the owner is always a member of their own project
	_, err = tx.Exec(
		createMemberQuery,
		p.Id,
		params.OwnerId,
		time.Now().UTC(),
	)
	if err != nil {
		return Project{}, err
	}

	if err = tx.Commit(); err != nil {
		return Project{}, err
	}

	return p, nil
}

func (db *PgProjectRepository) GetProjectByExternalId(externalId string) (Project, error) {
	row := db.conn.QueryRow(
		"SELECT id, external_id, name, problem_statement, solution_proposal, owner_id, created_at, updated_at "+
			"FROM projects WHERE external_id = $1 LIMIT 1",
		externalId,
	)

	var p Project
	err := row.Scan(
		&p.Id,
		&p.ExternalId,
		&p.Name,
		&p.ProblemStatement,
		&p.SolutionProposal,
		&p.OwnerId,
		&p.CreatedAt,
		&p.UpdatedAt,
	)

	return p, err
}

func (db *PgProjectRepository) GetProjectWithMembers(projectId int) (*Project, error) {
	p, err := db.getProjectById(projectId)
	if err != nil {
		return nil, err
	}

	rows, err := db.conn.Query(
		"SELECT m.id, m.project_id, m.account_id, a.username, a.email, m.created_at "+
			"FROM members m JOIN accounts a ON a.id = m.account_id "+
			"WHERE m.project_id = $1 ORDER BY m.created_at",
		projectId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var m Member
		if err := rows.Scan(
			&m.Id,
			&m.ProjectId,
			&m.AccountId,
			&m.Username,
			&m.EmailAddress,
			&m.CreatedAt,
		); err != nil {
			return nil, err
		}
		p.Members = append(p.Members, m)
	}

	return &p, rows.Err()
}

func (db *PgProjectRepository) getProjectById(projectId int) (Project, error) {
	row := db.conn.QueryRow(
		"SELECT id, external_id, name, problem_statement, solution_proposal, owner_id, created_at, updated_at "+
			"FROM projects WHERE id = $1 LIMIT 1",
		projectId,
	)

	var p Project
	err := row.Scan(
		&p.Id,
		&p.ExternalId,
		&p.Name,
		&p.ProblemStatement,
		&p.SolutionProposal,
		&p.OwnerId,
		&p.CreatedAt,
		&p.UpdatedAt,
	)

	return p, err
}

func (db *PgProjectRepository) ListProjectsForAccount(accountId int) ([]Project, error) {
	rows, err := db.conn.Query(
		"SELECT p.id, p.external_id, p.name, p.problem_statement, p.solution_proposal, p.owner_id, p.created_at, p.updated_at "+
			"FROM projects p JOIN members m ON m.project_id = p.id "+
			"WHERE m.account_id = $1 ORDER BY p.updated_at DESC",
		accountId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(
			&p.Id,
			&p.ExternalId,
			&p.Name,
			&p.ProblemStatement,
			&p.SolutionProposal,
			&p.OwnerId,
			&p.CreatedAt,
			&p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}

	return projects, rows.Err()
}

func (db *PgProjectRepository) UpdateProjectContent(params UpdateProjectContentParams) (Project, error) {
	var column string
	switch params.ContentType {
	case ContentTypeProblemStatement:
		column = "problem_statement"
	case ContentTypeSolutionProposal:
		column = "solution_proposal"
	default:
		return Project{}, fmt.Errorf("unknown content type %q", params.ContentType)
	}

	res := db.conn.QueryRow(
		"UPDATE projects SET "+column+" = $2, updated_at = $3 "+
			"WHERE id = $1 RETURNING id, external_id, name, problem_statement, solution_proposal, owner_id",
		params.ProjectId,
		params.Content,
		time.Now().UTC(),
	)

	var p Project
	err := res.Scan(
		&p.Id,
		&p.ExternalId,
		&p.Name,
		&p.ProblemStatement,
		&p.SolutionProposal,
		&p.OwnerId,
	)

	return p, err
}

func (db *PgProjectRepository) DeleteProject(id int) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	_, err = tx.Exec("DELETE FROM members WHERE project_id = $1", id)
	if err != nil {
		return err
	}

	_, err = tx.Exec("DELETE FROM projects WHERE id = $1", id)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (db *PgProjectRepository) CreateMember(projectId, accountId int) (Member, error) {
	res := db.conn.QueryRow(
		createMemberQuery,
		projectId,
		accountId,
		time.Now().UTC(),
	)

	var m Member
	err := res.Scan(
		&m.Id,
		&m.ProjectId,
		&m.AccountId,
	)

	return m, err
}

func (db *PgProjectRepository) MemberExists(projectId, accountId int) bool {
	row := db.conn.QueryRow(
		"SELECT COUNT(*) FROM members WHERE project_id = $1 AND account_id = $2",
		projectId,
		accountId,
	)

	var count int
	if err := row.Scan(&count); err != nil {
		return false
	}

	return count > 0
}

func (db *PgProjectRepository) DeleteMember(projectId, accountId int) error {
	_, err := db.conn.Exec(
		"DELETE FROM members WHERE project_id = $1 AND account_id = $2",
		projectId,
		accountId,
	)
	return err
}
