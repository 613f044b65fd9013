package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/johnrmarty/chat-prd/internal/completion"
	"github.com/johnrmarty/chat-prd/internal/database"
	"github.com/johnrmarty/chat-prd/internal/hub"
	"github.com/johnrmarty/chat-prd/internal/types"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type UpdateAccountRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CreateProjectRequest struct {
	Name             string `json:"name"`
	ProblemStatement string `json:"problem_statement"`
}

type AddMemberRequest struct {
	ProjectId string `json:"project_id"`
	Email     string `json:"email"`
}

type GenerateContentRequest struct {
	ProjectId   string          `json:"project_id"`
	ContentType string          `json:"content_type"`
	Messages    []types.Message `json:"messages"`
}

type GenerateContentResponse struct {
	ContentType string `json:"content_type"`
	Content     string `json:"content"`
}

func (s *ChatPrdApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func (s *ChatPrdApp) healthCheck(w http.ResponseWriter, _ *http.Request) {
	if err := s.db.Ping(); err != nil {
		s.log.Printf("health check: %v", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *ChatPrdApp) createAccount(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Username == "" || req.Email == "" || req.Password == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	pwdHash, err := hashPassword(req.Password)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	params := database.CreateAccountParams{
		Username:     req.Username,
		EmailAddress: req.Email,
		PasswordHash: pwdHash,
	}

	newUser, err := s.db.CreateAccount(params)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, types.User{
		Id:           newUser.Id,
		Username:     newUser.Username,
		EmailAddress: newUser.EmailAddress,
		CreatedAt:    newUser.CreatedAt,
		UpdatedAt:    newUser.UpdatedAt,
	})
}

func (s *ChatPrdApp) account(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		userId, ok := UserId(r.Context())
		if !ok {
			errResp := NewUnauthorizedError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		user, err := s.db.GetAccountById(userId)
		if err != nil {
			var errResp *ApiError
			if errors.Is(err, sql.ErrNoRows) {
				errResp = NewNotFoundError()
			} else {
				errResp = NewInternalServerError(err)
			}
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		s.writeJson(w, http.StatusOK, types.User{
			Id:           user.Id,
			Username:     user.Username,
			EmailAddress: user.EmailAddress,
			CreatedAt:    user.CreatedAt,
			UpdatedAt:    user.UpdatedAt,
		})
	case http.MethodPut:
		userId, ok := UserId(r.Context())
		if !ok {
			errResp := NewUnauthorizedError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		curUser, err := s.db.GetAccountById(userId)
		if err != nil {
			var errResp *ApiError
			if errors.Is(err, sql.ErrNoRows) {
				errResp = NewNotFoundError()
			} else {
				errResp = NewInternalServerError(err)
			}
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		var updateAccountReq UpdateAccountRequest
		if err := json.NewDecoder(r.Body).Decode(&updateAccountReq); err != nil {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		if updateAccountReq.Username == "" || updateAccountReq.Password == "" {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		pwdHash, err := hashPassword(updateAccountReq.Password)
		if err != nil {
			errResp := NewInternalServerError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		params := database.UpdateAccountParams{
			UserId:       curUser.Id,
			Username:     updateAccountReq.Username,
			PasswordHash: pwdHash,
		}

		dbUser, err := s.db.UpdateAccount(params)
		if err != nil {
			errResp := NewInternalServerError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		s.writeJson(w, http.StatusOK, types.User{
			Id:           dbUser.Id,
			Username:     dbUser.Username,
			EmailAddress: dbUser.EmailAddress,
			CreatedAt:    dbUser.CreatedAt,
			UpdatedAt:    dbUser.UpdatedAt,
		})
	default:
		errResp := NewMethodNotAllowedError()
		s.writeJson(w, errResp.StatusCode, errResp)
	}
}

func (s *ChatPrdApp) session(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, err := s.db.GetAccountById(userId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, types.User{
		Id:           user.Id,
		Username:     user.Username,
		EmailAddress: user.EmailAddress,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	})
}

func (s *ChatPrdApp) login(w http.ResponseWriter, r *http.Request) {
	var lr LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&lr); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if lr.Email == "" || lr.Password == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbUser, err := s.db.GetAccountByEmail(lr.Email)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if !verifyPassword(dbUser.PasswordHash, lr.Password) {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	u := types.User{
		Id:           dbUser.Id,
		Username:     dbUser.Username,
		EmailAddress: dbUser.EmailAddress,
		CreatedAt:    dbUser.CreatedAt,
		UpdatedAt:    dbUser.UpdatedAt,
	}

	token, err := s.createJwtForSession(u, defaultJwtExpiration)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	http.SetCookie(w, createJwtCookie(token, defaultJwtExpiration))

	s.writeJson(w, http.StatusOK, u)
}

func (s *ChatPrdApp) logout(w http.ResponseWriter, _ *http.Request) {
	// instruct browser to delete cookie by overwriting it with an expired token
	http.SetCookie(w, createJwtCookie("", time.Duration(time.Unix(0, 0).Unix())))
	w.WriteHeader(http.StatusNoContent)
}

func (s *ChatPrdApp) createProject(w http.ResponseWriter, r *http.Request) {
	var createProjectReq CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&createProjectReq); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if createProjectReq.Name == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	sid, err := s.generateShortId()
	if err != nil {
		s.log.Print("generateShortId:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	params := database.CreateProjectParams{
		Name:             createProjectReq.Name,
		ProblemStatement: createProjectReq.ProblemStatement,
		OwnerId:          userId,
		ExternalId:       sid,
	}

	newProject, err := s.db.CreateProject(params)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, projectResponse(newProject))
}

func (s *ChatPrdApp) getProject(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	externalId := r.URL.Query().Get("id")
	if externalId == "" {
		// no id means list the requester's projects
		dbProjects, err := s.db.ListProjectsForAccount(userId)
		if err != nil {
			s.log.Println("list projects:", err)
			errResp := NewInternalServerError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		projects := make([]types.Project, 0, len(dbProjects))
		for _, p := range dbProjects {
			projects = append(projects, projectResponse(p))
		}

		s.writeJson(w, http.StatusOK, projects)
		return
	}

	project, err := s.db.GetProjectByExternalId(externalId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if !s.db.MemberExists(project.Id, userId) {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	withMembers, err := s.db.GetProjectWithMembers(project.Id)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, projectResponse(*withMembers))
}

func (s *ChatPrdApp) deleteProject(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	externalId := r.URL.Query().Get("id")
	if externalId == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	project, err := s.db.GetProjectByExternalId(externalId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// Only the owner may delete a project
	if project.OwnerId != userId {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.db.DeleteProject(project.Id); err != nil {
		s.log.Println("delete project:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.hub.CloseRoom(r.Context(), project.ExternalId); err != nil {
		s.log.Println("close project room:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusNoContent, nil)
}

func (s *ChatPrdApp) addMember(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var addMemberReq AddMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&addMemberReq); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if addMemberReq.ProjectId == "" || addMemberReq.Email == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	project, err := s.db.GetProjectByExternalId(addMemberReq.ProjectId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if !s.db.MemberExists(project.Id, userId) {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	account, err := s.db.GetAccountByEmail(addMemberReq.Email)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if s.db.MemberExists(project.Id, account.Id) {
		s.writeJson(w, http.StatusOK, types.Member{
			UserId:       account.Id,
			Username:     account.Username,
			EmailAddress: account.EmailAddress,
		})
		return
	}

	member, err := s.db.CreateMember(project.Id, account.Id)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, types.Member{
		UserId:       member.AccountId,
		Username:     account.Username,
		EmailAddress: account.EmailAddress,
	})
}

// removeMember drops an account's membership. Members may remove themselves
// to leave the project; the owner's membership is permanent.
func (s *ChatPrdApp) removeMember(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	externalId := r.URL.Query().Get("id")
	email := r.URL.Query().Get("email")
	if externalId == "" || email == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	project, err := s.db.GetProjectByExternalId(externalId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if !s.db.MemberExists(project.Id, userId) {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	account, err := s.db.GetAccountByEmail(email)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if account.Id == project.OwnerId {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.db.DeleteMember(project.Id, account.Id); err != nil {
		s.log.Println("delete member:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *ChatPrdApp) generateContent(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var genReq GenerateContentRequest
	if err := json.NewDecoder(r.Body).Decode(&genReq); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var mode string
	switch genReq.ContentType {
	case database.ContentTypeProblemStatement:
		mode = completion.ModeProblemDiscovery
	case database.ContentTypeSolutionProposal:
		mode = completion.ModeSolutionWorkshop
	default:
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if genReq.ProjectId == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	project, err := s.db.GetProjectByExternalId(genReq.ProjectId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if !s.db.MemberExists(project.Id, userId) {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	content, err := s.completions.Complete(r.Context(), genReq.Messages, mode)
	if err != nil {
		s.log.Println("generate content:", err)
		errResp := NewBadGatewayError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	_, err = s.db.UpdateProjectContent(database.UpdateProjectContentParams{
		ProjectId:   project.Id,
		ContentType: genReq.ContentType,
		Content:     content,
	})
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, GenerateContentResponse{
		ContentType: genReq.ContentType,
		Content:     content,
	})
}

func (s *ChatPrdApp) serveWs(w http.ResponseWriter, r *http.Request) {
	id, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, err := s.db.GetAccountById(id)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// session id is generated client side so it survives reconnects; fall
	// back to a fresh one when the client did not send any
	sessionId := r.URL.Query().Get("sessionId")
	if sessionId == "" {
		sessionId = uuid.NewString()
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			// only allow connections from allowed origins
			origin := r.Header.Get("Origin")
			if origin == "" {
				// if no origin header, allow the request
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	client := hub.NewClient(conn, s.hub, s.log, sessionId, strconv.Itoa(user.Id), user.Username)

	s.hub.RegisterClient(client)
	go client.Write()
	go client.Read()
}

func projectResponse(p database.Project) types.Project {
	members := make([]types.Member, 0, len(p.Members))
	for _, m := range p.Members {
		members = append(members, types.Member{
			UserId:       m.AccountId,
			Username:     m.Username,
			EmailAddress: m.EmailAddress,
		})
	}

	return types.Project{
		Id:               p.Id,
		ExternalId:       p.ExternalId,
		Name:             p.Name,
		ProblemStatement: p.ProblemStatement,
		SolutionProposal: p.SolutionProposal,
		OwnerId:          p.OwnerId,
		Members:          members,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}
