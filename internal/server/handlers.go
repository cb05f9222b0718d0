package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"newsrelay/internal/account"
	"newsrelay/internal/domain"
	"newsrelay/internal/news"
	"newsrelay/internal/upstream"

	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Country  string `json:"country"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type summarizeArticlesRequest struct {
	Articles []domain.Article `json:"articles"`
	Language string           `json:"language"`
}

type summarizeTextRequest struct {
	Text     string `json:"text" binding:"required"`
	Language string `json:"language"`
}

type headlinesResponse struct {
	Articles     []domain.Article `json:"articles"`
	TotalResults int              `json:"totalResults"`
}

type summariesResponse struct {
	Articles     []domain.SummarizedArticle `json:"articles"`
	TotalResults int                        `json:"totalResults"`
}

func (s *Server) health(c *gin.Context) {
	dbStatus := "ok"
	if err := s.db.Ping(c.Request.Context()); err != nil {
		s.log.WarnContext(c.Request.Context(), "DB ping failed", "error", err)
		dbStatus = "error"
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "db": dbStatus})
}

func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, string(upstream.KindInvalidRequest), "username, email and password are required.")
		return
	}

	a, err := s.accounts.Register(c.Request.Context(), account.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Country:  req.Country,
	})
	if err != nil {
		var ve *account.ValidationError
		switch {
		case errors.As(err, &ve):
			writeError(c, http.StatusBadRequest, string(upstream.KindInvalidRequest), ve.Error())
		case errors.Is(err, account.ErrEmailTaken):
			writeError(c, http.StatusConflict, "email_taken", "An account with this email already exists.")
		default:
			s.internalError(c, "Failed to register account", err)
		}
		return
	}

	c.JSON(http.StatusCreated, a)
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, string(upstream.KindInvalidRequest), "email and password are required.")
		return
	}

	sess, err := s.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, account.ErrInvalidCredentials) {
			writeError(c, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password.")
			return
		}
		s.internalError(c, "Failed to log in", err)
		return
	}

	c.JSON(http.StatusOK, sess)
}

func (s *Server) me(c *gin.Context) {
	a, _ := currentAccount(c)
	c.JSON(http.StatusOK, a)
}

func (s *Server) headlines(c *gin.Context) {
	q, ok := s.newsQuery(c)
	if !ok {
		return
	}

	h, err := s.fetcher.Headlines(c.Request.Context(), q)
	if err != nil {
		s.upstreamError(c, err)
		return
	}

	articles := h.Articles
	if articles == nil {
		articles = []domain.Article{}
	}

	c.JSON(http.StatusOK, headlinesResponse{Articles: articles, TotalResults: h.TotalResults})
}

func (s *Server) headlineSummaries(c *gin.Context) {
	q, ok := s.newsQuery(c)
	if !ok {
		return
	}

	h, err := s.fetcher.Headlines(c.Request.Context(), q)
	if err != nil {
		s.upstreamError(c, err)
		return
	}

	results, err := s.batch.Summarize(c.Request.Context(), h.Articles, c.Query("language"))
	if err != nil {
		s.upstreamError(c, err)
		return
	}

	c.JSON(http.StatusOK, summariesResponse{Articles: results, TotalResults: len(results)})
}

func (s *Server) summarizeArticles(c *gin.Context) {
	var req summarizeArticlesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, string(upstream.KindInvalidRequest), "Request body must be a JSON object with an articles list.")
		return
	}

	results, err := s.batch.Summarize(c.Request.Context(), news.Filter(req.Articles), req.Language)
	if err != nil {
		s.upstreamError(c, err)
		return
	}

	c.JSON(http.StatusOK, summariesResponse{Articles: results, TotalResults: len(results)})
}

func (s *Server) summarizeText(c *gin.Context) {
	var req summarizeTextRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		writeError(c, http.StatusBadRequest, string(upstream.KindInvalidRequest), "text is required.")
		return
	}

	summary, err := s.batch.SummarizeText(c.Request.Context(), req.Text, req.Language)
	if err != nil {
		s.upstreamError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

// newsQuery reads country, category and pageSize. An empty country falls
// back to the caller's account country.
func (s *Server) newsQuery(c *gin.Context) (news.Query, bool) {
	q := news.Query{
		Country:  c.Query("country"),
		Category: c.Query("category"),
	}

	if raw := strings.TrimSpace(c.Query("pageSize")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(c, http.StatusBadRequest, string(upstream.KindInvalidRequest), "pageSize must be a positive integer.")
			return news.Query{}, false
		}
		q.PageSize = n
	}

	if strings.TrimSpace(q.Country) == "" {
		if a, ok := currentAccount(c); ok {
			q.Country = a.Country
		}
	}

	return q, true
}
