package identity

import (
	"encoding/json"
	"mime"
	"net/http"

	"github.com/bissquit/storefront/internal/domain"
	"github.com/bissquit/storefront/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// Handler handles HTTP requests for the identity module.
type Handler struct {
	service      *Service
	validator    *validator.Validate
	loginLimiter func(http.Handler) http.Handler
}

// NewHandler creates a new identity handler.
// loginLimiter wraps the login route; nil disables limiting.
func NewHandler(service *Service, loginLimiter func(http.Handler) http.Handler) *Handler {
	return &Handler{
		service:      service,
		validator:    validator.New(),
		loginLimiter: loginLimiter,
	}
}

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrEmailExists, Status: http.StatusConflict},
	{Error: ErrInvalidCredentials, Status: http.StatusUnauthorized},
	{Error: ErrInvalidToken, Status: http.StatusUnauthorized},
	{Error: ErrUserNotFound, Status: http.StatusNotFound},
	{Error: ErrPasswordTooLong, Status: http.StatusBadRequest},
	{Error: ErrInvalidRole, Status: http.StatusBadRequest},
}

// RegisterRoutes registers identity routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Get("/email-availability", h.EmailAvailability)

		r.Group(func(r chi.Router) {
			if h.loginLimiter != nil {
				r.Use(h.loginLimiter)
			}
			r.Post("/login", h.Login)
		})
	})
}

// RegisterLegacyRoutes mounts register and login under /users for clients of
// the previous API layout.
func (h *Handler) RegisterLegacyRoutes(r chi.Router) {
	r.Post("/register", h.Register)
	r.Group(func(r chi.Router) {
		if h.loginLimiter != nil {
			r.Use(h.loginLimiter)
		}
		r.Post("/login", h.Login)
	})
}

// RegisterProtectedRoutes registers routes that require authentication.
func (h *Handler) RegisterProtectedRoutes(r chi.Router) {
	r.Get("/me", h.Me)
}

// RegisterRequest represents registration request body.
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email,max=255"`
	Password  string `json:"password" validate:"required,max=72"`
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
	Role      string `json:"role" validate:"max=32"`
}

// ToInput converts the request to service input.
func (r *RegisterRequest) ToInput() RegisterInput {
	return RegisterInput{
		Email:     r.Email,
		Password:  r.Password,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Role:      domain.ParseRole(r.Role),
	}
}

// Register handles POST /auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	user, err := h.service.Register(r.Context(), req.ToInput())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, user)
}

// LoginRequest represents login credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents login response.
type LoginResponse struct {
	*Token
	User *domain.User `json:"user"`
}

// Login handles POST /auth/login.
// Credentials come from a JSON body or from email/password form or query parameters.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeLoginRequest(w, r)
	if !ok {
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	user, token, err := h.service.Login(r.Context(), LoginInput(req))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, LoginResponse{
		Token: token,
		User:  user,
	})
}

func (h *Handler) decodeLoginRequest(w http.ResponseWriter, r *http.Request) (LoginRequest, bool) {
	var req LoginRequest

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.Error(w, http.StatusBadRequest, "invalid json")
			return req, false
		}
		return req, true
	}

	if err := r.ParseForm(); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid form")
		return req, false
	}
	req.Email = r.Form.Get("email")
	req.Password = r.Form.Get("password")

	return req, true
}

// EmailAvailabilityResponse reports whether an email can be registered.
type EmailAvailabilityResponse struct {
	Email     string `json:"email"`
	Available bool   `json:"available"`
}

// EmailAvailability handles GET /auth/email-availability.
func (h *Handler) EmailAvailability(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if err := h.validator.Var(email, "required,email,max=255"); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	taken, err := h.service.EmailTaken(r.Context(), email)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, EmailAvailabilityResponse{
		Email:     domain.NormalizeEmail(email),
		Available: !taken,
	})
}

// Me handles GET /me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r.Context())
	if userID == "" {
		httputil.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.service.GetUserByID(r.Context(), userID)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, user)
}
