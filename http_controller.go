package auth

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RegisterAuthRoutes mounts the auth endpoints on app and returns the controller
func RegisterAuthRoutes[T any](app router.Router[T], service *AuthService, opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(service, opts...)

	mw := MiddlewareConfig{
		ErrorHandler: controller.ErrorHandler,
		Logger:       controller.Logger,
	}

	bearer := BearerAuth(service, mw)
	apiKey := APIKeyAuth(service, mw)

	app.Post(controller.Routes.Register, controller.RegistrationCreate).
		SetName("auth.register.post")
	app.Post(controller.Routes.Login, controller.LoginPost).
		SetName("auth.login.post")

	app.Get(controller.Routes.Me, apiKey(controller.MeShow)).
		SetName("auth.me.get")
	app.Post(controller.Routes.AccessToken, apiKey(controller.AccessTokenCreate)).
		SetName("auth.access-token.post")

	app.Get(controller.Routes.CurrentUser, bearer(controller.CurrentUserShow)).
		SetName("auth.users.me.get")
	app.Patch(controller.Routes.CurrentUser, bearer(controller.CurrentUserUpdate)).
		SetName("auth.users.me.patch")
	app.Get(controller.Routes.Organization, bearer(controller.OrganizationShow)).
		SetName("auth.organizations.get")

	return controller
}

// AuthControllerRoutes holds the route paths, relative to the router the
// controller is mounted on
type AuthControllerRoutes struct {
	Register     string
	Login        string
	Me           string
	AccessToken  string
	CurrentUser  string
	Organization string
}

// AuthController serves the JSON auth endpoints
type AuthController struct {
	Debug        bool
	Logger       Logger
	Service      *AuthService
	Routes       *AuthControllerRoutes
	ErrorHandler router.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

// WithControllerLogger sets the controller logger
func WithControllerLogger(l Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if l != nil {
			c.Logger = l
		}
		return c
	}
}

// WithControllerDebug dumps request payloads
func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

func NewAuthController(service *AuthService, opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:  defLogger{},
		Service: service,
		Routes: &AuthControllerRoutes{
			Register:     "/auth/register",
			Login:        "/auth/login",
			Me:           "/auth/me",
			AccessToken:  "/auth/access-token",
			CurrentUser:  "/auth/users/me",
			Organization: "/auth/organizations/:organization_id",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Service == nil {
		panic("Missing AuthService in auth controller...")
	}

	if c.ErrorHandler == nil {
		c.ErrorHandler = RouteErrorHandler(c.Logger)
	}

	return c
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *AuthController) LoginPost(c router.Context) error {
	payload := new(LoginRequest)

	if err := c.Bind(payload); err != nil {
		return a.ErrorHandler(c, badRequest(err, "Failed to parse body"))
	}

	a.dump("LOGIN", LoginRequest{Email: payload.Email})

	// malformed input can not match a stored user
	if err := payload.Validate(); err != nil {
		a.Logger.Debug("login payload rejected", "error", err)
		return a.ErrorHandler(c, ErrInvalidCredentials)
	}

	res, err := a.Service.Login(c.Context(), payload.Email, payload.Password)
	if err != nil {
		return a.ErrorHandler(c, err)
	}

	return c.JSON(router.StatusOK, res)
}

func (a *AuthController) RegistrationCreate(c router.Context) error {
	payload := new(RegisterUserMessage)

	if err := c.Bind(payload); err != nil {
		a.Logger.Error("register user parse payload", "error", err)
		return a.ErrorHandler(c, badRequest(err, "Failed to parse body"))
	}

	a.dump("REGISTER", RegisterUserMessage{
		Email:     payload.Email,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
	})

	identity, err := a.Service.Register(c.Context(), *payload)
	if err != nil {
		return a.ErrorHandler(c, err)
	}

	return c.JSON(router.StatusOK, identity)
}

// MeShow returns the admin user of the API key organization
func (a *AuthController) MeShow(c router.Context) error {
	org, ok := GetRouterOrganization(c, a.Service.config.GetOrganizationContextKey())
	if !ok {
		return a.ErrorHandler(c, ErrOrgAuthFailed)
	}

	identity, err := a.Service.CurrentUserForOrganization(c.Context(), org)
	if err != nil {
		return a.ErrorHandler(c, err)
	}

	return c.JSON(router.StatusOK, identity)
}

// AccessTokenCreate mints a bearer token for the admin user of the API key organization
func (a *AuthController) AccessTokenCreate(c router.Context) error {
	org, ok := GetRouterOrganization(c, a.Service.config.GetOrganizationContextKey())
	if !ok {
		return a.ErrorHandler(c, ErrOrgAuthFailed)
	}

	identity, err := a.Service.CurrentUserForOrganization(c.Context(), org)
	if err != nil {
		return a.ErrorHandler(c, err)
	}

	token, err := a.Service.IssueAccessToken(c.Context(), identity.ID.String(), org.ID.String())
	if err != nil {
		return a.ErrorHandler(c, err)
	}

	return c.JSON(router.StatusOK, token)
}

func (a *AuthController) CurrentUserShow(c router.Context) error {
	identity, ok := GetRouterIdentity(c, a.Service.config.GetContextKey())
	if !ok {
		return a.ErrorHandler(c, ErrNotAuthenticated)
	}

	return c.JSON(router.StatusOK, identity)
}

func (a *AuthController) CurrentUserUpdate(c router.Context) error {
	identity, ok := GetRouterIdentity(c, a.Service.config.GetContextKey())
	if !ok {
		return a.ErrorHandler(c, ErrNotAuthenticated)
	}

	payload := new(UpdateUserMessage)
	if err := c.Bind(payload); err != nil {
		return a.ErrorHandler(c, badRequest(err, "Failed to parse body"))
	}

	updated, err := a.Service.UpdateUser(c.Context(), identity.ID, *payload)
	if err != nil {
		return a.ErrorHandler(c, err)
	}

	return c.JSON(router.StatusOK, updated)
}

func (a *AuthController) OrganizationShow(c router.Context) error {
	identity, ok := GetRouterIdentity(c, a.Service.config.GetContextKey())
	if !ok {
		return a.ErrorHandler(c, ErrNotAuthenticated)
	}

	org, err := a.Service.AuthorizeOrganization(c.Context(), identity, c.Param("organization_id"))
	if err != nil {
		return a.ErrorHandler(c, err)
	}

	return c.JSON(router.StatusOK, org)
}

func (a *AuthController) dump(label string, payload any) {
	if !a.Debug {
		return
	}
	a.Logger.Debug(fmt.Sprintf("======= AUTH %s ======", label), "payload", print.MaybePrettyJSON(payload))
}

func badRequest(err error, msg string) error {
	return goerrors.Wrap(err, goerrors.CategoryBadInput, msg).
		WithCode(goerrors.CodeBadRequest)
}
