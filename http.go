package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// ErrorResponse is the JSON body written for failed requests
type ErrorResponse struct {
	Detail string `json:"detail"`
	Code   string `json:"code,omitempty"`
}

// MiddlewareConfig configures the credential middlewares
type MiddlewareConfig struct {
	// Filter skips the middleware when it returns true
	Filter func(router.Context) bool
	// ErrorHandler renders credential failures, defaults to RouteErrorHandler(logger)
	ErrorHandler router.ErrorHandler
	// ContextKey is the locals key the credential is stored under
	ContextKey string
	// Header is the request header read by APIKeyAuth
	Header string
	Logger Logger
}

// BearerAuth resolves "Authorization: Bearer <token>" and requires an active user.
// The identity is stored in the route locals and in the request context.
func BearerAuth(service *AuthService, cfg MiddlewareConfig) router.MiddlewareFunc {
	cfg = middlewareDefaults(cfg, service.config.GetContextKey())

	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return hf(ctx)
			}

			identity, err := service.ResolveBearer(ctx.Context(), ctx.GetString(router.HeaderAuthorization, ""))
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			if err := service.RequireActive(identity); err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			ctx.Locals(cfg.ContextKey, identity)
			ctx.SetContext(WithIdentity(ctx.Context(), identity))

			return hf(ctx)
		}
	}
}

// APIKeyAuth resolves the organization API key header
func APIKeyAuth(service *AuthService, cfg MiddlewareConfig) router.MiddlewareFunc {
	cfg = middlewareDefaults(cfg, service.config.GetOrganizationContextKey())
	if cfg.Header == "" {
		cfg.Header = service.config.GetAPIKeyHeader()
	}

	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return hf(ctx)
			}

			org, err := service.ResolveAPIKey(ctx.Context(), ctx.GetString(cfg.Header, ""))
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			ctx.Locals(cfg.ContextKey, org)
			ctx.SetContext(WithOrganization(ctx.Context(), org))

			return hf(ctx)
		}
	}
}

func middlewareDefaults(cfg MiddlewareConfig, contextKey string) MiddlewareConfig {
	if cfg.Logger == nil {
		cfg.Logger = defLogger{}
	}
	if cfg.ContextKey == "" {
		cfg.ContextKey = contextKey
	}
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = RouteErrorHandler(cfg.Logger)
	}
	return cfg
}

// RouteErrorHandler renders errors as {"detail", "code"} JSON using the
// status carried by the error
func RouteErrorHandler(logger Logger) router.ErrorHandler {
	if logger == nil {
		logger = defLogger{}
	}

	return func(c router.Context, err error) error {
		status, body, challenge := errorReply(logger, c.OriginalURL(), err)
		if challenge {
			c.SetHeader(fiber.HeaderWWWAuthenticate, DefaultAuthScheme)
		}
		return c.JSON(status, body)
	}
}

// ErrorHandler is RouteErrorHandler for fiber.Config.ErrorHandler, it catches
// whatever escapes the route handlers
func ErrorHandler(logger Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = defLogger{}
	}

	return func(c *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(ErrorResponse{Detail: fiberErr.Message})
		}

		status, body, challenge := errorReply(logger, c.OriginalURL(), err)
		if challenge {
			c.Set(fiber.HeaderWWWAuthenticate, DefaultAuthScheme)
		}
		return c.Status(status).JSON(body)
	}
}

func errorReply(logger Logger, path string, err error) (int, ErrorResponse, bool) {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	status := HTTPStatus(richErr)

	if status >= fiber.StatusInternalServerError {
		logger.Error(
			"request failed",
			"error", err,
			"path", path,
			"details", print.MaybePrettyJSON(richErr.Metadata),
		)
	} else {
		logger.Debug(
			"request rejected",
			"error", richErr.Message,
			"text_code", richErr.TextCode,
			"path", path,
		)
	}

	body := ErrorResponse{
		Detail: richErr.Message,
		Code:   richErr.TextCode,
	}

	if status >= fiber.StatusInternalServerError && richErr.TextCode == "" {
		body.Detail = "Internal server error"
	}

	return status, body, bearerChallenge(richErr.TextCode)
}

// bearerChallenge reports whether a failure belongs to the bearer token path
func bearerChallenge(textCode string) bool {
	switch textCode {
	case TextCodeNotAuthenticated, TextCodeInvalidScheme, TextCodeInvalidToken, TextCodeTokenExpired:
		return true
	}
	return false
}
