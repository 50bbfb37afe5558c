// Provides middleware for standardizing HTTP handlers.

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	apierrors "github.com/maruel/myaccount/internal/errors"
	"github.com/maruel/myaccount/internal/models"
	"github.com/maruel/myaccount/internal/server/dto"
	"github.com/maruel/myaccount/internal/server/handlers"
	"github.com/maruel/myaccount/internal/server/ratelimit"
	"github.com/maruel/myaccount/internal/server/reqctx"
)

var (
	errMissingAuth    = errors.New("missing authorization header")
	errInvalidAuthHdr = errors.New("invalid authorization header")
	errAccountGone    = errors.New("account not found or deleted")
)

// addRequestMetadataToContext adds the client IP to the context.
func addRequestMetadataToContext(ctx context.Context, r *http.Request) context.Context {
	return reqctx.WithClientIP(ctx, reqctx.GetClientIP(r))
}

// checkRateLimit checks rate limit and wraps the response writer if needed.
// Returns the (possibly wrapped) writer and whether the request should proceed.
func checkRateLimit(ctx context.Context, w http.ResponseWriter, tier *ratelimit.Tier, identifier string) (http.ResponseWriter, bool) {
	if tier == nil {
		return w, true
	}
	key := ratelimit.BuildKey(tier.Scope, identifier, tier.Name)
	result := tier.Limiter.Allow(key)
	w = ratelimit.NewResponseWriter(w, result)
	if !result.Allowed {
		retryAfter := max(int(result.RetryAfter.Seconds()), 1)
		handlers.WriteError(ctx, w, apierrors.NewAPIError(http.StatusTooManyRequests, apierrors.ErrRateLimited, "Too many requests").
			WithDetail("retry_after", retryAfter))
		return w, false
	}
	return w, true
}

// rateLimitIdentifier returns the bucket identifier for the tier's scope.
func rateLimitIdentifier(tier *ratelimit.Tier, a *models.Account, r *http.Request) string {
	if tier.Scope == ratelimit.ScopeUser && a != nil {
		return strconv.Itoa(a.ID)
	}
	return reqctx.GetClientIP(r)
}

// readAndDecodeBody reads the request body with size limit and decodes JSON into input.
// Returns false if an error occurred and was written to the response.
func readAndDecodeBody[In any](ctx context.Context, w http.ResponseWriter, r *http.Request, input *In, cfg *handlers.Config) bool {
	limit := int64(handlers.DefaultMaxRequestBodyBytes)
	if cfg != nil && cfg.MaxRequestBodyBytes > 0 {
		limit = cfg.MaxRequestBodyBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	body, err := io.ReadAll(r.Body)
	if err2 := r.Body.Close(); err == nil {
		err = err2
	}
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if !errors.As(err, &maxBytesErr) {
			err = apierrors.BadRequest("Failed to read request body").Wrap(err)
		}
		handlers.WriteError(ctx, w, err)
		return false
	}

	if len(body) > 0 {
		d := json.NewDecoder(bytes.NewReader(body))
		d.DisallowUnknownFields()
		if err := d.Decode(input); err != nil {
			handlers.WriteError(ctx, w, apierrors.BadRequest("Invalid request body").Wrap(err))
			return false
		}
	}
	return true
}

// decodeRequest fills input from the body, path and query, then validates it.
// Returns false if an error occurred and was written to the response.
func decodeRequest[In any, PtrIn interface {
	*In
	dto.Validatable
}](ctx context.Context, w http.ResponseWriter, r *http.Request, cfg *handlers.Config) (PtrIn, bool) {
	input := new(In)
	if !readAndDecodeBody(ctx, w, r, input, cfg) {
		return nil, false
	}
	if err := populatePathParams(r, input); err != nil {
		handlers.WriteError(ctx, w, err)
		return nil, false
	}
	if err := populateQueryParams(r, input); err != nil {
		handlers.WriteError(ctx, w, err)
		return nil, false
	}
	if err := PtrIn(input).Validate(); err != nil {
		handlers.WriteError(ctx, w, err)
		return nil, false
	}
	return PtrIn(input), true
}

// writeJSONResponse writes a JSON response or error response.
func writeJSONResponse[Out any](ctx context.Context, w http.ResponseWriter, output *Out, err error) {
	if err != nil {
		handlers.WriteError(ctx, w, err)
		return
	}
	handlers.WriteJSON(ctx, w, output)
}

// Wrap wraps a handler function to work as an http.Handler.
// The function must have signature: func(context.Context, *In) (*Out, error)
// where In can be unmarshalled from JSON and Out is a struct.
// Path parameters can be extracted by tagging struct fields with `path:"name"`.
// *In must implement dto.Validatable.
//
// Example:
//
//	type IDRequest struct {
//	    ID int `path:"id"`
//	}
//
//	func (h *Handler) Get(ctx context.Context, req *IDRequest) (*Response, error)
func Wrap[In any, PtrIn interface {
	*In
	dto.Validatable
}, Out any](fn func(context.Context, PtrIn) (*Out, error), cfg *handlers.Config, limits *ratelimit.Config) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := addRequestMetadataToContext(r.Context(), r)

		// Rate limit check for unauthenticated endpoints
		var ok bool
		if tier := limits.MatchUnauth(r.Method, r.URL.Path); tier != nil {
			w, ok = checkRateLimit(ctx, w, tier, reqctx.GetClientIP(r))
			if !ok {
				return
			}
		}

		input, ok := decodeRequest[In, PtrIn](ctx, w, r, cfg)
		if !ok {
			return
		}
		output, err := fn(ctx, input)
		writeJSONResponse(ctx, w, output, err)
	})
}

// WrapAuth wraps an authenticated handler function to work as an http.Handler.
// The function must have signature: func(context.Context, *models.Account, *In) (*Out, error)
// The account always comes from the session token, never from the request.
// *In must implement dto.Validatable.
func WrapAuth[In any, PtrIn interface {
	*In
	dto.Validatable
}, Out any](
	fn func(context.Context, *models.Account, PtrIn) (*Out, error),
	svc *handlers.Services,
	cfg *handlers.Config,
	limits *ratelimit.Config,
) http.Handler {
	return wrapAccount[In, PtrIn, Out](fn, svc, cfg, limits, false)
}

// WrapAdmin wraps a handler that requires the admin role.
// *In must implement dto.Validatable.
func WrapAdmin[In any, PtrIn interface {
	*In
	dto.Validatable
}, Out any](
	fn func(context.Context, *models.Account, PtrIn) (*Out, error),
	svc *handlers.Services,
	cfg *handlers.Config,
	limits *ratelimit.Config,
) http.Handler {
	return wrapAccount[In, PtrIn, Out](fn, svc, cfg, limits, true)
}

func wrapAccount[In any, PtrIn interface {
	*In
	dto.Validatable
}, Out any](
	fn func(context.Context, *models.Account, PtrIn) (*Out, error),
	svc *handlers.Services,
	cfg *handlers.Config,
	limits *ratelimit.Config,
	admin bool,
) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := addRequestMetadataToContext(r.Context(), r)
		a, w, ok := authenticate(ctx, w, r, svc, limits, admin)
		if !ok {
			return
		}
		ctx = reqctx.WithAccount(ctx, a)

		input, ok := decodeRequest[In, PtrIn](ctx, w, r, cfg)
		if !ok {
			return
		}
		output, err := fn(ctx, a, input)
		writeJSONResponse(ctx, w, output, err)
	})
}

// WrapAuthRaw wraps a raw http.HandlerFunc with authentication.
// Use this for handlers that need to handle requests directly (e.g., multipart
// forms and file downloads). The account is available with reqctx.Account.
// The body is limited to maxBody bytes.
func WrapAuthRaw(fn http.HandlerFunc, svc *handlers.Services, limits *ratelimit.Config, maxBody int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := addRequestMetadataToContext(r.Context(), r)
		a, w, ok := authenticate(ctx, w, r, svc, limits, false)
		if !ok {
			return
		}
		if maxBody > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, maxBody)
		}
		fn(w, r.WithContext(reqctx.WithAccount(ctx, a)))
	})
}

// authenticate resolves the account of the session token, rejects deleted
// accounts, checks the role and applies the authenticated rate limit tier.
func authenticate(ctx context.Context, w http.ResponseWriter, r *http.Request, svc *handlers.Services, limits *ratelimit.Config, admin bool) (*models.Account, http.ResponseWriter, bool) {
	a, err := validateToken(ctx, r, svc)
	if err != nil {
		slog.InfoContext(ctx, "Authentication failed", "err", err)
		handlers.WriteError(ctx, w, apierrors.Unauthorized().Wrap(err))
		return nil, w, false
	}
	if admin && !a.IsAdmin() {
		handlers.WriteError(ctx, w, apierrors.Forbidden("Forbidden: admin role required"))
		return nil, w, false
	}
	if tier := limits.MatchAuth(r.Method, r.URL.Path); tier != nil {
		var ok bool
		w, ok = checkRateLimit(ctx, w, tier, rateLimitIdentifier(tier, a, r))
		if !ok {
			return nil, w, false
		}
	}
	return a, w, true
}

// validateToken extracts and validates the bearer token and loads its active
// account.
func validateToken(ctx context.Context, r *http.Request, svc *handlers.Services) (*models.Account, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, errMissingAuth
	}
	scheme, tokenString, ok := strings.Cut(authHeader, " ")
	if !ok || scheme != "Bearer" || tokenString == "" {
		return nil, errInvalidAuthHdr
	}
	id, err := svc.Tokens.Parse(tokenString)
	if err != nil {
		return nil, err
	}
	a, err := svc.Store.Accounts.Get(ctx, id)
	if err != nil || a.Deleted() {
		return nil, errAccountGone
	}
	return a, nil
}

// populatePathParams extracts path parameters from the request and populates
// struct fields tagged with `path:"paramName"`.
func populatePathParams(r *http.Request, input any) error {
	return populateParams(input, "path", r.PathValue)
}

// populateQueryParams extracts query parameters from the request and populates
// struct fields tagged with `query:"paramName"`.
func populateQueryParams(r *http.Request, input any) error {
	query := r.URL.Query()
	return populateParams(input, "query", query.Get)
}

func populateParams(input any, key string, get func(string) string) error {
	val := reflect.ValueOf(input)
	if val.Kind() != reflect.Pointer {
		return nil
	}
	elem := val.Elem()
	if elem.Kind() != reflect.Struct {
		return nil
	}

	typ := elem.Type()
	for i := range typ.NumField() {
		field := typ.Field(i)
		tag := field.Tag.Get(key)
		if tag == "" {
			continue
		}
		paramValue := get(tag)
		if paramValue == "" {
			continue
		}

		//nolint:exhaustive // Only string and int are supported for parameters
		switch field.Type.Kind() {
		case reflect.String:
			elem.Field(i).SetString(paramValue)
		case reflect.Int:
			v, err := strconv.Atoi(paramValue)
			if err != nil {
				return apierrors.InvalidField(tag, "must be an integer")
			}
			elem.Field(i).SetInt(int64(v))
		default:
		}
	}
	return nil
}
