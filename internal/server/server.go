package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	humachi "github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"portaria/internal/domain"
	"portaria/internal/engine"
	"portaria/internal/repo"
)

// Config for the HTTP API handler.
type Config struct {
	Engine    engine.Engine
	BasePath  string
	Auth      AuthConfig
	RateLimit RateLimit
	// DevLogin exposes a token minting endpoint for local testing.
	DevLogin bool
	Logger   *slog.Logger
}

type apiErrorBody struct {
	Code    string         `json:"code" example:"invalid_transition"`
	Message string         `json:"message" example:"invalid act status transition draft -> signed"`
	Details map[string]any `json:"details,omitempty" jsonschema:"type=object,additionalProperties=true" example:"{\"from\":\"draft\",\"to\":\"signed\"}"`
}

type requestKey struct{}
type bodyBytesKey struct{}

// apiError models the error envelope.
type apiError struct {
	status int
	Body   apiErrorBody `json:"error"`
}

func (e *apiError) GetStatus() int { return e.status }
func (e *apiError) Error() string  { return e.Body.Message }

// New returns an HTTP handler exposing the acts API.
func New(cfg Config) (http.Handler, error) {
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/v0"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	if cfg.Auth.Logger == nil {
		cfg.Auth.Logger = log
	}
	if cfg.DevLogin && cfg.Auth.JWTSecret == "" {
		return nil, errors.New("dev login requires a jwt secret")
	}
	huma.DefaultArrayNullable = false
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		return newAPIError(status, "", msg, nil)
	}
	huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity && strings.Contains(strings.ToLower(msg), "validation") {
			// Schema errors are malformed requests; 422 is kept for lifecycle rules.
			status = http.StatusBadRequest
		}
		var details map[string]any
		if len(errs) > 0 {
			details = map[string]any{"errors": errs}
		}
		return newAPIError(status, "", msg, details)
	}

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bodyBytes, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
			ctx := context.WithValue(r.Context(), requestKey{}, r)
			ctx = context.WithValue(ctx, bodyBytesKey{}, bodyBytes)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	router.Use(newAuthMiddleware(basePath, cfg.Auth))
	router.Use(newRateLimitMiddleware(basePath, cfg.RateLimit))
	hcfg := huma.DefaultConfig("Portaria API", "0.1.0")
	hcfg.OpenAPIPath = "/openapi"
	hcfg.DocsPath = ""
	api := humachi.New(router, hcfg)
	group := huma.NewGroup(api, basePath)

	h := handlers{e: cfg.Engine, log: log.With("component", "http")}
	registerDocs(router, basePath)
	registerHealth(group)
	h.registerActs(group)
	h.registerLifecycle(group)
	h.registerRetifications(group)
	h.registerEvents(group)
	if cfg.DevLogin {
		registerDevAuth(group, cfg.Auth)
	}
	registerOpenAPI(router, api, basePath)

	return router, nil
}

type handlers struct {
	e   engine.Engine
	log *slog.Logger
}

func newAPIError(status int, code, message string, details map[string]any) huma.StatusError {
	if code == "" {
		code = defaultCodeForStatus(status)
	}
	return &apiError{
		status: status,
		Body: apiErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

func (h handlers) fail(ctx context.Context, err error) huma.StatusError {
	se := handleError(err)
	if se.GetStatus() >= http.StatusInternalServerError {
		h.log.ErrorContext(ctx, "request failed", slog.String("error", err.Error()))
	}
	return se
}

func handleError(err error) huma.StatusError {
	if err == nil {
		return nil
	}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return newAPIError(http.StatusUnprocessableEntity, "validation_failed", err.Error(), map[string]any{"errors": ve.Errors})
	}
	var te *domain.TransitionError
	if errors.As(err, &te) {
		return newAPIError(http.StatusConflict, "invalid_transition", err.Error(), map[string]any{"from": te.From, "to": te.To})
	}
	var oe *domain.OperationError
	if errors.As(err, &oe) {
		return newAPIError(http.StatusConflict, "invalid_operation", err.Error(), map[string]any{"operation": oe.Op, "status": oe.Status})
	}
	var ce *domain.ConflictError
	if errors.As(err, &ce) {
		return newAPIError(http.StatusPreconditionFailed, "version_conflict", err.Error(), map[string]any{"expected": ce.Expected, "actual": ce.Actual})
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return newAPIError(http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, domain.ErrConflict):
		return newAPIError(http.StatusConflict, "conflict", err.Error(), nil)
	case errors.Is(err, domain.ErrValidation):
		return newAPIError(http.StatusUnprocessableEntity, "validation_failed", err.Error(), nil)
	}
	return newAPIError(http.StatusInternalServerError, "internal_error", "internal error", nil)
}

func defaultCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusPreconditionFailed:
		return "version_conflict"
	case http.StatusUnprocessableEntity:
		return "validation_failed"
	case http.StatusTooManyRequests:
		return "rate_limited"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return strings.ToLower(strings.ReplaceAll(http.StatusText(status), " ", "_"))
	}
}

func registerDocs(r chi.Router, basePath string) {
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, swaggerHTML(basePath))
	})
}

func registerOpenAPI(r chi.Router, api huma.API, basePath string) {
	var spec []byte
	specPath := path.Join(basePath, "openapi.json")
	r.Get(specPath, func(w http.ResponseWriter, r *http.Request) {
		if spec == nil {
			oas := api.OpenAPI()
			ensureDefaultErrorResponses(oas)
			applyAuthSecurity(oas, basePath)
			spec, _ = json.Marshal(oas)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(spec)
	})
}

func operations(item *huma.PathItem) []*huma.Operation {
	return []*huma.Operation{item.Get, item.Put, item.Post, item.Delete, item.Patch}
}

func ensureDefaultErrorResponses(oas *huma.OpenAPI) {
	if oas == nil || oas.Paths == nil {
		return
	}
	for _, item := range oas.Paths {
		for _, op := range operations(item) {
			if op == nil {
				continue
			}
			if op.Responses == nil {
				op.Responses = map[string]*huma.Response{}
			}
			op.Responses["default"] = &huma.Response{
				Description: "Error",
				Content: map[string]*huma.MediaType{
					"application/json": {
						Schema: &huma.Schema{Ref: "#/components/schemas/ApiError"},
					},
				},
			}
		}
	}
}

func applyAuthSecurity(oas *huma.OpenAPI, basePath string) {
	if oas == nil {
		return
	}
	if oas.Components == nil {
		oas.Components = &huma.Components{}
	}
	if oas.Components.SecuritySchemes == nil {
		oas.Components.SecuritySchemes = map[string]*huma.SecurityScheme{}
	}
	oas.Components.SecuritySchemes["bearerAuth"] = &huma.SecurityScheme{
		Type:         "http",
		Scheme:       "bearer",
		BearerFormat: "JWT",
	}
	security := []map[string][]string{{"bearerAuth": {}}}
	oas.Security = security
	open := map[string]bool{
		path.Join(basePath, "health"):         true,
		path.Join(basePath, "auth/dev/login"): true,
	}
	for route, item := range oas.Paths {
		for _, op := range operations(item) {
			if op == nil {
				continue
			}
			if open[route] {
				op.Security = []map[string][]string{}
				continue
			}
			op.Security = security
		}
	}
}

func swaggerHTML(basePath string) string {
	specURL := path.Join("/", path.Join(basePath, "openapi.json"))
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Portaria API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js" crossorigin></script>
    <script>
      window.onload = () => {
        SwaggerUIBundle({
          url: '%s',
          dom_id: '#swagger-ui'
        });
      };
    </script>
    <p style="padding: 1rem; font-family: sans-serif; color: #444;">
      Authenticate with Authorization: Bearer &lt;token&gt;.
    </p>
  </body>
</html>`, specURL)
}

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

type actPath struct {
	ID string `path:"id"`
}

type actOutput struct {
	Body domain.Act `json:"body"`
}

func (h handlers) registerActs(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-act",
		Method:        http.MethodPost,
		Path:          "/acts",
		Summary:       "Create a draft act",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		Body CreateActRequest `json:"body"`
	}) (*actOutput, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		act, err := h.e.CreateDraft(ctx, engine.CreateOptions{Act: input.Body.act(), ActorID: actorID})
		if err != nil {
			return nil, h.fail(ctx, err)
		}
		return &actOutput{Body: act}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "compose-collective",
		Method:        http.MethodPost,
		Path:          "/acts/collective",
		Summary:       "Compose one act binding many subjects",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		Body CollectiveRequest `json:"body"`
	}) (*actOutput, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		act, err := h.e.ComposeCollective(ctx, engine.CollectiveOptions{Request: input.Body.request(), ActorID: actorID})
		if err != nil {
			return nil, h.fail(ctx, err)
		}
		return &actOutput{Body: act}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-acts",
		Method:      http.MethodGet,
		Path:        "/acts",
		Summary:     "List acts, newest first",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Status         string `query:"status" enum:"draft,awaiting_signature,signed,awaiting_publication,published,in_force,revoked"`
		Category       string `query:"category"`
		InstrumentKind string `query:"instrument_kind"`
		Year           int    `query:"year"`
		Limit          int    `query:"limit" default:"50"`
		Cursor         string `query:"cursor"`
	}) (*struct {
		Body paginatedActs `json:"body"`
	}, error) {
		limit := normalizeLimit(input.Limit)
		cursorTS, cursorID, err := parseCompositeCursor(input.Cursor)
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid cursor", map[string]any{"cursor": input.Cursor})
		}
		items, err := h.e.ListActs(ctx, repo.ActFilters{
			Status:          domain.Status(input.Status),
			Category:        domain.Category(input.Category),
			InstrumentKind:  domain.InstrumentKind(input.InstrumentKind),
			Year:            input.Year,
			Limit:           limit + 1,
			CursorCreatedAt: cursorTS,
			CursorID:        cursorID,
		})
		if err != nil {
			return nil, h.fail(ctx, err)
		}
		resp := paginatedActs{Items: items}
		if len(items) > limit {
			resp.Items = items[:limit]
			last := resp.Items[limit-1]
			resp.NextCursor = composeCursor(last.CreatedAt, last.ID)
		}
		return &struct {
			Body paginatedActs `json:"body"`
		}{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-act",
		Method:      http.MethodGet,
		Path:        "/acts/{id}",
		Summary:     "Get act",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *actPath) (*actOutput, error) {
		act, err := h.e.GetAct(ctx, input.ID)
		if err != nil {
			return nil, h.fail(ctx, err)
		}
		return &actOutput{Body: act}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-draft",
		Method:      http.MethodPatch,
		Path:        "/acts/{id}",
		Summary:     "Edit a draft act",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusPreconditionFailed,
			http.StatusUnprocessableEntity,
		},
	}, func(ctx context.Context, input *struct {
		ID   string             `path:"id"`
		Body UpdateDraftRequest `json:"body"`
	}) (*actOutput, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		act, err := h.e.UpdateDraft(ctx, engine.UpdateDraftOptions{
			ID:              input.ID,
			Patch:           input.Body.patch(),
			ExpectedVersion: input.Body.Version,
			ActorID:         actorID,
		})
		if err != nil {
			return nil, h.fail(ctx, err)
		}
		return &actOutput{Body: act}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "render-act",
		Method:      http.MethodGet,
		Path:        "/acts/{id}/document",
		Summary:     "Render the signed text of an act",
		Errors:      []int{http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *actPath) (*struct {
		ContentType string `header:"Content-Type"`
		Body        []byte
	}, error) {
		doc, err := h.e.Document(ctx, input.ID)
		if err != nil {
			return nil, h.fail(ctx, err)
		}
		return &struct {
			ContentType string `header:"Content-Type"`
			Body        []byte
		}{ContentType: "text/plain; charset=utf-8", Body: doc}, nil
	})
}

func (h handlers) registerLifecycle(api huma.API) {
	mutationErrors := []int{
		http.StatusBadRequest,
		http.StatusNotFound,
		http.StatusConflict,
		http.StatusPreconditionFailed,
		http.StatusUnprocessableEntity,
	}

	huma.Register(api, huma.Operation{
		OperationID: "transition-act",
		Method:      http.MethodPost,
		Path:        "/acts/{id}/transitions",
		Summary:     "Move an act one step forward",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		ID   string            `path:"id"`
		Body TransitionRequest `json:"body"`
	}) (*actOutput, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		act, err := h.e.Transition(ctx, engine.TransitionOptions{
			ID:              input.ID,
			To:              domain.Status(input.Body.To),
			ExpectedVersion: input.Body.Version,
			ActorID:         actorID,
		})
		if err != nil {
			return nil, h.fail(ctx, err)
		}
		return &actOutput{Body: act}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "allowed-transitions",
		Method:      http.MethodGet,
		Path:        "/acts/{id}/transitions",
		Summary:     "List the moves available from the act's status",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *actPath) (*struct {
		Body TransitionsResponse `json:"body"`
	}, error) {
		act, edges, err := h.e.Allowed(ctx, input.ID)
		if err != nil {
			return nil, h.fail(ctx, err)
		}
		return &struct {
			Body TransitionsResponse `json:"body"`
		}{Body: transitionsResponse(act, edges)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "check-act",
		Method:      http.MethodGet,
		Path:        "/acts/{id}/validation",
		Summary:     "Dry-run the rules for entering a status",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, func(ctx context.Context, input *struct {
		ID     string `path:"id"`
		Target string `query:"target" required:"true"`
	}) (*struct {
		Body ValidationResponse `json:"body"`
	}, error) {
		res, err := h.e.Check(ctx, input.ID, domain.Status(input.Target))
		if err != nil {
			return nil, h.fail(ctx, err)
		}
		violations := res.Violations
		if violations == nil {
			violations = []domain.FieldError{}
		}
		return &struct {
			Body ValidationResponse `json:"body"`
		}{Body: ValidationResponse{
			ActID:      input.ID,
			Target:     input.Target,
			OK:         res.OK(),
			Violations: violations,
		}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-gazette",
		Method:      http.MethodPut,
		Path:        "/acts/{id}/gazette",
		Summary:     "Record the official gazette reference",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		ID   string         `path:"id"`
		Body GazetteRequest `json:"body"`
	}) (*actOutput, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		act, err := h.e.SetGazette(ctx, engine.GazetteOptions{
			ID:              input.ID,
			Gazette:         domain.Gazette{Number: input.Body.Number, Date: input.Body.Date},
			ExpectedVersion: input.Body.Version,
			ActorID:         actorID,
		})
		if err != nil {
			return nil, h.fail(ctx, err)
		}
		return &actOutput{Body: act}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "revoke-act",
		Method:      http.MethodPost,
		Path:        "/acts/{id}/revocation",
		Summary:     "Revoke an act",
		Errors:      mutationErrors,
	}, func(ctx context.Context, input *struct {
		ID   string        `path:"id"`
		Body RevokeRequest `json:"body"`
	}) (*actOutput, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		act, err := h.e.Revoke(ctx, engine.RevokeOptions{
			ID:              input.ID,
			Reason:          input.Body.Reason,
			ExpectedVersion: input.Body.Version,
			ActorID:         actorID,
		})
		if err != nil {
			return nil, h.fail(ctx, err)
		}
		return &actOutput{Body: act}, nil
	})
}

func (h handlers) registerRetifications(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID:   "retify-act",
		Method:        http.MethodPost,
		Path:          "/acts/{id}/retifications",
		Summary:       "Create a retification draft correcting a published act",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		ID   string        `path:"id"`
		Body RetifyRequest `json:"body"`
	}) (*actOutput, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		act, err := h.e.Retify(ctx, engine.RetifyOptions{
			OriginalID:    input.ID,
			Corrections:   input.Body.Corrections,
			Justification: input.Body.Justification,
			DocumentDate:  input.Body.DocumentDate,
			ActorID:       actorID,
		})
		if err != nil {
			return nil, h.fail(ctx, err)
		}
		return &actOutput{Body: act}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-retifications",
		Method:      http.MethodGet,
		Path:        "/acts/{id}/retifications",
		Summary:     "List acts that retify this one",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *actPath) (*struct {
		Body listActs `json:"body"`
	}, error) {
		items, err := h.e.Retifications(ctx, input.ID)
		if err != nil {
			return nil, h.fail(ctx, err)
		}
		return &struct {
			Body listActs `json:"body"`
		}{Body: listActs{Items: items}}, nil
	})
}

func (h handlers) registerEvents(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List recent events",
		Errors:      []int{http.StatusBadRequest},
	}, func(ctx context.Context, input *struct {
		Type     string `query:"type"`
		EntityID string `query:"entity_id"`
		Limit    int    `query:"limit" default:"50"`
		Cursor   string `query:"cursor"`
	}) (*struct {
		Body paginatedEvents `json:"body"`
	}, error) {
		limit := normalizeLimit(input.Limit)
		var before int64
		if input.Cursor != "" {
			parsed, err := strconv.ParseInt(input.Cursor, 10, 64)
			if err != nil || parsed <= 0 {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid cursor", map[string]any{"cursor": input.Cursor})
			}
			before = parsed
		}
		items, err := h.e.LatestEvents(ctx, repo.EventFilters{
			Type:     input.Type,
			EntityID: input.EntityID,
			Before:   before,
			Limit:    limit + 1,
		})
		if err != nil {
			return nil, h.fail(ctx, err)
		}
		resp := paginatedEvents{Items: items}
		if len(items) > limit {
			resp.Items = items[:limit]
			resp.NextCursor = strconv.FormatInt(resp.Items[limit-1].ID, 10)
		}
		return &struct {
			Body paginatedEvents `json:"body"`
		}{Body: resp}, nil
	})
}

func registerDevAuth(api huma.API, authCfg AuthConfig) {
	huma.Register(api, huma.Operation{
		OperationID: "dev-login",
		Method:      http.MethodPost,
		Path:        "/auth/dev/login",
		Summary:     "DEV ONLY: mint a JWT for local testing",
		Errors:      []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, func(ctx context.Context, input *struct {
		Body DevLoginRequest `json:"body"`
	}) (*struct {
		Body DevLoginResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actor := strings.TrimSpace(input.Body.ActorID)
		if actor == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "actor_id is required", nil)
		}
		token, err := SignToken(authCfg.JWTSecret, actor, time.Duration(input.Body.TTLSeconds)*time.Second)
		if err != nil {
			return nil, newAPIError(http.StatusInternalServerError, "internal_error", err.Error(), nil)
		}
		return &struct {
			Body DevLoginResponse `json:"body"`
		}{Body: DevLoginResponse{Token: token}}, nil
	})
}

func bodyBytes(ctx context.Context) []byte {
	if buf, ok := ctx.Value(bodyBytesKey{}).([]byte); ok {
		return buf
	}
	req, ok := ctx.Value(requestKey{}).(*http.Request)
	if !ok || req == nil {
		return nil
	}
	data, _ := io.ReadAll(req.Body)
	return data
}

func normalizeLimit(in int) int {
	if in <= 0 {
		return 50
	}
	if in > 200 {
		return 200
	}
	return in
}

func parseCompositeCursor(cursor string) (string, string, error) {
	if cursor == "" {
		return "", "", nil
	}
	parts := strings.SplitN(cursor, "|", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid cursor")
	}
	return parts[0], parts[1], nil
}

func composeCursor(ts, id string) string {
	if ts == "" || id == "" {
		return ""
	}
	return ts + "|" + id
}
