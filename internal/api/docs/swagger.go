package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// SessionStatusData is the live status of a login session
type SessionStatusData struct {
	SessionID          string   `json:"session_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	State              string   `json:"state" example:"dwelling"`
	StartedAt          string   `json:"started_at" example:"2026-01-01T08:00:00Z"`
	PresenceNs         int64    `json:"presence_ns" example:"2000000000"`
	ElapsedNs          int64    `json:"elapsed_ns" example:"3500000000"`
	RemainingNs        int64    `json:"remaining_ns" example:"26500000000"`
	Polls              int      `json:"polls" example:"4"`
	Evaluations        int      `json:"evaluations" example:"0"`
	ExtractionFailures int      `json:"extraction_failures" example:"0"`
	CaptureFailures    int      `json:"capture_failures" example:"0"`
	FramesRendered     int64    `json:"frames_rendered" example:"35"`
	LastDistance       *float64 `json:"last_distance,omitempty" example:"0.31"`
}

// SessionResponse is returned by the session endpoints
type SessionResponse struct {
	SessionID string            `json:"session_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Status    SessionStatusData `json:"status"`
}

// SessionListResponse lists tracked sessions
type SessionListResponse struct {
	Sessions []SessionStatusData `json:"sessions"`
}

// ResultData is the terminal verdict of a session
type ResultData struct {
	SessionID  string   `json:"session_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Outcome    string   `json:"outcome" example:"accepted"`
	IdentityID string   `json:"identity_id,omitempty" example:"0d9c4a3e-8f51-4c55-9b4a-2d8f1c6e7a10"`
	Identity   string   `json:"identity,omitempty" example:"ana.souza"`
	Name       string   `json:"name,omitempty" example:"Ana Souza"`
	Confidence *float64 `json:"confidence,omitempty" example:"71.5"`
	Distance   *float64 `json:"distance,omitempty" example:"0.285"`
	DecidedAt  string   `json:"decided_at" example:"2026-01-01T08:00:05Z"`
}

// ResultResponse wraps a session result
type ResultResponse struct {
	Result ResultData `json:"result"`
}

// IdentityResponse describes an enrolled identity
type IdentityResponse struct {
	ID         string `json:"id" example:"0d9c4a3e-8f51-4c55-9b4a-2d8f1c6e7a10"`
	ExternalID string `json:"external_id" example:"ana.souza"`
	Name       string `json:"name" example:"Ana Souza"`
	BirthDate  string `json:"birth_date,omitempty" example:"1990-05-01"`
	Embeddings int    `json:"embeddings" example:"4"`
	EnrolledAt string `json:"enrolled_at" example:"2026-01-01T00:00:00Z"`
}

// IdentityListResponse lists enrolled identities
type IdentityListResponse struct {
	Identities []IdentityResponse `json:"identities"`
}

// AddImagesResponse reports appended embeddings
type AddImagesResponse struct {
	ExternalID string `json:"external_id" example:"ana.souza"`
	Added      int    `json:"added" example:"2"`
}

// LoginData is one accepted login
type LoginData struct {
	ID         string  `json:"id" example:"7b0f7a4c-92a3-4bfb-8d0e-0c1a4c7e9f22"`
	SessionID  string  `json:"session_id" example:"550e8400-e29b-41d4-a716-446655440000"`
	ExternalID string  `json:"external_id" example:"ana.souza"`
	Name       string  `json:"name" example:"Ana Souza"`
	Confidence float64 `json:"confidence" example:"71.5"`
	Distance   float64 `json:"distance" example:"0.285"`
	CreatedAt  string  `json:"created_at" example:"2026-01-01T08:00:05Z"`
}

// LoginListResponse lists accepted logins
type LoginListResponse struct {
	Logins []LoginData `json:"logins"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code" example:"VALIDATION_FAILED"`
	Message string `json:"message" example:"Request validation failed"`
}

// EmptyResponse represents no content response (204)
type EmptyResponse struct{}

var internalError = response.New(ErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred"}, "500", "Internal Server Error")

func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "Facegate API",
		Version:     "v1.0.0",
		Description: "Live face login: a session watches the camera, waits for a steady face and matches it against the enrolled gallery",
		Host:        "localhost:3000",
		Path:        "/v1",
	})

	sessionID := parameter.StrParam("id", parameter.Path, parameter.WithDescription("Session ID"))
	externalID := parameter.StrParam("external_id", parameter.Path, parameter.WithDescription("External identity identifier"))
	unauthorized := response.New(ErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid or missing API key"}, "401", "Unauthorized")

	endpoints := []*endpoint.EndPoint{
		// POST /v1/sessions - Start login session
		endpoint.New(
			endpoint.POST,
			"/sessions",
			endpoint.WithTags("Sessions"),
			endpoint.WithSummary("Start a login session"),
			endpoint.WithDescription("Claims the camera and starts watching for a face. The session ends accepted, timed out or rejected (cancelled)."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SessionResponse{}, "201", "Session started"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "TOO_MANY_SESSIONS", Message: "Too many concurrent sessions"}, "429", "Too Many Requests"),
				response.New(ErrorResponse{Code: "DEVICE_UNAVAILABLE", Message: "Capture device unavailable"}, "503", "Service Unavailable"),
				internalError,
			}),
		),

		// GET /v1/sessions - List sessions
		endpoint.New(
			endpoint.GET,
			"/sessions",
			endpoint.WithTags("Sessions"),
			endpoint.WithSummary("List tracked sessions"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SessionListResponse{}, "200", "Sessions"),
			}),
		),

		// GET /v1/sessions/{id} - Session status
		endpoint.New(
			endpoint.GET,
			"/sessions/{id}",
			endpoint.WithTags("Sessions"),
			endpoint.WithSummary("Get session status"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(sessionID),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SessionResponse{}, "200", "Current status"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "BAD_REQUEST", Message: "Invalid request"}, "400", "Bad Request"),
				response.New(ErrorResponse{Code: "SESSION_NOT_FOUND", Message: "Session not found"}, "404", "Not Found"),
			}),
		),

		// DELETE /v1/sessions/{id} - Cancel session
		endpoint.New(
			endpoint.DELETE,
			"/sessions/{id}",
			endpoint.WithTags("Sessions"),
			endpoint.WithSummary("Cancel a session"),
			endpoint.WithDescription("Stops the session and releases the camera. A session that already finished keeps its result."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(sessionID),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(SessionResponse{}, "200", "Final status"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "SESSION_NOT_FOUND", Message: "Session not found"}, "404", "Not Found"),
			}),
		),

		// GET /v1/sessions/{id}/result - Consume result
		endpoint.New(
			endpoint.GET,
			"/sessions/{id}/result",
			endpoint.WithTags("Sessions"),
			endpoint.WithSummary("Consume the session result"),
			endpoint.WithDescription("Returns the terminal result once; the session is forgotten afterwards."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				sessionID,
				parameter.StrParam("wait", parameter.Query, parameter.WithDescription("Block up to this duration (e.g. 10s, max 60s) for the session to finish")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ResultResponse{}, "200", "Terminal result"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "SESSION_NOT_FOUND", Message: "Session not found"}, "404", "Not Found"),
				response.New(ErrorResponse{Code: "SESSION_NOT_TERMINAL", Message: "Session is still running"}, "409", "Conflict"),
			}),
		),

		// GET /v1/ws - Live updates
		endpoint.New(
			endpoint.GET,
			"/ws",
			endpoint.WithTags("Sessions"),
			endpoint.WithSummary("Websocket with live session status"),
			endpoint.WithDescription("Streams session.status events and, with previews=true, session.preview frames (base64 JPEG with the face box drawn)."),
			endpoint.WithParams(
				parameter.StrParam("session", parameter.Query, parameter.WithDescription("Follow a single session")),
				parameter.StrParam("previews", parameter.Query, parameter.WithDescription("Set to true to also receive overlaid frames")),
			),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{Code: "HTTP_ERROR", Message: "Upgrade Required"}, "426", "Upgrade Required"),
			}),
		),

		// POST /v1/identities - Enroll identity
		endpoint.New(
			endpoint.POST,
			"/identities",
			endpoint.WithTags("Identities"),
			endpoint.WithSummary("Enroll a new identity"),
			endpoint.WithDescription("Form fields external_id, name, birth_date (YYYY-MM-DD) and at least four images files, each with exactly one face."),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(IdentityResponse{}, "201", "Identity enrolled"),
			}),
			endpoint.WithErrors([]response.Response{
				unauthorized,
				response.New(ErrorResponse{Code: "IDENTITY_EXISTS", Message: "An identity with this external ID already exists"}, "409", "Conflict"),
				response.New(ErrorResponse{Code: "NOT_ENOUGH_IMAGES", Message: "Not enough face images to enroll the identity"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "NO_FACE_DETECTED", Message: "No face detected in image"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "MULTIPLE_FACES", Message: "More than one face detected"}, "422", "Unprocessable Entity"),
				response.New(ErrorResponse{Code: "EXTRACTION_FAILED", Message: "Embedding extraction failed"}, "502", "Bad Gateway"),
				internalError,
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// GET /v1/identities - List identities
		endpoint.New(
			endpoint.GET,
			"/identities",
			endpoint.WithTags("Identities"),
			endpoint.WithSummary("List enrolled identities"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(IdentityListResponse{}, "200", "Identities"),
			}),
			endpoint.WithErrors([]response.Response{unauthorized}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// GET /v1/identities/{external_id}
		endpoint.New(
			endpoint.GET,
			"/identities/{external_id}",
			endpoint.WithTags("Identities"),
			endpoint.WithSummary("Get an identity"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(externalID),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(IdentityResponse{}, "200", "Identity"),
			}),
			endpoint.WithErrors([]response.Response{
				unauthorized,
				response.New(ErrorResponse{Code: "IDENTITY_NOT_FOUND", Message: "Identity not found"}, "404", "Not Found"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// POST /v1/identities/{external_id}/embeddings - Add poses
		endpoint.New(
			endpoint.POST,
			"/identities/{external_id}/embeddings",
			endpoint.WithTags("Identities"),
			endpoint.WithSummary("Add face images to an identity"),
			endpoint.WithConsume([]mime.MIME{mime.MIME("multipart/form-data")}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(externalID),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(AddImagesResponse{}, "201", "Embeddings appended"),
			}),
			endpoint.WithErrors([]response.Response{
				unauthorized,
				response.New(ErrorResponse{Code: "IDENTITY_NOT_FOUND", Message: "Identity not found"}, "404", "Not Found"),
				response.New(ErrorResponse{Code: "NO_FACE_DETECTED", Message: "No face detected in image"}, "422", "Unprocessable Entity"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// DELETE /v1/identities/{external_id}
		endpoint.New(
			endpoint.DELETE,
			"/identities/{external_id}",
			endpoint.WithTags("Identities"),
			endpoint.WithSummary("Delete an identity and its embeddings"),
			endpoint.WithParams(externalID),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(EmptyResponse{}, "204", "Identity deleted"),
			}),
			endpoint.WithErrors([]response.Response{
				unauthorized,
				response.New(ErrorResponse{Code: "IDENTITY_NOT_FOUND", Message: "Identity not found"}, "404", "Not Found"),
			}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),

		// GET /v1/logins - Login journal
		endpoint.New(
			endpoint.GET,
			"/logins",
			endpoint.WithTags("Logins"),
			endpoint.WithSummary("Recent accepted logins"),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.IntParam("limit", parameter.Query, parameter.WithDescription("Maximum number of logins (1-500, default: 50)")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(LoginListResponse{}, "200", "Logins, newest first"),
			}),
			endpoint.WithErrors([]response.Response{unauthorized}),
			endpoint.WithSecurity([]map[string][]string{{"ApiKeyAuth": {}}}),
		),
	}

	sw.AddEndpoints(endpoints)

	return sw
}
