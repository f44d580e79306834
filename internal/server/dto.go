package server

import (
	"portaria/internal/domain"
	"portaria/internal/lifecycle"
)

// Request payloads

type SubjectRequest struct {
	SubjectID     string `json:"subject_id,omitempty"`
	FullName      string `json:"full_name"`
	TaxID         string `json:"tax_id,omitempty"`
	PositionLabel string `json:"position_label,omitempty"`
	PositionCode  string `json:"position_code,omitempty"`
}

type CreateActRequest struct {
	InstrumentKind  string           `json:"instrument_kind,omitempty" example:"portaria"`
	Category        string           `json:"category" enum:"appointment,dismissal,designation,dismissal_of_designation,placement,leave,substitution,normative,other"`
	DocumentDate    string           `json:"document_date" format:"date"`
	SummaryText     string           `json:"summary_text,omitempty"`
	Subjects        []SubjectRequest `json:"subjects,omitempty"`
	RelatedPosition *string          `json:"related_position,omitempty"`
	RelatedUnit     *string          `json:"related_unit,omitempty"`
	Notes           string           `json:"notes,omitempty"`
}

type UpdateDraftRequest struct {
	Version         int64             `json:"version" minimum:"1"`
	SummaryText     *string           `json:"summary_text,omitempty"`
	Subjects        *[]SubjectRequest `json:"subjects,omitempty"`
	RelatedPosition *string           `json:"related_position,omitempty"`
	RelatedUnit     *string           `json:"related_unit,omitempty"`
	Notes           *string           `json:"notes,omitempty"`
	DocumentDate    *string           `json:"document_date,omitempty" format:"date"`
}

type GazetteRequest struct {
	Number  string `json:"number"`
	Date    string `json:"date" format:"date"`
	Version int64  `json:"version,omitempty"`
}

type TransitionRequest struct {
	To      string `json:"to" enum:"draft,awaiting_signature,signed,awaiting_publication,published,in_force,revoked"`
	Version int64  `json:"version,omitempty"`
}

type RevokeRequest struct {
	Reason  string `json:"reason"`
	Version int64  `json:"version,omitempty"`
}

type RetifyRequest struct {
	Corrections   domain.Corrections `json:"corrections"`
	Justification string             `json:"justification,omitempty"`
	DocumentDate  string             `json:"document_date,omitempty" format:"date"`
}

type CollectiveRequest struct {
	InstrumentKind string           `json:"instrument_kind,omitempty"`
	Category       string           `json:"category" enum:"appointment,dismissal,designation,dismissal_of_designation,placement,leave,substitution,normative,other"`
	DocumentDate   string           `json:"document_date" format:"date"`
	SummaryText    string           `json:"summary_text,omitempty"`
	Subjects       []SubjectRequest `json:"subjects" minItems:"1"`
	RelatedUnit    *string          `json:"related_unit,omitempty"`
	Notes          string           `json:"notes,omitempty"`
}

type DevLoginRequest struct {
	ActorID    string `json:"actor_id"`
	TTLSeconds int    `json:"ttl_seconds,omitempty"`
}

// Response payloads

type DevLoginResponse struct {
	Token string `json:"token"`
}

type EdgeResponse struct {
	To string `json:"to"`
	Op string `json:"op" enum:"transition,revoke"`
}

type TransitionsResponse struct {
	ActID   string         `json:"act_id"`
	Status  string         `json:"status"`
	Version int64          `json:"version"`
	Allowed []EdgeResponse `json:"allowed"`
}

type ValidationResponse struct {
	ActID      string              `json:"act_id"`
	Target     string              `json:"target"`
	OK         bool                `json:"ok"`
	Violations []domain.FieldError `json:"violations"`
}

type paginatedActs struct {
	Items      []domain.Act `json:"items"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

type listActs struct {
	Items []domain.Act `json:"items"`
}

type paginatedEvents struct {
	Items      []domain.Event `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

func toSubjects(in []SubjectRequest) []domain.Subject {
	out := make([]domain.Subject, 0, len(in))
	for _, s := range in {
		out = append(out, domain.Subject{
			SubjectID:     s.SubjectID,
			FullName:      s.FullName,
			TaxID:         s.TaxID,
			PositionLabel: s.PositionLabel,
			PositionCode:  s.PositionCode,
		})
	}
	return out
}

func (r CreateActRequest) act() domain.Act {
	kind := domain.InstrumentKind(r.InstrumentKind)
	if kind == "" {
		kind = domain.InstrumentPortaria
	}
	return domain.Act{
		InstrumentKind:  kind,
		Category:        domain.Category(r.Category),
		DocumentDate:    r.DocumentDate,
		SummaryText:     r.SummaryText,
		Subjects:        toSubjects(r.Subjects),
		RelatedPosition: r.RelatedPosition,
		RelatedUnit:     r.RelatedUnit,
		Notes:           r.Notes,
	}
}

func (r UpdateDraftRequest) patch() lifecycle.DraftPatch {
	p := lifecycle.DraftPatch{
		SummaryText:     r.SummaryText,
		RelatedPosition: r.RelatedPosition,
		RelatedUnit:     r.RelatedUnit,
		Notes:           r.Notes,
		DocumentDate:    r.DocumentDate,
	}
	if r.Subjects != nil {
		subjects := toSubjects(*r.Subjects)
		p.Subjects = &subjects
	}
	return p
}

func (r CollectiveRequest) request() lifecycle.CollectiveRequest {
	return lifecycle.CollectiveRequest{
		InstrumentKind: domain.InstrumentKind(r.InstrumentKind),
		Category:       domain.Category(r.Category),
		DocumentDate:   r.DocumentDate,
		SummaryText:    r.SummaryText,
		Subjects:       toSubjects(r.Subjects),
		RelatedUnit:    r.RelatedUnit,
		Notes:          r.Notes,
	}
}

func transitionsResponse(act domain.Act, edges []lifecycle.Edge) TransitionsResponse {
	resp := TransitionsResponse{
		ActID:   act.ID,
		Status:  string(act.Status),
		Version: act.Version,
		Allowed: []EdgeResponse{},
	}
	for _, e := range edges {
		resp.Allowed = append(resp.Allowed, EdgeResponse{To: string(e.To), Op: string(e.Op)})
	}
	return resp
}
